package models

// APIError is the wire shape of every ledger API error. Field is only set on
// validation failures so clients can highlight the offending input.
type APIError struct {
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}
