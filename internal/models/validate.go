package models

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ValidationError reports a malformed input field. It is always raised before
// any chain or store call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateAddress checks that value is a 0x-prefixed 20-byte hex address.
// Mixed-case (checksummed) and all-lowercase forms are both accepted.
func ValidateAddress(field, value string) error {
	if !strings.HasPrefix(value, "0x") || !common.IsHexAddress(value) {
		return &ValidationError{Field: field, Message: "must be a valid Ethereum address"}
	}
	return nil
}

// ChecksumAddress normalizes an already-validated address to its EIP-55
// checksummed form, the representation the ledger stores.
func ChecksumAddress(value string) string {
	return common.HexToAddress(value).Hex()
}
