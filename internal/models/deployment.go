package models

import "time"

// Deployment represents one successfully deployed forwarder contract as
// recorded by the off-chain ledger. The ledger assigns ID and CreatedAt;
// ContractAddress, DeployerAddress and Network never change after creation.
type Deployment struct {
	ID               int       `json:"id"`
	ContractAddress  string    `json:"contractAddress"`
	RecipientAddress string    `json:"recipientAddress"`
	DeployerAddress  string    `json:"deployerAddress"`
	Network          string    `json:"network"`
	CreatedAt        time.Time `json:"createdAt"`
}

// InsertDeployment is the create payload for the ledger. The store assigns
// the remaining fields.
type InsertDeployment struct {
	ContractAddress  string `json:"contractAddress"`
	RecipientAddress string `json:"recipientAddress"`
	DeployerAddress  string `json:"deployerAddress"`
	Network          string `json:"network"`
}

// Validate checks every address field and the network identifier before the
// payload touches storage or the wire.
func (d InsertDeployment) Validate() error {
	if err := ValidateAddress("contractAddress", d.ContractAddress); err != nil {
		return err
	}
	if err := ValidateAddress("recipientAddress", d.RecipientAddress); err != nil {
		return err
	}
	if err := ValidateAddress("deployerAddress", d.DeployerAddress); err != nil {
		return err
	}
	if d.Network == "" {
		return &ValidationError{Field: "network", Message: "network is required"}
	}
	return nil
}

// UpdateRecipientRequest is the PATCH body for a recipient change.
type UpdateRecipientRequest struct {
	RecipientAddress string `json:"recipientAddress"`
}
