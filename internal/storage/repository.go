package storage

import (
	"context"
	"errors"

	"ethforwarder/internal/models"
)

// ErrNotFound indicates the referenced deployment record does not exist.
var ErrNotFound = errors.New("deployment not found")

// ErrDuplicateContract indicates the contract address is already recorded.
// Contract addresses are unique and immutable across the ledger.
var ErrDuplicateContract = errors.New("contract address already recorded")

// Repository defines the interface for deployment ledger storage. Each
// operation is independently atomic; none of them knows anything about chain
// state.
type Repository interface {
	// ListDeployments returns all records in insertion order.
	ListDeployments(ctx context.Context) ([]models.Deployment, error)

	// CreateDeployment persists a new record, assigning id and createdAt.
	CreateDeployment(ctx context.Context, in models.InsertDeployment) (*models.Deployment, error)

	// UpdateDeploymentRecipient overwrites the recipient of record id.
	// Last write wins; there is no optimistic-concurrency check.
	UpdateDeploymentRecipient(ctx context.Context, id int, recipientAddress string) (*models.Deployment, error)

	// Health & Maintenance
	Ping(ctx context.Context) error
	Close() error
}
