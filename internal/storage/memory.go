package storage

import (
	"context"
	"strings"
	"sync"
	"time"

	"ethforwarder/internal/models"
)

// MemoryRepository is an in-memory Repository. It backs tests and the
// memory store mode of the daemon; records do not survive a restart.
type MemoryRepository struct {
	mu          sync.Mutex
	nextID      int
	deployments []models.Deployment
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{nextID: 1}
}

// ListDeployments returns all records in insertion order.
func (r *MemoryRepository) ListDeployments(ctx context.Context) ([]models.Deployment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Deployment, len(r.deployments))
	copy(out, r.deployments)
	return out, nil
}

// CreateDeployment appends a new record, assigning id and createdAt.
func (r *MemoryRepository) CreateDeployment(ctx context.Context, in models.InsertDeployment) (*models.Deployment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, d := range r.deployments {
		if strings.EqualFold(d.ContractAddress, in.ContractAddress) {
			return nil, ErrDuplicateContract
		}
	}

	d := models.Deployment{
		ID:               r.nextID,
		ContractAddress:  in.ContractAddress,
		RecipientAddress: in.RecipientAddress,
		DeployerAddress:  in.DeployerAddress,
		Network:          in.Network,
		CreatedAt:        time.Now().UTC(),
	}
	r.nextID++
	r.deployments = append(r.deployments, d)
	return &d, nil
}

// UpdateDeploymentRecipient overwrites the recipient of record id.
func (r *MemoryRepository) UpdateDeploymentRecipient(ctx context.Context, id int, recipientAddress string) (*models.Deployment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.deployments {
		if r.deployments[i].ID == id {
			r.deployments[i].RecipientAddress = recipientAddress
			d := r.deployments[i]
			return &d, nil
		}
	}
	return nil, ErrNotFound
}

// Ping always succeeds.
func (r *MemoryRepository) Ping(ctx context.Context) error { return nil }

// Close is a no-op.
func (r *MemoryRepository) Close() error { return nil }
