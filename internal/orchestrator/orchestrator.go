// Package orchestrator sequences an on-chain action with its off-chain
// reflection. The chain step always runs first: a confirmed chain action is
// irreversible while a ledger write can be retried, so irreversible work must
// never wait on retryable work.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"ethforwarder/internal/chain"
	"ethforwarder/internal/metrics"
	"ethforwarder/internal/models"
)

// ErrBusy indicates another deployment or recipient change from this session
// is still in flight. The request is rejected, not queued.
var ErrBusy = errors.New("another operation is already in flight")

// InconsistencyError reports a chain action that confirmed while its ledger
// write failed: the chain and the ledger now disagree. It carries everything
// needed to retry only the persistence step, never the chain step.
type InconsistencyError struct {
	// Deployment is set when a deployment record could not be created.
	Deployment *chain.ConfirmedDeployment

	// RecordID and NewRecipient are set when a recipient update could not
	// be stored.
	RecordID     int
	NewRecipient string

	Err error
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("chain action confirmed but ledger write failed: %v", e.Err)
}

func (e *InconsistencyError) Unwrap() error { return e.Err }

// ContractDeployer drives a forwarder deployment to a confirmed outcome.
type ContractDeployer interface {
	Deploy(ctx context.Context, identity *chain.Identity, recipientAddress string) (*chain.ConfirmedDeployment, error)
}

// RecipientUpdater drives a changeRecipient call to a confirmed outcome.
type RecipientUpdater interface {
	ChangeRecipient(ctx context.Context, identity *chain.Identity, contractAddress, newRecipient string) (*chain.ConfirmedRecipientChange, error)
}

// RecordStore is the ledger surface the orchestrator writes to.
type RecordStore interface {
	Create(ctx context.Context, in models.InsertDeployment) (*models.Deployment, error)
	UpdateRecipient(ctx context.Context, id int, recipientAddress string) (*models.Deployment, error)
}

// DeploymentIntent is consumed by exactly one Deploy call. The embedded
// identity is scrubbed as soon as the chain step resolves.
type DeploymentIntent struct {
	Identity         *chain.Identity
	RecipientAddress string
}

// RecipientChangeIntent is consumed by exactly one ChangeRecipient call.
type RecipientChangeIntent struct {
	Identity            *chain.Identity
	RecordID            int
	ContractAddress     string
	NewRecipientAddress string
}

// Orchestrator owns the consistency policy between the chain backend and the
// deployment ledger. One instance serves one caller session; a busy flag
// admits a single in-flight operation at a time.
type Orchestrator struct {
	deployer ContractDeployer
	updater  RecipientUpdater
	store    RecordStore
	busy     atomic.Bool
}

// New creates an Orchestrator over the given collaborators.
func New(deployer ContractDeployer, updater RecipientUpdater, store RecordStore) *Orchestrator {
	return &Orchestrator{
		deployer: deployer,
		updater:  updater,
		store:    store,
	}
}

// Deploy runs the full deployment flow: deploy on-chain, then record the
// confirmed deployment in the ledger. A chain failure aborts with no store
// call, so no record can ever claim a deployment that did not happen. A store
// failure after chain success returns an InconsistencyError carrying the
// confirmed details.
func (o *Orchestrator) Deploy(ctx context.Context, intent DeploymentIntent) (*models.Deployment, error) {
	if !o.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer o.busy.Store(false)

	if intent.Identity == nil {
		return nil, &models.ValidationError{Field: "identity", Message: "signing identity is required"}
	}

	confirmed, err := o.deployer.Deploy(ctx, intent.Identity, intent.RecipientAddress)

	// The store step never needs the credential. Discard it before anything
	// else happens, whatever the chain outcome was.
	intent.Identity.Scrub()

	if err != nil {
		return nil, err
	}

	record, err := o.store.Create(ctx, models.InsertDeployment{
		ContractAddress:  confirmed.ContractAddress,
		RecipientAddress: confirmed.RecipientAddress,
		DeployerAddress:  confirmed.DeployerAddress,
		Network:          confirmed.Network,
	})
	if err != nil {
		metrics.StoreInconsistencies.Inc()
		slog.Error("Deployment confirmed on-chain but ledger write failed",
			"contract", confirmed.ContractAddress,
			"tx_hash", confirmed.TxHash,
			"error", err,
		)
		return nil, &InconsistencyError{Deployment: confirmed, Err: err}
	}

	return record, nil
}

// ChangeRecipient runs the full recipient-change flow: change on-chain, then
// update the ledger record. The same ordering and inconsistency contract as
// Deploy applies.
func (o *Orchestrator) ChangeRecipient(ctx context.Context, intent RecipientChangeIntent) (*models.Deployment, error) {
	if !o.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer o.busy.Store(false)

	if intent.Identity == nil {
		return nil, &models.ValidationError{Field: "identity", Message: "signing identity is required"}
	}

	confirmed, err := o.updater.ChangeRecipient(ctx, intent.Identity, intent.ContractAddress, intent.NewRecipientAddress)

	intent.Identity.Scrub()

	if err != nil {
		return nil, err
	}

	record, err := o.store.UpdateRecipient(ctx, intent.RecordID, confirmed.RecipientAddress)
	if err != nil {
		metrics.StoreInconsistencies.Inc()
		slog.Error("Recipient change confirmed on-chain but ledger write failed",
			"contract", confirmed.ContractAddress,
			"record_id", intent.RecordID,
			"tx_hash", confirmed.TxHash,
			"error", err,
		)
		return nil, &InconsistencyError{RecordID: intent.RecordID, NewRecipient: confirmed.RecipientAddress, Err: err}
	}

	return record, nil
}

// RetryPersist re-runs only the store step of a deployment whose chain step
// already confirmed. It never touches the chain, so it cannot double-send.
func (o *Orchestrator) RetryPersist(ctx context.Context, confirmed *chain.ConfirmedDeployment) (*models.Deployment, error) {
	if !o.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer o.busy.Store(false)

	record, err := o.store.Create(ctx, models.InsertDeployment{
		ContractAddress:  confirmed.ContractAddress,
		RecipientAddress: confirmed.RecipientAddress,
		DeployerAddress:  confirmed.DeployerAddress,
		Network:          confirmed.Network,
	})
	if err != nil {
		return nil, &InconsistencyError{Deployment: confirmed, Err: err}
	}
	return record, nil
}

// RetryPersistRecipient re-runs only the store step of a confirmed recipient
// change.
func (o *Orchestrator) RetryPersistRecipient(ctx context.Context, recordID int, newRecipient string) (*models.Deployment, error) {
	if !o.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer o.busy.Store(false)

	record, err := o.store.UpdateRecipient(ctx, recordID, newRecipient)
	if err != nil {
		return nil, &InconsistencyError{RecordID: recordID, NewRecipient: newRecipient, Err: err}
	}
	return record, nil
}
