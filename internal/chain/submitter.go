package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"ethforwarder/internal/metrics"
)

// State is the position of a submission attempt in its lifecycle.
type State string

const (
	StateBuilding            State = "building"
	StateSubmitted           State = "submitted"
	StatePendingConfirmation State = "pending_confirmation"
	StateConfirmed           State = "confirmed"
	StateFailed              State = "failed"
)

const defaultPollInterval = 2 * time.Second

// Outcome is the terminal result of one submission attempt.
type Outcome struct {
	State           State
	TxHash          common.Hash
	ContractAddress *common.Address // set for confirmed contract creations
	BlockNumber     uint64
	GasUsed         uint64
}

// Submitter drives a fully-signed transaction to a terminal state:
// Building -> Submitted -> PendingConfirmation -> Confirmed, or Failed at any
// point. Each Submit call is single shot. Submission is not idempotent, so an
// ambiguous failure is never retried here: resending under a fresh nonce
// could land the payment twice. Retrying is the caller's decision.
type Submitter struct {
	pollInterval time.Duration
}

// NewSubmitter creates a Submitter. A zero pollInterval selects the default.
func NewSubmitter(pollInterval time.Duration) *Submitter {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Submitter{pollInterval: pollInterval}
}

// Submit sends the signed transaction and blocks until it is confirmed, it
// fails, or ctx is cancelled. Cancellation marks the local attempt Failed but
// does not cancel the on-chain transaction: it may still be included later.
func (s *Submitter) Submit(ctx context.Context, backend Backend, tx *types.Transaction) (*Outcome, error) {
	outcome := &Outcome{State: StateBuilding, TxHash: tx.Hash()}
	start := time.Now()

	slog.Debug("Submitting transaction", "tx_hash", outcome.TxHash, "nonce", tx.Nonce())

	if err := backend.SendTransaction(ctx, tx); err != nil {
		outcome.State = StateFailed
		metrics.TransactionsFailed.WithLabelValues("rejected").Inc()
		return outcome, &TxFailedError{Hash: outcome.TxHash, Reason: "rejected by backend", Err: err}
	}
	outcome.State = StateSubmitted
	metrics.TransactionsSubmitted.Inc()

	slog.Info("Transaction submitted, awaiting confirmation",
		"tx_hash", outcome.TxHash,
		"poll_interval", s.pollInterval,
	)
	outcome.State = StatePendingConfirmation

	receipt, err := s.awaitReceipt(ctx, backend, outcome.TxHash)
	if err != nil {
		outcome.State = StateFailed
		metrics.TransactionsFailed.WithLabelValues("abandoned").Inc()
		return outcome, &TxFailedError{Hash: outcome.TxHash, Reason: "confirmation abandoned", Err: err}
	}

	if receipt.Status == types.ReceiptStatusFailed {
		outcome.State = StateFailed
		outcome.BlockNumber = receipt.BlockNumber.Uint64()
		outcome.GasUsed = receipt.GasUsed
		metrics.TransactionsFailed.WithLabelValues("reverted").Inc()
		return outcome, &TxFailedError{Hash: outcome.TxHash, Reason: "reverted"}
	}

	outcome.State = StateConfirmed
	outcome.BlockNumber = receipt.BlockNumber.Uint64()
	outcome.GasUsed = receipt.GasUsed
	if receipt.ContractAddress != (common.Address{}) {
		addr := receipt.ContractAddress
		outcome.ContractAddress = &addr
	}

	metrics.TransactionsConfirmed.Inc()
	metrics.TransactionConfirmationDuration.Observe(time.Since(start).Seconds())

	slog.Info("Transaction confirmed",
		"tx_hash", outcome.TxHash,
		"block", outcome.BlockNumber,
		"gas_used", outcome.GasUsed,
	)
	return outcome, nil
}

// awaitReceipt polls for the transaction receipt until one is observed or ctx
// is cancelled. Transient lookup errors keep the wait alive; only the caller
// can abandon it.
func (s *Submitter) awaitReceipt(ctx context.Context, backend Backend, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := backend.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("wait cancelled: %w", ctx.Err())
			}
			slog.Warn("Receipt lookup failed, will retry", "tx_hash", hash, "error", err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait cancelled: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
