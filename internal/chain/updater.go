package chain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"ethforwarder/internal/metrics"
	"ethforwarder/internal/models"
)

// ConfirmedRecipientChange describes a confirmed changeRecipient call.
// RecipientAddress is read back from the contract after confirmation.
type ConfirmedRecipientChange struct {
	ContractAddress  string
	RecipientAddress string
	Network          string
	TxHash           string
}

// Updater builds and submits changeRecipient transactions against deployed
// forwarders. Whether the caller is authorized is decided entirely by the
// contract: a revert surfaces as an ordinary terminal failure, and a success
// does not imply the caller was the original deployer.
type Updater struct {
	submitter *Submitter
}

// NewUpdater creates an Updater driving transactions through submitter.
func NewUpdater(submitter *Submitter) *Updater {
	return &Updater{submitter: submitter}
}

// ChangeRecipient invokes changeRecipient(newRecipient) on contractAddress
// and blocks until the call is confirmed. Both addresses are validated before
// anything touches the network; contract existence is not pre-checked, a call
// against a non-contract simply fails on-chain.
func (u *Updater) ChangeRecipient(ctx context.Context, identity *Identity, contractAddress, newRecipient string) (*ConfirmedRecipientChange, error) {
	if err := models.ValidateAddress("contractAddress", contractAddress); err != nil {
		return nil, err
	}
	if err := models.ValidateAddress("recipientAddress", newRecipient); err != nil {
		return nil, err
	}
	contract := common.HexToAddress(contractAddress)
	recipient := common.HexToAddress(newRecipient)

	backend, err := identity.connect(ctx)
	if err != nil {
		return nil, err
	}
	chainID, err := identity.resolveChainID(ctx)
	if err != nil {
		return nil, err
	}

	data, err := changeRecipientData(recipient)
	if err != nil {
		return nil, &RecipientChangeFailedError{Err: err}
	}

	nonce, err := backend.PendingNonceAt(ctx, identity.Address())
	if err != nil {
		return nil, &RecipientChangeFailedError{Err: fmt.Errorf("failed to fetch nonce: %w", err)}
	}
	gasPrice, err := backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, &RecipientChangeFailedError{Err: fmt.Errorf("failed to fetch gas price: %w", err)}
	}
	gas, err := backend.EstimateGas(ctx, ethereum.CallMsg{
		From: identity.Address(),
		To:   &contract,
		Data: data,
	})
	if err != nil {
		return nil, &RecipientChangeFailedError{Err: fmt.Errorf("failed to estimate gas: %w", err)}
	}

	tx := types.NewTransaction(nonce, contract, big.NewInt(0), gas, gasPrice, data)
	signed, err := identity.SignTx(tx, chainID)
	if err != nil {
		return nil, &RecipientChangeFailedError{Err: err}
	}

	slog.Info("Changing forwarder recipient",
		"contract", contract,
		"new_recipient", recipient,
		"network", NetworkName(chainID),
	)

	outcome, err := u.submitter.Submit(ctx, backend, signed)
	if err != nil {
		return nil, &RecipientChangeFailedError{Err: err}
	}

	confirmed := recipient
	if onchain, err := u.readRecipient(ctx, backend, contract); err != nil {
		slog.Warn("Failed to read back recipient after confirmed change",
			"contract", contract, "error", err)
	} else {
		confirmed = onchain
	}

	metrics.RecipientChangesConfirmed.Inc()

	return &ConfirmedRecipientChange{
		ContractAddress:  contract.Hex(),
		RecipientAddress: confirmed.Hex(),
		Network:          NetworkName(chainID),
		TxHash:           outcome.TxHash.Hex(),
	}, nil
}

// readRecipient calls the recipient() view on the contract.
func (u *Updater) readRecipient(ctx context.Context, backend Backend, contract common.Address) (common.Address, error) {
	data, err := recipientCallData()
	if err != nil {
		return common.Address{}, err
	}
	output, err := backend.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("recipient() call failed: %w", err)
	}
	return unpackRecipient(output)
}
