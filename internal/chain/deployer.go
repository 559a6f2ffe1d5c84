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

// ConfirmedDeployment describes a forwarder deployment observed on-chain.
// Addresses are in checksummed form, ready for the ledger.
type ConfirmedDeployment struct {
	ContractAddress  string
	RecipientAddress string
	DeployerAddress  string
	Network          string
	TxHash           string
}

// Deployer builds and submits forwarder contract-creation transactions.
type Deployer struct {
	submitter *Submitter
}

// NewDeployer creates a Deployer driving transactions through submitter.
func NewDeployer(submitter *Submitter) *Deployer {
	return &Deployer{submitter: submitter}
}

// Deploy creates a forwarder whose constructor runs with recipientAddress and
// blocks until the creation is confirmed. The recipient is validated before
// anything touches the network. On success the contract's initial recipient()
// equals recipientAddress.
func (d *Deployer) Deploy(ctx context.Context, identity *Identity, recipientAddress string) (*ConfirmedDeployment, error) {
	if err := models.ValidateAddress("recipientAddress", recipientAddress); err != nil {
		return nil, err
	}
	recipient := common.HexToAddress(recipientAddress)

	backend, err := identity.connect(ctx)
	if err != nil {
		return nil, err
	}
	chainID, err := identity.resolveChainID(ctx)
	if err != nil {
		return nil, err
	}

	data, err := constructorData(recipient)
	if err != nil {
		return nil, &DeploymentFailedError{Err: err}
	}

	nonce, err := backend.PendingNonceAt(ctx, identity.Address())
	if err != nil {
		return nil, &DeploymentFailedError{Err: fmt.Errorf("failed to fetch nonce: %w", err)}
	}
	gasPrice, err := backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, &DeploymentFailedError{Err: fmt.Errorf("failed to fetch gas price: %w", err)}
	}
	gas, err := backend.EstimateGas(ctx, ethereum.CallMsg{
		From: identity.Address(),
		Data: data,
	})
	if err != nil {
		return nil, &DeploymentFailedError{Err: fmt.Errorf("failed to estimate gas: %w", err)}
	}

	tx := types.NewContractCreation(nonce, big.NewInt(0), gas, gasPrice, data)
	signed, err := identity.SignTx(tx, chainID)
	if err != nil {
		return nil, &DeploymentFailedError{Err: err}
	}

	slog.Info("Deploying forwarder contract",
		"deployer", identity.Address(),
		"recipient", recipient,
		"network", NetworkName(chainID),
	)

	outcome, err := d.submitter.Submit(ctx, backend, signed)
	if err != nil {
		return nil, &DeploymentFailedError{Err: err}
	}
	if outcome.ContractAddress == nil {
		return nil, &DeploymentFailedError{Err: fmt.Errorf("confirmed receipt carries no contract address (tx %s)", outcome.TxHash)}
	}

	metrics.DeploymentsConfirmed.Inc()

	return &ConfirmedDeployment{
		ContractAddress:  outcome.ContractAddress.Hex(),
		RecipientAddress: recipient.Hex(),
		DeployerAddress:  identity.Address().Hex(),
		Network:          NetworkName(chainID),
		TxHash:           outcome.TxHash.Hex(),
	}, nil
}
