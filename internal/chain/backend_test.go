package chain

import (
	"context"
	"math/big"
	"sync/atomic"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// fakeBackend is an in-memory Backend for tests. Function fields override
// individual calls; unset fields return benign defaults.
type fakeBackend struct {
	chainID *big.Int

	sendCalls    atomic.Int64
	receiptCalls atomic.Int64

	sendFn    func(ctx context.Context, tx *types.Transaction) error
	receiptFn func(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	callFn    func(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)

	lastSent *types.Transaction
}

func newFakeBackend(chainID int64) *fakeBackend {
	return &fakeBackend{chainID: big.NewInt(chainID)}
}

func (b *fakeBackend) ChainID(ctx context.Context) (*big.Int, error) {
	return b.chainID, nil
}

func (b *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return 7, nil
}

func (b *fakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(20_000_000_000), nil
}

func (b *fakeBackend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return 500_000, nil
}

func (b *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	b.sendCalls.Add(1)
	b.lastSent = tx
	if b.sendFn != nil {
		return b.sendFn(ctx, tx)
	}
	return nil
}

func (b *fakeBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	b.receiptCalls.Add(1)
	if b.receiptFn != nil {
		return b.receiptFn(ctx, txHash)
	}
	return nil, ethereum.NotFound
}

func (b *fakeBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if b.callFn != nil {
		return b.callFn(ctx, msg)
	}
	return nil, ethereum.NotFound
}

// newTestIdentity builds an identity with a fresh key, bound to the fake
// backend so no dialing happens.
func newTestIdentity(backend *fakeBackend) *Identity {
	identity, err := NewIdentity(testPrivateKeyHex, "http://localhost:8545")
	if err != nil {
		panic(err)
	}
	identity.backend = backend
	return identity
}

// Throwaway key used only in tests.
const testPrivateKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

// successReceipt builds a confirmed receipt, optionally for a creation.
func successReceipt(hash common.Hash, contract *common.Address) *types.Receipt {
	receipt := &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      hash,
		BlockNumber: big.NewInt(42),
		GasUsed:     321_000,
	}
	if contract != nil {
		receipt.ContractAddress = *contract
	}
	return receipt
}
