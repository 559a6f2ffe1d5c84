package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Identity binds a signing credential to an RPC endpoint. Construction only
// validates and derives the address; the endpoint is dialed lazily on first
// use and the chain ID is resolved once from the live connection.
type Identity struct {
	endpoint string
	address  common.Address

	mu      sync.Mutex
	key     *ecdsa.PrivateKey
	backend Backend
	chainID *big.Int
}

// NewIdentity validates the hex-encoded private key and the endpoint URL and
// returns a bound identity. No network round trip happens here.
func NewIdentity(credential, endpoint string) (*Identity, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(credential), "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}

	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEndpoint, err)
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidEndpoint, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidEndpoint)
	}

	return &Identity{
		endpoint: u.String(),
		address:  crypto.PubkeyToAddress(key.PublicKey),
		key:      key,
	}, nil
}

// Address returns the account address derived from the credential.
func (id *Identity) Address() common.Address { return id.address }

// Endpoint returns the bound RPC endpoint URL.
func (id *Identity) Endpoint() string { return id.endpoint }

// connect dials the endpoint on first use and returns the shared backend.
func (id *Identity) connect(ctx context.Context) (Backend, error) {
	id.mu.Lock()
	defer id.mu.Unlock()

	if id.backend != nil {
		return id.backend, nil
	}

	client, err := ethclient.DialContext(ctx, id.endpoint)
	if err != nil {
		return nil, &EndpointError{Endpoint: id.endpoint, Err: err}
	}
	id.backend = client
	return id.backend, nil
}

// resolveChainID fetches and caches the chain ID from the backend.
func (id *Identity) resolveChainID(ctx context.Context) (*big.Int, error) {
	backend, err := id.connect(ctx)
	if err != nil {
		return nil, err
	}

	id.mu.Lock()
	defer id.mu.Unlock()

	if id.chainID != nil {
		return id.chainID, nil
	}
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return nil, &EndpointError{Endpoint: id.endpoint, Err: err}
	}
	id.chainID = chainID
	return id.chainID, nil
}

// SignTx signs a transaction for the bound chain.
func (id *Identity) SignTx(tx *types.Transaction, chainID *big.Int) (*types.Transaction, error) {
	id.mu.Lock()
	defer id.mu.Unlock()

	if id.key == nil {
		return nil, ErrCredentialScrubbed
	}
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), id.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return signed, nil
}

// Scrub discards the private key material. The identity can still be used for
// read-only calls afterwards. Scrubbing twice is a no-op.
func (id *Identity) Scrub() {
	id.mu.Lock()
	defer id.mu.Unlock()

	if id.key == nil {
		return
	}
	id.key.D.SetInt64(0)
	id.key = nil
}

// Scrubbed reports whether the key material has been discarded.
func (id *Identity) Scrubbed() bool {
	id.mu.Lock()
	defer id.mu.Unlock()
	return id.key == nil
}

// Close releases the underlying RPC connection, if one was ever dialed.
func (id *Identity) Close() {
	id.mu.Lock()
	defer id.mu.Unlock()

	if client, ok := id.backend.(*ethclient.Client); ok {
		client.Close()
	}
	id.backend = nil
}
