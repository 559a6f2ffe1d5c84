package chain

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

var (
	// ErrInvalidCredential indicates a private key that does not decode to a
	// valid secp256k1 scalar.
	ErrInvalidCredential = errors.New("invalid signing credential")

	// ErrInvalidEndpoint indicates a syntactically malformed RPC endpoint URL.
	ErrInvalidEndpoint = errors.New("invalid rpc endpoint")

	// ErrCredentialScrubbed indicates the identity's key material was already
	// discarded and the identity can no longer sign.
	ErrCredentialScrubbed = errors.New("signing credential already scrubbed")
)

// EndpointError indicates the RPC endpoint could not be reached. It is raised
// before any transaction leaves the process.
type EndpointError struct {
	Endpoint string
	Err      error
}

func (e *EndpointError) Error() string {
	return fmt.Sprintf("rpc endpoint %s unreachable: %v", e.Endpoint, e.Err)
}

func (e *EndpointError) Unwrap() error { return e.Err }

// TxFailedError is the terminal failure of a single submission attempt:
// rejected by the backend, reverted on-chain, or abandoned before a receipt
// was observed. Hash is zero when the transaction was never accepted.
type TxFailedError struct {
	Hash   common.Hash
	Reason string
	Err    error
}

func (e *TxFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transaction failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("transaction failed (%s)", e.Reason)
}

func (e *TxFailedError) Unwrap() error { return e.Err }

// DeploymentFailedError wraps any terminal failure of the deployment flow.
type DeploymentFailedError struct {
	Err error
}

func (e *DeploymentFailedError) Error() string {
	return fmt.Sprintf("deployment failed: %v", e.Err)
}

func (e *DeploymentFailedError) Unwrap() error { return e.Err }

// RecipientChangeFailedError wraps any terminal failure of the
// recipient-change flow.
type RecipientChangeFailedError struct {
	Err error
}

func (e *RecipientChangeFailedError) Error() string {
	return fmt.Sprintf("recipient change failed: %v", e.Err)
}

func (e *RecipientChangeFailedError) Unwrap() error { return e.Err }
