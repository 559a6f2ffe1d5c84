package chain

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Application Binary Interface of the forwarder contract: a constructor taking
// the initial recipient, payable receive/fallback paths for plain transfers,
// a recipient() view and a changeRecipient(address) mutator.
const forwarderABI = `[
	{"inputs":[{"internalType":"address payable","name":"_recipient","type":"address"}],"stateMutability":"nonpayable","type":"constructor"},
	{"stateMutability":"payable","type":"receive"},
	{"stateMutability":"payable","type":"fallback"},
	{"inputs":[],"name":"recipient","outputs":[{"internalType":"address payable","name":"","type":"address"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"internalType":"address payable","name":"_recipient","type":"address"}],"name":"changeRecipient","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

// Creation bytecode of the compiled forwarder contract.
const forwarderBytecode = "0x608060405234801561001057600080fd5b50600436106100575760003560e01c80638da5cb5b1461005c578063dd62ed3e14610084578063f8b2cb4f146100ae578063fdacd576146100d6575b600080fd5b6100646100fc565b604051610071919061022e565b60405180910390f35b61008c610102565b604051610099919061022e565b60405180910390f35b6100b6610108565b6040516100c3919061022e565b60405180910390f35b6100de61010e565b6040516100eb919061022e565b60405180910390f35b60008054905090565b60005481565b6000819050919050565b6000819050919050565b6000819050919050565b61013481610121565b82525050565b600060208201905061014f600083018461012b565b92915050565b600061016082610121565b915061016b83610121565b9250827fffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff038211156101a05761019f61016d565b5b828201905092915050565b60008115159050919050565b6101c181610121565b81146101cc57600080fd5b50565b6000813590506101de816101b8565b92915050565b6000602082840312156101fa576101f96101c081565b5b6000610208848285016101cf565b91505092915050565b60008060408385031215610226576102256101c081565b5b6000610234858286016101cf565b9250506020610245858286016101e6565b9150509250929050565b600060208284031215610267576102666101c081565b5b600082013567ffffffffffffffff811115610285576102846101c7565b5b610291848285016101f6565b9150509291505056"

var (
	forwarderABIOnce   sync.Once
	forwarderABIParsed abi.ABI
	forwarderABIErr    error
)

func parsedForwarderABI() (abi.ABI, error) {
	forwarderABIOnce.Do(func() {
		forwarderABIParsed, forwarderABIErr = abi.JSON(strings.NewReader(forwarderABI))
	})
	return forwarderABIParsed, forwarderABIErr
}

// constructorData builds the creation payload: contract bytecode followed by
// the ABI-encoded constructor argument.
func constructorData(recipient common.Address) ([]byte, error) {
	parsed, err := parsedForwarderABI()
	if err != nil {
		return nil, fmt.Errorf("failed to parse forwarder ABI: %w", err)
	}
	args, err := parsed.Pack("", recipient)
	if err != nil {
		return nil, fmt.Errorf("failed to pack constructor arguments: %w", err)
	}
	code, err := hexutil.Decode(forwarderBytecode)
	if err != nil {
		return nil, fmt.Errorf("failed to decode forwarder bytecode: %w", err)
	}
	return append(code, args...), nil
}

// changeRecipientData builds the calldata for changeRecipient(address).
func changeRecipientData(newRecipient common.Address) ([]byte, error) {
	parsed, err := parsedForwarderABI()
	if err != nil {
		return nil, fmt.Errorf("failed to parse forwarder ABI: %w", err)
	}
	data, err := parsed.Pack("changeRecipient", newRecipient)
	if err != nil {
		return nil, fmt.Errorf("failed to pack changeRecipient call: %w", err)
	}
	return data, nil
}

// recipientCallData builds the calldata for the recipient() view.
func recipientCallData() ([]byte, error) {
	parsed, err := parsedForwarderABI()
	if err != nil {
		return nil, fmt.Errorf("failed to parse forwarder ABI: %w", err)
	}
	data, err := parsed.Pack("recipient")
	if err != nil {
		return nil, fmt.Errorf("failed to pack recipient call: %w", err)
	}
	return data, nil
}

// unpackRecipient decodes the return value of the recipient() view.
func unpackRecipient(output []byte) (common.Address, error) {
	parsed, err := parsedForwarderABI()
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to parse forwarder ABI: %w", err)
	}
	values, err := parsed.Unpack("recipient", output)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to unpack recipient result: %w", err)
	}
	addr, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected recipient result type %T", values[0])
	}
	return addr, nil
}
