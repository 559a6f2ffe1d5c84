package chain

import (
	"fmt"
	"math/big"
)

// networkNames maps well-known EVM chain IDs to display names.
var networkNames = map[uint64]string{
	1:        "mainnet",
	5:        "goerli",
	10:       "optimism",
	56:       "bnb",
	100:      "gnosis",
	137:      "polygon",
	8453:     "base",
	17000:    "holesky",
	31337:    "hardhat",
	42161:    "arbitrum",
	11155111: "sepolia",
}

// NetworkName resolves a chain ID to a human-readable network identifier.
// Unknown chains fall back to a numeric display form.
func NetworkName(chainID *big.Int) string {
	if chainID == nil {
		return "unknown"
	}
	if chainID.IsUint64() {
		if name, ok := networkNames[chainID.Uint64()]; ok {
			return name
		}
	}
	return fmt.Sprintf("Chain ID: %s", chainID.String())
}
