package client

import (
	"fmt"

	"portal-swap/pkg/currency"
)

// chainNames maps a chain ID to the path segment the aggregation service
// uses for it. Unsupported chain IDs must be rejected before a URL is built.
var chainNames = map[uint64]string{
	currency.ChainEthereum: "ethereum",
	currency.ChainPolygon:  "polygon",
	currency.ChainArbitrum: "arbitrum",
	currency.ChainOptimism: "optimism",
}

// ChainName resolves the service's network name for a chain ID.
func ChainName(chainID uint64) (string, error) {
	name, ok := chainNames[chainID]
	if !ok {
		return "", fmt.Errorf("unsupported chain id %d", chainID)
	}
	return name, nil
}
