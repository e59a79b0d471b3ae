package currency

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Supported EVM chain IDs
const (
	ChainEthereum uint64 = 1
	ChainOptimism uint64 = 10
	ChainPolygon  uint64 = 137
	ChainArbitrum uint64 = 42161
)

// wrappedNative maps a chain ID to its canonical wrapped-native token
// contract. Currency equality is defined over wrapped identities, so the
// native asset of a chain compares equal to its wrapped token.
var wrappedNative = map[uint64]common.Address{
	ChainEthereum: common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"), // WETH
	ChainPolygon:  common.HexToAddress("0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270"), // WMATIC
	ChainArbitrum: common.HexToAddress("0x82aF49447D8a07e3bd95BD0d56f35241523fBab1"), // WETH
	ChainOptimism: common.HexToAddress("0x4200000000000000000000000000000000000006"), // WETH
}

var nativeSymbol = map[uint64]string{
	ChainEthereum: "ETH",
	ChainPolygon:  "MATIC",
	ChainArbitrum: "ETH",
	ChainOptimism: "ETH",
}

// Currency identifies a tradable asset: either a chain's native asset or a
// token (chain ID, contract address, decimals, optional symbol). The zero
// value is not a valid currency.
type Currency struct {
	chainID  uint64
	address  common.Address
	decimals uint8
	symbol   string
	native   bool
}

// NewToken builds a token currency.
func NewToken(chainID uint64, address common.Address, decimals uint8, symbol string) Currency {
	return Currency{
		chainID:  chainID,
		address:  address,
		decimals: decimals,
		symbol:   symbol,
	}
}

// Native returns the native asset of the given chain.
func Native(chainID uint64) (Currency, error) {
	if _, ok := wrappedNative[chainID]; !ok {
		return Currency{}, fmt.Errorf("unsupported chain id %d", chainID)
	}
	return Currency{
		chainID:  chainID,
		decimals: 18,
		symbol:   nativeSymbol[chainID],
		native:   true,
	}, nil
}

// ChainID returns the chain the currency lives on.
func (c Currency) ChainID() uint64 { return c.chainID }

// Decimals returns the number of decimals of the currency's smallest unit.
func (c Currency) Decimals() uint8 { return c.decimals }

// Symbol returns the currency's symbol, possibly empty.
func (c Currency) Symbol() string { return c.symbol }

// IsNative reports whether the currency is the chain's native asset.
func (c Currency) IsNative() bool { return c.native }

// Address returns the token contract address. For native assets it returns
// the zero address, which is also the wire representation (see client).
func (c Currency) Address() common.Address {
	if c.native {
		return common.Address{}
	}
	return c.address
}

// Wrapped returns the token-form identity of the currency: the wrapped
// native contract for native assets, the contract address otherwise.
func (c Currency) Wrapped() common.Address {
	if c.native {
		return wrappedNative[c.chainID]
	}
	return c.address
}

// Equal reports whether two currencies share the same wrapped identity on
// the same chain.
func (c Currency) Equal(o Currency) bool {
	return c.chainID == o.chainID && c.Wrapped() == o.Wrapped()
}

func (c Currency) String() string {
	if c.symbol != "" {
		return c.symbol
	}
	if c.native {
		return fmt.Sprintf("native(%d)", c.chainID)
	}
	return c.address.Hex()
}
