package trade

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Call is a single on-chain call derived from a trade.
type Call struct {
	To       common.Address
	Data     []byte
	Value    *big.Int
	GasLimit *big.Int // nil when not estimated
}

// CallArgumentsParams collects everything execution needs. Recipient,
// Account and Deadline are pointers because "not yet known" must be
// distinguishable from a zero value.
type CallArgumentsParams struct {
	Trade     *PortalsTrade
	Recipient *common.Address
	Account   *common.Address
	ChainID   uint64
	Deadline  *big.Int
}

// CallArguments derives the on-chain calls to execute a trade. It never
// fails: when any dependency is missing it returns an empty list. When all
// are present it returns exactly one call built from the trade's
// transaction payload.
func CallArguments(p CallArgumentsParams) []Call {
	if p.Trade == nil || p.Recipient == nil || p.Account == nil || p.ChainID == 0 || p.Deadline == nil {
		return []Call{}
	}
	tx := p.Trade.Tx()
	if tx == nil {
		return []Call{}
	}
	call := Call{
		To:    tx.To,
		Data:  append([]byte(nil), tx.Data...),
		Value: new(big.Int).Set(tx.Value),
	}
	if tx.GasLimit != nil {
		call.GasLimit = new(big.Int).Set(tx.GasLimit)
	}
	return []Call{call}
}
