// Package trade holds the immutable value objects a completed quote is
// carried in, and the pure derivations over them: response-to-trade
// transformation, on-chain call arguments and swap-callback readiness.
package trade

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"portal-swap/pkg/client"
	"portal-swap/pkg/currency"
)

// Trade is the capability set shared by all trade variants. Consumers use
// this interface (or switch on the concrete variant); identity downcasts
// are never required to read amounts or bounds.
type Trade interface {
	Type() Type
	InputAmount() currency.Amount
	OutputAmount() currency.Amount
	ExecutionPrice() currency.Price
	// MinimumAmountOut is the slippage-adjusted lower bound of the output.
	MinimumAmountOut() currency.Amount
	// MaximumAmountIn is the upper bound of the input.
	MaximumAmountIn() currency.Amount
	// PriceImpact returns nil: routing internals are delegated to the
	// aggregation service and no impact is computed client-side.
	PriceImpact() *currency.Percent
}

// SwapTx is the raw transaction payload needed to execute a quote.
type SwapTx struct {
	To       common.Address
	From     common.Address
	Data     []byte
	Value    *big.Int
	GasLimit *big.Int // nil when the service did not estimate one
}

// PortalsTrade is a trade quoted by the Portals aggregation service. The
// service has already applied the requested slippage fraction, so the
// bounds are fixed to the quote's own amounts rather than recomputed.
type PortalsTrade struct {
	tradeType         Type
	inputAmount       currency.Amount
	outputAmount      currency.Amount
	minOutputAmount   currency.Amount
	executionPrice    currency.Price
	gasUseEstimateUSD *currency.Amount
	tx                *SwapTx
}

// PortalsTradeParams collects the inputs of NewPortalsTrade.
type PortalsTradeParams struct {
	TradeType         Type
	InputAmount       currency.Amount
	OutputAmount      currency.Amount
	MinOutputAmount   currency.Amount
	GasUseEstimateUSD *currency.Amount
	Tx                *SwapTx
}

// NewPortalsTrade validates and builds a trade snapshot.
func NewPortalsTrade(p PortalsTradeParams) (*PortalsTrade, error) {
	if p.InputAmount.Currency().Equal(p.OutputAmount.Currency()) {
		return nil, errors.New("input and output currency must differ")
	}
	if p.InputAmount.Raw().Sign() <= 0 {
		return nil, errors.New("input amount must be positive")
	}
	if !p.MinOutputAmount.LessOrEqual(p.OutputAmount) {
		return nil, errors.New("minimum output exceeds output amount")
	}
	price, err := currency.NewPrice(
		p.InputAmount.Currency(), p.OutputAmount.Currency(),
		p.InputAmount.Raw(), p.OutputAmount.Raw(),
	)
	if err != nil {
		return nil, fmt.Errorf("execution price: %w", err)
	}
	return &PortalsTrade{
		tradeType:         p.TradeType,
		inputAmount:       p.InputAmount,
		outputAmount:      p.OutputAmount,
		minOutputAmount:   p.MinOutputAmount,
		executionPrice:    price,
		gasUseEstimateUSD: p.GasUseEstimateUSD,
		tx:                p.Tx,
	}, nil
}

// FromPortalResponse turns a quote response into a trade. A nil or
// malformed response is an error; callers catch it and report an invalid
// state rather than propagating.
func FromPortalResponse(resp *client.PortalResponse, in, out currency.Currency, tradeType Type, gasUSD *currency.Amount) (*PortalsTrade, error) {
	if resp == nil {
		return nil, errors.New("portal response not valid")
	}
	if resp.Tx == nil {
		return nil, errors.New("portal response missing transaction payload")
	}

	inputAmount, err := currency.AmountFromRaw(in, resp.Context.SellAmount)
	if err != nil {
		return nil, fmt.Errorf("sell amount: %w", err)
	}
	minOut, err := currency.AmountFromRaw(out, resp.Context.MinBuyAmount)
	if err != nil {
		return nil, fmt.Errorf("min buy amount: %w", err)
	}
	outputAmount := minOut
	if resp.Context.BuyAmount != "" {
		outputAmount, err = currency.AmountFromRaw(out, resp.Context.BuyAmount)
		if err != nil {
			return nil, fmt.Errorf("buy amount: %w", err)
		}
	}

	data, err := hexutil.Decode(resp.Tx.Data)
	if err != nil {
		return nil, fmt.Errorf("call data: %w", err)
	}
	tx := &SwapTx{
		To:    common.HexToAddress(resp.Tx.To),
		From:  common.HexToAddress(resp.Tx.From),
		Data:  data,
		Value: resp.Tx.Value.Int(),
	}
	if resp.Tx.GasLimit != nil {
		tx.GasLimit = resp.Tx.GasLimit.Int()
	}

	return NewPortalsTrade(PortalsTradeParams{
		TradeType:         tradeType,
		InputAmount:       inputAmount,
		OutputAmount:      outputAmount,
		MinOutputAmount:   minOut,
		GasUseEstimateUSD: gasUSD,
		Tx:                tx,
	})
}

// Type returns the trade direction.
func (t *PortalsTrade) Type() Type { return t.tradeType }

// InputAmount returns the amount sold.
func (t *PortalsTrade) InputAmount() currency.Amount { return t.inputAmount }

// OutputAmount returns the amount bought.
func (t *PortalsTrade) OutputAmount() currency.Amount { return t.outputAmount }

// ExecutionPrice returns output over input at the quoted amounts.
func (t *PortalsTrade) ExecutionPrice() currency.Price { return t.executionPrice }

// MinimumAmountOut returns the quote's own minimum buy amount.
func (t *PortalsTrade) MinimumAmountOut() currency.Amount { return t.minOutputAmount }

// MaximumAmountIn returns the quoted input amount.
func (t *PortalsTrade) MaximumAmountIn() currency.Amount { return t.inputAmount }

// PriceImpact returns nil, the explicit "not computed" signal.
func (t *PortalsTrade) PriceImpact() *currency.Percent { return nil }

// GasUseEstimateUSD returns the USD gas-cost estimate, nil when unknown.
func (t *PortalsTrade) GasUseEstimateUSD() *currency.Amount { return t.gasUseEstimateUSD }

// Tx returns the raw transaction payload.
func (t *PortalsTrade) Tx() *SwapTx { return t.tx }
