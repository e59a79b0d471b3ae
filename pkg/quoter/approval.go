package quoter

import (
	"github.com/ethereum/go-ethereum/common"

	"portal-swap/pkg/client"
	"portal-swap/pkg/currency"
	"portal-swap/pkg/trade"
)

// ApprovalState is the reconciled spender-approval signal for a trade.
type ApprovalState struct {
	// IsApproved is optimistically true while the requirement is
	// unresolved so approval latency never blocks the quote path.
	IsApproved bool
	State      trade.State
	// Spender is the contract that needs authorization, known only once
	// the requirement has resolved.
	Spender *common.Address
}

// approvalArguments forms the approval request, or nil when it must be
// withheld: missing inputs, equal currencies, unknown taker, or a native
// input (native assets never require spender approval).
func approvalArguments(tokenIn, tokenOut *currency.Currency, amount *currency.Amount, taker *common.Address) *client.ApprovalArgs {
	if tokenIn == nil || tokenOut == nil || amount == nil || taker == nil {
		return nil
	}
	if tokenIn.Equal(*tokenOut) || tokenIn.IsNative() {
		return nil
	}
	return &client.ApprovalArgs{
		TokenInAddress:  tokenIn.Address(),
		TokenInChainID:  tokenIn.ChainID(),
		TokenOutAddress: tokenOut.Address(),
		TokenOutChainID: tokenOut.ChainID(),
		Amount:          amount.RawString(),
		TakerAddress:    *taker,
	}
}

// GetApprovalState reconciles the polled approval response into one
// approval signal. Inputs may be nil while upstream values are unknown.
func (q *Quoter) GetApprovalState(tokenIn, tokenOut *currency.Currency, amount *currency.Amount) ApprovalState {
	q.approval.SetRequest(approvalArguments(tokenIn, tokenOut, amount, q.Account()))
	r := q.approval.Snapshot()

	switch {
	case (r.InFlight && r.Data == nil) || (!r.Skipped && !r.Error && r.Data != nil && r.CurrentData == nil):
		// unresolved or stale: assume approved so quoting proceeds
		return ApprovalState{IsApproved: true, State: trade.StateLoading}
	case tokenIn != nil && tokenIn.IsNative():
		return ApprovalState{IsApproved: true, State: trade.StateValid}
	case r.Error || r.CurrentData == nil:
		return ApprovalState{IsApproved: false, State: trade.StateInvalid}
	default:
		resp := r.CurrentData
		spender := common.HexToAddress(resp.Context.Target)
		return ApprovalState{
			IsApproved: !resp.Context.ShouldApprove,
			State:      trade.StateValid,
			Spender:    &spender,
		}
	}
}
