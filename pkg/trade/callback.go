package trade

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// CallbackState is the readiness of a swap execution attempt.
type CallbackState int

const (
	CallbackInvalid CallbackState = iota
	CallbackLoading
	CallbackValid
)

// ErrMissingDependencies is reported when trade, account, chain or the
// submit function are not all known yet.
var ErrMissingDependencies = errors.New("missing dependencies")

// ErrInvalidRecipient is reported when a user-supplied recipient failed to
// resolve to an address.
var ErrInvalidRecipient = errors.New("invalid recipient")

// Submit hands the derived calls to the wallet collaborator. Wallet
// connectivity, signing and receipt tracking live outside this core.
type Submit func(ctx context.Context, calls []Call) (common.Hash, error)

// Recipient describes where the swap output goes. A nil Input means "send
// to self". Resolved carries the name-resolver's current answer for Input;
// Resolving marks a resolution that is still pending, a transient loading
// condition rather than an error.
type Recipient struct {
	Input     *string
	Resolved  *common.Address
	Resolving bool
}

// CallbackParams collects the inputs of ResolveCallback.
type CallbackParams struct {
	Trade     *PortalsTrade
	Account   *common.Address
	ChainID   uint64
	Recipient Recipient
	Deadline  *big.Int
	Submit    Submit
}

// CallbackResult is the reconciled execution readiness. Execute is set only
// in the valid state.
type CallbackResult struct {
	State   CallbackState
	Err     error
	Execute func(ctx context.Context) (common.Hash, error)
}

// ResolveCallback reconciles execution dependencies into one callback
// state, distinguishing missing dependencies from an invalid recipient from
// a recipient still being resolved.
func ResolveCallback(p CallbackParams) CallbackResult {
	if p.Trade == nil || p.Account == nil || p.ChainID == 0 || p.Submit == nil {
		return CallbackResult{State: CallbackInvalid, Err: ErrMissingDependencies}
	}

	recipient := p.Recipient.Resolved
	if p.Recipient.Input == nil {
		recipient = p.Account
	}
	if recipient == nil {
		if p.Recipient.Input != nil && !p.Recipient.Resolving {
			return CallbackResult{State: CallbackInvalid, Err: ErrInvalidRecipient}
		}
		return CallbackResult{State: CallbackLoading}
	}

	params := CallArgumentsParams{
		Trade:     p.Trade,
		Recipient: recipient,
		Account:   p.Account,
		ChainID:   p.ChainID,
		Deadline:  p.Deadline,
	}
	submit := p.Submit
	return CallbackResult{
		State: CallbackValid,
		Execute: func(ctx context.Context) (common.Hash, error) {
			calls := CallArguments(params)
			if len(calls) == 0 {
				return common.Hash{}, ErrMissingDependencies
			}
			return submit(ctx, calls)
		},
	}
}
