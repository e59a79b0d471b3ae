// Package quoter reconciles three independently-polled remote queries
// (quote, approval, fiat price) into one coherent best-trade result while
// inputs change, windows background and context switches mid-flight.
package quoter

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"portal-swap/pkg/client"
	"portal-swap/pkg/currency"
	"portal-swap/pkg/price"
	"portal-swap/pkg/query"
	"portal-swap/pkg/trade"
)

// Default cadences and retention windows.
const (
	DefaultDebounce          = 200 * time.Millisecond
	DefaultQuotePoll         = 15 * time.Second
	DefaultApprovalPoll      = 15 * time.Second
	DefaultQuoteRetention    = 10 * time.Second
	DefaultApprovalRetention = 60 * time.Second
)

// BestTrade is the reconciled `{state, trade}` result. Trade is non-nil
// only in the VALID and SYNCING states.
type BestTrade struct {
	State trade.State
	Trade trade.Trade
}

// Quoter owns the quote and approval subscriptions and recomputes the
// best-trade state machine on every evaluation.
type Quoter struct {
	client  *client.Client
	log     zerolog.Logger
	metrics MetricSink

	debounce *debouncer
	quote    *query.Handle[client.PortalArgs, client.PortalResponse]
	approval *query.Handle[client.ApprovalArgs, client.ApprovalResponse]
	prices   *price.Source

	validate bool
	partner  common.Address

	mu      sync.Mutex
	account *common.Address
	visible bool
}

// Option configures a Quoter.
type Option func(*options)

type options struct {
	log               zerolog.Logger
	metrics           MetricSink
	validate          bool
	partner           common.Address
	debounce          time.Duration
	quotePoll         time.Duration
	approvalPoll      time.Duration
	quoteRetention    time.Duration
	approvalRetention time.Duration
}

// WithLogger attaches a logger; the default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithMetrics attaches a metrics sink for fetch timing events.
func WithMetrics(m MetricSink) Option {
	return func(o *options) { o.metrics = m }
}

// WithValidation makes quote requests ask the service to simulate the swap.
// While validation is on, a quote is withheld until approval is satisfied.
func WithValidation(v bool) Option {
	return func(o *options) { o.validate = v }
}

// WithPartner sets the partner id sent with quote requests.
func WithPartner(p common.Address) Option {
	return func(o *options) { o.partner = p }
}

// WithIntervals overrides the debounce window and both poll cadences.
// Mainly for tests; zero values keep the defaults.
func WithIntervals(debounce, quotePoll, approvalPoll time.Duration) Option {
	return func(o *options) {
		if debounce > 0 {
			o.debounce = debounce
		}
		if quotePoll > 0 {
			o.quotePoll = quotePoll
		}
		if approvalPoll > 0 {
			o.approvalPoll = approvalPoll
		}
	}
}

// New creates a quoter on top of an aggregation-service client.
func New(c *client.Client, opts ...Option) *Quoter {
	o := &options{
		log:               zerolog.Nop(),
		metrics:           NopSink(),
		debounce:          DefaultDebounce,
		quotePoll:         DefaultQuotePoll,
		approvalPoll:      DefaultApprovalPoll,
		quoteRetention:    DefaultQuoteRetention,
		approvalRetention: DefaultApprovalRetention,
	}
	for _, opt := range opts {
		opt(o)
	}

	q := &Quoter{
		client:   c,
		log:      o.log,
		metrics:  o.metrics,
		validate: o.validate,
		partner:  o.partner,
		debounce: newDebouncer(o.debounce),
		visible:  true,
	}
	q.quote = query.NewHandle(
		func(ctx context.Context, args client.PortalArgs) (*client.PortalResponse, error) {
			return c.GetPortal(ctx, args)
		},
		query.Options{
			PollInterval:  o.quotePoll,
			KeepUnusedFor: o.quoteRetention,
			OnFetch: func(d time.Duration, err error) {
				q.metrics.PutMetric("quote_fetch_latency", float64(d.Milliseconds()), UnitMilliseconds)
				if err != nil {
					q.metrics.PutMetric("quote_fetch_errors", 1, UnitCount)
				}
			},
		},
	)
	q.approval = query.NewHandle(
		func(ctx context.Context, args client.ApprovalArgs) (*client.ApprovalResponse, error) {
			return c.GetApproval(ctx, args)
		},
		query.Options{
			PollInterval:  o.approvalPoll,
			KeepUnusedFor: o.approvalRetention,
			OnFetch: func(d time.Duration, err error) {
				q.metrics.PutMetric("approval_fetch_latency", float64(d.Milliseconds()), UnitMilliseconds)
			},
		},
	)
	q.prices = price.NewSource(c, price.WithLogger(o.log))
	return q
}

// Close tears down all polling.
func (q *Quoter) Close() {
	q.debounce.stop()
	q.quote.Close()
	q.approval.Close()
	q.prices.Close()
}

// Prices exposes the fiat-reference price cache.
func (q *Quoter) Prices() *price.Source { return q.prices }

// SetAccount sets the taker address; nil means no connected account and the
// zero address is sent instead.
func (q *Quoter) SetAccount(addr *common.Address) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.account = addr
}

// Account returns the configured taker address, possibly nil.
func (q *Quoter) Account() *common.Address {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.account
}

// SetWindowVisible gates all network activity on consumer visibility.
// Regaining visibility refetches every live subscription, mirroring
// refetch-on-focus.
func (q *Quoter) SetWindowVisible(visible bool) {
	q.mu.Lock()
	was := q.visible
	q.visible = visible
	q.mu.Unlock()

	if visible && !was {
		q.quote.Refetch()
		q.approval.Refetch()
		q.prices.Refetch()
	}
}

func (q *Quoter) windowVisible() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.visible
}

// portalArguments forms the quote request, or nil when it must be
// withheld: missing inputs, equal currencies, hidden window, or an
// unsatisfied approval while validation is required.
func (q *Quoter) portalArguments(tokenIn, tokenOut *currency.Currency, amount *currency.Amount, slippage currency.Percent, isApproved bool) *client.PortalArgs {
	if tokenIn == nil || tokenOut == nil || amount == nil {
		return nil
	}
	if tokenIn.Equal(*tokenOut) {
		return nil
	}
	if !q.windowVisible() {
		return nil
	}
	if q.validate && !isApproved {
		return nil
	}

	taker := common.Address{}
	if acct := q.Account(); acct != nil {
		taker = *acct
	}
	return &client.PortalArgs{
		TokenInAddress:     tokenIn.Address(),
		TokenInChainID:     tokenIn.ChainID(),
		TokenInDecimals:    tokenIn.Decimals(),
		TokenInSymbol:      tokenIn.Symbol(),
		TokenOutAddress:    tokenOut.Address(),
		TokenOutChainID:    tokenOut.ChainID(),
		TokenOutDecimals:   tokenOut.Decimals(),
		TokenOutSymbol:     tokenOut.Symbol(),
		Amount:             amount.RawString(),
		TakerAddress:       taker,
		SlippagePercentage: slippage.WireFraction(),
		Validate:           q.validate && isApproved,
		Partner:            q.partner,
	}
}

// GetTrade debounces the input pair and reconciles the quote and approval
// queries into the best-trade result. It is cheap to call on every
// re-evaluation; network requests are only issued when the debounced
// request shape actually changes or a poll tick fires.
func (q *Quoter) GetTrade(tradeType trade.Type, amount *currency.Amount, otherCurrency *currency.Currency, slippage currency.Percent) BestTrade {
	in := q.debounce.update(tradeInput{amount: amount, other: otherCurrency})

	var currencyIn, currencyOut *currency.Currency
	if tradeType == trade.ExactInput {
		if in.amount != nil {
			c := in.amount.Currency()
			currencyIn = &c
		}
		currencyOut = in.other
	} else {
		currencyIn = in.other
		if in.amount != nil {
			c := in.amount.Currency()
			currencyOut = &c
		}
	}

	// Exact-output quoting is not offered by the aggregation service.
	if tradeType != trade.ExactInput {
		return BestTrade{State: trade.StateInvalid}
	}

	approval := q.GetApprovalState(currencyIn, currencyOut, in.amount)

	args := q.portalArguments(currencyIn, currencyOut, in.amount, slippage, approval.IsApproved)
	q.quote.SetRequest(args)
	r := q.quote.Snapshot()

	if currencyIn == nil || currencyOut == nil || currencyIn.Equal(*currencyOut) {
		return BestTrade{State: trade.StateInvalid}
	}

	if (r.InFlight && r.Data == nil) || approval.State == trade.StateLoading {
		q.log.Debug().Msg("route loading")
		return BestTrade{State: trade.StateLoading}
	}

	quoteResult := r.Data
	var otherAmount *currency.Amount
	if quoteResult != nil && tradeType == trade.ExactInput {
		if amt, err := currency.AmountFromRaw(*currencyOut, quoteResult.Context.MinBuyAmount); err == nil {
			otherAmount = &amt
		}
	}

	if r.Error || otherAmount == nil || args == nil {
		q.log.Warn().
			Str("tokenIn", currencyIn.String()).
			Str("tokenOut", currencyOut.String()).
			Msg("no route found")
		return BestTrade{State: trade.StateNoRouteFound}
	}

	tr, err := trade.FromPortalResponse(quoteResult, *currencyIn, *currencyOut, tradeType, q.gasEstimateUSD(currencyIn.ChainID()))
	if err != nil {
		q.log.Error().Err(err).Msg("trade processing failed")
		return BestTrade{State: trade.StateInvalid}
	}

	if r.Syncing() {
		return BestTrade{State: trade.StateSyncing, Trade: tr}
	}
	return BestTrade{State: trade.StateValid, Trade: tr}
}

// gasEstimateUSD returns the USD gas-cost placeholder: a zero amount of
// the chain's reference currency, or nil on unsupported chains.
func (q *Quoter) gasEstimateUSD(chainID uint64) *currency.Amount {
	stable, ok := price.ReferenceCurrency(chainID)
	if !ok {
		return nil
	}
	amt := currency.NewAmount(stable, new(big.Int))
	return &amt
}
