// Package price maintains fiat-reference prices for display: each
// supported chain has a designated stablecoin whose unit stands in for one
// US dollar, and every other currency is priced against it through the
// aggregation service's token endpoint.
package price

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"portal-swap/pkg/client"
	"portal-swap/pkg/currency"
	"portal-swap/pkg/query"
)

// Default cadence and retention for price subscriptions.
const (
	DefaultPoll      = 30 * time.Second
	DefaultRetention = 60 * time.Second
)

var referenceCurrencies = map[uint64]currency.Currency{
	currency.ChainEthereum: currency.NewToken(currency.ChainEthereum,
		common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"), 6, "USDC"),
	currency.ChainPolygon: currency.NewToken(currency.ChainPolygon,
		common.HexToAddress("0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174"), 6, "USDC"),
	currency.ChainArbitrum: currency.NewToken(currency.ChainArbitrum,
		common.HexToAddress("0xFF970A61A04b1cA14834A43f5dE4533eBDDB5CC8"), 6, "USDC"),
	currency.ChainOptimism: currency.NewToken(currency.ChainOptimism,
		common.HexToAddress("0xDA10009cBd5D07dd0CeCc66161FC93D7c9000da1"), 18, "DAI"),
}

// ReferenceCurrency returns the chain's fiat-reference stablecoin.
func ReferenceCurrency(chainID uint64) (currency.Currency, bool) {
	c, ok := referenceCurrencies[chainID]
	return c, ok
}

// Source is the fiat-price cache. One polled subscription is kept per
// distinct currency; resolved prices are value-compared against the last
// answer so an unchanged rate keeps the same Price pointer.
type Source struct {
	client *client.Client
	log    zerolog.Logger
	poll   time.Duration
	keep   time.Duration

	mu      sync.Mutex
	handles map[string]*query.Handle[client.PriceArgs, client.PriceResponse]
	last    map[string]*currency.Price
	closed  bool
}

// SourceOption configures a Source.
type SourceOption func(*Source)

// WithLogger attaches a logger.
func WithLogger(log zerolog.Logger) SourceOption {
	return func(s *Source) { s.log = log }
}

// WithCadence overrides the poll interval and retention window, mainly for
// tests. Zero values keep the defaults.
func WithCadence(poll, keep time.Duration) SourceOption {
	return func(s *Source) {
		if poll > 0 {
			s.poll = poll
		}
		if keep > 0 {
			s.keep = keep
		}
	}
}

// NewSource creates an empty price cache.
func NewSource(c *client.Client, opts ...SourceOption) *Source {
	s := &Source{
		client:  c,
		log:     zerolog.Nop(),
		poll:    DefaultPoll,
		keep:    DefaultRetention,
		handles: make(map[string]*query.Handle[client.PriceArgs, client.PriceResponse]),
		last:    make(map[string]*currency.Price),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close tears down every price subscription.
func (s *Source) Close() {
	s.mu.Lock()
	handles := s.handles
	s.handles = make(map[string]*query.Handle[client.PriceArgs, client.PriceResponse])
	s.closed = true
	s.mu.Unlock()

	for _, h := range handles {
		h.Close()
	}
}

// Refetch forces an immediate refetch of every live subscription.
func (s *Source) Refetch() {
	s.mu.Lock()
	handles := make([]*query.Handle[client.PriceArgs, client.PriceResponse], 0, len(s.handles))
	for _, h := range s.handles {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	for _, h := range handles {
		h.Refetch()
	}
}

// PriceOf returns the currency's price in the chain's reference stablecoin,
// or nil while it is unknown. The reference stablecoin itself prices at
// exactly one without any network traffic. Successive calls return the same
// Price pointer until the rate actually changes.
func (s *Source) PriceOf(c *currency.Currency) *currency.Price {
	if c == nil {
		return nil
	}
	stable, ok := ReferenceCurrency(c.ChainID())
	if !ok {
		return nil
	}
	key := priceKey(*c)

	if c.Equal(stable) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if p := s.last[key]; p != nil {
			return p
		}
		unit := currency.UnitPrice(stable)
		s.last[key] = &unit
		return &unit
	}

	h := s.handle(*c)
	if h == nil {
		return nil
	}
	r := h.Snapshot()
	if r.CurrentData == nil || len(r.CurrentData.Tokens) == 0 {
		return nil
	}

	quoteRaw := decimal.NewFromFloat(r.CurrentData.Tokens[0].Price).
		Shift(int32(stable.Decimals())).BigInt()
	baseRaw := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(c.Decimals())), nil)
	p, err := currency.NewPrice(*c, stable, baseRaw, quoteRaw)
	if err != nil {
		s.log.Warn().Err(err).Str("token", c.String()).Msg("unusable fiat price")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if prev := s.last[key]; prev != nil && prev.Equal(p) {
		return prev
	}
	s.last[key] = &p
	return &p
}

// ValueOf converts an amount into the chain's reference stablecoin, or nil
// while the price is unknown.
func (s *Source) ValueOf(a *currency.Amount) *currency.Amount {
	if a == nil {
		return nil
	}
	c := a.Currency()
	p := s.PriceOf(&c)
	if p == nil {
		return nil
	}
	v, err := p.Quote(*a)
	if err != nil {
		return nil
	}
	return &v
}

// handle returns the currency's subscription, starting one on first use.
func (s *Source) handle(c currency.Currency) *query.Handle[client.PriceArgs, client.PriceResponse] {
	key := priceKey(c)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	if h, ok := s.handles[key]; ok {
		s.mu.Unlock()
		return h
	}

	cl := s.client
	h := query.NewHandle(
		func(ctx context.Context, args client.PriceArgs) (*client.PriceResponse, error) {
			return cl.GetPrice(ctx, args)
		},
		query.Options{PollInterval: s.poll, KeepUnusedFor: s.keep},
	)
	h.SetRequest(&client.PriceArgs{ChainID: c.ChainID(), TokenAddress: c.Wrapped()})
	s.handles[key] = h
	s.mu.Unlock()
	return h
}

func priceKey(c currency.Currency) string {
	args := client.PriceArgs{ChainID: c.ChainID(), TokenAddress: c.Wrapped()}
	return args.Key()
}
