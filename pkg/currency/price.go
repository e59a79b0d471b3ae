package currency

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Price is an exact rational exchange rate from a base currency to a quote
// currency, held as the raw-quantity ratio quoteRaw/baseRaw.
type Price struct {
	base     Currency
	quote    Currency
	baseRaw  *big.Int
	quoteRaw *big.Int
}

// NewPrice builds a price from raw base and quote quantities.
func NewPrice(base, quote Currency, baseRaw, quoteRaw *big.Int) (Price, error) {
	if baseRaw.Sign() <= 0 {
		return Price{}, fmt.Errorf("price base quantity must be positive")
	}
	if quoteRaw.Sign() < 0 {
		return Price{}, fmt.Errorf("price quote quantity must not be negative")
	}
	return Price{
		base:     base,
		quote:    quote,
		baseRaw:  new(big.Int).Set(baseRaw),
		quoteRaw: new(big.Int).Set(quoteRaw),
	}, nil
}

// UnitPrice returns the 1:1 price of a currency against itself.
func UnitPrice(c Currency) Price {
	return Price{base: c, quote: c, baseRaw: big.NewInt(1), quoteRaw: big.NewInt(1)}
}

// Base returns the currency the price converts from.
func (p Price) Base() Currency { return p.base }

// QuoteCurrency returns the currency the price converts to.
func (p Price) QuoteCurrency() Currency { return p.quote }

// Equal reports value equality: same currency pair and numerically equal
// rate (cross-multiplied, so 2/4 equals 1/2).
func (p Price) Equal(o Price) bool {
	if !p.base.Equal(o.base) || !p.quote.Equal(o.quote) {
		return false
	}
	l := new(big.Int).Mul(p.quoteRaw, o.baseRaw)
	r := new(big.Int).Mul(o.quoteRaw, p.baseRaw)
	return l.Cmp(r) == 0
}

// Quote converts an amount of the base currency into the quote currency,
// rounding down to the smallest unit.
func (p Price) Quote(a Amount) (Amount, error) {
	if !a.Currency().Equal(p.base) {
		return Amount{}, fmt.Errorf("cannot quote %s with a %s price", a.Currency(), p.base)
	}
	raw := new(big.Int).Mul(a.Raw(), p.quoteRaw)
	raw.Quo(raw, p.baseRaw)
	return NewAmount(p.quote, raw), nil
}

// Rate returns the human-readable rate in whole units (quote per base),
// adjusted for both currencies' decimals.
func (p Price) Rate() decimal.Decimal {
	q := decimal.NewFromBigInt(new(big.Int).Set(p.quoteRaw), 0).Shift(-int32(p.quote.Decimals()))
	b := decimal.NewFromBigInt(new(big.Int).Set(p.baseRaw), 0).Shift(-int32(p.base.Decimals()))
	return q.DivRound(b, 18)
}

func (p Price) String() string {
	return fmt.Sprintf("%s %s/%s", p.Rate(), p.quote, p.base)
}
