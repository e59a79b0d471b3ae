package currency

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Amount pairs a currency with an integer raw quantity in the currency's
// smallest unit. Immutable: constructors copy the raw value and accessors
// return copies.
type Amount struct {
	currency Currency
	raw      *big.Int
}

// NewAmount builds an amount from an integer raw quantity.
func NewAmount(c Currency, raw *big.Int) Amount {
	return Amount{currency: c, raw: new(big.Int).Set(raw)}
}

// AmountFromRaw parses a base-10 integer string into an amount, the format
// remote endpoints use for quantities.
func AmountFromRaw(c Currency, raw string) (Amount, error) {
	i, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return Amount{}, fmt.Errorf("invalid raw amount %q", raw)
	}
	if i.Sign() < 0 {
		return Amount{}, fmt.Errorf("negative raw amount %q", raw)
	}
	return Amount{currency: c, raw: i}, nil
}

// ParseAmount converts a human-readable decimal quantity ("1.5") into an
// amount, scaling by the currency's decimals. Fails if the value carries
// more precision than the currency can represent.
func ParseAmount(value string, c Currency) (Amount, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	scaled := d.Shift(int32(c.Decimals()))
	if !scaled.IsInteger() {
		return Amount{}, fmt.Errorf("amount %q exceeds %d decimals of %s", value, c.Decimals(), c)
	}
	if scaled.Sign() < 0 {
		return Amount{}, fmt.Errorf("negative amount %q", value)
	}
	return Amount{currency: c, raw: scaled.BigInt()}, nil
}

// Currency returns the amount's currency.
func (a Amount) Currency() Currency { return a.currency }

// Raw returns a copy of the integer raw quantity.
func (a Amount) Raw() *big.Int {
	if a.raw == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.raw)
}

// RawString returns the raw quantity as a base-10 string, the wire format.
func (a Amount) RawString() string {
	if a.raw == nil {
		return "0"
	}
	return a.raw.String()
}

// Equal reports structural equality on (currency, raw quantity).
func (a Amount) Equal(b Amount) bool {
	if !a.currency.Equal(b.currency) {
		return false
	}
	return a.Raw().Cmp(b.Raw()) == 0
}

// LessOrEqual reports a <= b. Panics are avoided: mismatched currencies
// report false.
func (a Amount) LessOrEqual(b Amount) bool {
	if !a.currency.Equal(b.currency) {
		return false
	}
	return a.Raw().Cmp(b.Raw()) <= 0
}

// Decimal returns the quantity in whole units of the currency.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.NewFromBigInt(a.Raw(), 0).Shift(-int32(a.currency.Decimals()))
}

func (a Amount) String() string {
	return fmt.Sprintf("%s %s", a.Decimal().String(), a.currency)
}
