package currency

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Percent is a fraction such as a slippage tolerance. It is stored as the
// plain fraction (0.005 for 0.5%).
type Percent struct {
	fraction decimal.Decimal
}

// PercentFromFraction builds a percent from a plain fraction, e.g. 0.005.
func PercentFromFraction(fraction decimal.Decimal) Percent {
	return Percent{fraction: fraction}
}

// PercentFromBips builds a percent from basis points, e.g. 50 for 0.5%.
func PercentFromBips(bips int64) Percent {
	return Percent{fraction: decimal.New(bips, -4)}
}

// Fraction returns the plain fraction value.
func (p Percent) Fraction() decimal.Decimal { return p.fraction }

// WireFraction serializes the fraction with the fixed 3-digit precision the
// aggregation service expects, e.g. "0.020".
func (p Percent) WireFraction() string {
	return p.fraction.StringFixed(3)
}

// Equal reports numeric equality.
func (p Percent) Equal(o Percent) bool {
	return p.fraction.Equal(o.fraction)
}

func (p Percent) String() string {
	return fmt.Sprintf("%s%%", p.fraction.Shift(2).String())
}
