package pricing

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value stored in minor units (cents).
type Money int64

// Percent is a percentage expressed in basis points (1% == 100).
type Percent int64

// ErrInvalidAmount is returned when a decimal amount cannot be represented as Money.
var ErrInvalidAmount = errors.New("pricing: invalid amount")

const minorUnits = 2

var hundred = decimal.NewFromInt(100)

// MoneyFromDecimal converts a decimal currency amount into minor units,
// rounding half away from zero to the nearest cent.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money(d.Round(minorUnits).Shift(minorUnits).IntPart())
}

// ParseMoney parses a decimal string such as "12.50".
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return MoneyFromDecimal(d), nil
}

// Units builds Money from whole currency units.
func Units(n int64) Money { return Money(n * 100) }

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -minorUnits)
}

// String renders the amount with exactly two decimals.
func (m Money) String() string {
	return m.Decimal().StringFixed(minorUnits)
}

// MarshalJSON encodes the amount as a bare JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(data []byte) error {
	raw := bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		*m = 0
		return nil
	}
	v, err := ParseMoney(string(raw))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// PercentFromDecimal converts a percentage such as 12.5 into basis points.
// Rates finer than 0.01% are rounded half away from zero.
func PercentFromDecimal(d decimal.Decimal) Percent {
	return Percent(d.Mul(hundred).Round(0).IntPart())
}

// Decimal returns the percentage value (e.g. 12.5).
func (p Percent) Decimal() decimal.Decimal {
	return decimal.New(int64(p), -2)
}

// String renders the percentage without trailing zeros.
func (p Percent) String() string {
	return p.Decimal().String()
}

// MarshalJSON encodes the percentage as a JSON number.
func (p Percent) MarshalJSON() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (p *Percent) UnmarshalJSON(data []byte) error {
	raw := bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		*p = 0
		return nil
	}
	d, err := decimal.NewFromString(string(raw))
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	*p = PercentFromDecimal(d)
	return nil
}

// of returns m * p, rounded half away from zero to the cent.
func (p Percent) of(m Money) Money {
	return mulDivRound(m, int64(p), 10000)
}

func mulDivRound(m Money, num, den int64) Money {
	if den == 0 {
		return 0
	}
	product := int64(m) * num
	q := product / den
	r := product % den
	if r < 0 {
		r = -r
	}
	if 2*r >= abs(den) {
		if (product < 0) != (den < 0) {
			q--
		} else {
			q++
		}
	}
	return Money(q)
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
