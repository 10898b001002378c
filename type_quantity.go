package costbasis

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DivisionScale is the number of fractional digits kept by every division.
// Results are rounded half-up (away from zero on a trailing 5).
const DivisionScale int32 = 18

// newDecimal is a convenient factory for decimal.Decimal
func newDecimal[T int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T) decimal.Decimal {
	switch v := any(value).(type) {
	case decimal.Decimal:
		return v
	case int:
		return decimal.NewFromInt(int64(v))
	case int32:
		return decimal.NewFromInt32(v)
	case int64:
		return decimal.NewFromInt(v)
	case uint:
		return decimal.NewFromUint64(uint64(v))
	case uint32:
		return decimal.NewFromUint64(uint64(v))
	case uint64:
		return decimal.NewFromUint64(v)
	default:
		panic("unsupported type")
	}
}

// parseDecimal parses a decimal string. Floats are never involved.
func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty decimal")
	}
	return decimal.NewFromString(s)
}

// divRound divides a by b rounding at DivisionScale.
func divRound(a, b decimal.Decimal) (decimal.Decimal, error) {
	if b.IsZero() {
		return decimal.Zero, ErrDivisionByZero
	}
	return a.DivRound(b, DivisionScale), nil
}

// Quantity is an amount of an asset (units, shares, coins).
type Quantity struct {
	value decimal.Decimal
}

// Q creates a Quantity from an integer or a decimal.
func Q[T int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T) Quantity {
	return Quantity{value: newDecimal(value)}
}

// ParseQuantity parses a decimal string like "0.125".
func ParseQuantity(s string) (Quantity, error) {
	d, err := parseDecimal(s)
	if err != nil {
		return Quantity{}, fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	return Quantity{value: d}, nil
}

// MustQuantity is like ParseQuantity but panics on error.
func MustQuantity(s string) Quantity {
	q, err := ParseQuantity(s)
	if err != nil {
		panic(err.Error())
	}
	return q
}

func (q Quantity) Equal(p Quantity) bool { return q.value.Equal(p.value) }
func (q Quantity) LessThan(p Quantity) bool { return q.value.LessThan(p.value) }
func (q Quantity) Add(p Quantity) Quantity { return Quantity{value: q.value.Add(p.value)} }
func (q Quantity) Sub(p Quantity) Quantity { return Quantity{value: q.value.Sub(p.value)} }
func (q Quantity) IsPositive() bool { return q.value.IsPositive() }
func (q Quantity) IsZero() bool { return q.value.IsZero() }
func (q Quantity) String() string { return q.value.String() }
func (q Quantity) Min(p Quantity) Quantity { return Quantity{value: decimal.Min(q.value, p.value)} }

// Div divides q by p, rounding at DivisionScale.
func (q Quantity) Div(p Quantity) (Quantity, error) {
	d, err := divRound(q.value, p.value)
	return Quantity{value: d}, err
}

// MarshalJSON writes the quantity as a JSON string to preserve precision.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + q.value.String() + `"`), nil
}

// UnmarshalJSON accepts both JSON strings and numbers.
func (q *Quantity) UnmarshalJSON(b []byte) error {
	return q.value.UnmarshalJSON(b)
}
