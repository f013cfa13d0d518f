// Package money holds the fixed-point types used for prices, quantities and tax
// rates. Values are stored as scaled integers; arithmetic goes through
// shopspring/decimal and every rounding step uses round-half-even.
package money

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// AmountScale is the number of fractional digits of a currency amount.
	AmountScale = 2
	// QuantityScale is the number of fractional digits stored for quantities.
	QuantityScale = 3
	// RateScale is the number of fractional digits of a percentage rate.
	RateScale = 2
)

// MaxAmount and MaxQuantity bound every value so that line products and
// cart sums stay well inside int64.
const (
	MaxAmount   Amount   = 1_000_000_000_000_000
	MaxQuantity Quantity = 1_000_000_000_000_000
)

var (
	maxAmountDecimal   = decimal.NewFromInt(int64(MaxAmount))
	maxQuantityDecimal = decimal.NewFromInt(int64(MaxQuantity))
	maxRateDecimal     = decimal.NewFromInt(math.MaxInt64)
)

var (
	ErrInvalidAmount   = errors.New("money: invalid amount")
	ErrInvalidQuantity = errors.New("money: invalid quantity")
	ErrInvalidRate     = errors.New("money: invalid rate")
)

// Amount is a currency value in minor units (cents).
type Amount int64

// NewAmount rounds d to the currency scale using round-half-even. Results
// beyond MaxAmount are rejected.
func NewAmount(d decimal.Decimal) (Amount, error) {
	shifted := d.RoundBank(AmountScale).Shift(AmountScale)
	if shifted.Abs().GreaterThan(maxAmountDecimal) {
		return 0, fmt.Errorf("%w: %s is out of range", ErrInvalidAmount, d)
	}
	return Amount(shifted.IntPart()), nil
}

// ParseAmount parses a decimal string such as "10.50". More than two
// fractional digits is rejected rather than rounded.
func ParseAmount(s string) (Amount, error) {
	d, err := parseExact(s, AmountScale, maxAmountDecimal)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	return Amount(d), nil
}

// MustParseAmount is like ParseAmount but panics on error. Intended for
// constants and tests.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Decimal returns the amount as a decimal in major units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -AmountScale)
}

func (a Amount) String() string {
	return a.Decimal().StringFixed(AmountScale)
}

// Format renders the amount prefixed with a currency symbol, e.g. "$29.80".
func (a Amount) Format(symbol string) string {
	if a < 0 {
		return "-" + symbol + (-a).String()
	}
	return symbol + a.String()
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	s, ok := unquote(data)
	if !ok {
		return nil
	}
	v, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Quantity is a stock or line quantity in thousandths of a unit. Piece
// products only ever hold whole multiples of 1000.
type Quantity int64

// Units returns a whole-unit quantity.
func Units(n int64) Quantity {
	return Quantity(n * 1000)
}

// NewQuantity converts d to a Quantity. Values with more than three
// fractional digits are rejected.
func NewQuantity(d decimal.Decimal) (Quantity, error) {
	shifted := d.Shift(QuantityScale)
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("%w: %s has more than %d decimal places", ErrInvalidQuantity, d, QuantityScale)
	}
	if shifted.Abs().GreaterThan(maxQuantityDecimal) {
		return 0, fmt.Errorf("%w: %s is out of range", ErrInvalidQuantity, d)
	}
	return Quantity(shifted.IntPart()), nil
}

// ParseQuantity parses a decimal string such as "0.250".
func ParseQuantity(s string) (Quantity, error) {
	d, err := parseExact(s, QuantityScale, maxQuantityDecimal)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidQuantity, err)
	}
	return Quantity(d), nil
}

// MustParseQuantity is like ParseQuantity but panics on error.
func MustParseQuantity(s string) Quantity {
	q, err := ParseQuantity(s)
	if err != nil {
		panic(err)
	}
	return q
}

// Decimal returns the quantity in whole units.
func (q Quantity) Decimal() decimal.Decimal {
	return decimal.New(int64(q), -QuantityScale)
}

// IsWhole reports whether q has no fractional part.
func (q Quantity) IsWhole() bool {
	return q%1000 == 0
}

// Places returns the number of significant fractional digits in q.
func (q Quantity) Places() int32 {
	switch {
	case q%1000 == 0:
		return 0
	case q%100 == 0:
		return 1
	case q%10 == 0:
		return 2
	default:
		return 3
	}
}

func (q Quantity) String() string {
	return q.Decimal().String()
}

func (q Quantity) MarshalJSON() ([]byte, error) {
	return []byte(`"` + q.String() + `"`), nil
}

func (q *Quantity) UnmarshalJSON(data []byte) error {
	s, ok := unquote(data)
	if !ok {
		return nil
	}
	v, err := ParseQuantity(s)
	if err != nil {
		return err
	}
	*q = v
	return nil
}

// Rate is a percentage in hundredths of a percent: 16% is stored as 1600.
type Rate int64

// Percent returns a rate for a whole percentage.
func Percent(n int64) Rate {
	return Rate(n * 100)
}

// ParseRate parses a percentage string such as "16" or "8.25".
func ParseRate(s string) (Rate, error) {
	d, err := parseExact(s, RateScale, maxRateDecimal)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidRate, err)
	}
	return Rate(d), nil
}

// Fraction returns the rate as a multiplier, 16% -> 0.16.
func (r Rate) Fraction() decimal.Decimal {
	return decimal.New(int64(r), -(RateScale + 2))
}

// Percentage returns the rate as a percentage, 16% -> 16.00.
func (r Rate) Percentage() decimal.Decimal {
	return decimal.New(int64(r), -RateScale)
}

func (r Rate) String() string {
	return r.Percentage().StringFixed(RateScale)
}

func (r Rate) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.String() + `"`), nil
}

func (r *Rate) UnmarshalJSON(data []byte) error {
	s, ok := unquote(data)
	if !ok {
		return nil
	}
	v, err := ParseRate(s)
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// parseExact parses s and returns it scaled by 10^scale, failing when the
// value does not fit the scale exactly or its scaled magnitude exceeds limit.
func parseExact(s string, scale int32, limit decimal.Decimal) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty value")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	shifted := d.Shift(scale)
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("%q has more than %d decimal places", s, scale)
	}
	if shifted.Abs().GreaterThan(limit) {
		return 0, fmt.Errorf("%q is out of range", s)
	}
	return shifted.IntPart(), nil
}

// unquote accepts both JSON strings and bare numbers. It reports false for
// null.
func unquote(data []byte) (string, bool) {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return "", false
	}
	return strings.Trim(string(data), `"`), true
}
