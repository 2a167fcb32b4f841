// Package decmath holds the arbitrary-precision helpers used by pricing code.
// Integer division always names its rounding direction.
package decmath

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RatioScale is the number of fractional digits kept by Quo.
const RatioScale = 24

var ErrDivisionByZero = errors.New("decimal division by zero")

// Parse reads a base-10 decimal string. Empty input parses as zero.
func Parse(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal %q: %w", value, err)
	}
	return d, nil
}

// Pow10 returns 10^exp.
func Pow10(exp int32) decimal.Decimal {
	return decimal.New(1, exp)
}

// QuoTrunc divides and truncates toward zero.
func QuoTrunc(num, den decimal.Decimal) (decimal.Decimal, error) {
	if den.IsZero() {
		return decimal.Zero, ErrDivisionByZero
	}
	q, _ := num.QuoRem(den, 0)
	return q, nil
}

// QuoFloor divides and rounds toward negative infinity.
func QuoFloor(num, den decimal.Decimal) (decimal.Decimal, error) {
	if den.IsZero() {
		return decimal.Zero, ErrDivisionByZero
	}
	q, r := num.QuoRem(den, 0)
	if !r.IsZero() && num.Sign() != den.Sign() {
		q = q.Sub(decimal.NewFromInt(1))
	}
	return q, nil
}

// QuoCeil divides and rounds toward positive infinity.
func QuoCeil(num, den decimal.Decimal) (decimal.Decimal, error) {
	if den.IsZero() {
		return decimal.Zero, ErrDivisionByZero
	}
	q, r := num.QuoRem(den, 0)
	if !r.IsZero() && num.Sign() == den.Sign() {
		q = q.Add(decimal.NewFromInt(1))
	}
	return q, nil
}

// Quo divides keeping RatioScale fractional digits, rounding half away from zero.
func Quo(num, den decimal.Decimal) (decimal.Decimal, error) {
	if den.IsZero() {
		return decimal.Zero, ErrDivisionByZero
	}
	return num.DivRound(den, RatioScale), nil
}

// FormatUnits renders a raw integer amount scaled down by decimals.
func FormatUnits(value decimal.Decimal, decimals int32) string {
	if decimals <= 0 {
		return value.String()
	}
	return value.Shift(-decimals).StringFixed(decimals)
}

// FormatFixed renders value with exactly places fractional digits, truncating.
func FormatFixed(value decimal.Decimal, places int32) string {
	return value.Truncate(places).StringFixed(places)
}
