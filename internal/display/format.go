// =================================
// File: internal/display/format.go
// =================================

// Package display renders engine values for people. Everything here is
// presentation only: amounts are converted to decimals at the edge and
// never flow back into pricing.
package display

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/rovshanmuradov/curvelaunch/internal/curve"
	"github.com/rovshanmuradov/curvelaunch/internal/fixedpoint"
)

// FormatAmount renders base units as a decimal with the token's decimals.
// Digits past precision are truncated, not rounded; a negative precision
// prints the exact value without trailing zeros.
func FormatAmount(amount fixedpoint.Amount, decimals uint8, precision int32) string {
	d := decimal.NewFromBigInt(amount.Big(), -int32(decimals))
	if precision < 0 {
		return d.String()
	}
	return d.Truncate(precision).StringFixed(precision)
}

// ParseAmount is the inverse of FormatAmount: "1.5" with 6 decimals is
// 1500000 base units. Extra fractional digits are rejected.
func ParseAmount(s string, decimals uint8) (fixedpoint.Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return fixedpoint.Amount{}, err
	}
	if d.IsNegative() {
		return fixedpoint.Amount{}, fixedpoint.ErrUnderflow
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return fixedpoint.Amount{}, fmt.Errorf("amount %q has more than %d decimal places", s, decimals)
	}
	return fixedpoint.FromBig(scaled.BigInt())
}

// FormatPercentBps renders basis points as a percentage: 9700 -> "97.00%".
func FormatPercentBps(bps int64, precision int32) string {
	return decimal.New(bps, -2).StringFixed(precision) + "%"
}

// FormatSignedBps is FormatPercentBps with an explicit sign for increases.
func FormatSignedBps(bps int64, precision int32) string {
	s := FormatPercentBps(bps, precision)
	if bps > 0 {
		return "+" + s
	}
	return s
}

// FormatMultiplier renders a Q32.32 multiplier as a ratio, e.g. 1.05.
func FormatMultiplier(q fixedpoint.Amount) string {
	return decimal.NewFromBigInt(q.Big(), 0).
		DivRound(decimal.NewFromInt(1<<curve.FixedPointShift), 6).
		String()
}
