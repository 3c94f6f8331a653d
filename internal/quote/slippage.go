// internal/quote/slippage.go
package quote

import (
	"fmt"
	"strings"

	"github.com/rovshanmuradov/curvelaunch/internal/fees"
	"github.com/rovshanmuradov/curvelaunch/internal/fixedpoint"
)

// Direction is the side of a trade.
type Direction string

const (
	Buy  Direction = "buy"
	Sell Direction = "sell"
)

// ParseDirection accepts "buy" or "sell" in any case.
func ParseDirection(s string) (Direction, error) {
	switch Direction(strings.ToLower(strings.TrimSpace(s))) {
	case Buy:
		return Buy, nil
	case Sell:
		return Sell, nil
	default:
		return "", fmt.Errorf("unknown trade direction %q", s)
	}
}

// MinAmountOut is the smallest amount ValidateSlippage accepts for expected at
// the given tolerance: expected - floor(expected * bps / 10000).
func MinAmountOut(expected fixedpoint.Amount, maxSlippageBps uint32) (fixedpoint.Amount, error) {
	if maxSlippageBps > fees.BpsDenominator {
		return fixedpoint.Amount{}, fmt.Errorf("%w: %d bps exceeds %d", ErrInvalidSlippage, maxSlippageBps, fees.BpsDenominator)
	}
	deviation, err := fees.Fee(expected, maxSlippageBps)
	if err != nil {
		return fixedpoint.Amount{}, err
	}
	return expected.Sub(deviation)
}

// ValidateSlippage fails with *SlippageExceededError when actual is below the
// tolerated minimum. Buys compare tokens out and sells compare the asset
// payout; in both cases only a shortfall counts. A tolerance of 0 requires an
// exact match.
func ValidateSlippage(expected, actual fixedpoint.Amount, maxSlippageBps uint32, direction Direction) error {
	if direction != Buy && direction != Sell {
		return fmt.Errorf("unknown trade direction %q", direction)
	}
	if maxSlippageBps == 0 {
		if !actual.Eq(expected) {
			return &SlippageExceededError{
				Direction: direction,
				Expected:  expected,
				Actual:    actual,
				Minimum:   expected,
			}
		}
		return nil
	}

	minimum, err := MinAmountOut(expected, maxSlippageBps)
	if err != nil {
		return err
	}
	if actual.Lt(minimum) {
		return &SlippageExceededError{
			Direction:      direction,
			Expected:       expected,
			Actual:         actual,
			Minimum:        minimum,
			MaxSlippageBps: maxSlippageBps,
		}
	}
	return nil
}
