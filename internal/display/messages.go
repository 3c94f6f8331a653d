package display

import (
	"errors"
	"fmt"

	"github.com/rovshanmuradov/curvelaunch/internal/ledger"
	"github.com/rovshanmuradov/curvelaunch/internal/quote"
)

var messages = map[quote.Kind]string{
	quote.KindOverflow:               "The amount is too large to price. Try a smaller trade.",
	quote.KindUnderflow:              "The amount would go below zero. Check the trade size.",
	quote.KindDivisionByZero:         "The curve parameters produce a division by zero. Check the launch configuration.",
	quote.KindUnsupportedCurveType:   "This curve type is not supported. Use linear or exponential.",
	quote.KindInvalidCurveParameters: "The curve parameters are invalid. Check base price, slope or multiplier, and max supply.",
	quote.KindInvalidState:           "The curve state is inconsistent with its parameters.",
	quote.KindInvalidFeeRate:         "The fee rates are invalid. Combined fees must stay below 100%.",
	quote.KindCurveExhausted:         "All tokens on this curve have been sold.",
	quote.KindInsufficientSupply:     "You are selling more tokens than have been sold on the curve.",
	quote.KindSlippageExceeded:       "The price moved beyond your slippage tolerance. Refresh the quote or raise the tolerance.",
	quote.KindInvalidSlippage:        "Slippage tolerance must be between 0 and 10000 bps.",
	ledger.KindLaunchNotActive:       "This launch is not trading right now.",
	ledger.KindInsufficientReserves:  "The curve does not hold enough reserves to pay this sale.",
	ledger.KindZeroAmount:            "The trade is too small to execute.",
	ledger.KindInvalidTransition:     "That status change is not allowed for this launch.",
}

// UserMessage turns an error into a short actionable sentence. Slippage
// failures include the numbers involved.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	kind := ledger.Kind(err)

	var slip *quote.SlippageExceededError
	if errors.As(err, &slip) {
		return fmt.Sprintf("%s Expected %s, would receive %s (minimum %s).",
			messages[kind], slip.Expected, slip.Actual, slip.Minimum)
	}
	if msg, ok := messages[kind]; ok {
		return msg
	}
	return err.Error()
}
