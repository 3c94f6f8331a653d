// =============================
// File: internal/quote/errors.go
// =============================
package quote

import (
	"errors"
	"fmt"

	"github.com/rovshanmuradov/curvelaunch/internal/curve"
	"github.com/rovshanmuradov/curvelaunch/internal/fees"
	"github.com/rovshanmuradov/curvelaunch/internal/fixedpoint"
)

var (
	ErrCurveExhausted     = errors.New("curve exhausted")
	ErrInsufficientSupply = errors.New("insufficient supply")
	ErrSlippageExceeded   = errors.New("slippage exceeded")
	ErrInvalidSlippage    = errors.New("invalid slippage tolerance")
)

// SlippageExceededError is returned by ValidateSlippage when the actual amount
// falls below the tolerated minimum.
type SlippageExceededError struct {
	Direction      Direction
	Expected       fixedpoint.Amount
	Actual         fixedpoint.Amount
	Minimum        fixedpoint.Amount
	MaxSlippageBps uint32
}

func (e *SlippageExceededError) Error() string {
	return fmt.Sprintf("slippage exceeded on %s: got %s, expected %s (minimum %s at %d bps tolerance)",
		e.Direction, e.Actual, e.Expected, e.Minimum, e.MaxSlippageBps)
}

// Is lets errors.Is(err, ErrSlippageExceeded) match the typed error.
func (e *SlippageExceededError) Is(target error) bool {
	return target == ErrSlippageExceeded
}

// Kind is the caller-facing classification of an engine failure.
type Kind string

const (
	KindNone                   Kind = ""
	KindOverflow               Kind = "Overflow"
	KindUnderflow              Kind = "Underflow"
	KindDivisionByZero         Kind = "DivisionByZero"
	KindUnsupportedCurveType   Kind = "UnsupportedCurveType"
	KindInvalidCurveParameters Kind = "InvalidCurveParameters"
	KindInvalidState           Kind = "InvalidState"
	KindInvalidFeeRate         Kind = "InvalidFeeRate"
	KindCurveExhausted         Kind = "CurveExhausted"
	KindInsufficientSupply     Kind = "InsufficientSupply"
	KindSlippageExceeded       Kind = "SlippageExceeded"
	KindInvalidSlippage        Kind = "InvalidSlippage"
	KindUnknown                Kind = "Unknown"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	// most specific first: a slippage failure may wrap arithmetic errors
	{ErrSlippageExceeded, KindSlippageExceeded},
	{ErrInvalidSlippage, KindInvalidSlippage},
	{ErrCurveExhausted, KindCurveExhausted},
	{ErrInsufficientSupply, KindInsufficientSupply},
	{fees.ErrInvalidFeeRate, KindInvalidFeeRate},
	{curve.ErrUnsupportedCurveType, KindUnsupportedCurveType},
	{curve.ErrInvalidCurveParameters, KindInvalidCurveParameters},
	{curve.ErrInvalidState, KindInvalidState},
	{fixedpoint.ErrOverflow, KindOverflow},
	{fixedpoint.ErrUnderflow, KindUnderflow},
	{fixedpoint.ErrDivisionByZero, KindDivisionByZero},
}

// ErrorKind classifies err. It returns KindNone for nil and KindUnknown for
// errors that did not come from the pricing packages.
func ErrorKind(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}
