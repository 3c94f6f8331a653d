// internal/curve/exponential.go
package curve

import (
	"fmt"

	"github.com/rovshanmuradov/curvelaunch/internal/fixedpoint"
)

const (
	// FixedPointShift is the number of fractional bits of a Q32.32 ratio.
	FixedPointShift = 32

	// DefaultIncrement is the supply quantum the exponential inverse advances by
	// per iteration. Smaller values track the staircase more closely but cost
	// proportionally more iterations; the settlement program uses 1000.
	DefaultIncrement = 1000
)

// FixedPointOne is 1.0 in Q32.32.
var FixedPointOne = fixedpoint.FromUint64(1 << FixedPointShift)

// Exponential is the staircase curve P(S) = Base * Multiplier^(S / Step),
// where S / Step truncates: the multiplier applies once per completed step.
// Multiplier is a Q32.32 ratio and must be greater than FixedPointOne.
//
// Cost is a trapezoidal approximation over the endpoint prices, not the
// integral of the staircase. The settlement program prices trades the same
// way, so this must not be replaced by an exact integral on the quote side.
type Exponential struct {
	Base       fixedpoint.Amount
	Multiplier fixedpoint.Amount
	Step       fixedpoint.Amount
	Max        fixedpoint.Amount
	// Increment overrides DefaultIncrement for TokensForAsset. Zero means default.
	Increment fixedpoint.Amount
}

func (Exponential) sealed()                        {}
func (Exponential) Kind() Kind                     { return KindExponential }
func (Exponential) Exact() bool                    { return false }
func (e Exponential) BasePrice() fixedpoint.Amount { return e.Base }
func (e Exponential) MaxSupply() fixedpoint.Amount { return e.Max }

func (e Exponential) Validate() error {
	if e.Base.IsZero() {
		return fmt.Errorf("%w: exponential base price must be > 0", ErrInvalidCurveParameters)
	}
	if e.Step.IsZero() {
		return fmt.Errorf("%w: exponential step must be > 0", ErrInvalidCurveParameters)
	}
	if e.Multiplier.Lte(FixedPointOne) {
		return fmt.Errorf("%w: exponential multiplier %s must be > %s (1.0 in Q32.32)",
			ErrInvalidCurveParameters, e.Multiplier, FixedPointOne)
	}
	if e.Max.IsZero() {
		return fmt.Errorf("%w: max supply must be > 0", ErrInvalidCurveParameters)
	}
	return nil
}

// WithIncrement returns a copy using the given inverse increment.
func (e Exponential) WithIncrement(increment uint64) Exponential {
	e.Increment = fixedpoint.FromUint64(increment)
	return e
}

func (e Exponential) increment() fixedpoint.Amount {
	if e.Increment.IsZero() {
		return fixedpoint.FromUint64(DefaultIncrement)
	}
	return e.Increment
}

// Price = floor(Base * Multiplier^k / 2^32) with k = floor(supply / Step).
func (e Exponential) Price(supply fixedpoint.Amount) (fixedpoint.Amount, error) {
	if e.Step.IsZero() {
		return fixedpoint.Amount{}, fmt.Errorf("%w: exponential step must be > 0", ErrInvalidCurveParameters)
	}
	steps, err := supply.Div(e.Step)
	if err != nil {
		return fixedpoint.Amount{}, err
	}
	k, err := steps.Uint64()
	if err != nil {
		return fixedpoint.Amount{}, fmt.Errorf("exponential price: step count: %w", err)
	}
	growth, err := powFixed(e.Multiplier, k)
	if err != nil {
		return fixedpoint.Amount{}, fmt.Errorf("exponential price: %w", err)
	}
	scaled, err := e.Base.Mul(growth)
	if err != nil {
		return fixedpoint.Amount{}, fmt.Errorf("exponential price: %w", err)
	}
	return scaled.Rsh(FixedPointShift), nil
}

// Cost = floor((Price(start) + Price(end)) / 2) * (end - start).
func (e Exponential) Cost(start, end fixedpoint.Amount) (fixedpoint.Amount, error) {
	delta, err := supplyDelta(start, end)
	if err != nil {
		return fixedpoint.Amount{}, err
	}
	if delta.IsZero() {
		return fixedpoint.Zero(), nil
	}
	priceStart, err := e.Price(start)
	if err != nil {
		return fixedpoint.Amount{}, err
	}
	priceEnd, err := e.Price(end)
	if err != nil {
		return fixedpoint.Amount{}, err
	}
	sum, err := priceStart.Add(priceEnd)
	if err != nil {
		return fixedpoint.Amount{}, fmt.Errorf("exponential cost: %w", err)
	}
	avg, _ := sum.Div(two)
	cost, err := avg.Mul(delta)
	if err != nil {
		return fixedpoint.Amount{}, fmt.Errorf("exponential cost: %w", err)
	}
	return cost, nil
}

// TokensForAsset advances supply in Increment-sized slices, pricing each slice
// with Cost, and stops at the last slice whose cumulative cost still fits in
// assetAmount. The last slice before MaxSupply may be shorter than Increment.
//
// Consecutive slices that lie inside one staircase step all cost the same, so
// such runs are taken in a single division instead of one iteration each.
// The result is identical to the slice-by-slice walk.
func (e Exponential) TokensForAsset(assetAmount, currentSupply fixedpoint.Amount) (fixedpoint.Amount, error) {
	if err := e.Validate(); err != nil {
		return fixedpoint.Amount{}, err
	}
	if currentSupply.Gte(e.Max) || assetAmount.IsZero() {
		return fixedpoint.Zero(), nil
	}

	inc := e.increment()
	remaining, _ := e.Max.Sub(currentSupply)
	tokens := fixedpoint.Zero()
	budget := assetAmount

	for tokens.Lt(remaining) {
		left, _ := remaining.Sub(tokens)
		size := fixedpoint.Min(inc, left)

		start, err := currentSupply.Add(tokens)
		if err != nil {
			return fixedpoint.Amount{}, err
		}
		end, err := start.Add(size)
		if err != nil {
			return fixedpoint.Amount{}, err
		}
		sliceCost, err := e.Cost(start, end)
		if err != nil {
			return fixedpoint.Amount{}, err
		}
		if sliceCost.Gt(budget) {
			break
		}

		n := fixedpoint.FromUint64(1)
		if size.Eq(inc) && !sliceCost.IsZero() {
			if run, err := e.flatRun(start, inc, left, budget, sliceCost); err != nil {
				return fixedpoint.Amount{}, err
			} else if run.Gt(n) {
				n = run
			}
		}

		taken, err := size.Mul(n)
		if err != nil {
			return fixedpoint.Amount{}, err
		}
		spent, err := sliceCost.Mul(n)
		if err != nil {
			return fixedpoint.Amount{}, err
		}
		if tokens, err = tokens.Add(taken); err != nil {
			return fixedpoint.Amount{}, err
		}
		if budget, err = budget.Sub(spent); err != nil {
			return fixedpoint.Amount{}, err
		}
	}
	return tokens, nil
}

// flatRun counts the full slices starting at start that end strictly before
// the next step boundary (so both of their endpoints share one price), capped
// by the supply left and by what the budget affords.
func (e Exponential) flatRun(start, inc, left, budget, sliceCost fixedpoint.Amount) (fixedpoint.Amount, error) {
	stepIndex, err := start.Div(e.Step)
	if err != nil {
		return fixedpoint.Amount{}, err
	}
	next, err := stepIndex.Add(fixedpoint.FromUint64(1))
	if err != nil {
		return fixedpoint.Amount{}, err
	}
	boundary, err := next.Mul(e.Step)
	if err != nil {
		return fixedpoint.Amount{}, err
	}
	// slice i ends at start + (i+1)*inc, which must stay <= boundary - 1
	room, err := boundary.Sub(start)
	if err != nil {
		return fixedpoint.Amount{}, err
	}
	room, _ = room.Sub(fixedpoint.FromUint64(1))
	sameStep, _ := room.Div(inc)
	full, _ := left.Div(inc)
	affordable, _ := budget.Div(sliceCost)
	return fixedpoint.Min(sameStep, fixedpoint.Min(full, affordable)), nil
}

// powFixed raises a Q32.32 base to an integer power with square-and-multiply,
// truncating after every fixed-point multiplication like the settlement
// program does.
func powFixed(base fixedpoint.Amount, exp uint64) (fixedpoint.Amount, error) {
	result := FixedPointOne
	for exp > 0 {
		var err error
		if exp&1 == 1 {
			if result, err = mulFixed(result, base); err != nil {
				return fixedpoint.Amount{}, err
			}
		}
		exp >>= 1
		if exp == 0 {
			break
		}
		if base, err = mulFixed(base, base); err != nil {
			return fixedpoint.Amount{}, err
		}
	}
	return result, nil
}

func mulFixed(a, b fixedpoint.Amount) (fixedpoint.Amount, error) {
	p, err := a.Mul(b)
	if err != nil {
		return fixedpoint.Amount{}, err
	}
	return p.Rsh(FixedPointShift), nil
}
