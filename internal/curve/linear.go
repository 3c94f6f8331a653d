// internal/curve/linear.go
package curve

import (
	"fmt"

	"github.com/rovshanmuradov/curvelaunch/internal/fixedpoint"
)

var two = fixedpoint.FromUint64(2)

// Linear is P(S) = Base + Slope * S.
type Linear struct {
	Base  fixedpoint.Amount
	Slope fixedpoint.Amount
	Max   fixedpoint.Amount
}

func (Linear) sealed()                        {}
func (Linear) Kind() Kind                     { return KindLinear }
func (Linear) Exact() bool                    { return true }
func (l Linear) BasePrice() fixedpoint.Amount { return l.Base }
func (l Linear) MaxSupply() fixedpoint.Amount { return l.Max }

// Validate requires a positive base price and a positive max supply. Any
// slope is valid, zero gives a flat price.
func (l Linear) Validate() error {
	if l.Base.IsZero() {
		return fmt.Errorf("%w: linear base price must be > 0", ErrInvalidCurveParameters)
	}
	if l.Max.IsZero() {
		return fmt.Errorf("%w: max supply must be > 0", ErrInvalidCurveParameters)
	}
	return nil
}

func (l Linear) Price(supply fixedpoint.Amount) (fixedpoint.Amount, error) {
	slopeTerm, err := l.Slope.Mul(supply)
	if err != nil {
		return fixedpoint.Amount{}, fmt.Errorf("linear price: %w", err)
	}
	price, err := l.Base.Add(slopeTerm)
	if err != nil {
		return fixedpoint.Amount{}, fmt.Errorf("linear price: %w", err)
	}
	return price, nil
}

// Cost = Base*(end-start) + Slope*(end² - start²)/2.
//
// The squares are subtracted before the single floor division by two; the
// on-chain program evaluates the same expression in the same order.
func (l Linear) Cost(start, end fixedpoint.Amount) (fixedpoint.Amount, error) {
	delta, err := supplyDelta(start, end)
	if err != nil {
		return fixedpoint.Amount{}, err
	}
	if delta.IsZero() {
		return fixedpoint.Zero(), nil
	}

	baseCost, err := l.Base.Mul(delta)
	if err != nil {
		return fixedpoint.Amount{}, fmt.Errorf("linear cost: base term: %w", err)
	}
	endSquared, err := end.Mul(end)
	if err != nil {
		return fixedpoint.Amount{}, fmt.Errorf("linear cost: end squared: %w", err)
	}
	startSquared, err := start.Mul(start)
	if err != nil {
		return fixedpoint.Amount{}, fmt.Errorf("linear cost: start squared: %w", err)
	}
	deltaSquared, err := endSquared.Sub(startSquared)
	if err != nil {
		return fixedpoint.Amount{}, fmt.Errorf("linear cost: %w", err)
	}
	slopeCost, err := l.Slope.MulDiv(deltaSquared, two)
	if err != nil {
		return fixedpoint.Amount{}, fmt.Errorf("linear cost: slope term: %w", err)
	}
	cost, err := baseCost.Add(slopeCost)
	if err != nil {
		return fixedpoint.Amount{}, fmt.Errorf("linear cost: %w", err)
	}
	return cost, nil
}

// TokensForAsset solves Cost(S, S+t) = c for t.
//
// With b = Price(S) the cost of t tokens is b*t + Slope*t²/2, so the root of
// Slope/2*t² + b*t - c = 0 is t = (sqrt(b² + 2*Slope*c) - b) / Slope. This is
// the textbook (-b + sqrt(b²+4ac)) / 2a with a = Slope/2 multiplied through,
// which keeps odd slopes exact. Flooring the square root and the quotient
// gives the floor of the real root. Cost floors Slope*t²/2, so a token past
// that root can still fit in c; the result is then stepped up to the largest
// t whose Cost does not exceed c.
func (l Linear) TokensForAsset(assetAmount, currentSupply fixedpoint.Amount) (fixedpoint.Amount, error) {
	if l.Slope.IsZero() {
		tokens, err := assetAmount.Div(l.Base)
		if err != nil {
			return fixedpoint.Amount{}, fmt.Errorf("linear inverse: %w", err)
		}
		return tokens, nil
	}

	b, err := l.Price(currentSupply)
	if err != nil {
		return fixedpoint.Amount{}, err
	}
	bSquared, err := b.Mul(b)
	if err != nil {
		return fixedpoint.Amount{}, fmt.Errorf("linear inverse: b²: %w", err)
	}
	twoSlope, err := l.Slope.Mul(two)
	if err != nil {
		return fixedpoint.Amount{}, fmt.Errorf("linear inverse: %w", err)
	}
	ac, err := twoSlope.Mul(assetAmount)
	if err != nil {
		return fixedpoint.Amount{}, fmt.Errorf("linear inverse: 4ac: %w", err)
	}
	discriminant, err := bSquared.Add(ac)
	if err != nil {
		return fixedpoint.Amount{}, fmt.Errorf("linear inverse: discriminant: %w", err)
	}

	root := discriminant.Sqrt()
	numerator, err := root.Sub(b)
	if err != nil {
		// sqrt(b² + x) >= b for any x >= 0
		return fixedpoint.Amount{}, fmt.Errorf("linear inverse: %w", err)
	}
	tokens, err := numerator.Div(l.Slope)
	if err != nil {
		return fixedpoint.Amount{}, fmt.Errorf("linear inverse: %w", err)
	}
	return l.tighten(tokens, assetAmount, currentSupply)
}

// tighten adds tokens while one more still costs at most assetAmount. The
// floored slope term leaves less than one unit of slack, so this runs at
// most a couple of times.
func (l Linear) tighten(tokens, assetAmount, currentSupply fixedpoint.Amount) (fixedpoint.Amount, error) {
	one := fixedpoint.FromUint64(1)
	for {
		next, err := tokens.Add(one)
		if err != nil {
			return fixedpoint.Amount{}, fmt.Errorf("linear inverse: %w", err)
		}
		end, err := currentSupply.Add(next)
		if err != nil {
			return fixedpoint.Amount{}, fmt.Errorf("linear inverse: %w", err)
		}
		cost, err := l.Cost(currentSupply, end)
		if err != nil {
			return fixedpoint.Amount{}, err
		}
		if cost.Gt(assetAmount) {
			return tokens, nil
		}
		tokens = next
	}
}
