// internal/curve/series.go
package curve

import (
	"fmt"

	"github.com/rovshanmuradov/curvelaunch/internal/fixedpoint"
)

// Point is one sample of the price function.
type Point struct {
	Supply fixedpoint.Amount `json:"supply"`
	Price  fixedpoint.Amount `json:"price"`
}

// SupplyAt returns the i-th of points+1 evenly spaced supplies in
// [0, MaxSupply]: floor(i * MaxSupply / points).
func SupplyAt(c Curve, i, points uint64) (fixedpoint.Amount, error) {
	if points == 0 {
		return fixedpoint.Amount{}, fmt.Errorf("series needs at least one interval")
	}
	return fixedpoint.FromUint64(i).MulDiv(c.MaxSupply(), fixedpoint.FromUint64(points))
}

// Series samples the price at points+1 evenly spaced supplies from 0 to
// MaxSupply inclusive, in ascending supply order.
func Series(c Curve, points uint64) ([]Point, error) {
	if c == nil {
		return nil, fmt.Errorf("%w: nil curve", ErrUnsupportedCurveType)
	}
	out := make([]Point, 0, points+1)
	for i := uint64(0); i <= points; i++ {
		supply, err := SupplyAt(c, i, points)
		if err != nil {
			return nil, err
		}
		price, err := c.Price(supply)
		if err != nil {
			return nil, fmt.Errorf("price at supply %s: %w", supply, err)
		}
		out = append(out, Point{Supply: supply, Price: price})
	}
	return out, nil
}
