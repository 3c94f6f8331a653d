// internal/quote/ladder.go
package quote

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/curvelaunch/internal/curve"
	"github.com/rovshanmuradov/curvelaunch/internal/fees"
	"github.com/rovshanmuradov/curvelaunch/internal/fixedpoint"
)

// Ladder quotes every amount against the same snapshot concurrently and
// returns the results in input order. The first failure cancels the rest.
func (e *Engine) Ladder(ctx context.Context, state curve.State, rates fees.Rates,
	direction Direction, amounts []fixedpoint.Amount) ([]Result, error) {
	results := make([]Result, len(amounts))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, amount := range amounts {
		i, amount := i, amount
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := e.Quote(state, rates, direction, amount)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
