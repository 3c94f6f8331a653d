package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/curvelaunch/internal/curve"
	"github.com/rovshanmuradov/curvelaunch/internal/display"
)

func newSeriesCmd(a *app) *cobra.Command {
	var points uint64

	cmd := &cobra.Command{
		Use:   "series",
		Short: "Sample the price curve from zero to max supply",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if points == 0 {
				points = a.cfg.SeriesPoints
			}
			series, err := priceSeries(cmd, a.def.Curve, points)
			if err != nil {
				return a.userError("Price series failed", err)
			}
			if a.opts.json {
				return a.printJSON(series)
			}
			a.title(fmt.Sprintf("%s %s curve", a.def.Symbol, a.def.Curve.Kind()))
			display.RenderSeries(a.out, series, a.units)
			if exp, ok := a.def.Curve.(curve.Exponential); ok {
				fmt.Fprintln(a.out, a.styles.Footnote.Render(fmt.Sprintf(
					"x%s every %s tokens", display.FormatMultiplier(exp.Multiplier),
					display.FormatAmount(exp.Step, a.units.TokenDecimals, -1))))
			}
			return nil
		},
	}
	cmd.Flags().Uint64VarP(&points, "points", "n", 0, "number of intervals (default from config)")
	return cmd
}

// priceSeries evaluates the samples concurrently and keeps them in supply
// order.
func priceSeries(cmd *cobra.Command, c curve.Curve, points uint64) ([]curve.Point, error) {
	out := make([]curve.Point, points+1)
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(8)
	for i := uint64(0); i <= points; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			supply, err := curve.SupplyAt(c, i, points)
			if err != nil {
				return err
			}
			price, err := c.Price(supply)
			if err != nil {
				return fmt.Errorf("price at supply %s: %w", supply, err)
			}
			out[i] = curve.Point{Supply: supply, Price: price}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
