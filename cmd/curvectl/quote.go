package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curvelaunch/internal/display"
	"github.com/rovshanmuradov/curvelaunch/internal/fixedpoint"
	"github.com/rovshanmuradov/curvelaunch/internal/quote"
)

func newQuoteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Quote buys and sells against the launch's current state",
	}
	cmd.AddCommand(
		newQuoteSideCmd(a, quote.Buy, "buy <sol-amount>...", "Quote spending SOL on tokens"),
		newQuoteSideCmd(a, quote.Sell, "sell <token-amount>...", "Quote selling tokens for SOL"),
	)
	return cmd
}

func newQuoteSideCmd(a *app, direction quote.Direction, use, short string) *cobra.Command {
	var slippageBps uint32

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long: short + ".\n\nWith several amounts the quotes are computed concurrently against the same\n" +
			"snapshot and printed as a ladder.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("slippage") {
				slippageBps = a.cfg.DefaultSlippageBps
			}
			amounts := make([]fixedpoint.Amount, len(args))
			for i, arg := range args {
				v, err := a.parseAmount(arg, direction == quote.Buy)
				if err != nil {
					return err
				}
				amounts[i] = v
			}
			return a.runQuote(cmd, direction, amounts, slippageBps)
		},
	}
	cmd.Flags().Uint32Var(&slippageBps, "slippage", 0, "slippage tolerance in bps for the minimum output (default from config)")
	return cmd
}

type quoteOutput struct {
	quote.Result
	MinAmountOut fixedpoint.Amount `json:"min_amount_out"`
	SlippageBps  uint32            `json:"slippage_bps"`
}

func (a *app) runQuote(cmd *cobra.Command, direction quote.Direction, amounts []fixedpoint.Amount, slippageBps uint32) error {
	end := a.log.TrackPerformance("quote_" + string(direction))
	defer end()

	state, err := a.def.State()
	if err != nil {
		return a.userError("Invalid launch state", err)
	}

	if len(amounts) > 1 {
		results, err := a.engine.Ladder(cmd.Context(), state, a.def.Fees, direction, amounts)
		if err != nil {
			return a.userError("Ladder quote failed", err)
		}
		if a.opts.json {
			return a.printJSON(results)
		}
		a.title(fmt.Sprintf("%s %s ladder", a.def.Symbol, direction))
		display.RenderLadder(a.out, results, a.units)
		return nil
	}

	res, err := a.engine.Quote(state, a.def.Fees, direction, amounts[0])
	if err != nil {
		return a.userError("Quote failed", err)
	}
	minOut, err := quote.MinAmountOut(res.OutputAmount, slippageBps)
	if err != nil {
		return a.userError("Invalid slippage", err)
	}
	a.log.Info("Quote",
		zap.String("direction", string(direction)),
		zap.Stringer("input", res.InputAmount),
		zap.Stringer("output", res.OutputAmount),
		zap.Stringer("min_out", minOut),
		zap.Int64("price_impact_bps", res.PriceImpactBps))

	if a.opts.json {
		return a.printJSON(quoteOutput{Result: res, MinAmountOut: minOut, SlippageBps: slippageBps})
	}

	a.title(fmt.Sprintf("%s %s quote", a.def.Symbol, a.styles.Direction(string(direction))))
	display.RenderQuote(a.out, res, a.units)

	outDecimals := a.units.TokenDecimals
	if direction == quote.Sell {
		outDecimals = a.units.AssetDecimals
	}
	fmt.Fprintf(a.out, "%s %s at %s slippage\n",
		a.styles.Label.Render("Minimum output:"),
		display.FormatAmount(minOut, outDecimals, a.units.Precision),
		display.FormatPercentBps(int64(slippageBps), 2))

	if res.Capped {
		a.warn(fmt.Sprintf("Capped at max supply: only %s SOL of the input is used.",
			display.FormatAmount(res.InputAmount, a.units.AssetDecimals, a.units.Precision)))
	}
	if res.HighImpact {
		a.warn(fmt.Sprintf("High price impact: %s exceeds %s.",
			display.FormatSignedBps(res.PriceImpactBps, 2),
			display.FormatPercentBps(a.engine.HighImpactBps(), 2)))
	}
	if res.Indicative {
		fmt.Fprintln(a.out, a.styles.Footnote.Render("Exponential quotes are indicative; settlement may differ slightly."))
	}
	return nil
}
