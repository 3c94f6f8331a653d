package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curvelaunch/internal/display"
	"github.com/rovshanmuradov/curvelaunch/internal/events"
	"github.com/rovshanmuradov/curvelaunch/internal/export"
	"github.com/rovshanmuradov/curvelaunch/internal/ledger"
	"github.com/rovshanmuradov/curvelaunch/internal/quote"
)

type simulateOptions struct {
	file        string
	journal     string
	exportDir   string
	format      string
	slippageBps uint32
	fresh       bool
}

func newSimulateCmd(a *app) *cobra.Command {
	var opts simulateOptions

	cmd := &cobra.Command{
		Use:   "simulate [side:amount[:trader]]...",
		Short: "Settle a sequence of trades against the launch",
		Long: `Settle a sequence of trades against the launch in process.

Trades come from arguments such as buy:1.5 or sell:250000:bob, or from a CSV
file with direction,amount[,trader] rows. By default every trade is quoted
against the opening snapshot, as if all traders requested quotes at once,
and then settled in order with its slippage tolerance. Later trades can fail
once earlier ones have moved the price. --fresh quotes each trade just before
it settles instead. --export writes the settled trades and a run summary to
a CSV or JSON file once the run is over.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("slippage") {
				opts.slippageBps = a.cfg.DefaultSlippageBps
			}
			return a.runSimulate(cmd.Context(), args, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.file, "file", "f", "", "CSV file of trades")
	cmd.Flags().StringVar(&opts.journal, "journal", "", "append settled trades to this CSV file")
	cmd.Flags().StringVar(&opts.exportDir, "export", "", "write settled trades to this directory after the run")
	cmd.Flags().StringVar(&opts.format, "format", string(export.FormatCSV), "export format: csv or json")
	cmd.Flags().Uint32Var(&opts.slippageBps, "slippage", 0, "slippage tolerance in bps (default from config)")
	cmd.Flags().BoolVar(&opts.fresh, "fresh", false, "quote each trade against the state it settles on")
	return cmd
}

type plannedTrade struct {
	request ledger.TradeRequest
	input   string
}

func (a *app) runSimulate(ctx context.Context, args []string, opts simulateOptions) error {
	trades, err := a.plan(args, opts.file)
	if err != nil {
		return err
	}
	if len(trades) == 0 {
		return fmt.Errorf("no trades given")
	}
	format, err := export.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	var journal *ledger.Journal
	if opts.journal != "" {
		if journal, err = ledger.OpenJournal(opts.journal, time.Second, a.log.Logger); err != nil {
			return err
		}
		// deferred before the bus so it closes after the last delivery
		defer journal.Close()
	}

	bus := events.NewBus(a.log.Logger, a.cfg.EventBuffer)
	shutdown := sync.OnceFunc(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := bus.Shutdown(shutdownCtx); err != nil {
			a.log.Warn("Event bus shutdown", zap.Error(err))
		}
	})
	defer shutdown()
	a.subscribeLifecycle(bus)
	if journal != nil {
		journal.Attach(bus)
	}
	var collector export.Collector
	if opts.exportDir != "" {
		collector.Attach(bus)
	}

	l, err := ledger.New(a.def, a.engine, a.log.Logger, ledger.WithBus(bus))
	if err != nil {
		return a.userError("Cannot open ledger", err)
	}

	if !opts.fresh {
		for i := range trades {
			res, err := l.Quote(trades[i].request.Direction, trades[i].request.Amount)
			if err != nil {
				continue // Submit reports the same failure
			}
			trades[i].request.ExpectedOut = res.OutputAmount
		}
	}

	rows := make([]display.TradeRow, 0, len(trades))
	for _, t := range trades {
		if err := ctx.Err(); err != nil {
			return err
		}
		req := t.request
		req.MaxSlippageBps = opts.slippageBps
		if opts.fresh {
			if res, err := l.Quote(req.Direction, req.Amount); err == nil {
				req.ExpectedOut = res.OutputAmount
			}
		}

		row := display.TradeRow{Direction: string(req.Direction), Input: t.input}
		receipt, err := l.Submit(ctx, req)
		if err != nil {
			row.Error = display.UserMessage(err)
		} else {
			outDecimals := a.units.TokenDecimals
			if req.Direction == quote.Sell {
				outDecimals = a.units.AssetDecimals
			}
			row.Sequence = receipt.Sequence
			row.Output = display.FormatAmount(receipt.Quote.OutputAmount, outDecimals, a.units.Precision)
			row.ImpactBps = receipt.Quote.PriceImpactBps
		}
		rows = append(rows, row)
	}

	state, status := l.Snapshot()

	var exported string
	if opts.exportDir != "" {
		// every settled trade must reach the collector first
		shutdown()
		if settled := collector.Trades(); len(settled) > 0 {
			exported, err = export.NewExporter(a.log.Logger).Export(settled, export.Options{
				Format:    format,
				OutputDir: opts.exportDir,
			})
			if err != nil {
				return err
			}
		} else if !a.opts.json {
			a.warn("No trades settled, nothing to export")
		}
	}

	if a.opts.json {
		return a.printJSON(map[string]any{"trades": rows, "state": map[string]any{
			"status":         status,
			"supply_sold":    state.SupplySold,
			"asset_reserves": state.AssetReserves,
			"fees_collected": state.FeesCollected,
			"last_price":     state.LastPrice,
		}, "export": exported})
	}
	a.title(fmt.Sprintf("%s settlement", a.def.Symbol))
	display.RenderTrades(a.out, rows)
	fmt.Fprintln(a.out)
	display.RenderState(a.out, state, string(status), a.units)
	if exported != "" {
		fmt.Fprintf(a.out, "\nExported trades to %s\n", exported)
	}
	return nil
}

func (a *app) subscribeLifecycle(bus *events.Bus) {
	bus.Subscribe(events.StatusChanged, events.Typed(func(_ context.Context, e events.StatusChangedEvent) error {
		a.log.Info("Launch status changed", zap.String("from", e.From), zap.String("to", e.To))
		return nil
	}))
	bus.Subscribe(events.GraduationEligible, events.Typed(func(_ context.Context, e events.GraduationEligibleEvent) error {
		a.log.Info("Launch reached graduation criteria",
			zap.Stringer("supply_sold", e.SupplySold),
			zap.Stringer("asset_reserves", e.AssetReserves))
		return nil
	}))
}

// plan reads trades from args and then from file.
func (a *app) plan(args []string, file string) ([]plannedTrade, error) {
	var specs [][]string
	for _, arg := range args {
		specs = append(specs, strings.Split(arg, ":"))
	}
	if file != "" {
		f, err := os.Open(file)
		if err != nil {
			return nil, fmt.Errorf("open trades file: %w", err)
		}
		defer f.Close()
		r := csv.NewReader(f)
		r.FieldsPerRecord = -1
		r.Comment = '#'
		records, err := r.ReadAll()
		if err != nil {
			return nil, fmt.Errorf("read trades file: %w", err)
		}
		specs = append(specs, records...)
	}

	trades := make([]plannedTrade, 0, len(specs))
	for i, spec := range specs {
		if len(spec) < 2 || len(spec) > 3 {
			return nil, fmt.Errorf("trade %d: want side:amount[:trader], got %q", i+1, strings.Join(spec, ":"))
		}
		direction, err := quote.ParseDirection(spec[0])
		if err != nil {
			return nil, fmt.Errorf("trade %d: %w", i+1, err)
		}
		amount, err := a.parseAmount(strings.TrimSpace(spec[1]), direction == quote.Buy)
		if err != nil {
			return nil, fmt.Errorf("trade %d: %w", i+1, err)
		}
		t := plannedTrade{
			request: ledger.TradeRequest{Direction: direction, Amount: amount},
			input:   strings.TrimSpace(spec[1]),
		}
		if len(spec) == 3 {
			t.request.Trader = strings.TrimSpace(spec[2])
		}
		trades = append(trades, t)
	}
	return trades, nil
}
