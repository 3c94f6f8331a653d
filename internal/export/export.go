// Package export writes settled trades of a launch to CSV or JSON files,
// together with a summary of the run.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/curvelaunch/internal/events"
	"github.com/rovshanmuradov/curvelaunch/internal/fees"
	"github.com/rovshanmuradov/curvelaunch/internal/fixedpoint"
)

// Format represents the export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts "csv" or "json".
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatJSON:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// Options configures the export behavior
type Options struct {
	Format    Format
	StartTime time.Time
	EndTime   time.Time
	Direction string // "buy", "sell" or empty for both
	Trader    string
	OutputDir string
}

// Collector keeps settled trades published on a bus.
type Collector struct {
	mu     sync.Mutex
	trades []events.TradeSettledEvent
}

// Attach subscribes the collector to settled trades.
func (c *Collector) Attach(bus *events.Bus) events.Subscription {
	return bus.Subscribe(events.TradeSettled, events.Typed(func(_ context.Context, e events.TradeSettledEvent) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.trades = append(c.trades, e)
		return nil
	}))
}

// Trades returns a copy of the collected trades.
func (c *Collector) Trades() []events.TradeSettledEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]events.TradeSettledEvent(nil), c.trades...)
}

// Exporter handles trade export functionality
type Exporter struct {
	logger *zap.Logger
	now    func() time.Time
}

// NewExporter creates a new trade exporter
func NewExporter(logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{logger: logger.Named("export"), now: time.Now}
}

// Export writes the trades matching options and returns the file path.
func (x *Exporter) Export(trades []events.TradeSettledEvent, options Options) (string, error) {
	filtered := filterTrades(trades, options)
	if len(filtered) == 0 {
		return "", fmt.Errorf("no trades match the export criteria")
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Sequence < filtered[j].Sequence
	})

	if err := os.MkdirAll(options.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(options.OutputDir, x.filename(filtered[0].LaunchID, options))

	var err error
	switch options.Format {
	case FormatCSV:
		err = exportToCSV(filtered, outputPath)
	case FormatJSON:
		err = x.exportToJSON(filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported export format %q", options.Format)
	}
	if err != nil {
		return "", err
	}

	x.logger.Info("Trades exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))
	return outputPath, nil
}

func filterTrades(trades []events.TradeSettledEvent, options Options) []events.TradeSettledEvent {
	var filtered []events.TradeSettledEvent
	for _, trade := range trades {
		if !options.StartTime.IsZero() && trade.EventTime.Before(options.StartTime) {
			continue
		}
		if !options.EndTime.IsZero() && trade.EventTime.After(options.EndTime) {
			continue
		}
		if options.Direction != "" && trade.Direction != options.Direction {
			continue
		}
		if options.Trader != "" && trade.Trader != options.Trader {
			continue
		}
		filtered = append(filtered, trade)
	}
	return filtered
}

func (x *Exporter) filename(launchID string, options Options) string {
	prefix := "trades_all"
	if options.Direction != "" {
		prefix = "trades_" + options.Direction
	}
	if launchID != "" {
		prefix = launchID + "_" + prefix
	}
	return fmt.Sprintf("%s_%s.%s", prefix, x.now().Format("20060102_150405"), options.Format)
}

func exportToCSV(trades []events.TradeSettledEvent, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(events.TradeSettledHeader); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, trade := range trades {
		if err := writer.Write(trade.Record()); err != nil {
			return fmt.Errorf("failed to write trade: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// jsonTrade is the JSON shape of a settled trade.
type jsonTrade struct {
	Time           time.Time         `json:"time"`
	Sequence       uint64            `json:"sequence"`
	TradeID        string            `json:"trade_id"`
	Direction      string            `json:"direction"`
	Trader         string            `json:"trader,omitempty"`
	InputAmount    fixedpoint.Amount `json:"input_amount"`
	OutputAmount   fixedpoint.Amount `json:"output_amount"`
	PlatformFee    fixedpoint.Amount `json:"platform_fee"`
	CreatorFee     fixedpoint.Amount `json:"creator_fee"`
	PriceImpactBps int64             `json:"price_impact_bps"`
	SupplySold     fixedpoint.Amount `json:"supply_sold"`
	AssetReserves  fixedpoint.Amount `json:"asset_reserves"`
	LastPrice      fixedpoint.Amount `json:"last_price"`
}

func (x *Exporter) exportToJSON(trades []events.TradeSettledEvent, outputPath string) error {
	summary, err := Summarize(trades)
	if err != nil {
		return err
	}
	rows := make([]jsonTrade, len(trades))
	for i, t := range trades {
		rows[i] = jsonTrade{
			Time:           t.EventTime,
			Sequence:       t.Sequence,
			TradeID:        t.TradeID,
			Direction:      t.Direction,
			Trader:         t.Trader,
			InputAmount:    t.InputAmount,
			OutputAmount:   t.OutputAmount,
			PlatformFee:    t.PlatformFee,
			CreatorFee:     t.CreatorFee,
			PriceImpactBps: t.PriceImpactBps,
			SupplySold:     t.SupplySold,
			AssetReserves:  t.AssetReserves,
			LastPrice:      t.LastPrice,
		}
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	exportData := struct {
		ExportTime time.Time   `json:"export_time"`
		LaunchID   string      `json:"launch_id"`
		TradeCount int         `json:"trade_count"`
		Summary    Summary     `json:"summary"`
		Trades     []jsonTrade `json:"trades"`
	}{
		ExportTime: x.now().UTC(),
		LaunchID:   trades[0].LaunchID,
		TradeCount: len(trades),
		Summary:    summary,
		Trades:     rows,
	}
	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// Summary aggregates a run of settled trades. Asset amounts are base units.
type Summary struct {
	TotalTrades    int               `json:"total_trades"`
	BuyCount       int               `json:"buy_count"`
	SellCount      int               `json:"sell_count"`
	UniqueTraders  int               `json:"unique_traders"`
	AssetIn        fixedpoint.Amount `json:"asset_in"`
	AssetOut       fixedpoint.Amount `json:"asset_out"`
	TokensBought   fixedpoint.Amount `json:"tokens_bought"`
	TokensSold     fixedpoint.Amount `json:"tokens_sold"`
	PlatformFees   fixedpoint.Amount `json:"platform_fees"`
	CreatorFees    fixedpoint.Amount `json:"creator_fees"`
	OpenPrice      fixedpoint.Amount `json:"open_price"`
	ClosePrice     fixedpoint.Amount `json:"close_price"`
	PriceChangeBps int64             `json:"price_change_bps"`
	StartTime      time.Time         `json:"start_time"`
	EndTime        time.Time         `json:"end_time"`
}

// Summarize totals trades given in settlement order.
func Summarize(trades []events.TradeSettledEvent) (Summary, error) {
	s := Summary{TotalTrades: len(trades)}
	if len(trades) == 0 {
		return s, nil
	}

	traders := make(map[string]bool)
	add := func(dst *fixedpoint.Amount, v fixedpoint.Amount) error {
		sum, err := dst.Add(v)
		if err != nil {
			return err
		}
		*dst = sum
		return nil
	}

	for _, t := range trades {
		if t.Trader != "" {
			traders[t.Trader] = true
		}
		var err error
		switch t.Direction {
		case "buy":
			s.BuyCount++
			if err = add(&s.AssetIn, t.InputAmount); err == nil {
				err = add(&s.TokensBought, t.OutputAmount)
			}
		case "sell":
			s.SellCount++
			if err = add(&s.AssetOut, t.OutputAmount); err == nil {
				err = add(&s.TokensSold, t.InputAmount)
			}
		}
		if err == nil {
			err = add(&s.PlatformFees, t.PlatformFee)
		}
		if err == nil {
			err = add(&s.CreatorFees, t.CreatorFee)
		}
		if err != nil {
			return Summary{}, fmt.Errorf("summarize trade %d: %w", t.Sequence, err)
		}
	}

	first, last := trades[0], trades[len(trades)-1]
	s.UniqueTraders = len(traders)
	s.StartTime = first.EventTime
	s.EndTime = last.EventTime
	s.ClosePrice = last.LastPrice
	s.OpenPrice = first.PriceBefore
	if !s.OpenPrice.IsZero() {
		change := new(big.Int).Sub(s.ClosePrice.Big(), s.OpenPrice.Big())
		change.Mul(change, big.NewInt(fees.BpsDenominator))
		change.Quo(change, s.OpenPrice.Big())
		if change.IsInt64() {
			s.PriceChangeBps = change.Int64()
		}
	}
	return s, nil
}
