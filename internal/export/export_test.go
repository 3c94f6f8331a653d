package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curvelaunch/internal/events"
	"github.com/rovshanmuradov/curvelaunch/internal/fixedpoint"
)

var start = time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)

func amt(v uint64) fixedpoint.Amount { return fixedpoint.FromUint64(v) }

// generateTestTrades returns a buy of 100 tokens for 150000 followed by a
// sell of 50 tokens, on base 1000 slope 10 with no fees.
func generateTestTrades() []events.TradeSettledEvent {
	return []events.TradeSettledEvent{
		{
			BaseEvent:      events.NewBase(events.TradeSettled, "demo", start),
			TradeID:        "t1",
			Sequence:       1,
			Direction:      "buy",
			Trader:         "alice",
			InputAmount:    amt(150000),
			OutputAmount:   amt(100),
			PlatformFee:    amt(1500),
			CreatorFee:     amt(0),
			PriceImpactBps: 10000,
			SupplySold:     amt(100),
			AssetReserves:  amt(148500),
			LastPrice:      amt(2000),
			PriceBefore:    amt(1000),
		},
		{
			BaseEvent:      events.NewBase(events.TradeSettled, "demo", start.Add(time.Hour)),
			TradeID:        "t2",
			Sequence:       2,
			Direction:      "sell",
			Trader:         "bob",
			InputAmount:    amt(50),
			OutputAmount:   amt(86625),
			PlatformFee:    amt(875),
			CreatorFee:     amt(0),
			PriceImpactBps: -2500,
			SupplySold:     amt(50),
			AssetReserves:  amt(61000),
			LastPrice:      amt(1500),
			PriceBefore:    amt(2000),
		},
	}
}

func TestExportCSV(t *testing.T) {
	exporter := NewExporter(zap.NewNop())
	exporter.now = func() time.Time { return start }

	outputPath, err := exporter.Export(generateTestTrades(), Options{Format: FormatCSV, OutputDir: t.TempDir()})
	require.NoError(t, err)
	assert.Contains(t, outputPath, "demo_trades_all_20260102_100000.csv")

	f, err := os.Open(outputPath)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, events.TradeSettledHeader, rows[0])
	assert.Equal(t, "t2", rows[2][3])
}

func TestExportJSONSummary(t *testing.T) {
	exporter := NewExporter(nil)
	outputPath, err := exporter.Export(generateTestTrades(), Options{Format: FormatJSON, OutputDir: t.TempDir()})
	require.NoError(t, err)

	content, err := os.ReadFile(outputPath)
	require.NoError(t, err)

	var got struct {
		LaunchID   string  `json:"launch_id"`
		TradeCount int     `json:"trade_count"`
		Summary    Summary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(content, &got))
	assert.Equal(t, "demo", got.LaunchID)
	assert.Equal(t, 2, got.TradeCount)
	assert.Equal(t, "150000", got.Summary.AssetIn.String())
	assert.Equal(t, "86625", got.Summary.AssetOut.String())
	assert.Equal(t, "2375", got.Summary.PlatformFees.String())
	assert.Equal(t, int64(5000), got.Summary.PriceChangeBps)
}

func TestExportFilters(t *testing.T) {
	exporter := NewExporter(nil)
	dir := t.TempDir()

	_, err := exporter.Export(generateTestTrades(), Options{Format: FormatCSV, OutputDir: dir, Direction: "sell"})
	assert.NoError(t, err)

	_, err = exporter.Export(generateTestTrades(), Options{Format: FormatCSV, OutputDir: dir, Trader: "carol"})
	assert.Error(t, err)

	_, err = exporter.Export(generateTestTrades(), Options{Format: FormatCSV, OutputDir: dir, EndTime: start.Add(-time.Minute)})
	assert.Error(t, err)

	_, err = exporter.Export(generateTestTrades(), Options{Format: "xml", OutputDir: dir})
	assert.Error(t, err)

	_, err = ParseFormat("xml")
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	s, err := Summarize(generateTestTrades())
	require.NoError(t, err)

	assert.Equal(t, 2, s.TotalTrades)
	assert.Equal(t, 1, s.BuyCount)
	assert.Equal(t, 1, s.SellCount)
	assert.Equal(t, 2, s.UniqueTraders)
	assert.Equal(t, "100", s.TokensBought.String())
	assert.Equal(t, "50", s.TokensSold.String())
	assert.Equal(t, "1000", s.OpenPrice.String())
	assert.Equal(t, "1500", s.ClosePrice.String())
	assert.Equal(t, int64(5000), s.PriceChangeBps)
	assert.Equal(t, time.Hour, s.EndTime.Sub(s.StartTime))

	empty, err := Summarize(nil)
	require.NoError(t, err)
	assert.Zero(t, empty.TotalTrades)
}

func TestCollector(t *testing.T) {
	bus := events.NewBus(zap.NewNop(), 8)
	var c Collector
	c.Attach(bus)
	for _, tr := range generateTestTrades() {
		require.NoError(t, bus.Publish(tr))
	}
	require.NoError(t, bus.Shutdown(context.Background()))

	trades := c.Trades()
	require.Len(t, trades, 2)
	assert.Equal(t, "t1", trades[0].TradeID)
}
