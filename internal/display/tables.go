// =================================
// File: internal/display/tables.go
// =================================
package display

import (
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/rovshanmuradov/curvelaunch/internal/curve"
	"github.com/rovshanmuradov/curvelaunch/internal/graduation"
	"github.com/rovshanmuradov/curvelaunch/internal/quote"
)

// AssetDecimals is the precision of the quote asset (lamports per SOL).
const AssetDecimals = 9

// Units says how to scale token and asset base units for display.
type Units struct {
	TokenDecimals uint8
	AssetDecimals uint8
	Precision     int32
}

// DefaultUnits uses 6 token decimals and SOL for the asset.
func DefaultUnits() Units {
	return Units{TokenDecimals: 6, AssetDecimals: AssetDecimals, Precision: 6}
}

// RawUnits prints base units as plain integers.
func RawUnits() Units {
	return Units{Precision: -1}
}

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	if len(header) > 0 {
		table.SetHeader(header)
		table.SetAutoFormatHeaders(false)
	}
	table.SetAutoWrapText(false)
	return table
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// RenderQuote writes a two-column table describing one quote.
func RenderQuote(w io.Writer, res quote.Result, u Units) {
	in, out := u.AssetDecimals, u.TokenDecimals
	if res.Direction == quote.Sell {
		in, out = u.TokenDecimals, u.AssetDecimals
	}

	data := [][]string{
		{"Direction", string(res.Direction)},
		{"Input", FormatAmount(res.InputAmount, in, u.Precision)},
		{"Output", FormatAmount(res.OutputAmount, out, u.Precision)},
		{"Gross", FormatAmount(res.GrossAmount, u.AssetDecimals, u.Precision)},
		{"Platform fee", FormatAmount(res.PlatformFee, u.AssetDecimals, u.Precision)},
		{"Creator fee", FormatAmount(res.CreatorFee, u.AssetDecimals, u.Precision)},
		{"Net", FormatAmount(res.NetAmount, u.AssetDecimals, u.Precision)},
		{"Price impact", FormatSignedBps(res.PriceImpactBps, 2)},
		{"Price after", res.ProjectedPrice.String()},
		{"Supply after", FormatAmount(res.ProjectedSupply, u.TokenDecimals, u.Precision)},
		{"Capped", yesNo(res.Capped)},
		{"Indicative", yesNo(res.Indicative)},
	}

	table := newTable(w)
	table.AppendBulk(data)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	table.Render()
}

// RenderLadder writes one row per quote, for comparing trade sizes.
func RenderLadder(w io.Writer, results []quote.Result, u Units) {
	table := newTable(w, "Input", "Output", "Fees", "Impact", "Price after", "Flags")
	for _, res := range results {
		in, out := u.AssetDecimals, u.TokenDecimals
		if res.Direction == quote.Sell {
			in, out = u.TokenDecimals, u.AssetDecimals
		}
		flags := ""
		if res.Capped {
			flags += "capped "
		}
		if res.HighImpact {
			flags += "high-impact"
		}
		table.Append([]string{
			FormatAmount(res.InputAmount, in, u.Precision),
			FormatAmount(res.OutputAmount, out, u.Precision),
			FormatAmount(res.FeeAmount, u.AssetDecimals, u.Precision),
			FormatSignedBps(res.PriceImpactBps, 2),
			res.ProjectedPrice.String(),
			flags,
		})
	}
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.Render()
}

// RenderSeries writes the (supply, price) points of a curve.
func RenderSeries(w io.Writer, points []curve.Point, u Units) {
	table := newTable(w, "#", "Supply", "Price")
	for i, p := range points {
		table.Append([]string{
			strconv.Itoa(i),
			FormatAmount(p.Supply, u.TokenDecimals, 0),
			p.Price.String(),
		})
	}
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	table.Render()
}

// RenderGraduation writes one row per criterion.
func RenderGraduation(w io.Writer, res graduation.Result) {
	table := newTable(w, "Criterion", "Configured", "Met", "Progress")
	rows := []struct {
		name string
		c    graduation.Condition
	}{
		{"Asset raised", res.Progress.AssetRaised},
		{"Supply sold", res.Progress.SupplySold},
		{"Time", res.Progress.Time},
	}
	for _, r := range rows {
		table.Append([]string{
			r.name,
			yesNo(r.c.Configured),
			yesNo(r.c.Satisfied),
			FormatPercentBps(int64(r.c.ProgressBps), 2),
		})
	}
	table.SetFooter([]string{"", "", "Status", string(res.Status)})
	table.Render()
}

// RenderState writes the curve totals.
func RenderState(w io.Writer, state curve.State, status string, u Units) {
	data := [][]string{
		{"Status", status},
		{"Curve", string(state.Kind())},
		{"Supply sold", FormatAmount(state.SupplySold, u.TokenDecimals, u.Precision)},
		{"Remaining", FormatAmount(state.Remaining(), u.TokenDecimals, u.Precision)},
		{"Asset reserves", FormatAmount(state.AssetReserves, u.AssetDecimals, u.Precision)},
		{"Fees collected", FormatAmount(state.FeesCollected, u.AssetDecimals, u.Precision)},
		{"Last price", state.LastPrice.String()},
	}
	table := newTable(w)
	table.AppendBulk(data)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	table.Render()
}

// TradeRow is one line of a settlement run. Error is empty for settled trades.
type TradeRow struct {
	Sequence  uint64
	Direction string
	Input     string
	Output    string
	ImpactBps int64
	Error     string
}

// RenderTrades writes a settlement run, rejected trades included.
func RenderTrades(w io.Writer, rows []TradeRow) {
	table := newTable(w, "Seq", "Side", "Input", "Output", "Impact", "Result")
	for _, r := range rows {
		seq, result := strconv.FormatUint(r.Sequence, 10), "settled"
		if r.Error != "" {
			seq, result = "-", r.Error
		}
		table.Append([]string{seq, r.Direction, r.Input, r.Output, FormatSignedBps(r.ImpactBps, 2), result})
	}
	table.Render()
}
