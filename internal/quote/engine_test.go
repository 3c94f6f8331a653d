package quote

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curvelaunch/internal/curve"
	"github.com/rovshanmuradov/curvelaunch/internal/fees"
	"github.com/rovshanmuradov/curvelaunch/internal/fixedpoint"
)

func amt(x uint64) fixedpoint.Amount { return fixedpoint.FromUint64(x) }

var (
	noFees  = fees.Rates{}
	someFee = fees.Rates{PlatformFeeBps: 100, CreatorFeeBps: 200}
)

func linearState(t *testing.T, maxSupply, supply uint64) curve.State {
	t.Helper()
	c := curve.Linear{Base: amt(1000), Slope: amt(10), Max: amt(maxSupply)}
	s, err := curve.NewState(c, amt(supply), amt(0))
	require.NoError(t, err)
	return s
}

func newTestEngine() *Engine {
	return NewEngine(zap.NewNop(), 0)
}

func TestQuoteBuyLinear(t *testing.T) {
	e := newTestEngine()
	state := linearState(t, 1_000_000, 0)

	res, err := e.QuoteBuy(state, noFees, amt(150_000))
	require.NoError(t, err)
	assert.Equal(t, Buy, res.Direction)
	assert.Equal(t, "150000", res.InputAmount.String())
	assert.Equal(t, "100", res.OutputAmount.String())
	assert.Equal(t, "100", res.ProjectedSupply.String())
	assert.Equal(t, "2000", res.ProjectedPrice.String())
	assert.Equal(t, int64(10_000), res.PriceImpactBps)
	assert.True(t, res.HighImpact)
	assert.False(t, res.Indicative)
	assert.False(t, res.Capped)
	assert.True(t, res.FeeAmount.IsZero())
}

func TestQuoteBuyChargesFeesBeforeCurve(t *testing.T) {
	e := newTestEngine()
	state := linearState(t, 1_000_000, 0)

	res, err := e.QuoteBuy(state, someFee, amt(150_000))
	require.NoError(t, err)
	assert.Equal(t, "1500", res.PlatformFee.String())
	assert.Equal(t, "3000", res.CreatorFee.String())
	assert.Equal(t, "4500", res.FeeAmount.String())
	assert.Equal(t, "145500", res.NetAmount.String())
	// cost(0,97) = 144045 <= 145500 < cost(0,98) = 146020
	assert.Equal(t, "97", res.OutputAmount.String())
	assert.Equal(t, "150000", res.InputAmount.String())
}

func TestQuoteBuyCurveExhausted(t *testing.T) {
	e := newTestEngine()
	c := curve.Linear{Base: amt(1), Max: amt(10)}
	state, err := curve.NewState(c, amt(10), amt(10))
	require.NoError(t, err)

	for _, in := range []uint64{0, 1, 1_000_000_000} {
		_, err := e.QuoteBuy(state, someFee, amt(in))
		assert.ErrorIs(t, err, ErrCurveExhausted, "amount %d", in)
	}
}

func TestQuoteBuyCappedAtMaxSupply(t *testing.T) {
	e := newTestEngine()
	state := linearState(t, 100, 0)

	res, err := e.QuoteBuy(state, someFee, amt(1_000_000))
	require.NoError(t, err)
	assert.True(t, res.Capped)
	assert.Equal(t, "100", res.OutputAmount.String())
	assert.Equal(t, "100", res.ProjectedSupply.String())
	assert.Equal(t, "2000", res.ProjectedPrice.String())

	// curve cost 150000 grossed up for 300 bps: ceil(150000 * 10000 / 9700)
	assert.Equal(t, "154640", res.InputAmount.String())
	assert.Equal(t, "1546", res.PlatformFee.String())
	assert.Equal(t, "3092", res.CreatorFee.String())
	assert.True(t, res.NetAmount.Gte(amt(150_000)))
}

func TestQuoteBuyCappedNeverExceedsInput(t *testing.T) {
	e := newTestEngine()
	state := linearState(t, 100, 0)

	res, err := e.QuoteBuy(state, noFees, amt(160_000))
	require.NoError(t, err)
	assert.True(t, res.Capped)
	assert.Equal(t, "150000", res.InputAmount.String())
	assert.Equal(t, "150000", res.NetAmount.String())

	// exactly the remaining cost is not a capped trade
	res, err = e.QuoteBuy(state, noFees, amt(150_000))
	require.NoError(t, err)
	assert.False(t, res.Capped)
	assert.Equal(t, "100", res.OutputAmount.String())
}

func exponentialState(t *testing.T, maxSupply, supply uint64) curve.State {
	t.Helper()
	c := curve.Exponential{
		Base:       amt(100),
		Multiplier: amt(2 << curve.FixedPointShift),
		Step:       amt(1000),
		Max:        amt(maxSupply),
	}
	s, err := curve.NewState(c, amt(supply), amt(0))
	require.NoError(t, err)
	return s
}

func TestQuoteBuyExponentialCappedAtMaxSupply(t *testing.T) {
	e := newTestEngine()
	state := exponentialState(t, 2500, 0)

	// trapezoid over [0, 2500]: (100 + 400) / 2 * 2500
	res, err := e.QuoteBuy(state, noFees, amt(1_000_000_000))
	require.NoError(t, err)
	assert.True(t, res.Capped)
	assert.True(t, res.Indicative)
	assert.Equal(t, "2500", res.OutputAmount.String())
	assert.Equal(t, "625000", res.InputAmount.String())
	assert.Equal(t, "625000", res.NetAmount.String())
	assert.Equal(t, "400", res.ProjectedPrice.String())

	res, err = e.QuoteBuy(state, someFee, amt(1_000_000_000))
	require.NoError(t, err)
	assert.True(t, res.Capped)
	// ceil(625000 * 10000 / 9700)
	assert.Equal(t, "644330", res.InputAmount.String())
	assert.True(t, res.NetAmount.Gte(amt(625_000)))

	// the slice walk needs 650000 to reach max supply; anything above the
	// remaining cost is refunded
	res, err = e.QuoteBuy(state, noFees, amt(650_000))
	require.NoError(t, err)
	assert.True(t, res.Capped)
	assert.Equal(t, "625000", res.InputAmount.String())

	// one unit short of the last slice stops at the step boundary
	res, err = e.QuoteBuy(state, noFees, amt(649_999))
	require.NoError(t, err)
	assert.False(t, res.Capped)
	assert.Equal(t, "2000", res.OutputAmount.String())
	assert.Equal(t, "649999", res.InputAmount.String())
}

func TestQuoteBuyRejectsStaleSnapshot(t *testing.T) {
	e := newTestEngine()
	state := linearState(t, 1_000_000, 50)
	state.LastPrice = amt(1)

	_, err := e.QuoteBuy(state, noFees, amt(1000))
	assert.ErrorIs(t, err, curve.ErrInvalidState)

	_, err = e.QuoteBuy(curve.State{}, noFees, amt(1000))
	assert.ErrorIs(t, err, curve.ErrUnsupportedCurveType)
}

func TestQuoteBuyInvalidFees(t *testing.T) {
	e := newTestEngine()
	_, err := e.QuoteBuy(linearState(t, 1000, 0), fees.Rates{PlatformFeeBps: 6000, CreatorFeeBps: 5000}, amt(1))
	assert.ErrorIs(t, err, fees.ErrInvalidFeeRate)
}

func TestQuoteBuyExponentialIsIndicative(t *testing.T) {
	e := newTestEngine()
	c := curve.Exponential{
		Base:       amt(100),
		Multiplier: amt(2 << curve.FixedPointShift),
		Step:       amt(1000),
		Max:        amt(10_000),
	}.WithIncrement(100)
	state, err := curve.NewState(c, amt(0), amt(0))
	require.NoError(t, err)

	res, err := e.QuoteBuy(state, noFees, amt(100_000))
	require.NoError(t, err)
	// nine 100-token slices at price 100, the tenth crosses into price 200
	assert.Equal(t, "900", res.OutputAmount.String())
	assert.Equal(t, "100", res.ProjectedPrice.String())
	assert.Equal(t, int64(0), res.PriceImpactBps)
	assert.True(t, res.Indicative)
	assert.False(t, res.HighImpact)
}

func TestQuoteSellLinear(t *testing.T) {
	e := newTestEngine()
	state := linearState(t, 1_000_000, 100)

	res, err := e.QuoteSell(state, noFees, amt(100))
	require.NoError(t, err)
	assert.Equal(t, Sell, res.Direction)
	assert.Equal(t, "100", res.InputAmount.String())
	assert.Equal(t, "150000", res.GrossAmount.String())
	assert.Equal(t, "150000", res.OutputAmount.String())
	assert.Equal(t, "0", res.ProjectedSupply.String())
	assert.Equal(t, "1000", res.ProjectedPrice.String())
	assert.Equal(t, int64(-5000), res.PriceImpactBps)
	assert.True(t, res.HighImpact)

	res, err = e.QuoteSell(state, someFee, amt(100))
	require.NoError(t, err)
	assert.Equal(t, "4500", res.FeeAmount.String())
	assert.Equal(t, "145500", res.OutputAmount.String())
	assert.Equal(t, res.OutputAmount, res.NetAmount)
}

func TestQuoteSellInsufficientSupply(t *testing.T) {
	e := newTestEngine()
	state := linearState(t, 1_000_000, 100)

	_, err := e.QuoteSell(state, noFees, amt(101))
	assert.ErrorIs(t, err, ErrInsufficientSupply)

	res, err := e.QuoteSell(state, noFees, amt(0))
	require.NoError(t, err)
	assert.True(t, res.OutputAmount.IsZero())
	assert.Equal(t, int64(0), res.PriceImpactBps)
}

func TestRoundTripYieldsNoProfit(t *testing.T) {
	e := newTestEngine()
	for _, rates := range []fees.Rates{noFees, someFee, {PlatformFeeBps: 1, CreatorFeeBps: 499}} {
		for _, in := range []uint64{1, 999, 10_000, 150_000, 7_654_321, 987_654_321} {
			state := linearState(t, 10_000_000, 5_000)

			buy, err := e.QuoteBuy(state, rates, amt(in))
			require.NoError(t, err)

			next, err := state.Settle(buy.ProjectedSupply, buy.NetAmount, buy.FeeAmount)
			require.NoError(t, err)

			sell, err := e.QuoteSell(next, rates, buy.OutputAmount)
			require.NoError(t, err)

			bound := new(big.Int).Sub(buy.InputAmount.Big(), buy.FeeAmount.Big())
			bound.Sub(bound, sell.FeeAmount.Big())
			assert.True(t, sell.OutputAmount.Big().Cmp(bound) <= 0,
				"rates %+v input %d: sold back for %s, bound %s", rates, in, sell.OutputAmount, bound)
		}
	}
}

func TestRoundTripExponential(t *testing.T) {
	e := newTestEngine()

	// within one step the walk and the single trapezoid agree
	state := exponentialState(t, 1_000_000, 0)
	buy, err := e.QuoteBuy(state, someFee, amt(154_640))
	require.NoError(t, err)
	require.Equal(t, "1000", buy.OutputAmount.String())
	next, err := state.Settle(buy.ProjectedSupply, buy.NetAmount, buy.FeeAmount)
	require.NoError(t, err)
	sell, err := e.QuoteSell(next, someFee, buy.OutputAmount)
	require.NoError(t, err)
	bound := new(big.Int).Sub(buy.InputAmount.Big(), buy.FeeAmount.Big())
	bound.Sub(bound, sell.FeeAmount.Big())
	assert.True(t, sell.OutputAmount.Big().Cmp(bound) <= 0)

	// across steps the sell prices [0, 2000] as one trapezoid (500000) while
	// the buy walked two slices (450000): the staircase approximation is not
	// arbitrage-free, and settlement has to guard its reserves
	buy, err = e.QuoteBuy(state, noFees, amt(450_000))
	require.NoError(t, err)
	require.Equal(t, "2000", buy.OutputAmount.String())
	next, err = state.Settle(buy.ProjectedSupply, buy.NetAmount, buy.FeeAmount)
	require.NoError(t, err)
	sell, err = e.QuoteSell(next, noFees, buy.OutputAmount)
	require.NoError(t, err)
	assert.Equal(t, "500000", sell.OutputAmount.String())
	assert.True(t, sell.GrossAmount.Gt(next.AssetReserves))
}

func TestHighImpactThreshold(t *testing.T) {
	state := linearState(t, 1_000_000, 0)

	// 150000 moves the price from 1000 to 2000: +10000 bps
	res, err := NewEngine(nil, 10_000).QuoteBuy(state, noFees, amt(150_000))
	require.NoError(t, err)
	assert.False(t, res.HighImpact)

	res, err = NewEngine(nil, 9_999).QuoteBuy(state, noFees, amt(150_000))
	require.NoError(t, err)
	assert.True(t, res.HighImpact)

	assert.Equal(t, int64(DefaultHighImpactBps), NewEngine(nil, 0).HighImpactBps())
}

func TestPriceImpactBps(t *testing.T) {
	tests := []struct {
		last, projected uint64
		want            int64
	}{
		{1000, 1000, 0},
		{1000, 1050, 500},
		{1000, 950, -500},
		{3, 4, 3333},
		{3, 2, -3333},
		{0, 100, 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d->%d", tt.last, tt.projected), func(t *testing.T) {
			got, err := priceImpactBps(amt(tt.last), amt(tt.projected))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuoteDispatch(t *testing.T) {
	e := newTestEngine()
	state := linearState(t, 1_000_000, 100)

	res, err := e.Quote(state, noFees, Sell, amt(100))
	require.NoError(t, err)
	assert.Equal(t, Sell, res.Direction)

	_, err = e.Quote(state, noFees, Direction("hold"), amt(1))
	assert.Error(t, err)
}

func TestLadder(t *testing.T) {
	e := newTestEngine()
	state := linearState(t, 1_000_000, 0)
	amounts := []fixedpoint.Amount{amt(1005), amt(150_000), amt(400_000), amt(0)}

	results, err := e.Ladder(context.Background(), state, noFees, Buy, amounts)
	require.NoError(t, err)
	require.Len(t, results, len(amounts))
	assert.Equal(t, "1", results[0].OutputAmount.String())
	assert.Equal(t, "100", results[1].OutputAmount.String())
	assert.Equal(t, "200", results[2].OutputAmount.String())
	assert.True(t, results[3].OutputAmount.IsZero())

	_, err = e.Ladder(context.Background(), state, noFees, Sell, []fixedpoint.Amount{amt(1)})
	assert.ErrorIs(t, err, ErrInsufficientSupply)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.Ladder(ctx, state, noFees, Buy, amounts)
	assert.True(t, errors.Is(err, context.Canceled))
}
