// ==============================================
// File: internal/quote/engine.go
// ==============================================

// Package quote composes the curve and fee models into buy and sell quotes.
//
// Quotes are computed against a read-only curve.State snapshot and never
// change it; applying a quoted trade is the settlement layer's job.
package quote

import (
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/curvelaunch/internal/curve"
	"github.com/rovshanmuradov/curvelaunch/internal/fees"
	"github.com/rovshanmuradov/curvelaunch/internal/fixedpoint"
)

// DefaultHighImpactBps flags trades that move the price by more than 5%.
const DefaultHighImpactBps = 500

// Result is the outcome of a hypothetical trade.
//
// For buys InputAmount is the asset actually consumed (less than the request
// when the curve caps the trade) and OutputAmount the tokens received. For
// sells InputAmount is the tokens sold and OutputAmount the net asset payout.
// GrossAmount is the asset amount fees were charged on, NetAmount what is
// left after fees.
type Result struct {
	Direction       Direction         `json:"direction"`
	InputAmount     fixedpoint.Amount `json:"input_amount"`
	OutputAmount    fixedpoint.Amount `json:"output_amount"`
	GrossAmount     fixedpoint.Amount `json:"gross_amount"`
	FeeAmount       fixedpoint.Amount `json:"fee_amount"`
	PlatformFee     fixedpoint.Amount `json:"platform_fee"`
	CreatorFee      fixedpoint.Amount `json:"creator_fee"`
	NetAmount       fixedpoint.Amount `json:"net_amount"`
	PriceImpactBps  int64             `json:"price_impact_bps"`
	ProjectedPrice  fixedpoint.Amount `json:"projected_price"`
	ProjectedSupply fixedpoint.Amount `json:"projected_supply"`
	// Capped is set when a buy was clamped to the remaining supply.
	Capped bool `json:"capped"`
	// Indicative is set for curves whose cost is an approximation.
	Indicative bool `json:"indicative"`
	HighImpact bool `json:"high_impact"`
}

// Engine produces quotes. It holds no curve state and is safe for
// concurrent use.
type Engine struct {
	logger        *zap.Logger
	highImpactBps int64
}

// NewEngine creates an engine. A nil logger disables logging and a zero
// threshold selects DefaultHighImpactBps.
func NewEngine(logger *zap.Logger, highImpactBps uint32) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if highImpactBps == 0 {
		highImpactBps = DefaultHighImpactBps
	}
	return &Engine{
		logger:        logger.Named("quote"),
		highImpactBps: int64(highImpactBps),
	}
}

// HighImpactBps returns the threshold above which a quote is flagged.
func (e *Engine) HighImpactBps() int64 { return e.highImpactBps }

// QuoteBuy quotes spending assetIn on the curve.
//
// Fees are taken from assetIn first and the remainder buys tokens. When that
// would sell past MaxSupply the trade is clamped to the remaining supply and
// InputAmount reports only the asset needed for it, fees included.
func (e *Engine) QuoteBuy(state curve.State, rates fees.Rates, assetIn fixedpoint.Amount) (Result, error) {
	if state.Curve == nil {
		return Result{}, fmt.Errorf("%w: nil curve", curve.ErrUnsupportedCurveType)
	}
	if state.Exhausted() {
		return Result{}, fmt.Errorf("%w: supply sold %s reached max supply %s",
			ErrCurveExhausted, state.SupplySold, state.Curve.MaxSupply())
	}
	if err := state.Validate(); err != nil {
		return Result{}, err
	}

	split, err := rates.Apply(assetIn)
	if err != nil {
		return Result{}, err
	}
	tokens, err := state.Curve.TokensForAsset(split.Net, state.SupplySold)
	if err != nil {
		return Result{}, fmt.Errorf("tokens for %s: %w", split.Net, err)
	}

	e.logger.Debug("Buy fee split",
		zap.Stringer("asset_in", assetIn),
		zap.Stringer("platform_fee", split.PlatformFee),
		zap.Stringer("creator_fee", split.CreatorFee),
		zap.Stringer("net_spendable", split.Net),
		zap.Stringer("tokens_uncapped", tokens))

	gross := assetIn
	remaining := state.Remaining()
	var capped bool
	var cost fixedpoint.Amount
	if tokens.Gte(remaining) {
		// an inverse that stops at max supply returns exactly the remaining
		// supply, so a cap also shows as net left over after buying all of it
		if cost, err = state.Curve.Cost(state.SupplySold, state.Curve.MaxSupply()); err != nil {
			return Result{}, fmt.Errorf("cost of remaining supply: %w", err)
		}
		capped = tokens.Gt(remaining) || split.Net.Gt(cost)
	}
	if capped {
		tokens = remaining
		needed, err := rates.GrossForNet(cost)
		if err != nil {
			return Result{}, err
		}
		gross = fixedpoint.Min(needed, assetIn)
		if split, err = rates.Apply(gross); err != nil {
			return Result{}, err
		}

		e.logger.Debug("Buy capped at max supply",
			zap.Stringer("tokens", tokens),
			zap.Stringer("curve_cost", cost),
			zap.Stringer("gross_consumed", gross),
			zap.Stringer("refund", mustSub(assetIn, gross)))
	}

	projectedSupply, err := state.SupplySold.Add(tokens)
	if err != nil {
		return Result{}, err
	}
	projectedPrice, err := state.Curve.Price(projectedSupply)
	if err != nil {
		return Result{}, fmt.Errorf("projected price: %w", err)
	}
	impact, err := priceImpactBps(state.LastPrice, projectedPrice)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Direction:       Buy,
		InputAmount:     gross,
		OutputAmount:    tokens,
		GrossAmount:     gross,
		FeeAmount:       split.Total,
		PlatformFee:     split.PlatformFee,
		CreatorFee:      split.CreatorFee,
		NetAmount:       split.Net,
		PriceImpactBps:  impact,
		ProjectedPrice:  projectedPrice,
		ProjectedSupply: projectedSupply,
		Capped:          capped,
		Indicative:      !state.Curve.Exact(),
		HighImpact:      abs(impact) > e.highImpactBps,
	}
	e.logResult(res, state)
	return res, nil
}

// QuoteSell quotes selling tokensIn back to the curve. The gross proceeds are
// the curve cost of the supply being returned; fees come out of them.
func (e *Engine) QuoteSell(state curve.State, rates fees.Rates, tokensIn fixedpoint.Amount) (Result, error) {
	if state.Curve == nil {
		return Result{}, fmt.Errorf("%w: nil curve", curve.ErrUnsupportedCurveType)
	}
	if tokensIn.Gt(state.SupplySold) {
		return Result{}, fmt.Errorf("%w: selling %s but only %s sold",
			ErrInsufficientSupply, tokensIn, state.SupplySold)
	}
	if err := state.Validate(); err != nil {
		return Result{}, err
	}

	projectedSupply, err := state.SupplySold.Sub(tokensIn)
	if err != nil {
		return Result{}, err
	}
	gross, err := state.Curve.Cost(projectedSupply, state.SupplySold)
	if err != nil {
		return Result{}, fmt.Errorf("sell proceeds: %w", err)
	}
	split, err := rates.Apply(gross)
	if err != nil {
		return Result{}, err
	}

	e.logger.Debug("Sell proceeds",
		zap.Stringer("tokens_in", tokensIn),
		zap.Stringer("gross", gross),
		zap.Stringer("platform_fee", split.PlatformFee),
		zap.Stringer("creator_fee", split.CreatorFee),
		zap.Stringer("net_payout", split.Net))

	projectedPrice, err := state.Curve.Price(projectedSupply)
	if err != nil {
		return Result{}, fmt.Errorf("projected price: %w", err)
	}
	impact, err := priceImpactBps(state.LastPrice, projectedPrice)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		Direction:       Sell,
		InputAmount:     tokensIn,
		OutputAmount:    split.Net,
		GrossAmount:     gross,
		FeeAmount:       split.Total,
		PlatformFee:     split.PlatformFee,
		CreatorFee:      split.CreatorFee,
		NetAmount:       split.Net,
		PriceImpactBps:  impact,
		ProjectedPrice:  projectedPrice,
		ProjectedSupply: projectedSupply,
		Indicative:      !state.Curve.Exact(),
		HighImpact:      abs(impact) > e.highImpactBps,
	}
	e.logResult(res, state)
	return res, nil
}

// Quote dispatches on direction.
func (e *Engine) Quote(state curve.State, rates fees.Rates, direction Direction, amountIn fixedpoint.Amount) (Result, error) {
	switch direction {
	case Buy:
		return e.QuoteBuy(state, rates, amountIn)
	case Sell:
		return e.QuoteSell(state, rates, amountIn)
	default:
		return Result{}, fmt.Errorf("unknown trade direction %q", direction)
	}
}

func (e *Engine) logResult(res Result, state curve.State) {
	e.logger.Debug("Quote computed",
		zap.String("direction", string(res.Direction)),
		zap.String("curve", string(state.Kind())),
		zap.Stringer("supply_sold", state.SupplySold),
		zap.Stringer("last_price", state.LastPrice),
		zap.Stringer("input", res.InputAmount),
		zap.Stringer("output", res.OutputAmount),
		zap.Stringer("fees", res.FeeAmount),
		zap.Stringer("projected_supply", res.ProjectedSupply),
		zap.Stringer("projected_price", res.ProjectedPrice),
		zap.Int64("price_impact_bps", res.PriceImpactBps),
		zap.Bool("indicative", res.Indicative))
	if res.HighImpact {
		e.logger.Warn("High price impact",
			zap.String("direction", string(res.Direction)),
			zap.Int64("price_impact_bps", res.PriceImpactBps),
			zap.Int64("threshold_bps", e.highImpactBps))
	}
}

// priceImpactBps returns (projected - last) * 10000 / last, truncated toward
// zero. It is 0 when last is 0.
func priceImpactBps(last, projected fixedpoint.Amount) (int64, error) {
	if last.IsZero() {
		return 0, nil
	}
	diff := new(big.Int).Sub(projected.Big(), last.Big())
	diff.Mul(diff, big.NewInt(fees.BpsDenominator))
	diff.Quo(diff, last.Big())
	if !diff.IsInt64() {
		return 0, fmt.Errorf("price impact from %s to %s: %w", last, projected, fixedpoint.ErrOverflow)
	}
	return diff.Int64(), nil
}

func abs(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}

// mustSub is for log fields where b <= a is already established.
func mustSub(a, b fixedpoint.Amount) fixedpoint.Amount {
	d, err := a.Sub(b)
	if err != nil {
		return fixedpoint.Zero()
	}
	return d
}
