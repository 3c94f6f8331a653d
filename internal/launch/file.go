// internal/launch/file.go
package launch

import (
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/curvelaunch/internal/curve"
	"github.com/rovshanmuradov/curvelaunch/internal/fees"
	"github.com/rovshanmuradov/curvelaunch/internal/fixedpoint"
	"github.com/rovshanmuradov/curvelaunch/internal/graduation"
)

// File is the on-disk shape of a launch. Amounts are strings so that values
// beyond 2^53 survive YAML and JSON decoding.
type File struct {
	ID          string         `mapstructure:"id"`
	Name        string         `mapstructure:"name"`
	Symbol      string         `mapstructure:"symbol"`
	URI         string         `mapstructure:"uri"`
	Decimals    uint8          `mapstructure:"decimals"`
	Mint        string         `mapstructure:"mint"`
	Creator     string         `mapstructure:"creator"`
	TotalSupply string         `mapstructure:"total_supply"`
	Status      string         `mapstructure:"status"`
	CreatedAt   string         `mapstructure:"created_at"`
	Curve       CurveFile      `mapstructure:"curve"`
	Fees        FeesFile       `mapstructure:"fees"`
	Graduation  GraduationFile `mapstructure:"graduation"`
	State       StateFile      `mapstructure:"state"`
}

// CurveFile holds the curve parameters. Exponential curves take the growth
// per step either as a decimal ratio (multiplier: "1.05") or as the raw
// Q32.32 integer (multiplier_q32).
type CurveFile struct {
	Type          string `mapstructure:"type"`
	BasePrice     string `mapstructure:"base_price"`
	Slope         string `mapstructure:"slope"`
	Multiplier    string `mapstructure:"multiplier"`
	MultiplierQ32 string `mapstructure:"multiplier_q32"`
	Step          string `mapstructure:"step"`
	MaxSupply     string `mapstructure:"max_supply"`
	// Increment is the exponential inverse slice size; 0 keeps the default.
	Increment uint64 `mapstructure:"increment"`
}

// FeesFile leaves PlatformFeeBps nil when the file omits it, so an explicit
// 0 can be told apart from "use the configured platform fee".
type FeesFile struct {
	PlatformFeeBps *uint16 `mapstructure:"platform_fee_bps"`
	CreatorFeeBps  uint16  `mapstructure:"creator_fee_bps"`
}

type GraduationFile struct {
	MinAssetRaised string `mapstructure:"min_asset_raised"`
	MinSupplySold  string `mapstructure:"min_supply_sold"`
	TimeLimit      string `mapstructure:"time_limit"`
}

type StateFile struct {
	SupplySold    string `mapstructure:"supply_sold"`
	AssetReserves string `mapstructure:"asset_reserves"`
	FeesCollected string `mapstructure:"fees_collected"`
}

// Load reads a launch file (YAML, JSON or TOML, by extension), decodes it and
// runs the creation checks.
func Load(path string) (Definition, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("decimals", 6)
	v.SetDefault("status", string(StatusActive))

	if err := v.ReadInConfig(); err != nil {
		return Definition{}, fmt.Errorf("read launch file %s: %w", path, err)
	}
	var f File
	if err := v.Unmarshal(&f); err != nil {
		return Definition{}, fmt.Errorf("decode launch file %s: %w", path, err)
	}
	d, err := f.Definition()
	if err != nil {
		return Definition{}, fmt.Errorf("launch file %s: %w", path, err)
	}
	if err := d.Validate(); err != nil {
		return Definition{}, err
	}
	return d, nil
}

// Definition converts the file form into typed values. It does not run
// Validate.
func (f File) Definition() (Definition, error) {
	d := Definition{
		ID:       f.ID,
		Name:     f.Name,
		Symbol:   f.Symbol,
		URI:      f.URI,
		Decimals: f.Decimals,
		Fees:     fees.Rates{CreatorFeeBps: f.Fees.CreatorFeeBps},
	}
	if f.Fees.PlatformFeeBps != nil {
		d.Fees.PlatformFeeBps = *f.Fees.PlatformFeeBps
		d.PlatformFeeSet = true
	}
	var err error

	if d.Mint, err = parseKey("mint", f.Mint); err != nil {
		return Definition{}, err
	}
	if d.Creator, err = parseKey("creator", f.Creator); err != nil {
		return Definition{}, err
	}
	if d.TotalSupply, err = parseAmount("total_supply", f.TotalSupply); err != nil {
		return Definition{}, err
	}
	if d.Status, err = ParseStatus(strings.ToLower(strings.TrimSpace(f.Status))); err != nil {
		return Definition{}, err
	}
	if f.CreatedAt != "" {
		if d.CreatedAt, err = time.Parse(time.RFC3339, f.CreatedAt); err != nil {
			return Definition{}, fmt.Errorf("%w: created_at: %w", ErrInvalidLaunch, err)
		}
	}
	if d.Curve, err = f.Curve.build(); err != nil {
		return Definition{}, err
	}
	if d.Graduation, err = f.Graduation.build(); err != nil {
		return Definition{}, err
	}
	if d.Initial.SupplySold, err = parseAmount("state.supply_sold", f.State.SupplySold); err != nil {
		return Definition{}, err
	}
	if d.Initial.AssetReserves, err = parseAmount("state.asset_reserves", f.State.AssetReserves); err != nil {
		return Definition{}, err
	}
	if d.Initial.FeesCollected, err = parseAmount("state.fees_collected", f.State.FeesCollected); err != nil {
		return Definition{}, err
	}
	return d, nil
}

func (c CurveFile) build() (curve.Curve, error) {
	kind, err := curve.ParseKind(c.Type)
	if err != nil {
		return nil, err
	}
	var p curve.Parameters
	if p.BasePrice, err = parseAmount("curve.base_price", c.BasePrice); err != nil {
		return nil, err
	}
	if p.MaxSupply, err = parseAmount("curve.max_supply", c.MaxSupply); err != nil {
		return nil, err
	}
	if p.Step, err = parseAmount("curve.step", c.Step); err != nil {
		return nil, err
	}

	switch kind {
	case curve.KindLinear:
		if p.Slope, err = parseAmount("curve.slope", c.Slope); err != nil {
			return nil, err
		}
	case curve.KindExponential:
		switch {
		case c.MultiplierQ32 != "":
			if p.Slope, err = parseAmount("curve.multiplier_q32", c.MultiplierQ32); err != nil {
				return nil, err
			}
		case c.Multiplier != "":
			if p.Slope, err = RatioToQ32(c.Multiplier); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("%w: exponential curve needs multiplier or multiplier_q32",
				curve.ErrInvalidCurveParameters)
		}
	}

	built, err := curve.New(kind, p)
	if err != nil {
		return nil, err
	}
	if exp, ok := built.(curve.Exponential); ok && c.Increment > 0 {
		built = exp.WithIncrement(c.Increment)
	}
	return built, nil
}

func (g GraduationFile) build() (graduation.Criteria, error) {
	var c graduation.Criteria
	if g.MinAssetRaised != "" {
		a, err := parseAmount("graduation.min_asset_raised", g.MinAssetRaised)
		if err != nil {
			return c, err
		}
		c.MinAssetRaised = &a
	}
	if g.MinSupplySold != "" {
		a, err := parseAmount("graduation.min_supply_sold", g.MinSupplySold)
		if err != nil {
			return c, err
		}
		c.MinSupplySold = &a
	}
	if g.TimeLimit != "" {
		t, err := time.Parse(time.RFC3339, g.TimeLimit)
		if err != nil {
			return c, fmt.Errorf("%w: graduation.time_limit: %w", ErrInvalidLaunch, err)
		}
		c.TimeLimit = &t
	}
	return c, nil
}

var q32One = decimal.NewFromInt(1 << curve.FixedPointShift)

// RatioToQ32 converts a decimal ratio such as "1.05" to Q32.32, truncating
// digits below 2^-32.
func RatioToQ32(ratio string) (fixedpoint.Amount, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(ratio))
	if err != nil {
		return fixedpoint.Amount{}, fmt.Errorf("%w: multiplier %q: %w", curve.ErrInvalidCurveParameters, ratio, err)
	}
	if d.IsNegative() {
		return fixedpoint.Amount{}, fmt.Errorf("%w: multiplier %q is negative", curve.ErrInvalidCurveParameters, ratio)
	}
	return fixedpoint.FromBig(d.Mul(q32One).Floor().BigInt())
}

// Q32ToRatio renders a Q32.32 value as a decimal ratio for display.
func Q32ToRatio(q fixedpoint.Amount) decimal.Decimal {
	return decimal.NewFromBigInt(q.Big(), 0).DivRound(q32One, 10)
}

func parseKey(field, s string) (solana.PublicKey, error) {
	if s == "" {
		return solana.PublicKey{}, nil
	}
	key, err := solana.PublicKeyFromBase58(strings.TrimSpace(s))
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %s %q: %w", ErrInvalidLaunch, field, s, err)
	}
	return key, nil
}

// parseAmount treats an empty string as zero.
func parseAmount(field, s string) (fixedpoint.Amount, error) {
	if strings.TrimSpace(s) == "" {
		return fixedpoint.Zero(), nil
	}
	a, err := fixedpoint.Parse(strings.TrimSpace(s))
	if err != nil {
		return fixedpoint.Amount{}, fmt.Errorf("%w: %s: %w", ErrInvalidLaunch, field, err)
	}
	return a, nil
}
