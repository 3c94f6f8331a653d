// ==============================================
// File: internal/curve/curve.go
// ==============================================

// Package curve implements the bonding-curve price functions: the
// instantaneous price at a given supply, the cost of moving supply across an
// interval, and the inverse (tokens obtainable for an asset amount).
//
// All functions are pure. Quantities are integer base units carried in
// fixedpoint.Amount; no floating point is used anywhere in this package.
package curve

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rovshanmuradov/curvelaunch/internal/fixedpoint"
)

var (
	ErrUnsupportedCurveType   = errors.New("unsupported curve type")
	ErrInvalidCurveParameters = errors.New("invalid curve parameters")
	ErrInvalidState           = errors.New("invalid bonding curve state")
)

// Kind names a curve shape. It is the serialised form used in config and
// launch files; in code the shape is carried by the concrete Curve type.
type Kind string

const (
	KindLinear      Kind = "linear"
	KindExponential Kind = "exponential"
)

// ParseKind maps a config string to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindLinear:
		return KindLinear, nil
	case KindExponential:
		return KindExponential, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCurveType, s)
	}
}

// Curve is the closed set of supported curve shapes. The unexported method
// keeps implementations inside this package: adding a shape means adding a
// type here that satisfies every method below.
type Curve interface {
	Kind() Kind
	BasePrice() fixedpoint.Amount
	MaxSupply() fixedpoint.Amount

	// Price returns the unit price at the given cumulative supply.
	Price(supply fixedpoint.Amount) (fixedpoint.Amount, error)
	// Cost returns the asset amount needed to move supply from start to end
	// (equivalently the gross proceeds of moving it back). end < start fails
	// with fixedpoint.ErrUnderflow; end == start costs 0.
	Cost(start, end fixedpoint.Amount) (fixedpoint.Amount, error)
	// TokensForAsset estimates how many tokens assetAmount buys starting at
	// currentSupply. The result never costs more than assetAmount.
	TokensForAsset(assetAmount, currentSupply fixedpoint.Amount) (fixedpoint.Amount, error)
	// Exact reports whether Cost is an exact integral of Price. Quotes on an
	// inexact curve are indicative only.
	Exact() bool
	// Validate checks the parameter invariants of the shape.
	Validate() error

	sealed()
}

// Parameters is the flat parameter bag used by serialised launch definitions.
// Slope is the linear slope, or the Q32.32 per-step multiplier for exponential
// curves. Step is only read by exponential curves.
type Parameters struct {
	BasePrice fixedpoint.Amount
	Slope     fixedpoint.Amount
	Step      fixedpoint.Amount
	MaxSupply fixedpoint.Amount
}

// New builds and validates the curve of the given kind from a parameter bag.
func New(kind Kind, p Parameters) (Curve, error) {
	var c Curve
	switch kind {
	case KindLinear:
		c = Linear{Base: p.BasePrice, Slope: p.Slope, Max: p.MaxSupply}
	case KindExponential:
		c = Exponential{Base: p.BasePrice, Multiplier: p.Slope, Step: p.Step, Max: p.MaxSupply}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedCurveType, kind)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// ParametersOf flattens a curve back into the serialised parameter bag.
func ParametersOf(c Curve) (Kind, Parameters, error) {
	switch v := c.(type) {
	case Linear:
		return KindLinear, Parameters{BasePrice: v.Base, Slope: v.Slope, MaxSupply: v.Max}, nil
	case Exponential:
		return KindExponential, Parameters{BasePrice: v.Base, Slope: v.Multiplier, Step: v.Step, MaxSupply: v.Max}, nil
	default:
		return "", Parameters{}, fmt.Errorf("%w: %T", ErrUnsupportedCurveType, c)
	}
}

// Price is the package-level form of c.Price. A nil curve fails with
// ErrUnsupportedCurveType.
func Price(c Curve, supply fixedpoint.Amount) (fixedpoint.Amount, error) {
	if c == nil {
		return fixedpoint.Amount{}, fmt.Errorf("%w: nil curve", ErrUnsupportedCurveType)
	}
	return c.Price(supply)
}

// Cost is the package-level form of c.Cost.
func Cost(c Curve, start, end fixedpoint.Amount) (fixedpoint.Amount, error) {
	if c == nil {
		return fixedpoint.Amount{}, fmt.Errorf("%w: nil curve", ErrUnsupportedCurveType)
	}
	return c.Cost(start, end)
}

// TokensForAsset is the package-level form of c.TokensForAsset.
func TokensForAsset(c Curve, assetAmount, currentSupply fixedpoint.Amount) (fixedpoint.Amount, error) {
	if c == nil {
		return fixedpoint.Amount{}, fmt.Errorf("%w: nil curve", ErrUnsupportedCurveType)
	}
	return c.TokensForAsset(assetAmount, currentSupply)
}

// supplyDelta returns end - start, or 0 when both are equal.
func supplyDelta(start, end fixedpoint.Amount) (fixedpoint.Amount, error) {
	delta, err := end.Sub(start)
	if err != nil {
		return fixedpoint.Amount{}, fmt.Errorf("supply range [%s, %s] is reversed: %w", start, end, err)
	}
	return delta, nil
}
