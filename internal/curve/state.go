// internal/curve/state.go
package curve

import (
	"fmt"

	"github.com/rovshanmuradov/curvelaunch/internal/fixedpoint"
)

// State is a snapshot of a bonding curve as stored by the settlement layer.
//
// LastPrice is derived: it always equals Curve.Price(SupplySold). Snapshots
// are built with NewState or advanced with Settle, both of which recompute it.
type State struct {
	Curve         Curve
	SupplySold    fixedpoint.Amount
	AssetReserves fixedpoint.Amount
	FeesCollected fixedpoint.Amount
	LastPrice     fixedpoint.Amount
}

// NewState returns a validated snapshot with LastPrice filled in.
func NewState(c Curve, supplySold, assetReserves fixedpoint.Amount) (State, error) {
	if c == nil {
		return State{}, fmt.Errorf("%w: nil curve", ErrUnsupportedCurveType)
	}
	if err := c.Validate(); err != nil {
		return State{}, err
	}
	if supplySold.Gt(c.MaxSupply()) {
		return State{}, fmt.Errorf("%w: supply sold %s exceeds max supply %s",
			ErrInvalidState, supplySold, c.MaxSupply())
	}
	price, err := c.Price(supplySold)
	if err != nil {
		return State{}, err
	}
	return State{
		Curve:         c,
		SupplySold:    supplySold,
		AssetReserves: assetReserves,
		LastPrice:     price,
	}, nil
}

// Kind returns the curve kind of the snapshot.
func (s State) Kind() Kind {
	if s.Curve == nil {
		return ""
	}
	return s.Curve.Kind()
}

// Remaining is the supply still sellable through the curve.
func (s State) Remaining() fixedpoint.Amount {
	if s.Curve == nil {
		return fixedpoint.Zero()
	}
	left, err := s.Curve.MaxSupply().Sub(s.SupplySold)
	if err != nil {
		return fixedpoint.Zero()
	}
	return left
}

// Exhausted reports whether the whole max supply has been sold.
func (s State) Exhausted() bool {
	return s.Curve != nil && s.SupplySold.Gte(s.Curve.MaxSupply())
}

// Validate checks the snapshot invariants: a valid curve, supply within
// [0, MaxSupply] and LastPrice matching the curve at SupplySold.
func (s State) Validate() error {
	if s.Curve == nil {
		return fmt.Errorf("%w: nil curve", ErrUnsupportedCurveType)
	}
	if err := s.Curve.Validate(); err != nil {
		return err
	}
	if s.SupplySold.Gt(s.Curve.MaxSupply()) {
		return fmt.Errorf("%w: supply sold %s exceeds max supply %s",
			ErrInvalidState, s.SupplySold, s.Curve.MaxSupply())
	}
	price, err := s.Curve.Price(s.SupplySold)
	if err != nil {
		return err
	}
	if !price.Eq(s.LastPrice) {
		return fmt.Errorf("%w: last price %s does not match curve price %s at supply %s",
			ErrInvalidState, s.LastPrice, price, s.SupplySold)
	}
	return nil
}

// Settle returns the snapshot after a confirmed trade moved supply to
// newSupply and the reserve and fee totals to the given values. It refuses
// to move supply past MaxSupply and recomputes LastPrice.
func (s State) Settle(newSupply, assetReserves, feesCollected fixedpoint.Amount) (State, error) {
	next, err := NewState(s.Curve, newSupply, assetReserves)
	if err != nil {
		return State{}, err
	}
	next.FeesCollected = feesCollected
	return next, nil
}
