// ==============================================
// File: internal/fees/fees.go
// ==============================================

// Package fees computes platform and creator fee splits in basis points.
package fees

import (
	"errors"
	"fmt"

	"github.com/rovshanmuradov/curvelaunch/internal/fixedpoint"
)

// BpsDenominator is 100% in basis points.
const BpsDenominator = 10_000

var ErrInvalidFeeRate = errors.New("invalid fee rate")

var denominator = fixedpoint.FromUint64(BpsDenominator)

// Rates holds the fee rates charged on every trade.
type Rates struct {
	PlatformFeeBps uint16 `mapstructure:"platform_fee_bps" json:"platform_fee_bps"`
	CreatorFeeBps  uint16 `mapstructure:"creator_fee_bps" json:"creator_fee_bps"`
}

// TotalBps returns the combined rate.
func (r Rates) TotalBps() uint32 {
	return uint32(r.PlatformFeeBps) + uint32(r.CreatorFeeBps)
}

// Validate checks each rate and their sum against 10000 bps.
func (r Rates) Validate() error {
	if r.PlatformFeeBps > BpsDenominator {
		return fmt.Errorf("%w: platform fee %d bps exceeds %d", ErrInvalidFeeRate, r.PlatformFeeBps, BpsDenominator)
	}
	if r.CreatorFeeBps > BpsDenominator {
		return fmt.Errorf("%w: creator fee %d bps exceeds %d", ErrInvalidFeeRate, r.CreatorFeeBps, BpsDenominator)
	}
	if r.TotalBps() > BpsDenominator {
		return fmt.Errorf("%w: platform %d + creator %d bps exceeds %d",
			ErrInvalidFeeRate, r.PlatformFeeBps, r.CreatorFeeBps, BpsDenominator)
	}
	return nil
}

// Split is the result of charging Rates on a gross amount.
type Split struct {
	PlatformFee fixedpoint.Amount
	CreatorFee  fixedpoint.Amount
	Total       fixedpoint.Amount // PlatformFee + CreatorFee
	Net         fixedpoint.Amount
}

// Fee returns floor(amount * bps / 10000).
func Fee(amount fixedpoint.Amount, bps uint32) (fixedpoint.Amount, error) {
	if bps > BpsDenominator {
		return fixedpoint.Amount{}, fmt.Errorf("%w: %d bps exceeds %d", ErrInvalidFeeRate, bps, BpsDenominator)
	}
	if bps == 0 {
		return fixedpoint.Zero(), nil
	}
	fee, err := amount.MulDiv(fixedpoint.FromUint64(uint64(bps)), denominator)
	if err != nil {
		return fixedpoint.Amount{}, fmt.Errorf("fee on %s at %d bps: %w", amount, bps, err)
	}
	return fee, nil
}

// NetAmount returns amount - Fee(amount, bps).
func NetAmount(amount fixedpoint.Amount, bps uint32) (fixedpoint.Amount, error) {
	fee, err := Fee(amount, bps)
	if err != nil {
		return fixedpoint.Amount{}, err
	}
	return amount.Sub(fee)
}

// SplitFees charges both rates on gross independently (each fee is floored on
// its own) and returns what is left.
func SplitFees(gross fixedpoint.Amount, platformBps, creatorBps uint16) (Split, error) {
	rates := Rates{PlatformFeeBps: platformBps, CreatorFeeBps: creatorBps}
	if err := rates.Validate(); err != nil {
		return Split{}, err
	}
	platform, err := Fee(gross, uint32(platformBps))
	if err != nil {
		return Split{}, err
	}
	creator, err := Fee(gross, uint32(creatorBps))
	if err != nil {
		return Split{}, err
	}
	total, err := platform.Add(creator)
	if err != nil {
		return Split{}, err
	}
	net, err := gross.Sub(total)
	if err != nil {
		return Split{}, err
	}
	return Split{PlatformFee: platform, CreatorFee: creator, Total: total, Net: net}, nil
}

// Apply is SplitFees with the receiver's rates.
func (r Rates) Apply(gross fixedpoint.Amount) (Split, error) {
	return SplitFees(gross, r.PlatformFeeBps, r.CreatorFeeBps)
}

// GrossForNet grosses net up by the combined rate:
// ceil(net * 10000 / (10000 - total bps)). Charging r on the result leaves at
// least net. It fails when the fees take the whole amount.
func (r Rates) GrossForNet(net fixedpoint.Amount) (fixedpoint.Amount, error) {
	if err := r.Validate(); err != nil {
		return fixedpoint.Amount{}, err
	}
	keep := BpsDenominator - r.TotalBps()
	if keep == 0 {
		return fixedpoint.Amount{}, fmt.Errorf("%w: fees consume the entire amount", ErrInvalidFeeRate)
	}
	scaled, err := net.Mul(denominator)
	if err != nil {
		return fixedpoint.Amount{}, err
	}
	return scaled.DivCeil(fixedpoint.FromUint64(uint64(keep)))
}
