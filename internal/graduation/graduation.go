// ==============================================
// File: internal/graduation/graduation.go
// ==============================================

// Package graduation decides when a launch may leave curve trading.
package graduation

import (
	"fmt"
	"time"

	"github.com/rovshanmuradov/curvelaunch/internal/curve"
	"github.com/rovshanmuradov/curvelaunch/internal/fees"
	"github.com/rovshanmuradov/curvelaunch/internal/fixedpoint"
)

// Status is the evaluator's view of a launch. GraduationEligible is terminal
// here; moving to Graduated happens once liquidity migration completes.
type Status string

const (
	StatusActive             Status = "active"
	StatusGraduationEligible Status = "graduation_eligible"
)

// Full is 100% in basis points.
const Full = fees.BpsDenominator

// Criteria are independent, optional thresholds combined with OR.
type Criteria struct {
	MinAssetRaised *fixedpoint.Amount `json:"min_asset_raised,omitempty"`
	MinSupplySold  *fixedpoint.Amount `json:"min_supply_sold,omitempty"`
	TimeLimit      *time.Time         `json:"time_limit,omitempty"`
	// StartTime opens the time window, normally the launch creation time.
	// It only feeds time progress.
	StartTime time.Time `json:"start_time,omitempty"`
}

// Configured reports whether any criterion is set.
func (c Criteria) Configured() bool {
	return c.MinAssetRaised != nil || c.MinSupplySold != nil || c.TimeLimit != nil
}

// Condition is the progress of one criterion. An unconfigured criterion
// reports full progress but is never Satisfied.
type Condition struct {
	Configured  bool   `json:"configured"`
	Satisfied   bool   `json:"satisfied"`
	ProgressBps uint32 `json:"progress_bps"`
}

// Percent is the progress in whole percent, floored.
func (c Condition) Percent() uint32 { return c.ProgressBps / 100 }

// Progress holds one Condition per criterion.
type Progress struct {
	AssetRaised Condition `json:"asset_raised"`
	SupplySold  Condition `json:"supply_sold"`
	Time        Condition `json:"time"`
}

// Result is the outcome of Evaluate.
type Result struct {
	CanGraduate bool     `json:"can_graduate"`
	Status      Status   `json:"status"`
	Progress    Progress `json:"progress"`
}

// Evaluate checks state against the criteria at now. CanGraduate is true once
// any configured criterion is satisfied; with nothing configured it is false.
func Evaluate(state curve.State, criteria Criteria, now time.Time) (Result, error) {
	asset, err := thresholdCondition(state.AssetReserves, criteria.MinAssetRaised)
	if err != nil {
		return Result{}, fmt.Errorf("asset raised progress: %w", err)
	}
	supply, err := thresholdCondition(state.SupplySold, criteria.MinSupplySold)
	if err != nil {
		return Result{}, fmt.Errorf("supply sold progress: %w", err)
	}
	elapsed := timeCondition(criteria.StartTime, criteria.TimeLimit, now)

	res := Result{
		Status: StatusActive,
		Progress: Progress{
			AssetRaised: asset,
			SupplySold:  supply,
			Time:        elapsed,
		},
	}
	for _, c := range []Condition{asset, supply, elapsed} {
		if c.Configured && c.Satisfied {
			res.CanGraduate = true
			res.Status = StatusGraduationEligible
			break
		}
	}
	return res, nil
}

func thresholdCondition(value fixedpoint.Amount, threshold *fixedpoint.Amount) (Condition, error) {
	if threshold == nil {
		return Condition{ProgressBps: Full}, nil
	}
	c := Condition{Configured: true, Satisfied: value.Gte(*threshold)}
	if c.Satisfied {
		c.ProgressBps = Full
		return c, nil
	}
	// threshold > value >= 0 here, so the ratio is below 10000
	bps, err := value.MulDiv(fixedpoint.FromUint64(Full), *threshold)
	if err != nil {
		return Condition{}, err
	}
	n, err := bps.Uint64()
	if err != nil {
		return Condition{}, err
	}
	c.ProgressBps = uint32(n)
	return c, nil
}

// timeCondition measures elapsed time from start to limit. Without a usable
// start the progress stays 0 until the limit passes.
func timeCondition(start time.Time, limit *time.Time, now time.Time) Condition {
	if limit == nil {
		return Condition{ProgressBps: Full}
	}
	c := Condition{Configured: true, Satisfied: !now.Before(*limit)}
	switch {
	case c.Satisfied:
		c.ProgressBps = Full
	case start.IsZero() || !start.Before(*limit) || !now.After(start):
		c.ProgressBps = 0
	default:
		total := limit.Sub(start).Milliseconds()
		if total > 0 {
			c.ProgressBps = uint32(now.Sub(start).Milliseconds() * Full / total)
		}
	}
	return c
}
