// ==============================================
// File: internal/launch/launch.go
// ==============================================

// Package launch describes a token launch: its metadata, curve, fee rates
// and graduation rules, together with the creation checks a launch must
// pass before any trade is priced against it.
package launch

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/curvelaunch/internal/curve"
	"github.com/rovshanmuradov/curvelaunch/internal/fees"
	"github.com/rovshanmuradov/curvelaunch/internal/fixedpoint"
	"github.com/rovshanmuradov/curvelaunch/internal/graduation"
)

// Limits enforced at creation.
const (
	MaxNameLength     = 32
	MaxSymbolLength   = 8
	MaxURILength      = 200
	MaxDecimals       = 9
	MaxCreatorFeeBps  = 500
	MaxPlatformFeeBps = 1000
)

var (
	ErrInvalidLaunch     = errors.New("invalid launch definition")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Status is the lifecycle state of a launch.
type Status string

const (
	StatusActive             Status = "active"
	StatusPaused             Status = "paused"
	StatusGraduationEligible Status = "graduation_eligible"
	StatusGraduated          Status = "graduated"
)

// ParseStatus maps a config string to a Status. Empty means active.
func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case "", StatusActive:
		return StatusActive, nil
	case StatusPaused, StatusGraduationEligible, StatusGraduated:
		return Status(s), nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidLaunch, s)
	}
}

// Trading reports whether trades may settle in this status. An eligible
// launch keeps trading until migration completes.
func (s Status) Trading() bool {
	return s == StatusActive || s == StatusGraduationEligible
}

var transitions = map[Status][]Status{
	StatusActive:             {StatusPaused, StatusGraduationEligible},
	StatusPaused:             {StatusActive},
	StatusGraduationEligible: {StatusPaused, StatusGraduated},
	StatusGraduated:          nil,
}

// CanTransition reports whether a launch may move from s to next.
func (s Status) CanTransition(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Transition returns next or ErrInvalidTransition.
func (s Status) Transition(next Status) (Status, error) {
	if !s.CanTransition(next) {
		return s, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s, next)
	}
	return next, nil
}

// Definition is a fully decoded launch.
type Definition struct {
	ID       string
	Name     string
	Symbol   string
	URI      string
	Decimals uint8
	Mint     solana.PublicKey
	Creator  solana.PublicKey

	// TotalSupply is the full token supply; the curve sells up to
	// Curve.MaxSupply() of it and the rest seeds the migrated pool.
	TotalSupply fixedpoint.Amount
	Curve       curve.Curve
	Fees        fees.Rates
	// PlatformFeeSet reports that Fees.PlatformFeeBps was given explicitly;
	// otherwise the deployment's configured platform fee applies.
	PlatformFeeSet bool
	Graduation     graduation.Criteria

	Status    Status
	CreatedAt time.Time

	// Initial is the curve position the launch resumes from.
	Initial Snapshot
}

// Snapshot is the stored, non-derived part of a curve.State.
type Snapshot struct {
	SupplySold    fixedpoint.Amount
	AssetReserves fixedpoint.Amount
	FeesCollected fixedpoint.Amount
}

// State builds the curve state for the initial snapshot.
func (d Definition) State() (curve.State, error) {
	s, err := curve.NewState(d.Curve, d.Initial.SupplySold, d.Initial.AssetReserves)
	if err != nil {
		return curve.State{}, fmt.Errorf("launch %q: %w", d.ID, err)
	}
	s.FeesCollected = d.Initial.FeesCollected
	return s, nil
}

// Validate applies the creation checks.
func (d Definition) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(d.ID != "", "id is required")
	check(d.Name != "", "name is required")
	check(len(d.Name) <= MaxNameLength, "name is %d bytes, max %d", len(d.Name), MaxNameLength)
	check(utf8.ValidString(d.Name), "name is not valid UTF-8")
	check(d.Symbol != "", "symbol is required")
	check(len(d.Symbol) <= MaxSymbolLength, "symbol is %d bytes, max %d", len(d.Symbol), MaxSymbolLength)
	check(len(d.URI) <= MaxURILength, "uri is %d bytes, max %d", len(d.URI), MaxURILength)
	check(d.Decimals <= MaxDecimals, "decimals %d exceeds %d", d.Decimals, MaxDecimals)
	check(!d.Mint.IsZero(), "mint is required")
	check(!d.Creator.IsZero(), "creator is required")
	check(d.Fees.CreatorFeeBps <= MaxCreatorFeeBps, "creator fee %d bps exceeds %d", d.Fees.CreatorFeeBps, MaxCreatorFeeBps)
	check(d.Fees.PlatformFeeBps <= MaxPlatformFeeBps, "platform fee %d bps exceeds %d", d.Fees.PlatformFeeBps, MaxPlatformFeeBps)

	if err := d.Fees.Validate(); err != nil {
		errs = append(errs, err)
	}
	if d.Curve == nil {
		errs = append(errs, fmt.Errorf("curve is required"))
	} else if err := d.Curve.Validate(); err != nil {
		errs = append(errs, err)
	} else {
		check(d.TotalSupply.IsZero() || d.TotalSupply.Gte(d.Curve.MaxSupply()),
			"total supply %s is below curve max supply %s", d.TotalSupply, d.Curve.MaxSupply())
		check(d.Initial.SupplySold.Lte(d.Curve.MaxSupply()),
			"supply sold %s exceeds curve max supply %s", d.Initial.SupplySold, d.Curve.MaxSupply())
	}
	if d.Graduation.TimeLimit != nil && !d.Graduation.TimeLimit.After(d.CreatedAt) {
		errs = append(errs, fmt.Errorf("graduation time limit %s is not after creation time %s",
			d.Graduation.TimeLimit.Format(time.RFC3339), d.CreatedAt.Format(time.RFC3339)))
	}
	if _, err := ParseStatus(string(d.Status)); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w %q: %w", ErrInvalidLaunch, d.ID, errors.Join(errs...))
	}
	return nil
}

// Criteria returns the graduation criteria with the window anchored at the
// creation time when no explicit start is set.
func (d Definition) Criteria() graduation.Criteria {
	c := d.Graduation
	if c.StartTime.IsZero() {
		c.StartTime = d.CreatedAt
	}
	return c
}
