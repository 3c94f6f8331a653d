// internal/events/types.go
package events

import (
	"strconv"
	"time"

	"github.com/rovshanmuradov/curvelaunch/internal/fixedpoint"
)

// EventType represents the type of event.
type EventType string

const (
	// Trade events
	TradeSettled  EventType = "trade.settled"
	TradeRejected EventType = "trade.rejected"

	// Price events
	PriceUpdated EventType = "price.updated"

	// Launch lifecycle events
	StatusChanged      EventType = "launch.status_changed"
	GraduationEligible EventType = "launch.graduation_eligible"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
	LaunchID  string
}

// NewBase stamps an event of the given type for a launch.
func NewBase(t EventType, launchID string, at time.Time) BaseEvent {
	return BaseEvent{EventType: t, EventTime: at, LaunchID: launchID}
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// TradeSettledEvent is emitted after a trade has been applied to the curve.
// Amounts are in base units; the curve totals are the values after the trade.
type TradeSettledEvent struct {
	BaseEvent
	TradeID        string
	Sequence       uint64
	Direction      string
	Trader         string
	InputAmount    fixedpoint.Amount
	OutputAmount   fixedpoint.Amount
	PlatformFee    fixedpoint.Amount
	CreatorFee     fixedpoint.Amount
	PriceImpactBps int64
	SupplySold     fixedpoint.Amount
	AssetReserves  fixedpoint.Amount
	LastPrice      fixedpoint.Amount
	// PriceBefore is the curve price the trade started from.
	PriceBefore fixedpoint.Amount
}

// TradeSettledHeader names the columns of TradeSettledEvent.Record.
var TradeSettledHeader = []string{
	"timestamp", "launch_id", "sequence", "trade_id", "direction", "trader",
	"input", "output", "platform_fee", "creator_fee", "price_impact_bps",
	"supply_sold", "asset_reserves", "last_price",
}

// Record flattens the event into a CSV row in TradeSettledHeader order.
func (e TradeSettledEvent) Record() []string {
	return []string{
		e.EventTime.UTC().Format(time.RFC3339Nano),
		e.LaunchID,
		strconv.FormatUint(e.Sequence, 10),
		e.TradeID,
		e.Direction,
		e.Trader,
		e.InputAmount.String(),
		e.OutputAmount.String(),
		e.PlatformFee.String(),
		e.CreatorFee.String(),
		strconv.FormatInt(e.PriceImpactBps, 10),
		e.SupplySold.String(),
		e.AssetReserves.String(),
		e.LastPrice.String(),
	}
}

// TradeRejectedEvent is emitted when a submitted trade could not be settled.
type TradeRejectedEvent struct {
	BaseEvent
	TradeID   string
	Direction string
	Trader    string
	Kind      string // error classification, e.g. "SlippageExceeded"
	Error     error
}

// PriceUpdatedEvent is emitted when the curve price moves.
type PriceUpdatedEvent struct {
	BaseEvent
	OldPrice fixedpoint.Amount
	NewPrice fixedpoint.Amount
	// ChangeBps is signed: positive when the price rose.
	ChangeBps int64
}

// StatusChangedEvent is emitted on every launch status transition.
type StatusChangedEvent struct {
	BaseEvent
	From string
	To   string
}

// GraduationEligibleEvent is emitted once, when a trade makes the launch
// meet its graduation criteria.
type GraduationEligibleEvent struct {
	BaseEvent
	SupplySold    fixedpoint.Amount
	AssetReserves fixedpoint.Amount
}
