// ==============================================
// File: internal/ledger/ledger.go
// ==============================================

// Package ledger settles trades against a single launch in process. It is a
// reference for what an on-chain program does with a quote: trades are
// admitted one at a time, re-quoted against the current curve state, checked
// against the caller's slippage bound and applied.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/curvelaunch/internal/curve"
	"github.com/rovshanmuradov/curvelaunch/internal/events"
	"github.com/rovshanmuradov/curvelaunch/internal/fixedpoint"
	"github.com/rovshanmuradov/curvelaunch/internal/graduation"
	"github.com/rovshanmuradov/curvelaunch/internal/launch"
	"github.com/rovshanmuradov/curvelaunch/internal/quote"
)

var (
	ErrLaunchNotActive      = errors.New("launch is not accepting trades")
	ErrInsufficientReserves = errors.New("insufficient asset reserves")
	ErrZeroAmount           = errors.New("trade amount must be positive")
	ErrZeroOutput           = errors.New("trade amount too small to produce any output")
)

// TradeRequest is a trade as submitted by a trader.
//
// ExpectedOut is the output the trader was quoted. When it is non-zero the
// settled output must be within MaxSlippageBps of it. MinOut is an absolute
// floor checked in addition.
type TradeRequest struct {
	Direction      quote.Direction
	Amount         fixedpoint.Amount
	ExpectedOut    fixedpoint.Amount
	MaxSlippageBps uint32
	MinOut         fixedpoint.Amount
	Trader         string
}

// Receipt describes a settled trade.
type Receipt struct {
	TradeID  string
	Sequence uint64
	Quote    quote.Result
	// State is the curve snapshot after the trade.
	State      curve.State
	Status     launch.Status
	Graduation graduation.Result
	SettledAt  time.Time
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithBus publishes ledger events on bus.
func WithBus(bus *events.Bus) Option {
	return func(l *Ledger) { l.bus = bus }
}

// Ledger owns the curve state of one launch. All methods are safe for
// concurrent use; trades settle in the order they acquire the lock.
type Ledger struct {
	mu       sync.Mutex
	def      launch.Definition
	state    curve.State
	status   launch.Status
	sequence uint64

	engine *quote.Engine
	bus    *events.Bus
	logger *zap.Logger
	now    func() time.Time
}

// New opens a ledger at the definition's initial snapshot.
func New(def launch.Definition, engine *quote.Engine, logger *zap.Logger, opts ...Option) (*Ledger, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if engine == nil {
		engine = quote.NewEngine(logger, 0)
	}
	state, err := def.State()
	if err != nil {
		return nil, err
	}
	l := &Ledger{
		def:    def,
		state:  state,
		status: def.Status,
		engine: engine,
		logger: logger.Named("ledger").With(zap.String("launch_id", def.ID)),
		now:    time.Now,
	}
	if l.status == "" {
		l.status = launch.StatusActive
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Snapshot returns the current curve state and status.
func (l *Ledger) Snapshot() (curve.State, launch.Status) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state, l.status
}

// Definition returns the launch the ledger settles.
func (l *Ledger) Definition() launch.Definition { return l.def }

// Quote prices a trade against the current state without settling it.
func (l *Ledger) Quote(direction quote.Direction, amount fixedpoint.Amount) (quote.Result, error) {
	l.mu.Lock()
	state := l.state
	l.mu.Unlock()
	return l.engine.Quote(state, l.def.Fees, direction, amount)
}

// Submit settles req against the current state. A rejected trade leaves the
// state untouched and is published as TradeRejected.
func (l *Ledger) Submit(ctx context.Context, req TradeRequest) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tradeID := uuid.New().String()
	receipt, err := l.settle(tradeID, req)
	if err != nil {
		l.logger.Info("Trade rejected",
			zap.String("trade_id", tradeID),
			zap.String("direction", string(req.Direction)),
			zap.Stringer("amount", req.Amount),
			zap.String("kind", string(Kind(err))),
			zap.Error(err))
		l.publish(events.TradeRejectedEvent{
			BaseEvent: events.NewBase(events.TradeRejected, l.def.ID, l.now()),
			TradeID:   tradeID,
			Direction: string(req.Direction),
			Trader:    req.Trader,
			Kind:      string(Kind(err)),
			Error:     err,
		})
		return Receipt{}, err
	}
	return receipt, nil
}

// settle runs with l.mu held.
func (l *Ledger) settle(tradeID string, req TradeRequest) (Receipt, error) {
	if !l.status.Trading() {
		return Receipt{}, fmt.Errorf("%w: status %s", ErrLaunchNotActive, l.status)
	}
	if req.Amount.IsZero() {
		return Receipt{}, ErrZeroAmount
	}

	res, err := l.engine.Quote(l.state, l.def.Fees, req.Direction, req.Amount)
	if err != nil {
		return Receipt{}, err
	}
	if res.OutputAmount.IsZero() {
		return Receipt{}, fmt.Errorf("%w: %s %s", ErrZeroOutput, req.Direction, req.Amount)
	}
	if !req.ExpectedOut.IsZero() {
		if err := quote.ValidateSlippage(req.ExpectedOut, res.OutputAmount, req.MaxSlippageBps, req.Direction); err != nil {
			return Receipt{}, err
		}
	}
	if res.OutputAmount.Lt(req.MinOut) {
		return Receipt{}, &quote.SlippageExceededError{
			Direction: req.Direction,
			Expected:  req.MinOut,
			Actual:    res.OutputAmount,
			Minimum:   req.MinOut,
		}
	}

	reserves, err := l.reservesAfter(res)
	if err != nil {
		return Receipt{}, err
	}
	collected, err := l.state.FeesCollected.Add(res.FeeAmount)
	if err != nil {
		return Receipt{}, fmt.Errorf("fees collected: %w", err)
	}
	next, err := l.state.Settle(res.ProjectedSupply, reserves, collected)
	if err != nil {
		return Receipt{}, err
	}

	prev := l.state
	l.state = next
	l.sequence++
	at := l.now()

	l.logger.Debug("Trade settled",
		zap.String("trade_id", tradeID),
		zap.Uint64("sequence", l.sequence),
		zap.String("direction", string(res.Direction)),
		zap.Stringer("input", res.InputAmount),
		zap.Stringer("output", res.OutputAmount),
		zap.Stringer("fees", res.FeeAmount),
		zap.Stringer("supply_sold", next.SupplySold),
		zap.Stringer("asset_reserves", next.AssetReserves),
		zap.Stringer("last_price", next.LastPrice))

	l.publish(events.TradeSettledEvent{
		BaseEvent:      events.NewBase(events.TradeSettled, l.def.ID, at),
		TradeID:        tradeID,
		Sequence:       l.sequence,
		Direction:      string(res.Direction),
		Trader:         req.Trader,
		InputAmount:    res.InputAmount,
		OutputAmount:   res.OutputAmount,
		PlatformFee:    res.PlatformFee,
		CreatorFee:     res.CreatorFee,
		PriceImpactBps: res.PriceImpactBps,
		SupplySold:     next.SupplySold,
		AssetReserves:  next.AssetReserves,
		LastPrice:      next.LastPrice,
		PriceBefore:    prev.LastPrice,
	})
	if !prev.LastPrice.Eq(next.LastPrice) {
		l.publish(events.PriceUpdatedEvent{
			BaseEvent: events.NewBase(events.PriceUpdated, l.def.ID, at),
			OldPrice:  prev.LastPrice,
			NewPrice:  next.LastPrice,
			ChangeBps: res.PriceImpactBps,
		})
	}

	grad, err := l.evaluateLocked(at)
	if err != nil {
		// the trade stands; a failed evaluation only delays eligibility
		l.logger.Error("Graduation evaluation failed", zap.Error(err))
	}

	return Receipt{
		TradeID:    tradeID,
		Sequence:   l.sequence,
		Quote:      res,
		State:      next,
		Status:     l.status,
		Graduation: grad,
		SettledAt:  at,
	}, nil
}

// reservesAfter applies a quote to the asset reserves. Buys add what is left
// after fees; sells pay the gross proceeds out of reserves.
func (l *Ledger) reservesAfter(res quote.Result) (fixedpoint.Amount, error) {
	if res.Direction == quote.Buy {
		r, err := l.state.AssetReserves.Add(res.NetAmount)
		if err != nil {
			return fixedpoint.Amount{}, fmt.Errorf("asset reserves: %w", err)
		}
		return r, nil
	}
	if res.GrossAmount.Gt(l.state.AssetReserves) {
		return fixedpoint.Amount{}, fmt.Errorf("%w: sell needs %s, reserves hold %s",
			ErrInsufficientReserves, res.GrossAmount, l.state.AssetReserves)
	}
	return l.state.AssetReserves.Sub(res.GrossAmount)
}

// CheckGraduation evaluates the criteria at the current time. Time-based
// criteria can be met without a trade, so callers may poll this.
func (l *Ledger) CheckGraduation() (graduation.Result, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.evaluateLocked(l.now())
}

func (l *Ledger) evaluateLocked(at time.Time) (graduation.Result, error) {
	res, err := graduation.Evaluate(l.state, l.def.Criteria(), at)
	if err != nil {
		return graduation.Result{}, err
	}
	if res.CanGraduate && l.status == launch.StatusActive {
		l.logger.Info("Launch eligible for graduation",
			zap.Stringer("supply_sold", l.state.SupplySold),
			zap.Stringer("asset_reserves", l.state.AssetReserves),
			zap.Uint32("asset_progress_bps", res.Progress.AssetRaised.ProgressBps),
			zap.Uint32("supply_progress_bps", res.Progress.SupplySold.ProgressBps),
			zap.Uint32("time_progress_bps", res.Progress.Time.ProgressBps))
		if err := l.transitionLocked(launch.StatusGraduationEligible, at); err != nil {
			return res, err
		}
		l.publish(events.GraduationEligibleEvent{
			BaseEvent:     events.NewBase(events.GraduationEligible, l.def.ID, at),
			SupplySold:    l.state.SupplySold,
			AssetReserves: l.state.AssetReserves,
		})
	}
	return res, nil
}

// Pause stops trading until Resume.
func (l *Ledger) Pause() error { return l.transition(launch.StatusPaused) }

// Resume reopens a paused launch.
func (l *Ledger) Resume() error { return l.transition(launch.StatusActive) }

// MarkGraduated records that liquidity migration completed. The launch must
// be graduation eligible.
func (l *Ledger) MarkGraduated() error { return l.transition(launch.StatusGraduated) }

func (l *Ledger) transition(next launch.Status) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transitionLocked(next, l.now())
}

func (l *Ledger) transitionLocked(next launch.Status, at time.Time) error {
	prev := l.status
	status, err := prev.Transition(next)
	if err != nil {
		return err
	}
	l.status = status
	l.logger.Info("Launch status changed",
		zap.String("from", string(prev)),
		zap.String("to", string(status)))
	l.publish(events.StatusChangedEvent{
		BaseEvent: events.NewBase(events.StatusChanged, l.def.ID, at),
		From:      string(prev),
		To:        string(status),
	})
	return nil
}

func (l *Ledger) publish(event events.Event) {
	if l.bus == nil {
		return
	}
	if err := l.bus.Publish(event); err != nil {
		l.logger.Warn("Event not published",
			zap.String("event_type", string(event.Type())),
			zap.Error(err))
	}
}

// Kind classifies a Submit error, adding the ledger's own failures to
// quote.ErrorKind.
func Kind(err error) quote.Kind {
	switch {
	case errors.Is(err, ErrLaunchNotActive):
		return KindLaunchNotActive
	case errors.Is(err, ErrInsufficientReserves):
		return KindInsufficientReserves
	case errors.Is(err, ErrZeroAmount), errors.Is(err, ErrZeroOutput):
		return KindZeroAmount
	case errors.Is(err, launch.ErrInvalidTransition):
		return KindInvalidTransition
	}
	return quote.ErrorKind(err)
}

const (
	KindLaunchNotActive      quote.Kind = "LaunchNotActive"
	KindInsufficientReserves quote.Kind = "InsufficientReserves"
	KindZeroAmount           quote.Kind = "ZeroAmount"
	KindInvalidTransition    quote.Kind = "InvalidTransition"
)
