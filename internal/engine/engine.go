// Package engine drives the fetch, compute, decide, act cycle on a fixed
// cadence. One tick runs to completion before the next starts; a failed tick
// is logged and the next one runs on schedule.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/indicator"
	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/market"
	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/metrics"
	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/notify"
	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/oracle"
	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/position"
	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/risk"
	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/strategy"
	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/venue"
)

// MarketData supplies one spot snapshot and best-effort history per tick.
type MarketData interface {
	Snapshot(ctx context.Context) (market.Snapshot, error)
	History(ctx context.Context) (market.History, error)
}

// Options collects the engine's collaborators. Monitor and Notifier default
// when nil; Interval is floored at one second.
type Options struct {
	Symbol   string
	Interval time.Duration
	Data     MarketData
	Oracle   oracle.Oracle
	Venue    venue.Venue
	Monitor  *position.Monitor
	Policy   risk.Policy
	Notifier notify.Notifier
	Journal  *oracle.Journal
	Log      zerolog.Logger
}

// Engine owns the tick loop. No state survives between ticks except what the
// venue itself reports; position existence is re-read every cycle.
type Engine struct {
	symbol   string
	interval time.Duration
	data     MarketData
	oracle   oracle.Oracle
	venue    venue.Venue
	monitor  *position.Monitor
	policy   risk.Policy
	notifier notify.Notifier
	journal  *oracle.Journal
	log      zerolog.Logger
}

// New wires an engine from options.
func New(opts Options) *Engine {
	if opts.Interval < time.Second {
		opts.Interval = time.Second
	}
	if opts.Monitor == nil {
		opts.Monitor = position.NewMonitor(0, 0, 0)
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.NewLog(opts.Log)
	}
	return &Engine{
		symbol:   opts.Symbol,
		interval: opts.Interval,
		data:     opts.Data,
		oracle:   opts.Oracle,
		venue:    opts.Venue,
		monitor:  opts.Monitor,
		policy:   opts.Policy,
		notifier: opts.Notifier,
		journal:  opts.Journal,
		log:      opts.Log,
	}
}

// Run ticks immediately, then on every interval until the context ends.
// Ticks never overlap; a slow tick simply delays the next one.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info().Str("symbol", e.symbol).Dur("interval", e.interval).Msg("engine started")
	e.tickSafe(ctx)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			e.log.Info().Msg("engine stopped")
			return ctx.Err()
		case <-ticker.C:
			e.tickSafe(ctx)
		}
	}
}

// tickSafe isolates one cycle: errors and panics are counted and logged, and
// never escape to kill the loop.
func (e *Engine) tickSafe(ctx context.Context) {
	start := time.Now()
	metrics.TicksTotal.Inc()
	defer func() {
		metrics.TickDuration.Set(time.Since(start).Seconds())
		if r := recover(); r != nil {
			metrics.TickFailures.Inc()
			e.log.Error().Interface("panic", r).Msg("tick panicked")
		}
	}()
	if err := e.tick(ctx); err != nil {
		metrics.TickFailures.Inc()
		e.log.Error().Err(err).Msg("tick failed")
	}
}

type marketResult struct {
	snap market.Snapshot
	hist market.History
	err  error
}

type venueResult struct {
	pos        *position.Position
	posErr     error
	collateral float64
	collErr    error
}

func (e *Engine) tick(ctx context.Context) error {
	// Market data and venue state fetch independently; decisioning waits for
	// both to settle.
	mc := make(chan marketResult, 1)
	vc := make(chan venueResult, 1)
	go func() {
		snap, err := e.data.Snapshot(ctx)
		if err != nil {
			mc <- marketResult{err: err}
			return
		}
		hist, err := e.data.History(ctx)
		if err != nil {
			// History is best effort; short series degrade the indicators.
			e.log.Warn().Err(err).Msg("history fetch failed, degrading")
			hist = market.History{}
		}
		mc <- marketResult{snap: snap, hist: hist}
	}()
	go func() {
		var v venueResult
		v.pos, v.posErr = e.venue.Position(ctx)
		v.collateral, v.collErr = e.venue.Collateral(ctx)
		vc <- v
	}()
	m := <-mc
	v := <-vc

	if m.err != nil {
		return fmt.Errorf("market data: %w", m.err)
	}
	state := position.State{Current: v.pos, Certain: v.posErr == nil}
	if v.posErr != nil {
		e.log.Warn().Err(v.posErr).Msg("position query uncertain")
	} else if v.pos != nil {
		metrics.OpenPosition.Set(1)
	} else {
		metrics.OpenPosition.Set(0)
	}

	bundle := indicator.Compute(m.snap, m.hist)
	fc, err := e.oracle.Forecast(ctx, oracle.NewView(e.symbol, m.snap, bundle, v.pos))
	if err != nil {
		return fmt.Errorf("forecast: %w", err)
	}
	metrics.ForecastsTotal.Inc()
	if e.journal != nil {
		e.journal.Append(fc)
	}

	intent := strategy.Map(fc)
	decision := e.monitor.Decide(state, intent)
	e.log.Info().
		Str("trend", string(bundle.Trend)).
		Bool("degraded", bundle.Degraded).
		Str("direction", string(fc.Direction)).
		Float64("confidence", fc.Confidence).
		Str("action", string(intent.Action)).
		Bool("close", decision.Close).
		Str("open", string(decision.OpenSide)).
		Str("note", firstNonEmpty(decision.CloseReason, decision.Note)).
		Msg("decision")

	switch {
	case decision.Close:
		return e.closePosition(ctx, v.pos.Side, decision.CloseReason)
	case decision.OpenSide != "":
		return e.openPosition(ctx, v, decision)
	default:
		return nil
	}
}

func (e *Engine) closePosition(ctx context.Context, side position.Side, reason string) error {
	req := venue.NewCloseRequest(side)
	receipt, err := e.venue.Close(ctx, req)
	if err != nil {
		e.notifier.Notify(ctx, fmt.Sprintf("%s: close %s failed: %v", e.symbol, side, err))
		return fmt.Errorf("close: %w", err)
	}
	metrics.OrdersTotal.WithLabelValues("close", string(side)).Inc()
	metrics.OpenPosition.Set(0)
	e.log.Info().Str("side", string(side)).Str("reason", reason).Str("ref", receipt.Ref).Msg("position closed")
	e.notifier.Notify(ctx, fmt.Sprintf("%s: closed %s (%s)", e.symbol, side, reason))
	return nil
}

func (e *Engine) openPosition(ctx context.Context, v venueResult, decision position.Decision) error {
	if v.collErr != nil {
		metrics.SkipsTotal.WithLabelValues("collateral unknown").Inc()
		e.log.Warn().Err(v.collErr).Msg("collateral unknown, skipping open")
		return nil
	}
	ticket, err := e.policy.Size(v.collateral, decision.RiskFraction, e.venue.Limits())
	if errors.Is(err, risk.ErrCollateralBelowMinimum) || errors.Is(err, risk.ErrNotionalBelowMinimum) {
		// Under-funded is a skip, not a failure.
		metrics.SkipsTotal.WithLabelValues(err.Error()).Inc()
		e.log.Info().Err(err).Msg("sizing rejected, skipping open")
		return nil
	}
	if err != nil {
		return fmt.Errorf("sizing: %w", err)
	}

	req := venue.NewOpenRequest(decision.OpenSide, ticket)
	receipt, err := e.venue.Open(ctx, req)
	if err != nil {
		e.notifier.Notify(ctx, fmt.Sprintf("%s: open %s failed: %v", e.symbol, decision.OpenSide, err))
		return fmt.Errorf("open: %w", err)
	}
	metrics.OrdersTotal.WithLabelValues("open", string(decision.OpenSide)).Inc()
	metrics.OpenPosition.Set(1)
	e.log.Info().
		Str("side", string(decision.OpenSide)).
		Float64("notional", ticket.NotionalUSD).
		Float64("collateral", ticket.CollateralUSD).
		Float64("leverage", ticket.Leverage).
		Str("ref", receipt.Ref).
		Msg("position opened")
	e.notifier.Notify(ctx, fmt.Sprintf("%s: opened %s %.2f USD at %.1fx", e.symbol, decision.OpenSide, ticket.NotionalUSD, ticket.Leverage))
	return nil
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
