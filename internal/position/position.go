// Package position supervises the lifecycle of the single position slot
// against objective exit rules.
package position

import (
	"time"

	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/strategy"
)

// Side is the direction of an open position.
type Side string

const (
	// Long profits when price rises.
	Long Side = "LONG"
	// Short profits when price falls.
	Short Side = "SHORT"
)

// Position is a per-tick snapshot of the venue's open position. Pointer
// fields are nil when the venue could not report them; the monitor skips the
// triggers that depend on a missing field rather than guessing.
type Position struct {
	Side       Side
	EntryPrice *float64
	MarkPrice  *float64
	SizeUSD    *float64
	OpenedAt   *time.Time
}

// UnrealizedPct returns the signed percent move in the position's favor.
// ok is false when entry or mark price is unknown.
func (p Position) UnrealizedPct() (pct float64, ok bool) {
	if p.EntryPrice == nil || p.MarkPrice == nil || *p.EntryPrice <= 0 {
		return 0, false
	}
	pct = (*p.MarkPrice - *p.EntryPrice) / *p.EntryPrice * 100
	if p.Side == Short {
		pct = -pct
	}
	return pct, true
}

// State carries what the engine learned about the slot this tick. Certain is
// false when the venue's open-position query could not be answered reliably;
// Current may still be populated from a separately sourced read.
type State struct {
	Current *Position
	Certain bool
}

// Decision is the monitor's verdict for one tick. At most one of Close and
// OpenSide is set; a flip closes only, with no same-tick reopen.
type Decision struct {
	Close        bool
	CloseReason  string
	OpenSide     Side
	RiskFraction float64
	Note         string
}

// Close reasons, also used as skip labels in logs and metrics.
const (
	ReasonSignalFlipped  = "signal flipped"
	ReasonCloseRequested = "close requested"
	ReasonTakeProfit     = "take profit"
	ReasonStopLoss       = "stop loss"
	ReasonMaxAge         = "max age"
)

// Monitor applies the exit rules. Zero thresholds take the defaults.
type Monitor struct {
	takeProfitPct float64
	stopLossPct   float64
	maxAge        time.Duration
	now           func() time.Time
}

const (
	defaultTakeProfitPct = 3.5
	defaultStopLossPct   = 3.5
	defaultMaxAge        = 24 * time.Hour
)

// NewMonitor builds a monitor; non-positive arguments fall back to the
// default +3.5% / -3.5% / 24h policy.
func NewMonitor(takeProfitPct, stopLossPct float64, maxAge time.Duration) *Monitor {
	if takeProfitPct <= 0 {
		takeProfitPct = defaultTakeProfitPct
	}
	if stopLossPct <= 0 {
		stopLossPct = defaultStopLossPct
	}
	if maxAge <= 0 {
		maxAge = defaultMaxAge
	}
	return &Monitor{
		takeProfitPct: takeProfitPct,
		stopLossPct:   stopLossPct,
		maxAge:        maxAge,
		now:           time.Now,
	}
}

// Decide evaluates one tick. With an open position the exit triggers run in
// precedence order: signal flip, take profit, stop loss, max age; anything
// else holds, including a same-side intent (no pyramiding). From flat, an
// open intent passes through only when the slot state is certain.
func (m *Monitor) Decide(state State, intent strategy.TradeIntent) Decision {
	if pos := state.Current; pos != nil {
		if flipped(pos.Side, intent.Action) {
			return Decision{Close: true, CloseReason: ReasonSignalFlipped}
		}
		if intent.Action == strategy.Close {
			return Decision{Close: true, CloseReason: ReasonCloseRequested}
		}
		if pct, ok := pos.UnrealizedPct(); ok {
			if pct >= m.takeProfitPct {
				return Decision{Close: true, CloseReason: ReasonTakeProfit}
			}
			if pct <= -m.stopLossPct {
				return Decision{Close: true, CloseReason: ReasonStopLoss}
			}
		}
		if pos.OpenedAt != nil && m.now().Sub(*pos.OpenedAt) >= m.maxAge {
			return Decision{Close: true, CloseReason: ReasonMaxAge}
		}
		return Decision{Note: "holding"}
	}

	switch intent.Action {
	case strategy.OpenLong, strategy.OpenShort:
		if !state.Certain {
			// Slot state unconfirmed: opening could double exposure.
			return Decision{Note: "position state uncertain, no open"}
		}
		side := Long
		if intent.Action == strategy.OpenShort {
			side = Short
		}
		return Decision{OpenSide: side, RiskFraction: intent.RiskFraction}
	default:
		return Decision{Note: "flat"}
	}
}

func flipped(side Side, action strategy.Action) bool {
	return (side == Long && action == strategy.OpenShort) ||
		(side == Short && action == strategy.OpenLong)
}

// Float is a convenience for building optional position fields.
func Float(v float64) *float64 { return &v }

// Time is a convenience for building optional position timestamps.
func Time(t time.Time) *time.Time { return &t }
