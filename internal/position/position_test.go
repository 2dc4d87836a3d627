package position

import (
	"testing"
	"time"

	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/strategy"
)

func openLong(entry, mark float64) *Position {
	return &Position{Side: Long, EntryPrice: Float(entry), MarkPrice: Float(mark)}
}

func TestFlipBeatsTakeProfit(t *testing.T) {
	m := NewMonitor(0, 0, 0)
	// +4% unrealized, above take profit, but the intent flipped short.
	state := State{Current: openLong(100, 104), Certain: true}
	d := m.Decide(state, strategy.TradeIntent{Action: strategy.OpenShort, RiskFraction: 0.3})
	if !d.Close || d.CloseReason != ReasonSignalFlipped {
		t.Fatalf("expected signal-flip close, got %+v", d)
	}
	if d.OpenSide != "" {
		t.Fatalf("flip must not reopen same tick, got open %s", d.OpenSide)
	}
}

func TestTakeProfitAndStopLoss(t *testing.T) {
	m := NewMonitor(0, 0, 0)
	hold := strategy.TradeIntent{Action: strategy.DoNothing}

	d := m.Decide(State{Current: openLong(100, 103.5), Certain: true}, hold)
	if !d.Close || d.CloseReason != ReasonTakeProfit {
		t.Fatalf("+3.5%% long should take profit, got %+v", d)
	}
	d = m.Decide(State{Current: openLong(100, 96.5), Certain: true}, hold)
	if !d.Close || d.CloseReason != ReasonStopLoss {
		t.Fatalf("-3.5%% long should stop out, got %+v", d)
	}
	d = m.Decide(State{Current: openLong(100, 102), Certain: true}, hold)
	if d.Close {
		t.Fatalf("+2%% long should hold, got close %q", d.CloseReason)
	}
}

func TestShortSideSign(t *testing.T) {
	m := NewMonitor(0, 0, 0)
	hold := strategy.TradeIntent{Action: strategy.DoNothing}

	short := &Position{Side: Short, EntryPrice: Float(100), MarkPrice: Float(96)}
	d := m.Decide(State{Current: short, Certain: true}, hold)
	if !d.Close || d.CloseReason != ReasonTakeProfit {
		t.Fatalf("short at -4%% mark should take profit, got %+v", d)
	}

	short.MarkPrice = Float(104)
	d = m.Decide(State{Current: short, Certain: true}, hold)
	if !d.Close || d.CloseReason != ReasonStopLoss {
		t.Fatalf("short at +4%% mark should stop out, got %+v", d)
	}
}

func TestUnknownPricesSkipThresholds(t *testing.T) {
	m := NewMonitor(0, 0, 0)
	hold := strategy.TradeIntent{Action: strategy.DoNothing}

	pos := &Position{Side: Long, MarkPrice: Float(200)} // entry unknown
	if d := m.Decide(State{Current: pos, Certain: true}, hold); d.Close {
		t.Fatalf("unknown entry must skip TP/SL, got close %q", d.CloseReason)
	}
	pos = &Position{Side: Long, EntryPrice: Float(100)} // mark unknown
	if d := m.Decide(State{Current: pos, Certain: true}, hold); d.Close {
		t.Fatalf("unknown mark must skip TP/SL, got close %q", d.CloseReason)
	}
}

func TestMaxAge(t *testing.T) {
	m := NewMonitor(0, 0, 0)
	now := time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	hold := strategy.TradeIntent{Action: strategy.DoNothing}

	opened := now.Add(-25 * time.Hour)
	pos := openLong(100, 101)
	pos.OpenedAt = &opened
	d := m.Decide(State{Current: pos, Certain: true}, hold)
	if !d.Close || d.CloseReason != ReasonMaxAge {
		t.Fatalf("25h-old position should close on age, got %+v", d)
	}

	recent := now.Add(-23 * time.Hour)
	pos.OpenedAt = &recent
	if d := m.Decide(State{Current: pos, Certain: true}, hold); d.Close {
		t.Fatalf("23h-old position should hold, got close %q", d.CloseReason)
	}

	pos.OpenedAt = nil // unknown open time skips the age trigger
	if d := m.Decide(State{Current: pos, Certain: true}, hold); d.Close {
		t.Fatalf("unknown open time must skip age trigger, got close %q", d.CloseReason)
	}
}

func TestSameSideIntentHolds(t *testing.T) {
	m := NewMonitor(0, 0, 0)
	state := State{Current: openLong(100, 101), Certain: true}
	intent := strategy.TradeIntent{Action: strategy.OpenLong, RiskFraction: 0.3}
	for i := 0; i < 3; i++ {
		d := m.Decide(state, intent)
		if d.Close || d.OpenSide != "" {
			t.Fatalf("same-side intent must hold without pyramiding (tick %d): %+v", i, d)
		}
	}
}

func TestUncertaintyBlocksOpen(t *testing.T) {
	m := NewMonitor(0, 0, 0)
	intent := strategy.TradeIntent{Action: strategy.OpenLong, RiskFraction: 0.3}

	d := m.Decide(State{Certain: false}, intent)
	if d.OpenSide != "" || d.Close {
		t.Fatalf("uncertain flat state must not open, got %+v", d)
	}

	// A separately sourced position still gets its close evaluated.
	d = m.Decide(State{Current: openLong(100, 96), Certain: false}, strategy.TradeIntent{Action: strategy.DoNothing})
	if !d.Close || d.CloseReason != ReasonStopLoss {
		t.Fatalf("uncertainty must not suppress closes, got %+v", d)
	}
}

func TestFlatOpenPaths(t *testing.T) {
	m := NewMonitor(0, 0, 0)
	d := m.Decide(State{Certain: true}, strategy.TradeIntent{Action: strategy.OpenShort, RiskFraction: 0.3})
	if d.OpenSide != Short || d.RiskFraction != 0.3 {
		t.Fatalf("expected short open at 0.3 risk, got %+v", d)
	}
	d = m.Decide(State{Certain: true}, strategy.TradeIntent{Action: strategy.DoNothing})
	if d.OpenSide != "" || d.Close {
		t.Fatalf("DoNothing from flat must stay flat, got %+v", d)
	}
}
