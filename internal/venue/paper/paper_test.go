package paper

import (
	"context"
	"math"
	"testing"

	"github.com/rs/zerolog"

	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/position"
	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/risk"
	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/venue"
)

func newTestVenue(mark *float64) (*Venue, *Ledger) {
	ledger := NewLedger(4)
	v := New("BTC", 1000, risk.Limits{MinNotionalUSD: 10, MinCollateralUSD: 10},
		func() float64 { return *mark }, zerolog.Nop(), ledger)
	return v, ledger
}

func TestOpenCloseLongPnL(t *testing.T) {
	mark := 100.0
	v, ledger := newTestVenue(&mark)
	ctx := context.Background()

	_, err := v.Open(ctx, venue.OpenRequest{ClientID: "a", Side: position.Long, NotionalUSD: 300, CollateralUSD: 300})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if free, _ := v.Collateral(ctx); free != 700 {
		t.Fatalf("expected 700 free collateral, got %.2f", free)
	}

	mark = 104
	pos, err := v.Position(ctx)
	if err != nil || pos == nil {
		t.Fatalf("expected open position, got %v %v", pos, err)
	}
	if *pos.EntryPrice != 100 || *pos.MarkPrice != 104 {
		t.Fatalf("unexpected entry/mark: %.2f/%.2f", *pos.EntryPrice, *pos.MarkPrice)
	}

	if _, err := v.Close(ctx, venue.CloseRequest{ClientID: "b", Side: position.Long, FullClose: true}); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if pnl := v.RealizedPnL(); math.Abs(pnl-12) > 1e-9 {
		t.Fatalf("expected +12 pnl on 300 notional over +4%%, got %.4f", pnl)
	}
	if free, _ := v.Collateral(ctx); math.Abs(free-1012) > 1e-9 {
		t.Fatalf("expected collateral 1012 after settle, got %.4f", free)
	}
	if pos, _ := v.Position(ctx); pos != nil {
		t.Fatalf("slot should be empty after close")
	}

	fills := ledger.Snapshot()
	if len(fills) != 2 || fills[0].Event != "open" || fills[1].Event != "close" {
		t.Fatalf("unexpected ledger contents: %+v", fills)
	}
}

func TestShortPnLSign(t *testing.T) {
	mark := 100.0
	v, _ := newTestVenue(&mark)
	ctx := context.Background()

	if _, err := v.Open(ctx, venue.OpenRequest{Side: position.Short, NotionalUSD: 200, CollateralUSD: 100}); err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	mark = 95
	if _, err := v.Close(ctx, venue.CloseRequest{Side: position.Short, FullClose: true}); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if pnl := v.RealizedPnL(); math.Abs(pnl-10) > 1e-9 {
		t.Fatalf("short gains when price falls: expected +10, got %.4f", pnl)
	}
}

func TestSingleSlot(t *testing.T) {
	mark := 100.0
	v, _ := newTestVenue(&mark)
	ctx := context.Background()

	if _, err := v.Open(ctx, venue.OpenRequest{Side: position.Long, NotionalUSD: 100, CollateralUSD: 100}); err != nil {
		t.Fatalf("first open failed: %v", err)
	}
	if _, err := v.Open(ctx, venue.OpenRequest{Side: position.Long, NotionalUSD: 100, CollateralUSD: 100}); err == nil {
		t.Fatalf("second open should be rejected while slot is occupied")
	}
}

func TestOpenRejections(t *testing.T) {
	mark := 100.0
	v, _ := newTestVenue(&mark)
	ctx := context.Background()

	if _, err := v.Open(ctx, venue.OpenRequest{Side: position.Long, NotionalUSD: 100, CollateralUSD: 2000}); err == nil {
		t.Fatalf("expected insufficient collateral error")
	}
	if _, err := v.Close(ctx, venue.CloseRequest{Side: position.Long}); err == nil {
		t.Fatalf("expected error closing an empty slot")
	}

	if _, err := v.Open(ctx, venue.OpenRequest{Side: position.Long, NotionalUSD: 100, CollateralUSD: 100}); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if _, err := v.Close(ctx, venue.CloseRequest{Side: position.Short}); err == nil {
		t.Fatalf("expected side-mismatch close rejection")
	}
}

func TestResolveMarket(t *testing.T) {
	mark := 100.0
	v, _ := newTestVenue(&mark)
	ref, err := v.ResolveMarket(position.Long)
	if err != nil {
		t.Fatalf("ResolveMarket returned error: %v", err)
	}
	if ref.Venue != "paper" || ref.Market == "" {
		t.Fatalf("unexpected market ref: %+v", ref)
	}
}
