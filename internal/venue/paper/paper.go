// Package paper simulates an execution venue with a single leveraged
// position slot and a virtual collateral balance.
package paper

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/position"
	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/risk"
	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/venue"
)

// Fill records one simulated execution event.
type Fill struct {
	Ts            time.Time     `json:"ts"`
	Event         string        `json:"event"` // open | close
	Side          position.Side `json:"side"`
	NotionalUSD   float64       `json:"notional_usd"`
	CollateralUSD float64       `json:"collateral_usd"`
	Price         float64       `json:"price"`
	PnLUSD        float64       `json:"pnl_usd"`
	ClientID      string        `json:"client_id"`
}

// FillRecorder captures paper fills for later inspection.
type FillRecorder interface {
	Record(Fill)
}

const epsilon = 1e-9

type slotState struct {
	side       position.Side
	entryPrice float64
	notional   float64
	collateral float64
	openedAt   time.Time
}

// Venue tracks virtual collateral, realized PnL, and the one open slot while
// trading in paper mode. Marks come from the injected price source.
type Venue struct {
	mu         sync.Mutex
	log        zerolog.Logger
	symbol     string
	collateral float64
	realized   float64
	limits     risk.Limits
	mark       func() float64
	slot       *slotState
	recorders  []FillRecorder
	now        func() time.Time
}

// New constructs a paper venue funded with starting collateral. mark supplies
// the current price; fills are fanned out to every recorder.
func New(symbol string, startingCollateralUSD float64, limits risk.Limits, mark func() float64, log zerolog.Logger, recorders ...FillRecorder) *Venue {
	return &Venue{
		log:        log,
		symbol:     symbol,
		collateral: startingCollateralUSD,
		limits:     limits,
		mark:       mark,
		recorders:  recorders,
		now:        time.Now,
	}
}

// ResolveMarket returns the synthetic market ref for the requested side.
func (v *Venue) ResolveMarket(side position.Side) (venue.MarketRef, error) {
	return venue.MarketRef{Venue: "paper", Market: fmt.Sprintf("%s-PERP-%s", v.symbol, side)}, nil
}

// Limits reports the simulated venue floors.
func (v *Venue) Limits() risk.Limits { return v.limits }

// Position returns a fresh snapshot of the slot, marked at the current price.
func (v *Venue) Position(ctx context.Context) (*position.Position, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.slot == nil {
		return nil, nil
	}
	s := v.slot
	return &position.Position{
		Side:       s.side,
		EntryPrice: position.Float(s.entryPrice),
		MarkPrice:  position.Float(v.mark()),
		SizeUSD:    position.Float(s.notional),
		OpenedAt:   position.Time(s.openedAt),
	}, nil
}

// Collateral reports free collateral not locked in the slot.
func (v *Venue) Collateral(ctx context.Context) (float64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.collateral, nil
}

// Open locks collateral and fills the slot at the current mark.
func (v *Venue) Open(ctx context.Context, req venue.OpenRequest) (venue.Receipt, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.slot != nil {
		return venue.Receipt{}, errors.New("position slot occupied")
	}
	if req.CollateralUSD <= 0 || req.NotionalUSD <= 0 {
		return venue.Receipt{}, errors.New("open request must carry positive size")
	}
	if req.CollateralUSD > v.collateral+epsilon {
		return venue.Receipt{}, errors.New("insufficient collateral")
	}
	price := v.mark()
	if price <= 0 {
		return venue.Receipt{}, errors.New("no mark price available")
	}

	v.collateral -= req.CollateralUSD
	v.slot = &slotState{
		side:       req.Side,
		entryPrice: price,
		notional:   req.NotionalUSD,
		collateral: req.CollateralUSD,
		openedAt:   v.now(),
	}
	fill := Fill{
		Ts:            v.slot.openedAt,
		Event:         "open",
		Side:          req.Side,
		NotionalUSD:   req.NotionalUSD,
		CollateralUSD: req.CollateralUSD,
		Price:         price,
		ClientID:      req.ClientID,
	}
	v.record(fill)
	v.log.Info().Str("side", string(req.Side)).Float64("notional", req.NotionalUSD).Float64("px", price).Msg("paper open")
	return venue.Receipt{ClientID: req.ClientID, Ref: "paper-open", SubmittedAt: fill.Ts}, nil
}

// Close flattens the slot at the current mark and settles PnL into collateral.
func (v *Venue) Close(ctx context.Context, req venue.CloseRequest) (venue.Receipt, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.slot == nil {
		return venue.Receipt{}, errors.New("no open position")
	}
	if req.Side != "" && req.Side != v.slot.side {
		return venue.Receipt{}, fmt.Errorf("close side %s does not match open %s", req.Side, v.slot.side)
	}
	price := v.mark()
	if price <= 0 {
		return venue.Receipt{}, errors.New("no mark price available")
	}

	s := v.slot
	move := (price - s.entryPrice) / s.entryPrice
	if s.side == position.Short {
		move = -move
	}
	pnl := s.notional * move
	v.realized += pnl
	v.collateral += s.collateral + pnl
	v.slot = nil

	ts := v.now()
	fill := Fill{
		Ts:            ts,
		Event:         "close",
		Side:          s.side,
		NotionalUSD:   s.notional,
		CollateralUSD: s.collateral,
		Price:         price,
		PnLUSD:        pnl,
		ClientID:      req.ClientID,
	}
	v.record(fill)
	v.log.Info().Str("side", string(s.side)).Float64("px", price).Float64("pnl", pnl).Msg("paper close")
	return venue.Receipt{ClientID: req.ClientID, Ref: "paper-close", SubmittedAt: ts}, nil
}

// RealizedPnL returns total closed-trade profit and loss.
func (v *Venue) RealizedPnL() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.realized
}

func (v *Venue) record(fill Fill) {
	for _, r := range v.recorders {
		r.Record(fill)
	}
}
