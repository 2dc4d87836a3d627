// Package venue defines the capability surface of an execution venue and the
// opaque order requests handed to it.
package venue

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/position"
	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/risk"
)

// MarketRef identifies the venue market that trades one side of the
// instrument. Some perp venues list longs and shorts as separate markets.
type MarketRef struct {
	Venue  string
	Market string
}

// OpenRequest asks the venue for a new position. ClientID correlates the
// receipt with the request across retries and restarts.
type OpenRequest struct {
	ClientID      string
	Side          position.Side
	NotionalUSD   float64
	CollateralUSD float64
}

// CloseRequest asks the venue to flatten the current position entirely.
type CloseRequest struct {
	ClientID  string
	Side      position.Side
	FullClose bool
}

// Receipt is the venue's acknowledgement of a submitted request. Ref is the
// venue-native reference (transaction signature, order id).
type Receipt struct {
	ClientID    string
	Ref         string
	SubmittedAt time.Time
}

// Venue is the execution collaborator. The engine never constructs or signs
// anything itself; it hands structured requests to an implementation and
// re-reads position state fresh every tick.
type Venue interface {
	ResolveMarket(side position.Side) (MarketRef, error)
	Position(ctx context.Context) (*position.Position, error)
	Collateral(ctx context.Context) (float64, error)
	Limits() risk.Limits
	Open(ctx context.Context, req OpenRequest) (Receipt, error)
	Close(ctx context.Context, req CloseRequest) (Receipt, error)
}

// NewOpenRequest builds an open request from a sized ticket.
func NewOpenRequest(side position.Side, ticket risk.Ticket) OpenRequest {
	return OpenRequest{
		ClientID:      uuid.NewString(),
		Side:          side,
		NotionalUSD:   ticket.NotionalUSD,
		CollateralUSD: ticket.CollateralUSD,
	}
}

// NewCloseRequest builds a full-close request for the held side.
func NewCloseRequest(side position.Side) CloseRequest {
	return CloseRequest{ClientID: uuid.NewString(), Side: side, FullClose: true}
}
