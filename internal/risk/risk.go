// Package risk encodes guard-rails for how much size the engine may take on.
package risk

import (
	"errors"
	"fmt"
)

// ErrCollateralBelowMinimum rejects opens from an under-funded account.
var ErrCollateralBelowMinimum = errors.New("collateral below venue minimum")

// ErrNotionalBelowMinimum rejects orders too small for the venue.
var ErrNotionalBelowMinimum = errors.New("notional below venue minimum")

// Limits are the venue-defined floor constraints on a new position.
type Limits struct {
	MinNotionalUSD   float64
	MinCollateralUSD float64
	MinLeverage      float64
}

// Policy is the bot's own sizing ceiling, independent of any venue.
type Policy struct {
	NotionalCapUSD float64
}

// Ticket is a sized open request: what to post and what exposure to ask for.
type Ticket struct {
	NotionalUSD   float64
	CollateralUSD float64
	Leverage      float64
}

// Size converts available collateral and a risk fraction into a ticket.
// The target notional is the risk-fraction share of collateral, capped by the
// policy ceiling, then raised just enough to clear the venue's minimum
// leverage. Under-funded requests return a sentinel error and no ticket.
func (p Policy) Size(availableCollateralUSD, riskFraction float64, limits Limits) (Ticket, error) {
	if riskFraction <= 0 || riskFraction > 1 {
		return Ticket{}, fmt.Errorf("risk fraction %.2f outside (0,1]", riskFraction)
	}
	if availableCollateralUSD < limits.MinCollateralUSD {
		return Ticket{}, fmt.Errorf("%w: have %.2f, need %.2f",
			ErrCollateralBelowMinimum, availableCollateralUSD, limits.MinCollateralUSD)
	}

	target := availableCollateralUSD * riskFraction
	if p.NotionalCapUSD > 0 && target > p.NotionalCapUSD {
		target = p.NotionalCapUSD
	}
	if target < limits.MinNotionalUSD {
		return Ticket{}, fmt.Errorf("%w: sized %.2f, need %.2f",
			ErrNotionalBelowMinimum, target, limits.MinNotionalUSD)
	}

	ticket := Ticket{NotionalUSD: target, CollateralUSD: target, Leverage: 1}
	if limits.MinLeverage > 1 {
		floor := ticket.CollateralUSD * limits.MinLeverage
		if ticket.NotionalUSD < floor {
			ticket.NotionalUSD = floor
		}
	}
	if ticket.CollateralUSD > 0 {
		ticket.Leverage = ticket.NotionalUSD / ticket.CollateralUSD
	}
	return ticket, nil
}
