// Package strategy maps oracle forecasts onto bounded trade intents.
package strategy

import (
	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/forecast"
)

// Action enumerates what the engine may do with the single position slot.
type Action string

const (
	// OpenLong requests a new long position.
	OpenLong Action = "OPEN_LONG"
	// OpenShort requests a new short position.
	OpenShort Action = "OPEN_SHORT"
	// Close requests a full close of the current position.
	Close Action = "CLOSE"
	// DoNothing leaves the slot untouched this tick.
	DoNothing Action = "DO_NOTHING"
)

// Policy constants. Fixed by policy, never computed.
const (
	// ConfidenceFloor is the minimum oracle confidence that earns an open.
	ConfidenceFloor = 55.0
	// OpenRiskFraction is the share of collateral committed to a new position.
	OpenRiskFraction = 0.3
)

// TradeIntent is the mapper's output for one tick.
type TradeIntent struct {
	Action       Action
	RiskFraction float64
	Note         string
}

// Map converts a forecast into a trade intent. Pure and deterministic; any
// direction outside LONG/SHORT fails closed to DoNothing.
func Map(fc *forecast.Forecast) TradeIntent {
	if fc == nil || fc.Confidence < ConfidenceFloor {
		return TradeIntent{Action: DoNothing, Note: "confidence below floor"}
	}
	switch fc.Direction {
	case forecast.Long:
		return TradeIntent{Action: OpenLong, RiskFraction: OpenRiskFraction}
	case forecast.Short:
		return TradeIntent{Action: OpenShort, RiskFraction: OpenRiskFraction}
	default:
		return TradeIntent{Action: DoNothing, Note: "unrecognized direction"}
	}
}
