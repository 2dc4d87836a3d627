// Package market standardizes the market-data payloads shared between data
// ingestion and the decision pipeline.
package market

import (
	"fmt"
	"math"
	"time"
)

// Snapshot captures the spot state of the tracked instrument for one tick.
// High24h/Low24h are nil when the data source does not report a day range.
type Snapshot struct {
	Price        float64
	Change24hPct float64
	Volume24h    float64
	High24h      *float64
	Low24h       *float64
	Ts           time.Time
}

// DayRange returns the 24h high/low bounds when both are known.
func (s Snapshot) DayRange() (high, low float64, ok bool) {
	if s.High24h == nil || s.Low24h == nil {
		return 0, 0, false
	}
	return *s.High24h, *s.Low24h, true
}

// Validate rejects snapshots that cannot back a trading decision.
func (s Snapshot) Validate() error {
	if !isFinite(s.Price) || s.Price <= 0 {
		return fmt.Errorf("snapshot price %v not positive", s.Price)
	}
	if !isFinite(s.Change24hPct) {
		return fmt.Errorf("snapshot 24h change %v not finite", s.Change24hPct)
	}
	if !isFinite(s.Volume24h) || s.Volume24h < 0 {
		return fmt.Errorf("snapshot 24h volume %v negative", s.Volume24h)
	}
	if high, low, ok := s.DayRange(); ok {
		if !isFinite(high) || !isFinite(low) {
			return fmt.Errorf("snapshot day range %v/%v not finite", high, low)
		}
		if high < low {
			return fmt.Errorf("snapshot 24h high %v below low %v", high, low)
		}
	}
	return nil
}

// PricePoint is one historical close observation.
type PricePoint struct {
	Ts    time.Time
	Close float64
}

// VolumePoint is one historical volume observation.
type VolumePoint struct {
	Ts     time.Time
	Volume float64
}

// History carries best-effort historical series for the instrument. Either
// series may be short or empty; consumers degrade rather than fail.
type History struct {
	Prices  []PricePoint
	Volumes []VolumePoint
}

// Closes extracts the finite close values in chronological order.
func (h History) Closes() []float64 {
	out := make([]float64, 0, len(h.Prices))
	for _, p := range h.Prices {
		if isFinite(p.Close) {
			out = append(out, p.Close)
		}
	}
	return out
}

// VolumeValues extracts the finite volume values in chronological order.
func (h History) VolumeValues() []float64 {
	out := make([]float64, 0, len(h.Volumes))
	for _, v := range h.Volumes {
		if isFinite(v.Volume) {
			out = append(out, v.Volume)
		}
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Float is a convenience for building optional snapshot fields.
func Float(v float64) *float64 { return &v }
