// Package indicator derives trend, volatility, and momentum features from a
// spot snapshot plus best-effort historical series.
package indicator

import (
	"math"

	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/market"
)

// Trend labels the relationship between the short and long EMAs.
type Trend string

const (
	// TrendUp means the short EMA cleared the long EMA by the hysteresis band.
	TrendUp Trend = "UP"
	// TrendDown means the short EMA undercut the long EMA by the hysteresis band.
	TrendDown Trend = "DOWN"
	// TrendRange covers everything inside the band.
	TrendRange Trend = "RANGE"
)

const (
	shortPeriod      = 10
	longPeriod       = 50
	windowSize       = 48
	strengthLookback = 25
	volatilityWindow = 24
	volumeWindow     = 24
	minFullSeries    = 10

	// Hysteresis multipliers keep the trend label from flapping near EMA equality.
	upperBand = 1.002
	lowerBand = 0.998

	// Day-change thresholds used by the degraded path, in percent.
	degradedUpPct   = 0.2
	degradedDownPct = -0.2
)

// Bundle is the fixed set of indicators computed fresh every tick.
// VolumeTrendPct is nil when volume history is too short to compare windows.
// Degraded marks bundles built from the snapshot alone.
type Bundle struct {
	EMAShort         float64
	EMALong          float64
	Trend            Trend
	TrendStrengthPct float64
	VolatilityPct    float64
	VolumeTrendPct   *float64
	Degraded         bool
}

// Compute derives the bundle. A close series shorter than ten points (after
// dropping non-finite values) selects the degraded path; the call never fails.
func Compute(snap market.Snapshot, hist market.History) Bundle {
	closes := hist.Closes()
	if len(closes) < minFullSeries {
		return degraded(snap)
	}

	window := closes
	if len(window) > windowSize {
		window = window[len(window)-windowSize:]
	}

	b := Bundle{
		EMAShort: ema(window, min(shortPeriod, len(window))),
		EMALong:  ema(window, min(longPeriod, len(window))),
	}
	b.Trend = Classify(b.EMAShort, b.EMALong)
	b.TrendStrengthPct = strength(window, snap.Change24hPct)
	b.VolatilityPct = volatility(window)
	b.VolumeTrendPct = volumeTrend(hist.VolumeValues())
	return b
}

// Classify labels the trend from the two EMAs. Pure and deterministic, so
// repeated calls with identical inputs always agree.
func Classify(emaShort, emaLong float64) Trend {
	switch {
	case emaShort > emaLong*upperBand:
		return TrendUp
	case emaShort < emaLong*lowerBand:
		return TrendDown
	default:
		return TrendRange
	}
}

func degraded(snap market.Snapshot) Bundle {
	b := Bundle{
		EMAShort:         snap.Price,
		EMALong:          snap.Price,
		TrendStrengthPct: snap.Change24hPct,
		Degraded:         true,
	}
	switch {
	case snap.Change24hPct > degradedUpPct:
		b.Trend = TrendUp
	case snap.Change24hPct < degradedDownPct:
		b.Trend = TrendDown
	default:
		b.Trend = TrendRange
	}
	if high, low, ok := snap.DayRange(); ok && snap.Price > 0 {
		b.VolatilityPct = (high - low) / 2 / snap.Price * 100
	} else {
		b.VolatilityPct = 0.5 * math.Abs(snap.Change24hPct)
	}
	return b
}

// ema runs the standard exponential smoothing recurrence over the window,
// seeded by the first value, with k = 2/(period+1).
func ema(window []float64, period int) float64 {
	if len(window) == 0 {
		return 0
	}
	k := 2.0 / (float64(period) + 1)
	v := window[0]
	for _, x := range window[1:] {
		v = x*k + v*(1-k)
	}
	return v
}

// strength is the percent change from the close 25 samples back to the latest
// close, falling back to the 24h change when history is too short or the
// lookback close is not a usable divisor.
func strength(window []float64, change24hPct float64) float64 {
	if len(window) < strengthLookback {
		return change24hPct
	}
	base := window[len(window)-strengthLookback]
	if base <= 0 {
		return change24hPct
	}
	last := window[len(window)-1]
	return (last - base) / base * 100
}

// volatility is the population standard deviation of consecutive percent
// returns over the most recent 24 closes. Returns with a non-positive
// previous close are skipped rather than divided.
func volatility(window []float64) float64 {
	if len(window) > volatilityWindow {
		window = window[len(window)-volatilityWindow:]
	}
	returns := make([]float64, 0, len(window))
	for i := 1; i < len(window); i++ {
		prev := window[i-1]
		if prev <= 0 {
			continue
		}
		returns = append(returns, (window[i]-prev)/prev*100)
	}
	if len(returns) == 0 {
		return 0
	}
	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))
	var sq float64
	for _, r := range returns {
		d := r - mean
		sq += d * d
	}
	return math.Sqrt(sq / float64(len(returns)))
}

// volumeTrend compares the sum of the most recent 24 volume samples against
// the preceding 24. Nil when fewer than 48 samples exist or the preceding
// window carried no volume.
func volumeTrend(volumes []float64) *float64 {
	if len(volumes) < 2*volumeWindow {
		return nil
	}
	recent := volumes[len(volumes)-volumeWindow:]
	previous := volumes[len(volumes)-2*volumeWindow : len(volumes)-volumeWindow]
	var recentSum, prevSum float64
	for _, v := range recent {
		recentSum += v
	}
	for _, v := range previous {
		prevSum += v
	}
	if prevSum <= 0 {
		return nil
	}
	trend := (recentSum - prevSum) / prevSum * 100
	return &trend
}
