package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/market"
)

func hourlyHistory(closes []float64, volumes []float64) market.History {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	h := market.History{}
	for i, c := range closes {
		h.Prices = append(h.Prices, market.PricePoint{Ts: start.Add(time.Duration(i) * time.Hour), Close: c})
	}
	for i, v := range volumes {
		h.Volumes = append(h.Volumes, market.VolumePoint{Ts: start.Add(time.Duration(i) * time.Hour), Volume: v})
	}
	return h
}

func TestComputeShortSeriesUsesSnapshotPrice(t *testing.T) {
	snap := market.Snapshot{Price: 65000, Change24hPct: 1.4, Volume24h: 1e9}
	for n := 0; n < 10; n++ {
		closes := make([]float64, n)
		for i := range closes {
			closes[i] = 64000 + float64(i)*10
		}
		b := Compute(snap, hourlyHistory(closes, nil))
		if !b.Degraded {
			t.Fatalf("expected degraded bundle for %d closes", n)
		}
		if b.EMAShort != snap.Price || b.EMALong != snap.Price {
			t.Fatalf("expected EMAs pinned to spot for %d closes, got %.2f/%.2f", n, b.EMAShort, b.EMALong)
		}
		if b.VolumeTrendPct != nil {
			t.Fatalf("expected no volume trend on degraded path")
		}
	}
}

func TestDegradedTrendFromDayChange(t *testing.T) {
	cases := []struct {
		change float64
		want   Trend
	}{
		{1.0, TrendUp},
		{0.21, TrendUp},
		{0.2, TrendRange},
		{0.0, TrendRange},
		{-0.2, TrendRange},
		{-0.21, TrendDown},
		{-3.0, TrendDown},
	}
	for _, tc := range cases {
		b := Compute(market.Snapshot{Price: 100, Change24hPct: tc.change}, market.History{})
		if b.Trend != tc.want {
			t.Fatalf("change %.2f: expected %s, got %s", tc.change, tc.want, b.Trend)
		}
		if b.TrendStrengthPct != tc.change {
			t.Fatalf("change %.2f: expected strength passthrough, got %.2f", tc.change, b.TrendStrengthPct)
		}
	}
}

func TestDegradedVolatilityFromDayRange(t *testing.T) {
	snap := market.Snapshot{
		Price:        100,
		Change24hPct: -4,
		High24h:      market.Float(110),
		Low24h:       market.Float(90),
	}
	b := Compute(snap, market.History{})
	if math.Abs(b.VolatilityPct-10) > 1e-9 {
		t.Fatalf("expected half-range volatility 10%%, got %.4f", b.VolatilityPct)
	}

	snap.High24h, snap.Low24h = nil, nil
	b = Compute(snap, market.History{})
	if math.Abs(b.VolatilityPct-2) > 1e-9 {
		t.Fatalf("expected |change|/2 volatility 2%%, got %.4f", b.VolatilityPct)
	}
}

func TestComputeFullPathEMABounds(t *testing.T) {
	closes := make([]float64, 48)
	for i := range closes {
		closes[i] = 50000 + float64(i)*100 // strictly increasing
	}
	b := Compute(market.Snapshot{Price: closes[len(closes)-1]}, hourlyHistory(closes, nil))
	if b.Degraded {
		t.Fatalf("expected full path with 48 closes")
	}
	lo, hi := closes[0], closes[len(closes)-1]
	if b.EMAShort < lo || b.EMAShort > hi {
		t.Fatalf("short EMA %.2f escaped window bounds [%.2f, %.2f]", b.EMAShort, lo, hi)
	}
	if b.EMALong < lo || b.EMALong > hi {
		t.Fatalf("long EMA %.2f escaped window bounds [%.2f, %.2f]", b.EMALong, lo, hi)
	}
	if b.EMAShort <= b.EMALong {
		t.Fatalf("rising window should lift short EMA above long, got %.2f vs %.2f", b.EMAShort, b.EMALong)
	}
	if b.Trend != TrendUp {
		t.Fatalf("expected UP trend on rising window, got %s", b.Trend)
	}
}

func TestClassifyHysteresisBounds(t *testing.T) {
	const long = 1000.0
	cases := []struct {
		short float64
		want  Trend
	}{
		{long * 1.002, TrendRange}, // exactly on the band is not a breakout
		{long*1.002 + 1e-9, TrendUp},
		{long * 0.998, TrendRange},
		{long*0.998 - 1e-9, TrendDown},
		{long, TrendRange},
	}
	for _, tc := range cases {
		for i := 0; i < 3; i++ { // repeated calls must agree
			if got := Classify(tc.short, long); got != tc.want {
				t.Fatalf("short=%.9f: expected %s, got %s (call %d)", tc.short, tc.want, got, i)
			}
		}
	}
}

func TestComputeTrendRoundTrip(t *testing.T) {
	closes := make([]float64, 48)
	for i := range closes {
		closes[i] = 62000 + 300*math.Sin(float64(i)/5)
	}
	hist := hourlyHistory(closes, nil)
	snap := market.Snapshot{Price: closes[len(closes)-1], Change24hPct: 0.4}
	first := Compute(snap, hist)
	for i := 0; i < 5; i++ {
		again := Compute(snap, hist)
		if again.Trend != first.Trend || again.EMAShort != first.EMAShort || again.EMALong != first.EMALong {
			t.Fatalf("recompute diverged: %+v vs %+v", again, first)
		}
		if Classify(again.EMAShort, again.EMALong) != first.Trend {
			t.Fatalf("re-classification of same EMAs diverged")
		}
	}
}

func TestStrengthLookback(t *testing.T) {
	closes := make([]float64, 30)
	for i := range closes {
		closes[i] = 100
	}
	closes[len(closes)-strengthLookback] = 80 // base of the lookback
	closes[len(closes)-1] = 88
	b := Compute(market.Snapshot{Price: 88, Change24hPct: 5.5}, hourlyHistory(closes, nil))
	if math.Abs(b.TrendStrengthPct-10) > 1e-9 {
		t.Fatalf("expected 10%% strength from lookback, got %.4f", b.TrendStrengthPct)
	}

	short := closes[:20] // enough for full path, not for the lookback
	b = Compute(market.Snapshot{Price: 88, Change24hPct: 5.5}, hourlyHistory(short, nil))
	if b.TrendStrengthPct != 5.5 {
		t.Fatalf("expected 24h-change fallback, got %.4f", b.TrendStrengthPct)
	}
}

func TestVolatilitySkipsBadDivisors(t *testing.T) {
	closes := make([]float64, 12)
	for i := range closes {
		closes[i] = 100
	}
	closes[5] = 0 // zero previous close must be skipped, not divided
	b := Compute(market.Snapshot{Price: 100}, hourlyHistory(closes, nil))
	if math.IsNaN(b.VolatilityPct) || math.IsInf(b.VolatilityPct, 0) {
		t.Fatalf("volatility not finite: %v", b.VolatilityPct)
	}
}

func TestVolumeTrendRequiresTwoWindows(t *testing.T) {
	closes := make([]float64, 48)
	vols := make([]float64, 48)
	for i := range closes {
		closes[i] = 100
		if i < 24 {
			vols[i] = 100
		} else {
			vols[i] = 150
		}
	}
	b := Compute(market.Snapshot{Price: 100}, hourlyHistory(closes, vols))
	if b.VolumeTrendPct == nil {
		t.Fatalf("expected volume trend with 48 samples")
	}
	if math.Abs(*b.VolumeTrendPct-50) > 1e-9 {
		t.Fatalf("expected +50%% volume trend, got %.4f", *b.VolumeTrendPct)
	}

	b = Compute(market.Snapshot{Price: 100}, hourlyHistory(closes, vols[:47]))
	if b.VolumeTrendPct != nil {
		t.Fatalf("expected nil volume trend with 47 samples, got %.4f", *b.VolumeTrendPct)
	}
}

func TestVolumeTrendAbsentWhenShortOrEmptyPrior(t *testing.T) {
	closes := make([]float64, 48)
	for i := range closes {
		closes[i] = 100
	}
	short := make([]float64, 47)
	for i := range short {
		short[i] = 10
	}
	if b := Compute(market.Snapshot{Price: 100}, hourlyHistory(closes, short)); b.VolumeTrendPct != nil {
		t.Fatalf("expected nil volume trend below 48 samples")
	}

	zeros := make([]float64, 48)
	for i := 24; i < 48; i++ {
		zeros[i] = 5
	}
	if b := Compute(market.Snapshot{Price: 100}, hourlyHistory(closes, zeros)); b.VolumeTrendPct != nil {
		t.Fatalf("expected nil volume trend when prior window sums to zero")
	}
}

func TestComputeFiltersNonFiniteCloses(t *testing.T) {
	closes := []float64{100, math.NaN(), 101, math.Inf(1), 102}
	b := Compute(market.Snapshot{Price: 101.5, Change24hPct: 0.1}, hourlyHistory(closes, nil))
	if !b.Degraded {
		t.Fatalf("three finite closes should degrade")
	}
	if b.EMAShort != 101.5 {
		t.Fatalf("expected snapshot price EMAs, got %.2f", b.EMAShort)
	}
}
