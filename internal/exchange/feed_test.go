package exchange

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
)

func TestStubFeed(t *testing.T) {
	feed := NewFeed(ProviderStub, "BTCUSDT", zerolog.Nop())
	snap, err := feed.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot returned error: %v", err)
	}
	if snap.Price <= 0 {
		t.Fatalf("expected positive stub price, got %.2f", snap.Price)
	}
	if feed.LastPrice() != snap.Price {
		t.Fatalf("last price not cached")
	}

	hist, err := feed.History(context.Background())
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if len(hist.Prices) != historyLimit || len(hist.Volumes) != historyLimit {
		t.Fatalf("expected %d stub points, got %d/%d", historyLimit, len(hist.Prices), len(hist.Volumes))
	}
}

func TestBinanceSnapshot(t *testing.T) {
	const body = `{"lastPrice":"65000.10","priceChangePercent":"-1.25","quoteVolume":"1500000000","highPrice":"66000","lowPrice":"64000"}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/ticker/24hr" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("symbol") != "BTCUSDT" {
			t.Fatalf("missing symbol query")
		}
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	feed := NewFeed(ProviderBinance, "BTCUSDT", zerolog.Nop(),
		WithBinanceBase(server.URL), WithHTTPClient(server.Client()))
	snap, err := feed.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot returned error: %v", err)
	}
	if snap.Price != 65000.10 {
		t.Fatalf("unexpected price %.2f", snap.Price)
	}
	if snap.Change24hPct != -1.25 {
		t.Fatalf("unexpected change %.2f", snap.Change24hPct)
	}
	high, low, ok := snap.DayRange()
	if !ok || high != 66000 || low != 64000 {
		t.Fatalf("day range not decoded: %v %v %v", high, low, ok)
	}
}

func TestBinanceSnapshotFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	feed := NewFeed(ProviderBinance, "BTCUSDT", zerolog.Nop(),
		WithBinanceBase(server.URL), WithHTTPClient(server.Client()))
	if _, err := feed.Snapshot(context.Background()); err == nil {
		t.Fatalf("expected error on 429")
	}
}

func TestBinanceKlines(t *testing.T) {
	const body = `[
		[1717200000000,"64000","64500","63800","64200","123.4",1717203599999,"0",0,"0","0","0"],
		[1717203600000,"64200","64900","64100","64800","150.9",1717207199999,"0",0,"0","0","0"]
	]`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/klines" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("interval") != "1h" {
			t.Fatalf("expected hourly interval")
		}
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	feed := NewFeed(ProviderBinance, "BTCUSDT", zerolog.Nop(),
		WithBinanceBase(server.URL), WithHTTPClient(server.Client()))
	hist, err := feed.History(context.Background())
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if len(hist.Prices) != 2 || len(hist.Volumes) != 2 {
		t.Fatalf("expected 2 points, got %d/%d", len(hist.Prices), len(hist.Volumes))
	}
	if hist.Prices[1].Close != 64800 {
		t.Fatalf("unexpected close %.2f", hist.Prices[1].Close)
	}
	if hist.Volumes[0].Volume != 123.4 {
		t.Fatalf("unexpected volume %.2f", hist.Volumes[0].Volume)
	}
}

func TestMiniTickerSnapshot(t *testing.T) {
	mt := binanceMiniTicker{EventTime: 1717203600000, Close: "65650", Open: "65000", High: "65900", Low: "64800", Quote: "1200000000"}
	snap, err := miniTickerSnapshot(mt)
	if err != nil {
		t.Fatalf("miniTickerSnapshot returned error: %v", err)
	}
	if snap.Price != 65650 {
		t.Fatalf("unexpected price %.2f", snap.Price)
	}
	if snap.Change24hPct != 1.0 {
		t.Fatalf("expected +1%% change from open, got %.4f", snap.Change24hPct)
	}
	if _, _, ok := snap.DayRange(); !ok {
		t.Fatalf("expected day range present")
	}

	if _, err := miniTickerSnapshot(binanceMiniTicker{Close: "x", Open: "65000", Quote: "1"}); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestDexScreenerSnapshotDegrades(t *testing.T) {
	const body = `{"pairs":[{"chainId":"solana","pairAddress":"PAIR","priceUsd":"65210.5","volume":{"h24":9000000},"priceChange":{"h24":-2.1}}]}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/latest/dex/pairs/solana/PAIR" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	feed := NewFeed(ProviderDexScreener, "BTCUSDT", zerolog.Nop(),
		WithDexScreenerConfig(server.URL, "solana", "PAIR"), WithHTTPClient(server.Client()))
	snap, err := feed.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot returned error: %v", err)
	}
	if snap.Price != 65210.5 || snap.Change24hPct != -2.1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if _, _, ok := snap.DayRange(); ok {
		t.Fatalf("dexscreener should not report a day range")
	}

	hist, err := feed.History(context.Background())
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if len(hist.Prices) != 0 {
		t.Fatalf("dexscreener history should be empty")
	}
}
