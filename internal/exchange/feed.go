// Package exchange hosts market data connectors for the tracked instrument.
package exchange

import (
	"context"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/market"
)

const (
	// ProviderStub emits deterministic synthetic data (useful for tests/offline work).
	ProviderStub = "stub"
	// ProviderBinance polls Binance public REST endpoints.
	ProviderBinance = "binance"
	// ProviderBinanceWS streams the Binance miniTicker over websocket, caching
	// the latest snapshot; history still comes from REST.
	ProviderBinanceWS = "binancews"
	// ProviderDexScreener polls the Dexscreener HTTP API. Snapshot only: no
	// day range and no history, a live producer of the degraded path.
	ProviderDexScreener = "dexscreener"
)

// Feed is a pluggable per-tick market data source: one spot snapshot plus
// best-effort hourly history.
type Feed struct {
	provider     string
	symbol       string
	log          zerolog.Logger
	httpc        *http.Client
	binanceBase  string
	binanceWsURL string
	dexBase      string
	dexChain     string
	dexPair      string

	mu   sync.RWMutex
	last *market.Snapshot
}

// Option configures Feed construction parameters.
type Option func(*Feed)

const (
	defaultBinanceBase        = "https://api.binance.com"
	defaultBinanceWsURL       = "wss://stream.binance.com:9443"
	defaultDexScreenerBaseURL = "https://api.dexscreener.com"

	// historyLimit is the hourly kline depth requested, matching the
	// indicator working window.
	historyLimit = 48
)

// WithHTTPClient overrides the HTTP client used for REST calls.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Feed) {
		if c != nil {
			f.httpc = c
		}
	}
}

// WithBinanceBase overrides the Binance REST base URL.
func WithBinanceBase(base string) Option {
	return func(f *Feed) {
		if base != "" {
			f.binanceBase = strings.TrimSuffix(base, "/")
		}
	}
}

// WithBinanceWsURL overrides the Binance websocket base URL.
func WithBinanceWsURL(url string) Option {
	return func(f *Feed) {
		if url != "" {
			f.binanceWsURL = strings.TrimSuffix(url, "/")
		}
	}
}

// WithDexScreenerConfig injects base URL and pair coordinates for Dexscreener.
func WithDexScreenerConfig(baseURL, chain, pair string) Option {
	return func(f *Feed) {
		if baseURL != "" {
			f.dexBase = strings.TrimSuffix(baseURL, "/")
		}
		if chain != "" {
			f.dexChain = strings.ToLower(chain)
		}
		if pair != "" {
			f.dexPair = pair
		}
	}
}

// NewFeed constructs a feed backed by the requested provider.
func NewFeed(provider, symbol string, log zerolog.Logger, opts ...Option) *Feed {
	if provider == "" {
		provider = ProviderStub
	}
	f := &Feed{
		provider:     strings.ToLower(provider),
		symbol:       strings.ToUpper(strings.TrimSpace(symbol)),
		log:          log,
		httpc:        &http.Client{Timeout: 10 * time.Second},
		binanceBase:  defaultBinanceBase,
		binanceWsURL: defaultBinanceWsURL,
		dexBase:      defaultDexScreenerBaseURL,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Symbol returns the tracked instrument symbol.
func (f *Feed) Symbol() string { return f.symbol }

// Snapshot fetches the current spot state. A failure here aborts the caller's
// tick; there is no stale fallback except the websocket cache.
func (f *Feed) Snapshot(ctx context.Context) (market.Snapshot, error) {
	var (
		snap market.Snapshot
		err  error
	)
	switch f.provider {
	case ProviderBinance:
		snap, err = f.fetchBinanceTicker(ctx)
	case ProviderBinanceWS:
		if cached, ok := f.cached(); ok {
			snap = cached
		} else {
			// Stream not warm yet; REST covers the gap.
			snap, err = f.fetchBinanceTicker(ctx)
		}
	case ProviderDexScreener:
		snap, err = f.fetchDexScreener(ctx)
	default:
		snap = f.stubSnapshot()
	}
	if err != nil {
		return market.Snapshot{}, err
	}
	if err := snap.Validate(); err != nil {
		return market.Snapshot{}, err
	}
	f.store(snap)
	return snap, nil
}

// History fetches hourly close/volume series. Best effort: providers without
// history return an empty History and no error, degrading the indicators.
func (f *Feed) History(ctx context.Context) (market.History, error) {
	switch f.provider {
	case ProviderBinance, ProviderBinanceWS:
		return f.fetchBinanceKlines(ctx)
	case ProviderDexScreener:
		return market.History{}, nil
	default:
		return f.stubHistory(), nil
	}
}

// Run keeps streaming providers connected until the context is canceled.
// Poll-style providers have nothing to maintain and just wait.
func (f *Feed) Run(ctx context.Context) error {
	switch f.provider {
	case ProviderBinanceWS:
		return f.runBinanceStream(ctx)
	default:
		<-ctx.Done()
		return ctx.Err()
	}
}

// LastPrice returns the most recently observed spot price, zero before the
// first successful snapshot.
func (f *Feed) LastPrice() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.last == nil {
		return 0
	}
	return f.last.Price
}

func (f *Feed) cached() (market.Snapshot, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.last == nil {
		return market.Snapshot{}, false
	}
	return *f.last, true
}

func (f *Feed) store(snap market.Snapshot) {
	f.mu.Lock()
	f.last = &snap
	f.mu.Unlock()
}

func (f *Feed) stubSnapshot() market.Snapshot {
	return market.Snapshot{
		Price:        65000,
		Change24hPct: 1.2,
		Volume24h:    1.4e9,
		High24h:      market.Float(65900),
		Low24h:       market.Float(64100),
		Ts:           time.Now().UTC(),
	}
}

func (f *Feed) stubHistory() market.History {
	start := time.Now().UTC().Add(-historyLimit * time.Hour).Truncate(time.Hour)
	h := market.History{}
	for i := 0; i < historyLimit; i++ {
		ts := start.Add(time.Duration(i) * time.Hour)
		// Gentle rise with a small oscillation, enough to exercise the full path.
		px := 64000 + float64(i)*20 + 150*math.Sin(float64(i)/4)
		h.Prices = append(h.Prices, market.PricePoint{Ts: ts, Close: px})
		h.Volumes = append(h.Volumes, market.VolumePoint{Ts: ts, Volume: 2.5e7 + 1e6*float64(i%6)})
	}
	return h
}
