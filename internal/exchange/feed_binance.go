package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/market"
)

type binanceTicker struct {
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
	QuoteVolume        string `json:"quoteVolume"`
	HighPrice          string `json:"highPrice"`
	LowPrice           string `json:"lowPrice"`
}

func (f *Feed) fetchBinanceTicker(ctx context.Context) (market.Snapshot, error) {
	url := fmt.Sprintf("%s/api/v3/ticker/24hr?symbol=%s", f.binanceBase, f.symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return market.Snapshot{}, fmt.Errorf("create request: %w", err)
	}
	resp, err := f.httpc.Do(req)
	if err != nil {
		return market.Snapshot{}, fmt.Errorf("ticker fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return market.Snapshot{}, fmt.Errorf("ticker status %d", resp.StatusCode)
	}

	var t binanceTicker
	if err := json.NewDecoder(resp.Body).Decode(&t); err != nil {
		return market.Snapshot{}, fmt.Errorf("decode ticker: %w", err)
	}
	price, err := strconv.ParseFloat(t.LastPrice, 64)
	if err != nil {
		return market.Snapshot{}, fmt.Errorf("parse last price: %w", err)
	}
	change, err := strconv.ParseFloat(t.PriceChangePercent, 64)
	if err != nil {
		return market.Snapshot{}, fmt.Errorf("parse change pct: %w", err)
	}
	volume, err := strconv.ParseFloat(t.QuoteVolume, 64)
	if err != nil {
		return market.Snapshot{}, fmt.Errorf("parse quote volume: %w", err)
	}

	snap := market.Snapshot{
		Price:        price,
		Change24hPct: change,
		Volume24h:    volume,
		Ts:           time.Now().UTC(),
	}
	if high, err := strconv.ParseFloat(t.HighPrice, 64); err == nil {
		if low, err := strconv.ParseFloat(t.LowPrice, 64); err == nil {
			snap.High24h = market.Float(high)
			snap.Low24h = market.Float(low)
		}
	}
	return snap, nil
}

// fetchBinanceKlines pulls hourly candles; closes and volumes feed the
// indicator window. Failures here are the caller's to degrade on.
func (f *Feed) fetchBinanceKlines(ctx context.Context) (market.History, error) {
	url := fmt.Sprintf("%s/api/v3/klines?symbol=%s&interval=1h&limit=%d", f.binanceBase, f.symbol, historyLimit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return market.History{}, fmt.Errorf("create request: %w", err)
	}
	resp, err := f.httpc.Do(req)
	if err != nil {
		return market.History{}, fmt.Errorf("klines fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return market.History{}, fmt.Errorf("klines status %d", resp.StatusCode)
	}

	// Each kline is a mixed-type array:
	// [openTime, open, high, low, close, volume, closeTime, ...]
	var rows [][]any
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return market.History{}, fmt.Errorf("decode klines: %w", err)
	}

	h := market.History{}
	for _, row := range rows {
		if len(row) < 7 {
			continue
		}
		closeStr, ok1 := row[4].(string)
		volStr, ok2 := row[5].(string)
		closeTime, ok3 := row[6].(float64)
		if !ok1 || !ok2 || !ok3 {
			continue
		}
		px, err := strconv.ParseFloat(closeStr, 64)
		if err != nil {
			continue
		}
		vol, err := strconv.ParseFloat(volStr, 64)
		if err != nil {
			continue
		}
		ts := time.UnixMilli(int64(closeTime))
		h.Prices = append(h.Prices, market.PricePoint{Ts: ts, Close: px})
		h.Volumes = append(h.Volumes, market.VolumePoint{Ts: ts, Volume: vol})
	}
	return h, nil
}

type binanceMiniTicker struct {
	EventTime int64  `json:"E"`
	Close     string `json:"c"`
	Open      string `json:"o"`
	High      string `json:"h"`
	Low       string `json:"l"`
	Quote     string `json:"q"`
}

// runBinanceStream keeps the miniTicker stream connected, refreshing the
// snapshot cache on every message. Reconnects with capped backoff.
func (f *Feed) runBinanceStream(ctx context.Context) error {
	url := fmt.Sprintf("%s/ws/%s@miniTicker", f.binanceWsURL, strings.ToLower(f.symbol))
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := f.consumeMiniTicker(ctx, url); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.log.Warn().Err(err).Msg("binance stream disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

func (f *Feed) consumeMiniTicker(ctx context.Context, url string) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	f.log.Info().Str("provider", ProviderBinanceWS).Str("symbol", f.symbol).Msg("connected market data stream")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					f.log.Warn().Err(err).Msg("binance ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var mt binanceMiniTicker
		if err := json.Unmarshal(message, &mt); err != nil {
			f.log.Warn().Err(err).Msg("failed to decode miniTicker message")
			continue
		}
		snap, err := miniTickerSnapshot(mt)
		if err != nil {
			f.log.Warn().Err(err).Msg("invalid miniTicker payload")
			continue
		}
		f.store(snap)
	}
}

// miniTickerSnapshot derives a snapshot from one stream message. The stream
// has no percent-change field; it falls out of the 24h open and close.
func miniTickerSnapshot(mt binanceMiniTicker) (market.Snapshot, error) {
	px, err := strconv.ParseFloat(mt.Close, 64)
	if err != nil {
		return market.Snapshot{}, fmt.Errorf("parse close: %w", err)
	}
	open, err := strconv.ParseFloat(mt.Open, 64)
	if err != nil {
		return market.Snapshot{}, fmt.Errorf("parse open: %w", err)
	}
	if open <= 0 {
		return market.Snapshot{}, fmt.Errorf("non-positive 24h open %v", open)
	}
	quote, err := strconv.ParseFloat(mt.Quote, 64)
	if err != nil {
		return market.Snapshot{}, fmt.Errorf("parse quote volume: %w", err)
	}

	snap := market.Snapshot{
		Price:        px,
		Change24hPct: (px - open) / open * 100,
		Volume24h:    quote,
		Ts:           time.UnixMilli(mt.EventTime),
	}
	if high, err := strconv.ParseFloat(mt.High, 64); err == nil {
		if low, err := strconv.ParseFloat(mt.Low, 64); err == nil {
			snap.High24h = market.Float(high)
			snap.Low24h = market.Float(low)
		}
	}
	return snap, nil
}
