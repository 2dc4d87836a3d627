// Package oracle consumes the external forecast service through its
// request/response contract.
package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/forecast"
	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/indicator"
	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/market"
	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/position"
)

// Oracle produces one directional forecast per tick.
type Oracle interface {
	Forecast(ctx context.Context, view View) (*forecast.Forecast, error)
}

// View is the compact market picture posted to the forecast service.
type View struct {
	Symbol     string           `json:"symbol"`
	Price      float64          `json:"price"`
	Change24h  float64          `json:"change24hPct"`
	Volume24h  float64          `json:"volume24h"`
	Indicators indicator.Bundle `json:"indicators"`
	Position   *PositionSummary `json:"position,omitempty"`
}

// PositionSummary tells the oracle what the bot currently holds.
type PositionSummary struct {
	Side          position.Side `json:"side"`
	UnrealizedPct *float64      `json:"unrealizedPct,omitempty"`
}

// NewView assembles the oracle request from this tick's inputs.
func NewView(symbol string, snap market.Snapshot, bundle indicator.Bundle, pos *position.Position) View {
	v := View{
		Symbol:     symbol,
		Price:      snap.Price,
		Change24h:  snap.Change24hPct,
		Volume24h:  snap.Volume24h,
		Indicators: bundle,
	}
	if pos != nil {
		summary := &PositionSummary{Side: pos.Side}
		if pct, ok := pos.UnrealizedPct(); ok {
			summary.UnrealizedPct = &pct
		}
		v.Position = summary
	}
	return v
}

// Providers accepted by Build.
const (
	ProviderHTTP   = "http"
	ProviderStatic = "static"
)

// Client calls an HTTP forecast service and decodes its output strictly.
type Client struct {
	base   string
	apiKey string
	httpc  *http.Client
	log    zerolog.Logger
}

// NewClient constructs an HTTP oracle client. The API key is optional; when
// set it travels as a bearer token.
func NewClient(base, apiKey string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		base:   strings.TrimSuffix(base, "/"),
		apiKey: apiKey,
		httpc:  &http.Client{Timeout: timeout},
		log:    log,
	}
}

// SetHTTPClient overrides the HTTP client, used by tests.
func (c *Client) SetHTTPClient(httpc *http.Client) { c.httpc = httpc }

// Forecast posts the view and enforces the forecast contract on the reply.
// Contract violations fail the tick; there are no retries here.
func (c *Client) Forecast(ctx context.Context, view View) (*forecast.Forecast, error) {
	body, err := json.Marshal(view)
	if err != nil {
		return nil, fmt.Errorf("marshal view: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/v1/forecast", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forecast request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("forecast status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read forecast: %w", err)
	}
	return forecast.Decode(raw)
}

// Static always answers with a fixed direction and confidence, for tests and
// dry runs.
type Static struct {
	Direction   forecast.Direction
	Confidence  float64
	TargetPrice float64
}

// Forecast returns the configured answer stamped with the current time.
func (s Static) Forecast(ctx context.Context, view View) (*forecast.Forecast, error) {
	target := s.TargetPrice
	if target <= 0 {
		target = view.Price
	}
	return &forecast.Forecast{
		Timestamp:   time.Now().UTC(),
		Direction:   s.Direction,
		Confidence:  s.Confidence,
		TargetPrice: target,
		Rationale:   "static oracle",
	}, nil
}

// Build returns the oracle implementation matching the configured provider.
func Build(provider, base, apiKey string, timeout time.Duration, log zerolog.Logger) Oracle {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "", ProviderStatic:
		return Static{Direction: forecast.Long, Confidence: 0}
	default:
		return NewClient(base, apiKey, timeout, log)
	}
}
