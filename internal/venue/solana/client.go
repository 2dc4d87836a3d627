// Package solana adapts a Solana perp DEX HTTP API as an execution venue.
// The API returns ready-to-sign transactions; this client signs them locally
// and submits via RPC.
package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog"

	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/position"
	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/risk"
	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/venue"
)

// Config carries the endpoints and market refs for the perp venue. Long and
// short expose separate market accounts on this venue.
type Config struct {
	RPCURL            string
	PerpBase          string
	Commitment        string // processed|confirmed|finalized
	LongMarket        string
	ShortMarket       string
	CollateralAccount string // token account holding the collateral asset
	Limits            risk.Limits
}

// Client talks to the perp API and the cluster RPC.
type Client struct {
	base              string
	rpc               *rpc.Client
	owner             solana.PrivateKey
	commit            rpc.CommitmentType
	httpc             *http.Client
	longMarket        string
	shortMarket       string
	collateralAccount solana.PublicKey
	limits            risk.Limits
	log               zerolog.Logger
}

// NewClient validates the config and builds a venue client.
func NewClient(cfg Config, owner solana.PrivateKey, log zerolog.Logger) (*Client, error) {
	if cfg.PerpBase == "" {
		return nil, errors.New("perp base URL required")
	}
	if cfg.RPCURL == "" {
		return nil, errors.New("rpc URL required")
	}
	if cfg.LongMarket == "" || cfg.ShortMarket == "" {
		return nil, errors.New("long and short market refs required")
	}
	account, err := solana.PublicKeyFromBase58(cfg.CollateralAccount)
	if err != nil {
		return nil, fmt.Errorf("collateral account: %w", err)
	}
	commit := rpc.CommitmentConfirmed
	switch cfg.Commitment {
	case "processed":
		commit = rpc.CommitmentProcessed
	case "finalized":
		commit = rpc.CommitmentFinalized
	}
	return &Client{
		base:              cfg.PerpBase,
		rpc:               rpc.New(cfg.RPCURL),
		owner:             owner,
		commit:            commit,
		httpc:             &http.Client{Timeout: 8 * time.Second},
		longMarket:        cfg.LongMarket,
		shortMarket:       cfg.ShortMarket,
		collateralAccount: account,
		limits:            cfg.Limits,
		log:               log,
	}, nil
}

// SetHTTPClient overrides the API client, used by tests.
func (c *Client) SetHTTPClient(httpc *http.Client) { c.httpc = httpc }

// ResolveMarket maps a side onto its market account.
func (c *Client) ResolveMarket(side position.Side) (venue.MarketRef, error) {
	switch side {
	case position.Long:
		return venue.MarketRef{Venue: "solana", Market: c.longMarket}, nil
	case position.Short:
		return venue.MarketRef{Venue: "solana", Market: c.shortMarket}, nil
	default:
		return venue.MarketRef{}, fmt.Errorf("unknown side %q", side)
	}
}

// Limits reports the venue floors configured for this deployment.
func (c *Client) Limits() risk.Limits { return c.limits }

type positionsResponse struct {
	Positions []apiPosition `json:"positions"`
}

// apiPosition keeps every numeric optional: the venue omits fields it cannot
// price yet (fresh positions, stale oracles).
type apiPosition struct {
	Market     string   `json:"market"`
	Side       string   `json:"side"`
	EntryPrice *float64 `json:"entryPrice"`
	MarkPrice  *float64 `json:"markPrice"`
	SizeUsd    *float64 `json:"sizeUsd"`
	OpenedAt   *int64   `json:"openedAt"` // epoch millis
}

// Position queries the venue for the open position on either of our markets.
// Returns nil when flat.
func (c *Client) Position(ctx context.Context) (*position.Position, error) {
	url := fmt.Sprintf("%s/v1/positions?owner=%s", c.base, c.owner.PublicKey().String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("positions query: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("positions status %d", resp.StatusCode)
	}
	var payload positionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode positions: %w", err)
	}

	for _, p := range payload.Positions {
		if p.Market != c.longMarket && p.Market != c.shortMarket {
			continue
		}
		side := position.Side(p.Side)
		if side != position.Long && side != position.Short {
			return nil, fmt.Errorf("position side %q unrecognized", p.Side)
		}
		out := &position.Position{
			Side:       side,
			EntryPrice: p.EntryPrice,
			MarkPrice:  p.MarkPrice,
			SizeUSD:    p.SizeUsd,
		}
		if p.OpenedAt != nil {
			out.OpenedAt = position.Time(time.UnixMilli(*p.OpenedAt))
		}
		return out, nil
	}
	return nil, nil
}

// Collateral reads the balance of the configured collateral token account.
func (c *Client) Collateral(ctx context.Context) (float64, error) {
	res, err := c.rpc.GetTokenAccountBalance(ctx, c.collateralAccount, c.commit)
	if err != nil {
		return 0, fmt.Errorf("token balance: %w", err)
	}
	if res == nil || res.Value == nil {
		return 0, errors.New("empty token balance response")
	}
	if res.Value.UiAmountString != "" {
		if v, err := strconv.ParseFloat(res.Value.UiAmountString, 64); err == nil {
			return v, nil
		}
	}
	if res.Value.UiAmount != nil {
		return *res.Value.UiAmount, nil
	}
	return 0, errors.New("token balance missing amount")
}

// Open requests a new position: the API builds the transaction, we sign and
// submit it.
func (c *Client) Open(ctx context.Context, req venue.OpenRequest) (venue.Receipt, error) {
	ref, err := c.ResolveMarket(req.Side)
	if err != nil {
		return venue.Receipt{}, err
	}
	payload := map[string]any{
		"owner":         c.owner.PublicKey().String(),
		"market":        ref.Market,
		"side":          string(req.Side),
		"notionalUsd":   req.NotionalUSD,
		"collateralUsd": req.CollateralUSD,
		"clientId":      req.ClientID,
	}
	sig, err := c.sendOrder(ctx, "/v1/orders/open", payload)
	if err != nil {
		return venue.Receipt{}, err
	}
	return venue.Receipt{ClientID: req.ClientID, Ref: sig.String(), SubmittedAt: time.Now().UTC()}, nil
}

// Close requests a full close of the held position.
func (c *Client) Close(ctx context.Context, req venue.CloseRequest) (venue.Receipt, error) {
	ref, err := c.ResolveMarket(req.Side)
	if err != nil {
		return venue.Receipt{}, err
	}
	payload := map[string]any{
		"owner":     c.owner.PublicKey().String(),
		"market":    ref.Market,
		"side":      string(req.Side),
		"fullClose": true,
		"clientId":  req.ClientID,
	}
	sig, err := c.sendOrder(ctx, "/v1/orders/close", payload)
	if err != nil {
		return venue.Receipt{}, err
	}
	return venue.Receipt{ClientID: req.ClientID, Ref: sig.String(), SubmittedAt: time.Now().UTC()}, nil
}

// sendOrder asks the API for a ready-to-sign transaction, signs it locally,
// then submits via RPC.
func (c *Client) sendOrder(ctx context.Context, path string, payload map[string]any) (sig solana.Signature, err error) {
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return sig, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpc.Do(req)
	if err != nil {
		return sig, fmt.Errorf("order request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return sig, fmt.Errorf("order status %d", resp.StatusCode)
	}
	var or struct {
		Tx string `json:"tx"` // base64-encoded tx (unsigned)
	}
	if err := json.NewDecoder(resp.Body).Decode(&or); err != nil {
		return sig, fmt.Errorf("decode order response: %w", err)
	}

	raw, err := base64.StdEncoding.DecodeString(or.Tx)
	if err != nil {
		return sig, fmt.Errorf("decode tx: %w", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return sig, fmt.Errorf("unmarshal tx: %w", err)
	}
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(c.owner.PublicKey()) {
			return &c.owner
		}
		return nil
	})
	if err != nil {
		return sig, fmt.Errorf("sign: %w", err)
	}

	sig, err = c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: c.commit,
	})
	if err != nil {
		return sig, fmt.Errorf("send tx: %w", err)
	}
	c.log.Info().Str("sig", sig.String()).Str("path", path).Msg("order submitted")
	return sig, nil
}
