package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/market"
)

type dexscreenerPairsResponse struct {
	Pairs []dexscreenerPair `json:"pairs"`
	Pair  *dexscreenerPair  `json:"pair"`
}

type dexscreenerPair struct {
	ChainID     string                 `json:"chainId"`
	PairAddress string                 `json:"pairAddress"`
	PriceUsd    string                 `json:"priceUsd"`
	PriceNative string                 `json:"priceNative"`
	Volume      dexscreenerVolumes     `json:"volume"`
	PriceChange dexscreenerPriceChange `json:"priceChange"`
}

type dexscreenerVolumes struct {
	H24 float64 `json:"h24"`
}

type dexscreenerPriceChange struct {
	H24 float64 `json:"h24"`
}

func (r *dexscreenerPairsResponse) firstPair() (*dexscreenerPair, bool) {
	if len(r.Pairs) > 0 {
		return &r.Pairs[0], true
	}
	if r.Pair != nil {
		return r.Pair, true
	}
	return nil, false
}

// fetchDexScreener polls one pair. The API carries no day range and no
// candles, so snapshots from here always travel the degraded indicator path.
func (f *Feed) fetchDexScreener(ctx context.Context) (market.Snapshot, error) {
	if f.dexChain == "" || f.dexPair == "" {
		return market.Snapshot{}, fmt.Errorf("dexscreener provider needs chain and pair")
	}
	url := fmt.Sprintf("%s/latest/dex/pairs/%s/%s", f.dexBase, f.dexChain, f.dexPair)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return market.Snapshot{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "btc-trading-bot/1.0")
	resp, err := f.httpc.Do(req)
	if err != nil {
		return market.Snapshot{}, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return market.Snapshot{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload dexscreenerPairsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return market.Snapshot{}, fmt.Errorf("decode response: %w", err)
	}
	pair, ok := payload.firstPair()
	if !ok {
		return market.Snapshot{}, fmt.Errorf("no pair data returned")
	}
	price, err := parseDexScreenerPrice(pair)
	if err != nil {
		return market.Snapshot{}, err
	}

	return market.Snapshot{
		Price:        price,
		Change24hPct: pair.PriceChange.H24,
		Volume24h:    pair.Volume.H24,
		Ts:           time.Now().UTC(),
	}, nil
}

func parseDexScreenerPrice(pair *dexscreenerPair) (float64, error) {
	if pair == nil {
		return 0, fmt.Errorf("pair missing")
	}
	if pair.PriceUsd != "" {
		if px, err := strconv.ParseFloat(pair.PriceUsd, 64); err == nil && px > 0 {
			return px, nil
		}
	}
	if pair.PriceNative != "" {
		if px, err := strconv.ParseFloat(pair.PriceNative, 64); err == nil && px > 0 {
			return px, nil
		}
	}
	return 0, fmt.Errorf("pair missing price")
}
