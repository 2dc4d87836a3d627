// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string
	Env         string
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Engine drives the decision tick cadence for the single tracked instrument.
type Engine struct {
	Symbol       string
	IntervalSecs int `yaml:"interval_secs"`
}

// Interval returns the tick cadence as a duration.
func (e Engine) Interval() time.Duration {
	return time.Duration(e.IntervalSecs) * time.Second
}

// Exchange selects and parameterizes the market data provider.
type Exchange struct {
	Provider    string // stub|binance|binancews|dexscreener
	BinanceBase string      `yaml:"binance_base"`
	BinanceWs   string      `yaml:"binance_ws"`
	DexScreener DexScreener `yaml:"dexscreener"`
}

// DexScreener configures the HTTP polling feed targeting one Dexscreener pair.
type DexScreener struct {
	BaseURL string `yaml:"base_url"`
	Chain   string
	Pair    string
}

// Oracle configures the forecast service client.
type Oracle struct {
	Provider    string // http|static
	BaseURL     string `yaml:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	JournalPath string `yaml:"journal_path"`
}

// Timeout returns the oracle request timeout as a duration.
func (o Oracle) Timeout() time.Duration {
	return time.Duration(o.TimeoutSecs) * time.Second
}

// Risk encodes the bot's own sizing ceiling.
type Risk struct {
	NotionalCapUSD float64 `yaml:"notional_cap_usd"`
}

// Exit tunes the position monitor thresholds. Zero values take the built-in
// defaults.
type Exit struct {
	TakeProfitPct float64 `yaml:"take_profit_pct"`
	StopLossPct   float64 `yaml:"stop_loss_pct"`
	MaxAgeHours   int     `yaml:"max_age_hours"`
}

// MaxAge returns the position age limit as a duration.
func (e Exit) MaxAge() time.Duration {
	return time.Duration(e.MaxAgeHours) * time.Hour
}

// Venue selects and parameterizes the execution venue.
type Venue struct {
	Provider string // paper|solana
	Paper    Paper
	Solana   Solana
}

// Paper captures the simulated venue settings.
type Paper struct {
	StartingCollateralUSD float64 `yaml:"starting_collateral_usd"`
	MinNotionalUSD        float64 `yaml:"min_notional_usd"`
	MinCollateralUSD      float64 `yaml:"min_collateral_usd"`
	MinLeverage           float64 `yaml:"min_leverage"`
	FillsPath             string  `yaml:"fills_path"`
}

// Solana defines network endpoints and market refs for the perp DEX venue.
// The signer key comes from the environment, never from this file.
type Solana struct {
	RpcURL            string `yaml:"rpc_url"`
	Commitment        string // processed|confirmed|finalized
	PerpBase          string `yaml:"perp_base"`
	LongMarket        string `yaml:"long_market"`
	ShortMarket       string `yaml:"short_market"`
	CollateralAccount string `yaml:"collateral_account"`
	MinNotionalUSD    float64 `yaml:"min_notional_usd"`
	MinCollateralUSD  float64 `yaml:"min_collateral_usd"`
	MinLeverage       float64 `yaml:"min_leverage"`
}

// Telegram enables trade-event notifications. The bot token comes from the
// environment.
type Telegram struct {
	Enabled bool
	ChatID  int64 `yaml:"chat_id"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App      App      `yaml:"app"`
	Engine   Engine   `yaml:"engine"`
	Exchange Exchange `yaml:"exchange"`
	Oracle   Oracle   `yaml:"oracle"`
	Risk     Risk     `yaml:"risk"`
	Exit     Exit     `yaml:"exit"`
	Venue    Venue    `yaml:"venue"`
	Telegram Telegram `yaml:"telegram"`
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Validate rejects configs that cannot back a running bot. Runs once at
// startup; decision code never re-checks these.
func (c *Config) Validate() error {
	if c.Engine.Symbol == "" {
		return fmt.Errorf("engine.symbol required")
	}
	if c.Engine.IntervalSecs < 1 {
		return fmt.Errorf("engine.interval_secs must be at least 1, got %d", c.Engine.IntervalSecs)
	}
	switch c.Exchange.Provider {
	case "", "stub", "binance", "binancews":
	case "dexscreener":
		if c.Exchange.DexScreener.Chain == "" || c.Exchange.DexScreener.Pair == "" {
			return fmt.Errorf("exchange.dexscreener needs chain and pair")
		}
	default:
		return fmt.Errorf("unknown exchange provider %q", c.Exchange.Provider)
	}
	switch c.Oracle.Provider {
	case "", "static":
	case "http":
		if c.Oracle.BaseURL == "" {
			return fmt.Errorf("oracle.base_url required for http provider")
		}
	default:
		return fmt.Errorf("unknown oracle provider %q", c.Oracle.Provider)
	}
	switch c.Venue.Provider {
	case "", "paper":
	case "solana":
		s := c.Venue.Solana
		if s.RpcURL == "" || s.PerpBase == "" {
			return fmt.Errorf("venue.solana needs rpc_url and perp_base")
		}
		if s.LongMarket == "" || s.ShortMarket == "" {
			return fmt.Errorf("venue.solana needs long_market and short_market")
		}
		if s.CollateralAccount == "" {
			return fmt.Errorf("venue.solana needs collateral_account")
		}
	default:
		return fmt.Errorf("unknown venue provider %q", c.Venue.Provider)
	}
	if c.Risk.NotionalCapUSD < 0 {
		return fmt.Errorf("risk.notional_cap_usd must not be negative")
	}
	return nil
}
