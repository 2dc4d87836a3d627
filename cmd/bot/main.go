package main

import (
	"context"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/config"
	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/engine"
	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/exchange"
	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/metrics"
	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/notify"
	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/oracle"
	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/position"
	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/risk"
	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/util"
	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/venue"
	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/venue/paper"
	"github.com/BlockonautAlchemist/Btc-trading-bot/internal/venue/solana"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("internal/config/config.yaml")
	if err != nil {
		fallback := util.NewLogger("info")
		fallback.Fatal().Err(err).Msg("load config")
	}
	log := util.NewLogger(cfg.App.LogLevel)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	feed := exchange.NewFeed(cfg.Exchange.Provider, cfg.Engine.Symbol, log,
		exchange.WithBinanceBase(cfg.Exchange.BinanceBase),
		exchange.WithBinanceWsURL(cfg.Exchange.BinanceWs),
		exchange.WithDexScreenerConfig(cfg.Exchange.DexScreener.BaseURL, cfg.Exchange.DexScreener.Chain, cfg.Exchange.DexScreener.Pair),
	)
	go func() {
		if err := feed.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("feed stopped")
			cancel()
		}
	}()

	var journal *oracle.Journal
	if cfg.Oracle.JournalPath != "" {
		journal, err = oracle.NewJournal(cfg.Oracle.JournalPath)
		if err != nil {
			log.Fatal().Err(err).Msg("open forecast journal")
		}
		defer journal.Close()
	}
	orc := oracle.Build(cfg.Oracle.Provider, cfg.Oracle.BaseURL, os.Getenv("ORACLE_API_KEY"), cfg.Oracle.Timeout(), log)

	ven, cleanup, err := buildVenue(cfg, feed.LastPrice, log)
	if err != nil {
		log.Fatal().Err(err).Msg("build venue")
	}
	defer cleanup()

	var notifier notify.Notifier = notify.NewLog(log)
	if cfg.Telegram.Enabled {
		tg, err := notify.NewTelegram(os.Getenv("TELEGRAM_BOT_TOKEN"), cfg.Telegram.ChatID, log)
		if err != nil {
			log.Fatal().Err(err).Msg("telegram setup")
		}
		notifier = tg
	}

	eng := engine.New(engine.Options{
		Symbol:   cfg.Engine.Symbol,
		Interval: cfg.Engine.Interval(),
		Data:     feed,
		Oracle:   orc,
		Venue:    ven,
		Monitor:  position.NewMonitor(cfg.Exit.TakeProfitPct, cfg.Exit.StopLossPct, cfg.Exit.MaxAge()),
		Policy:   risk.Policy{NotionalCapUSD: cfg.Risk.NotionalCapUSD},
		Notifier: notifier,
		Journal:  journal,
		Log:      log,
	})
	if err := eng.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("engine stopped")
	}
}

func buildVenue(cfg *config.Config, mark func() float64, log zerolog.Logger) (venue.Venue, func(), error) {
	switch cfg.Venue.Provider {
	case "solana":
		key, err := solana.LoadPrivateKeyFromEnv()
		if err != nil {
			return nil, nil, err
		}
		client, err := solana.NewClient(solana.Config{
			RPCURL:            cfg.Venue.Solana.RpcURL,
			PerpBase:          cfg.Venue.Solana.PerpBase,
			Commitment:        cfg.Venue.Solana.Commitment,
			LongMarket:        cfg.Venue.Solana.LongMarket,
			ShortMarket:       cfg.Venue.Solana.ShortMarket,
			CollateralAccount: cfg.Venue.Solana.CollateralAccount,
			Limits: risk.Limits{
				MinNotionalUSD:   cfg.Venue.Solana.MinNotionalUSD,
				MinCollateralUSD: cfg.Venue.Solana.MinCollateralUSD,
				MinLeverage:      cfg.Venue.Solana.MinLeverage,
			},
		}, key, log)
		if err != nil {
			return nil, nil, err
		}
		return client, func() {}, nil
	default:
		var recorders []paper.FillRecorder
		cleanup := func() {}
		if cfg.Venue.Paper.FillsPath != "" {
			recorder, err := paper.NewJSONLRecorder(cfg.Venue.Paper.FillsPath)
			if err != nil {
				return nil, nil, err
			}
			recorders = append(recorders, recorder)
			cleanup = func() { _ = recorder.Close() }
		}
		limits := risk.Limits{
			MinNotionalUSD:   cfg.Venue.Paper.MinNotionalUSD,
			MinCollateralUSD: cfg.Venue.Paper.MinCollateralUSD,
			MinLeverage:      cfg.Venue.Paper.MinLeverage,
		}
		return paper.New(cfg.Engine.Symbol, cfg.Venue.Paper.StartingCollateralUSD, limits, mark, log, recorders...), cleanup, nil
	}
}
