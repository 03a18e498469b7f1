// The worker pre-warms the price cache in small batches so interactive
// leaderboard requests find most quotes already resolved.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"tickerbot/internal/config"
	"tickerbot/internal/game"
	"tickerbot/internal/market"
	"tickerbot/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWorkerFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	rdb, err := store.Connect(ctx, cfg.RedisURL, logger)
	if err != nil {
		logger.Error("redis connect failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	accounts := store.NewAccountStore(rdb, logger)
	seasons := store.NewSeasonStore(rdb, logger)
	prices := store.NewPriceCache(rdb, logger)
	quoter := market.NewQuoter(prices, market.NewClient(cfg.MarketBaseURL, cfg.MarketAPIKey), logger)

	registry := game.NewSeasonRegistry(seasons, logger)
	if err := registry.Refresh(ctx); err != nil {
		logger.Error("season registry init failed", "err", err)
		os.Exit(1)
	}

	svc := game.NewService(accounts, seasons, registry, quoter, logger)

	runOnce := strings.EqualFold(strings.TrimSpace(os.Getenv("TICKERBOT_WORKER_RUN_ONCE")), "true")
	offset := 0
	if runOnce {
		if _, err := svc.PrewarmPrices(ctx, offset, cfg.PrewarmBatchSize); err != nil {
			logger.Error("prewarm failed", "err", err)
			os.Exit(1)
		}
		logger.Info("worker run-once completed")
		return
	}

	ticker := time.NewTicker(cfg.PrewarmEvery)
	defer ticker.Stop()

	logger.Info("worker started", "every", cfg.PrewarmEvery.String(), "batch", cfg.PrewarmBatchSize)
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-ticker.C:
			if err := registry.Refresh(ctx); err != nil {
				logger.Error("season refresh failed", "err", err)
				continue
			}
			next, err := svc.PrewarmPrices(ctx, offset, cfg.PrewarmBatchSize)
			if err != nil {
				if err == game.ErrNoActiveSeason {
					continue
				}
				logger.Error("prewarm failed", "err", err)
				continue
			}
			offset = next
		}
	}
}
