package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tickerbot/internal/api"
	"tickerbot/internal/bot"
	"tickerbot/internal/config"
	"tickerbot/internal/game"
	"tickerbot/internal/market"
	"tickerbot/internal/sched"
	"tickerbot/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadBotFromEnv()
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

	mdClient := market.NewClient(cfg.MarketBaseURL, cfg.MarketAPIKey)
	quoter := market.NewQuoter(prices, mdClient, logger)

	registry := game.NewSeasonRegistry(seasons, logger)
	if err := registry.Refresh(ctx); err != nil {
		logger.Error("season registry init failed", "err", err)
		os.Exit(1)
	}

	svc := game.NewService(accounts, seasons, registry, quoter, logger)
	svc.SetDefaultStartingBalance(cfg.StartingBalanceCents)

	discordBot, err := bot.New(cfg, svc, quoter, mdClient, logger)
	if err != nil {
		logger.Error("bot init failed", "err", err)
		os.Exit(1)
	}
	if err := discordBot.Open(); err != nil {
		logger.Error("discord connect failed", "err", err)
		os.Exit(1)
	}
	defer discordBot.Close()

	opsServer := &http.Server{
		Addr:              cfg.OpsAddr,
		Handler:           api.New(svc, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("ops server listening", "addr", cfg.OpsAddr)
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ops server failed", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = opsServer.Shutdown(shutdownCtx)
	}()

	logger.Info("tickerbot running", "prefix", cfg.CommandPrefix)
	sched.New(registry, discordBot, logger).Run(ctx)
	logger.Info("tickerbot shutdown")
}
