package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type BotConfig struct {
	DiscordToken         string
	CommandPrefix        string
	AdminUserID          string
	LeaderboardChannelID string
	ErrorChannelID       string

	RedisURL      string
	MarketBaseURL string
	MarketAPIKey  string

	// StartingBalanceCents overrides the built-in default for seasons
	// created without one; 0 keeps the built-in.
	StartingBalanceCents int64

	LeaderboardLimit int
	OpsAddr          string
}

type WorkerConfig struct {
	RedisURL      string
	MarketBaseURL string
	MarketAPIKey  string

	PrewarmBatchSize int
	PrewarmEvery     time.Duration
}

type CtlConfig struct {
	RedisURL      string
	MarketBaseURL string
	MarketAPIKey  string
}

func LoadBotFromEnv() (BotConfig, error) {
	cfg := BotConfig{
		DiscordToken:         strings.TrimSpace(os.Getenv("TICKERBOT_DISCORD_TOKEN")),
		CommandPrefix:        envDefault("TICKERBOT_COMMAND_PREFIX", "$"),
		AdminUserID:          strings.TrimSpace(os.Getenv("TICKERBOT_ADMIN_USER_ID")),
		LeaderboardChannelID: strings.TrimSpace(os.Getenv("TICKERBOT_LEADERBOARD_CHANNEL_ID")),
		ErrorChannelID:       strings.TrimSpace(os.Getenv("TICKERBOT_ERROR_CHANNEL_ID")),
		RedisURL:             envDefault("TICKERBOT_REDIS_URL", "redis://localhost:6379/0"),
		MarketBaseURL:        envDefault("TICKERBOT_MARKET_BASE_URL", "https://api.polygon.io"),
		MarketAPIKey:         strings.TrimSpace(os.Getenv("TICKERBOT_MARKET_API_KEY")),
		StartingBalanceCents: envInt64Default("TICKERBOT_STARTING_BALANCE", 0),
		LeaderboardLimit:     envIntDefault("TICKERBOT_LEADERBOARD_LIMIT", 10),
		OpsAddr:              envDefault("TICKERBOT_OPS_ADDR", ":9090"),
	}
	if cfg.DiscordToken == "" {
		return cfg, fmt.Errorf("TICKERBOT_DISCORD_TOKEN is required")
	}
	if cfg.MarketAPIKey == "" {
		return cfg, fmt.Errorf("TICKERBOT_MARKET_API_KEY is required")
	}
	if cfg.AdminUserID == "" {
		return cfg, fmt.Errorf("TICKERBOT_ADMIN_USER_ID is required")
	}
	return cfg, nil
}

func LoadWorkerFromEnv() (WorkerConfig, error) {
	cfg := WorkerConfig{
		RedisURL:         envDefault("TICKERBOT_REDIS_URL", "redis://localhost:6379/0"),
		MarketBaseURL:    envDefault("TICKERBOT_MARKET_BASE_URL", "https://api.polygon.io"),
		MarketAPIKey:     strings.TrimSpace(os.Getenv("TICKERBOT_MARKET_API_KEY")),
		PrewarmBatchSize: envIntDefault("TICKERBOT_PREWARM_BATCH", 5),
		PrewarmEvery:     envDurationDefault("TICKERBOT_PREWARM_EVERY", 10*time.Minute),
	}
	if cfg.MarketAPIKey == "" {
		return cfg, fmt.Errorf("TICKERBOT_MARKET_API_KEY is required")
	}
	return cfg, nil
}

func LoadCtlFromEnv() CtlConfig {
	return CtlConfig{
		RedisURL:      envDefault("TICKERBOT_REDIS_URL", "redis://localhost:6379/0"),
		MarketBaseURL: envDefault("TICKERBOT_MARKET_BASE_URL", "https://api.polygon.io"),
		MarketAPIKey:  strings.TrimSpace(os.Getenv("TICKERBOT_MARKET_API_KEY")),
	}
}

func envDefault(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envIntDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envInt64Default(key string, fallback int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envDurationDefault(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
