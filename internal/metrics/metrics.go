// Package metrics provides Prometheus instrumentation for the bot.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// TradesTotal counts executed trades, partitioned by side.
	TradesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tickerbot_trades_total",
		Help: "Total number of executed trades",
	}, []string{"side"})

	// TradesDeclined counts declined trades by decline reason.
	TradesDeclined = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tickerbot_trades_declined_total",
		Help: "Trades declined by a precondition check",
	}, []string{"reason"})

	// CommandsTotal counts handled chat commands by name.
	CommandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tickerbot_commands_total",
		Help: "Chat commands handled",
	}, []string{"command"})

	// PriceCacheHits counts quote resolutions served from cache.
	PriceCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickerbot_price_cache_hits_total",
		Help: "Quote lookups served from the price cache",
	})

	// PriceCacheMisses counts quote resolutions that went to the provider.
	PriceCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickerbot_price_cache_misses_total",
		Help: "Quote lookups that fell through to the market-data provider",
	})

	// ProviderErrors counts failed market-data fetches.
	ProviderErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tickerbot_provider_errors_total",
		Help: "Market-data provider fetch failures",
	})

	// LeaderboardDuration tracks leaderboard computation latency.
	LeaderboardDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tickerbot_leaderboard_duration_seconds",
		Help:    "Leaderboard computation latency in seconds",
		Buckets: prometheus.DefBuckets,
	})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
