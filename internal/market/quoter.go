package market

import (
	"context"
	"log/slog"
	"time"

	"tickerbot/internal/metrics"
)

// QuoteCache stores previous-close aggregates until the next market open.
type QuoteCache interface {
	Get(ctx context.Context, ticker string) (Aggregate, bool, error)
	Set(ctx context.Context, ticker string, agg Aggregate, expiresAt time.Time) error
}

// Quoter resolves quotes cache-first, falling back to a live provider
// fetch. Concurrent identical requests are not deduplicated beyond the
// cache; the duplicate fetch is benign last-write-wins.
type Quoter struct {
	cache  QuoteCache
	client *Client
	log    *slog.Logger
	now    func() time.Time
}

func NewQuoter(cache QuoteCache, client *Client, logger *slog.Logger) *Quoter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Quoter{cache: cache, client: client, log: logger, now: time.Now}
}

// Previous returns the previous-close aggregate for ticker. A cache read
// failure is logged and treated as a miss; a cache write failure after a
// successful fetch is logged and the fetched quote is still returned.
func (q *Quoter) Previous(ctx context.Context, ticker string) (Aggregate, error) {
	agg, ok, err := q.cache.Get(ctx, ticker)
	if err != nil {
		q.log.Warn("price cache read failed", "ticker", ticker, "err", err)
	}
	if ok {
		metrics.PriceCacheHits.Inc()
		return agg, nil
	}
	metrics.PriceCacheMisses.Inc()

	agg, err = q.client.PreviousClose(ctx, ticker)
	if err != nil {
		return Aggregate{}, err
	}
	if err := q.cache.Set(ctx, ticker, agg, NextMarketOpen(q.now())); err != nil {
		q.log.Warn("price cache write failed", "ticker", ticker, "err", err)
	}
	return agg, nil
}

// ClosePriceCents satisfies the ledger's price source contract.
func (q *Quoter) ClosePriceCents(ctx context.Context, ticker string) (int64, error) {
	agg, err := q.Previous(ctx, ticker)
	if err != nil {
		return 0, err
	}
	return CentsFromDollars(agg.Close), nil
}
