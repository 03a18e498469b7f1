package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"tickerbot/internal/cache"
	"tickerbot/internal/market"
)

// localQuoteCapacity bounds the in-process layer.
const localQuoteCapacity = 256

type cachedQuote struct {
	Agg       market.Aggregate
	ExpiresAt time.Time
}

// PriceCache stores previous-close quotes under `stock:{ticker}` with a
// TTL aligned to the next market open, fronted by a small bounded
// in-process map. Both layers are written on Set; the in-process layer is
// only populated on the write path.
type PriceCache struct {
	rdb   *redis.Client
	local *cache.Bounded[cachedQuote]
	log   *slog.Logger
	now   func() time.Time
}

func NewPriceCache(rdb *redis.Client, logger *slog.Logger) *PriceCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &PriceCache{
		rdb:   rdb,
		local: cache.NewBounded[cachedQuote](localQuoteCapacity),
		log:   logger,
		now:   time.Now,
	}
}

func stockKey(ticker string) string {
	return "stock:" + ticker
}

func (c *PriceCache) Get(ctx context.Context, ticker string) (market.Aggregate, bool, error) {
	if q, ok := c.local.Get(ticker); ok && c.now().Before(q.ExpiresAt) {
		return q.Agg, true, nil
	}
	raw, err := c.rdb.Get(ctx, stockKey(ticker)).Bytes()
	if errors.Is(err, redis.Nil) {
		return market.Aggregate{}, false, nil
	}
	if err != nil {
		return market.Aggregate{}, false, fmt.Errorf("read quote %s: %w", ticker, err)
	}
	var agg market.Aggregate
	if err := json.Unmarshal(raw, &agg); err != nil {
		return market.Aggregate{}, false, fmt.Errorf("decode quote %s: %w", ticker, err)
	}
	return agg, true, nil
}

func (c *PriceCache) Set(ctx context.Context, ticker string, agg market.Aggregate, expiresAt time.Time) error {
	c.local.Set(ticker, cachedQuote{Agg: agg, ExpiresAt: expiresAt})

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(agg)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, stockKey(ticker), raw, ttl).Err(); err != nil {
		return fmt.Errorf("write quote %s: %w", ticker, err)
	}
	return nil
}
