package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/redis/go-redis/v9"

	"tickerbot/internal/game"
)

// SeasonStore owns `season:{name}` documents. Name uniqueness is enforced
// atomically at creation with NX; edits are unconditional overwrites.
type SeasonStore struct {
	rdb *redis.Client
	log *slog.Logger
}

func NewSeasonStore(rdb *redis.Client, logger *slog.Logger) *SeasonStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SeasonStore{rdb: rdb, log: logger}
}

func seasonKey(name string) string {
	return "season:" + name
}

func (s *SeasonStore) List(ctx context.Context) ([]game.Season, error) {
	var keys []string
	iter := s.rdb.Scan(ctx, 0, seasonKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan seasons: %w", err)
	}
	sort.Strings(keys)

	out := make([]game.Season, 0, len(keys))
	for _, key := range keys {
		raw, err := s.rdb.JSONGet(ctx, key, "$").Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read season %s: %w", key, err)
		}
		season, err := decodeSeason(raw)
		if err != nil {
			s.log.Error("skipping undecodable season document", "key", key, "err", err)
			continue
		}
		out = append(out, season)
	}
	return out, nil
}

func (s *SeasonStore) Get(ctx context.Context, name string) (game.Season, bool, error) {
	raw, err := s.rdb.JSONGet(ctx, seasonKey(name), "$").Result()
	if errors.Is(err, redis.Nil) {
		return game.Season{}, false, nil
	}
	if err != nil {
		return game.Season{}, false, fmt.Errorf("read season %s: %w", name, err)
	}
	season, err := decodeSeason(raw)
	if err != nil {
		return game.Season{}, false, fmt.Errorf("decode season %s: %w", name, err)
	}
	return season, true, nil
}

func (s *SeasonStore) Create(ctx context.Context, season game.Season) error {
	raw, err := json.Marshal(season)
	if err != nil {
		return err
	}
	res, err := s.rdb.JSONSetMode(ctx, seasonKey(season.Name), "$", string(raw), "NX").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("create season %s: %w", season.Name, err)
	}
	// NX on an existing document yields redis.Nil / an empty result.
	if errors.Is(err, redis.Nil) || res == "" {
		return game.ErrSeasonExists
	}
	return nil
}

func (s *SeasonStore) Put(ctx context.Context, season game.Season) error {
	raw, err := json.Marshal(season)
	if err != nil {
		return err
	}
	if err := s.rdb.JSONSet(ctx, seasonKey(season.Name), "$", string(raw)).Err(); err != nil {
		return fmt.Errorf("write season %s: %w", season.Name, err)
	}
	return nil
}

func decodeSeason(raw string) (game.Season, error) {
	var docs []game.Season
	if err := json.Unmarshal([]byte(raw), &docs); err != nil {
		return game.Season{}, err
	}
	if len(docs) == 0 {
		return game.Season{}, fmt.Errorf("empty document")
	}
	return docs[0], nil
}
