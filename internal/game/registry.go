package game

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// SeasonRegistry caches the full season list in memory. The view is
// refreshed on process start, on a daily schedule, and immediately after
// any admin mutation; between refreshes active-season answers are served
// from the cached view, so a season boundary is only observed at the next
// refresh.
type SeasonRegistry struct {
	store SeasonStore
	log   *slog.Logger

	mu      sync.RWMutex
	seasons []Season
}

func NewSeasonRegistry(store SeasonStore, logger *slog.Logger) *SeasonRegistry {
	if logger == nil {
		logger = slog.Default()
	}
	return &SeasonRegistry{store: store, log: logger}
}

func (r *SeasonRegistry) Refresh(ctx context.Context) error {
	seasons, err := r.store.List(ctx)
	if err != nil {
		return err
	}
	sort.Slice(seasons, func(i, j int) bool { return seasons[i].Start < seasons[j].Start })

	r.mu.Lock()
	r.seasons = seasons
	r.mu.Unlock()

	r.log.Info("season registry refreshed", "seasons", len(seasons))
	return nil
}

// Seasons returns a copy of the cached view.
func (r *SeasonRegistry) Seasons() []Season {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Season, len(r.seasons))
	copy(out, r.seasons)
	return out
}

func (r *SeasonRegistry) Active(now time.Time) (Season, bool) {
	season, matches := ResolveActiveSeason(r.Seasons(), now)
	if matches == 0 {
		return Season{}, false
	}
	if matches > 1 {
		r.log.Warn("multiple seasons match current time, picking earliest start",
			"matches", matches, "picked", season.Name)
	}
	return season, true
}
