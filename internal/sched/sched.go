// Package sched drives the daily wall-clock jobs. The game core exposes
// plain callable entry points; all timing lives here.
package sched

import (
	"context"
	"log/slog"
	"time"

	"tickerbot/internal/game"
	"tickerbot/internal/market"
)

const jobTimeout = 2 * time.Minute

type LeaderboardPoster interface {
	PostLeaderboard(ctx context.Context) error
}

type Scheduler struct {
	registry *game.SeasonRegistry
	poster   LeaderboardPoster
	log      *slog.Logger
}

func New(registry *game.SeasonRegistry, poster LeaderboardPoster, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{registry: registry, poster: poster, log: logger}
}

// Run blocks until ctx is done, firing the season refresh at midnight
// Eastern and the leaderboard post at noon Eastern.
func (s *Scheduler) Run(ctx context.Context) {
	go s.runDaily(ctx, 0, 0, "season refresh", s.registry.Refresh)
	go s.runDaily(ctx, 12, 0, "leaderboard post", s.poster.PostLeaderboard)
	<-ctx.Done()
}

func (s *Scheduler) runDaily(ctx context.Context, hour, minute int, name string, job func(context.Context) error) {
	for {
		wait := time.Until(nextDailyAt(time.Now(), hour, minute))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		jobCtx, cancel := context.WithTimeout(ctx, jobTimeout)
		if err := job(jobCtx); err != nil {
			s.log.Error("scheduled job failed", "job", name, "err", err)
		} else {
			s.log.Info("scheduled job complete", "job", name)
		}
		cancel()
	}
}

// nextDailyAt returns the next hour:minute US/Eastern strictly after t.
func nextDailyAt(t time.Time, hour, minute int) time.Time {
	et := t.In(market.Eastern())
	next := time.Date(et.Year(), et.Month(), et.Day(), hour, minute, 0, 0, market.Eastern())
	if !next.After(t) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
