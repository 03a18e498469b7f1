package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"tickerbot/internal/config"
	"tickerbot/internal/game"
	"tickerbot/internal/market"
	"tickerbot/internal/store"
)

func main() {
	root := &cobra.Command{
		Use:          "tickerctl",
		Short:        "tickerbot admin CLI",
		SilenceUsage: true,
	}

	root.AddCommand(
		newSeasonsCmd(),
		newLeaderboardCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// newService wires stores and the quoter straight against Redis; the CLI
// bypasses the bot process entirely.
func newService(ctx context.Context) (*game.Service, error) {
	cfg := config.LoadCtlFromEnv()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	rdb, err := store.Connect(ctx, cfg.RedisURL, logger)
	if err != nil {
		return nil, err
	}
	accounts := store.NewAccountStore(rdb, logger)
	seasons := store.NewSeasonStore(rdb, logger)
	prices := store.NewPriceCache(rdb, logger)
	quoter := market.NewQuoter(prices, market.NewClient(cfg.MarketBaseURL, cfg.MarketAPIKey), logger)

	registry := game.NewSeasonRegistry(seasons, logger)
	if err := registry.Refresh(ctx); err != nil {
		return nil, err
	}
	return game.NewService(accounts, seasons, registry, quoter, logger), nil
}

func newSeasonsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seasons",
		Short: "Manage seasons",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List all seasons",
			RunE: func(cmd *cobra.Command, _ []string) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
				defer cancel()
				svc, err := newService(ctx)
				if err != nil {
					return err
				}
				seasons, err := svc.Seasons(ctx)
				if err != nil {
					return err
				}
				printSeasons(seasons)
				return nil
			},
		},
		&cobra.Command{
			Use:   "add <name> <start YYYY-MM-DD> <end YYYY-MM-DD> [startingBalanceDollars]",
			Short: "Create a season",
			Args:  cobra.RangeArgs(3, 4),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
				defer cancel()
				svc, err := newService(ctx)
				if err != nil {
					return err
				}
				start, err := time.ParseInLocation("2006-01-02", args[1], market.Eastern())
				if err != nil {
					return fmt.Errorf("invalid start date: %w", err)
				}
				end, err := time.ParseInLocation("2006-01-02", args[2], market.Eastern())
				if err != nil {
					return fmt.Errorf("invalid end date: %w", err)
				}
				starting := game.DefaultStartingBalanceCents
				if len(args) == 4 {
					dollars, err := strconv.ParseFloat(args[3], 64)
					if err != nil {
						return fmt.Errorf("invalid starting balance: %w", err)
					}
					starting = game.DollarsToCents(dollars)
				}
				season := game.Season{
					Name:                 args[0],
					Start:                start.UnixMilli(),
					End:                  end.UnixMilli(),
					StartingBalanceCents: starting,
				}
				if err := svc.AddSeason(ctx, season); err != nil {
					return err
				}
				printSuccess(fmt.Sprintf("season %s created", season.Name))
				return nil
			},
		},
		&cobra.Command{
			Use:   "end <name>",
			Short: "End a season early",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
				defer cancel()
				svc, err := newService(ctx)
				if err != nil {
					return err
				}
				season, err := svc.EndSeason(ctx, args[0])
				if err != nil {
					return err
				}
				printWarn(fmt.Sprintf("season %s ended", season.Name))
				return nil
			},
		},
	)
	return cmd
}

func newLeaderboardCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "leaderboard [season]",
		Short: "Print a season leaderboard",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()
			svc, err := newService(ctx)
			if err != nil {
				return err
			}
			seasonName := ""
			if len(args) == 1 {
				seasonName = args[0]
			}
			rows, err := svc.Leaderboard(ctx, seasonName, limit)
			if err != nil {
				return err
			}
			printLeaderboard(rows)
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", game.DefaultLeaderboardLimit, "number of rows")
	return cmd
}
