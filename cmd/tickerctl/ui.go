package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"

	"tickerbot/internal/game"
	"tickerbot/internal/market"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	warn    = color.New(color.FgYellow, color.Bold)
	neutral = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printSeasons(seasons []game.Season) {
	if len(seasons) == 0 {
		neutral.Println("no seasons")
		return
	}
	now := time.Now()
	for _, s := range seasons {
		line := fmt.Sprintf("%-16s %s → %s  start balance %s",
			s.Name,
			time.UnixMilli(s.Start).In(market.Eastern()).Format("2006-01-02"),
			time.UnixMilli(s.End).In(market.Eastern()).Format("2006-01-02"),
			game.FormatCents(s.StartingBalanceCents))
		if s.Contains(now) {
			accent.Println(line + "  (active)")
		} else {
			neutral.Println(line)
		}
	}
}

func printLeaderboard(rows []game.LeaderboardRow) {
	if len(rows) == 0 {
		neutral.Println("nobody is playing yet")
		return
	}
	for i, row := range rows {
		line := fmt.Sprintf("%2d. %-24s %s", i+1, row.UserID, game.FormatCents(row.TotalValueCents))
		if i == 0 {
			accent.Println(line)
		} else {
			neutral.Println(line)
		}
	}
}
