package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"tickerbot/internal/game"
	"tickerbot/internal/market"
)

func (b *Bot) handleSignup(ctx context.Context, m *discordgo.MessageCreate) {
	season, err := b.svc.Signup(ctx, m.Author.ID)
	if err != nil {
		b.replyErr(m, "signup failed", err)
		return
	}
	starting := season.StartingBalanceCents
	if starting <= 0 {
		starting = b.svc.DefaultStartingBalance()
	}
	b.reply(m.ChannelID, fmt.Sprintf("Welcome to **%s**, <@%s>! Starting balance: %s.",
		season.Name, m.Author.ID, game.FormatCents(starting)))
}

func (b *Bot) handleTrade(ctx context.Context, m *discordgo.MessageCreate, side game.TradeType, args []string) {
	if len(args) != 2 {
		b.reply(m.ChannelID, fmt.Sprintf("Usage: `%s%s <ticker> <quantity>`", b.cfg.CommandPrefix, side))
		return
	}
	qty, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		b.reply(m.ChannelID, "Quantity must be a whole number.")
		return
	}

	var out game.TradeOutcome
	if side == game.TradeBuy {
		out, err = b.svc.Buy(ctx, m.Author.ID, args[0], qty)
	} else {
		out, err = b.svc.Sell(ctx, m.Author.ID, args[0], qty)
	}
	if err != nil {
		b.replyErr(m, string(side)+" failed", err)
		return
	}

	verb := "Bought"
	if side == game.TradeSell {
		verb = "Sold"
	}
	position := fmt.Sprintf("%d shares", out.NewQuantity)
	if out.NewQuantity == 0 {
		position = "position closed"
	}
	b.reply(m.ChannelID, fmt.Sprintf("%s **%d × %s** at %s (%s). Balance: %s. %s: %s.",
		verb, out.Record.Quantity, out.Record.Ticker,
		game.FormatCents(out.Record.PriceCents), game.FormatCents(out.NotionalCents),
		game.FormatCents(out.NewBalanceCents), out.Record.Ticker, position))
}

func (b *Bot) handlePortfolio(ctx context.Context, m *discordgo.MessageCreate) {
	acct, season, err := b.svc.Portfolio(ctx, m.Author.ID)
	if err != nil {
		b.replyErr(m, "portfolio failed", err)
		return
	}
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Portfolio — %s", season.Name),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Cash", Value: game.FormatCents(acct.BalanceCents), Inline: true},
			{Name: "Trades", Value: strconv.Itoa(len(acct.TradeHistory)), Inline: true},
		},
	}
	if len(acct.CurrentHoldings) == 0 {
		embed.Description = "No holdings."
	} else {
		var sb strings.Builder
		for _, ticker := range sortedTickers(acct.CurrentHoldings) {
			fmt.Fprintf(&sb, "**%s** × %d\n", ticker, acct.CurrentHoldings[ticker])
		}
		embed.Description = sb.String()
	}
	b.replyEmbed(m.ChannelID, embed)
}

func (b *Bot) handlePrice(ctx context.Context, m *discordgo.MessageCreate, args []string) {
	if len(args) != 1 {
		b.reply(m.ChannelID, fmt.Sprintf("Usage: `%sprice <ticker>`", b.cfg.CommandPrefix))
		return
	}
	ticker := strings.ToUpper(args[0])
	if err := game.ValidateTicker(ticker); err != nil {
		b.replyErr(m, "price failed", err)
		return
	}
	agg, err := b.quoter.Previous(ctx, ticker)
	if err != nil {
		b.replyErr(m, "price failed", err)
		return
	}
	b.replyEmbed(m.ChannelID, &discordgo.MessageEmbed{
		Title: fmt.Sprintf("%s — previous close", ticker),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Close", Value: game.FormatCents(market.CentsFromDollars(agg.Close)), Inline: true},
			{Name: "Open", Value: game.FormatCents(market.CentsFromDollars(agg.Open)), Inline: true},
			{Name: "High", Value: game.FormatCents(market.CentsFromDollars(agg.High)), Inline: true},
			{Name: "Low", Value: game.FormatCents(market.CentsFromDollars(agg.Low)), Inline: true},
			{Name: "Volume", Value: fmt.Sprintf("%.0f", agg.Volume), Inline: true},
		},
	})
}

func (b *Bot) handleTickerInfo(ctx context.Context, m *discordgo.MessageCreate, args []string) {
	if len(args) != 1 {
		b.reply(m.ChannelID, fmt.Sprintf("Usage: `%sticker <symbol>`", b.cfg.CommandPrefix))
		return
	}
	ticker := strings.ToUpper(args[0])
	if err := game.ValidateTicker(ticker); err != nil {
		b.replyErr(m, "ticker info failed", err)
		return
	}
	details, err := b.md.TickerDetails(ctx, ticker)
	if err != nil {
		b.replyErr(m, "ticker info failed", err)
		return
	}
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("%s — %s", ticker, details.Name),
		URL:   details.HomepageURL,
	}
	if details.LogoURL != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: details.LogoURL}
	}
	b.replyEmbed(m.ChannelID, embed)
}

func (b *Bot) handleLeaderboard(ctx context.Context, m *discordgo.MessageCreate, args []string) {
	seasonName := ""
	if len(args) > 0 {
		seasonName = args[0]
	}
	rows, err := b.svc.Leaderboard(ctx, seasonName, b.cfg.LeaderboardLimit)
	if err != nil {
		b.replyErr(m, "leaderboard failed", err)
		return
	}
	title := "Leaderboard"
	if seasonName != "" {
		title = "Leaderboard — " + seasonName
	}
	b.replyEmbed(m.ChannelID, leaderboardEmbed(title, rows))
}

func (b *Bot) handleSeason(ctx context.Context, m *discordgo.MessageCreate, args []string) {
	if len(args) == 0 {
		b.reply(m.ChannelID, fmt.Sprintf("Usage: `%sseason list | add <name> <start> <end> [startingBalance] | end <name>`", b.cfg.CommandPrefix))
		return
	}
	sub := strings.ToLower(args[0])
	if sub != "list" && !b.isAdmin(m.Author.ID) {
		b.reply(m.ChannelID, "Only the admin can manage seasons.")
		return
	}
	switch sub {
	case "list":
		b.handleSeasonList(ctx, m)
	case "add":
		b.handleSeasonAdd(ctx, m, args[1:])
	case "end":
		if len(args) != 2 {
			b.reply(m.ChannelID, fmt.Sprintf("Usage: `%sseason end <name>`", b.cfg.CommandPrefix))
			return
		}
		season, err := b.svc.EndSeason(ctx, args[1])
		if err != nil {
			b.replyErr(m, "season end failed", err)
			return
		}
		b.reply(m.ChannelID, fmt.Sprintf("Season **%s** ended.", season.Name))
	default:
		b.reply(m.ChannelID, "Unknown season subcommand.")
	}
}

func (b *Bot) handleSeasonList(ctx context.Context, m *discordgo.MessageCreate) {
	seasons, err := b.svc.Seasons(ctx)
	if err != nil {
		b.replyErr(m, "season list failed", err)
		return
	}
	if len(seasons) == 0 {
		b.reply(m.ChannelID, "No seasons yet.")
		return
	}
	now := time.Now()
	var sb strings.Builder
	for _, s := range seasons {
		marker := ""
		if s.Contains(now) {
			marker = " **(active)**"
		}
		fmt.Fprintf(&sb, "**%s**: %s → %s%s\n", s.Name,
			time.UnixMilli(s.Start).In(market.Eastern()).Format("2006-01-02"),
			time.UnixMilli(s.End).In(market.Eastern()).Format("2006-01-02"),
			marker)
	}
	b.replyEmbed(m.ChannelID, &discordgo.MessageEmbed{Title: "Seasons", Description: sb.String()})
}

func (b *Bot) handleSeasonAdd(ctx context.Context, m *discordgo.MessageCreate, args []string) {
	if len(args) != 3 && len(args) != 4 {
		b.reply(m.ChannelID, fmt.Sprintf("Usage: `%sseason add <name> <YYYY-MM-DD> <YYYY-MM-DD> [startingBalance]`", b.cfg.CommandPrefix))
		return
	}
	start, err := parseDay(args[1])
	if err != nil {
		b.reply(m.ChannelID, "Invalid start date, want YYYY-MM-DD.")
		return
	}
	end, err := parseDay(args[2])
	if err != nil {
		b.reply(m.ChannelID, "Invalid end date, want YYYY-MM-DD.")
		return
	}
	starting := game.DefaultStartingBalanceCents
	if len(args) == 4 {
		dollars, err := strconv.ParseFloat(args[3], 64)
		if err != nil || dollars <= 0 {
			b.reply(m.ChannelID, "Invalid starting balance.")
			return
		}
		starting = game.DollarsToCents(dollars)
	}
	season := game.Season{
		Name:                 args[0],
		Start:                start.UnixMilli(),
		End:                  end.UnixMilli(),
		StartingBalanceCents: starting,
	}
	if err := b.svc.AddSeason(ctx, season); err != nil {
		b.replyErr(m, "season add failed", err)
		return
	}
	b.reply(m.ChannelID, fmt.Sprintf("Season **%s** created (%s → %s, starting balance %s).",
		season.Name, args[1], args[2], game.FormatCents(starting)))
}

func (b *Bot) handleGrant(ctx context.Context, m *discordgo.MessageCreate, args []string) {
	if !b.isAdmin(m.Author.ID) {
		b.reply(m.ChannelID, "Only the admin can grant funds.")
		return
	}
	if len(args) != 2 {
		b.reply(m.ChannelID, fmt.Sprintf("Usage: `%sgrant <@user> <dollars>`", b.cfg.CommandPrefix))
		return
	}
	userID := parseMention(args[0])
	dollars, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		b.reply(m.ChannelID, "Invalid amount.")
		return
	}
	balance, err := b.svc.Grant(ctx, userID, game.DollarsToCents(dollars))
	if err != nil {
		b.replyErr(m, "grant failed", err)
		return
	}
	b.reply(m.ChannelID, fmt.Sprintf("Granted %s to <@%s>. New balance: %s.",
		game.FormatCents(game.DollarsToCents(dollars)), userID, game.FormatCents(balance)))
}

func (b *Bot) handleHelp(m *discordgo.MessageCreate) {
	p := b.cfg.CommandPrefix
	b.replyEmbed(m.ChannelID, &discordgo.MessageEmbed{
		Title: "Commands",
		Description: strings.Join([]string{
			fmt.Sprintf("`%ssignup` — join the active season", p),
			fmt.Sprintf("`%sbuy <ticker> <qty>` / `%ssell <ticker> <qty>`", p, p),
			fmt.Sprintf("`%sportfolio` — balance and holdings", p),
			fmt.Sprintf("`%sprice <ticker>` / `%sticker <symbol>`", p, p),
			fmt.Sprintf("`%sleaderboard [season]`", p),
			fmt.Sprintf("`%sseason list` (admin: `add`, `end`), `%sgrant` (admin)", p, p),
		}, "\n"),
	})
}

func leaderboardEmbed(title string, rows []game.LeaderboardRow) *discordgo.MessageEmbed {
	if len(rows) == 0 {
		return &discordgo.MessageEmbed{Title: title, Description: "Nobody is playing yet."}
	}
	var sb strings.Builder
	for i, row := range rows {
		fmt.Fprintf(&sb, "**%d.** <@%s> — %s\n", i+1, row.UserID, game.FormatCents(row.TotalValueCents))
	}
	return &discordgo.MessageEmbed{Title: title, Description: sb.String()}
}

// declineMessage maps validation outcomes to the exact user-facing reason.
func declineMessage(err error) (string, bool) {
	var funds *game.InsufficientFundsError
	if errors.As(err, &funds) {
		return fmt.Sprintf("Insufficient funds: you're short %s (need %s, have %s).",
			game.FormatCents(funds.ShortfallCents()), game.FormatCents(funds.NeedCents),
			game.FormatCents(funds.HaveCents)), true
	}
	var shares *game.InsufficientSharesError
	if errors.As(err, &shares) {
		return fmt.Sprintf("Not enough shares of %s: you hold %d, tried to sell %d.",
			shares.Ticker, shares.HeldQty, shares.WantQty), true
	}
	switch {
	case errors.Is(err, game.ErrNoActiveSeason):
		return "There's no active season right now.", true
	case errors.Is(err, game.ErrDuplicateSignup):
		return "You're already signed up for this season.", true
	case errors.Is(err, game.ErrNotSignedUp):
		return "You haven't signed up this season. Use the signup command first.", true
	case errors.Is(err, game.ErrInvalidTicker):
		return "Tickers are 1-5 uppercase letters.", true
	case errors.Is(err, game.ErrInvalidQuantity):
		return "Quantity must be a positive whole number.", true
	case errors.Is(err, game.ErrInvalidGrant):
		return "Grant amount must be positive.", true
	case errors.Is(err, game.ErrSeasonNotFound):
		return "No season by that name.", true
	case errors.Is(err, game.ErrSeasonName):
		return "Season name is required.", true
	case errors.Is(err, game.ErrSeasonExists):
		return "A season with that name already exists.", true
	case errors.Is(err, game.ErrSeasonOverlap):
		return "That interval overlaps an existing season.", true
	case errors.Is(err, game.ErrSeasonBounds):
		return "Season start must be before its end.", true
	case errors.Is(err, game.ErrSeasonEnded):
		return "That season has already ended.", true
	case errors.Is(err, market.ErrTickerNotFound):
		return "Unknown ticker.", true
	}
	return "", false
}

func parseDay(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", s, market.Eastern())
}

func parseMention(s string) string {
	s = strings.TrimSuffix(strings.TrimPrefix(s, "<@"), ">")
	s = strings.TrimPrefix(s, "!")
	return s
}

func sortedTickers(holdings map[string]int64) []string {
	out := make([]string, 0, len(holdings))
	for ticker := range holdings {
		out = append(out, ticker)
	}
	sort.Strings(out)
	return out
}
