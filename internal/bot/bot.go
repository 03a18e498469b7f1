// Package bot is the Discord glue: it parses commands, calls the game
// service, and renders outcomes as messages. No game rules live here.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"tickerbot/internal/config"
	"tickerbot/internal/game"
	"tickerbot/internal/market"
	"tickerbot/internal/metrics"
)

const commandTimeout = 30 * time.Second

type Bot struct {
	session *discordgo.Session
	svc     *game.Service
	quoter  *market.Quoter
	md      *market.Client
	cfg     config.BotConfig
	log     *slog.Logger
}

func New(cfg config.BotConfig, svc *game.Service, quoter *market.Quoter, md *market.Client, logger *slog.Logger) (*Bot, error) {
	if logger == nil {
		logger = slog.Default()
	}
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages | discordgo.IntentMessageContent

	b := &Bot{
		session: session,
		svc:     svc,
		quoter:  quoter,
		md:      md,
		cfg:     cfg,
		log:     logger,
	}
	session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		b.log.Info("discord ready", "user", r.User.Username)
	})
	session.AddHandler(b.onMessageCreate)
	return b, nil
}

func (b *Bot) Open() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	return nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	content := strings.TrimSpace(m.Content)
	if !strings.HasPrefix(content, b.cfg.CommandPrefix) {
		return
	}
	fields := strings.Fields(strings.TrimPrefix(content, b.cfg.CommandPrefix))
	if len(fields) == 0 {
		return
	}
	command := strings.ToLower(fields[0])
	args := fields[1:]

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	metrics.CommandsTotal.WithLabelValues(command).Inc()

	switch command {
	case "signup":
		b.handleSignup(ctx, m)
	case "buy":
		b.handleTrade(ctx, m, game.TradeBuy, args)
	case "sell":
		b.handleTrade(ctx, m, game.TradeSell, args)
	case "portfolio":
		b.handlePortfolio(ctx, m)
	case "price":
		b.handlePrice(ctx, m, args)
	case "ticker":
		b.handleTickerInfo(ctx, m, args)
	case "leaderboard":
		b.handleLeaderboard(ctx, m, args)
	case "season":
		b.handleSeason(ctx, m, args)
	case "grant":
		b.handleGrant(ctx, m, args)
	case "help":
		b.handleHelp(m)
	}
}

func (b *Bot) isAdmin(userID string) bool {
	return userID == b.cfg.AdminUserID
}

func (b *Bot) reply(channelID, text string) {
	if _, err := b.session.ChannelMessageSend(channelID, text); err != nil {
		b.log.Error("send message failed", "channel", channelID, "err", err)
	}
}

func (b *Bot) replyEmbed(channelID string, embed *discordgo.MessageEmbed) {
	if _, err := b.session.ChannelMessageSendEmbed(channelID, embed); err != nil {
		b.log.Error("send embed failed", "channel", channelID, "err", err)
	}
}

// replyErr turns a declined operation into a specific user-facing reason;
// anything else is a dependency failure, reported to the operator channel
// and answered generically.
func (b *Bot) replyErr(m *discordgo.MessageCreate, what string, err error) {
	if msg, ok := declineMessage(err); ok {
		b.reply(m.ChannelID, msg)
		return
	}
	b.reportError(what, err)
	b.reply(m.ChannelID, "Something went wrong upstream. Try again later.")
}

func (b *Bot) reportError(what string, err error) {
	b.log.Error(what, "err", err)
	if b.cfg.ErrorChannelID == "" {
		return
	}
	if _, sendErr := b.session.ChannelMessageSend(b.cfg.ErrorChannelID,
		fmt.Sprintf("⚠️ %s: `%v`", what, err)); sendErr != nil {
		b.log.Error("error report failed", "err", sendErr)
	}
}

// PostLeaderboard computes and posts the active-season leaderboard to the
// configured channel. The scheduler invokes this daily at noon Eastern.
func (b *Bot) PostLeaderboard(ctx context.Context) error {
	if b.cfg.LeaderboardChannelID == "" {
		return nil
	}
	rows, err := b.svc.Leaderboard(ctx, "", b.cfg.LeaderboardLimit)
	if err != nil {
		return err
	}
	b.replyEmbed(b.cfg.LeaderboardChannelID, leaderboardEmbed("Daily leaderboard", rows))
	return nil
}
