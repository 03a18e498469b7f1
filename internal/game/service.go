package game

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"tickerbot/internal/metrics"
)

// AccountStore owns account documents. Balance, holdings and trade history
// are addressed as separate fields so ledger operations can write them as
// the three sequential updates the persistence layer performs.
type AccountStore interface {
	Get(ctx context.Context, userID, season string) (Account, bool, error)
	List(ctx context.Context, season string) ([]UserAccount, error)
	Register(ctx context.Context, userID, season string, acct Account) error
	SetBalance(ctx context.Context, userID, season string, cents int64) error
	SetHoldings(ctx context.Context, userID, season string, holdings map[string]int64) error
	AppendTrade(ctx context.Context, userID, season string, rec TradeRecord) error
}

// SeasonStore owns season documents. Create must reject a duplicate name
// atomically; Put is an unconditional overwrite.
type SeasonStore interface {
	List(ctx context.Context) ([]Season, error)
	Get(ctx context.Context, name string) (Season, bool, error)
	Create(ctx context.Context, s Season) error
	Put(ctx context.Context, s Season) error
}

// PriceSource resolves a previous-close price in cents. Cache-first
// resolution lives behind this interface; the ledger never caches.
type PriceSource interface {
	ClosePriceCents(ctx context.Context, ticker string) (int64, error)
}

type Service struct {
	accounts AccountStore
	seasons  SeasonStore
	registry *SeasonRegistry
	prices   PriceSource
	log      *slog.Logger
	now      func() time.Time

	defaultStarting int64
}

func NewService(accounts AccountStore, seasons SeasonStore, registry *SeasonRegistry, prices PriceSource, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		accounts:        accounts,
		seasons:         seasons,
		registry:        registry,
		prices:          prices,
		log:             logger,
		now:             time.Now,
		defaultStarting: DefaultStartingBalanceCents,
	}
}

// SetDefaultStartingBalance overrides the fallback starting balance used
// when a season does not carry its own.
func (s *Service) SetDefaultStartingBalance(cents int64) {
	if cents > 0 {
		s.defaultStarting = cents
	}
}

func (s *Service) DefaultStartingBalance() int64 {
	return s.defaultStarting
}

// Signup creates an account for the active season with the season's
// starting balance. It declines when no season is active or the user
// already holds an account for it.
func (s *Service) Signup(ctx context.Context, userID string) (Season, error) {
	now := s.now()
	season, ok := s.registry.Active(now)
	if !ok {
		return Season{}, ErrNoActiveSeason
	}
	_, exists, err := s.accounts.Get(ctx, userID, season.Name)
	if err != nil {
		return Season{}, err
	}
	if exists {
		return Season{}, ErrDuplicateSignup
	}
	starting := season.StartingBalanceCents
	if starting <= 0 {
		starting = s.defaultStarting
	}
	acct := Account{
		BalanceCents:    starting,
		CurrentHoldings: map[string]int64{},
		TradeHistory:    []TradeRecord{},
		SignupTs:        now.UnixMilli(),
	}
	if err := s.accounts.Register(ctx, userID, season.Name, acct); err != nil {
		return Season{}, err
	}
	s.log.Info("account registered", "user", userID, "season", season.Name, "starting", starting)
	return season, nil
}

// Buy purchases qty shares of ticker at the resolved previous-close price.
// On success balance, holdings and the trade append are persisted as three
// sequential writes; a failure after the first write leaves the account
// inconsistent and is logged, not repaired.
func (s *Service) Buy(ctx context.Context, userID, ticker string, qty int64) (TradeOutcome, error) {
	var out TradeOutcome
	ticker, qty, err := validateTrade(ticker, qty)
	if err != nil {
		return out, err
	}
	now := s.now()
	season, ok := s.registry.Active(now)
	if !ok {
		return out, ErrNoActiveSeason
	}
	acct, found, err := s.accounts.Get(ctx, userID, season.Name)
	if err != nil {
		return out, err
	}
	if !found {
		return out, ErrNotSignedUp
	}

	price, err := s.prices.ClosePriceCents(ctx, ticker)
	if err != nil {
		return out, err
	}
	total := price * qty
	if total > acct.BalanceCents {
		metrics.TradesDeclined.WithLabelValues("insufficient_funds").Inc()
		return out, &InsufficientFundsError{NeedCents: total, HaveCents: acct.BalanceCents}
	}

	newHoldings := buyHoldings(acct.CurrentHoldings, ticker, qty)
	newBalance := acct.BalanceCents - total
	rec := TradeRecord{
		ID:         uuid.NewString(),
		Ticker:     ticker,
		Ts:         now.UnixMilli(),
		Type:       TradeBuy,
		PriceCents: price,
		Quantity:   qty,
	}
	if err := s.persistTrade(ctx, userID, season.Name, newBalance, newHoldings, rec); err != nil {
		return out, err
	}

	metrics.TradesTotal.WithLabelValues("buy").Inc()
	s.log.Info("buy executed", "user", userID, "season", season.Name,
		"ticker", ticker, "qty", qty, "price", price, "balance", newBalance)
	return TradeOutcome{
		Season:          season.Name,
		Record:          rec,
		NotionalCents:   total,
		NewBalanceCents: newBalance,
		NewQuantity:     newHoldings[ticker],
	}, nil
}

// Sell mirrors Buy: the precondition is held quantity, the balance is
// credited, and a holding sold to zero loses its key entirely.
func (s *Service) Sell(ctx context.Context, userID, ticker string, qty int64) (TradeOutcome, error) {
	var out TradeOutcome
	ticker, qty, err := validateTrade(ticker, qty)
	if err != nil {
		return out, err
	}
	now := s.now()
	season, ok := s.registry.Active(now)
	if !ok {
		return out, ErrNoActiveSeason
	}
	acct, found, err := s.accounts.Get(ctx, userID, season.Name)
	if err != nil {
		return out, err
	}
	if !found {
		return out, ErrNotSignedUp
	}

	price, err := s.prices.ClosePriceCents(ctx, ticker)
	if err != nil {
		return out, err
	}
	newHoldings, err := sellHoldings(acct.CurrentHoldings, ticker, qty)
	if err != nil {
		metrics.TradesDeclined.WithLabelValues("insufficient_shares").Inc()
		return out, err
	}
	total := price * qty
	newBalance := acct.BalanceCents + total
	rec := TradeRecord{
		ID:         uuid.NewString(),
		Ticker:     ticker,
		Ts:         now.UnixMilli(),
		Type:       TradeSell,
		PriceCents: price,
		Quantity:   qty,
	}
	if err := s.persistTrade(ctx, userID, season.Name, newBalance, newHoldings, rec); err != nil {
		return out, err
	}

	metrics.TradesTotal.WithLabelValues("sell").Inc()
	s.log.Info("sell executed", "user", userID, "season", season.Name,
		"ticker", ticker, "qty", qty, "price", price, "balance", newBalance)
	return TradeOutcome{
		Season:          season.Name,
		Record:          rec,
		NotionalCents:   total,
		NewBalanceCents: newBalance,
		NewQuantity:     newHoldings[ticker],
	}, nil
}

// persistTrade writes balance, then holdings, then the trade append.
// Balance goes first so a mid-operation failure leaves the account short a
// trade record rather than short money.
func (s *Service) persistTrade(ctx context.Context, userID, season string, balance int64, holdings map[string]int64, rec TradeRecord) error {
	if err := s.accounts.SetBalance(ctx, userID, season, balance); err != nil {
		return err
	}
	if err := s.accounts.SetHoldings(ctx, userID, season, holdings); err != nil {
		s.log.Error("holdings write failed after balance write, account inconsistent",
			"user", userID, "season", season, "trade", rec.ID, "err", err)
		return err
	}
	if err := s.accounts.AppendTrade(ctx, userID, season, rec); err != nil {
		s.log.Error("trade append failed after balance and holdings writes, account inconsistent",
			"user", userID, "season", season, "trade", rec.ID, "err", err)
		return err
	}
	return nil
}

// Grant credits an account by an arbitrary positive amount (admin only,
// enforced by the caller).
func (s *Service) Grant(ctx context.Context, userID string, cents int64) (int64, error) {
	if cents <= 0 {
		return 0, ErrInvalidGrant
	}
	season, ok := s.registry.Active(s.now())
	if !ok {
		return 0, ErrNoActiveSeason
	}
	acct, found, err := s.accounts.Get(ctx, userID, season.Name)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, ErrNotSignedUp
	}
	newBalance := acct.BalanceCents + cents
	if err := s.accounts.SetBalance(ctx, userID, season.Name, newBalance); err != nil {
		return 0, err
	}
	s.log.Info("balance granted", "user", userID, "season", season.Name, "cents", cents)
	return newBalance, nil
}

// Portfolio returns the caller's account in the active season.
func (s *Service) Portfolio(ctx context.Context, userID string) (Account, Season, error) {
	season, ok := s.registry.Active(s.now())
	if !ok {
		return Account{}, Season{}, ErrNoActiveSeason
	}
	acct, found, err := s.accounts.Get(ctx, userID, season.Name)
	if err != nil {
		return Account{}, Season{}, err
	}
	if !found {
		return Account{}, Season{}, ErrNotSignedUp
	}
	return acct, season, nil
}

// Leaderboard values every account's holdings in the season at
// cached-or-fetched previous-close prices and ranks descending. Cash
// balance is not part of the total. A ticker whose price cannot be
// resolved contributes zero to every holder; ties keep input order.
func (s *Service) Leaderboard(ctx context.Context, seasonName string, limit int) ([]LeaderboardRow, error) {
	defer func(t0 time.Time) {
		metrics.LeaderboardDuration.Observe(time.Since(t0).Seconds())
	}(time.Now())

	if seasonName == "" {
		season, ok := s.registry.Active(s.now())
		if !ok {
			return nil, ErrNoActiveSeason
		}
		seasonName = season.Name
	} else if _, found, err := s.seasons.Get(ctx, seasonName); err != nil {
		return nil, err
	} else if !found {
		return nil, ErrSeasonNotFound
	}
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}

	accounts, err := s.accounts.List(ctx, seasonName)
	if err != nil {
		return nil, err
	}

	prices := make(map[string]int64)
	for _, ua := range accounts {
		for ticker := range ua.Account.CurrentHoldings {
			if _, seen := prices[ticker]; seen {
				continue
			}
			price, err := s.prices.ClosePriceCents(ctx, ticker)
			if err != nil {
				s.log.Warn("price resolution failed, ticker valued at zero",
					"ticker", ticker, "err", err)
				price = 0
			}
			prices[ticker] = price
		}
	}

	rows := make([]LeaderboardRow, 0, len(accounts))
	for _, ua := range accounts {
		var total int64
		for ticker, qty := range ua.Account.CurrentHoldings {
			total += qty * prices[ticker]
		}
		rows = append(rows, LeaderboardRow{UserID: ua.UserID, TotalValueCents: total})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].TotalValueCents > rows[j].TotalValueCents
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// Seasons lists all seasons straight from the store.
func (s *Service) Seasons(ctx context.Context) ([]Season, error) {
	return s.seasons.List(ctx)
}

// AddSeason validates against every existing season, creates the document,
// and refreshes the registry so the new season is visible immediately.
func (s *Service) AddSeason(ctx context.Context, season Season) error {
	existing, err := s.seasons.List(ctx)
	if err != nil {
		return err
	}
	if err := ValidateNewSeason(existing, season); err != nil {
		return err
	}
	if err := s.seasons.Create(ctx, season); err != nil {
		return err
	}
	s.log.Info("season added", "season", season.Name, "start", season.Start, "end", season.End)
	return s.registry.Refresh(ctx)
}

// EndSeason ends a season early by rewriting its end to just-past-now.
func (s *Service) EndSeason(ctx context.Context, name string) (Season, error) {
	season, found, err := s.seasons.Get(ctx, name)
	if err != nil {
		return Season{}, err
	}
	if !found {
		return Season{}, ErrSeasonNotFound
	}
	now := s.now().UnixMilli()
	if season.End <= now {
		return Season{}, ErrSeasonEnded
	}
	season.End = now - 1
	if err := s.seasons.Put(ctx, season); err != nil {
		return Season{}, err
	}
	s.log.Info("season ended early", "season", season.Name, "end", season.End)
	return season, s.registry.Refresh(ctx)
}

// PrewarmPrices resolves prices for a rotating batch of held tickers so an
// interactive leaderboard later finds the cache warm. The caller keeps the
// rotation offset between invocations.
func (s *Service) PrewarmPrices(ctx context.Context, offset, batchSize int) (int, error) {
	season, ok := s.registry.Active(s.now())
	if !ok {
		return 0, ErrNoActiveSeason
	}
	accounts, err := s.accounts.List(ctx, season.Name)
	if err != nil {
		return 0, err
	}
	set := make(map[string]struct{})
	for _, ua := range accounts {
		for ticker := range ua.Account.CurrentHoldings {
			set[ticker] = struct{}{}
		}
	}
	tickers := make([]string, 0, len(set))
	for ticker := range set {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)
	if len(tickers) == 0 {
		return 0, nil
	}
	if batchSize <= 0 {
		batchSize = 1
	}

	offset = offset % len(tickers)
	for i := 0; i < batchSize && i < len(tickers); i++ {
		ticker := tickers[(offset+i)%len(tickers)]
		if _, err := s.prices.ClosePriceCents(ctx, ticker); err != nil {
			s.log.Warn("prewarm fetch failed", "ticker", ticker, "err", err)
		}
	}
	next := (offset + batchSize) % len(tickers)
	return next, nil
}

func validateTrade(ticker string, qty int64) (string, int64, error) {
	ticker = normalizeTicker(ticker)
	if err := ValidateTicker(ticker); err != nil {
		return "", 0, err
	}
	if qty <= 0 {
		return "", 0, ErrInvalidQuantity
	}
	return ticker, qty, nil
}

// IsValidationError reports whether err is a declined operation rather
// than a dependency failure; the chat layer renders the two differently.
func IsValidationError(err error) bool {
	var funds *InsufficientFundsError
	var shares *InsufficientSharesError
	if errors.As(err, &funds) || errors.As(err, &shares) {
		return true
	}
	for _, sentinel := range []error{
		ErrInvalidTicker, ErrInvalidQuantity, ErrNoActiveSeason, ErrNotSignedUp,
		ErrDuplicateSignup, ErrSeasonNotFound, ErrSeasonName, ErrSeasonExists,
		ErrSeasonOverlap, ErrSeasonBounds, ErrSeasonEnded, ErrInvalidGrant,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
