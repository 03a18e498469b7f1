package game

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"
)

// In-memory stores with the same observable semantics as the Redis layer.

type memAccounts struct {
	docs map[string]Account
}

func newMemAccounts() *memAccounts {
	return &memAccounts{docs: map[string]Account{}}
}

func acctKey(userID, season string) string {
	return userID + "|" + season
}

func (m *memAccounts) Get(_ context.Context, userID, season string) (Account, bool, error) {
	acct, ok := m.docs[acctKey(userID, season)]
	if !ok {
		return Account{}, false, nil
	}
	return cloneAccount(acct), true, nil
}

func (m *memAccounts) List(_ context.Context, season string) ([]UserAccount, error) {
	var userIDs []string
	suffix := "|" + season
	for key := range m.docs {
		if len(key) > len(suffix) && key[len(key)-len(suffix):] == suffix {
			userIDs = append(userIDs, key[:len(key)-len(suffix)])
		}
	}
	sort.Strings(userIDs)
	out := make([]UserAccount, 0, len(userIDs))
	for _, id := range userIDs {
		out = append(out, UserAccount{UserID: id, Account: cloneAccount(m.docs[acctKey(id, season)])})
	}
	return out, nil
}

func (m *memAccounts) Register(_ context.Context, userID, season string, acct Account) error {
	key := acctKey(userID, season)
	if _, exists := m.docs[key]; exists {
		return ErrDuplicateSignup
	}
	m.docs[key] = cloneAccount(acct)
	return nil
}

func (m *memAccounts) SetBalance(_ context.Context, userID, season string, cents int64) error {
	key := acctKey(userID, season)
	acct := m.docs[key]
	acct.BalanceCents = cents
	m.docs[key] = acct
	return nil
}

func (m *memAccounts) SetHoldings(_ context.Context, userID, season string, holdings map[string]int64) error {
	key := acctKey(userID, season)
	acct := m.docs[key]
	acct.CurrentHoldings = copyHoldings(holdings)
	m.docs[key] = acct
	return nil
}

func (m *memAccounts) AppendTrade(_ context.Context, userID, season string, rec TradeRecord) error {
	key := acctKey(userID, season)
	acct := m.docs[key]
	acct.TradeHistory = append(acct.TradeHistory, rec)
	m.docs[key] = acct
	return nil
}

func cloneAccount(a Account) Account {
	out := a
	out.CurrentHoldings = copyHoldings(a.CurrentHoldings)
	out.TradeHistory = append([]TradeRecord(nil), a.TradeHistory...)
	return out
}

type memSeasons struct {
	docs map[string]Season
}

func newMemSeasons(seasons ...Season) *memSeasons {
	m := &memSeasons{docs: map[string]Season{}}
	for _, s := range seasons {
		m.docs[s.Name] = s
	}
	return m
}

func (m *memSeasons) List(_ context.Context) ([]Season, error) {
	out := make([]Season, 0, len(m.docs))
	for _, s := range m.docs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memSeasons) Get(_ context.Context, name string) (Season, bool, error) {
	s, ok := m.docs[name]
	return s, ok, nil
}

func (m *memSeasons) Create(_ context.Context, s Season) error {
	if _, exists := m.docs[s.Name]; exists {
		return ErrSeasonExists
	}
	m.docs[s.Name] = s
	return nil
}

func (m *memSeasons) Put(_ context.Context, s Season) error {
	m.docs[s.Name] = s
	return nil
}

var errPriceUnavailable = errors.New("price unavailable")

type fakePrices struct {
	cents map[string]int64
}

func (f *fakePrices) ClosePriceCents(_ context.Context, ticker string) (int64, error) {
	price, ok := f.cents[ticker]
	if !ok {
		return 0, fmt.Errorf("%w: %s", errPriceUnavailable, ticker)
	}
	return price, nil
}

// newTestService wires a service over in-memory stores with one season
// active at the fixed test instant.
func newTestService(t *testing.T, prices map[string]int64) (*Service, *memAccounts, *memSeasons, time.Time) {
	t.Helper()
	now := time.Date(2025, 3, 12, 15, 0, 0, 0, time.UTC)
	season := Season{
		Name:                 "spring",
		Start:                now.Add(-24 * time.Hour).UnixMilli(),
		End:                  now.Add(30 * 24 * time.Hour).UnixMilli(),
		StartingBalanceCents: 100_000,
	}
	accounts := newMemAccounts()
	seasons := newMemSeasons(season)
	registry := NewSeasonRegistry(seasons, nil)
	if err := registry.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh registry: %v", err)
	}
	svc := NewService(accounts, seasons, registry, &fakePrices{cents: prices}, nil)
	svc.now = func() time.Time { return now }
	return svc, accounts, seasons, now
}

func TestSignupBuySellScenario(t *testing.T) {
	ctx := context.Background()
	prices := map[string]int64{"ACME": 1500}
	svc, accounts, _, now := newTestService(t, prices)

	season, err := svc.Signup(ctx, "u1")
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if season.Name != "spring" {
		t.Fatalf("signed up into %q", season.Name)
	}
	acct, ok, _ := accounts.Get(ctx, "u1", "spring")
	if !ok || acct.BalanceCents != 100_000 {
		t.Fatalf("want fresh account with 100000, got ok=%v balance=%d", ok, acct.BalanceCents)
	}
	if acct.SignupTs != now.UnixMilli() {
		t.Fatalf("signupTs = %d, want %d", acct.SignupTs, now.UnixMilli())
	}

	out, err := svc.Buy(ctx, "u1", "ACME", 10)
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if out.NewBalanceCents != 85_000 || out.NewQuantity != 10 || out.NotionalCents != 15_000 {
		t.Fatalf("buy outcome = %+v", out)
	}

	prices["ACME"] = 1600
	out, err = svc.Sell(ctx, "u1", "ACME", 10)
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if out.NewBalanceCents != 101_000 {
		t.Fatalf("balance after sell = %d, want 101000", out.NewBalanceCents)
	}
	if out.NewQuantity != 0 {
		t.Fatalf("quantity after sell = %d, want 0", out.NewQuantity)
	}

	acct, _, _ = accounts.Get(ctx, "u1", "spring")
	if _, present := acct.CurrentHoldings["ACME"]; present {
		t.Fatalf("ACME key must be removed at zero, holdings = %v", acct.CurrentHoldings)
	}
	if len(acct.TradeHistory) != 2 {
		t.Fatalf("history length = %d, want 2", len(acct.TradeHistory))
	}
	if acct.TradeHistory[0].Type != TradeBuy || acct.TradeHistory[1].Type != TradeSell {
		t.Fatalf("history order = [%s, %s]", acct.TradeHistory[0].Type, acct.TradeHistory[1].Type)
	}

	balance, holdings := ReplayHistory(100_000, acct.TradeHistory)
	if balance != acct.BalanceCents {
		t.Fatalf("replayed balance %d != stored %d", balance, acct.BalanceCents)
	}
	if len(holdings) != len(acct.CurrentHoldings) {
		t.Fatalf("replayed holdings %v != stored %v", holdings, acct.CurrentHoldings)
	}
}

func TestBuyInsufficientFundsNoMutation(t *testing.T) {
	ctx := context.Background()
	svc, accounts, _, _ := newTestService(t, map[string]int64{"ACME": 1500})
	if _, err := svc.Signup(ctx, "u1"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if err := accounts.SetBalance(ctx, "u1", "spring", 10_000); err != nil {
		t.Fatalf("seed balance: %v", err)
	}

	_, err := svc.Buy(ctx, "u1", "ACME", 10)
	var funds *InsufficientFundsError
	if !errors.As(err, &funds) {
		t.Fatalf("want InsufficientFundsError, got %v", err)
	}
	if funds.ShortfallCents() != 5_000 {
		t.Fatalf("shortfall = %d, want 5000", funds.ShortfallCents())
	}

	acct, _, _ := accounts.Get(ctx, "u1", "spring")
	if acct.BalanceCents != 10_000 || len(acct.CurrentHoldings) != 0 || len(acct.TradeHistory) != 0 {
		t.Fatalf("declined buy mutated account: %+v", acct)
	}
}

func TestSellInsufficientSharesNoMutation(t *testing.T) {
	ctx := context.Background()
	svc, accounts, _, _ := newTestService(t, map[string]int64{"ACME": 1500})
	if _, err := svc.Signup(ctx, "u1"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if _, err := svc.Buy(ctx, "u1", "ACME", 3); err != nil {
		t.Fatalf("buy: %v", err)
	}

	_, err := svc.Sell(ctx, "u1", "ACME", 5)
	var shares *InsufficientSharesError
	if !errors.As(err, &shares) {
		t.Fatalf("want InsufficientSharesError, got %v", err)
	}
	if shares.HeldQty != 3 || shares.WantQty != 5 {
		t.Fatalf("detail = %+v", shares)
	}

	acct, _, _ := accounts.Get(ctx, "u1", "spring")
	if acct.CurrentHoldings["ACME"] != 3 || len(acct.TradeHistory) != 1 {
		t.Fatalf("declined sell mutated account: %+v", acct)
	}
}

func TestTradeValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService(t, map[string]int64{"ACME": 1500})
	if _, err := svc.Signup(ctx, "u1"); err != nil {
		t.Fatalf("signup: %v", err)
	}

	if _, err := svc.Buy(ctx, "u1", "toolong", 1); !errors.Is(err, ErrInvalidTicker) {
		t.Fatalf("want ErrInvalidTicker, got %v", err)
	}
	if _, err := svc.Buy(ctx, "u1", "ACME", 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("want ErrInvalidQuantity, got %v", err)
	}
	if _, err := svc.Buy(ctx, "u2", "ACME", 1); !errors.Is(err, ErrNotSignedUp) {
		t.Fatalf("want ErrNotSignedUp, got %v", err)
	}
}

func TestSignupRules(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService(t, nil)

	if _, err := svc.Signup(ctx, "u1"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if _, err := svc.Signup(ctx, "u1"); !errors.Is(err, ErrDuplicateSignup) {
		t.Fatalf("want ErrDuplicateSignup, got %v", err)
	}

	// Outside every season there is nothing to sign up for.
	svc.now = func() time.Time { return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC) }
	if _, err := svc.Signup(ctx, "u2"); !errors.Is(err, ErrNoActiveSeason) {
		t.Fatalf("want ErrNoActiveSeason, got %v", err)
	}
}

func TestSignupDefaultStartingBalance(t *testing.T) {
	ctx := context.Background()
	svc, accounts, seasons, _ := newTestService(t, nil)

	// A season without its own starting balance falls back to the
	// service-wide default.
	season, _, _ := seasons.Get(ctx, "spring")
	season.StartingBalanceCents = 0
	if err := seasons.Put(ctx, season); err != nil {
		t.Fatalf("put season: %v", err)
	}
	if err := svc.registry.Refresh(ctx); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	svc.SetDefaultStartingBalance(42_000)

	if _, err := svc.Signup(ctx, "u1"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	acct, _, _ := accounts.Get(ctx, "u1", "spring")
	if acct.BalanceCents != 42_000 {
		t.Fatalf("balance = %d, want 42000", acct.BalanceCents)
	}
}

func TestGrant(t *testing.T) {
	ctx := context.Background()
	svc, accounts, _, _ := newTestService(t, nil)
	if _, err := svc.Signup(ctx, "u1"); err != nil {
		t.Fatalf("signup: %v", err)
	}

	balance, err := svc.Grant(ctx, "u1", 25_000)
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if balance != 125_000 {
		t.Fatalf("balance = %d, want 125000", balance)
	}
	acct, _, _ := accounts.Get(ctx, "u1", "spring")
	if acct.BalanceCents != 125_000 {
		t.Fatalf("stored balance = %d", acct.BalanceCents)
	}

	if _, err := svc.Grant(ctx, "u1", 0); !errors.Is(err, ErrInvalidGrant) {
		t.Fatalf("want ErrInvalidGrant, got %v", err)
	}
	if _, err := svc.Grant(ctx, "u2", 100); !errors.Is(err, ErrNotSignedUp) {
		t.Fatalf("want ErrNotSignedUp, got %v", err)
	}
}

func TestAddAndEndSeason(t *testing.T) {
	ctx := context.Background()
	svc, _, seasons, now := newTestService(t, nil)

	next := Season{
		Name:  "summer",
		Start: now.Add(60 * 24 * time.Hour).UnixMilli(),
		End:   now.Add(90 * 24 * time.Hour).UnixMilli(),
	}
	if err := svc.AddSeason(ctx, next); err != nil {
		t.Fatalf("add season: %v", err)
	}
	if _, ok, _ := seasons.Get(ctx, "summer"); !ok {
		t.Fatalf("summer not persisted")
	}

	overlapping := Season{
		Name:  "overlap",
		Start: now.UnixMilli(),
		End:   now.Add(24 * time.Hour).UnixMilli(),
	}
	if err := svc.AddSeason(ctx, overlapping); !errors.Is(err, ErrSeasonOverlap) {
		t.Fatalf("want ErrSeasonOverlap, got %v", err)
	}

	ended, err := svc.EndSeason(ctx, "spring")
	if err != nil {
		t.Fatalf("end season: %v", err)
	}
	if ended.End >= now.UnixMilli() {
		t.Fatalf("end = %d, want < %d", ended.End, now.UnixMilli())
	}
	// The registry refresh makes the change visible immediately.
	if _, ok := svc.registry.Active(now); ok {
		t.Fatalf("spring still active after early end")
	}

	if _, err := svc.EndSeason(ctx, "spring"); !errors.Is(err, ErrSeasonEnded) {
		t.Fatalf("want ErrSeasonEnded, got %v", err)
	}
	if _, err := svc.EndSeason(ctx, "missing"); !errors.Is(err, ErrSeasonNotFound) {
		t.Fatalf("want ErrSeasonNotFound, got %v", err)
	}
}

func TestPrewarmRotation(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _ := newTestService(t, map[string]int64{"AAA": 100, "BBB": 200, "CCC": 300})
	if _, err := svc.Signup(ctx, "u1"); err != nil {
		t.Fatalf("signup: %v", err)
	}
	for _, ticker := range []string{"AAA", "BBB", "CCC"} {
		if _, err := svc.Buy(ctx, "u1", ticker, 1); err != nil {
			t.Fatalf("buy %s: %v", ticker, err)
		}
	}

	next, err := svc.PrewarmPrices(ctx, 0, 2)
	if err != nil {
		t.Fatalf("prewarm: %v", err)
	}
	if next != 2 {
		t.Fatalf("next offset = %d, want 2", next)
	}
	next, err = svc.PrewarmPrices(ctx, next, 2)
	if err != nil {
		t.Fatalf("prewarm: %v", err)
	}
	if next != 1 {
		t.Fatalf("wrapped offset = %d, want 1", next)
	}
}
