package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"tickerbot/internal/game"
)

// AccountStore owns `user:{userId}:{seasonName}` documents. Ledger
// operations address balance, holdings and trade history as separate JSON
// paths, so a buy or sell lands as three independent writes with no
// transaction around them.
type AccountStore struct {
	rdb *redis.Client
	log *slog.Logger
}

func NewAccountStore(rdb *redis.Client, logger *slog.Logger) *AccountStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountStore{rdb: rdb, log: logger}
}

func accountKey(userID, season string) string {
	return fmt.Sprintf("user:%s:%s", userID, season)
}

func (s *AccountStore) Get(ctx context.Context, userID, season string) (game.Account, bool, error) {
	raw, err := s.rdb.JSONGet(ctx, accountKey(userID, season), "$").Result()
	if errors.Is(err, redis.Nil) {
		return game.Account{}, false, nil
	}
	if err != nil {
		return game.Account{}, false, fmt.Errorf("read account %s/%s: %w", userID, season, err)
	}
	acct, err := decodeAccount(raw)
	if err != nil {
		return game.Account{}, false, fmt.Errorf("decode account %s/%s: %w", userID, season, err)
	}
	return acct, true, nil
}

// List scans every account document for a season. A full scan is fine at
// the target scale of tens-to-low-hundreds of participants; keys come back
// sorted by user ID so downstream ordering is deterministic.
func (s *AccountStore) List(ctx context.Context, season string) ([]game.UserAccount, error) {
	pattern := accountKey("*", season)
	suffix := ":" + season

	var keys []string
	iter := s.rdb.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan accounts for %s: %w", season, err)
	}
	sort.Strings(keys)

	out := make([]game.UserAccount, 0, len(keys))
	for _, key := range keys {
		userID := strings.TrimSuffix(strings.TrimPrefix(key, "user:"), suffix)
		raw, err := s.rdb.JSONGet(ctx, key, "$").Result()
		if errors.Is(err, redis.Nil) {
			continue // expired or deleted between scan and read
		}
		if err != nil {
			return nil, fmt.Errorf("read account %s: %w", key, err)
		}
		acct, err := decodeAccount(raw)
		if err != nil {
			s.log.Error("skipping undecodable account document", "key", key, "err", err)
			continue
		}
		out = append(out, game.UserAccount{UserID: userID, Account: acct})
	}
	return out, nil
}

// Register creates the document only if it does not exist yet; NX makes
// the duplicate check atomic.
func (s *AccountStore) Register(ctx context.Context, userID, season string, acct game.Account) error {
	raw, err := json.Marshal(acct)
	if err != nil {
		return err
	}
	res, err := s.rdb.JSONSetMode(ctx, accountKey(userID, season), "$", string(raw), "NX").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("register account %s/%s: %w", userID, season, err)
	}
	// NX on an existing document yields redis.Nil / an empty result.
	if errors.Is(err, redis.Nil) || res == "" {
		return game.ErrDuplicateSignup
	}
	return nil
}

func (s *AccountStore) SetBalance(ctx context.Context, userID, season string, cents int64) error {
	err := s.rdb.JSONSet(ctx, accountKey(userID, season), "$.balance", cents).Err()
	if err != nil {
		return fmt.Errorf("write balance %s/%s: %w", userID, season, err)
	}
	return nil
}

func (s *AccountStore) SetHoldings(ctx context.Context, userID, season string, holdings map[string]int64) error {
	raw, err := json.Marshal(holdings)
	if err != nil {
		return err
	}
	if err := s.rdb.JSONSet(ctx, accountKey(userID, season), "$.currentHoldings", string(raw)).Err(); err != nil {
		return fmt.Errorf("write holdings %s/%s: %w", userID, season, err)
	}
	return nil
}

func (s *AccountStore) AppendTrade(ctx context.Context, userID, season string, rec game.TradeRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := s.rdb.JSONArrAppend(ctx, accountKey(userID, season), "$.tradeHistory", string(raw)).Err(); err != nil {
		return fmt.Errorf("append trade %s/%s: %w", userID, season, err)
	}
	return nil
}

// decodeAccount unwraps the single-element array a `$` path query returns.
func decodeAccount(raw string) (game.Account, error) {
	var docs []game.Account
	if err := json.Unmarshal([]byte(raw), &docs); err != nil {
		return game.Account{}, err
	}
	if len(docs) == 0 {
		return game.Account{}, fmt.Errorf("empty document")
	}
	acct := docs[0]
	if acct.CurrentHoldings == nil {
		acct.CurrentHoldings = map[string]int64{}
	}
	return acct, nil
}
