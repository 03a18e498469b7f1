package game

import "time"

type TradeType string

const (
	TradeBuy  TradeType = "buy"
	TradeSell TradeType = "sell"
)

// TradeRecord is an immutable entry in an account's trade history.
type TradeRecord struct {
	ID         string    `json:"id"`
	Ticker     string    `json:"ticker"`
	Ts         int64     `json:"ts"` // unix ms
	Type       TradeType `json:"type"`
	PriceCents int64     `json:"price"`
	Quantity   int64     `json:"quantity"`
}

// Account is one user's state within one season. Holdings quantities are
// strictly positive; a ticker sold down to zero is removed from the map.
type Account struct {
	BalanceCents    int64            `json:"balance"`
	CurrentHoldings map[string]int64 `json:"currentHoldings"`
	TradeHistory    []TradeRecord    `json:"tradeHistory"`
	SignupTs        int64            `json:"signupTs"`
}

type UserAccount struct {
	UserID  string
	Account Account
}

// Season is a time-bounded competition instance. The active season is the
// one whose [Start, End) interval contains the current instant; it is
// derived, never stored.
type Season struct {
	Name                 string `json:"name"`
	Start                int64  `json:"start"` // unix ms
	End                  int64  `json:"end"`   // unix ms
	StartingBalanceCents int64  `json:"startingBalance"`
}

func (s Season) Contains(now time.Time) bool {
	ms := now.UnixMilli()
	return ms >= s.Start && ms < s.End
}

type LeaderboardRow struct {
	UserID          string `json:"userId"`
	TotalValueCents int64  `json:"totalValue"`
}

// TradeOutcome reports a completed buy or sell back to the caller.
type TradeOutcome struct {
	Season          string
	Record          TradeRecord
	NotionalCents   int64
	NewBalanceCents int64
	NewQuantity     int64
}
