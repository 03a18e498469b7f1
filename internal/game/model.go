package game

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
)

const (
	CentsPerDollar = int64(100)

	// DefaultStartingBalanceCents is used when a season does not carry its
	// own starting balance.
	DefaultStartingBalanceCents = int64(100_000) * CentsPerDollar

	DefaultLeaderboardLimit = 10
)

var (
	ErrInvalidTicker   = errors.New("ticker must be 1-5 uppercase letters")
	ErrInvalidQuantity = errors.New("quantity must be > 0")
	ErrNoActiveSeason  = errors.New("no active season")
	ErrNotSignedUp     = errors.New("not signed up for this season")
	ErrDuplicateSignup = errors.New("already signed up for this season")
	ErrSeasonNotFound  = errors.New("season not found")
	ErrSeasonName      = errors.New("season name is required")
	ErrSeasonExists    = errors.New("season name already exists")
	ErrSeasonOverlap   = errors.New("season interval overlaps an existing season")
	ErrSeasonBounds    = errors.New("season start must be before end")
	ErrSeasonEnded     = errors.New("season has already ended")
	ErrInvalidGrant    = errors.New("grant amount must be > 0")
)

var tickerRE = regexp.MustCompile(`^[A-Z]{1,5}$`)

func normalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

func ValidateTicker(ticker string) error {
	if !tickerRE.MatchString(strings.TrimSpace(ticker)) {
		return ErrInvalidTicker
	}
	return nil
}

// InsufficientFundsError declines a buy whose notional exceeds the balance.
// Shortfall is what the account is missing.
type InsufficientFundsError struct {
	NeedCents int64
	HaveCents int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: need %s, have %s (short %s)",
		FormatCents(e.NeedCents), FormatCents(e.HaveCents), FormatCents(e.ShortfallCents()))
}

func (e *InsufficientFundsError) ShortfallCents() int64 {
	return e.NeedCents - e.HaveCents
}

// InsufficientSharesError declines a sell of more shares than are held.
type InsufficientSharesError struct {
	Ticker  string
	HeldQty int64
	WantQty int64
}

func (e *InsufficientSharesError) Error() string {
	return fmt.Sprintf("not enough shares of %s: have %d, want %d", e.Ticker, e.HeldQty, e.WantQty)
}

func DollarsToCents(v float64) int64 {
	return int64(math.Round(v * float64(CentsPerDollar)))
}

func CentsToDollars(v int64) float64 {
	return float64(v) / float64(CentsPerDollar)
}

func FormatCents(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s$%d.%02d", sign, v/CentsPerDollar, v%CentsPerDollar)
}
