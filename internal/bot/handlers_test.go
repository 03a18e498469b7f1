package bot

import (
	"errors"
	"strings"
	"testing"

	"tickerbot/internal/game"
	"tickerbot/internal/market"
)

func TestParseMention(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"<@123456>", "123456"},
		{"<@!123456>", "123456"},
		{"123456", "123456"},
	}
	for _, tc := range tests {
		if got := parseMention(tc.in); got != tc.want {
			t.Fatalf("parseMention(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseDay(t *testing.T) {
	day, err := parseDay("2025-03-12")
	if err != nil {
		t.Fatalf("parseDay: %v", err)
	}
	if day.Location() != market.Eastern() {
		t.Fatalf("location = %v, want Eastern", day.Location())
	}
	if day.Year() != 2025 || day.Month() != 3 || day.Day() != 12 {
		t.Fatalf("day = %v", day)
	}
	if _, err := parseDay("03/12/2025"); err == nil {
		t.Fatalf("parseDay accepted wrong layout")
	}
}

func TestDeclineMessage(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		substr  string
		decline bool
	}{
		{"insufficient funds", &game.InsufficientFundsError{NeedCents: 15_000, HaveCents: 10_000}, "short $50.00", true},
		{"insufficient shares", &game.InsufficientSharesError{Ticker: "ACME", HeldQty: 3, WantQty: 5}, "hold 3", true},
		{"no season", game.ErrNoActiveSeason, "no active season", true},
		{"duplicate signup", game.ErrDuplicateSignup, "already signed up", true},
		{"unknown ticker", market.ErrTickerNotFound, "Unknown ticker", true},
		{"dependency failure passes through", errors.New("redis timeout"), "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			msg, ok := declineMessage(tc.err)
			if ok != tc.decline {
				t.Fatalf("declined = %v, want %v (msg %q)", ok, tc.decline, msg)
			}
			if tc.decline && !strings.Contains(msg, tc.substr) {
				t.Fatalf("msg = %q, want substring %q", msg, tc.substr)
			}
		})
	}
}

func TestSortedTickers(t *testing.T) {
	got := sortedTickers(map[string]int64{"ZZZ": 1, "AAA": 2, "MMM": 3})
	want := []string{"AAA", "MMM", "ZZZ"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}
