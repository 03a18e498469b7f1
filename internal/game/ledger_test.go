package game

import (
	"errors"
	"testing"
)

func TestBuyHoldings(t *testing.T) {
	orig := map[string]int64{"ACME": 2}
	next := buyHoldings(orig, "ACME", 3)
	if next["ACME"] != 5 {
		t.Fatalf("ACME = %d, want 5", next["ACME"])
	}
	if orig["ACME"] != 2 {
		t.Fatalf("input map mutated: %v", orig)
	}

	next = buyHoldings(orig, "NEW", 1)
	if next["NEW"] != 1 || next["ACME"] != 2 {
		t.Fatalf("holdings = %v", next)
	}
}

func TestSellHoldings(t *testing.T) {
	tests := []struct {
		name     string
		holdings map[string]int64
		ticker   string
		qty      int64
		want     map[string]int64
		wantErr  bool
	}{
		{
			name:     "partial sell keeps remainder",
			holdings: map[string]int64{"ACME": 5},
			ticker:   "ACME",
			qty:      2,
			want:     map[string]int64{"ACME": 3},
		},
		{
			name:     "full sell removes key",
			holdings: map[string]int64{"ACME": 5, "OTHR": 1},
			ticker:   "ACME",
			qty:      5,
			want:     map[string]int64{"OTHR": 1},
		},
		{
			name:     "oversell declined",
			holdings: map[string]int64{"ACME": 5},
			ticker:   "ACME",
			qty:      6,
			wantErr:  true,
		},
		{
			name:     "unknown ticker declined",
			holdings: map[string]int64{"ACME": 5},
			ticker:   "GONE",
			qty:      1,
			wantErr:  true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := sellHoldings(tc.holdings, tc.ticker, tc.qty)
			if tc.wantErr {
				var shares *InsufficientSharesError
				if !errors.As(err, &shares) {
					t.Fatalf("want InsufficientSharesError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("sellHoldings: %v", err)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("holdings = %v, want %v", got, tc.want)
			}
			for k, v := range tc.want {
				if got[k] != v {
					t.Fatalf("holdings[%s] = %d, want %d", k, got[k], v)
				}
			}
		})
	}
}

func TestSellHoldingsDoesNotMutateInput(t *testing.T) {
	orig := map[string]int64{"ACME": 5}
	if _, err := sellHoldings(orig, "ACME", 5); err != nil {
		t.Fatalf("sellHoldings: %v", err)
	}
	if orig["ACME"] != 5 {
		t.Fatalf("input map mutated: %v", orig)
	}
}

func TestReplayHistory(t *testing.T) {
	history := []TradeRecord{
		{Ticker: "AAA", Type: TradeBuy, PriceCents: 1_000, Quantity: 4},
		{Ticker: "BBB", Type: TradeBuy, PriceCents: 500, Quantity: 10},
		{Ticker: "AAA", Type: TradeSell, PriceCents: 1_200, Quantity: 4},
		{Ticker: "BBB", Type: TradeSell, PriceCents: 400, Quantity: 3},
	}
	balance, holdings := ReplayHistory(100_000, history)

	// 100000 - 4000 - 5000 + 4800 + 1200 = 97000
	if balance != 97_000 {
		t.Fatalf("balance = %d, want 97000", balance)
	}
	if len(holdings) != 1 || holdings["BBB"] != 7 {
		t.Fatalf("holdings = %v, want {BBB:7}", holdings)
	}
}

func TestReplayHistoryEmpty(t *testing.T) {
	balance, holdings := ReplayHistory(50_000, nil)
	if balance != 50_000 || len(holdings) != 0 {
		t.Fatalf("balance = %d holdings = %v", balance, holdings)
	}
}
