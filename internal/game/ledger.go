package game

// Holdings mutations are computed on a copy; nothing is persisted until the
// caller writes the result back.

func buyHoldings(holdings map[string]int64, ticker string, qty int64) map[string]int64 {
	next := copyHoldings(holdings)
	next[ticker] += qty
	return next
}

func sellHoldings(holdings map[string]int64, ticker string, qty int64) (map[string]int64, error) {
	held := holdings[ticker]
	if held < qty {
		return nil, &InsufficientSharesError{Ticker: ticker, HeldQty: held, WantQty: qty}
	}
	next := copyHoldings(holdings)
	if held == qty {
		// A zero quantity is never stored; the key disappears instead.
		delete(next, ticker)
	} else {
		next[ticker] = held - qty
	}
	return next, nil
}

func copyHoldings(holdings map[string]int64) map[string]int64 {
	next := make(map[string]int64, len(holdings))
	for k, v := range holdings {
		next[k] = v
	}
	return next
}

// ReplayHistory reconstructs balance and holdings by applying a trade
// history, in order, to a signup baseline. Replaying an account's full
// history must land on its persisted state.
func ReplayHistory(startingCents int64, history []TradeRecord) (int64, map[string]int64) {
	balance := startingCents
	holdings := make(map[string]int64)
	for _, rec := range history {
		total := rec.PriceCents * rec.Quantity
		switch rec.Type {
		case TradeBuy:
			balance -= total
			holdings[rec.Ticker] += rec.Quantity
		case TradeSell:
			balance += total
			holdings[rec.Ticker] -= rec.Quantity
			if holdings[rec.Ticker] <= 0 {
				delete(holdings, rec.Ticker)
			}
		}
	}
	return balance, holdings
}
