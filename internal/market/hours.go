package market

import "time"

// US equity session open, 9:30 AM US/Eastern.
const (
	openHour   = 9
	openMinute = 30
)

var eastern = mustLoadEastern()

func mustLoadEastern() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		panic("load America/New_York: " + err.Error())
	}
	return loc
}

// Eastern returns the US/Eastern location used for market timing.
func Eastern() *time.Location {
	return eastern
}

// NextMarketOpen returns the next 9:30 AM US/Eastern instant strictly after
// t, skipping Saturday and Sunday. A previous-close quote stays valid until
// this instant.
func NextMarketOpen(t time.Time) time.Time {
	et := t.In(eastern)
	open := time.Date(et.Year(), et.Month(), et.Day(), openHour, openMinute, 0, 0, eastern)
	if !open.After(t) {
		open = open.AddDate(0, 0, 1)
	}
	for open.Weekday() == time.Saturday || open.Weekday() == time.Sunday {
		open = open.AddDate(0, 0, 1)
	}
	return open
}

// UntilNextMarketOpen returns the cache TTL for a quote fetched at t.
func UntilNextMarketOpen(t time.Time) time.Duration {
	return NextMarketOpen(t).Sub(t)
}
