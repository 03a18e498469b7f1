package game

import (
	"errors"
	"testing"
	"time"
)

func seasonAt(name string, start, end time.Time) Season {
	return Season{Name: name, Start: start.UnixMilli(), End: end.UnixMilli()}
}

func TestResolveActiveSeason(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	day := func(n int) time.Time { return base.AddDate(0, 0, n) }

	s1 := seasonAt("first", day(0), day(10))
	s2 := seasonAt("second", day(10), day(20))
	overlap := seasonAt("overlap", day(5), day(15))

	tests := []struct {
		name        string
		seasons     []Season
		now         time.Time
		wantName    string
		wantMatches int
	}{
		{"no seasons", nil, day(1), "", 0},
		{"before all", []Season{s1, s2}, base.Add(-time.Hour), "", 0},
		{"inside first", []Season{s1, s2}, day(5), "first", 1},
		{"start is inclusive", []Season{s1, s2}, day(10), "second", 1},
		{"end is exclusive", []Season{s1}, day(10), "", 0},
		{"after all", []Season{s1, s2}, day(30), "", 0},
		{"overlap picks earliest start", []Season{overlap, s1}, day(7), "first", 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, matches := ResolveActiveSeason(tc.seasons, tc.now)
			if matches != tc.wantMatches {
				t.Fatalf("matches = %d, want %d", matches, tc.wantMatches)
			}
			if got.Name != tc.wantName {
				t.Fatalf("season = %q, want %q", got.Name, tc.wantName)
			}
		})
	}
}

func TestValidateNewSeason(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	day := func(n int) time.Time { return base.AddDate(0, 0, n) }
	existing := []Season{seasonAt("spring", day(0), day(10))}

	tests := []struct {
		name    string
		season  Season
		wantErr error
	}{
		{"valid disjoint", seasonAt("summer", day(20), day(30)), nil},
		{"adjacent is allowed", seasonAt("summer", day(10), day(20)), nil},
		{"empty name", seasonAt("  ", day(20), day(30)), ErrSeasonName},
		{"start equals end", seasonAt("summer", day(20), day(20)), ErrSeasonBounds},
		{"start after end", seasonAt("summer", day(30), day(20)), ErrSeasonBounds},
		{"duplicate name", seasonAt("spring", day(20), day(30)), ErrSeasonExists},
		{"overlaps tail", seasonAt("summer", day(5), day(15)), ErrSeasonOverlap},
		{"overlaps head", seasonAt("summer", day(-5), day(5)), ErrSeasonOverlap},
		{"contains existing", seasonAt("summer", day(-5), day(15)), ErrSeasonOverlap},
		{"inside existing", seasonAt("summer", day(2), day(8)), ErrSeasonOverlap},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateNewSeason(existing, tc.season)
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}
