package game

import (
	"sort"
	"strings"
	"time"
)

// ResolveActiveSeason picks the season whose [start, end) interval contains
// now. It returns the chosen season and the number of matches: 0 means no
// active season, >1 means overlapping seasons slipped past creation-time
// validation; the match with the smallest start wins deterministically and
// the caller is expected to warn.
func ResolveActiveSeason(seasons []Season, now time.Time) (Season, int) {
	var matches []Season
	for _, s := range seasons {
		if s.Contains(now) {
			matches = append(matches, s)
		}
	}
	if len(matches) == 0 {
		return Season{}, 0
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Start != matches[j].Start {
			return matches[i].Start < matches[j].Start
		}
		return matches[i].Name < matches[j].Name
	})
	return matches[0], len(matches)
}

// ValidateNewSeason enforces the creation contract: non-empty unique name,
// start < end, and no [start, end) overlap with any existing season.
func ValidateNewSeason(existing []Season, s Season) error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrSeasonName
	}
	if s.Start >= s.End {
		return ErrSeasonBounds
	}
	for _, e := range existing {
		if e.Name == s.Name {
			return ErrSeasonExists
		}
		if overlaps(e, s) {
			return ErrSeasonOverlap
		}
	}
	return nil
}

func overlaps(a, b Season) bool {
	return a.Start < b.End && b.Start < a.End
}
