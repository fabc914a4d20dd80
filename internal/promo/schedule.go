package promo

import (
	"fmt"
	"time"
)

// NextRun returns the next occurrence of the daily run time, given as "HH:MM"
// in UTC, strictly after now.
func NextRun(now time.Time, runAt string) (time.Time, error) {
	parsed, err := time.Parse("15:04", runAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid run time %q: %w", runAt, err)
	}
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), parsed.Hour(), parsed.Minute(), 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next, nil
}
