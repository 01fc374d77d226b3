package monitor

import (
	"errors"
	"fmt"
	"time"
)

// DefaultPeriod is the nominal tick period.
const DefaultPeriod = time.Minute

// maxYear bounds anchors to dates the usage API can represent.
const maxYear = 9999

// ErrDateOutOfRange is returned when the next anchor cannot be computed.
var ErrDateOutOfRange = errors.New("date out of range")

// initialTick returns now truncated to the minute minus one period, so the
// first tick covers the minute that just ended.
func initialTick(now time.Time, period time.Duration) time.Time {
	return now.Truncate(time.Minute).Add(-period)
}

// nextTick advances anchor by exactly one period.
func nextTick(anchor time.Time, period time.Duration) (time.Time, error) {
	next := anchor.Add(period)
	if !next.After(anchor) || next.Year() > maxYear {
		return time.Time{}, fmt.Errorf("%w: %s + %s", ErrDateOutOfRange, anchor.Format(time.RFC3339), period)
	}

	return next, nil
}

// sleepDuration returns how long to wait before the tick anchored at
// anchor. It is zero, never negative, once a full period has elapsed.
func sleepDuration(now, anchor time.Time, period time.Duration) time.Duration {
	elapsed := max(now.Sub(anchor), 0)
	if elapsed >= period {
		return 0
	}

	return period - elapsed
}
