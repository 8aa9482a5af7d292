package email

import (
	"strings"
	"time"
)

// SkewTolerance is how far in the past a requested delivery time may lie
// before it is rejected.
const SkewTolerance = 30 * time.Second

var scheduleLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseSchedule turns the caller supplied instant into a UTC time and checks
// it against now. Layouts without an offset are read as UTC.
func ParseSchedule(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrInvalidSchedule
	}

	var (
		at     time.Time
		parsed bool
	)
	for _, layout := range scheduleLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			at, parsed = t.UTC(), true
			break
		}
	}
	if !parsed {
		return time.Time{}, ErrInvalidSchedule
	}

	if at.Before(now.Add(-SkewTolerance)) {
		return time.Time{}, ErrPastSchedule
	}
	return at, nil
}

// DelayUntil is never negative.
func DelayUntil(scheduledAt, now time.Time) time.Duration {
	if d := scheduledAt.Sub(now); d > 0 {
		return d
	}
	return 0
}
