package util

import (
	"fmt"
	"strconv"
	"time"
)

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ResolveRange builds a [from, to] interval from optional query values.
// to defaults to now; from defaults to to minus window, and window to def.
func ResolveRange(fromS, toS, windowS string, def time.Duration, now time.Time) (time.Time, time.Time, error) {
	to := now
	if toS != "" {
		t, ok := ParseTime(toS)
		if !ok {
			return time.Time{}, time.Time{}, fmt.Errorf("to: cannot parse %q", toS)
		}
		to = t
	}

	var from time.Time
	switch {
	case fromS != "":
		t, ok := ParseTime(fromS)
		if !ok {
			return time.Time{}, time.Time{}, fmt.Errorf("from: cannot parse %q", fromS)
		}
		from = t
	default:
		window := def
		if windowS != "" {
			d, err := time.ParseDuration(windowS)
			if err != nil || d <= 0 {
				return time.Time{}, time.Time{}, fmt.Errorf("window must be a positive duration, got %q", windowS)
			}
			window = d
		}
		from = to.Add(-window)
	}

	if from.After(to) {
		return time.Time{}, time.Time{}, fmt.Errorf("from is after to")
	}
	return from.UTC(), to.UTC(), nil
}
