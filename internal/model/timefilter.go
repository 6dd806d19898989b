package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeFilter bounds the window of messages taken into account.
// A nil *TimeFilter accepts everything.
type TimeFilter struct {
	Since *time.Time
	Until *time.Time
}

// ParseTimeFilter parses since/until arguments relative to now.
// Returns nil if both are empty. A date-only until covers that whole day.
func ParseTimeFilter(sinceStr, untilStr string, now time.Time) (*TimeFilter, error) {
	if sinceStr == "" && untilStr == "" {
		return nil, nil
	}

	var tf TimeFilter
	if sinceStr != "" {
		t, _, err := parseTimeArg(sinceStr, now)
		if err != nil {
			return nil, fmt.Errorf("invalid --since value %q: %w", sinceStr, err)
		}
		tf.Since = &t
	}
	if untilStr != "" {
		t, wholeDay, err := parseTimeArg(untilStr, now)
		if err != nil {
			return nil, fmt.Errorf("invalid --until value %q: %w", untilStr, err)
		}
		if wholeDay {
			t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		tf.Until = &t
	}

	if tf.Since != nil && tf.Until != nil && tf.Until.Before(*tf.Since) {
		return nil, fmt.Errorf("--until %s is before --since %s",
			tf.Until.Format(time.RFC3339), tf.Since.Format(time.RFC3339))
	}
	return &tf, nil
}

// Contains reports whether t falls inside the window. Bounds are inclusive.
func (tf *TimeFilter) Contains(t time.Time) bool {
	if tf == nil {
		return true
	}
	if tf.Since != nil && t.Before(*tf.Since) {
		return false
	}
	return tf.Until == nil || !t.After(*tf.Until)
}

const dateLayout = "2006-01-02"

// timestampLayouts are tried after dateLayout, in the location of now.
var timestampLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04"}

// parseTimeArg accepts a duration back from now ("2h", "1d") or an absolute
// instant. The bool is set when s named a calendar day.
func parseTimeArg(s string, now time.Time) (time.Time, bool, error) {
	if d, ok := parseRelativeDuration(s); ok {
		return now.Add(-d), false, nil
	}
	if t, err := time.ParseInLocation(dateLayout, s, now.Location()); err == nil {
		return t, true, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t, false, nil
		}
	}
	return time.Time{}, false, fmt.Errorf("expected 30m, 2h, 1d, 1w, 1y or a date (2006-01-02, 2006-01-02T15:04, RFC3339)")
}

// parseRelativeDuration handles the suffixes m, h, d, w and y (365 days).
func parseRelativeDuration(s string) (time.Duration, bool) {
	if len(s) < 2 {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(s[:len(s)-1]))
	if err != nil || n <= 0 {
		return 0, false
	}

	unit := map[byte]time.Duration{
		'm': time.Minute,
		'h': time.Hour,
		'd': 24 * time.Hour,
		'w': 7 * 24 * time.Hour,
		'y': 365 * 24 * time.Hour,
	}[s[len(s)-1]]
	if unit == 0 {
		return 0, false
	}
	return time.Duration(n) * unit, true
}
