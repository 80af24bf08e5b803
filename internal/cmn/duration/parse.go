// Package duration reads the relative times used by "add --at +2d" and
// "snooze --for".
package duration

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

var errEmpty = errors.New("duration is empty")

// leadingDays matches the optional day count that may prefix a duration.
var leadingDays = regexp.MustCompile(`^(\d+)d`)

const (
	day = 24 * time.Hour
	// maxDays keeps days*24h plus the remainder inside an int64.
	maxDays = 100_000
)

// Parse reads a time.ParseDuration string optionally prefixed by a day count,
// e.g. "2d", "2d12h" or "1d30m". Days are fixed 24h spans, not calendar days.
func Parse(s string) (time.Duration, error) {
	if s == "" {
		return 0, errEmpty
	}

	var days time.Duration
	rest := s
	if m := leadingDays.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || time.Duration(n) > maxDays {
			return 0, fmt.Errorf("duration %q: day count out of range", s)
		}
		days = time.Duration(n) * day
		rest = s[len(m[0]):]
	}

	var d time.Duration
	if rest != "" {
		var err error
		if d, err = time.ParseDuration(rest); err != nil {
			return 0, fmt.Errorf("duration %q: %w", s, err)
		}
		if d < 0 {
			return 0, fmt.Errorf("duration %q is negative", s)
		}
	}
	return days + d, nil
}
