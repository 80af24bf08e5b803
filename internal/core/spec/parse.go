// Package spec turns command-line input into reminder due specs.
package spec

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/remindcli/remind/internal/cmn/duration"
	"github.com/remindcli/remind/internal/core"
)

// ErrInvalidDueTime reports a due time in none of the accepted layouts.
var ErrInvalidDueTime = errors.New("invalid due time")

// dueLayouts are tried in order. Layouts without a zone are read in the
// configured location.
var dueLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"01/02/2006 15:04",
	"01/02/2006",
	"15:04",
}

// ParseDueTime parses an absolute or relative due time. Relative forms are
// "+30m", "in 2h" and "+1d12h". A
// bare clock time means its next occurrence, today or tomorrow.
func ParseDueTime(input string, now time.Time, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidDueTime)
	}
	if loc == nil {
		loc = time.Local
	}

	if rel, ok := cutRelative(s); ok {
		d, err := duration.Parse(rel)
		if err != nil || d <= 0 {
			return time.Time{}, fmt.Errorf("%w: %q is not a positive duration", ErrInvalidDueTime, input)
		}
		return now.Add(d), nil
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}

	for _, layout := range dueLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err != nil {
			continue
		}
		if layout == "15:04" {
			local := now.In(loc)
			t = time.Date(local.Year(), local.Month(), local.Day(), t.Hour(), t.Minute(), 0, 0, loc)
			if !t.After(now) {
				t = t.AddDate(0, 0, 1)
			}
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q (try YYYY-MM-DD HH:MM, MM/DD/YYYY, HH:MM or +30m)", ErrInvalidDueTime, input)
}

func cutRelative(s string) (string, bool) {
	if rest, ok := strings.CutPrefix(s, "+"); ok {
		return strings.TrimSpace(rest), true
	}
	if rest, ok := strings.CutPrefix(strings.ToLower(s), "in "); ok {
		return strings.ReplaceAll(rest, " ", ""), true
	}
	return "", false
}

// DueInput is the raw due information of an add command.
type DueInput struct {
	// When is an absolute or relative due time.
	When string
	// Cron is a recurrence rule. It is mutually exclusive with When.
	Cron string
	// TZ is the zone recorded on recurring reminders.
	TZ string
}

// ParseDue validates input and builds the due spec. A malformed rule
// fails with core.ErrMalformedRule.
func ParseDue(in DueInput, now time.Time, loc *time.Location) (core.DueSpec, error) {
	when := strings.TrimSpace(in.When)
	rule := strings.TrimSpace(in.Cron)

	switch {
	case when != "" && rule != "":
		return core.DueSpec{}, errors.New("a reminder takes either a due time or a cron rule, not both")
	case rule != "":
		if _, err := core.ParseRule(rule, in.TZ); err != nil {
			return core.DueSpec{}, err
		}
		due := core.CronRule(rule, in.TZ)
		if _, ok := core.NextOccurrence(due, now); !ok {
			return core.DueSpec{}, fmt.Errorf("%w: %q never fires within %d years", core.ErrMalformedRule, rule, core.SearchHorizon)
		}
		return due, nil
	case when != "":
		at, err := ParseDueTime(when, now, loc)
		if err != nil {
			return core.DueSpec{}, err
		}
		return core.FixedAt(at), nil
	default:
		return core.DueSpec{}, errors.New("a due time or a cron rule is required")
	}
}
