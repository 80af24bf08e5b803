package core

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
)

// SearchHorizon bounds how far ahead NextOccurrence looks for a match.
// Rules matching rarer than this (or never, like "0 0 30 2 *") are
// treated as exhausted.
const SearchHorizon = 8

// starBit marks a field written as "*" or "?" in a parsed rule.
const starBit = 1 << 63

var ruleParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Rule is a parsed recurrence rule bound to the zone it is evaluated in.
type Rule struct {
	spec  *cron.SpecSchedule
	every time.Duration
	loc   *time.Location
}

// ParseRule parses a cron expression. tz names the evaluation zone when the
// expression carries no CRON_TZ= prefix; empty means UTC.
func ParseRule(expr, tz string) (rule *Rule, err error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("%w: empty rule", ErrMalformedRule)
	}

	prefixed := strings.HasPrefix(expr, "TZ=") || strings.HasPrefix(expr, "CRON_TZ=")
	if prefixed && !strings.Contains(expr, " ") {
		return nil, fmt.Errorf("%w: %q has a zone but no schedule", ErrMalformedRule, expr)
	}

	defer func() {
		if r := recover(); r != nil {
			rule, err = nil, fmt.Errorf("%w: %q: %v", ErrMalformedRule, expr, r)
		}
	}()

	sched, err := ruleParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedRule, err)
	}

	loc := time.UTC
	if tz != "" && !prefixed {
		if loc, err = time.LoadLocation(tz); err != nil {
			return nil, fmt.Errorf("%w: unknown time zone %q", ErrMalformedRule, tz)
		}
	}

	switch s := sched.(type) {
	case *cron.SpecSchedule:
		if prefixed {
			loc = s.Location
		}
		return &Rule{spec: s, loc: loc}, nil
	case cron.ConstantDelaySchedule:
		return &Rule{every: s.Delay, loc: loc}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported schedule %T", ErrMalformedRule, sched)
	}
}

// Location returns the zone the rule is evaluated in.
func (r *Rule) Location() *time.Location {
	return r.loc
}

// Next returns the earliest instant strictly after after that matches
// every field of the rule, searching at most SearchHorizon years ahead.
func (r *Rule) Next(after time.Time) (time.Time, bool) {
	if r.every > 0 {
		return after.Add(r.every).UTC(), true
	}
	return r.next(after)
}

// next walks the calendar from the minute after after, skipping whole
// months, days and hours that cannot match before testing minutes.
func (r *Rule) next(after time.Time) (time.Time, bool) {
	s := r.spec
	loc := r.loc

	t := after.In(loc).Truncate(time.Minute).Add(time.Minute)
	limit := t.Year() + SearchHorizon

	for t.Year() <= limit {
		if 1<<uint(t.Month())&s.Month == 0 {
			t = time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, loc)
			continue
		}

		if !dayMatches(s, t) {
			t = time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, loc)
			continue
		}

		if 1<<uint(t.Hour())&s.Hour == 0 {
			// Step in absolute time: on a fall-back day the next wall hour
			// is ambiguous and time.Date would pick its later instance.
			t = t.Add(time.Duration(60-t.Minute()) * time.Minute)
			continue
		}

		if 1<<uint(t.Minute())&s.Minute == 0 {
			t = t.Add(time.Minute)
			continue
		}

		if !t.After(after) {
			t = t.Add(time.Minute)
			continue
		}
		return t.UTC(), true
	}
	return time.Time{}, false
}

// dayMatches applies cron's day rule: when both day-of-month and
// day-of-week are restricted a day matching either one qualifies.
func dayMatches(s *cron.SpecSchedule, t time.Time) bool {
	domMatch := 1<<uint(t.Day())&s.Dom > 0
	dowMatch := 1<<uint(t.Weekday())&s.Dow > 0
	if s.Dom&starBit > 0 || s.Dow&starBit > 0 {
		return domMatch && dowMatch
	}
	return domMatch || dowMatch
}

// NextOccurrence returns the earliest instant strictly after after at
// which due fires. It returns false for a consumed one-shot, an exhausted
// or malformed rule, and unknown kinds.
func NextOccurrence(due DueSpec, after time.Time) (time.Time, bool) {
	switch due.Kind {
	case DueFixed:
		if due.At.IsZero() || !due.At.After(after) {
			return time.Time{}, false
		}
		return due.At.UTC(), true
	case DueCron:
		rule, err := ParseRule(due.Rule, due.TimeZone)
		if err != nil {
			return time.Time{}, false
		}
		return rule.Next(after)
	default:
		return time.Time{}, false
	}
}

// Upcoming lists up to n consecutive occurrences after after.
func Upcoming(due DueSpec, after time.Time, n int) []time.Time {
	var out []time.Time
	for len(out) < n {
		next, ok := NextOccurrence(due, after)
		if !ok {
			break
		}
		out = append(out, next)
		after = next
	}
	return out
}
