package core

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func utc(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
}

func TestNextOccurrence_Fixed(t *testing.T) {
	t.Parallel()

	at := utc(2026, 3, 10, 9, 0)
	due := FixedAt(at)

	next, ok := NextOccurrence(due, at.Add(-time.Second))
	require.True(t, ok)
	assert.Equal(t, at, next)

	for _, after := range []time.Time{at, at.Add(time.Nanosecond), at.Add(time.Hour), at.AddDate(5, 0, 0)} {
		_, ok := NextOccurrence(due, after)
		assert.False(t, ok, "after %s", after)
	}

	_, ok = NextOccurrence(DueSpec{Kind: DueFixed}, at)
	assert.False(t, ok, "zero instant never fires")
}

func TestNextOccurrence_Cron(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		rule  string
		tz    string
		after time.Time
		want  time.Time
	}{
		{"DailyLaterToday", "0 9 * * *", "", utc(2026, 3, 10, 8, 59), utc(2026, 3, 10, 9, 0)},
		{"DailyAlreadyPassed", "0 9 * * *", "", utc(2026, 3, 10, 10, 0), utc(2026, 3, 11, 9, 0)},
		{"StrictlyAfter", "0 9 * * *", "", utc(2026, 3, 11, 9, 0), utc(2026, 3, 12, 9, 0)},
		{"SubMinuteAfter", "* * * * *", "", utc(2026, 3, 10, 9, 0).Add(30 * time.Second), utc(2026, 3, 10, 9, 1)},
		{"Day31SkipsFebruary", "0 12 31 * *", "", utc(2026, 1, 31, 13, 0), utc(2026, 3, 31, 12, 0)},
		{"Day31SkipsApril", "0 12 31 * *", "", utc(2026, 3, 31, 12, 0), utc(2026, 5, 31, 12, 0)},
		{"LeapDay", "0 0 29 2 *", "", utc(2026, 1, 1, 0, 0), utc(2028, 2, 29, 0, 0)},
		{"YearRollover", "15 6 1 1 *", "", utc(2026, 6, 1, 0, 0), utc(2027, 1, 1, 6, 15)},
		{"DomOrDowViaDow", "0 9 13 * 5", "", utc(2026, 3, 1, 0, 0), utc(2026, 3, 6, 9, 0)},
		{"DomOrDowViaDom", "0 9 13 * 5", "", utc(2026, 4, 11, 0, 0), utc(2026, 4, 13, 9, 0)},
		{"DowOnly", "0 9 * * 5", "", utc(2026, 4, 11, 0, 0), utc(2026, 4, 17, 9, 0)},
		{"DomOnly", "0 9 13 * *", "", utc(2026, 3, 14, 0, 0), utc(2026, 4, 13, 9, 0)},
		{"RangesAndSteps", "*/15 9-17 * * 1-5", "", utc(2026, 4, 10, 17, 50), utc(2026, 4, 13, 9, 0)},
		{"NamedMonthAndDay", "0 8 * jan mon", "", utc(2026, 3, 1, 0, 0), utc(2027, 1, 4, 8, 0)},
		{"Descriptor", "@daily", "", utc(2026, 3, 10, 10, 0), utc(2026, 3, 11, 0, 0)},
		{"Every", "@every 90m", "", utc(2026, 3, 10, 10, 0), utc(2026, 3, 10, 11, 30)},
		{"StoredZone", "0 9 * * *", "Asia/Tokyo", utc(2026, 3, 10, 0, 0), utc(2026, 3, 11, 0, 0)},
		{"PrefixWinsOverStoredZone", "CRON_TZ=America/New_York 30 8 * * *", "Asia/Tokyo", utc(2026, 1, 15, 0, 0), utc(2026, 1, 15, 13, 30)},
		{"DaylightSavingOffset", "CRON_TZ=America/New_York 30 8 * * *", "", utc(2026, 7, 15, 0, 0), utc(2026, 7, 15, 12, 30)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := NextOccurrence(CronRule(tt.rule, tt.tz), tt.after)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextOccurrence_SpringForwardGap(t *testing.T) {
	t.Parallel()

	// 2026-03-08 02:30 does not exist in New York.
	due := CronRule("30 2 * * *", "America/New_York")
	got, ok := NextOccurrence(due, utc(2026, 3, 8, 5, 0))
	require.True(t, ok)
	assert.True(t, got.After(utc(2026, 3, 8, 5, 0)))

	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	local := got.In(ny)
	assert.Equal(t, 30, local.Minute())
}

func TestNextOccurrence_FallBack(t *testing.T) {
	t.Parallel()

	// London repeats 01:00-02:00 on 2029-10-28: BST until 01:00 UTC, then GMT.
	daily := CronRule("0 1 * * *", "Europe/London")
	first, ok := NextOccurrence(daily, utc(2029, 10, 27, 12, 0))
	require.True(t, ok)
	assert.Equal(t, utc(2029, 10, 28, 0, 0), first)

	second, ok := NextOccurrence(daily, first)
	require.True(t, ok)
	assert.Equal(t, utc(2029, 10, 28, 1, 0), second)

	// Day-of-month OR day-of-week, reached from the previous evening.
	sundays := CronRule("0 1 1 * 0", "Europe/London")
	got, ok := NextOccurrence(sundays, utc(2029, 10, 27, 20, 31))
	require.True(t, ok)
	assert.Equal(t, utc(2029, 10, 28, 0, 0), got)
}

// TestNextOccurrence_MatchesReferenceAcrossFallBack compares zoned rules
// with robfig/cron on the nights clocks go back.
func TestNextOccurrence_MatchesReferenceAcrossFallBack(t *testing.T) {
	t.Parallel()

	zones := map[string]time.Time{
		"Europe/London":    utc(2029, 10, 27, 18, 0),
		"America/New_York": utc(2026, 11, 1, 0, 0),
	}
	rules := []string{"0 1 * * *", "30 1 * * *", "*/20 0-3 * * *", "0 2 * * 0", "15 * * * *"}

	for zone, start := range zones {
		for _, rule := range rules {
			ref, err := ruleParser.Parse("CRON_TZ=" + zone + " " + rule)
			require.NoError(t, err)

			for step := range 24 {
				after := start.Add(time.Duration(step) * 17 * time.Minute)
				got, ok := NextOccurrence(CronRule(rule, zone), after)
				require.True(t, ok)
				assert.Equal(t, ref.Next(after).UTC(), got, "%s %q after %s", zone, rule, after)
			}
		}
	}
}

func TestNextOccurrence_Exhausted(t *testing.T) {
	t.Parallel()

	for _, rule := range []string{"0 0 30 2 *", "0 0 31 4 *", "0 0 31 11 *"} {
		_, ok := NextOccurrence(CronRule(rule, ""), utc(2026, 1, 1, 0, 0))
		assert.False(t, ok, rule)
	}
}

func TestNextOccurrence_FailsClosed(t *testing.T) {
	t.Parallel()

	specs := []DueSpec{
		CronRule("61 * * * *", ""),
		CronRule("not a rule", ""),
		CronRule("", ""),
		CronRule("CRON_TZ=UTC", ""),
		CronRule("0 9 * * *", "Mars/Olympus"),
		{Kind: "lunar", Rule: "0 9 * * *"},
	}
	for _, due := range specs {
		_, ok := NextOccurrence(due, utc(2026, 1, 1, 0, 0))
		assert.False(t, ok, "%+v", due)
	}
}

func TestParseRule(t *testing.T) {
	t.Parallel()

	_, err := ParseRule("0 9 * * *", "")
	require.NoError(t, err)

	for _, expr := range []string{"61 * * * *", "* * *", "@fortnightly", "CRON_TZ=Nowhere/City 0 9 * * *"} {
		_, err := ParseRule(expr, "")
		assert.ErrorIs(t, err, ErrMalformedRule, expr)
	}

	r, err := ParseRule("CRON_TZ=Europe/Paris 0 9 * * *", "Asia/Tokyo")
	require.NoError(t, err)
	assert.Equal(t, "Europe/Paris", r.Location().String())

	r, err = ParseRule("0 9 * * *", "")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, r.Location())
}

func TestNextOccurrence_Idempotent(t *testing.T) {
	t.Parallel()

	due := CronRule("7 */3 * * 2,4", "Europe/Berlin")
	after := utc(2026, 10, 24, 23, 59)
	first, ok1 := NextOccurrence(due, after)
	second, ok2 := NextOccurrence(due, after)
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, first, second)
}

// TestNextOccurrence_MatchesReference cross-checks the search against
// robfig/cron's own scheduler for rules it can evaluate in UTC.
func TestNextOccurrence_MatchesReference(t *testing.T) {
	t.Parallel()

	rules := []string{
		"0 9 * * *",
		"*/7 * * * *",
		"30 4 1,15 * *",
		"0 0 * * 0",
		"5 10 13 * 5",
		"0 12 31 * *",
		"45 23 * 2 *",
		"0 6-8 * * 1-5",
		"@weekly",
		"@monthly",
	}
	rng := rand.New(rand.NewPCG(1, 2))
	base := utc(2025, 1, 1, 0, 0)

	for _, rule := range rules {
		ref, err := ruleParser.Parse("CRON_TZ=UTC " + rule)
		require.NoError(t, err, rule)

		after := base
		for range 50 {
			after = after.Add(time.Duration(rng.Int64N(int64(90 * 24 * time.Hour))))

			got, ok := NextOccurrence(CronRule(rule, ""), after)
			require.True(t, ok, rule)
			want := ref.Next(after).UTC()
			require.Equal(t, want, got, "rule %q after %s", rule, after)
			require.True(t, got.After(after))
		}
	}
}

func TestUpcoming(t *testing.T) {
	t.Parallel()

	got := Upcoming(CronRule("0 9 * * *", ""), utc(2026, 3, 10, 10, 0), 3)
	assert.Equal(t, []time.Time{
		utc(2026, 3, 11, 9, 0),
		utc(2026, 3, 12, 9, 0),
		utc(2026, 3, 13, 9, 0),
	}, got)

	assert.Len(t, Upcoming(FixedAt(utc(2026, 3, 11, 9, 0)), utc(2026, 3, 10, 10, 0), 3), 1)
	assert.Empty(t, Upcoming(CronRule("bad", ""), utc(2026, 3, 10, 10, 0), 3))
}
