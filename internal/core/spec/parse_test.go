package spec

import (
	"testing"
	"time"

	"github.com/remindcli/remind/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDueTime(t *testing.T) {
	t.Parallel()

	tokyo, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, tokyo)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2026-03-11 09:30", time.Date(2026, 3, 11, 9, 30, 0, 0, tokyo)},
		{"2026-03-11 09:30:15", time.Date(2026, 3, 11, 9, 30, 15, 0, tokyo)},
		{"2026-03-11T09:30", time.Date(2026, 3, 11, 9, 30, 0, 0, tokyo)},
		{"2026-03-11", time.Date(2026, 3, 11, 0, 0, 0, 0, tokyo)},
		{"03/11/2026 09:30", time.Date(2026, 3, 11, 9, 30, 0, 0, tokyo)},
		{"03/11/2026", time.Date(2026, 3, 11, 0, 0, 0, 0, tokyo)},
		{"2026-03-11T09:30:00Z", time.Date(2026, 3, 11, 9, 30, 0, 0, time.UTC)},
		{"18:00", time.Date(2026, 3, 10, 18, 0, 0, 0, tokyo)},
		{"08:00", time.Date(2026, 3, 11, 8, 0, 0, 0, tokyo)},
		{"+30m", now.Add(30 * time.Minute)},
		{"in 2h", now.Add(2 * time.Hour)},
		{"in 1h 30m", now.Add(90 * time.Minute)},
		{"+1d12h", now.Add(36 * time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := ParseDueTime(tt.in, now, tokyo)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s got %s", tt.want, got)
		})
	}

	for _, bad := range []string{"", "tomorrow", "+-5m", "in soon", "2026-13-01"} {
		_, err := ParseDueTime(bad, now, tokyo)
		assert.ErrorIs(t, err, ErrInvalidDueTime, bad)
	}
}

func TestParseDue(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	due, err := ParseDue(DueInput{Cron: "0 9 * * *", TZ: "Europe/Paris"}, now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, core.CronRule("0 9 * * *", "Europe/Paris"), due)

	due, err = ParseDue(DueInput{When: "2026-03-11 09:00"}, now, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, core.DueFixed, due.Kind)
	assert.Equal(t, time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC), due.At)

	_, err = ParseDue(DueInput{Cron: "99 * * * *"}, now, time.UTC)
	assert.ErrorIs(t, err, core.ErrMalformedRule)

	_, err = ParseDue(DueInput{Cron: "0 0 30 2 *"}, now, time.UTC)
	assert.ErrorIs(t, err, core.ErrMalformedRule)

	_, err = ParseDue(DueInput{When: "+1h", Cron: "0 9 * * *"}, now, time.UTC)
	assert.Error(t, err)

	_, err = ParseDue(DueInput{}, now, time.UTC)
	assert.Error(t, err)
}
