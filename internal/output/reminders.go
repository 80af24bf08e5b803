package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/remindcli/remind/internal/cmn/fileutil"
	"github.com/remindcli/remind/internal/core"
)

const (
	timeLayout     = "Mon Jan 2 15:04"
	maxContentCols = 48
)

// ListOptions controls RenderList.
type ListOptions struct {
	Now time.Time
	// Location displays times in this zone; nil means UTC.
	Location *time.Location
	// Style uses rounded borders instead of the plain layout.
	Style bool
}

var listHeader = table.Row{
	"",
	"ID",
	"State",
	"Pri",
	"Notify",
	"Next",
	"Schedule",
	"Content",
}

// RenderList renders reminders as a table in store order.
func RenderList(reminders []*core.Reminder, opts ListOptions) string {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	t := table.NewWriter()
	if opts.Style {
		t.SetStyle(table.StyleRounded)
	} else {
		t.SetStyle(table.StyleLight)
		t.Style().Options.DrawBorder = false
		t.Style().Options.SeparateColumns = false
		t.Style().Options.SeparateHeader = false
	}
	t.Style().Format.Header = text.FormatUpper
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
	})
	t.AppendHeader(listHeader)

	for _, r := range reminders {
		state := r.StateAt(opts.Now)
		t.AppendRow(table.Row{
			StateColorize(StateSymbol(r, state), r, state),
			r.ID,
			StateColorize(StateText(r, state), r, state),
			PriorityColorize(string(r.Priority.Normalize()), r.Priority),
			NotifyText(r),
			formatNext(r, opts.Now, loc),
			r.Due.String(),
			fileutil.TruncString(oneLine(r.Content), maxContentCols),
		})
	}
	return t.Render()
}

func formatNext(r *core.Reminder, now time.Time, loc *time.Location) string {
	if r.NextFireAt == nil || r.Completed {
		return "-"
	}
	return r.NextFireAt.In(loc).Format(timeLayout) + " (" + Relative(*r.NextFireAt, now) + ")"
}

// Relative describes t relative to now, like "in 2h" or "5m ago".
func Relative(t, now time.Time) string {
	d := t.Sub(now)
	if d > -time.Minute && d < time.Minute {
		return "now"
	}
	past := d < 0
	if past {
		d = -d
	}

	var s string
	switch {
	case d < time.Hour:
		s = strconv.Itoa(int(d/time.Minute)) + "m"
	case d < 48*time.Hour:
		h := d / time.Hour
		m := (d % time.Hour) / time.Minute
		s = strconv.Itoa(int(h)) + "h"
		if m > 0 && h < 10 {
			s += strconv.Itoa(int(m)) + "m"
		}
	default:
		s = strconv.Itoa(int(d/(24*time.Hour))) + "d"
	}

	if past {
		return s + " ago"
	}
	return "in " + s
}

// RenderReminder writes a detailed view of one reminder.
func RenderReminder(w io.Writer, r *core.Reminder, now time.Time, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	state := r.StateAt(now)

	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Options.DrawBorder = false
	t.Style().Options.SeparateColumns = false
	t.AppendRows([]table.Row{
		{"ID", r.ID},
		{"Content", r.Content},
		{"State", StateColorize(StateText(r, state), r, state)},
		{"Priority", PriorityColorize(string(r.Priority.Normalize()), r.Priority)},
		{"Notify", NotifyText(r)},
		{"Schedule", r.Due.String()},
		{"Next", formatNext(r, now, loc)},
		{"Created", formatTime(&r.CreatedAt, loc)},
		{"Last fired", formatTime(r.LastFiredAt, loc)},
	})
	if r.SnoozedUntil != nil {
		t.AppendRow(table.Row{"Snoozed until", formatTime(r.SnoozedUntil, loc)})
	}
	if r.CompletedAt != nil {
		t.AppendRow(table.Row{"Completed", formatTime(r.CompletedAt, loc)})
	}
	if r.LastError != "" {
		t.AppendRow(table.Row{"Last error", fmt.Sprintf("%s (%d attempts)", r.LastError, r.FailedAttempts)})
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func formatTime(t *time.Time, loc *time.Location) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.In(loc).Format(time.RFC3339)
}

// RenderUpcoming lists occurrence instants, one per line.
func RenderUpcoming(w io.Writer, times []time.Time, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	for _, t := range times {
		if _, err := fmt.Fprintln(w, t.In(loc).Format("2006-01-02 15:04 MST (Mon)")); err != nil {
			return err
		}
	}
	return nil
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
