// Package output renders reminders for the terminal.
package output

import (
	"github.com/fatih/color"

	"github.com/remindcli/remind/internal/core"
)

// State symbols using Unicode characters for visual clarity.
const (
	SymbolPending = "○"
	SymbolDue     = "●"
	SymbolFailed  = "✗"
	SymbolDone    = "✓"
	SymbolSnoozed = "◌"
)

// StateSymbol returns the symbol for r at its state.
func StateSymbol(r *core.Reminder, state core.State) string {
	switch {
	case r.Completed:
		return SymbolDone
	case state == core.StateDue && r.FailedAttempts > 0:
		return SymbolFailed
	case state == core.StateDue:
		return SymbolDue
	case r.SnoozedUntil != nil:
		return SymbolSnoozed
	case state == core.StateInert:
		return SymbolDone
	default:
		return SymbolPending
	}
}

// StateText returns a human-readable state.
func StateText(r *core.Reminder, state core.State) string {
	switch {
	case r.Completed:
		return "done"
	case state == core.StateDue && r.FailedAttempts > 0:
		return "failing"
	case r.SnoozedUntil != nil && state == core.StatePending:
		return "snoozed"
	case state == core.StateInert:
		return "expired"
	default:
		return state.String()
	}
}

// StateColorize applies color formatting to s based on the reminder state.
// Returns s unchanged when color is disabled.
func StateColorize(s string, r *core.Reminder, state core.State) string {
	switch {
	case r.Completed:
		return color.GreenString(s)
	case state == core.StateDue && r.FailedAttempts > 0:
		return color.RedString(s)
	case state == core.StateDue:
		return color.New(color.FgHiYellow).Sprint(s)
	case state == core.StateInert:
		return color.New(color.Faint).Sprint(s)
	case r.SnoozedUntil != nil:
		return color.BlueString(s)
	default:
		return s
	}
}

// PriorityColorize applies color formatting to s based on priority.
func PriorityColorize(s string, p core.Priority) string {
	switch p.Normalize() {
	case core.PriorityHigh:
		return color.New(color.FgHiRed, color.Bold).Sprint(s)
	case core.PriorityLow:
		return color.New(color.Faint).Sprint(s)
	default:
		return s
	}
}

// NotifyText shows whether r sends notifications.
func NotifyText(r *core.Reminder) string {
	if r.Muted {
		return color.New(color.Faint).Sprint("off")
	}
	return "on"
}
