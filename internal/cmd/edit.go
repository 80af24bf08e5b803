package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/remindcli/remind/internal/cmn/duration"
	"github.com/remindcli/remind/internal/cmn/logger"
	"github.com/remindcli/remind/internal/cmn/logger/tag"
	"github.com/remindcli/remind/internal/core"
	"github.com/remindcli/remind/internal/core/spec"
)

func Complete() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:     "complete [flags] <id>",
			Aliases: []string{"done"},
			Short:   "Mark a reminder as done",
			Long: `Mark a reminder as done so it no longer fires.

A completed recurring reminder stays silent until it is reopened.
`,
			Args: cobra.ExactArgs(1),
		}, nil, runComplete,
	)
}

func runComplete(ctx *Context, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := ctx.Update(func(st *core.ReminderStore) error {
		r, err := st.Get(id)
		if err != nil {
			return err
		}
		if r.Completed {
			return core.ErrNoChange
		}
		r.Complete(ctx.Now())
		return nil
	}); err != nil {
		return err
	}
	ctx.Printf("Completed reminder #%d\n", id)
	return nil
}

func Reopen() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "reopen [flags] <id>",
			Short: "Reopen a completed reminder",
			Long: `Reopen a completed reminder.

A recurring reminder resumes from its next occurrence after now. A one-shot
whose time has passed stays inert; snooze it instead.
`,
			Args: cobra.ExactArgs(1),
		}, nil, runReopen,
	)
}

func runReopen(ctx *Context, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	var next *time.Time
	if err := ctx.Update(func(st *core.ReminderStore) error {
		r, err := st.Get(id)
		if err != nil {
			return err
		}
		if err := r.Reopen(ctx.Now()); err != nil {
			return err
		}
		next = r.NextFireAt
		return nil
	}); err != nil {
		return err
	}
	if next == nil {
		ctx.Printf("Reopened reminder #%d; it has no future occurrence\n", id)
		return nil
	}
	ctx.Printf("Reopened reminder #%d, next: %s\n", id, next.In(ctx.Location()).Format(dateTimeLayout))
	return nil
}

func Remove() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:     "remove [flags] <id>",
			Aliases: []string{"rm"},
			Short:   "Delete a reminder",
			Args:    cobra.ExactArgs(1),
		}, nil, runRemove,
	)
}

func runRemove(ctx *Context, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := ctx.Update(func(st *core.ReminderStore) error {
		return st.Remove(id)
	}); err != nil {
		return err
	}
	logger.Debug(ctx, "Reminder removed", tag.ReminderID(id))
	ctx.Printf("Removed reminder #%d\n", id)
	return nil
}

func Snooze() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "snooze [flags] <id>",
			Short: "Postpone the next notification of a reminder",
			Long: `Postpone the next notification of a reminder to a later time.

After the snoozed notification fires, a recurring reminder returns to its
schedule. Snoozing a completed reminder reactivates it.

Examples:
  remind snooze 3 --for 10m
  remind snooze 3 --until "18:30"
`,
			Args: cobra.ExactArgs(1),
		}, snoozeFlags, runSnooze,
	)
}

var snoozeFlags = []commandLineFlag{untilFlag, forFlag}

func runSnooze(ctx *Context, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}

	now := ctx.Now()
	until, err := snoozeTarget(ctx, now)
	if err != nil {
		return err
	}

	if err := ctx.Update(func(st *core.ReminderStore) error {
		r, err := st.Get(id)
		if err != nil {
			return err
		}
		r.Snooze(until)
		return nil
	}); err != nil {
		return err
	}
	ctx.Printf("Snoozed reminder #%d until %s\n", id, until.In(ctx.Location()).Format(dateTimeLayout))
	return nil
}

var errSnoozeTarget = errors.New("exactly one of --until or --for is required")

func snoozeTarget(ctx *Context, now time.Time) (time.Time, error) {
	until, err := ctx.StringParam("until")
	if err != nil {
		return time.Time{}, err
	}
	forStr, err := ctx.StringParam("for")
	if err != nil {
		return time.Time{}, err
	}

	switch {
	case until != "" && forStr != "", until == "" && forStr == "":
		return time.Time{}, errSnoozeTarget
	case forStr != "":
		d, err := duration.Parse(forStr)
		if err != nil || d <= 0 {
			return time.Time{}, fmt.Errorf("invalid --for duration %q", forStr)
		}
		return now.Add(d), nil
	default:
		t, err := spec.ParseDueTime(until, now, ctx.Location())
		if err != nil {
			return time.Time{}, err
		}
		if !t.After(now) {
			return time.Time{}, fmt.Errorf("--until %q is not in the future", until)
		}
		return t, nil
	}
}

func Mute() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "mute [flags] <id>",
			Short: "Stop notifications for a reminder",
			Long: `Stop notifications for a reminder. Its schedule keeps advancing, so
unmuting it does not deliver the occurrences it skipped.
`,
			Args: cobra.ExactArgs(1),
		}, nil, func(ctx *Context, args []string) error {
			return setMuted(ctx, args[0], true)
		},
	)
}

func Unmute() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "unmute [flags] <id>",
			Short: "Resume notifications for a reminder",
			Args:  cobra.ExactArgs(1),
		}, nil, func(ctx *Context, args []string) error {
			return setMuted(ctx, args[0], false)
		},
	)
}

func setMuted(ctx *Context, arg string, muted bool) error {
	id, err := parseID(arg)
	if err != nil {
		return err
	}
	if err := ctx.Update(func(st *core.ReminderStore) error {
		r, err := st.Get(id)
		if err != nil {
			return err
		}
		if r.Muted == muted {
			return core.ErrNoChange
		}
		r.Muted = muted
		return nil
	}); err != nil {
		return err
	}
	if muted {
		ctx.Printf("Muted reminder #%d\n", id)
	} else {
		ctx.Printf("Unmuted reminder #%d\n", id)
	}
	return nil
}
