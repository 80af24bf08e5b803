package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/remindcli/remind/internal/cmn/logger"
	"github.com/remindcli/remind/internal/cmn/logger/tag"
	"github.com/remindcli/remind/internal/core"
	"github.com/remindcli/remind/internal/core/spec"
	"github.com/remindcli/remind/internal/output"
)

func Add() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "add [flags] <text...>",
			Short: "Add a reminder",
			Long: `Add a one-shot reminder with --at or a recurring one with --cron.

Examples:
  remind add --at "2026-03-10 09:00" dentist appointment
  remind add --at "+30m" -p high take the bread out
  remind add --cron "0 9 * * 1-5" --tz Europe/Paris stand-up
  remind add --cron "0 0 1 * *" --no-notify review budget
`,
			Args: cobra.MinimumNArgs(1),
		}, addFlags, runAdd,
	)
}

var addFlags = []commandLineFlag{atFlag, cronFlag, tzFlag, priorityFlag, noNotifyFlag}

func runAdd(ctx *Context, args []string) error {
	content := strings.TrimSpace(strings.Join(args, " "))
	if content == "" {
		return errors.New("reminder text must not be empty")
	}

	priorityStr, err := ctx.StringParam("priority")
	if err != nil {
		return err
	}
	priority, err := core.ParsePriority(priorityStr)
	if err != nil {
		return err
	}

	in, err := dueInput(ctx)
	if err != nil {
		return err
	}

	now := ctx.Now()
	due, err := spec.ParseDue(in, now, ctx.Location())
	if err != nil {
		return err
	}

	var added *core.Reminder
	if err := ctx.Update(func(st *core.ReminderStore) error {
		r := st.Add(content, priority, due, now)
		r.Muted = ctx.BoolParam("no-notify")
		added = r.Clone()
		return nil
	}); err != nil {
		return fmt.Errorf("failed to add reminder: %w", err)
	}

	logger.Debug(ctx, "Reminder added",
		tag.ReminderID(added.ID),
		tag.Schedule(added.Due.String()),
		tag.Priority(string(added.Priority)),
	)

	next := "never"
	if added.NextFireAt != nil {
		next = added.NextFireAt.In(ctx.Location()).Format(dateTimeLayout) + " (" + output.Relative(*added.NextFireAt, now) + ")"
	}
	if added.Muted {
		next += ", notifications off"
	}
	ctx.Printf("Added reminder #%d, next: %s\n", added.ID, next)
	return nil
}

// dueInput collects --at, --cron and --tz. Recurring reminders record the
// configured zone when --tz is not given.
func dueInput(ctx *Context) (spec.DueInput, error) {
	when, err := ctx.StringParam("at")
	if err != nil {
		return spec.DueInput{}, err
	}
	rule, err := ctx.StringParam("cron")
	if err != nil {
		return spec.DueInput{}, err
	}
	tz, err := ctx.StringParam("tz")
	if err != nil {
		return spec.DueInput{}, err
	}
	if tz == "" {
		tz = ctx.Config.Core.TZ
	}
	return spec.DueInput{When: when, Cron: rule, TZ: tz}, nil
}

const dateTimeLayout = "2006-01-02 15:04 MST"
