package cmd

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/remindcli/remind/internal/core"
	"github.com/remindcli/remind/internal/core/spec"
	"github.com/remindcli/remind/internal/output"
)

func Next() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "next [flags] [id]",
			Short: "Preview upcoming occurrences",
			Long: `Preview when a reminder, or a rule given with --cron, fires next.

Examples:
  remind next 4
  remind next --cron "0 9 * * 1-5" --tz Europe/Paris -n 10
`,
			Args: cobra.MaximumNArgs(1),
		}, nextFlags, runNext,
	)
}

var nextFlags = []commandLineFlag{
	withUsage(cronFlag, "rule to preview instead of a stored reminder"),
	tzFlag,
	countFlag,
}

const maxPreview = 100

func runNext(ctx *Context, args []string) error {
	countStr, err := ctx.StringParam("count")
	if err != nil {
		return err
	}
	count, err := strconv.Atoi(countStr)
	if err != nil || count <= 0 || count > maxPreview {
		return fmt.Errorf("--count must be between 1 and %d", maxPreview)
	}

	now := ctx.Now()
	due, err := previewSpec(ctx, args)
	if err != nil {
		return err
	}

	times := core.Upcoming(due, now, count)
	if len(times) == 0 {
		ctx.Printf("No upcoming occurrences.\n")
		return nil
	}
	return output.RenderUpcoming(ctx.Stdout, times, ctx.Location())
}

func previewSpec(ctx *Context, args []string) (core.DueSpec, error) {
	if len(args) == 1 {
		if flagChanged(ctx.Command.Flags(), "cron") {
			return core.DueSpec{}, errors.New("give either a reminder id or --cron, not both")
		}
		id, err := parseID(args[0])
		if err != nil {
			return core.DueSpec{}, err
		}
		st, err := ctx.Store.Load(ctx)
		if err != nil {
			return core.DueSpec{}, err
		}
		r, err := st.Get(id)
		if err != nil {
			return core.DueSpec{}, err
		}
		return r.Due, nil
	}

	rule, err := ctx.StringParam("cron")
	if err != nil {
		return core.DueSpec{}, err
	}
	if rule == "" {
		return core.DueSpec{}, errors.New("a reminder id or --cron is required")
	}
	tz, err := ctx.StringParam("tz")
	if err != nil {
		return core.DueSpec{}, err
	}
	if tz == "" {
		tz = ctx.Config.Core.TZ
	}
	return spec.ParseDue(spec.DueInput{Cron: rule, TZ: tz}, ctx.Now(), ctx.Location())
}
