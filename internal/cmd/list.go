package cmd

import (
	"github.com/spf13/cobra"

	"github.com/remindcli/remind/internal/core"
	"github.com/remindcli/remind/internal/output"
)

func List() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:     "list [flags]",
			Aliases: []string{"ls"},
			Short:   "List reminders",
			Long: `List all reminders in the order they were added.

With --pending only reminders that will still fire are shown, soonest first.
`,
			Args: cobra.NoArgs,
		}, listFlags, runList,
	)
}

var listFlags = []commandLineFlag{pendingFlag, jsonFlag}

func runList(ctx *Context, _ []string) error {
	st, err := ctx.Store.Load(ctx)
	if err != nil {
		return err
	}

	now := ctx.Now()
	reminders := st.Reminders
	if ctx.BoolParam("pending") {
		reminders = st.Pending(now)
	}

	if ctx.BoolParam("json") {
		if reminders == nil {
			reminders = []*core.Reminder{}
		}
		return output.WriteJSON(ctx.Stdout, reminders)
	}

	if len(reminders) == 0 {
		ctx.Printf("No reminders.\n")
		return nil
	}
	ctx.Printf("%s\n", output.RenderList(reminders, output.ListOptions{
		Now:      now,
		Location: ctx.Location(),
	}))
	return nil
}
