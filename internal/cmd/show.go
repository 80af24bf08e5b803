package cmd

import (
	"github.com/spf13/cobra"

	"github.com/remindcli/remind/internal/output"
)

func Show() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "show [flags] <id>",
			Short: "Show the details of a reminder",
			Args:  cobra.ExactArgs(1),
		}, []commandLineFlag{jsonFlag}, runShow,
	)
}

func runShow(ctx *Context, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	st, err := ctx.Store.Load(ctx)
	if err != nil {
		return err
	}
	r, err := st.Get(id)
	if err != nil {
		return err
	}

	if ctx.BoolParam("json") {
		return output.WriteJSON(ctx.Stdout, r)
	}
	return output.RenderReminder(ctx.Stdout, r, ctx.Now(), ctx.Location())
}
