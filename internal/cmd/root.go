package cmd

import (
	"github.com/spf13/cobra"

	"github.com/remindcli/remind/internal/build"
)

// Root builds the remind command tree.
func Root() *cobra.Command {
	root := &cobra.Command{
		Use:   build.Slug,
		Short: "Personal reminders with a notification daemon",
		Long: `remind keeps a list of one-shot and recurring reminders in a local file.
Run "remind daemon" to get notified when they come due.`,
		Version:       build.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		Add(),
		List(),
		Show(),
		Complete(),
		Reopen(),
		Remove(),
		Snooze(),
		Mute(),
		Unmute(),
		Next(),
		Daemon(),
		Status(),
		TestNotify(),
		Version(),
	)
	return root
}
