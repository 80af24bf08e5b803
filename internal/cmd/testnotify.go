package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/remindcli/remind/internal/core"
	"github.com/remindcli/remind/internal/notify"
)

func TestNotify() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "test-notify [flags] [text...]",
			Short: "Send a test notification through the configured channels",
			Long: `Send a test notification through every configured channel and report
which of them failed. The store is not touched.
`,
		}, []commandLineFlag{priorityFlag}, runTestNotify,
	)
}

const testNotifyText = "This is a test notification from remind."

func runTestNotify(ctx *Context, args []string) error {
	priorityStr, err := ctx.StringParam("priority")
	if err != nil {
		return err
	}
	priority, err := core.ParsePriority(priorityStr)
	if err != nil {
		return err
	}

	content := strings.TrimSpace(strings.Join(args, " "))
	if content == "" {
		content = testNotifyText
	}
	now := ctx.Now()
	r := core.NewReminder(0, content, priority, core.FixedAt(now), now)

	notifier := notify.FromConfig(ctx.Config.Notify)
	if err := notifier.Notify(ctx, r); err != nil {
		return err
	}
	ctx.Printf("Sent test notification via %s\n", notifier.Name())
	return nil
}
