package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spf13/cobra"

	"github.com/remindcli/remind/internal/cmn/dirlock"
	"github.com/remindcli/remind/internal/cmn/fileutil"
	"github.com/remindcli/remind/internal/cmn/logger"
	"github.com/remindcli/remind/internal/cmn/logger/tag"
	"github.com/remindcli/remind/internal/core"
	"github.com/remindcli/remind/internal/output"
	"github.com/remindcli/remind/internal/service/scheduler"
)

func Status() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "status [flags]",
			Short: "Show whether the daemon is running and what fires next",
			Args:  cobra.NoArgs,
		}, nil, runStatus,
	)
}

const healthTimeout = 2 * time.Second

func runStatus(ctx *Context, _ []string) error {
	lock := dirlock.New(ctx.Config.Paths.LockDir, &dirlock.LockOptions{
		StaleThreshold: ctx.Config.Scheduler.LockStaleThreshold,
	})
	info, err := lock.Info()
	if err != nil {
		return fmt.Errorf("failed to read daemon lock: %w", err)
	}

	loc := ctx.Location()
	if info == nil {
		ctx.Printf("Daemon:   not running\n")
	} else {
		ctx.Printf("Daemon:   running (pid %d, since %s)\n", info.PID, info.AcquiredAt.In(loc).Format(dateTimeLayout))
		if port := ctx.Config.Scheduler.Port; port > 0 {
			health, err := fetchHealth(ctx, port)
			if err != nil {
				logger.Warn(ctx, "Health endpoint unreachable", tag.Port(port), tag.Error(err))
			} else {
				ctx.Printf("Health:   %s (version %s, %d due, %d awaiting save)\n",
					health.Status, health.Version, health.Scheduler.Due, health.Scheduler.Unpersisted)
			}
		}
	}

	st, err := ctx.Store.Load(ctx)
	if err != nil {
		return err
	}
	now := ctx.Now()
	pending := st.Pending(now)
	due := 0
	for _, r := range st.Reminders {
		if r.StateAt(now) == core.StateDue {
			due++
		}
	}
	ctx.Printf("Store:    %s (%d reminders, %d active, %d due)\n", ctx.Config.Paths.StoreFile, len(st.Reminders), len(pending), due)

	for _, r := range pending {
		if r.StateAt(now) != core.StatePending {
			continue
		}
		ctx.Printf("Next:     #%d %s at %s (%s)\n",
			r.ID,
			fileutil.TruncString(r.Content, 40),
			r.NextFireAt.In(loc).Format(dateTimeLayout),
			output.Relative(*r.NextFireAt, now),
		)
		break
	}
	return nil
}

// fetchHealth queries the running daemon's health endpoint.
func fetchHealth(ctx context.Context, port int) (*scheduler.HealthResponse, error) {
	var health scheduler.HealthResponse
	resp, err := resty.New().
		SetTimeout(healthTimeout).
		R().
		SetContext(ctx).
		SetResult(&health).
		Get(fmt.Sprintf("http://127.0.0.1:%d/health", port))
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("health endpoint returned %s", resp.Status())
	}
	return &health, nil
}
