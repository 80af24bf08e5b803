package notify

import (
	"context"

	"github.com/remindcli/remind/internal/cmn/logger"
	"github.com/remindcli/remind/internal/cmn/logger/tag"
	"github.com/remindcli/remind/internal/core"
)

// Log writes notifications to the logger in ctx. It never fails, which
// makes it the fallback when no other channel is configured.
type Log struct{}

func (Log) Name() string { return "log" }

func (Log) Notify(ctx context.Context, r *core.Reminder) error {
	msg := Render(r)
	logger.Info(ctx, msg.Title,
		tag.ReminderID(r.ID),
		tag.Priority(string(r.Priority.Normalize())),
		tag.String("content", r.Content),
	)
	return nil
}
