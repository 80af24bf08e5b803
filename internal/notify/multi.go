package notify

import (
	"context"
	"errors"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/remindcli/remind/internal/cmn/logger"
	"github.com/remindcli/remind/internal/cmn/logger/tag"
	"github.com/remindcli/remind/internal/core"
)

// Multi fans a notification out to several channels at once. Delivery
// succeeds when at least one channel accepts it; failures on the other
// channels are logged.
type Multi struct {
	notifiers []Notifier
}

func NewMulti(notifiers ...Notifier) *Multi {
	return &Multi{notifiers: notifiers}
}

func (m *Multi) Name() string {
	names := make([]string, len(m.notifiers))
	for i, n := range m.notifiers {
		names[i] = n.Name()
	}
	return strings.Join(names, "+")
}

// Notifiers returns the underlying channels.
func (m *Multi) Notifiers() []Notifier {
	return m.notifiers
}

func (m *Multi) Notify(ctx context.Context, r *core.Reminder) error {
	if len(m.notifiers) == 0 {
		return permanentErr("none", errors.New("no notification channels"))
	}

	var (
		mu        sync.Mutex
		errs      []error
		delivered int
		permanent = true
	)

	var eg errgroup.Group
	for _, n := range m.notifiers {
		eg.Go(func() error {
			err := n.Notify(ctx, r)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				delivered++
				return nil
			}
			errs = append(errs, err)
			if !IsPermanent(err) {
				permanent = false
			}
			return nil
		})
	}
	_ = eg.Wait()

	if delivered > 0 {
		for _, err := range errs {
			logger.Warn(ctx, "Notification channel failed", tag.ReminderID(r.ID), tag.Error(err))
		}
		return nil
	}
	return &DispatchError{Channel: m.Name(), Err: errors.Join(errs...), Permanent: permanent}
}
