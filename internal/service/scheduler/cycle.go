package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/remindcli/remind/internal/cmn/backoff"
	"github.com/remindcli/remind/internal/cmn/logger"
	"github.com/remindcli/remind/internal/cmn/logger/tag"
	"github.com/remindcli/remind/internal/core"
	"github.com/remindcli/remind/internal/notify"
)

// commitTimeout bounds persisting a cycle's results. Commits run even
// after the cycle's context is cancelled.
const commitTimeout = 10 * time.Second

// CycleResult summarizes one wake cycle.
type CycleResult struct {
	ID string
	// Due is the number of reminders dispatched this cycle.
	Due    int
	Fired  int
	Failed int
	// Muted counts reminders advanced without a notification.
	Muted int
	// Interrupted counts dispatches abandoned because the cycle was
	// cancelled. Those reminders stay due.
	Interrupted int
	// Skipped counts results dropped because the reminder was removed or
	// rescheduled while it was being dispatched.
	Skipped  int
	Deadline time.Time
}

// outcome is the result of dispatching one reminder.
type outcome struct {
	id int
	// prevNext is the fire instant the dispatch was planned from. The
	// result is applied only if the stored reminder still has it.
	prevNext    *time.Time
	firedAt     time.Time
	failedAt    time.Time
	err         error
	attempts    int
	muted       bool
	interrupted bool
}

// firedRecord is a successful dispatch whose commit failed.
type firedRecord struct {
	prevNext *time.Time
	firedAt  time.Time
}

// RunCycle performs one wake cycle: it reloads and reconciles the store,
// dispatches every due reminder, and persists the advanced schedule.
// Store failures abort the cycle before any dispatch and leave the last
// good schedule in memory.
func (s *Scheduler) RunCycle(ctx context.Context) (*CycleResult, error) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	res := &CycleResult{ID: newCycleID()}
	ctx = logger.WithValues(ctx, tag.CycleID(res.ID))

	started := time.Now()
	due, err := s.plan(ctx, s.clock())
	if err != nil {
		s.setDegraded(true)
		res.Deadline = s.NextDeadline(s.clock())
		s.metrics.CycleFinished(nil, err, time.Since(started))
		return res, err
	}
	res.Due = len(due)

	outcomes := s.dispatchAll(ctx, due)
	for _, o := range outcomes {
		switch {
		case o.interrupted:
			res.Interrupted++
		case o.err != nil:
			res.Failed++
		case o.muted:
			res.Muted++
		default:
			res.Fired++
		}
	}

	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
	defer cancel()
	skipped, err := s.commit(commitCtx, outcomes)
	res.Skipped = skipped
	s.setDegraded(err != nil)
	res.Deadline = s.NextDeadline(s.clock())
	s.metrics.CycleFinished(res, err, time.Since(started))
	if err != nil {
		return res, err
	}

	if res.Due > 0 {
		logger.Info(ctx, "Cycle complete",
			tag.Due(res.Due),
			tag.Fired(res.Fired),
			tag.Failed(res.Failed),
			tag.Deadline(res.Deadline),
		)
	}
	return res, nil
}

// plan reloads the store under its lock, reconciles the in-memory
// schedule with it, and returns copies of the reminders due at now.
func (s *Scheduler) plan(ctx context.Context, now time.Time) ([]*core.Reminder, error) {
	unlock, err := s.store.Lock(ctx)
	if err != nil {
		return nil, fmt.Errorf("lock store: %w", err)
	}
	defer unlock()

	st, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	ledger := s.ledgerSnapshot()
	changed := s.reconcile(ctx, st)
	if applyLedger(ctx, st, ledger) {
		changed = true
	}
	if changed {
		if err := s.store.Save(ctx, st); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range ledger {
		delete(s.unpersisted, id)
	}
	s.replace(st)

	var due []*core.Reminder
	for _, r := range st.Pending(now) {
		if r.StateAt(now) != core.StateDue {
			continue
		}
		if retryAt, ok := r.RetryAt(s.cfg.RetryDelay); ok && now.Before(retryAt) {
			continue
		}
		due = append(due, r.Clone())
	}
	return due, nil
}

// reconcile fills in fire instants missing from the loaded store and logs
// reminders that appeared or vanished since the previous cycle. It
// reports whether st was modified.
func (s *Scheduler) reconcile(ctx context.Context, st *core.ReminderStore) bool {
	s.mu.Lock()
	loaded := s.loaded
	known := make(map[int]bool, len(s.reminders))
	for id := range s.reminders {
		known[id] = true
	}
	s.mu.Unlock()

	changed := false
	for _, r := range st.Reminders {
		if !known[r.ID] && loaded {
			logger.Info(ctx, "Adopted reminder", tag.ReminderID(r.ID), tag.Schedule(r.Due.String()))
		}
		delete(known, r.ID)

		if r.NextFireAt == nil && !r.Completed {
			if next := r.InitialFireAt(); next != nil {
				r.NextFireAt = next
				changed = true
			}
		}
	}
	for id := range known {
		logger.Info(ctx, "Dropped reminder", tag.ReminderID(id), tag.Reason("removed from store"))
	}
	return changed
}

// applyLedger re-applies fired transitions that were dispatched but not
// persisted, so they are not dispatched again.
func applyLedger(ctx context.Context, st *core.ReminderStore, ledger map[int]firedRecord) bool {
	if len(ledger) == 0 {
		return false
	}
	idx := st.Index()
	changed := false
	for id, rec := range ledger {
		r, ok := idx[id]
		if !ok || !core.SameInstant(r.NextFireAt, rec.prevNext) {
			logger.Info(ctx, "Discarding unpersisted fire for changed reminder", tag.ReminderID(id))
			continue
		}
		r.MarkFired(rec.firedAt)
		changed = true
	}
	return changed
}

// dispatchAll notifies the due reminders concurrently, each with its own
// retry sequence.
func (s *Scheduler) dispatchAll(ctx context.Context, due []*core.Reminder) []outcome {
	outcomes := make([]outcome, len(due))
	if len(due) == 0 {
		return outcomes
	}

	var eg errgroup.Group
	eg.SetLimit(max(s.cfg.Concurrency, 1))
	for i, r := range due {
		eg.Go(func() error {
			outcomes[i] = s.dispatch(ctx, r)
			return nil
		})
	}
	_ = eg.Wait()
	return outcomes
}

func (s *Scheduler) dispatch(ctx context.Context, r *core.Reminder) (out outcome) {
	out = outcome{id: r.ID, prevNext: r.NextFireAt}
	ctx = logger.WithValues(ctx, tag.ReminderID(r.ID))

	if r.Muted {
		out.firedAt = s.clock()
		out.muted = true
		logger.Info(ctx, "Reminder muted, advancing without notification")
		return out
	}

	defer func() {
		if p := recover(); p != nil {
			out.err = fmt.Errorf("notifier panicked: %v", p)
			out.failedAt = s.clock()
			logger.Error(ctx, "Notifier panicked", tag.Error(out.err))
		}
	}()

	policy := backoff.ForAttempts(s.cfg.DispatchAttempts, s.cfg.BackoffInitial, s.cfg.BackoffMax)
	err := backoff.Retry(ctx, func(ctx context.Context, attempt int) error {
		out.attempts = attempt
		attemptCtx := ctx
		if s.cfg.DispatchTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, s.cfg.DispatchTimeout)
			defer cancel()
		}
		return s.notifier.Notify(attemptCtx, r)
	}, policy, backoff.Options{
		IsRetriable: func(err error) bool {
			return ctx.Err() == nil && !notify.IsPermanent(err)
		},
		OnRetry: func(attempt int, err error, wait time.Duration) {
			s.metrics.DispatchRetried()
			logger.Warn(ctx, "Dispatch failed, retrying",
				tag.Attempt(attempt),
				tag.MaxRetries(s.cfg.DispatchAttempts),
				tag.Interval(wait),
				tag.Error(err),
			)
		},
	})

	switch {
	case err == nil:
		out.firedAt = s.clock()
		logger.Info(ctx, "Reminder fired", tag.Priority(string(r.Priority.Normalize())))
	case ctx.Err() != nil:
		out.interrupted = true
		out.err = err
		logger.Info(ctx, "Dispatch abandoned", tag.Reason(ctx.Err().Error()))
	default:
		out.err = err
		out.failedAt = s.clock()
		logger.Error(ctx, "Dispatch failed, reminder stays due", tag.Attempt(out.attempts), tag.Error(err))
	}
	return out
}

// commit applies dispatch outcomes to a fresh copy of the store under its
// lock. Results for reminders the CLI removed or rescheduled meanwhile
// are skipped. If the commit cannot be saved the fired transitions are
// kept in memory and re-applied by the next cycle.
func (s *Scheduler) commit(ctx context.Context, outcomes []outcome) (int, error) {
	if len(outcomes) == 0 {
		return 0, nil
	}

	skipped, err := s.commitToStore(ctx, outcomes)
	if err == nil {
		return skipped, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range outcomes {
		if o.interrupted {
			continue
		}
		r, ok := s.reminders[o.id]
		if !ok {
			continue
		}
		if o.err != nil {
			r.MarkFailed(o.failedAt, o.err, o.attempts)
			continue
		}
		s.unpersisted[o.id] = firedRecord{prevNext: o.prevNext, firedAt: o.firedAt}
		r.MarkFired(o.firedAt)
	}
	logger.Error(ctx, "Failed to persist cycle results", tag.Error(err), tag.Count(len(s.unpersisted)))
	return 0, err
}

func (s *Scheduler) commitToStore(ctx context.Context, outcomes []outcome) (int, error) {
	unlock, err := s.store.Lock(ctx)
	if err != nil {
		return 0, fmt.Errorf("lock store: %w", err)
	}
	defer unlock()

	st, err := s.store.Load(ctx)
	if err != nil {
		return 0, err
	}

	idx := st.Index()
	changed := false
	skipped := 0
	for _, o := range outcomes {
		if o.interrupted {
			continue
		}
		r, ok := idx[o.id]
		if !ok || !core.SameInstant(r.NextFireAt, o.prevNext) {
			skipped++
			logger.Info(ctx, "Reminder changed during dispatch, keeping stored schedule", tag.ReminderID(o.id))
			continue
		}
		if o.err != nil {
			r.MarkFailed(o.failedAt, o.err, o.attempts)
		} else {
			r.MarkFired(o.firedAt)
		}
		changed = true
	}

	if changed {
		if err := s.store.Save(ctx, st); err != nil {
			return 0, err
		}
	}

	s.mu.Lock()
	s.replace(st)
	s.mu.Unlock()
	return skipped, nil
}

// flush persists fired transitions left over from failed commits.
func (s *Scheduler) flush(ctx context.Context) error {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	ledger := s.ledgerSnapshot()
	if len(ledger) == 0 {
		return nil
	}

	unlock, err := s.store.Lock(ctx)
	if err != nil {
		return fmt.Errorf("lock store: %w", err)
	}
	defer unlock()

	st, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	if applyLedger(ctx, st, ledger) {
		if err := s.store.Save(ctx, st); err != nil {
			return err
		}
	}

	s.mu.Lock()
	for id := range ledger {
		delete(s.unpersisted, id)
	}
	s.mu.Unlock()
	return nil
}

func (s *Scheduler) ledgerSnapshot() map[int]firedRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	ledger := make(map[int]firedRecord, len(s.unpersisted))
	for id, rec := range s.unpersisted {
		ledger[id] = rec
	}
	return ledger
}

// replace swaps the in-memory schedule for copies of st's reminders.
// The caller must hold s.mu.
func (s *Scheduler) replace(st *core.ReminderStore) {
	s.reminders = make(map[int]*core.Reminder, len(st.Reminders))
	for _, r := range st.Reminders {
		s.reminders[r.ID] = r.Clone()
	}
	s.loaded = true
}

// NextDeadline returns when the next cycle should run: the earliest
// pending fire instant, or sooner when failed dispatches or store errors
// need a retry. It is never later than now plus the idle interval.
func (s *Scheduler) NextDeadline(now time.Time) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	deadline := now.Add(s.cfg.IdleInterval)
	retry := now.Add(s.cfg.RetryDelay)

	if s.degraded {
		return minTime(deadline, retry)
	}

	for _, r := range s.reminders {
		switch r.StateAt(now) {
		case core.StateDue:
			if retryAt, ok := r.RetryAt(s.cfg.RetryDelay); ok {
				deadline = minTime(deadline, retryAt)
			} else if r.FailedAttempts > 0 {
				deadline = minTime(deadline, retry)
			} else {
				deadline = minTime(deadline, *r.NextFireAt)
			}
		case core.StatePending:
			deadline = minTime(deadline, *r.NextFireAt)
		}
	}
	return deadline
}

func (s *Scheduler) setDegraded(v bool) {
	s.mu.Lock()
	s.degraded = v
	s.mu.Unlock()
}

func minTime(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}

func newCycleID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
