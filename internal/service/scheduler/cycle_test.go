package scheduler_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remindcli/remind/internal/core"
	"github.com/remindcli/remind/internal/notify"
	"github.com/remindcli/remind/internal/service/scheduler"
)

type harness struct {
	store    *memStore
	notifier *fakeNotifier
	clock    *fakeClock
	sched    *scheduler.Scheduler
}

func newHarness(t *testing.T, st *core.ReminderStore, now time.Time) *harness {
	t.Helper()
	h := &harness{
		store:    newMemStore(t, st),
		notifier: &fakeNotifier{},
		clock:    &fakeClock{now: now},
	}
	h.sched = scheduler.New(testConfig(t), h.store, h.notifier)
	h.sched.SetClock(h.clock.Now)
	return h
}

func (h *harness) cycle(t *testing.T) *scheduler.CycleResult {
	t.Helper()
	res, err := h.sched.RunCycle(context.Background())
	require.NoError(t, err)
	return res
}

func TestRunCycle_DailyReminder(t *testing.T) {
	t.Parallel()

	st := core.NewReminderStore()
	r := st.Add("stand-up", core.PriorityHigh, core.CronRule("0 9 * * *", ""), at(10, 10, 0))
	h := newHarness(t, st, at(10, 10, 0))

	res := h.cycle(t)
	assert.Zero(t, res.Due)
	assert.Equal(t, at(10, 10, 1), res.Deadline, "capped at the idle interval")

	h.clock.Set(at(11, 9, 0))
	res = h.cycle(t)
	assert.Equal(t, 1, res.Fired)
	assert.Equal(t, at(12, 9, 0), *h.store.get(t, r.ID).NextFireAt)
	assert.Equal(t, at(11, 9, 0), *h.store.get(t, r.ID).LastFiredAt)

	// Re-entering the cycle at the same instant does not fire again.
	res = h.cycle(t)
	assert.Zero(t, res.Due)
	assert.Equal(t, []int{r.ID}, h.notifier.firedIDs())
}

func TestRunCycle_MissedWhileOffline(t *testing.T) {
	t.Parallel()

	st := core.NewReminderStore()
	fixed := st.Add("call back", core.PriorityMedium, core.FixedAt(at(10, 9, 0)), at(9, 12, 0))
	daily := st.Add("pills", core.PriorityHigh, core.CronRule("0 8 * * *", ""), at(1, 0, 0))

	// Down for days: the daily reminder missed several occurrences.
	h := newHarness(t, st, at(10, 10, 0))
	res := h.cycle(t)

	assert.Equal(t, 2, res.Fired)
	assert.Equal(t, 1, h.notifier.callsFor(fixed.ID))
	assert.Equal(t, 1, h.notifier.callsFor(daily.ID))

	got := h.store.get(t, fixed.ID)
	assert.Nil(t, got.NextFireAt)
	assert.Equal(t, core.StateInert, got.StateAt(at(10, 10, 0)))
	assert.Equal(t, at(11, 8, 0), *h.store.get(t, daily.ID).NextFireAt)

	res = h.cycle(t)
	assert.Zero(t, res.Due)
}

func TestRunCycle_RetriesThenFires(t *testing.T) {
	t.Parallel()

	st := core.NewReminderStore()
	r := st.Add("x", core.PriorityMedium, core.FixedAt(at(10, 9, 0)), at(10, 8, 0))
	h := newHarness(t, st, at(10, 9, 0))
	h.notifier.fn = func(_ context.Context, _ *core.Reminder, call int) error {
		if call < 3 {
			return errTransient
		}
		return nil
	}

	res := h.cycle(t)
	assert.Equal(t, 1, res.Fired)
	assert.Equal(t, 3, h.notifier.callsFor(r.ID))
	got := h.store.get(t, r.ID)
	assert.Zero(t, got.FailedAttempts)
	assert.NotNil(t, got.LastFiredAt)
}

func TestRunCycle_FailureLeavesDue(t *testing.T) {
	t.Parallel()

	st := core.NewReminderStore()
	bad := st.Add("bad", core.PriorityMedium, core.FixedAt(at(10, 9, 0)), at(10, 8, 0))
	good := st.Add("good", core.PriorityMedium, core.FixedAt(at(10, 9, 0)), at(10, 8, 0))
	h := newHarness(t, st, at(10, 9, 0))
	h.notifier.fn = func(_ context.Context, r *core.Reminder, _ int) error {
		if r.ID == bad.ID {
			return errTransient
		}
		return nil
	}

	res := h.cycle(t)
	assert.Equal(t, 1, res.Fired)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 3, h.notifier.callsFor(bad.ID))

	got := h.store.get(t, bad.ID)
	assert.Equal(t, core.StateDue, got.StateAt(at(10, 9, 0)))
	assert.Equal(t, at(10, 9, 0), *got.NextFireAt)
	assert.Equal(t, 3, got.FailedAttempts)
	assert.Equal(t, errTransient.Error(), got.LastError)
	assert.Equal(t, core.StateInert, h.store.get(t, good.ID).StateAt(at(10, 9, 0)))

	assert.Equal(t, at(10, 9, 0).Add(5*time.Second), res.Deadline)
	assert.Equal(t, at(10, 9, 0), *got.LastFailedAt)

	// A wake inside the retry delay leaves it alone.
	h.clock.Set(at(10, 9, 0).Add(2 * time.Second))
	res = h.cycle(t)
	assert.Zero(t, res.Due)
	assert.Equal(t, 3, h.notifier.callsFor(bad.ID))
	assert.Equal(t, at(10, 9, 0).Add(5*time.Second), res.Deadline)

	// The next wake retries it.
	h.notifier.fn = nil
	h.clock.Set(at(10, 9, 1))
	res = h.cycle(t)
	assert.Equal(t, 1, res.Fired)
	assert.Zero(t, h.store.get(t, bad.ID).FailedAttempts)
}

func TestRunCycle_PermanentErrorIsNotRetried(t *testing.T) {
	t.Parallel()

	st := core.NewReminderStore()
	r := st.Add("x", core.PriorityMedium, core.FixedAt(at(10, 9, 0)), at(10, 8, 0))
	h := newHarness(t, st, at(10, 9, 0))
	h.notifier.fn = func(context.Context, *core.Reminder, int) error {
		return &notify.DispatchError{Channel: "fake", Err: errors.New("bad token"), Permanent: true}
	}

	res := h.cycle(t)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 1, h.notifier.callsFor(r.ID))
	assert.Equal(t, 1, h.store.get(t, r.ID).FailedAttempts)
}

func TestRunCycle_MutedAdvancesSilently(t *testing.T) {
	t.Parallel()

	st := core.NewReminderStore()
	r := st.Add("water plants", core.PriorityLow, core.CronRule("0 9 * * *", ""), at(9, 12, 0))
	r.Muted = true
	h := newHarness(t, st, at(10, 9, 0))

	res := h.cycle(t)
	assert.Equal(t, 1, res.Due)
	assert.Equal(t, 1, res.Muted)
	assert.Zero(t, res.Fired)
	assert.Zero(t, h.notifier.callsFor(r.ID))

	got := h.store.get(t, r.ID)
	assert.Equal(t, at(10, 9, 0), *got.LastFiredAt)
	assert.Equal(t, at(11, 9, 0), *got.NextFireAt)
}

func TestRunCycle_StoreUnreadableAbortsCycle(t *testing.T) {
	t.Parallel()

	st := core.NewReminderStore()
	r := st.Add("x", core.PriorityMedium, core.FixedAt(at(10, 12, 0)), at(10, 8, 0))
	h := newHarness(t, st, at(10, 9, 0))
	h.cycle(t)

	h.store.setLoadErr(core.ErrStoreUnreadable)
	h.clock.Set(at(10, 12, 0))
	res, err := h.sched.RunCycle(context.Background())
	require.ErrorIs(t, err, core.ErrStoreUnreadable)
	assert.Zero(t, h.notifier.callsFor(r.ID))
	assert.Equal(t, at(10, 12, 0).Add(5*time.Second), res.Deadline)

	status := h.sched.Status()
	assert.True(t, status.Degraded)
	assert.Equal(t, 1, status.Due, "last good schedule is kept")

	h.store.setLoadErr(nil)
	res = h.cycle(t)
	assert.Equal(t, 1, res.Fired)
	assert.False(t, h.sched.Status().Degraded)
}

func TestRunCycle_CommitFailureDoesNotRedispatch(t *testing.T) {
	t.Parallel()

	st := core.NewReminderStore()
	r := st.Add("x", core.PriorityMedium, core.CronRule("0 9 * * *", ""), at(9, 12, 0))
	h := newHarness(t, st, at(10, 9, 0))

	h.notifier.fn = func(context.Context, *core.Reminder, int) error {
		h.store.setSaveErr(core.ErrStoreUnwritable)
		return nil
	}
	_, err := h.sched.RunCycle(context.Background())
	require.ErrorIs(t, err, core.ErrStoreUnwritable)
	assert.Equal(t, 1, h.sched.Status().Unpersisted)
	assert.Equal(t, at(10, 9, 0), *h.store.get(t, r.ID).NextFireAt)

	h.notifier.fn = nil
	h.store.setSaveErr(nil)
	h.clock.Set(at(10, 9, 1))
	res := h.cycle(t)

	assert.Zero(t, res.Due)
	assert.Equal(t, 1, h.notifier.callsFor(r.ID))
	assert.Equal(t, at(11, 9, 0), *h.store.get(t, r.ID).NextFireAt)
	assert.Zero(t, h.sched.Status().Unpersisted)
}

func TestRunCycle_CLIEditDuringDispatchWins(t *testing.T) {
	t.Parallel()

	st := core.NewReminderStore()
	snoozed := st.Add("snoozed", core.PriorityMedium, core.CronRule("0 9 * * *", ""), at(9, 12, 0))
	removed := st.Add("removed", core.PriorityMedium, core.FixedAt(at(10, 9, 0)), at(9, 12, 0))
	h := newHarness(t, st, at(10, 9, 0))

	var added int
	h.notifier.fn = func(_ context.Context, r *core.Reminder, _ int) error {
		if r.ID != snoozed.ID {
			return nil
		}
		h.store.update(t, func(st *core.ReminderStore) {
			got, err := st.Get(snoozed.ID)
			require.NoError(t, err)
			got.Snooze(at(10, 11, 0))
			require.NoError(t, st.Remove(removed.ID))
			added = st.Add("added meanwhile", core.PriorityLow, core.FixedAt(at(12, 9, 0)), at(10, 9, 0)).ID
		})
		return nil
	}
	res := h.cycle(t)

	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 2, h.store.count(t))

	got := h.store.get(t, snoozed.ID)
	assert.Equal(t, at(10, 11, 0), *got.NextFireAt)
	assert.Equal(t, at(10, 11, 0), *got.SnoozedUntil)
	assert.Equal(t, "added meanwhile", h.store.get(t, added).Content)
}

func TestRunCycle_ShutdownDuringRetries(t *testing.T) {
	t.Parallel()

	st := core.NewReminderStore()
	r := st.Add("x", core.PriorityMedium, core.FixedAt(at(10, 9, 0)), at(10, 8, 0))

	cfg := testConfig(t)
	cfg.Scheduler.BackoffInitial = time.Hour
	cfg.Scheduler.BackoffMax = time.Hour
	store := newMemStore(t, st)
	clock := &fakeClock{now: at(10, 9, 0)}

	ctx, cancel := context.WithCancel(context.Background())
	n := &fakeNotifier{fn: func(context.Context, *core.Reminder, int) error {
		cancel()
		return errTransient
	}}
	sched := scheduler.New(cfg, store, n)
	sched.SetClock(clock.Now)

	done := make(chan struct{})
	var res *scheduler.CycleResult
	go func() {
		defer close(done)
		res, _ = sched.RunCycle(ctx)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("cycle did not stop waiting for a retry")
	}

	assert.Equal(t, 1, res.Interrupted)
	assert.Equal(t, 1, n.callsFor(r.ID))
	got := store.get(t, r.ID)
	assert.Equal(t, core.StateDue, got.StateAt(at(10, 9, 0)))
	assert.Zero(t, got.FailedAttempts)
}

func TestRunCycle_FillsMissingFireInstant(t *testing.T) {
	t.Parallel()

	// As if added by hand: no cached fire instant.
	st := &core.ReminderStore{Version: core.StoreVersion, NextID: 2, Reminders: []*core.Reminder{{
		ID:        1,
		Content:   "hand edited",
		Due:       core.CronRule("30 18 * * *", ""),
		CreatedAt: at(10, 8, 0),
	}}}
	h := newHarness(t, st, at(10, 9, 0))
	res := h.cycle(t)

	assert.Zero(t, res.Due)
	assert.Equal(t, 1, h.store.saveCount())
	assert.Equal(t, at(10, 18, 30), *h.store.get(t, 1).NextFireAt)
}

func TestRunCycle_MalformedRuleFailsClosed(t *testing.T) {
	t.Parallel()

	st := &core.ReminderStore{Version: core.StoreVersion, NextID: 2, Reminders: []*core.Reminder{{
		ID:        1,
		Due:       core.CronRule("99 * * * *", ""),
		CreatedAt: at(10, 8, 0),
	}}}
	h := newHarness(t, st, at(10, 9, 0))
	res := h.cycle(t)

	assert.Zero(t, res.Due)
	assert.Equal(t, 1, h.sched.Status().Inert)
}

func TestNextDeadline(t *testing.T) {
	t.Parallel()

	now := at(10, 9, 0)

	t.Run("Empty", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, nil, now)
		h.cycle(t)
		assert.Equal(t, now.Add(time.Minute), h.sched.NextDeadline(now))
	})

	t.Run("EarliestPending", func(t *testing.T) {
		t.Parallel()
		st := core.NewReminderStore()
		st.Add("later", core.PriorityMedium, core.FixedAt(now.Add(50*time.Second)), now)
		st.Add("sooner", core.PriorityMedium, core.FixedAt(now.Add(20*time.Second)), now)
		st.Add("done", core.PriorityMedium, core.FixedAt(now.Add(10*time.Second)), now).Complete(now)
		h := newHarness(t, st, now)
		h.cycle(t)
		assert.Equal(t, now.Add(20*time.Second), h.sched.NextDeadline(now))
	})

	t.Run("CappedByIdleInterval", func(t *testing.T) {
		t.Parallel()
		st := core.NewReminderStore()
		st.Add("far", core.PriorityMedium, core.FixedAt(now.Add(48*time.Hour)), now)
		h := newHarness(t, st, now)
		h.cycle(t)
		assert.Equal(t, now.Add(time.Minute), h.sched.NextDeadline(now))
	})

	t.Run("FailedWaitsForRetryDelay", func(t *testing.T) {
		t.Parallel()
		st := core.NewReminderStore()
		r := st.Add("flaky", core.PriorityMedium, core.FixedAt(now.Add(-time.Minute)), now.Add(-time.Hour))
		r.MarkFailed(now.Add(-2*time.Second), errTransient, 3)
		h := newHarness(t, st, now)
		h.cycle(t)
		assert.Equal(t, now.Add(3*time.Second), h.sched.NextDeadline(now))
	})

	t.Run("DueWithoutFailureIsImmediate", func(t *testing.T) {
		t.Parallel()
		st := core.NewReminderStore()
		st.Add("soon", core.PriorityMedium, core.FixedAt(now.Add(20*time.Second)), now)
		h := newHarness(t, st, now)
		h.cycle(t)
		later := now.Add(30 * time.Second)
		assert.Equal(t, now.Add(20*time.Second), h.sched.NextDeadline(later))
	})
}
