package scheduler_test

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/remindcli/remind/internal/cmn/config"
	"github.com/remindcli/remind/internal/core"
)

// memStore is an in-memory StoreAdapter. Every Load decodes a fresh copy,
// like reading the file again.
type memStore struct {
	lock sync.Mutex

	mu      sync.Mutex
	data    []byte
	loadErr error
	saveErr error
	saves   int
}

func newMemStore(t *testing.T, st *core.ReminderStore) *memStore {
	t.Helper()
	m := &memStore{}
	if st != nil {
		data, err := json.Marshal(st)
		require.NoError(t, err)
		m.data = data
	}
	return m
}

func (m *memStore) Load(context.Context) (*core.ReminderStore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.data == nil {
		return core.NewReminderStore(), nil
	}
	var st core.ReminderStore
	if err := json.Unmarshal(m.data, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (m *memStore) Save(_ context.Context, st *core.ReminderStore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	next := *st
	next.Revision++
	data, err := json.Marshal(&next)
	if err != nil {
		return err
	}
	m.data = data
	st.Revision = next.Revision
	m.saves++
	return nil
}

func (m *memStore) Lock(ctx context.Context) (func(), error) {
	locked := make(chan struct{})
	go func() {
		m.lock.Lock()
		close(locked)
	}()
	select {
	case <-locked:
		return m.lock.Unlock, nil
	case <-ctx.Done():
		go func() {
			<-locked
			m.lock.Unlock()
		}()
		return nil, ctx.Err()
	}
}

func (m *memStore) setLoadErr(err error) {
	m.mu.Lock()
	m.loadErr = err
	m.mu.Unlock()
}

func (m *memStore) setSaveErr(err error) {
	m.mu.Lock()
	m.saveErr = err
	m.mu.Unlock()
}

func (m *memStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// update runs a locked load-mutate-save, the way the CLI does.
func (m *memStore) update(t *testing.T, fn func(*core.ReminderStore)) {
	t.Helper()
	unlock, err := m.Lock(context.Background())
	require.NoError(t, err)
	defer unlock()
	st, err := m.Load(context.Background())
	require.NoError(t, err)
	fn(st)
	require.NoError(t, m.Save(context.Background(), st))
}

func (m *memStore) get(t *testing.T, id int) *core.Reminder {
	t.Helper()
	st, err := m.Load(context.Background())
	require.NoError(t, err)
	r, err := st.Get(id)
	require.NoError(t, err)
	return r
}

func (m *memStore) count(t *testing.T) int {
	t.Helper()
	st, err := m.Load(context.Background())
	require.NoError(t, err)
	return len(st.Reminders)
}

// fakeNotifier records deliveries and can be scripted per call.
type fakeNotifier struct {
	mu    sync.Mutex
	calls map[int]int
	fired []int
	fn    func(ctx context.Context, r *core.Reminder, call int) error
}

func (f *fakeNotifier) Name() string { return "fake" }

func (f *fakeNotifier) Notify(ctx context.Context, r *core.Reminder) error {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[int]int)
	}
	f.calls[r.ID]++
	call := f.calls[r.ID]
	fn := f.fn
	f.mu.Unlock()

	var err error
	if fn != nil {
		err = fn(ctx, r, call)
	}
	if err == nil {
		f.mu.Lock()
		f.fired = append(f.fired, r.ID)
		f.mu.Unlock()
	}
	return err
}

func (f *fakeNotifier) callsFor(id int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[id]
}

func (f *fakeNotifier) firedIDs() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.fired...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

var errTransient = errors.New("connection refused")

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Paths: config.Paths{
			DataDir:   dir,
			StoreFile: filepath.Join(dir, "reminders.json"),
			LockDir:   filepath.Join(dir, "scheduler", "locks"),
		},
		Scheduler: config.Scheduler{
			IdleInterval:     time.Minute,
			RetryDelay:       5 * time.Second,
			DispatchAttempts: 3,
			BackoffInitial:   time.Millisecond,
			BackoffMax:       5 * time.Millisecond,
			Concurrency:      4,
		},
	}
}

func at(day, hour, minute int) time.Time {
	return time.Date(2026, 3, day, hour, minute, 0, 0, time.UTC)
}
