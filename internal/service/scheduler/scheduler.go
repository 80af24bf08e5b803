package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/remindcli/remind/internal/cmn/config"
	"github.com/remindcli/remind/internal/cmn/dirlock"
	"github.com/remindcli/remind/internal/cmn/logger"
	"github.com/remindcli/remind/internal/cmn/logger/tag"
	"github.com/remindcli/remind/internal/core"
	"github.com/remindcli/remind/internal/notify"
)

// Clock is a function that returns the current time.
// It can be replaced for testing purposes.
type Clock func() time.Time

const (
	heartbeatInterval = 7 * time.Second
	flushTimeout      = 10 * time.Second
)

// ErrAlreadyRunning is returned by Start when another daemon holds the
// scheduler lock.
var ErrAlreadyRunning = errors.New("another scheduler is already running")

// Scheduler owns the in-memory reminder schedule for the lifetime of the
// daemon and drives the wake cycles that fire due reminders.
type Scheduler struct {
	cfg       config.Scheduler
	storeFile string
	store     core.StoreAdapter
	notifier  notify.Notifier
	clock     Clock

	dirLock      dirlock.DirLock
	healthServer *HealthServer
	metrics      *Metrics
	watcher      *StoreWatcher

	// cycleMu serializes cycles with the shutdown flush.
	cycleMu sync.Mutex

	mu          sync.Mutex
	reminders   map[int]*core.Reminder
	unpersisted map[int]firedRecord
	loaded      bool
	degraded    bool
	lastCycle   *CycleResult

	wake     chan struct{}
	quit     chan struct{}
	stopOnce sync.Once
	running  atomic.Bool
}

// New constructs a Scheduler that reads and writes reminders through
// store and delivers them through notifier.
func New(cfg *config.Config, store core.StoreAdapter, notifier notify.Notifier) *Scheduler {
	sc := cfg.Scheduler
	if sc.IdleInterval <= 0 {
		sc.IdleInterval = time.Minute
	}
	if sc.RetryDelay <= 0 {
		sc.RetryDelay = 30 * time.Second
	}
	if sc.DispatchAttempts <= 0 {
		sc.DispatchAttempts = 1
	}
	s := &Scheduler{
		cfg:       sc,
		storeFile: cfg.Paths.StoreFile,
		store:     store,
		notifier:  notifier,
		clock:     time.Now,
		dirLock: dirlock.New(cfg.Paths.LockDir, &dirlock.LockOptions{
			StaleThreshold: sc.LockStaleThreshold,
			RetryInterval:  sc.LockRetryInterval,
		}),
		reminders:   make(map[int]*core.Reminder),
		unpersisted: make(map[int]firedRecord),
		wake:        make(chan struct{}, 1),
		quit:        make(chan struct{}),
	}
	registry := prometheus.NewRegistry()
	s.metrics = NewMetrics(registry, s.Status)
	s.healthServer = NewHealthServer(sc.Port, s.Status,
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return s
}

// SetClock sets a custom clock function for testing purposes.
// This must be called before Start().
func (s *Scheduler) SetClock(clock Clock) {
	s.clock = clock
}

// Wake makes the daemon run a cycle now instead of at its deadline.
func (s *Scheduler) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// IsRunning returns whether the scheduler loop is active.
func (s *Scheduler) IsRunning() bool {
	return s.running.Load()
}

// Start runs the daemon until ctx is cancelled, Stop is called, or the
// process receives SIGINT or SIGTERM. SIGHUP forces an immediate cycle.
// A clean shutdown returns nil.
func (s *Scheduler) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := s.dirLock.TryLock(); err != nil {
		if errors.Is(err, dirlock.ErrLockConflict) {
			if info, _ := s.dirLock.Info(); info != nil {
				return fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, info.PID)
			}
			return ErrAlreadyRunning
		}
		return fmt.Errorf("failed to acquire scheduler lock: %w", err)
	}
	defer func() {
		if err := s.dirLock.Unlock(); err != nil {
			logger.Error(ctx, "Failed to release scheduler lock", tag.Error(err))
		}
	}()
	logger.Info(ctx, "Acquired scheduler lock", tag.PID(os.Getpid()))

	if err := s.healthServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start health check server: %w", err)
	}
	defer func() {
		if err := s.healthServer.Stop(context.WithoutCancel(ctx)); err != nil {
			logger.Error(ctx, "Failed to stop health check server", tag.Error(err))
		}
	}()

	if s.cfg.Watch {
		w, err := NewStoreWatcher(s.storeFile)
		if err != nil {
			// Without the watcher changes are picked up within the idle interval.
			logger.Warn(ctx, "Store watcher unavailable", tag.Error(err))
		} else {
			s.watcher = w
			defer func() { _ = w.Close() }()
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.startHeartbeat(ctx)
	}()

	if s.watcher != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.watcher.Run(ctx, s.Wake)
		}()
	}

	logger.Info(ctx, "Scheduler started",
		tag.File(s.storeFile),
		tag.Interval(s.cfg.IdleInterval),
	)

	s.running.Store(true)
	s.loop(ctx, sig)
	s.running.Store(false)

	// Retries still running have been cancelled with ctx; their reminders
	// stay due and fire on the next start.
	cancel()
	wg.Wait()

	flushCtx, flushCancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
	defer flushCancel()
	if err := s.flush(flushCtx); err != nil {
		logger.Error(ctx, "Failed to persist fired reminders on shutdown", tag.Error(err))
	}

	logger.Info(ctx, "Scheduler stopped")
	return nil
}

// loop runs the initial reconciliation cycle, then sleeps until the next
// deadline or an external wake and runs another.
func (s *Scheduler) loop(ctx context.Context, sig chan os.Signal) {
	cycleCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.quit:
			cancel()
		case <-cycleCtx.Done():
		}
	}()

	deadline := s.runCycle(cycleCtx)
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	for {
		select {
		case <-cycleCtx.Done():
			return
		case <-s.quit:
			return
		case sg := <-sig:
			if sg == syscall.SIGHUP {
				logger.Info(ctx, "Reloading store", tag.Signal(sg.String()))
				break
			}
			logger.Info(ctx, "Received shutdown signal", tag.Signal(sg.String()))
			return
		case <-s.wake:
		case <-timer.C:
		}

		deadline = s.runCycle(cycleCtx)
		timer.Reset(time.Until(deadline))
	}
}

// runCycle runs one cycle and returns the wall-clock time of the next.
func (s *Scheduler) runCycle(ctx context.Context) time.Time {
	res, err := s.RunCycle(ctx)
	if err != nil {
		logger.Error(ctx, "Cycle failed, keeping last known schedule",
			tag.CycleID(res.ID),
			tag.Error(err),
		)
	}
	s.mu.Lock()
	s.lastCycle = res
	s.mu.Unlock()

	// Deadlines come from the scheduler clock; the timer runs on real time.
	return time.Now().Add(res.Deadline.Sub(s.clock()))
}

func (s *Scheduler) startHeartbeat(ctx context.Context) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.quit:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.dirLock.Heartbeat(ctx); err != nil {
				logger.Error(ctx, "Failed to send heartbeat for scheduler lock", tag.Error(err))
			}
		}
	}
}

// Stop makes a running Start return. It is safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
	})
}

// Status is a point-in-time view of the schedule.
type Status struct {
	Running     bool       `json:"running"`
	Pending     int        `json:"pending"`
	Due         int        `json:"due"`
	Inert       int        `json:"inert"`
	Unpersisted int        `json:"unpersisted"`
	Degraded    bool       `json:"degraded"`
	NextFireAt  *time.Time `json:"nextFireAt,omitempty"`
	LastCycleID string     `json:"lastCycleId,omitempty"`
}

// Status reports the in-memory schedule.
func (s *Scheduler) Status() Status {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Running:     s.running.Load(),
		Unpersisted: len(s.unpersisted),
		Degraded:    s.degraded,
	}
	if s.lastCycle != nil {
		st.LastCycleID = s.lastCycle.ID
	}
	for _, r := range s.reminders {
		switch r.StateAt(now) {
		case core.StatePending:
			st.Pending++
			if st.NextFireAt == nil || r.NextFireAt.Before(*st.NextFireAt) {
				next := *r.NextFireAt
				st.NextFireAt = &next
			}
		case core.StateDue:
			st.Due++
		default:
			st.Inert++
		}
	}
	return st
}
