// Package dirlock implements an mkdir-based lock that keeps a single
// long-running process (the reminder daemon) alive per data directory.
//
// The lock is a directory created atomically under the target directory.
// Its modification time acts as a heartbeat: a holder that stops touching
// it for longer than the stale threshold is presumed dead and its lock may
// be taken over.
package dirlock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	// ErrLockConflict means a live holder owns the lock.
	ErrLockConflict = errors.New("directory is locked by another process")
	// ErrNotLocked means the caller does not hold the lock.
	ErrNotLocked = errors.New("directory is not locked")
)

const (
	lockDirName   = ".remind_lock"
	ownerFileName = "owner.json"

	defaultStaleThreshold = 30 * time.Second
	defaultRetryInterval  = 50 * time.Millisecond
)

// DirLock is a cross-process lock on a directory.
type DirLock interface {
	// TryLock acquires the lock or returns ErrLockConflict without waiting.
	TryLock() error
	// Lock waits for the lock until ctx is done.
	Lock(ctx context.Context) error
	// Unlock releases a lock held by this instance.
	Unlock() error
	// Heartbeat refreshes the lock so it is not considered stale.
	Heartbeat(ctx context.Context) error
	// IsLocked reports whether any live holder owns the lock.
	IsLocked() bool
	// IsHeldByMe reports whether this instance owns the lock.
	IsHeldByMe() bool
	// Info describes the current holder, or returns nil when unlocked.
	Info() (*LockInfo, error)
}

// LockOptions configures staleness and polling.
type LockOptions struct {
	StaleThreshold time.Duration
	RetryInterval  time.Duration
}

// LockInfo describes a lock holder.
type LockInfo struct {
	PID        int       `json:"pid"`
	AcquiredAt time.Time `json:"acquiredAt"`
	// Heartbeat is the last time the holder refreshed the lock.
	Heartbeat time.Time `json:"-"`
}

type dirLock struct {
	dir      string
	lockPath string
	opts     LockOptions

	mu     sync.Mutex
	isHeld bool
}

// New returns a lock on dir. Missing options fall back to defaults.
func New(dir string, opts *LockOptions) DirLock {
	o := LockOptions{}
	if opts != nil {
		o = *opts
	}
	if o.StaleThreshold <= 0 {
		o.StaleThreshold = defaultStaleThreshold
	}
	if o.RetryInterval <= 0 {
		o.RetryInterval = defaultRetryInterval
	}
	return &dirLock{
		dir:      dir,
		lockPath: filepath.Join(dir, lockDirName),
		opts:     o,
	}
}

func (l *dirLock) TryLock() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.isHeld {
		return nil
	}
	if err := os.MkdirAll(l.dir, 0750); err != nil {
		return fmt.Errorf("dirlock: create %s: %w", l.dir, err)
	}

	err := os.Mkdir(l.lockPath, 0700)
	if errors.Is(err, os.ErrExist) {
		if !l.stale() {
			return ErrLockConflict
		}
		if err := os.RemoveAll(l.lockPath); err != nil {
			return fmt.Errorf("dirlock: remove stale lock: %w", err)
		}
		err = os.Mkdir(l.lockPath, 0700)
		if errors.Is(err, os.ErrExist) {
			return ErrLockConflict
		}
	}
	if err != nil {
		return fmt.Errorf("dirlock: create lock: %w", err)
	}

	owner, _ := json.Marshal(LockInfo{PID: os.Getpid(), AcquiredAt: time.Now()})
	if err := os.WriteFile(filepath.Join(l.lockPath, ownerFileName), owner, 0600); err != nil {
		_ = os.RemoveAll(l.lockPath)
		return fmt.Errorf("dirlock: write owner: %w", err)
	}

	l.isHeld = true
	return nil
}

func (l *dirLock) Lock(ctx context.Context) error {
	ticker := time.NewTicker(l.opts.RetryInterval)
	defer ticker.Stop()

	for {
		err := l.TryLock()
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrLockConflict) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (l *dirLock) Unlock() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.isHeld {
		return ErrNotLocked
	}
	if err := os.RemoveAll(l.lockPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("dirlock: remove lock: %w", err)
	}
	l.isHeld = false
	return nil
}

func (l *dirLock) Heartbeat(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.isHeld {
		return ErrNotLocked
	}
	now := time.Now()
	if err := os.Chtimes(l.lockPath, now, now); err != nil {
		return fmt.Errorf("dirlock: heartbeat: %w", err)
	}
	return nil
}

func (l *dirLock) IsLocked() bool {
	if _, err := os.Stat(l.lockPath); err != nil {
		return false
	}
	return !l.stale()
}

func (l *dirLock) IsHeldByMe() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isHeld
}

func (l *dirLock) Info() (*LockInfo, error) {
	st, err := os.Stat(l.lockPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dirlock: stat lock: %w", err)
	}
	if l.stale() {
		return nil, nil
	}

	info := &LockInfo{AcquiredAt: st.ModTime()}
	if data, err := os.ReadFile(filepath.Join(l.lockPath, ownerFileName)); err == nil {
		_ = json.Unmarshal(data, info)
	}
	info.Heartbeat = st.ModTime()
	return info, nil
}

// stale reports whether the lock directory has not been refreshed within
// the stale threshold.
func (l *dirLock) stale() bool {
	st, err := os.Stat(l.lockPath)
	if err != nil {
		return true
	}
	return time.Since(st.ModTime()) > l.opts.StaleThreshold
}

// ForceUnlock removes the lock in dir regardless of its holder.
func ForceUnlock(dir string) error {
	if err := os.RemoveAll(filepath.Join(dir, lockDirName)); err != nil {
		return fmt.Errorf("dirlock: force unlock: %w", err)
	}
	return nil
}
