// Package filereminder stores the reminder collection as a single JSON file.
package filereminder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/remindcli/remind/internal/core"
)

const (
	dirPermissions  = 0750
	filePermissions = 0600

	defaultLockRetry = 20 * time.Millisecond
)

var _ core.StoreAdapter = (*Store)(nil)

// Store reads and writes reminders.json. Saves replace the file through a
// rename so readers see either the old or the new content, never a mix.
type Store struct {
	path      string
	lockPath  string
	lockRetry time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithLockRetry sets how often a blocked Lock polls.
func WithLockRetry(d time.Duration) Option {
	return func(s *Store) {
		s.lockRetry = d
	}
}

// New returns a store backed by path. The file need not exist.
func New(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, errors.New("filereminder: store path cannot be empty")
	}
	s := &Store{
		path:      path,
		lockPath:  path + ".lock",
		lockRetry: defaultLockRetry,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the store file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the store. A missing file yields an empty store.
func (s *Store) Load(_ context.Context) (*core.ReminderStore, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return core.NewReminderStore(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %w", core.ErrStoreUnreadable, s.path, err)
	}

	var store core.ReminderStore
	if err := json.Unmarshal(data, &store); err != nil {
		return nil, fmt.Errorf("%w: failed to parse %s: %w", core.ErrStoreUnreadable, s.path, err)
	}
	if store.Version > core.StoreVersion {
		return nil, fmt.Errorf("%w: %s has format version %d, newer than supported %d",
			core.ErrStoreUnreadable, s.path, store.Version, core.StoreVersion)
	}
	if err := checkIDs(store.Reminders); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", core.ErrStoreUnreadable, s.path, err)
	}
	if store.Reminders == nil {
		store.Reminders = []*core.Reminder{}
	}
	if store.NextID < 1 {
		store.NextID = 1
	}
	store.Version = core.StoreVersion
	return &store, nil
}

func checkIDs(reminders []*core.Reminder) error {
	seen := make(map[int]struct{}, len(reminders))
	for i, r := range reminders {
		if r == nil {
			return fmt.Errorf("reminder at index %d is null", i)
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("duplicate reminder id %d", r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	return nil
}

// Save writes store to a temporary file, syncs it and renames it over the
// store file. Revision is incremented on success.
func (s *Store) Save(_ context.Context, store *core.ReminderStore) error {
	next := *store
	next.Version = core.StoreVersion
	next.Revision++

	data, err := json.MarshalIndent(&next, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to marshal reminders: %w", core.ErrStoreUnwritable, err)
	}
	data = append(data, '\n')

	if err := s.writeAtomic(data); err != nil {
		return fmt.Errorf("%w: %w", core.ErrStoreUnwritable, err)
	}
	store.Version = next.Version
	store.Revision = next.Revision
	return nil
}

func (s *Store) writeAtomic(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to write %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to sync %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("failed to close %s: %w", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, filePermissions); err != nil {
		cleanup()
		return fmt.Errorf("failed to chmod %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		cleanup()
		return fmt.Errorf("failed to rename %s: %w", tmpPath, err)
	}
	return nil
}

// Lock takes an exclusive advisory lock on <store>.lock. Every process
// mutating the store holds it from load to save.
func (s *Store) Lock(ctx context.Context) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(s.lockPath), dirPermissions); err != nil {
		return nil, fmt.Errorf("filereminder: failed to create lock directory: %w", err)
	}

	fl := flock.New(s.lockPath, flock.SetPermissions(filePermissions))
	locked, err := fl.TryLockContext(ctx, s.lockRetry)
	if err != nil {
		return nil, fmt.Errorf("filereminder: failed to lock %s: %w", s.lockPath, err)
	}
	if !locked {
		return nil, fmt.Errorf("filereminder: failed to lock %s", s.lockPath)
	}
	return func() { _ = fl.Unlock() }, nil
}

// Update runs fn between a locked load and save. When fn returns
// core.ErrNoChange the save is skipped and Update returns nil.
func Update(ctx context.Context, s core.StoreAdapter, fn func(*core.ReminderStore) error) error {
	unlock, err := s.Lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	store, err := s.Load(ctx)
	if err != nil {
		return err
	}
	if err := fn(store); err != nil {
		if errors.Is(err, core.ErrNoChange) {
			return nil
		}
		return err
	}
	return s.Save(ctx, store)
}
