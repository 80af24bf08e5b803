package core

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// StoreVersion is the current on-disk format version.
const StoreVersion = 1

// ReminderStore is the persisted collection. It is always loaded and
// saved as a whole.
type ReminderStore struct {
	Version int `json:"version"`
	// Revision increases by one on every save.
	Revision  uint64      `json:"revision"`
	NextID    int         `json:"nextId"`
	Reminders []*Reminder `json:"reminders"`
}

// NewReminderStore returns an empty store.
func NewReminderStore() *ReminderStore {
	return &ReminderStore{Version: StoreVersion, NextID: 1, Reminders: []*Reminder{}}
}

// StoreAdapter loads and saves the reminder store. Load and Save do not
// serialize against other processes; callers hold Lock around every
// load-mutate-save sequence.
type StoreAdapter interface {
	// Load returns the stored collection. A missing store is empty; an
	// unparseable one fails with ErrStoreUnreadable.
	Load(ctx context.Context) (*ReminderStore, error)
	// Save atomically replaces the stored collection. Failures wrap
	// ErrStoreUnwritable and leave the previous content in place.
	Save(ctx context.Context, store *ReminderStore) error
	// Lock takes the cross-process store lock, waiting until ctx is done.
	Lock(ctx context.Context) (unlock func(), err error)
}

// Add appends a new reminder and assigns it the next id.
func (s *ReminderStore) Add(content string, priority Priority, due DueSpec, now time.Time) *Reminder {
	s.normalizeNextID()
	r := NewReminder(s.NextID, content, priority, due, now)
	s.NextID++
	s.Reminders = append(s.Reminders, r)
	return r
}

// Get returns the reminder with id.
func (s *ReminderStore) Get(id int) (*Reminder, error) {
	for _, r := range s.Reminders {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: #%d", ErrReminderNotFound, id)
}

// Remove deletes the reminder with id. Its id is never reused.
func (s *ReminderStore) Remove(id int) error {
	i := slices.IndexFunc(s.Reminders, func(r *Reminder) bool { return r.ID == id })
	if i < 0 {
		return fmt.Errorf("%w: #%d", ErrReminderNotFound, id)
	}
	s.Reminders = slices.Delete(s.Reminders, i, i+1)
	return nil
}

// Index maps ids to reminders.
func (s *ReminderStore) Index() map[int]*Reminder {
	idx := make(map[int]*Reminder, len(s.Reminders))
	for _, r := range s.Reminders {
		idx[r.ID] = r
	}
	return idx
}

// Pending returns reminders that are not inert at now, earliest first.
func (s *ReminderStore) Pending(now time.Time) []*Reminder {
	var out []*Reminder
	for _, r := range s.Reminders {
		if r.StateAt(now) != StateInert {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b *Reminder) int {
		return a.NextFireAt.Compare(*b.NextFireAt)
	})
	return out
}

// normalizeNextID keeps NextID above every id in use, so hand-edited
// files cannot cause an id to be reused.
func (s *ReminderStore) normalizeNextID() {
	for _, r := range s.Reminders {
		if r.ID >= s.NextID {
			s.NextID = r.ID + 1
		}
	}
	if s.NextID < 1 {
		s.NextID = 1
	}
}
