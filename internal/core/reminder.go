package core

import (
	"fmt"
	"time"
)

// State is the scheduling phase of a reminder at a given instant.
type State int

const (
	// StatePending has a future fire instant.
	StatePending State = iota
	// StateDue has a fire instant at or before now.
	StateDue
	// StateFired was dispatched in the current cycle and awaits advancing.
	StateFired
	// StateInert is completed or has no further occurrences.
	StateInert
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateDue:
		return "due"
	case StateFired:
		return "fired"
	case StateInert:
		return "inert"
	default:
		return "unknown"
	}
}

// Reminder is a piece of text with a schedule.
type Reminder struct {
	ID        int       `json:"id"`
	Content   string    `json:"content"`
	Priority  Priority  `json:"priority,omitempty"`
	Due       DueSpec   `json:"due"`
	CreatedAt time.Time `json:"createdAt"`

	// NextFireAt caches the next instant the reminder is due. It equals
	// SnoozedUntil while a snooze is pending and is nil once inert.
	NextFireAt   *time.Time `json:"nextFireAt,omitempty"`
	LastFiredAt  *time.Time `json:"lastFiredAt,omitempty"`
	SnoozedUntil *time.Time `json:"snoozedUntil,omitempty"`

	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	// Muted reminders follow their schedule without sending notifications.
	Muted bool `json:"muted,omitempty"`

	// LastError, FailedAttempts and LastFailedAt describe the most recent
	// failed dispatch. All are cleared by a successful one.
	LastError      string     `json:"lastError,omitempty"`
	FailedAttempts int        `json:"failedAttempts,omitempty"`
	LastFailedAt   *time.Time `json:"lastFailedAt,omitempty"`
}

// NewReminder builds a reminder created at now with its first fire
// instant computed.
func NewReminder(id int, content string, priority Priority, due DueSpec, now time.Time) *Reminder {
	r := &Reminder{
		ID:        id,
		Content:   content,
		Priority:  priority.Normalize(),
		Due:       due,
		CreatedAt: now.UTC(),
	}
	r.NextFireAt = r.InitialFireAt()
	return r
}

// InitialFireAt derives the fire instant of a reminder that has none
// cached, for example one added by hand to the store file. A one-shot that
// never fired is due at its instant even if that has passed; a rule is
// evaluated from the last fire or, failing that, from creation.
func (r *Reminder) InitialFireAt() *time.Time {
	if r.Completed {
		return nil
	}
	if r.SnoozedUntil != nil {
		return timePtr(*r.SnoozedUntil)
	}
	if r.LastFiredAt != nil {
		return nextPtr(r.Due, *r.LastFiredAt)
	}
	if r.Due.Kind == DueFixed {
		if r.Due.At.IsZero() {
			return nil
		}
		return timePtr(r.Due.At)
	}
	return nextPtr(r.Due, r.CreatedAt)
}

// StateAt classifies the reminder at now.
func (r *Reminder) StateAt(now time.Time) State {
	switch {
	case r.Completed || r.NextFireAt == nil:
		return StateInert
	case !now.Before(*r.NextFireAt):
		return StateDue
	default:
		return StatePending
	}
}

// MarkFired records a successful dispatch at now and advances the
// schedule. A pending snooze is consumed. It returns the resulting state,
// StatePending or StateInert.
func (r *Reminder) MarkFired(now time.Time) State {
	fired := now.UTC()
	r.LastFiredAt = &fired
	r.SnoozedUntil = nil
	r.LastError = ""
	r.FailedAttempts = 0
	r.LastFailedAt = nil
	r.NextFireAt = nextPtr(r.Due, fired)
	if r.NextFireAt == nil {
		return StateInert
	}
	return StatePending
}

// MarkFailed records a dispatch that gave up at now. The schedule is left
// untouched so the reminder stays due.
func (r *Reminder) MarkFailed(now time.Time, err error, attempts int) {
	if err != nil {
		r.LastError = err.Error()
	}
	r.FailedAttempts += attempts
	r.LastFailedAt = timePtr(now)
}

// RetryAt returns when a reminder whose last dispatch failed may be
// dispatched again. ok is false if no failure is recorded.
func (r *Reminder) RetryAt(delay time.Duration) (at time.Time, ok bool) {
	if r.FailedAttempts == 0 || r.LastFailedAt == nil {
		return time.Time{}, false
	}
	return r.LastFailedAt.Add(delay), true
}

// Snooze defers the next fire to until. A completed reminder is
// reactivated.
func (r *Reminder) Snooze(until time.Time) {
	u := until.UTC()
	r.SnoozedUntil = &u
	r.NextFireAt = timePtr(u)
	r.Completed = false
	r.CompletedAt = nil
}

// Complete makes the reminder inert. Recurring reminders stay inert until
// Reopen; completion never lets a rule keep firing silently.
func (r *Reminder) Complete(now time.Time) {
	done := now.UTC()
	r.Completed = true
	r.CompletedAt = &done
	r.SnoozedUntil = nil
	r.NextFireAt = nil
}

// Reopen reactivates a completed reminder. A recurring reminder resumes
// from its next occurrence after now; a one-shot resumes only if its
// instant is still ahead.
func (r *Reminder) Reopen(now time.Time) error {
	if !r.Completed {
		return fmt.Errorf("reminder %d is not completed", r.ID)
	}
	r.Completed = false
	r.CompletedAt = nil
	r.NextFireAt = nextPtr(r.Due, now)
	return nil
}

// Clone returns a deep copy.
func (r *Reminder) Clone() *Reminder {
	c := *r
	c.NextFireAt = clonePtr(r.NextFireAt)
	c.LastFiredAt = clonePtr(r.LastFiredAt)
	c.SnoozedUntil = clonePtr(r.SnoozedUntil)
	c.CompletedAt = clonePtr(r.CompletedAt)
	c.LastFailedAt = clonePtr(r.LastFailedAt)
	return &c
}

// Title is the notification headline.
func (r *Reminder) Title() string {
	return fmt.Sprintf("[%s] Reminder #%d", r.Priority.Label(), r.ID)
}

func nextPtr(due DueSpec, after time.Time) *time.Time {
	next, ok := NextOccurrence(due, after)
	if !ok {
		return nil
	}
	return &next
}

func timePtr(t time.Time) *time.Time {
	u := t.UTC()
	return &u
}

func clonePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

// SameInstant reports whether a and b are both nil or equal instants.
func SameInstant(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
