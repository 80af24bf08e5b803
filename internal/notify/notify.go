// Package notify delivers fired reminders to the user.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/remindcli/remind/internal/core"
)

// Notifier delivers a notification for one reminder. Implementations must
// be safe for concurrent use; the scheduler may dispatch several due
// reminders at once.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, r *core.Reminder) error
}

// DispatchError is a failed delivery on one channel.
type DispatchError struct {
	Channel string
	Err     error
	// Permanent marks failures a retry cannot fix, such as a rejected
	// request.
	Permanent bool
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("notify %s: %v", e.Channel, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// IsPermanent reports whether err contains a permanent DispatchError.
func IsPermanent(err error) bool {
	var de *DispatchError
	return errors.As(err, &de) && de.Permanent
}

func dispatchErr(channel string, err error) error {
	return &DispatchError{Channel: channel, Err: err}
}

func permanentErr(channel string, err error) error {
	return &DispatchError{Channel: channel, Err: err, Permanent: true}
}

// Message is the rendered text of a notification.
type Message struct {
	Title string
	Body  string
}

// Render formats r for display. Recurring reminders mention their rule.
func Render(r *core.Reminder) Message {
	body := r.Content
	if r.Due.IsRecurring() {
		body += "\n(repeats: " + r.Due.Rule + ")"
	}
	return Message{Title: r.Title(), Body: body}
}

// Text is the single-line form used by chat channels.
func (m Message) Text() string {
	return m.Title + ": " + strings.ReplaceAll(m.Body, "\n", " ")
}

// Payload is the JSON body posted by the webhook channel.
type Payload struct {
	ID       int       `json:"id"`
	Title    string    `json:"title"`
	Content  string    `json:"content"`
	Priority string    `json:"priority"`
	Schedule string    `json:"schedule"`
	FiredAt  time.Time `json:"firedAt"`
}

func newPayload(r *core.Reminder, now time.Time) Payload {
	return Payload{
		ID:       r.ID,
		Title:    r.Title(),
		Content:  r.Content,
		Priority: string(r.Priority.Normalize()),
		Schedule: r.Due.String(),
		FiredAt:  now.UTC(),
	}
}
