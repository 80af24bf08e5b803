// Package tag provides standardized attribute constructors for structured
// logging. All keys are kebab-case.
package tag

import (
	"log/slog"
	"time"
)

func String(key, value string) slog.Attr {
	return slog.String(key, value)
}

// Error creates a tag for error values.
func Error(err any) slog.Attr {
	return slog.Any("err", err)
}

// Reminder identification

// ReminderID creates a tag for reminder ids.
func ReminderID(id int) slog.Attr {
	return slog.Int("reminder-id", id)
}

// CycleID creates a tag for wake cycle ids.
func CycleID(id string) slog.Attr {
	return slog.String("cycle-id", id)
}

// Schedule creates a tag for a reminder's due spec rendered as text.
func Schedule(s string) slog.Attr {
	return slog.String("schedule", s)
}

func Priority(p string) slog.Attr {
	return slog.String("priority", p)
}

func Channel(name string) slog.Attr {
	return slog.String("channel", name)
}

func Attempt(n int) slog.Attr {
	return slog.Int("attempt", n)
}

func MaxRetries(n int) slog.Attr {
	return slog.Int("max-retries", n)
}

// Paths

func File(path string) slog.Attr {
	return slog.String("file", path)
}

func Dir(path string) slog.Attr {
	return slog.String("dir", path)
}

// Counts and states

func Count(n int) slog.Attr {
	return slog.Int("count", n)
}

func Due(n int) slog.Attr {
	return slog.Int("due", n)
}

func Pending(n int) slog.Attr {
	return slog.Int("pending", n)
}

func Fired(n int) slog.Attr {
	return slog.Int("fired", n)
}

func Failed(n int) slog.Attr {
	return slog.Int("failed", n)
}

func Revision(n uint64) slog.Attr {
	return slog.Uint64("revision", n)
}

func Reason(r string) slog.Attr {
	return slog.String("reason", r)
}

// Network

func Addr(addr string) slog.Attr {
	return slog.String("addr", addr)
}

func Port(port int) slog.Attr {
	return slog.Int("port", port)
}

func URL(url string) slog.Attr {
	return slog.String("url", url)
}

func StatusCode(code int) slog.Attr {
	return slog.Int("status-code", code)
}

func To(addr string) slog.Attr {
	return slog.String("to", addr)
}

// Timing

func Interval(d time.Duration) slog.Attr {
	return slog.Duration("interval", d)
}

func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Deadline creates a tag for the next wake instant.
func Deadline(t time.Time) slog.Attr {
	return slog.Time("deadline", t)
}

func Timestamp(t time.Time) slog.Attr {
	return slog.Time("timestamp", t)
}

// Process

func PID(pid int) slog.Attr {
	return slog.Int("pid", pid)
}

func Signal(sig string) slog.Attr {
	return slog.String("signal", sig)
}

func Command(cmd string) slog.Attr {
	return slog.String("command", cmd)
}

func Version(v string) slog.Attr {
	return slog.String("version", v)
}

func Config(path string) slog.Attr {
	return slog.String("config", path)
}
