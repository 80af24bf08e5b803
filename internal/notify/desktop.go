package notify

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/remindcli/remind/internal/core"
)

// CommandRunner runs an external program and returns its combined output.
type CommandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput() //nolint:gosec
}

// Desktop shows an OS notification through notify-send on Linux and the
// BSDs, or osascript on macOS.
type Desktop struct {
	command string
	urgency string
	goos    string
	run     CommandRunner
}

// DesktopOption configures a Desktop notifier.
type DesktopOption func(*Desktop)

// WithCommand overrides the notification program.
func WithCommand(command string) DesktopOption {
	return func(d *Desktop) {
		if command != "" {
			d.command = command
		}
	}
}

// WithUrgency sets a fixed notify-send urgency instead of one derived
// from the reminder priority.
func WithUrgency(urgency string) DesktopOption {
	return func(d *Desktop) {
		d.urgency = urgency
	}
}

// WithRunner replaces process execution, for tests.
func WithRunner(run CommandRunner) DesktopOption {
	return func(d *Desktop) {
		d.run = run
	}
}

// WithGOOS selects the platform behavior, for tests.
func WithGOOS(goos string) DesktopOption {
	return func(d *Desktop) {
		d.goos = goos
	}
}

func NewDesktop(opts ...DesktopOption) *Desktop {
	d := &Desktop{goos: runtime.GOOS, run: execRunner}
	for _, opt := range opts {
		opt(d)
	}
	if d.command == "" {
		d.command = "notify-send"
		if d.goos == "darwin" {
			d.command = "osascript"
		}
	}
	return d
}

func (d *Desktop) Name() string { return "desktop" }

func (d *Desktop) Notify(ctx context.Context, r *core.Reminder) error {
	msg := Render(r)

	var args []string
	if d.command == "osascript" {
		args = []string{"-e", fmt.Sprintf("display notification %s with title %s",
			appleScriptString(msg.Body), appleScriptString(msg.Title))}
	} else {
		args = []string{"--app-name=remind", "--urgency=" + d.urgencyFor(r.Priority), msg.Title, msg.Body}
	}

	out, err := d.run(ctx, d.command, args...)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return permanentErr(d.Name(), fmt.Errorf("%s not found in PATH", d.command))
		}
		detail := strings.TrimSpace(string(out))
		if detail != "" {
			err = fmt.Errorf("%w: %s", err, detail)
		}
		return dispatchErr(d.Name(), err)
	}
	return nil
}

func (d *Desktop) urgencyFor(p core.Priority) string {
	if d.urgency != "" {
		return d.urgency
	}
	switch p.Normalize() {
	case core.PriorityHigh:
		return "critical"
	case core.PriorityLow:
		return "low"
	default:
		return "normal"
	}
}

func appleScriptString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
