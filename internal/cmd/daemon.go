package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/remindcli/remind/internal/build"
	"github.com/remindcli/remind/internal/cmn/dirlock"
	"github.com/remindcli/remind/internal/cmn/fileutil"
	"github.com/remindcli/remind/internal/cmn/logger"
	"github.com/remindcli/remind/internal/cmn/logger/tag"
	"github.com/remindcli/remind/internal/notify"
	"github.com/remindcli/remind/internal/service/scheduler"
)

func Daemon() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:     "daemon [flags]",
			Aliases: []string{"scheduler"},
			Short:   "Run the notification daemon",
			Long: `Run the daemon that delivers reminders when they come due.

Reminders missed while the daemon was not running are delivered once on
startup. Only one daemon runs per data directory. SIGINT or SIGTERM stops
it; SIGHUP makes it re-read the store immediately.

With --background the daemon detaches from the terminal and logs to
paths.logFile, or daemon.log in the data directory.

Examples:
  remind daemon --log-file ~/.local/state/remind/daemon.log
  remind daemon --background
`,
			Args: cobra.NoArgs,
		}, daemonFlags, runDaemon,
	)
}

var daemonFlags = []commandLineFlag{logFileFlag, portFlag, backgroundFlag}

func runDaemon(ctx *Context, _ []string) error {
	if ctx.BoolParam("background") {
		return startBackground(ctx, os.Args[1:])
	}

	if path := ctx.Config.Paths.LogFile; path != "" {
		f, err := fileutil.OpenAppendFile(path)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer func() { _ = f.Close() }()
		ctx.LogToFile(f)
	}

	notifier := notify.FromConfig(ctx.Config.Notify)
	logger.Info(ctx, "Daemon initialization",
		tag.Version(build.Version),
		tag.File(ctx.Config.Paths.StoreFile),
		tag.Channel(notifier.Name()),
	)

	sched := scheduler.New(ctx.Config, ctx.Store, notifier)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start daemon for %s: %w", ctx.Config.Paths.StoreFile, err)
	}
	return nil
}

const backgroundStartTimeout = 10 * time.Second

// startBackground runs the daemon command again as a detached process and
// returns once the new process holds the scheduler lock.
func startBackground(ctx *Context, args []string) error {
	lock := dirlock.New(ctx.Config.Paths.LockDir, &dirlock.LockOptions{
		StaleThreshold: ctx.Config.Scheduler.LockStaleThreshold,
	})
	info, err := lock.Info()
	if err != nil {
		return fmt.Errorf("failed to read daemon lock: %w", err)
	}
	if info != nil {
		return fmt.Errorf("%w (pid %d)", scheduler.ErrAlreadyRunning, info.PID)
	}

	logPath := ctx.Config.Paths.LogFile
	if logPath == "" {
		logPath = filepath.Join(ctx.Config.Paths.DataDir, "daemon.log")
	}
	f, err := fileutil.OpenAppendFile(logPath)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to locate executable: %w", err)
	}
	// nolint:gosec
	cmd := exec.Command(exe, backgroundArgs(args, logPath)...)
	cmd.Env = os.Environ()
	cmd.Stdout = f
	cmd.Stderr = f
	if err := detach(cmd); err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}
	pid := cmd.Process.Pid
	logger.Debug(ctx, "Daemon process started", tag.PID(pid), tag.File(logPath))

	exited := make(chan error, 1)
	go func() { exited <- cmd.Wait() }()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	timeout := time.After(backgroundStartTimeout)
	for {
		select {
		case err := <-exited:
			return fmt.Errorf("daemon exited during startup (%v), see %s", err, logPath)
		case <-timeout:
			return fmt.Errorf("daemon did not take the scheduler lock within %s, see %s", backgroundStartTimeout, logPath)
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if info, _ := lock.Info(); info != nil && info.PID == pid {
				ctx.Printf("Daemon started in background (pid %d), logging to %s\n", pid, logPath)
				return nil
			}
		}
	}
}

// backgroundArgs rewrites the command line for the detached process: no
// --background, console logging off and logs sent to logPath.
func backgroundArgs(args []string, logPath string) []string {
	out := make([]string, 0, len(args)+3)
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--background" || arg == "-b" || strings.HasPrefix(arg, "--background="):
		case arg == "--log-file":
			i++
		case strings.HasPrefix(arg, "--log-file="):
		case arg == "--quiet" || arg == "-q":
		default:
			out = append(out, arg)
		}
	}
	return append(out, "--quiet", "--log-file", logPath)
}
