package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	slogmulti "github.com/samber/slog-multi"
)

// Logger is the structured logger used across the application.
type Logger interface {
	Debug(msg string, tags ...any)
	Info(msg string, tags ...any)
	Warn(msg string, tags ...any)
	Error(msg string, tags ...any)

	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Warnf(format string, v ...any)
	Errorf(format string, v ...any)

	With(attrs ...any) Logger

	// Write prints a message in free form to stdout and to the log file, if any.
	Write(string)
}

var _ Logger = (*appLogger)(nil)

type appLogger struct {
	logger *slog.Logger
	file   *lockedHandler
	stdout io.Writer
	quiet  bool
	debug  bool
}

// Config holds the options collected by NewLogger.
type Config struct {
	debug  bool
	format string
	writer io.Writer
	stderr io.Writer
	stdout io.Writer
	quiet  bool
}

// Option configures a Logger.
type Option func(*Config)

// WithDebug enables debug level and source locations.
func WithDebug() Option {
	return func(c *Config) {
		c.debug = true
	}
}

// WithFormat sets the record format, "text" or "json".
func WithFormat(format string) Option {
	return func(c *Config) {
		c.format = format
	}
}

// WithWriter mirrors every record to w, typically the daemon log file.
func WithWriter(w io.Writer) Option {
	return func(c *Config) {
		c.writer = w
	}
}

// WithConsole replaces the default stderr and stdout streams.
func WithConsole(stderr, stdout io.Writer) Option {
	return func(c *Config) {
		c.stderr = stderr
		c.stdout = stdout
	}
}

// WithQuiet suppresses console output.
func WithQuiet() Option {
	return func(c *Config) {
		c.quiet = true
	}
}

var defaultLogger = NewLogger(WithFormat("text"))

// NewLogger builds a logger that fans records out to the console and an
// optional writer.
func NewLogger(opts ...Option) Logger {
	cfg := &Config{stderr: os.Stderr, stdout: os.Stdout}
	for _, opt := range opts {
		opt(cfg)
	}

	level := slog.LevelInfo
	if cfg.debug {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: cfg.debug,
	}

	var (
		handlers []slog.Handler
		file     *lockedHandler
	)
	if !cfg.quiet {
		handlers = append(handlers, newHandler(cfg.stderr, cfg.format, handlerOpts))
	}
	if cfg.writer != nil {
		file = &lockedHandler{
			handler: newHandler(cfg.writer, cfg.format, handlerOpts),
			writer:  cfg.writer,
			mu:      &sync.Mutex{},
		}
		handlers = append(handlers, file)
	}

	return &appLogger{
		logger: slog.New(slogmulti.Fanout(handlers...)),
		file:   file,
		stdout: cfg.stdout,
		quiet:  cfg.quiet,
		debug:  cfg.debug,
	}
}

func newHandler(w io.Writer, format string, opts *slog.HandlerOptions) slog.Handler {
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

var _ slog.Handler = (*lockedHandler)(nil)

// lockedHandler serializes writes to a shared file so records from
// concurrent dispatches and free-form Write calls never interleave.
type lockedHandler struct {
	handler slog.Handler
	writer  io.Writer
	mu      *sync.Mutex
}

func (h *lockedHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *lockedHandler) Handle(ctx context.Context, record slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.handler.Handle(ctx, record)
}

func (h *lockedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &lockedHandler{handler: h.handler.WithAttrs(attrs), writer: h.writer, mu: h.mu}
}

func (h *lockedHandler) WithGroup(name string) slog.Handler {
	return &lockedHandler{handler: h.handler.WithGroup(name), writer: h.writer, mu: h.mu}
}

func (a *appLogger) Debug(msg string, tags ...any) { a.log(slog.LevelDebug, msg, tags...) }
func (a *appLogger) Info(msg string, tags ...any)  { a.log(slog.LevelInfo, msg, tags...) }
func (a *appLogger) Warn(msg string, tags ...any)  { a.log(slog.LevelWarn, msg, tags...) }
func (a *appLogger) Error(msg string, tags ...any) { a.log(slog.LevelError, msg, tags...) }

func (a *appLogger) Debugf(format string, v ...any) {
	a.log(slog.LevelDebug, fmt.Sprintf(format, v...))
}

func (a *appLogger) Infof(format string, v ...any) {
	a.log(slog.LevelInfo, fmt.Sprintf(format, v...))
}

func (a *appLogger) Warnf(format string, v ...any) {
	a.log(slog.LevelWarn, fmt.Sprintf(format, v...))
}

func (a *appLogger) Errorf(format string, v ...any) {
	a.log(slog.LevelError, fmt.Sprintf(format, v...))
}

// log records the caller of the public method as the source location.
func (a *appLogger) log(level slog.Level, msg string, tags ...any) {
	ctx := context.Background()
	if !a.logger.Enabled(ctx, level) {
		return
	}
	var pc uintptr
	if a.debug {
		var pcs [1]uintptr
		// runtime.Callers, log, the Logger method
		runtime.Callers(3, pcs[:])
		pc = pcs[0]
	}
	record := slog.NewRecord(time.Now(), level, msg, pc)
	record.Add(tags...)
	_ = a.logger.Handler().Handle(ctx, record)
}

func (a *appLogger) With(attrs ...any) Logger {
	clone := *a
	clone.logger = a.logger.With(attrs...)
	return &clone
}

func (a *appLogger) Write(msg string) {
	if !a.quiet {
		_, _ = fmt.Fprintln(a.stdout, msg)
	}
	if a.file != nil {
		a.file.mu.Lock()
		defer a.file.mu.Unlock()
		_, _ = io.WriteString(a.file.writer, msg+"\n")
	}
}
