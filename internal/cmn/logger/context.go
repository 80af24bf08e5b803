package logger

import (
	"context"
	"log/slog"
)

type contextKey struct{}

// WithLogger returns a copy of ctx carrying l.
func WithLogger(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// WithValues attaches key-value pairs or slog.Attr tags to the logger
// stored in ctx.
func WithValues(ctx context.Context, keyvals ...any) context.Context {
	if danglingKey(keyvals) {
		keyvals = append(keyvals, "MISSING_VALUE")
	}
	return WithLogger(ctx, FromContext(ctx).With(keyvals...))
}

// danglingKey reports whether keyvals ends in a key without a value. An
// slog.Attr counts as a complete pair.
func danglingKey(keyvals []any) bool {
	for i := 0; i < len(keyvals); {
		if _, ok := keyvals[i].(slog.Attr); ok {
			i++
			continue
		}
		if i+1 == len(keyvals) {
			return true
		}
		i += 2
	}
	return false
}

// FromContext returns the logger stored in ctx or the default logger.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(contextKey{}).(Logger); ok {
		return l
	}
	return defaultLogger
}

func Debug(ctx context.Context, msg string, tags ...any) {
	FromContext(ctx).Debug(msg, tags...)
}

func Info(ctx context.Context, msg string, tags ...any) {
	FromContext(ctx).Info(msg, tags...)
}

func Warn(ctx context.Context, msg string, tags ...any) {
	FromContext(ctx).Warn(msg, tags...)
}

func Error(ctx context.Context, msg string, tags ...any) {
	FromContext(ctx).Error(msg, tags...)
}

func Infof(ctx context.Context, format string, v ...any) {
	FromContext(ctx).Infof(format, v...)
}

// Write prints msg in free form through the logger stored in ctx.
func Write(ctx context.Context, msg string) {
	FromContext(ctx).Write(msg)
}
