// Package test provides helpers for tests that run remind commands
// against a throwaway home directory.
package test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/remindcli/remind/internal/cmn/config"
	"github.com/remindcli/remind/internal/cmn/logger"
	"github.com/remindcli/remind/internal/core"
	"github.com/remindcli/remind/internal/persis/filereminder"
)

// HelperOption defines functional options for Helper
type HelperOption func(*Options)

type Options struct {
	CaptureLoggingOutput bool
	// Settings are written to the config file, keyed by dotted path.
	Settings map[string]any
}

// WithCaptureLoggingOutput creates a logging capture option
func WithCaptureLoggingOutput() HelperOption {
	return func(opts *Options) {
		opts.CaptureLoggingOutput = true
	}
}

// WithSetting sets a config key such as "scheduler.port".
func WithSetting(key string, value any) HelperOption {
	return func(opts *Options) {
		if opts.Settings == nil {
			opts.Settings = make(map[string]any)
		}
		opts.Settings[key] = value
	}
}

// Helper holds a config file, a store and a context for one test.
type Helper struct {
	Context       context.Context
	Config        *config.Config
	Store         *filereminder.Store
	LoggingOutput *SyncBuffer

	tmpDir string
}

// Setup creates a new Helper instance for testing. Desktop notifications
// are disabled and reminders are delivered to the log instead.
func Setup(t *testing.T, opts ...HelperOption) Helper {
	t.Helper()

	var options Options
	for _, opt := range opts {
		opt(&options)
	}

	tmpDir := t.TempDir()
	t.Setenv("REMIND_HOME", tmpDir)

	settings := map[string]any{
		"tz":                     "UTC",
		"notify.desktop.enabled": false,
		"notify.log.enabled":     true,
		"scheduler.watch":        false,
		"scheduler.idleInterval": "1s",
	}
	for k, v := range options.Settings {
		settings[k] = v
	}

	configFile := filepath.Join(tmpDir, "config.yaml")
	writeConfigFile(t, configFile, settings)

	cfg, err := config.Load(config.WithConfigFile(configFile))
	require.NoError(t, err)

	store, err := filereminder.New(cfg.Paths.StoreFile, filereminder.WithLockRetry(10*time.Millisecond))
	require.NoError(t, err)

	helper := Helper{
		Context: context.Background(),
		Config:  cfg,
		Store:   store,
		tmpDir:  tmpDir,
	}

	if options.CaptureLoggingOutput {
		helper.LoggingOutput = &SyncBuffer{buf: new(bytes.Buffer)}
		helper.Context = logger.WithLogger(helper.Context, logger.NewLogger(
			logger.WithDebug(),
			logger.WithFormat("text"),
			logger.WithConsole(helper.LoggingOutput, helper.LoggingOutput),
		))
	}

	return helper
}

// TmpDir returns the home directory of the test.
func (h Helper) TmpDir() string {
	return h.tmpDir
}

// Reminders loads the store.
func (h Helper) Reminders(t *testing.T) *core.ReminderStore {
	t.Helper()

	st, err := h.Store.Load(h.Context)
	require.NoError(t, err)
	return st
}

// AddReminder inserts a reminder directly into the store.
func (h Helper) AddReminder(t *testing.T, content string, due core.DueSpec) *core.Reminder {
	t.Helper()

	var added *core.Reminder
	err := filereminder.Update(h.Context, h.Store, func(st *core.ReminderStore) error {
		added = st.Add(content, core.PriorityMedium, due, time.Now()).Clone()
		return nil
	})
	require.NoError(t, err)
	return added
}

// writeConfigFile expands dotted keys into nested YAML maps.
func writeConfigFile(t *testing.T, path string, settings map[string]any) {
	t.Helper()

	root := make(map[string]any)
	for key, value := range settings {
		parts := strings.Split(key, ".")
		node := root
		for _, p := range parts[:len(parts)-1] {
			child, ok := node[p].(map[string]any)
			if !ok {
				child = make(map[string]any)
				node[p] = child
			}
			node = child
		}
		node[parts[len(parts)-1]] = value
	}

	data, err := yaml.Marshal(root)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0600))
}

// SyncBuffer provides thread-safe buffer operations
type SyncBuffer struct {
	buf  *bytes.Buffer
	lock sync.Mutex
}

// NewSyncBuffer returns an empty buffer.
func NewSyncBuffer() *SyncBuffer {
	return &SyncBuffer{buf: new(bytes.Buffer)}
}

func (b *SyncBuffer) Write(p []byte) (n int, err error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.Write(p)
}

func (b *SyncBuffer) String() string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.buf.String()
}

// Reset clears the buffer.
func (b *SyncBuffer) Reset() {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.buf.Reset()
}
