package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/remindcli/remind/internal/cmn/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	home := t.TempDir()

	cfg, err := config.Load(config.WithAppHomeDir(home))
	require.NoError(t, err)

	assert.Equal(t, "text", cfg.Core.LogFormat)
	assert.Equal(t, home, cfg.Paths.DataDir)
	assert.Equal(t, filepath.Join(home, "reminders.json"), cfg.Paths.StoreFile)
	assert.Equal(t, filepath.Join(home, "scheduler", "locks"), cfg.Paths.LockDir)
	assert.Empty(t, cfg.Paths.ConfigFileUsed)

	s := cfg.Scheduler
	assert.Equal(t, time.Minute, s.IdleInterval)
	assert.Equal(t, time.Minute, s.RetryDelay)
	assert.Equal(t, 3, s.DispatchAttempts)
	assert.Equal(t, 4, s.Concurrency)
	assert.Equal(t, 0, s.Port)
	assert.True(t, s.Watch)
	assert.Equal(t, 30*time.Second, s.LockStaleThreshold)

	assert.True(t, cfg.Notify.Desktop.Enabled)
	assert.False(t, cfg.Notify.Telegram.Enabled)
	assert.NotNil(t, cfg.Core.Location)
}

func TestLoad_ConfigFile(t *testing.T) {
	home := t.TempDir()
	path := writeConfig(t, home, `
tz: Asia/Tokyo
logFormat: json
paths:
  storeFile: `+filepath.Join(home, "custom.json")+`
scheduler:
  idleInterval: 5m
  dispatchAttempts: 5
  watch: false
  port: 8099
notify:
  desktop:
    enabled: false
  log:
    enabled: true
  slack:
    enabled: true
    webhookUrl: https://hooks.slack.example/T000
  telegram:
    enabled: true
    token: abc
    chatIds: [1, 2]
`)

	cfg, err := config.Load(config.WithAppHomeDir(home), config.WithConfigFile(path))
	require.NoError(t, err)

	assert.Equal(t, path, cfg.Paths.ConfigFileUsed)
	assert.Equal(t, "Asia/Tokyo", cfg.Core.TZ)
	assert.Equal(t, "Asia/Tokyo", cfg.Core.Location.String())
	assert.Equal(t, "json", cfg.Core.LogFormat)
	assert.Equal(t, filepath.Join(home, "custom.json"), cfg.Paths.StoreFile)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.IdleInterval)
	assert.Equal(t, 5, cfg.Scheduler.DispatchAttempts)
	assert.False(t, cfg.Scheduler.Watch)
	assert.Equal(t, 8099, cfg.Scheduler.Port)
	assert.False(t, cfg.Notify.Desktop.Enabled)
	assert.True(t, cfg.Notify.Log)
	assert.Equal(t, "https://hooks.slack.example/T000", cfg.Notify.Slack.WebhookURL)
	assert.Equal(t, []int64{1, 2}, cfg.Notify.Telegram.ChatIDs)
}

func TestLoad_EnvOverrides(t *testing.T) {
	home := t.TempDir()
	t.Setenv("REMIND_TZ", "Europe/Berlin")
	t.Setenv("REMIND_SCHEDULER_PORT", "9123")
	t.Setenv("REMIND_STORE_FILE", filepath.Join(home, "env.json"))

	cfg, err := config.Load(config.WithAppHomeDir(home))
	require.NoError(t, err)

	assert.Equal(t, "Europe/Berlin", cfg.Core.TZ)
	assert.Equal(t, 9123, cfg.Scheduler.Port)
	assert.Equal(t, filepath.Join(home, "env.json"), cfg.Paths.StoreFile)
}

func TestLoad_InvalidDurationWarns(t *testing.T) {
	home := t.TempDir()
	path := writeConfig(t, home, "scheduler:\n  retryDelay: soon\n")

	cfg, err := config.Load(config.WithAppHomeDir(home), config.WithConfigFile(path))
	require.NoError(t, err)
	assert.Equal(t, time.Minute, cfg.Scheduler.RetryDelay)
	require.Len(t, cfg.Warnings, 1)
	assert.Contains(t, cfg.Warnings[0], "scheduler.retryDelay")
}

func TestLoad_Errors(t *testing.T) {
	t.Run("UnknownTimezone", func(t *testing.T) {
		home := t.TempDir()
		path := writeConfig(t, home, "tz: Mars/Olympus\n")
		_, err := config.Load(config.WithAppHomeDir(home), config.WithConfigFile(path))
		assert.ErrorContains(t, err, "timezone")
	})

	t.Run("IncompleteSlack", func(t *testing.T) {
		home := t.TempDir()
		path := writeConfig(t, home, "notify:\n  slack:\n    enabled: true\n")
		_, err := config.Load(config.WithAppHomeDir(home), config.WithConfigFile(path))
		assert.ErrorContains(t, err, "webhookUrl")
	})

	t.Run("BadLogFormat", func(t *testing.T) {
		home := t.TempDir()
		path := writeConfig(t, home, "logFormat: xml\n")
		_, err := config.Load(config.WithAppHomeDir(home), config.WithConfigFile(path))
		assert.ErrorContains(t, err, "logFormat")
	})

	t.Run("MissingExplicitFile", func(t *testing.T) {
		home := t.TempDir()
		_, err := config.Load(config.WithAppHomeDir(home), config.WithConfigFile(filepath.Join(home, "nope.yaml")))
		assert.Error(t, err)
	})
}
