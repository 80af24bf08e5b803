package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/remindcli/remind/internal/build"
	"github.com/remindcli/remind/internal/cmn/fileutil"
	"github.com/spf13/viper"
)

// ConfigLoader reads the config file, environment and defaults into a Config.
type ConfigLoader struct {
	v          *viper.Viper
	configFile string
	appHomeDir string
	warnings   []string
}

// ConfigLoaderOption configures a ConfigLoader.
type ConfigLoaderOption func(*ConfigLoader)

// WithConfigFile reads configuration from an explicit file instead of the
// default location.
func WithConfigFile(configFile string) ConfigLoaderOption {
	return func(l *ConfigLoader) {
		l.configFile = configFile
	}
}

// WithAppHomeDir keeps config and data under a single directory. It has
// the same effect as REMIND_HOME.
func WithAppHomeDir(dir string) ConfigLoaderOption {
	return func(l *ConfigLoader) {
		l.appHomeDir = dir
	}
}

// NewConfigLoader creates a loader bound to v. Command-line flags bound to
// v take precedence over the file and environment.
func NewConfigLoader(v *viper.Viper, options ...ConfigLoaderOption) *ConfigLoader {
	l := &ConfigLoader{v: v}
	for _, opt := range options {
		opt(l)
	}
	return l
}

// Load is a shortcut for NewConfigLoader(viper.New(), opts...).Load().
func Load(opts ...ConfigLoaderOption) (*Config, error) {
	return NewConfigLoader(viper.New(), opts...).Load()
}

// Load reads the configuration, applies defaults and environment
// overrides, and returns a validated Config.
func (l *ConfigLoader) Load() (*Config, error) {
	configDir, dataDir := l.baseDirs()

	l.configureViper(configDir)
	l.bindEnvironmentVariables()
	l.setDefaultValues(dataDir)

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var def Definition
	if err := l.v.Unmarshal(&def); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg, err := l.buildConfig(def)
	if err != nil {
		return nil, err
	}
	cfg.Paths.ConfigFileUsed = l.v.ConfigFileUsed()
	cfg.Warnings = l.warnings
	return cfg, nil
}

// baseDirs returns the config and data directories before any overrides
// from the file itself.
func (l *ConfigLoader) baseDirs() (string, string) {
	home := l.appHomeDir
	if home == "" {
		home = os.Getenv(envPrefix() + "HOME")
	}
	if home != "" {
		home = fileutil.ResolvePathOrBlank(home)
		return home, home
	}
	return filepath.Join(xdg.ConfigHome, build.Slug), filepath.Join(xdg.DataHome, build.Slug)
}

func (l *ConfigLoader) configureViper(configDir string) {
	if l.configFile == "" {
		l.v.AddConfigPath(configDir)
		l.v.SetConfigName("config")
	} else {
		l.v.SetConfigFile(l.configFile)
	}
	l.v.SetConfigType("yaml")
	l.v.SetEnvPrefix(strings.TrimSuffix(envPrefix(), "_"))
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	l.v.AutomaticEnv()
}

func envPrefix() string {
	return strings.ToUpper(build.Slug) + "_"
}

// envBindings lists keys whose environment name does not follow from the
// key alone (AutomaticEnv cannot see keys absent from file and defaults).
var envBindings = []struct {
	key string
	env string
}{
	{"tz", "TZ"},
	{"debug", "DEBUG"},
	{"logFormat", "LOG_FORMAT"},
	{"paths.dataDir", "DATA_DIR"},
	{"paths.storeFile", "STORE_FILE"},
	{"paths.logFile", "LOG_FILE"},
	{"scheduler.port", "SCHEDULER_PORT"},
	{"notify.telegram.enabled", "TELEGRAM_ENABLED"},
	{"notify.telegram.token", "TELEGRAM_TOKEN"},
	{"notify.telegram.chatIds", "TELEGRAM_CHAT_IDS"},
	{"notify.slack.enabled", "SLACK_ENABLED"},
	{"notify.slack.webhookUrl", "SLACK_WEBHOOK_URL"},
	{"notify.webhook.enabled", "WEBHOOK_ENABLED"},
	{"notify.webhook.url", "WEBHOOK_URL"},
	{"notify.mail.password", "MAIL_PASSWORD"},
}

func (l *ConfigLoader) bindEnvironmentVariables() {
	prefix := envPrefix()
	for _, b := range envBindings {
		_ = l.v.BindEnv(b.key, prefix+b.env)
	}
}

func (l *ConfigLoader) setDefaultValues(dataDir string) {
	l.v.SetDefault("debug", false)
	l.v.SetDefault("logFormat", "text")
	l.v.SetDefault("tz", "")

	l.v.SetDefault("paths.dataDir", dataDir)
	l.v.SetDefault("paths.storeFile", "")
	l.v.SetDefault("paths.logFile", "")

	l.v.SetDefault("scheduler.idleInterval", "1m")
	l.v.SetDefault("scheduler.retryDelay", "1m")
	l.v.SetDefault("scheduler.dispatchAttempts", 3)
	l.v.SetDefault("scheduler.dispatchTimeout", "30s")
	l.v.SetDefault("scheduler.backoffInitial", "2s")
	l.v.SetDefault("scheduler.backoffMax", "30s")
	l.v.SetDefault("scheduler.concurrency", 4)
	l.v.SetDefault("scheduler.port", 0)
	l.v.SetDefault("scheduler.watch", true)
	l.v.SetDefault("scheduler.lockStaleThreshold", "30s")
	l.v.SetDefault("scheduler.lockRetryInterval", "5s")

	l.v.SetDefault("notify.desktop.enabled", true)
	l.v.SetDefault("notify.log.enabled", false)
	l.v.SetDefault("notify.mail.port", "587")
	l.v.SetDefault("notify.webhook.timeout", "10s")
}

func (l *ConfigLoader) buildConfig(def Definition) (*Config, error) {
	cfg := &Config{
		Core: Core{
			Debug:     def.Debug,
			LogFormat: strings.ToLower(def.LogFormat),
			TZ:        def.TZ,
		},
	}
	if err := setTimezone(&cfg.Core); err != nil {
		return nil, err
	}
	if err := l.loadPathsConfig(cfg, def); err != nil {
		return nil, err
	}
	l.loadSchedulerConfig(cfg, def)
	l.loadNotifyConfig(cfg, def)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *ConfigLoader) loadPathsConfig(cfg *Config, def Definition) error {
	var p PathsDef
	if def.Paths != nil {
		p = *def.Paths
	}

	dataDir, err := fileutil.ResolvePath(p.DataDir)
	if err != nil {
		return fmt.Errorf("paths.dataDir: %w", err)
	}
	cfg.Paths.DataDir = dataDir

	storeFile := p.StoreFile
	if storeFile == "" {
		storeFile = filepath.Join(dataDir, "reminders.json")
	}
	if cfg.Paths.StoreFile, err = fileutil.ResolvePath(storeFile); err != nil {
		return fmt.Errorf("paths.storeFile: %w", err)
	}
	if cfg.Paths.LogFile, err = fileutil.ResolvePath(p.LogFile); err != nil {
		return fmt.Errorf("paths.logFile: %w", err)
	}
	cfg.Paths.LockDir = filepath.Join(dataDir, "scheduler", "locks")
	return nil
}

func (l *ConfigLoader) loadSchedulerConfig(cfg *Config, def Definition) {
	var s SchedulerDef
	if def.Scheduler != nil {
		s = *def.Scheduler
	}

	cfg.Scheduler = Scheduler{
		IdleInterval:       l.parseDuration("scheduler.idleInterval", s.IdleInterval, time.Minute),
		RetryDelay:         l.parseDuration("scheduler.retryDelay", s.RetryDelay, time.Minute),
		DispatchAttempts:   s.DispatchAttempts,
		DispatchTimeout:    l.parseDuration("scheduler.dispatchTimeout", s.DispatchTimeout, 30*time.Second),
		BackoffInitial:     l.parseDuration("scheduler.backoffInitial", s.BackoffInitial, 2*time.Second),
		BackoffMax:         l.parseDuration("scheduler.backoffMax", s.BackoffMax, 30*time.Second),
		Concurrency:        s.Concurrency,
		Port:               s.Port,
		Watch:              s.Watch == nil || *s.Watch,
		LockStaleThreshold: l.parseDuration("scheduler.lockStaleThreshold", s.LockStaleThreshold, 30*time.Second),
		LockRetryInterval:  l.parseDuration("scheduler.lockRetryInterval", s.LockRetryInterval, 5*time.Second),
	}
	if cfg.Scheduler.DispatchAttempts <= 0 {
		cfg.Scheduler.DispatchAttempts = 1
	}
	if cfg.Scheduler.Concurrency <= 0 {
		cfg.Scheduler.Concurrency = 1
	}
}

func (l *ConfigLoader) loadNotifyConfig(cfg *Config, def Definition) {
	n := def.Notify
	if n == nil {
		n = &NotifyDef{}
	}

	cfg.Notify.Desktop.Enabled = true
	if d := n.Desktop; d != nil {
		if d.Enabled != nil {
			cfg.Notify.Desktop.Enabled = *d.Enabled
		}
		cfg.Notify.Desktop.Command = d.Command
		cfg.Notify.Desktop.Urgency = d.Urgency
	}
	if n.Log != nil {
		cfg.Notify.Log = n.Log.Enabled
	}
	if t := n.Telegram; t != nil {
		cfg.Notify.Telegram = Telegram{Enabled: t.Enabled, Token: t.Token, ChatIDs: t.ChatIDs, Endpoint: t.Endpoint}
	}
	if s := n.Slack; s != nil {
		cfg.Notify.Slack = Slack{Enabled: s.Enabled, WebhookURL: s.WebhookURL, Channel: s.Channel, Username: s.Username}
	}
	if w := n.Webhook; w != nil {
		cfg.Notify.Webhook = Webhook{
			Enabled: w.Enabled,
			URL:     w.URL,
			Headers: w.Headers,
			Timeout: l.parseDuration("notify.webhook.timeout", w.Timeout, 10*time.Second),
		}
	}
	if m := n.Mail; m != nil {
		cfg.Notify.Mail = Mail{
			Enabled:  m.Enabled,
			Host:     m.Host,
			Port:     m.Port,
			Username: m.Username,
			Password: m.Password,
			From:     m.From,
			To:       m.To,
		}
	}
}

// parseDuration returns fallback for empty or invalid values; invalid
// values are also recorded as warnings.
func (l *ConfigLoader) parseDuration(field, value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		l.warnings = append(l.warnings, fmt.Sprintf("Invalid %s value: %s", field, value))
		return fallback
	}
	return d
}
