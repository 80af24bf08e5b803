package config

import (
	"errors"
	"fmt"
	"time"
)

// Config is the resolved application configuration.
type Config struct {
	Core      Core
	Paths     Paths
	Scheduler Scheduler
	Notify    Notify

	// Warnings collects non-fatal problems found while loading.
	Warnings []string
}

type Core struct {
	Debug     bool
	LogFormat string
	TZ        string
	Location  *time.Location
}

type Paths struct {
	ConfigFileUsed string
	DataDir        string
	StoreFile      string
	// LockDir holds the daemon singleton lock.
	LockDir string
	LogFile string
}

// Scheduler tunes the notification daemon.
type Scheduler struct {
	// IdleInterval bounds every sleep so the daemon re-reads the store at
	// least this often even without a pending deadline or a file event.
	IdleInterval time.Duration
	// RetryDelay is how soon a cycle whose dispatches all failed is retried.
	RetryDelay       time.Duration
	DispatchAttempts int
	DispatchTimeout  time.Duration
	BackoffInitial   time.Duration
	BackoffMax       time.Duration
	Concurrency      int
	// Port of the health endpoint. 0 disables it.
	Port               int
	Watch              bool
	LockStaleThreshold time.Duration
	LockRetryInterval  time.Duration
}

type Notify struct {
	Desktop  Desktop
	Log      bool
	Telegram Telegram
	Slack    Slack
	Webhook  Webhook
	Mail     Mail
}

type Desktop struct {
	Enabled bool
	Command string
	Urgency string
}

type Telegram struct {
	Enabled  bool
	Token    string
	ChatIDs  []int64
	Endpoint string
}

type Slack struct {
	Enabled    bool
	WebhookURL string
	Channel    string
	Username   string
}

type Webhook struct {
	Enabled bool
	URL     string
	Headers map[string]string
	Timeout time.Duration
}

type Mail struct {
	Enabled  bool
	Host     string
	Port     string
	Username string
	Password string
	From     string
	To       []string
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	var errs []error
	if c.Core.LogFormat != "text" && c.Core.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("invalid logFormat %q: must be text or json", c.Core.LogFormat))
	}
	if c.Paths.StoreFile == "" {
		errs = append(errs, errors.New("paths.storeFile must not be empty"))
	}
	if c.Scheduler.Port < 0 || c.Scheduler.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid scheduler.port %d", c.Scheduler.Port))
	}
	if c.Notify.Telegram.Enabled && (c.Notify.Telegram.Token == "" || len(c.Notify.Telegram.ChatIDs) == 0) {
		errs = append(errs, errors.New("notify.telegram requires token and chatIds"))
	}
	if c.Notify.Slack.Enabled && c.Notify.Slack.WebhookURL == "" {
		errs = append(errs, errors.New("notify.slack requires webhookUrl"))
	}
	if c.Notify.Webhook.Enabled && c.Notify.Webhook.URL == "" {
		errs = append(errs, errors.New("notify.webhook requires url"))
	}
	if c.Notify.Mail.Enabled && (c.Notify.Mail.Host == "" || c.Notify.Mail.From == "" || len(c.Notify.Mail.To) == 0) {
		errs = append(errs, errors.New("notify.mail requires host, from and to"))
	}
	return errors.Join(errs...)
}
