package config

// Definition mirrors the YAML config file. Durations are strings parsed by
// the loader so a bad value becomes a warning instead of a hard failure.
type Definition struct {
	Debug     bool   `mapstructure:"debug"`
	LogFormat string `mapstructure:"logFormat"`
	// TZ is the IANA zone used to interpret due times typed on the command
	// line and recorded on new recurring reminders.
	TZ string `mapstructure:"tz"`

	Paths     *PathsDef     `mapstructure:"paths"`
	Scheduler *SchedulerDef `mapstructure:"scheduler"`
	Notify    *NotifyDef    `mapstructure:"notify"`
}

type PathsDef struct {
	DataDir   string `mapstructure:"dataDir"`
	StoreFile string `mapstructure:"storeFile"`
	LogFile   string `mapstructure:"logFile"`
}

type SchedulerDef struct {
	IdleInterval       string `mapstructure:"idleInterval"`
	RetryDelay         string `mapstructure:"retryDelay"`
	DispatchAttempts   int    `mapstructure:"dispatchAttempts"`
	DispatchTimeout    string `mapstructure:"dispatchTimeout"`
	BackoffInitial     string `mapstructure:"backoffInitial"`
	BackoffMax         string `mapstructure:"backoffMax"`
	Concurrency        int    `mapstructure:"concurrency"`
	Port               int    `mapstructure:"port"`
	Watch              *bool  `mapstructure:"watch"`
	LockStaleThreshold string `mapstructure:"lockStaleThreshold"`
	LockRetryInterval  string `mapstructure:"lockRetryInterval"`
}

type NotifyDef struct {
	Desktop  *DesktopDef  `mapstructure:"desktop"`
	Log      *LogDef      `mapstructure:"log"`
	Telegram *TelegramDef `mapstructure:"telegram"`
	Slack    *SlackDef    `mapstructure:"slack"`
	Webhook  *WebhookDef  `mapstructure:"webhook"`
	Mail     *MailDef     `mapstructure:"mail"`
}

type DesktopDef struct {
	Enabled *bool  `mapstructure:"enabled"`
	Command string `mapstructure:"command"`
	Urgency string `mapstructure:"urgency"`
}

type LogDef struct {
	Enabled bool `mapstructure:"enabled"`
}

type TelegramDef struct {
	Enabled  bool    `mapstructure:"enabled"`
	Token    string  `mapstructure:"token"`
	ChatIDs  []int64 `mapstructure:"chatIds"`
	Endpoint string  `mapstructure:"endpoint"`
}

type SlackDef struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhookUrl"`
	Channel    string `mapstructure:"channel"`
	Username   string `mapstructure:"username"`
}

type WebhookDef struct {
	Enabled bool              `mapstructure:"enabled"`
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
	Timeout string            `mapstructure:"timeout"`
}

type MailDef struct {
	Enabled  bool     `mapstructure:"enabled"`
	Host     string   `mapstructure:"host"`
	Port     string   `mapstructure:"port"`
	Username string   `mapstructure:"username"`
	Password string   `mapstructure:"password"`
	From     string   `mapstructure:"from"`
	To       []string `mapstructure:"to"`
}
