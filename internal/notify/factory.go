package notify

import (
	"github.com/remindcli/remind/internal/cmn/config"
)

// FromConfig builds the notifier for the enabled channels. With nothing
// enabled notifications go to the log.
func FromConfig(cfg config.Notify) Notifier {
	var ns []Notifier
	if cfg.Desktop.Enabled {
		ns = append(ns, NewDesktop(WithCommand(cfg.Desktop.Command), WithUrgency(cfg.Desktop.Urgency)))
	}
	if cfg.Telegram.Enabled {
		ns = append(ns, NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatIDs, cfg.Telegram.Endpoint))
	}
	if cfg.Slack.Enabled {
		ns = append(ns, NewSlack(cfg.Slack.WebhookURL, cfg.Slack.Channel, cfg.Slack.Username))
	}
	if cfg.Webhook.Enabled {
		ns = append(ns, NewWebhook(cfg.Webhook.URL, cfg.Webhook.Headers, cfg.Webhook.Timeout))
	}
	if cfg.Mail.Enabled {
		ns = append(ns, NewMail(MailConfig{
			Host:     cfg.Mail.Host,
			Port:     cfg.Mail.Port,
			Username: cfg.Mail.Username,
			Password: cfg.Mail.Password,
			From:     cfg.Mail.From,
			To:       cfg.Mail.To,
		}))
	}
	if cfg.Log || len(ns) == 0 {
		ns = append(ns, Log{})
	}

	if len(ns) == 1 {
		return ns[0]
	}
	return NewMulti(ns...)
}
