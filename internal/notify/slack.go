package notify

import (
	"context"
	"errors"
	"net/http"

	"github.com/slack-go/slack"

	"github.com/remindcli/remind/internal/core"
)

// Slack posts to an incoming webhook.
type Slack struct {
	webhookURL string
	channel    string
	username   string
	client     *http.Client
}

func NewSlack(webhookURL, channel, username string) *Slack {
	return &Slack{
		webhookURL: webhookURL,
		channel:    channel,
		username:   username,
		client:     &http.Client{Timeout: defaultChatTimeout},
	}
}

func (s *Slack) Name() string { return "slack" }

func (s *Slack) Notify(ctx context.Context, r *core.Reminder) error {
	msg := Render(r)
	err := slack.PostWebhookCustomHTTPContext(ctx, s.webhookURL, s.client, &slack.WebhookMessage{
		Text:     "*" + msg.Title + "*\n" + msg.Body,
		Channel:  s.channel,
		Username: s.username,
	})
	if err == nil {
		return nil
	}

	var statusErr slack.StatusCodeError
	if errors.As(err, &statusErr) && statusErr.Code >= 400 && statusErr.Code < 500 && statusErr.Code != http.StatusTooManyRequests {
		return permanentErr(s.Name(), err)
	}
	return dispatchErr(s.Name(), err)
}
