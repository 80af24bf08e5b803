package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/remindcli/remind/internal/build"
	"github.com/remindcli/remind/internal/core"
)

const defaultWebhookTimeout = 10 * time.Second

// Webhook posts a JSON Payload to a URL.
type Webhook struct {
	url    string
	client *resty.Client
	now    func() time.Time
}

func NewWebhook(url string, headers map[string]string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = defaultWebhookTimeout
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", build.Slug+"/"+build.Version)
	for k, v := range headers {
		client.SetHeader(k, v)
	}
	return &Webhook{url: url, client: client, now: time.Now}
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Notify(ctx context.Context, r *core.Reminder) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(newPayload(r, w.now())).
		Post(w.url)
	if err != nil {
		return dispatchErr(w.Name(), err)
	}
	if resp.IsError() {
		err := fmt.Errorf("unexpected status %s", resp.Status())
		code := resp.StatusCode()
		if code >= 400 && code < 500 && code != http.StatusTooManyRequests && code != http.StatusRequestTimeout {
			return permanentErr(w.Name(), err)
		}
		return dispatchErr(w.Name(), err)
	}
	return nil
}
