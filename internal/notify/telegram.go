package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/remindcli/remind/internal/core"
)

const defaultChatTimeout = 15 * time.Second

// Telegram sends a message to each configured chat through a bot.
type Telegram struct {
	token    string
	chatIDs  []int64
	endpoint string
	client   *http.Client

	mu  sync.Mutex
	bot *tgbotapi.BotAPI
}

func NewTelegram(token string, chatIDs []int64, endpoint string) *Telegram {
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	return &Telegram{
		token:    token,
		chatIDs:  chatIDs,
		endpoint: endpoint,
		client:   &http.Client{Timeout: defaultChatTimeout},
	}
}

func (t *Telegram) Name() string { return "telegram" }

// botAPI connects on first use. A failed connection is retried on the
// next notification.
func (t *Telegram) botAPI() (*tgbotapi.BotAPI, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.bot != nil {
		return t.bot, nil
	}
	bot, err := tgbotapi.NewBotAPIWithClient(t.token, t.endpoint, t.client)
	if err != nil {
		return nil, err
	}
	t.bot = bot
	return bot, nil
}

func (t *Telegram) Notify(ctx context.Context, r *core.Reminder) error {
	if len(t.chatIDs) == 0 {
		return permanentErr(t.Name(), errors.New("no chat ids configured"))
	}
	if err := ctx.Err(); err != nil {
		return dispatchErr(t.Name(), err)
	}

	bot, err := t.botAPI()
	if err != nil {
		return t.classify(err)
	}

	msg := Render(r)
	var errs []error
	for _, chatID := range t.chatIDs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if _, err := bot.Send(tgbotapi.NewMessage(chatID, msg.Title+"\n"+msg.Body)); err != nil {
			errs = append(errs, fmt.Errorf("chat %d: %w", chatID, err))
		}
	}
	if len(errs) > 0 {
		return t.classify(errors.Join(errs...))
	}
	return nil
}

// classify marks authorization and bad-request responses as permanent.
func (t *Telegram) classify(err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return permanentErr(t.Name(), err)
		}
	}
	return dispatchErr(t.Name(), err)
}
