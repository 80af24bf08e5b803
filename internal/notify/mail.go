package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/remindcli/remind/internal/core"
)

// MailConfig describes an SMTP relay.
type MailConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	To       []string
}

// Mail sends a plain-text email through SMTP. Without credentials the
// relay is used unauthenticated.
type Mail struct {
	cfg    MailConfig
	dialer net.Dialer
	now    func() time.Time
}

var headerReplacer = strings.NewReplacer("\r\n", "", "\r", "", "\n", "", "%0a", "", "%0d", "")

func NewMail(cfg MailConfig) *Mail {
	if cfg.Port == "" {
		cfg.Port = "25"
	}
	return &Mail{cfg: cfg, dialer: net.Dialer{Timeout: defaultChatTimeout}, now: time.Now}
}

func (m *Mail) Name() string { return "mail" }

func (m *Mail) Notify(ctx context.Context, r *core.Reminder) error {
	if len(m.cfg.To) == 0 {
		return permanentErr(m.Name(), errors.New("no recipients configured"))
	}
	if err := m.send(ctx, Render(r)); err != nil {
		return dispatchErr(m.Name(), err)
	}
	return nil
}

func (m *Mail) send(ctx context.Context, msg Message) error {
	conn, err := m.dialer.DialContext(ctx, "tcp", net.JoinHostPort(m.cfg.Host, m.cfg.Port))
	if err != nil {
		return err
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	// Unblock the session if ctx ends first.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	c, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return err
	}
	defer func() {
		_ = c.Close()
	}()

	if m.cfg.Username != "" || m.cfg.Password != "" {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: m.cfg.Host, MinVersion: tls.VersionTLS12}); err != nil {
				return err
			}
		}
		if err := c.Auth(smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)); err != nil {
			return err
		}
	}

	from := headerReplacer.Replace(m.cfg.From)
	if err := c.Mail(from); err != nil {
		return err
	}
	to := make([]string, len(m.cfg.To))
	for i, addr := range m.cfg.To {
		to[i] = headerReplacer.Replace(addr)
		if err := c.Rcpt(to[i]); err != nil {
			return fmt.Errorf("rcpt %s: %w", to[i], err)
		}
	}

	wc, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := wc.Write(m.compose(from, to, msg)); err != nil {
		return err
	}
	if err := wc.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func (m *Mail) compose(from string, to []string, msg Message) []byte {
	var b bytes.Buffer
	b.WriteString("To: " + strings.Join(to, ",") + "\r\n")
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("Subject: " + headerReplacer.Replace(msg.Title) + "\r\n")
	b.WriteString("Date: " + m.now().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	b.WriteString("Content-Transfer-Encoding: base64\r\n\r\n")

	enc := base64.StdEncoding.EncodeToString([]byte(msg.Body))
	for len(enc) > 76 {
		b.WriteString(enc[:76] + "\r\n")
		enc = enc[76:]
	}
	b.WriteString(enc + "\r\n")
	return b.Bytes()
}
