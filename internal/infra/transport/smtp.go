package transport

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"scheduled-mailer/internal/pkg/errs"
	"scheduled-mailer/internal/usecase/delivery"

	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	SSL      bool
	From     string
}

// SMTP delivers through a relay using gomail, one connection per message.
type SMTP struct {
	dialer *gomail.Dialer
	from   string
	signer *DKIMSigner
	logger *slog.Logger
}

var _ delivery.Transport = (*SMTP)(nil)

func NewSMTP(cfg SMTPConfig, signer *DKIMSigner, logger *slog.Logger) *SMTP {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password)
	dialer.SSL = cfg.SSL

	return &SMTP{
		dialer: dialer,
		from:   cfg.From,
		signer: signer,
		logger: logger.With(slog.String("component", "transport.smtp")),
	}
}

func (t *SMTP) Name() string { return "smtp" }

func (t *SMTP) Send(ctx context.Context, msg delivery.Message) (string, error) {
	from := msg.From
	if from == "" {
		from = t.from
	}
	messageID := t.messageID(msg, from)

	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-ID", messageID)
	m.SetDateHeader("Date", time.Now())
	m.SetBody("text/plain", msg.Body)

	// gomail has no context support; the dial runs aside and is abandoned
	// when ctx ends
	done := make(chan error, 1)
	go func() { done <- t.deliver(m, from, msg.To) }()

	select {
	case err := <-done:
		if err != nil {
			return "", err
		}
		return messageID, nil
	case <-ctx.Done():
		return "", errs.Wrap(ctx.Err(), "smtp send")
	}
}

func (t *SMTP) deliver(m *gomail.Message, from, to string) error {
	if t.signer == nil {
		return t.dialer.DialAndSend(m)
	}

	var raw bytes.Buffer
	if _, err := m.WriteTo(&raw); err != nil {
		return errs.Wrap(err, "render message")
	}
	signed, err := t.signer.Sign(raw.Bytes())
	if err != nil {
		return err
	}

	sender, err := t.dialer.Dial()
	if err != nil {
		return errs.Wrap(err, "smtp dial")
	}
	defer sender.Close()

	return sender.Send(from, []string{to}, bytes.NewBuffer(signed))
}

func (t *SMTP) messageID(msg delivery.Message, from string) string {
	domain := "localhost"
	if at := strings.LastIndex(from, "@"); at >= 0 && at < len(from)-1 {
		domain = strings.Trim(from[at+1:], "> ")
	}
	return fmt.Sprintf("<%s@%s>", msg.ID, domain)
}
