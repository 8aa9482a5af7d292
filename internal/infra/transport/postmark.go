package transport

import (
	"context"
	"fmt"
	"log/slog"

	"scheduled-mailer/internal/pkg/errs"
	"scheduled-mailer/internal/usecase/delivery"

	"github.com/mrz1836/postmark"
)

type PostmarkConfig struct {
	ServerToken  string
	AccountToken string
	Stream       string
	From         string
}

type Postmark struct {
	client *postmark.Client
	cfg    PostmarkConfig
	logger *slog.Logger
}

var _ delivery.Transport = (*Postmark)(nil)

func NewPostmark(cfg PostmarkConfig, logger *slog.Logger) (*Postmark, error) {
	if cfg.ServerToken == "" {
		return nil, errs.New("postmark: POSTMARK_SERVER_TOKEN is required")
	}
	if cfg.From == "" {
		return nil, errs.New("postmark: MAIL_FROM is required")
	}
	return &Postmark{
		client: postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		cfg:    cfg,
		logger: logger.With(slog.String("component", "transport.postmark")),
	}, nil
}

func (t *Postmark) Name() string { return "postmark" }

func (t *Postmark) Send(ctx context.Context, msg delivery.Message) (string, error) {
	from := msg.From
	if from == "" {
		from = t.cfg.From
	}

	resp, err := t.client.SendEmail(ctx, postmark.Email{
		From:          from,
		To:            msg.To,
		Subject:       msg.Subject,
		TextBody:      msg.Body,
		MessageStream: t.cfg.Stream,
		Metadata:      map[string]string{"email_id": msg.ID.String()},
	})
	if err != nil {
		return "", errs.Wrap(err, "postmark send")
	}
	if resp.ErrorCode > 0 {
		return "", fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message)
	}
	return resp.MessageID, nil
}
