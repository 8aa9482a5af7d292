package transport

import (
	"context"
	"log/slog"

	"scheduled-mailer/internal/usecase/delivery"

	"github.com/google/uuid"
)

// Log only logs messages. Meant for local development.
type Log struct {
	logger *slog.Logger
}

var _ delivery.Transport = (*Log)(nil)

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger.With(slog.String("component", "transport.log"))}
}

func (t *Log) Name() string { return "log" }

func (t *Log) Send(ctx context.Context, msg delivery.Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id := uuid.NewString()
	t.logger.InfoContext(ctx, "email delivered to log",
		slog.String("email_id", msg.ID.String()),
		slog.String("message_id", id),
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.Int("body_bytes", len(msg.Body)),
	)
	return id, nil
}
