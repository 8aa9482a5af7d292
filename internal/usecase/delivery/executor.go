package delivery

import (
	"context"
	"log/slog"
	"time"

	"scheduled-mailer/internal/domain/email"
	"scheduled-mailer/internal/infra"
	"scheduled-mailer/internal/jobqueue"
	"scheduled-mailer/internal/pkg/clock"
	"scheduled-mailer/internal/pkg/errs"

	"github.com/google/uuid"
)

// EmailStore is what the executor needs from record persistence. MarkSent
// and MarkFailed only apply to records still SCHEDULED and report whether
// they changed anything.
type EmailStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*email.Email, error)
	MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time, messageID string) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, at time.Time, reason string) (bool, error)
}

type Config struct {
	From           string
	AttemptTimeout time.Duration
}

// Executor performs one delivery attempt per claimed job.
type Executor struct {
	store     EmailStore
	transport Transport
	clock     clock.Clock
	logger    *slog.Logger
	cfg       Config
}

var _ jobqueue.Handler = (*Executor)(nil)

func NewExecutor(store EmailStore, transport Transport, clk clock.Clock, logger *slog.Logger, cfg Config) *Executor {
	if cfg.AttemptTimeout <= 0 {
		cfg.AttemptTimeout = 30 * time.Second
	}
	return &Executor{
		store:     store,
		transport: transport,
		clock:     clk,
		logger:    logger.With(slog.String("component", "delivery")),
		cfg:       cfg,
	}
}

func (e *Executor) Attempt(ctx context.Context, job jobqueue.Job) error {
	log := e.logger.With(slog.String("email_id", job.ID.String()), slog.Int("attempt", job.Attempt+1))

	record, err := e.store.FindByID(ctx, job.ID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			log.InfoContext(ctx, "email no longer exists, skipping delivery")
			return nil
		}
		return errs.Wrap(err, "load email")
	}
	if record.Status() != email.StatusScheduled {
		log.InfoContext(ctx, "email already finalized, skipping delivery", slog.String("status", record.Status().String()))
		return nil
	}

	msg := Message{
		ID:      job.ID,
		From:    e.cfg.From,
		To:      job.Payload.Recipient,
		Subject: job.Payload.Subject,
		Body:    job.Payload.Body,
	}

	sendCtx, cancel := context.WithTimeout(ctx, e.cfg.AttemptTimeout)
	messageID, err := e.transport.Send(sendCtx, msg)
	cancel()
	if err != nil {
		return &TransportError{Transport: e.transport.Name(), Cause: err}
	}

	changed, err := e.store.MarkSent(ctx, job.ID, e.clock.Now(), messageID)
	if err != nil {
		// delivered but not recorded; a retry would send twice
		log.ErrorContext(ctx, "email sent but status update failed",
			slog.String("message_id", messageID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if changed {
		log.InfoContext(ctx, "email sent", slog.String("message_id", messageID), slog.String("transport", e.transport.Name()))
	}
	return nil
}

func (e *Executor) Exhausted(ctx context.Context, job jobqueue.Job, cause error) {
	reason := "delivery failed"
	if cause != nil {
		reason = cause.Error()
	}

	changed, err := e.store.MarkFailed(ctx, job.ID, e.clock.Now(), reason)
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to mark email as failed",
			slog.String("email_id", job.ID.String()),
			slog.String("error", err.Error()),
		)
		return
	}
	if changed {
		e.logger.WarnContext(ctx, "email marked as failed",
			slog.String("email_id", job.ID.String()),
			slog.Int("attempts", job.Attempt),
			slog.String("reason", reason),
		)
	}
}
