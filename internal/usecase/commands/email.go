package commands

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

var ErrEmailNotFound = errs.New("email not found")

const (
	WarningRecordNotDurable = "email stored in memory only and will be lost on restart"
	WarningQueueNotDurable  = "delivery queue unavailable; job held in memory and will be lost on restart"
)

type ScheduleInput struct {
	Recipient   string
	Subject     string
	Body        string
	ScheduledAt string
}

type ScheduleResult struct {
	Email    *email.Email
	Durable  bool
	Warnings []string
}

type EmailCommands interface {
	Schedule(ctx context.Context, ownerID uuid.UUID, in ScheduleInput) (*ScheduleResult, error)
	Cancel(ctx context.Context, ownerID, id uuid.UUID) error
	SendNow(ctx context.Context, ownerID, id uuid.UUID) (*email.Email, error)
	Reconcile(ctx context.Context) (int, error)
}

type emailCommandsImpl struct {
	repo        EmailRepository
	queue       JobQueue
	clock       clock.Clock
	maxAttempts int
	logger      *slog.Logger
}

func NewEmailCommands(repo EmailRepository, queue JobQueue, clk clock.Clock, policy jobqueue.RetryPolicy, logger *slog.Logger) EmailCommands {
	return &emailCommandsImpl{
		repo:        repo,
		queue:       queue,
		clock:       clk,
		maxAttempts: policy.MaxAttempts,
		logger:      logger.With(slog.String("component", "scheduler")),
	}
}

func (c *emailCommandsImpl) Schedule(ctx context.Context, ownerID uuid.UUID, in ScheduleInput) (*ScheduleResult, error) {
	now := c.clock.Now()

	scheduledAt, err := email.ParseSchedule(in.ScheduledAt, now)
	if err != nil {
		return nil, err
	}

	record, err := email.NewEmail(uuid.Nil, ownerID, in.Recipient, in.Subject, in.Body, scheduledAt, now)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrDomainValidation)
	}

	durable, err := c.repo.Create(ctx, record)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}

	result := &ScheduleResult{Email: record, Durable: durable}
	if !durable {
		result.Warnings = append(result.Warnings, WarningRecordNotDurable)
	}

	delay := email.DelayUntil(scheduledAt, now)
	admission, err := c.queue.Admit(ctx, c.jobFor(record, now.Add(delay)))
	if err != nil {
		// the record stays SCHEDULED and is picked up by the next reconcile pass
		return nil, errs.Wrap(err, "admit delivery job")
	}
	if admission.Degraded || !admission.Durable {
		result.Durable = false
		result.Warnings = append(result.Warnings, WarningQueueNotDurable)
	}

	c.logger.InfoContext(ctx, "email scheduled",
		slog.String("email_id", record.ID().String()),
		slog.Time("scheduled_at", scheduledAt),
		slog.Duration("delay", delay),
		slog.String("store", admission.Store),
		slog.Bool("durable", result.Durable),
	)
	return result, nil
}

func (c *emailCommandsImpl) Cancel(ctx context.Context, ownerID, id uuid.UUID) error {
	record, err := c.findOwned(ctx, ownerID, id)
	if err != nil {
		return err
	}

	if _, err := c.queue.Remove(ctx, record.ID()); err != nil {
		return errs.Wrap(err, "revoke delivery job")
	}

	deleted, err := c.repo.Delete(ctx, ownerID, id)
	if err != nil {
		return errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if !deleted {
		return ErrEmailNotFound
	}

	c.logger.InfoContext(ctx, "email cancelled", slog.String("email_id", id.String()))
	return nil
}

func (c *emailCommandsImpl) SendNow(ctx context.Context, ownerID, id uuid.UUID) (*email.Email, error) {
	record, err := c.findOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if record.Status() != email.StatusScheduled {
		return record, nil
	}

	admission, err := c.queue.Admit(ctx, c.jobFor(record, c.clock.Now()))
	if err != nil {
		return nil, errs.Wrap(err, "admit immediate delivery job")
	}

	c.logger.InfoContext(ctx, "immediate delivery requested",
		slog.String("email_id", id.String()),
		slog.Bool("durable", admission.Durable),
	)
	return record, nil
}

// Reconcile re-admits SCHEDULED records that have no queue entry, e.g. after
// a crash between persisting a record and admitting its job, or after jobs
// held by the in-memory fallback were lost.
func (c *emailCommandsImpl) Reconcile(ctx context.Context) (int, error) {
	records, listErr := c.repo.ListScheduled(ctx)
	if listErr != nil {
		listErr = errs.Mark(listErr, errs.ErrDatabaseOperationFailed)
		if len(records) == 0 {
			return 0, listErr
		}
	}

	now := c.clock.Now()
	readmitted := 0
	for _, record := range records {
		exists, err := c.queue.Exists(ctx, record.ID())
		if err != nil {
			return readmitted, errs.Wrap(err, "check queue entry")
		}
		if exists {
			continue
		}

		notBefore := now.Add(email.DelayUntil(record.ScheduledAt(), now))
		if _, err := c.queue.Admit(ctx, c.jobFor(record, notBefore)); err != nil {
			c.logger.ErrorContext(ctx, "failed to re-admit orphaned email",
				slog.String("email_id", record.ID().String()),
				slog.String("error", err.Error()),
			)
			continue
		}
		readmitted++
	}

	if readmitted > 0 {
		c.logger.WarnContext(ctx, "re-admitted orphaned scheduled emails", slog.Int("count", readmitted))
	}
	return readmitted, listErr
}

func (c *emailCommandsImpl) findOwned(ctx context.Context, ownerID, id uuid.UUID) (*email.Email, error) {
	record, err := c.repo.FindByID(ctx, id)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrEmailNotFound
		}
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	// other owners' records are indistinguishable from missing ones
	if !record.IsOwnedBy(ownerID) {
		return nil, ErrEmailNotFound
	}
	return record, nil
}

func (c *emailCommandsImpl) jobFor(record *email.Email, notBefore time.Time) jobqueue.Job {
	return jobqueue.Job{
		ID: record.ID(),
		Payload: jobqueue.Payload{
			OwnerID:   record.OwnerID(),
			Recipient: record.Recipient().String(),
			Subject:   record.Subject().String(),
			Body:      record.Body(),
		},
		NotBefore:   notBefore,
		MaxAttempts: c.maxAttempts,
	}
}
