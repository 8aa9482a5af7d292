package commands

import (
	"context"

	"scheduled-mailer/internal/domain/email"
	"scheduled-mailer/internal/jobqueue"

	"github.com/google/uuid"
)

// EmailRepository is the write side of record persistence. Create reports
// whether the record reached durable storage.
type EmailRepository interface {
	Create(ctx context.Context, e *email.Email) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*email.Email, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) (bool, error)
	ListScheduled(ctx context.Context) ([]*email.Email, error)
}

// JobQueue is satisfied by *jobqueue.Queue.
type JobQueue interface {
	Admit(ctx context.Context, job jobqueue.Job) (jobqueue.Admission, error)
	Remove(ctx context.Context, id uuid.UUID) (bool, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}
