package jobqueue

import (
	"strings"
	"time"

	"scheduled-mailer/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	ErrInvalidJob       = errs.New("invalid job")
	ErrQueueUnavailable = errs.New("durable queue unavailable")
)

// Payload is immutable once the job is admitted.
type Payload struct {
	OwnerID   uuid.UUID `json:"owner_id"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
}

// Job is the queue-side unit of work. ID equals the id of the email record it
// delivers.
type Job struct {
	ID          uuid.UUID `json:"id"`
	Payload     Payload   `json:"payload"`
	NotBefore   time.Time `json:"not_before"`
	Attempt     int       `json:"attempt"`
	MaxAttempts int       `json:"max_attempts"`
	Seq         int64     `json:"seq"`
	LastError   string    `json:"last_error,omitempty"`
}

func (j Job) Validate() error {
	switch {
	case j.ID == uuid.Nil:
		return errs.Wrap(ErrInvalidJob, "missing id")
	case j.Payload.OwnerID == uuid.Nil:
		return errs.Wrap(ErrInvalidJob, "missing owner")
	case !strings.Contains(j.Payload.Recipient, "@"):
		return errs.Wrap(ErrInvalidJob, "malformed recipient")
	case strings.TrimSpace(j.Payload.Subject) == "":
		return errs.Wrap(ErrInvalidJob, "empty subject")
	case j.NotBefore.IsZero():
		return errs.Wrap(ErrInvalidJob, "missing not-before")
	case j.Attempt < 0 || j.MaxAttempts < 1:
		return errs.Wrap(ErrInvalidJob, "attempt counters out of range")
	}
	return nil
}

// Due reports whether the job may be dispatched at now.
func (j Job) Due(now time.Time) bool {
	return !j.NotBefore.After(now)
}
