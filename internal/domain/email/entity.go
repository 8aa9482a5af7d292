package email

import (
	"time"

	"github.com/google/uuid"
)

type Email struct {
	id          uuid.UUID
	ownerID     uuid.UUID
	recipient   Recipient
	subject     Subject
	body        string
	status      Status
	scheduledAt time.Time
	sentAt      *time.Time
	messageID   string
	lastError   string
	createdAt   time.Time
	updatedAt   time.Time
}

func NewEmail(id, ownerID uuid.UUID, recipient, subject, body string, scheduledAt, now time.Time) (*Email, error) {
	rcpt, err := NewRecipient(recipient)
	if err != nil {
		return nil, err
	}

	subj, err := NewSubject(subject)
	if err != nil {
		return nil, err
	}

	if id == uuid.Nil {
		id = uuid.New()
	}

	return &Email{
		id:          id,
		ownerID:     ownerID,
		recipient:   rcpt,
		subject:     subj,
		body:        body,
		status:      StatusScheduled,
		scheduledAt: scheduledAt.UTC(),
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// Snapshot is the flat persisted form of an Email.
type Snapshot struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Recipient   string
	Subject     string
	Body        string
	Status      string
	ScheduledAt time.Time
	SentAt      *time.Time
	MessageID   string
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Reconstruct rebuilds an Email loaded from storage without re-running
// creation rules such as recipient parsing.
func Reconstruct(s Snapshot) (*Email, error) {
	status, err := NewStatus(s.Status)
	if err != nil {
		return nil, err
	}
	return &Email{
		id:          s.ID,
		ownerID:     s.OwnerID,
		recipient:   Recipient{address: s.Recipient},
		subject:     Subject{text: s.Subject},
		body:        s.Body,
		status:      status,
		scheduledAt: s.ScheduledAt,
		sentAt:      s.SentAt,
		messageID:   s.MessageID,
		lastError:   s.LastError,
		createdAt:   s.CreatedAt,
		updatedAt:   s.UpdatedAt,
	}, nil
}

func (e *Email) Snapshot() Snapshot {
	return Snapshot{
		ID:          e.id,
		OwnerID:     e.ownerID,
		Recipient:   e.recipient.String(),
		Subject:     e.subject.String(),
		Body:        e.body,
		Status:      e.status.String(),
		ScheduledAt: e.scheduledAt,
		SentAt:      e.sentAt,
		MessageID:   e.messageID,
		LastError:   e.lastError,
		CreatedAt:   e.createdAt,
		UpdatedAt:   e.updatedAt,
	}
}

func (e *Email) MarkSent(now time.Time, messageID string) error {
	if !e.status.CanTransitionTo(StatusSent) {
		return ErrTerminalStatus
	}
	sentAt := now
	e.status = StatusSent
	e.sentAt = &sentAt
	e.messageID = messageID
	e.lastError = ""
	e.updatedAt = now
	return nil
}

func (e *Email) MarkFailed(now time.Time, reason string) error {
	if !e.status.CanTransitionTo(StatusFailed) {
		return ErrTerminalStatus
	}
	e.status = StatusFailed
	e.lastError = reason
	e.updatedAt = now
	return nil
}

func (e *Email) ID() uuid.UUID          { return e.id }
func (e *Email) OwnerID() uuid.UUID     { return e.ownerID }
func (e *Email) Recipient() Recipient   { return e.recipient }
func (e *Email) Subject() Subject       { return e.subject }
func (e *Email) Body() string           { return e.body }
func (e *Email) Status() Status         { return e.status }
func (e *Email) ScheduledAt() time.Time { return e.scheduledAt }
func (e *Email) SentAt() *time.Time     { return e.sentAt }
func (e *Email) MessageID() string      { return e.messageID }
func (e *Email) LastError() string      { return e.lastError }
func (e *Email) CreatedAt() time.Time   { return e.createdAt }
func (e *Email) UpdatedAt() time.Time   { return e.updatedAt }

func (e *Email) IsOwnedBy(ownerID uuid.UUID) bool {
	return e.ownerID == ownerID
}
