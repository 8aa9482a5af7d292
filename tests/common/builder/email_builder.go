//go:build unit || e2e

package builder

import (
	"time"

	domemail "scheduled-mailer/internal/domain/email"
	reqdto "scheduled-mailer/internal/handler/dto/request"
	"scheduled-mailer/internal/usecase/readmodel"

	"github.com/google/uuid"
)

type EmailBuilder struct {
	ID          uuid.UUID
	OwnerID     uuid.UUID
	Recipient   string
	Subject     string
	Body        string
	Status      domemail.Status
	ScheduledAt time.Time
	Now         time.Time
}

func NewEmailBuilder() *EmailBuilder {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	return &EmailBuilder{
		ID:          uuid.New(),
		OwnerID:     uuid.New(),
		Recipient:   "launch@example.com",
		Subject:     "Launch day",
		Body:        "<p>We are live.</p>",
		Status:      domemail.StatusScheduled,
		ScheduledAt: now.Add(time.Minute),
		Now:         now,
	}
}

func (b *EmailBuilder) With(mutate func(*EmailBuilder)) *EmailBuilder {
	mutate(b)
	return b
}

func (b *EmailBuilder) WithRecipient(r string) *EmailBuilder {
	b.Recipient = r
	return b
}

func (b *EmailBuilder) WithSubject(s string) *EmailBuilder {
	b.Subject = s
	return b
}

func (b *EmailBuilder) WithOwner(id uuid.UUID) *EmailBuilder {
	b.OwnerID = id
	return b
}

// Build methods
func (b *EmailBuilder) BuildDomain() (*domemail.Email, error) {
	return domemail.NewEmail(b.ID, b.OwnerID, b.Recipient, b.Subject, b.Body, b.ScheduledAt, b.Now)
}

func (b *EmailBuilder) MustBuildDomain() *domemail.Email {
	e, err := b.BuildDomain()
	if err != nil {
		panic(err)
	}
	if b.Status != domemail.StatusScheduled {
		snap := e.Snapshot()
		snap.Status = b.Status.String()
		e, err = domemail.Reconstruct(snap)
		if err != nil {
			panic(err)
		}
	}
	return e
}

func (b *EmailBuilder) BuildDTO() reqdto.ScheduleEmailRequest {
	return reqdto.ScheduleEmailRequest{
		Recipient:   b.Recipient,
		Subject:     b.Subject,
		Body:        b.Body,
		ScheduledAt: b.ScheduledAt.Format(time.RFC3339),
	}
}

func (b *EmailBuilder) BuildReadModel() *readmodel.EmailRM {
	return &readmodel.EmailRM{
		ID:          b.ID,
		OwnerID:     b.OwnerID,
		Recipient:   b.Recipient,
		Subject:     b.Subject,
		Body:        b.Body,
		Status:      b.Status.String(),
		ScheduledAt: b.ScheduledAt,
		CreatedAt:   b.Now,
		UpdatedAt:   b.Now,
	}
}
