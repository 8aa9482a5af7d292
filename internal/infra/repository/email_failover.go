package repository

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"time"

	"scheduled-mailer/internal/domain/email"
	"scheduled-mailer/internal/infra"
	"scheduled-mailer/internal/usecase/readmodel"

	"github.com/google/uuid"
)

// FailoverEmailRepository writes to the primary store and, when a create
// fails there, keeps the record in memory instead. Reads merge both.
type FailoverEmailRepository struct {
	primary  EmailStore
	fallback *MemoryEmailRepository
	logger   *slog.Logger
}

var _ EmailStore = (*FailoverEmailRepository)(nil)

func NewFailoverEmailRepository(primary EmailStore, fallback *MemoryEmailRepository, logger *slog.Logger) *FailoverEmailRepository {
	return &FailoverEmailRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger.With(slog.String("component", "repository.email.failover")),
	}
}

func (r *FailoverEmailRepository) Create(ctx context.Context, e *email.Email) (bool, error) {
	durable, err := r.primary.Create(ctx, e)
	if err == nil {
		return durable, nil
	}
	if infra.IsKind(err, infra.KindDuplicateKey) {
		return false, err
	}

	r.logger.ErrorContext(ctx, "RECORD STORE UNAVAILABLE: keeping email in non-durable memory",
		slog.String("email_id", e.ID().String()),
		slog.Bool("durable", false),
		slog.String("error", err.Error()),
	)
	if _, ferr := r.fallback.Create(ctx, e); ferr != nil {
		return false, ferr
	}
	return false, nil
}

func (r *FailoverEmailRepository) FindByID(ctx context.Context, id uuid.UUID) (*email.Email, error) {
	if r.fallback.Has(id) {
		return r.fallback.FindByID(ctx, id)
	}
	return r.primary.FindByID(ctx, id)
}

func (r *FailoverEmailRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) (bool, error) {
	if r.fallback.Has(id) {
		return r.fallback.Delete(ctx, ownerID, id)
	}
	return r.primary.Delete(ctx, ownerID, id)
}

func (r *FailoverEmailRepository) ListScheduled(ctx context.Context) ([]*email.Email, error) {
	held, err := r.fallback.ListScheduled(ctx)
	if err != nil {
		return nil, err
	}
	stored, err := r.primary.ListScheduled(ctx)
	if err != nil {
		// still hand back what memory holds so those records are not orphaned
		return held, err
	}
	return append(stored, held...), nil
}

func (r *FailoverEmailRepository) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time, messageID string) (bool, error) {
	if r.fallback.Has(id) {
		return r.fallback.MarkSent(ctx, id, sentAt, messageID)
	}
	return r.primary.MarkSent(ctx, id, sentAt, messageID)
}

func (r *FailoverEmailRepository) MarkFailed(ctx context.Context, id uuid.UUID, at time.Time, reason string) (bool, error) {
	if r.fallback.Has(id) {
		return r.fallback.MarkFailed(ctx, id, at, reason)
	}
	return r.primary.MarkFailed(ctx, id, at, reason)
}

func (r *FailoverEmailRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*readmodel.EmailRM, error) {
	stored, err := r.primary.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	held, err := r.fallback.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if len(held) == 0 {
		return stored, nil
	}

	out := append(stored, held...)
	slices.SortStableFunc(out, func(a, b *readmodel.EmailRM) int {
		return cmp.Compare(b.ScheduledAt.UnixNano(), a.ScheduledAt.UnixNano())
	})
	return out, nil
}

func (r *FailoverEmailRepository) CountByStatus(ctx context.Context, ownerID uuid.UUID) (*readmodel.EmailStatsRM, error) {
	stored, err := r.primary.CountByStatus(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	held, err := r.fallback.CountByStatus(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return &readmodel.EmailStatsRM{
		Total:     stored.Total + held.Total,
		Sent:      stored.Sent + held.Sent,
		Scheduled: stored.Scheduled + held.Scheduled,
		Failed:    stored.Failed + held.Failed,
	}, nil
}

func (r *FailoverEmailRepository) Backend() string { return r.primary.Backend() }
func (r *FailoverEmailRepository) Durable() bool   { return r.primary.Durable() }

func (r *FailoverEmailRepository) Ping(ctx context.Context) error {
	return r.primary.Ping(ctx)
}

// Held is the number of records parked in memory after a failed create.
func (r *FailoverEmailRepository) Held() int {
	return r.fallback.Len()
}
