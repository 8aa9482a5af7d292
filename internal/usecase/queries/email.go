package queries

import (
	"context"

	"scheduled-mailer/internal/pkg/errs"
	"scheduled-mailer/internal/usecase/readmodel"

	"github.com/google/uuid"
)

type EmailReadStore interface {
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*readmodel.EmailRM, error)
	CountByStatus(ctx context.Context, ownerID uuid.UUID) (*readmodel.EmailStatsRM, error)
}

type EmailQueries interface {
	List(ctx context.Context, ownerID uuid.UUID) ([]*readmodel.EmailRM, error)
	Stats(ctx context.Context, ownerID uuid.UUID) (*readmodel.EmailStatsRM, error)
}

type emailQueriesImpl struct {
	store EmailReadStore
}

func NewEmailQueries(store EmailReadStore) EmailQueries {
	return &emailQueriesImpl{store: store}
}

// List returns the owner's emails, latest scheduledAt first.
func (q *emailQueriesImpl) List(ctx context.Context, ownerID uuid.UUID) ([]*readmodel.EmailRM, error) {
	rows, err := q.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	if rows == nil {
		rows = []*readmodel.EmailRM{}
	}
	return rows, nil
}

func (q *emailQueriesImpl) Stats(ctx context.Context, ownerID uuid.UUID) (*readmodel.EmailStatsRM, error) {
	stats, err := q.store.CountByStatus(ctx, ownerID)
	if err != nil {
		return nil, errs.Mark(err, errs.ErrDatabaseOperationFailed)
	}
	// total is derived so it always equals the sum of the buckets
	stats.Total = stats.Sent + stats.Scheduled + stats.Failed
	return stats, nil
}
