package repository

import (
	"context"
	"log/slog"
	"time"

	"scheduled-mailer/internal/domain/email"
	"scheduled-mailer/internal/infra"
	"scheduled-mailer/internal/infra/converter"
	"scheduled-mailer/internal/infra/db"
	"scheduled-mailer/internal/pkg/pgconv"
	"scheduled-mailer/internal/usecase/readmodel"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// EmailStore is the full surface every record backend implements: the
// scheduler's write port, the executor's status port and the read store.
type EmailStore interface {
	Create(ctx context.Context, e *email.Email) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*email.Email, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) (bool, error)
	ListScheduled(ctx context.Context) ([]*email.Email, error)
	MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time, messageID string) (bool, error)
	MarkFailed(ctx context.Context, id uuid.UUID, at time.Time, reason string) (bool, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*readmodel.EmailRM, error)
	CountByStatus(ctx context.Context, ownerID uuid.UUID) (*readmodel.EmailStatsRM, error)

	Backend() string
	Durable() bool
	Ping(ctx context.Context) error
}

const emailColumns = `id, owner_id, recipient, subject, body, status, scheduled_at, sent_at, message_id, last_error, created_at, updated_at`

const (
	insertEmailSQL = `
INSERT INTO emails (` + emailColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	findEmailByIDSQL     = `SELECT ` + emailColumns + ` FROM emails WHERE id = $1`
	listEmailsByOwnerSQL = `SELECT ` + emailColumns + ` FROM emails WHERE owner_id = $1 ORDER BY scheduled_at DESC, created_at DESC`
	listScheduledSQL     = `SELECT ` + emailColumns + ` FROM emails WHERE status = 'SCHEDULED' ORDER BY scheduled_at, created_at`
	deleteEmailSQL       = `DELETE FROM emails WHERE id = $1 AND owner_id = $2`

	markSentSQL = `
UPDATE emails
SET status = 'SENT', sent_at = $2, message_id = $3, last_error = NULL, updated_at = $2
WHERE id = $1 AND status = 'SCHEDULED'`

	markFailedSQL = `
UPDATE emails
SET status = 'FAILED', last_error = $3, updated_at = $2
WHERE id = $1 AND status = 'SCHEDULED'`

	countByStatusSQL = `SELECT status, count(*) FROM emails WHERE owner_id = $1 GROUP BY status`
)

type EmailRepository struct {
	db     db.DBTX
	logger *slog.Logger
}

var _ EmailStore = (*EmailRepository)(nil)

func NewEmailRepository(dbtx db.DBTX, logger *slog.Logger) *EmailRepository {
	return &EmailRepository{
		db:     dbtx,
		logger: logger.With(slog.String("component", "repository.email.postgres")),
	}
}

func (r *EmailRepository) Create(ctx context.Context, e *email.Email) (bool, error) {
	s := e.Snapshot()
	_, err := r.db.Exec(ctx, insertEmailSQL,
		s.ID, s.OwnerID, s.Recipient, s.Subject, s.Body, s.Status,
		s.ScheduledAt, pgconv.TimePtrToPgtype(s.SentAt), pgconv.TextOrNull(s.MessageID), pgconv.TextOrNull(s.LastError),
		s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return false, infra.WrapRepoErr(r.logger, infra.Classify(err), "failed to insert email", err)
	}
	return true, nil
}

func (r *EmailRepository) FindByID(ctx context.Context, id uuid.UUID) (*email.Email, error) {
	s, err := scanEmail(r.db.QueryRow(ctx, findEmailByIDSQL, id))
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr(r.logger, infra.KindNotFound, "email not found", err)
		}
		return nil, infra.WrapRepoErr(r.logger, infra.Classify(err), "failed to find email", err)
	}

	e, err := email.Reconstruct(s)
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to reconstruct email", err)
	}
	return e, nil
}

func (r *EmailRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) (bool, error) {
	tag, err := r.db.Exec(ctx, deleteEmailSQL, id, ownerID)
	if err != nil {
		return false, infra.WrapRepoErr(r.logger, infra.Classify(err), "failed to delete email", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *EmailRepository) ListScheduled(ctx context.Context) ([]*email.Email, error) {
	snapshots, err := r.query(ctx, listScheduledSQL)
	if err != nil {
		return nil, err
	}

	out := make([]*email.Email, 0, len(snapshots))
	for _, s := range snapshots {
		e, err := email.Reconstruct(s)
		if err != nil {
			return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to reconstruct email", err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *EmailRepository) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time, messageID string) (bool, error) {
	tag, err := r.db.Exec(ctx, markSentSQL, id, sentAt, pgconv.TextOrNull(messageID))
	if err != nil {
		return false, infra.WrapRepoErr(r.logger, infra.Classify(err), "failed to mark email sent", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *EmailRepository) MarkFailed(ctx context.Context, id uuid.UUID, at time.Time, reason string) (bool, error) {
	tag, err := r.db.Exec(ctx, markFailedSQL, id, at, reason)
	if err != nil {
		return false, infra.WrapRepoErr(r.logger, infra.Classify(err), "failed to mark email failed", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *EmailRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*readmodel.EmailRM, error) {
	snapshots, err := r.query(ctx, listEmailsByOwnerSQL, ownerID)
	if err != nil {
		return nil, err
	}

	out := make([]*readmodel.EmailRM, 0, len(snapshots))
	for _, s := range snapshots {
		out = append(out, converter.EmailToReadModel(s))
	}
	return out, nil
}

func (r *EmailRepository) CountByStatus(ctx context.Context, ownerID uuid.UUID) (*readmodel.EmailStatsRM, error) {
	rows, err := r.db.Query(ctx, countByStatusSQL, ownerID)
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.Classify(err), "failed to count emails", err)
	}
	defer rows.Close()

	counts := make(map[string]int, 3)
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to scan email count", err)
		}
		counts[status] = int(n)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to read email counts", err)
	}
	return converter.StatsFromCounts(counts), nil
}

func (r *EmailRepository) Backend() string { return "postgres" }
func (r *EmailRepository) Durable() bool   { return true }

func (r *EmailRepository) Ping(ctx context.Context) error {
	var one int
	return r.db.QueryRow(ctx, "SELECT 1").Scan(&one)
}

func (r *EmailRepository) query(ctx context.Context, sql string, args ...any) ([]email.Snapshot, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.Classify(err), "failed to query emails", err)
	}
	defer rows.Close()

	var out []email.Snapshot
	for rows.Next() {
		s, err := scanEmail(rows)
		if err != nil {
			return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to scan email", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to read emails", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEmail(row rowScanner) (email.Snapshot, error) {
	var (
		s                    email.Snapshot
		scheduledAt          pgtype.Timestamptz
		sentAt               pgtype.Timestamptz
		messageID, lastError pgtype.Text
		createdAt, updatedAt pgtype.Timestamptz
	)
	err := row.Scan(
		&s.ID, &s.OwnerID, &s.Recipient, &s.Subject, &s.Body, &s.Status,
		&scheduledAt, &sentAt, &messageID, &lastError, &createdAt, &updatedAt,
	)
	if err != nil {
		return email.Snapshot{}, err
	}

	s.ScheduledAt = pgconv.TimeFromPgtype(scheduledAt)
	s.SentAt = pgconv.TimePtrFromPgtype(sentAt)
	s.MessageID = pgconv.StringFromPgtype(messageID)
	s.LastError = pgconv.StringFromPgtype(lastError)
	s.CreatedAt = pgconv.TimeFromPgtype(createdAt)
	s.UpdatedAt = pgconv.TimeFromPgtype(updatedAt)
	return s, nil
}
