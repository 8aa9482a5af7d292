package jobstore

import (
	"cmp"
	"context"
	"encoding/json"
	"log/slog"
	"slices"
	"time"

	"scheduled-mailer/internal/infra"
	"scheduled-mailer/internal/infra/db"
	"scheduled-mailer/internal/jobqueue"
	"scheduled-mailer/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	admitJobSQL = `
INSERT INTO email_jobs (id, payload, not_before, attempt, max_attempts, last_error)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
    payload      = EXCLUDED.payload,
    not_before   = EXCLUDED.not_before,
    attempt      = EXCLUDED.attempt,
    max_attempts = EXCLUDED.max_attempts,
    last_error   = EXCLUDED.last_error,
    seq          = nextval('email_jobs_seq'),
    updated_at   = now()`

	claimJobsSQL = `
WITH due AS (
    SELECT id FROM email_jobs
    WHERE not_before <= $1
      AND (locked_until IS NULL OR locked_until <= $1)
    ORDER BY not_before, seq
    LIMIT $2
    FOR UPDATE SKIP LOCKED
)
UPDATE email_jobs j
SET locked_by = $3, locked_until = $4, updated_at = now()
FROM due
WHERE j.id = due.id
RETURNING j.id, j.payload, j.not_before, j.attempt, j.max_attempts, j.seq, j.last_error`

	retryJobSQL = `
UPDATE email_jobs
SET not_before = $3, attempt = $4, last_error = $5,
    seq = nextval('email_jobs_seq'),
    locked_by = NULL, locked_until = NULL, updated_at = now()
WHERE id = $1 AND locked_by = $2`

	completeJobSQL = `DELETE FROM email_jobs WHERE id = $1 AND locked_by = $2`
	removeJobSQL   = `DELETE FROM email_jobs WHERE id = $1`
	existsJobSQL   = `SELECT EXISTS (SELECT 1 FROM email_jobs WHERE id = $1)`
)

// Postgres is the durable job store. Claims use FOR UPDATE SKIP LOCKED so
// several dispatcher processes can share one table.
type Postgres struct {
	db     db.DBTX
	logger *slog.Logger
}

func NewPostgres(dbtx db.DBTX, logger *slog.Logger) *Postgres {
	return &Postgres{
		db:     dbtx,
		logger: logger.With(slog.String("component", "jobstore.postgres")),
	}
}

func (s *Postgres) Name() string  { return "postgres" }
func (s *Postgres) Durable() bool { return true }

func (s *Postgres) Admit(ctx context.Context, job jobqueue.Job) error {
	payload, err := json.Marshal(job.Payload)
	if err != nil {
		return infra.WrapRepoErr(s.logger, infra.KindDBFailure, "failed to encode job payload", err)
	}

	_, err = s.db.Exec(ctx, admitJobSQL,
		job.ID, payload, job.NotBefore, job.Attempt, job.MaxAttempts, pgconv.TextOrNull(job.LastError))
	if err != nil {
		return infra.WrapRepoErr(s.logger, infra.Classify(err), "failed to admit job", err)
	}
	return nil
}

func (s *Postgres) Remove(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := s.db.Exec(ctx, removeJobSQL, id)
	if err != nil {
		return false, infra.WrapRepoErr(s.logger, infra.Classify(err), "failed to remove job", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *Postgres) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	if err := s.db.QueryRow(ctx, existsJobSQL, id).Scan(&exists); err != nil {
		return false, infra.WrapRepoErr(s.logger, infra.Classify(err), "failed to check job", err)
	}
	return exists, nil
}

func (s *Postgres) Claim(ctx context.Context, req jobqueue.ClaimRequest) ([]jobqueue.Job, error) {
	rows, err := s.db.Query(ctx, claimJobsSQL, req.Now, req.Limit, req.WorkerID, req.Now.Add(req.Lease))
	if err != nil {
		return nil, infra.WrapRepoErr(s.logger, infra.Classify(err), "failed to claim jobs", err)
	}
	defer rows.Close()

	jobs := make([]jobqueue.Job, 0, req.Limit)
	for rows.Next() {
		var (
			job       jobqueue.Job
			payload   []byte
			notBefore pgtype.Timestamptz
			lastError pgtype.Text
		)
		if err := rows.Scan(&job.ID, &payload, &notBefore, &job.Attempt, &job.MaxAttempts, &job.Seq, &lastError); err != nil {
			return nil, infra.WrapRepoErr(s.logger, infra.KindDBFailure, "failed to scan claimed job", err)
		}
		if err := json.Unmarshal(payload, &job.Payload); err != nil {
			return nil, infra.WrapRepoErr(s.logger, infra.KindDBFailure, "failed to decode job payload", err)
		}
		job.NotBefore = pgconv.TimeFromPgtype(notBefore)
		job.LastError = pgconv.StringFromPgtype(lastError)
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr(s.logger, infra.KindDBFailure, "failed to read claimed jobs", err)
	}

	// RETURNING does not preserve the CTE ordering
	slices.SortFunc(jobs, func(a, b jobqueue.Job) int {
		if c := a.NotBefore.Compare(b.NotBefore); c != 0 {
			return c
		}
		return cmp.Compare(a.Seq, b.Seq)
	})
	return jobs, nil
}

func (s *Postgres) Complete(ctx context.Context, id uuid.UUID, workerID string) error {
	if _, err := s.db.Exec(ctx, completeJobSQL, id, workerID); err != nil {
		return infra.WrapRepoErr(s.logger, infra.Classify(err), "failed to complete job", err)
	}
	return nil
}

func (s *Postgres) Retry(ctx context.Context, job jobqueue.Job, workerID string) error {
	_, err := s.db.Exec(ctx, retryJobSQL, job.ID, workerID, job.NotBefore, job.Attempt, pgconv.TextOrNull(job.LastError))
	if err != nil {
		return infra.WrapRepoErr(s.logger, infra.Classify(err), "failed to reschedule job", err)
	}
	return nil
}

// Ping reports whether the backing database answers.
func (s *Postgres) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	var one int
	return s.db.QueryRow(ctx, "SELECT 1").Scan(&one)
}

