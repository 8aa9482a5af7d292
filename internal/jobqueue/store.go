package jobqueue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ClaimRequest struct {
	Now      time.Time
	Limit    int
	Lease    time.Duration
	WorkerID string
}

// Store is a time-ordered job store. Implementations must make Claim atomic
// so that a job is held by at most one worker while its lease is live.
type Store interface {
	// Admit inserts or replaces the entry for job.ID. A live claim on the
	// entry is kept so the in-flight attempt stays exclusive.
	Admit(ctx context.Context, job Job) error
	Remove(ctx context.Context, id uuid.UUID) (bool, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	// Claim returns due, unclaimed jobs ordered by NotBefore then Seq.
	Claim(ctx context.Context, req ClaimRequest) ([]Job, error)
	// Complete deletes the entry when it is still claimed by workerID.
	Complete(ctx context.Context, id uuid.UUID, workerID string) error
	// Retry stores the rescheduled job and releases the claim. An entry that
	// was removed meanwhile stays removed.
	Retry(ctx context.Context, job Job, workerID string) error
	Durable() bool
	Name() string
}
