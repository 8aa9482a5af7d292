package jobqueue

import (
	"context"
	"log/slog"

	"scheduled-mailer/internal/pkg/errs"

	"github.com/google/uuid"
)

// Admission describes where an admitted job ended up.
type Admission struct {
	Store   string
	Durable bool
	// Degraded is set when the durable store refused the job and the
	// in-memory fallback took it instead.
	Degraded bool
}

// Queue fronts one primary store and an in-memory fallback used while the
// primary is unreachable.
type Queue struct {
	primary  Store
	fallback *MemoryStore
	logger   *slog.Logger
}

func NewQueue(primary Store, fallback *MemoryStore, logger *slog.Logger) *Queue {
	if fallback == primary {
		fallback = nil
	}
	return &Queue{
		primary:  primary,
		fallback: fallback,
		logger:   logger.With(slog.String("component", "jobqueue")),
	}
}

func (q *Queue) Durable() bool   { return q.primary.Durable() }
func (q *Queue) Backend() string { return q.primary.Name() }

// Ping checks the primary store when it has a connection to check.
func (q *Queue) Ping(ctx context.Context) error {
	p, ok := q.primary.(interface{ Ping(context.Context) error })
	if !ok {
		return nil
	}
	return p.Ping(ctx)
}

// Held is the number of jobs parked in the fallback.
func (q *Queue) Held() int {
	if q.fallback == nil {
		return 0
	}
	return q.fallback.Len()
}

func (q *Queue) Admit(ctx context.Context, job Job) (Admission, error) {
	if err := job.Validate(); err != nil {
		return Admission{}, err
	}

	err := q.primary.Admit(ctx, job)
	if err == nil {
		// an entry parked in the fallback during an outage must not be
		// claimable next to the durable one
		if q.fallback != nil {
			_, _ = q.fallback.Remove(ctx, job.ID)
		}
		return Admission{Store: q.primary.Name(), Durable: q.primary.Durable()}, nil
	}

	err = errs.Mark(errs.Wrapf(err, "admit job %s to %s", job.ID, q.primary.Name()), ErrQueueUnavailable)
	if q.fallback == nil {
		q.logger.ErrorContext(ctx, "job admission failed and no fallback store is configured",
			slog.String("job_id", job.ID.String()),
			slog.String("error", err.Error()),
		)
		return Admission{}, errs.WithHint(err, "the delivery queue is unavailable, retry shortly")
	}

	q.logger.ErrorContext(ctx, "QUEUE UNAVAILABLE: admitting job to non-durable in-memory fallback",
		slog.String("job_id", job.ID.String()),
		slog.String("primary", q.primary.Name()),
		slog.Bool("durable", false),
		slog.String("error", err.Error()),
	)
	if ferr := q.fallback.Admit(ctx, job); ferr != nil {
		return Admission{}, errs.Mark(ferr, ErrQueueUnavailable)
	}
	return Admission{Store: q.fallback.Name(), Durable: false, Degraded: true}, nil
}

// Remove deletes the entry from every store. Absent ids are not an error.
func (q *Queue) Remove(ctx context.Context, id uuid.UUID) (bool, error) {
	removed := false
	if q.fallback != nil {
		removed, _ = q.fallback.Remove(ctx, id)
	}

	ok, err := q.primary.Remove(ctx, id)
	if err != nil {
		return removed, errs.Mark(errs.Wrapf(err, "remove job %s", id), ErrQueueUnavailable)
	}
	return removed || ok, nil
}

func (q *Queue) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	if q.fallback != nil {
		if ok, _ := q.fallback.Exists(ctx, id); ok {
			return true, nil
		}
	}
	ok, err := q.primary.Exists(ctx, id)
	if err != nil {
		return false, errs.Mark(err, ErrQueueUnavailable)
	}
	return ok, nil
}

// stores lists the stores the dispatcher pulls from, primary first.
func (q *Queue) stores() []Store {
	if q.fallback == nil {
		return []Store{q.primary}
	}
	return []Store{q.primary, q.fallback}
}
