package repository

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"scheduled-mailer/internal/domain/email"
	"scheduled-mailer/internal/infra"
	"scheduled-mailer/internal/infra/converter"
	"scheduled-mailer/internal/usecase/readmodel"

	"github.com/google/uuid"
)

// MemoryEmailRepository keeps records in process memory. Used for tests,
// for STORE_BACKEND=memory and as the failover target.
type MemoryEmailRepository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]email.Snapshot
	logger  *slog.Logger
}

var _ EmailStore = (*MemoryEmailRepository)(nil)

func NewMemoryEmailRepository(logger *slog.Logger) *MemoryEmailRepository {
	return &MemoryEmailRepository{
		records: make(map[uuid.UUID]email.Snapshot),
		logger:  logger.With(slog.String("component", "repository.email.memory")),
	}
}

func (r *MemoryEmailRepository) Create(_ context.Context, e *email.Email) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := e.Snapshot()
	if _, ok := r.records[s.ID]; ok {
		return false, infra.WrapRepoErr(r.logger, infra.KindDuplicateKey, "email already exists", nil)
	}
	r.records[s.ID] = s
	return false, nil
}

func (r *MemoryEmailRepository) FindByID(_ context.Context, id uuid.UUID) (*email.Email, error) {
	r.mu.RLock()
	s, ok := r.records[id]
	r.mu.RUnlock()

	if !ok {
		return nil, infra.WrapRepoErr(r.logger, infra.KindNotFound, "email not found", nil)
	}
	return email.Reconstruct(s)
}

// Has reports whether id is held here, without logging a miss.
func (r *MemoryEmailRepository) Has(id uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.records[id]
	return ok
}

func (r *MemoryEmailRepository) Delete(_ context.Context, ownerID, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.records[id]
	if !ok || s.OwnerID != ownerID {
		return false, nil
	}
	delete(r.records, id)
	return true, nil
}

func (r *MemoryEmailRepository) ListScheduled(_ context.Context) ([]*email.Email, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*email.Email
	for _, s := range r.sorted(1, func(s email.Snapshot) bool { return s.Status == email.StatusScheduled.String() }) {
		e, err := email.Reconstruct(s)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *MemoryEmailRepository) MarkSent(_ context.Context, id uuid.UUID, sentAt time.Time, messageID string) (bool, error) {
	return r.transition(id, func(e *email.Email) error { return e.MarkSent(sentAt, messageID) })
}

func (r *MemoryEmailRepository) MarkFailed(_ context.Context, id uuid.UUID, at time.Time, reason string) (bool, error) {
	return r.transition(id, func(e *email.Email) error { return e.MarkFailed(at, reason) })
}

func (r *MemoryEmailRepository) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*readmodel.EmailRM, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*readmodel.EmailRM{}
	for _, s := range r.sorted(-1, func(s email.Snapshot) bool { return s.OwnerID == ownerID }) {
		out = append(out, converter.EmailToReadModel(s))
	}
	return out, nil
}

func (r *MemoryEmailRepository) CountByStatus(_ context.Context, ownerID uuid.UUID) (*readmodel.EmailStatsRM, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := make(map[string]int, 3)
	for _, s := range r.records {
		if s.OwnerID == ownerID {
			counts[s.Status]++
		}
	}
	return converter.StatsFromCounts(counts), nil
}

func (r *MemoryEmailRepository) Backend() string            { return "memory" }
func (r *MemoryEmailRepository) Durable() bool              { return false }
func (r *MemoryEmailRepository) Ping(context.Context) error { return nil }

func (r *MemoryEmailRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

func (r *MemoryEmailRepository) transition(id uuid.UUID, apply func(*email.Email) error) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.records[id]
	if !ok {
		return false, nil
	}
	e, err := email.Reconstruct(s)
	if err != nil {
		return false, err
	}
	if err := apply(e); err != nil {
		// already terminal
		return false, nil
	}
	r.records[id] = e.Snapshot()
	return true, nil
}

// sorted returns matching snapshots by scheduledAt, ascending for dir 1 and
// descending for dir -1. Caller holds the lock.
func (r *MemoryEmailRepository) sorted(dir int, keep func(email.Snapshot) bool) []email.Snapshot {
	out := make([]email.Snapshot, 0, len(r.records))
	for _, s := range r.records {
		if keep(s) {
			out = append(out, s)
		}
	}
	slices.SortFunc(out, func(a, b email.Snapshot) int {
		if c := a.ScheduledAt.Compare(b.ScheduledAt); c != 0 {
			return dir * c
		}
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return dir * c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return out
}
