package jobqueue

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryEntry struct {
	job         Job
	lockedBy    string
	lockedUntil time.Time
}

func (e *memoryEntry) leased(now time.Time) bool {
	return e.lockedBy != "" && now.Before(e.lockedUntil)
}

// MemoryStore keeps jobs in process memory only. Everything is lost on
// restart.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*memoryEntry
	seq     int64
}

func NewMemoryStore(logger *slog.Logger) *MemoryStore {
	if logger != nil {
		logger.Warn("in-memory job store active: admitted jobs will not survive a restart", slog.Bool("durable", false))
	}
	return &MemoryStore{entries: make(map[uuid.UUID]*memoryEntry)}
}

func (s *MemoryStore) Name() string  { return "memory" }
func (s *MemoryStore) Durable() bool { return false }

func (s *MemoryStore) Admit(_ context.Context, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	job.Seq = s.seq
	if e, ok := s.entries[job.ID]; ok {
		e.job = job
		return nil
	}
	s.entries[job.ID] = &memoryEntry{job: job}
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return false, nil
	}
	delete(s.entries, id)
	return true, nil
}

func (s *MemoryStore) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.entries[id]
	return ok, nil
}

func (s *MemoryStore) Claim(_ context.Context, req ClaimRequest) ([]Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	due := make([]*memoryEntry, 0)
	for _, e := range s.entries {
		if e.job.Due(req.Now) && !e.leased(req.Now) {
			due = append(due, e)
		}
	}
	slices.SortFunc(due, func(a, b *memoryEntry) int {
		if c := a.job.NotBefore.Compare(b.job.NotBefore); c != 0 {
			return c
		}
		return cmp.Compare(a.job.Seq, b.job.Seq)
	})

	if req.Limit > 0 && len(due) > req.Limit {
		due = due[:req.Limit]
	}

	jobs := make([]Job, 0, len(due))
	for _, e := range due {
		e.lockedBy = req.WorkerID
		e.lockedUntil = req.Now.Add(req.Lease)
		jobs = append(jobs, e.job)
	}
	return jobs, nil
}

func (s *MemoryStore) Complete(_ context.Context, id uuid.UUID, workerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[id]; ok && e.lockedBy == workerID {
		delete(s.entries, id)
	}
	return nil
}

func (s *MemoryStore) Retry(_ context.Context, job Job, workerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[job.ID]
	if !ok || e.lockedBy != workerID {
		return nil
	}
	s.seq++
	job.Seq = s.seq
	e.job = job
	e.lockedBy = ""
	e.lockedUntil = time.Time{}
	return nil
}

// Len is the number of pending and claimed entries.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Peek returns a copy of the stored job.
func (s *MemoryStore) Peek(id uuid.UUID) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return Job{}, false
	}
	return e.job, true
}
