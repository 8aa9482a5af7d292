//go:build unit

package jobqueue_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"scheduled-mailer/internal/jobqueue"

	"github.com/google/uuid"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newJob(notBefore time.Time) jobqueue.Job {
	return jobqueue.Job{
		ID: uuid.New(),
		Payload: jobqueue.Payload{
			OwnerID:   uuid.New(),
			Recipient: "user@example.com",
			Subject:   "hello",
			Body:      "body",
		},
		NotBefore:   notBefore,
		MaxAttempts: 3,
	}
}

// recordingHandler fails the first failures[id] attempts of each job.
type recordingHandler struct {
	mu        sync.Mutex
	calls     []uuid.UUID
	failures  map[uuid.UUID]int
	exhausted map[uuid.UUID]error
	block     chan struct{}

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		failures:  make(map[uuid.UUID]int),
		exhausted: make(map[uuid.UUID]error),
	}
}

func (h *recordingHandler) Attempt(_ context.Context, job jobqueue.Job) error {
	cur := h.inFlight.Add(1)
	defer h.inFlight.Add(-1)
	for {
		prev := h.maxInFlight.Load()
		if cur <= prev || h.maxInFlight.CompareAndSwap(prev, cur) {
			break
		}
	}

	if h.block != nil {
		<-h.block
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, job.ID)
	if h.failures[job.ID] > 0 {
		h.failures[job.ID]--
		return errors.New("transport down")
	}
	return nil
}

func (h *recordingHandler) Exhausted(_ context.Context, job jobqueue.Job, cause error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exhausted[job.ID] = cause
}

func (h *recordingHandler) callsFor(id uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, c := range h.calls {
		if c == id {
			n++
		}
	}
	return n
}

func (h *recordingHandler) order() []uuid.UUID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]uuid.UUID(nil), h.calls...)
}

// switchableStore is a durable-looking store whose availability tests toggle.
type switchableStore struct {
	*jobqueue.MemoryStore
	down atomic.Bool
}

func newSwitchableStore() *switchableStore {
	return &switchableStore{MemoryStore: jobqueue.NewMemoryStore(nil)}
}

func (s *switchableStore) Name() string  { return "switchable" }
func (s *switchableStore) Durable() bool { return true }

func (s *switchableStore) Admit(ctx context.Context, job jobqueue.Job) error {
	if s.down.Load() {
		return errors.New("connection refused")
	}
	return s.MemoryStore.Admit(ctx, job)
}
