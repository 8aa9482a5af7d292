//go:build e2e

package jobstore_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"scheduled-mailer/internal/infra/jobstore"
	"scheduled-mailer/internal/jobqueue"
	"scheduled-mailer/internal/pkg/clock"
	"scheduled-mailer/tests/e2e"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type jobStoreSuite struct {
	e2e.SharedSuite
	stores map[string]func() jobqueue.Store
	logger *slog.Logger
}

func TestJobStoreSuite(t *testing.T) {
	suite.Run(t, new(jobStoreSuite))
}

func (s *jobStoreSuite) SetupSuite() {
	s.WithoutWorker = true
	s.SharedSuite.SetupSuite()
	s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	s.stores = map[string]func() jobqueue.Store{
		"postgres": func() jobqueue.Store { return jobstore.NewPostgres(s.DB, s.logger) },
		"redis":    func() jobqueue.Store { return jobstore.NewRedis(s.Redis, "e2e", s.logger) },
	}
}

func newJob(notBefore time.Time) jobqueue.Job {
	return jobqueue.Job{
		ID: uuid.New(),
		Payload: jobqueue.Payload{
			OwnerID:   uuid.New(),
			Recipient: "user@example.com",
			Subject:   "hello",
		},
		NotBefore:   notBefore,
		MaxAttempts: 3,
	}
}

func claim(ctx context.Context, store jobqueue.Store, now time.Time, worker string, limit int) ([]jobqueue.Job, error) {
	return store.Claim(ctx, jobqueue.ClaimRequest{Now: now, Limit: limit, Lease: time.Minute, WorkerID: worker})
}

func (s *jobStoreSuite) eachStore(fn func(store jobqueue.Store)) {
	for name, build := range s.stores {
		s.Run(name, func() {
			s.Require().NoError(s.Redis.FlushDB(context.Background()).Err())
			_, err := s.DB.Exec(context.Background(), "TRUNCATE email_jobs")
			s.Require().NoError(err)
			fn(build())
		})
	}
}

func (s *jobStoreSuite) TestClaimOrder() {
	s.eachStore(func(store jobqueue.Store) {
		ctx := context.Background()
		late := newJob(t0.Add(3 * time.Second))
		early := newJob(t0.Add(time.Second))
		tieA := newJob(t0.Add(2 * time.Second))
		tieB := newJob(t0.Add(2 * time.Second))
		future := newJob(t0.Add(time.Hour))
		for _, j := range []jobqueue.Job{late, early, tieA, tieB, future} {
			s.Require().NoError(store.Admit(ctx, j))
		}

		jobs, err := claim(ctx, store, t0.Add(10*time.Second), "w1", 10)
		s.Require().NoError(err)

		ids := make([]uuid.UUID, len(jobs))
		for i, j := range jobs {
			ids[i] = j.ID
		}
		s.Equal([]uuid.UUID{early.ID, tieA.ID, tieB.ID, late.ID}, ids)
		s.Equal(early.Payload, jobs[0].Payload)
		s.True(jobs[0].NotBefore.Equal(early.NotBefore))
	})
}

func (s *jobStoreSuite) TestClaimIsExclusive() {
	s.eachStore(func(store jobqueue.Store) {
		ctx := context.Background()
		const total = 20
		for range total {
			s.Require().NoError(store.Admit(ctx, newJob(t0)))
		}

		var (
			mu      sync.Mutex
			claimed = map[uuid.UUID]string{}
			dupes   int
			wg      sync.WaitGroup
		)
		for w := range 8 {
			worker := fmt.Sprintf("w%d", w)
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					jobs, err := claim(ctx, store, t0, worker, 2)
					if err != nil || len(jobs) == 0 {
						return
					}
					mu.Lock()
					for _, j := range jobs {
						if _, seen := claimed[j.ID]; seen {
							dupes++
						}
						claimed[j.ID] = worker
					}
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		s.Zero(dupes)
		s.Len(claimed, total)
	})
}

func (s *jobStoreSuite) TestLeaseLifecycle() {
	s.eachStore(func(store jobqueue.Store) {
		ctx := context.Background()
		job := newJob(t0)
		s.Require().NoError(store.Admit(ctx, job))

		jobs, err := claim(ctx, store, t0, "w1", 1)
		s.Require().NoError(err)
		s.Require().Len(jobs, 1)

		jobs, err = claim(ctx, store, t0, "w2", 1)
		s.Require().NoError(err)
		s.Empty(jobs, "held while the lease is live")

		// a stale worker cannot complete someone else's claim
		s.Require().NoError(store.Complete(ctx, job.ID, "w2"))
		exists, err := store.Exists(ctx, job.ID)
		s.Require().NoError(err)
		s.True(exists)

		retry := job
		retry.Attempt = 1
		retry.NotBefore = t0.Add(time.Second)
		retry.LastError = "421 try later"
		s.Require().NoError(store.Retry(ctx, retry, "w1"))

		jobs, err = claim(ctx, store, t0.Add(time.Second), "w2", 1)
		s.Require().NoError(err)
		s.Require().Len(jobs, 1)
		s.Equal(1, jobs[0].Attempt)
		s.Equal("421 try later", jobs[0].LastError)

		s.Require().NoError(store.Complete(ctx, job.ID, "w2"))
		exists, err = store.Exists(ctx, job.ID)
		s.Require().NoError(err)
		s.False(exists)
	})
}

func (s *jobStoreSuite) TestRemoveBeforeDue() {
	s.eachStore(func(store jobqueue.Store) {
		ctx := context.Background()
		job := newJob(t0.Add(time.Minute))
		s.Require().NoError(store.Admit(ctx, job))

		removed, err := store.Remove(ctx, job.ID)
		s.Require().NoError(err)
		s.True(removed)

		removed, err = store.Remove(ctx, job.ID)
		s.Require().NoError(err)
		s.False(removed)

		jobs, err := claim(ctx, store, t0.Add(time.Hour), "w1", 10)
		s.Require().NoError(err)
		s.Empty(jobs)
	})
}

func (s *jobStoreSuite) TestRedisLimiterIsShared() {
	ctx := context.Background()
	clk := clock.NewMockClock(t0)
	a := jobstore.NewRedisLimiter(s.Redis, "e2e", 1, 2*time.Second, clk, s.logger)
	b := jobstore.NewRedisLimiter(s.Redis, "e2e", 1, 2*time.Second, clk, s.logger)

	_, ok, err := a.TryAcquire(ctx)
	s.Require().NoError(err)
	s.True(ok)

	_, ok, err = b.TryAcquire(ctx)
	s.Require().NoError(err)
	s.False(ok, "second process shares the budget")

	clk.Add(2 * time.Second)
	release, ok, err := b.TryAcquire(ctx)
	s.Require().NoError(err)
	s.True(ok)

	// a refunded token is available again immediately
	release()
	_, ok, err = a.TryAcquire(ctx)
	s.Require().NoError(err)
	s.True(ok)
}
