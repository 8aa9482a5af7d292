//go:build unit

package jobqueue_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"scheduled-mailer/internal/jobqueue"
	"scheduled-mailer/internal/pkg/clock"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type DispatcherTestSuite struct {
	suite.Suite
	ctx     context.Context
	clock   *clock.MockClock
	store   *jobqueue.MemoryStore
	queue   *jobqueue.Queue
	handler *recordingHandler
}

func (s *DispatcherTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.clock = clock.NewMockClock(t0)
	s.store = jobqueue.NewMemoryStore(nil)
	s.queue = jobqueue.NewQueue(s.store, nil, discardLogger())
	s.handler = newRecordingHandler()
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(DispatcherTestSuite))
}

func (s *DispatcherTestSuite) newDispatcher(concurrency int, limiter jobqueue.Limiter) *jobqueue.Dispatcher {
	return jobqueue.NewDispatcher(s.queue, s.handler, jobqueue.DefaultRetryPolicy(), limiter, s.clock, discardLogger(),
		jobqueue.DispatcherConfig{WorkerID: "w1", Concurrency: concurrency, Lease: time.Minute})
}

func (s *DispatcherTestSuite) admit(notBefore time.Time) jobqueue.Job {
	job := newJob(notBefore)
	_, err := s.queue.Admit(s.ctx, job)
	s.Require().NoError(err)
	return job
}

func (s *DispatcherTestSuite) TestDispatchesInNotBeforeOrder() {
	third := s.admit(t0.Add(3 * time.Second))
	first := s.admit(t0.Add(time.Second))
	second := s.admit(t0.Add(2 * time.Second))

	d := s.newDispatcher(1, nil)
	s.clock.Add(5 * time.Second)
	for range 3 {
		s.Equal(1, d.ProcessDue(s.ctx))
	}

	s.Equal([]uuid.UUID{first.ID, second.ID, third.ID}, s.handler.order())
	s.Equal(0, s.store.Len())
}

func (s *DispatcherTestSuite) TestNothingDispatchedBeforeNotBefore() {
	job := s.admit(t0.Add(time.Minute))
	d := s.newDispatcher(5, nil)

	s.Equal(0, d.ProcessDue(s.ctx))
	s.clock.Add(59 * time.Second)
	s.Equal(0, d.ProcessDue(s.ctx))
	s.Equal(0, s.handler.callsFor(job.ID))

	s.clock.Add(time.Second)
	s.Equal(1, d.ProcessDue(s.ctx))
	s.Equal(1, s.handler.callsFor(job.ID))
}

func (s *DispatcherTestSuite) TestConcurrencyCap() {
	for range 5 {
		s.admit(t0)
	}
	s.handler.block = make(chan struct{})
	d := s.newDispatcher(2, nil)

	done := make(chan int)
	go func() { done <- d.ProcessDue(s.ctx) }()

	s.Eventually(func() bool { return s.handler.inFlight.Load() == 2 }, time.Second, 5*time.Millisecond)
	// the pool stays full while both attempts are running
	time.Sleep(20 * time.Millisecond)
	s.EqualValues(2, s.handler.inFlight.Load())

	close(s.handler.block)
	s.Equal(2, <-done)
	s.EqualValues(2, s.handler.maxInFlight.Load())
	s.Equal(3, s.store.Len())
}

func (s *DispatcherTestSuite) TestGlobalRateLimit() {
	for range 3 {
		s.admit(t0)
	}
	d := s.newDispatcher(5, jobqueue.NewLocalLimiter(1, 2*time.Second, s.clock))

	s.Equal(1, d.ProcessDue(s.ctx))
	s.Equal(0, d.ProcessDue(s.ctx))

	s.clock.Add(time.Second)
	s.Equal(0, d.ProcessDue(s.ctx))

	s.clock.Add(time.Second)
	s.Equal(1, d.ProcessDue(s.ctx))

	s.clock.Add(2 * time.Second)
	s.Equal(1, d.ProcessDue(s.ctx))
	s.Len(s.handler.order(), 3)
}

func (s *DispatcherTestSuite) TestIdlePassDoesNotSpendRateToken() {
	d := s.newDispatcher(1, jobqueue.NewLocalLimiter(1, 2*time.Second, s.clock))
	s.Equal(0, d.ProcessDue(s.ctx))

	s.admit(t0)
	s.Equal(1, d.ProcessDue(s.ctx))
}

func (s *DispatcherTestSuite) TestRetryWithBackoffThenSuccess() {
	job := s.admit(t0)
	s.handler.failures[job.ID] = 2
	d := s.newDispatcher(1, nil)

	s.Equal(1, d.ProcessDue(s.ctx))
	stored, ok := s.store.Peek(job.ID)
	s.Require().True(ok)
	s.Equal(1, stored.Attempt)
	s.Equal(t0.Add(time.Second), stored.NotBefore)
	s.Equal("transport down", stored.LastError)

	s.Equal(0, d.ProcessDue(s.ctx))

	s.clock.Add(time.Second)
	s.Equal(1, d.ProcessDue(s.ctx))
	stored, _ = s.store.Peek(job.ID)
	s.Equal(2, stored.Attempt)
	s.Equal(s.clock.Now().Add(2*time.Second), stored.NotBefore)

	s.clock.Add(2 * time.Second)
	s.Equal(1, d.ProcessDue(s.ctx))

	s.Equal(3, s.handler.callsFor(job.ID))
	s.Empty(s.handler.exhausted)
	s.Equal(0, s.store.Len())
}

func (s *DispatcherTestSuite) TestExhaustedAfterMaxAttempts() {
	job := s.admit(t0)
	s.handler.failures[job.ID] = 10
	d := s.newDispatcher(1, nil)

	for range 10 {
		d.ProcessDue(s.ctx)
		s.clock.Add(time.Minute)
	}

	s.Equal(3, s.handler.callsFor(job.ID))
	s.Require().Contains(s.handler.exhausted, job.ID)
	s.EqualError(s.handler.exhausted[job.ID], "transport down")
	s.Equal(0, s.store.Len())
}

func (s *DispatcherTestSuite) TestRemovedJobIsNeverAttempted() {
	job := s.admit(t0.Add(time.Minute))
	d := s.newDispatcher(1, nil)

	_, err := s.queue.Remove(s.ctx, job.ID)
	s.Require().NoError(err)

	s.clock.Add(time.Hour)
	s.Equal(0, d.ProcessDue(s.ctx))
	s.Equal(0, s.handler.callsFor(job.ID))
}

func (s *DispatcherTestSuite) TestStartStop() {
	job := s.admit(t0)
	d := jobqueue.NewDispatcher(s.queue, s.handler, jobqueue.DefaultRetryPolicy(), nil, s.clock, discardLogger(),
		jobqueue.DispatcherConfig{Concurrency: 2, PollInterval: 5 * time.Millisecond})

	d.Start(s.ctx)
	s.Eventually(func() bool { return s.handler.callsFor(job.ID) == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(s.ctx, time.Second)
	defer cancel()
	s.NoError(d.Stop(ctx))
	s.NoError(d.Stop(ctx), "second stop is a no-op")
}

// Independent dispatchers (separate processes) share one store.
func TestDispatcher_AtMostOneInFlightPerJob(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMockClock(t0)
	store := jobqueue.NewMemoryStore(nil)
	queue := jobqueue.NewQueue(store, nil, discardLogger())
	handler := newRecordingHandler()
	handler.block = make(chan struct{})

	job := newJob(t0)
	_, err := queue.Admit(ctx, job)
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan int, 10)
	for i := range 10 {
		d := jobqueue.NewDispatcher(queue, handler, jobqueue.DefaultRetryPolicy(), nil, clk, discardLogger(),
			jobqueue.DispatcherConfig{WorkerID: fmt.Sprintf("w%d", i), Concurrency: 4, Lease: time.Minute})
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- d.ProcessDue(ctx)
		}()
	}

	assert.Eventually(t, func() bool { return handler.inFlight.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(handler.block)
	wg.Wait()
	close(results)

	total := 0
	for n := range results {
		total += n
	}
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, handler.callsFor(job.ID))
	assert.EqualValues(t, 1, handler.maxInFlight.Load())
}

func TestDispatcher_ReadmittedAfterOutageRunsOnce(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewMockClock(t0)
	primary := newSwitchableStore()
	fallback := jobqueue.NewMemoryStore(nil)
	queue := jobqueue.NewQueue(primary, fallback, discardLogger())
	handler := newRecordingHandler()
	handler.block = make(chan struct{})

	job := newJob(t0.Add(time.Hour))
	primary.down.Store(true)
	_, err := queue.Admit(ctx, job)
	require.NoError(t, err)

	primary.down.Store(false)
	job.NotBefore = t0
	_, err = queue.Admit(ctx, job)
	require.NoError(t, err)
	clk.Add(2 * time.Hour)

	d := jobqueue.NewDispatcher(queue, handler, jobqueue.DefaultRetryPolicy(), nil, clk, discardLogger(),
		jobqueue.DispatcherConfig{WorkerID: "w1", Concurrency: 4, Lease: time.Minute})
	done := make(chan int)
	go func() { done <- d.ProcessDue(ctx) }()

	assert.Eventually(t, func() bool { return handler.inFlight.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(handler.block)

	assert.Equal(t, 1, <-done)
	assert.Equal(t, 1, handler.callsFor(job.ID))
	assert.EqualValues(t, 1, handler.maxInFlight.Load())
}
