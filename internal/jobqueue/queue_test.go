//go:build unit

package jobqueue_test

import (
	"context"
	"testing"
	"time"

	"scheduled-mailer/internal/jobqueue"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Admit(ctx context.Context, job jobqueue.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockStore) Remove(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) Claim(ctx context.Context, req jobqueue.ClaimRequest) ([]jobqueue.Job, error) {
	args := m.Called(ctx, req)
	return args.Get(0).([]jobqueue.Job), args.Error(1)
}

func (m *MockStore) Complete(ctx context.Context, id uuid.UUID, workerID string) error {
	args := m.Called(ctx, id, workerID)
	return args.Error(0)
}

func (m *MockStore) Retry(ctx context.Context, job jobqueue.Job, workerID string) error {
	args := m.Called(ctx, job, workerID)
	return args.Error(0)
}

func (m *MockStore) Durable() bool { return true }
func (m *MockStore) Name() string  { return "mock" }

func TestQueue_Admit(t *testing.T) {
	ctx := context.Background()

	t.Run("durable store accepts", func(t *testing.T) {
		primary := new(MockStore)
		fallback := jobqueue.NewMemoryStore(nil)
		q := jobqueue.NewQueue(primary, fallback, discardLogger())

		job := newJob(t0)
		primary.On("Admit", mock.Anything, job).Return(nil).Once()

		adm, err := q.Admit(ctx, job)
		require.NoError(t, err)
		assert.True(t, adm.Durable)
		assert.False(t, adm.Degraded)
		assert.Equal(t, 0, fallback.Len())
		primary.AssertExpectations(t)
	})

	t.Run("unreachable store degrades to fallback", func(t *testing.T) {
		primary := new(MockStore)
		fallback := jobqueue.NewMemoryStore(nil)
		q := jobqueue.NewQueue(primary, fallback, discardLogger())

		job := newJob(t0)
		primary.On("Admit", mock.Anything, job).Return(assert.AnError).Once()

		adm, err := q.Admit(ctx, job)
		require.NoError(t, err)
		assert.False(t, adm.Durable)
		assert.True(t, adm.Degraded)
		assert.Equal(t, "memory", adm.Store)
		assert.Equal(t, 1, fallback.Len())
	})

	t.Run("recovered store takes over a job parked in the fallback", func(t *testing.T) {
		primary := newSwitchableStore()
		fallback := jobqueue.NewMemoryStore(nil)
		q := jobqueue.NewQueue(primary, fallback, discardLogger())

		job := newJob(t0.Add(time.Hour))
		primary.down.Store(true)
		adm, err := q.Admit(ctx, job)
		require.NoError(t, err)
		require.True(t, adm.Degraded)

		primary.down.Store(false)
		job.NotBefore = t0
		adm, err = q.Admit(ctx, job)
		require.NoError(t, err)
		assert.False(t, adm.Degraded)
		assert.Equal(t, 0, fallback.Len())
		assert.Equal(t, 1, primary.Len())
	})

	t.Run("unreachable store without fallback", func(t *testing.T) {
		primary := new(MockStore)
		q := jobqueue.NewQueue(primary, nil, discardLogger())

		job := newJob(t0)
		primary.On("Admit", mock.Anything, job).Return(assert.AnError).Once()

		_, err := q.Admit(ctx, job)
		assert.ErrorIs(t, err, jobqueue.ErrQueueUnavailable)
	})

	t.Run("malformed payload never reaches a store", func(t *testing.T) {
		primary := new(MockStore)
		q := jobqueue.NewQueue(primary, nil, discardLogger())

		job := newJob(t0)
		job.Payload.Recipient = "nobody"

		_, err := q.Admit(ctx, job)
		assert.ErrorIs(t, err, jobqueue.ErrInvalidJob)
		primary.AssertNotCalled(t, "Admit", mock.Anything, mock.Anything)
	})
}

func TestQueue_Remove(t *testing.T) {
	ctx := context.Background()
	primary := new(MockStore)
	fallback := jobqueue.NewMemoryStore(nil)
	q := jobqueue.NewQueue(primary, fallback, discardLogger())

	job := newJob(t0)
	require.NoError(t, fallback.Admit(ctx, job))
	primary.On("Remove", mock.Anything, job.ID).Return(false, nil).Once()

	removed, err := q.Remove(ctx, job.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Equal(t, 0, fallback.Len())

	primary.On("Remove", mock.Anything, job.ID).Return(false, assert.AnError).Once()
	_, err = q.Remove(ctx, job.ID)
	assert.ErrorIs(t, err, jobqueue.ErrQueueUnavailable)
}

func TestJob_Validate(t *testing.T) {
	valid := newJob(t0)
	require.NoError(t, valid.Validate())

	cases := map[string]func(j *jobqueue.Job){
		"nil id":       func(j *jobqueue.Job) { j.ID = uuid.Nil },
		"nil owner":    func(j *jobqueue.Job) { j.Payload.OwnerID = uuid.Nil },
		"bad address":  func(j *jobqueue.Job) { j.Payload.Recipient = "x" },
		"no subject":   func(j *jobqueue.Job) { j.Payload.Subject = " " },
		"zero time":    func(j *jobqueue.Job) { j.NotBefore = time.Time{} },
		"no attempts":  func(j *jobqueue.Job) { j.MaxAttempts = 0 },
		"negative try": func(j *jobqueue.Job) { j.Attempt = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			j := newJob(t0)
			mutate(&j)
			assert.ErrorIs(t, j.Validate(), jobqueue.ErrInvalidJob)
		})
	}
}

type pingingStore struct {
	*jobqueue.MemoryStore
	err error
}

func (s *pingingStore) Ping(context.Context) error { return s.err }

func TestQueue_Health(t *testing.T) {
	ctx := context.Background()

	t.Run("memory primary has nothing to ping", func(t *testing.T) {
		q := jobqueue.NewQueue(jobqueue.NewMemoryStore(nil), nil, discardLogger())
		assert.Equal(t, "memory", q.Backend())
		assert.False(t, q.Durable())
		assert.NoError(t, q.Ping(ctx))
		assert.Equal(t, 0, q.Held())
	})

	t.Run("primary ping error surfaces", func(t *testing.T) {
		q := jobqueue.NewQueue(&pingingStore{MemoryStore: jobqueue.NewMemoryStore(nil), err: assert.AnError}, nil, discardLogger())
		assert.ErrorIs(t, q.Ping(ctx), assert.AnError)
	})

	t.Run("parked jobs are counted", func(t *testing.T) {
		primary := newSwitchableStore()
		primary.down.Store(true)
		q := jobqueue.NewQueue(primary, jobqueue.NewMemoryStore(nil), discardLogger())

		_, err := q.Admit(ctx, newJob(t0))
		require.NoError(t, err)
		assert.Equal(t, "switchable", q.Backend())
		assert.Equal(t, 1, q.Held())
	})
}
