//go:build e2e

package recordstore_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"scheduled-mailer/internal/domain/email"
	"scheduled-mailer/internal/infra"
	"scheduled-mailer/internal/infra/repository"
	"scheduled-mailer/internal/usecase/readmodel"
	"scheduled-mailer/tests/e2e"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type mongoStoreSuite struct {
	e2e.SharedSuite
	repo *repository.MongoEmailRepository
}

func TestMongoStoreSuite(t *testing.T) {
	suite.Run(t, new(mongoStoreSuite))
}

func (s *mongoStoreSuite) SetupSuite() {
	s.WithoutWorker = true
	s.WithMongo = true
	s.SharedSuite.SetupSuite()
}

func (s *mongoStoreSuite) SetupTest() {
	s.SharedSuite.SetupTest()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	coll := s.Mongo.Database(s.MongoDatabase).Collection("emails")
	s.repo = repository.NewMongoEmailRepository(coll, logger)
	s.Require().NoError(s.repo.EnsureIndexes(context.Background()))
}

func (s *mongoStoreSuite) create(owner uuid.UUID, scheduledAt time.Time) *email.Email {
	e, err := email.NewEmail(uuid.New(), owner, "user@example.com", "Hello", "body", scheduledAt, t0)
	s.Require().NoError(err)
	durable, err := s.repo.Create(context.Background(), e)
	s.Require().NoError(err)
	s.True(durable)
	return e
}

func (s *mongoStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	owner := uuid.New()
	created := s.create(owner, t0.Add(time.Hour))

	got, err := s.repo.FindByID(ctx, created.ID())
	s.Require().NoError(err)
	if diff := cmp.Diff(created.Snapshot(), got.Snapshot()); diff != "" {
		s.Failf("snapshot mismatch", "(-want +got):\n%s", diff)
	}

	_, err = s.repo.Create(ctx, created)
	s.True(infra.IsKind(err, infra.KindDuplicateKey), "got %v", err)

	_, err = s.repo.FindByID(ctx, uuid.New())
	s.True(infra.IsKind(err, infra.KindNotFound), "got %v", err)
}

func (s *mongoStoreSuite) TestTerminalStatusIsFinal() {
	ctx := context.Background()
	sent := s.create(uuid.New(), t0)
	failed := s.create(uuid.New(), t0)
	sentAt := t0.Add(time.Minute)

	changed, err := s.repo.MarkSent(ctx, sent.ID(), sentAt, "msg-1")
	s.Require().NoError(err)
	s.True(changed)

	changed, err = s.repo.MarkFailed(ctx, sent.ID(), sentAt, "late failure")
	s.Require().NoError(err)
	s.False(changed, "SENT must not become FAILED")

	changed, err = s.repo.MarkSent(ctx, sent.ID(), sentAt.Add(time.Minute), "msg-2")
	s.Require().NoError(err)
	s.False(changed, "second MarkSent is a no-op")

	got, err := s.repo.FindByID(ctx, sent.ID())
	s.Require().NoError(err)
	s.Equal(email.StatusSent, got.Status())
	s.Equal("msg-1", got.MessageID())
	s.Empty(got.LastError())
	s.Require().NotNil(got.SentAt())
	s.True(sentAt.Equal(*got.SentAt()))

	changed, err = s.repo.MarkFailed(ctx, failed.ID(), sentAt, "smtp 550")
	s.Require().NoError(err)
	s.True(changed)

	changed, err = s.repo.MarkSent(ctx, failed.ID(), sentAt, "msg-3")
	s.Require().NoError(err)
	s.False(changed, "FAILED must not become SENT")

	got, err = s.repo.FindByID(ctx, failed.ID())
	s.Require().NoError(err)
	s.Equal(email.StatusFailed, got.Status())
	s.Equal("smtp 550", got.LastError())
	s.Nil(got.SentAt())
}

func (s *mongoStoreSuite) TestConcurrentTransitionsApplyOnce() {
	ctx := context.Background()
	record := s.create(uuid.New(), t0)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var changed bool
			var err error
			if i%2 == 0 {
				changed, err = s.repo.MarkSent(ctx, record.ID(), t0, "msg")
			} else {
				changed, err = s.repo.MarkFailed(ctx, record.ID(), t0, "boom")
			}
			s.NoError(err)
			if changed {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	s.Equal(1, applied)
}

func (s *mongoStoreSuite) TestStatsAndListing() {
	ctx := context.Background()
	owner := uuid.New()
	first := s.create(owner, t0.Add(time.Hour))
	second := s.create(owner, t0.Add(2*time.Hour))
	third := s.create(owner, t0.Add(3*time.Hour))
	s.create(uuid.New(), t0.Add(time.Hour))

	_, err := s.repo.MarkSent(ctx, first.ID(), t0, "msg")
	s.Require().NoError(err)
	_, err = s.repo.MarkFailed(ctx, second.ID(), t0, "boom")
	s.Require().NoError(err)

	stats, err := s.repo.CountByStatus(ctx, owner)
	s.Require().NoError(err)
	s.Equal(&readmodel.EmailStatsRM{Total: 3, Sent: 1, Scheduled: 1, Failed: 1}, stats)

	empty, err := s.repo.CountByStatus(ctx, uuid.New())
	s.Require().NoError(err)
	s.Equal(&readmodel.EmailStatsRM{}, empty)

	rows, err := s.repo.ListByOwner(ctx, owner)
	s.Require().NoError(err)
	s.Require().Len(rows, 3)
	s.Equal([]uuid.UUID{third.ID(), second.ID(), first.ID()}, []uuid.UUID{rows[0].ID, rows[1].ID, rows[2].ID})

	scheduled, err := s.repo.ListScheduled(ctx)
	s.Require().NoError(err)
	s.Require().Len(scheduled, 2, "scheduled records across owners")
	s.True(scheduled[0].ScheduledAt().Before(scheduled[1].ScheduledAt()))
}

func (s *mongoStoreSuite) TestDeleteIsOwnerScoped() {
	ctx := context.Background()
	owner := uuid.New()
	record := s.create(owner, t0)

	deleted, err := s.repo.Delete(ctx, uuid.New(), record.ID())
	s.Require().NoError(err)
	s.False(deleted)

	deleted, err = s.repo.Delete(ctx, owner, record.ID())
	s.Require().NoError(err)
	s.True(deleted)

	deleted, err = s.repo.Delete(ctx, owner, record.ID())
	s.Require().NoError(err)
	s.False(deleted)
}

func (s *mongoStoreSuite) TestHealth() {
	s.Equal("mongo", s.repo.Backend())
	s.True(s.repo.Durable())
	s.NoError(s.repo.Ping(context.Background()))
}
