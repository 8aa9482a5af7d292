package repository

import (
	"context"
	"log/slog"
	"time"

	"scheduled-mailer/internal/domain/email"
	"scheduled-mailer/internal/infra"
	"scheduled-mailer/internal/infra/converter"
	"scheduled-mailer/internal/usecase/readmodel"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type emailDocument struct {
	ID          string     `bson:"_id"`
	OwnerID     string     `bson:"owner_id"`
	Recipient   string     `bson:"recipient"`
	Subject     string     `bson:"subject"`
	Body        string     `bson:"body"`
	Status      string     `bson:"status"`
	ScheduledAt time.Time  `bson:"scheduled_at"`
	SentAt      *time.Time `bson:"sent_at,omitempty"`
	MessageID   string     `bson:"message_id,omitempty"`
	LastError   string     `bson:"last_error,omitempty"`
	CreatedAt   time.Time  `bson:"created_at"`
	UpdatedAt   time.Time  `bson:"updated_at"`
}

func documentFromSnapshot(s email.Snapshot) emailDocument {
	return emailDocument{
		ID:          s.ID.String(),
		OwnerID:     s.OwnerID.String(),
		Recipient:   s.Recipient,
		Subject:     s.Subject,
		Body:        s.Body,
		Status:      s.Status,
		ScheduledAt: s.ScheduledAt,
		SentAt:      s.SentAt,
		MessageID:   s.MessageID,
		LastError:   s.LastError,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

func (d emailDocument) snapshot() (email.Snapshot, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return email.Snapshot{}, err
	}
	ownerID, err := uuid.Parse(d.OwnerID)
	if err != nil {
		return email.Snapshot{}, err
	}

	// BSON datetimes come back in local time with millisecond precision
	var sentAt *time.Time
	if d.SentAt != nil {
		t := d.SentAt.UTC()
		sentAt = &t
	}
	return email.Snapshot{
		ID:          id,
		OwnerID:     ownerID,
		Recipient:   d.Recipient,
		Subject:     d.Subject,
		Body:        d.Body,
		Status:      d.Status,
		ScheduledAt: d.ScheduledAt.UTC(),
		SentAt:      sentAt,
		MessageID:   d.MessageID,
		LastError:   d.LastError,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}, nil
}

// MongoEmailRepository keeps one document per email record.
type MongoEmailRepository struct {
	coll   *mongo.Collection
	logger *slog.Logger
}

var _ EmailStore = (*MongoEmailRepository)(nil)

func NewMongoEmailRepository(coll *mongo.Collection, logger *slog.Logger) *MongoEmailRepository {
	return &MongoEmailRepository{
		coll:   coll,
		logger: logger.With(slog.String("component", "repository.email.mongo")),
	}
}

// EnsureIndexes creates the indexes listing and reconciliation rely on.
func (r *MongoEmailRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "scheduled_at", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "scheduled_at", Value: 1}}},
	})
	if err != nil {
		return infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to create email indexes", err)
	}
	return nil
}

func (r *MongoEmailRepository) Create(ctx context.Context, e *email.Email) (bool, error) {
	if _, err := r.coll.InsertOne(ctx, documentFromSnapshot(e.Snapshot())); err != nil {
		return false, infra.WrapRepoErr(r.logger, infra.Classify(err), "failed to insert email", err)
	}
	return true, nil
}

func (r *MongoEmailRepository) FindByID(ctx context.Context, id uuid.UUID) (*email.Email, error) {
	var doc emailDocument
	err := r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: id.String()}}).Decode(&doc)
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.Classify(err), "failed to find email", err)
	}
	return r.toDomain(doc)
}

func (r *MongoEmailRepository) Delete(ctx context.Context, ownerID, id uuid.UUID) (bool, error) {
	res, err := r.coll.DeleteOne(ctx, bson.D{
		{Key: "_id", Value: id.String()},
		{Key: "owner_id", Value: ownerID.String()},
	})
	if err != nil {
		return false, infra.WrapRepoErr(r.logger, infra.Classify(err), "failed to delete email", err)
	}
	return res.DeletedCount > 0, nil
}

func (r *MongoEmailRepository) ListScheduled(ctx context.Context) ([]*email.Email, error) {
	docs, err := r.find(ctx,
		bson.D{{Key: "status", Value: email.StatusScheduled.String()}},
		bson.D{{Key: "scheduled_at", Value: 1}, {Key: "created_at", Value: 1}},
	)
	if err != nil {
		return nil, err
	}

	out := make([]*email.Email, 0, len(docs))
	for _, doc := range docs {
		e, err := r.toDomain(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *MongoEmailRepository) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time, messageID string) (bool, error) {
	return r.transition(ctx, id, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "status", Value: email.StatusSent.String()},
			{Key: "sent_at", Value: sentAt},
			{Key: "message_id", Value: messageID},
			{Key: "updated_at", Value: sentAt},
		}},
		{Key: "$unset", Value: bson.D{{Key: "last_error", Value: ""}}},
	})
}

func (r *MongoEmailRepository) MarkFailed(ctx context.Context, id uuid.UUID, at time.Time, reason string) (bool, error) {
	return r.transition(ctx, id, bson.D{
		{Key: "$set", Value: bson.D{
			{Key: "status", Value: email.StatusFailed.String()},
			{Key: "last_error", Value: reason},
			{Key: "updated_at", Value: at},
		}},
	})
}

func (r *MongoEmailRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*readmodel.EmailRM, error) {
	docs, err := r.find(ctx,
		bson.D{{Key: "owner_id", Value: ownerID.String()}},
		bson.D{{Key: "scheduled_at", Value: -1}, {Key: "created_at", Value: -1}},
	)
	if err != nil {
		return nil, err
	}

	out := make([]*readmodel.EmailRM, 0, len(docs))
	for _, doc := range docs {
		s, err := doc.snapshot()
		if err != nil {
			return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "malformed email document", err)
		}
		out = append(out, converter.EmailToReadModel(s))
	}
	return out, nil
}

func (r *MongoEmailRepository) CountByStatus(ctx context.Context, ownerID uuid.UUID) (*readmodel.EmailStatsRM, error) {
	cursor, err := r.coll.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "owner_id", Value: ownerID.String()}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	})
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.Classify(err), "failed to count emails", err)
	}

	var groups []struct {
		Status string `bson:"_id"`
		Count  int    `bson:"count"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to read email counts", err)
	}

	counts := make(map[string]int, len(groups))
	for _, g := range groups {
		counts[g.Status] = g.Count
	}
	return converter.StatsFromCounts(counts), nil
}

func (r *MongoEmailRepository) Backend() string { return "mongo" }
func (r *MongoEmailRepository) Durable() bool   { return true }

func (r *MongoEmailRepository) Ping(ctx context.Context) error {
	return r.coll.Database().Client().Ping(ctx, nil)
}

// transition applies update only while the record is still SCHEDULED.
func (r *MongoEmailRepository) transition(ctx context.Context, id uuid.UUID, update bson.D) (bool, error) {
	res, err := r.coll.UpdateOne(ctx, bson.D{
		{Key: "_id", Value: id.String()},
		{Key: "status", Value: email.StatusScheduled.String()},
	}, update)
	if err != nil {
		return false, infra.WrapRepoErr(r.logger, infra.Classify(err), "failed to update email status", err)
	}
	return res.ModifiedCount > 0, nil
}

func (r *MongoEmailRepository) find(ctx context.Context, filter, sort bson.D) ([]emailDocument, error) {
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.Classify(err), "failed to query emails", err)
	}

	var docs []emailDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to decode emails", err)
	}
	return docs, nil
}

func (r *MongoEmailRepository) toDomain(doc emailDocument) (*email.Email, error) {
	s, err := doc.snapshot()
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "malformed email document", err)
	}
	e, err := email.Reconstruct(s)
	if err != nil {
		return nil, infra.WrapRepoErr(r.logger, infra.KindDBFailure, "failed to reconstruct email", err)
	}
	return e, nil
}
