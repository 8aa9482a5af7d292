package components

import (
	"context"
	"log/slog"
	"time"

	"scheduled-mailer/internal/infra/repository"
	"scheduled-mailer/internal/pkg/config"
	"scheduled-mailer/internal/usecase/commands"
	"scheduled-mailer/internal/usecase/delivery"
	"scheduled-mailer/internal/usecase/queries"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.uber.org/fx"
)

var RepositoryModule = fx.Module("repository",
	fx.Provide(
		fx.Annotate(
			NewEmailStore,
			fx.As(new(repository.EmailStore)),
			fx.As(new(commands.EmailRepository)),
			fx.As(new(delivery.EmailStore)),
			fx.As(new(queries.EmailReadStore)),
		),
	),
)

// NewEmailStore picks the record backend. A configured backend that could
// not be reached leaves only the in-memory store.
func NewEmailStore(cfg config.Config, pool *pgxpool.Pool, mongoClient *mongo.Client, logger *slog.Logger) (repository.EmailStore, error) {
	memory := repository.NewMemoryEmailRepository(logger)

	var primary repository.EmailStore
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		if pool != nil {
			primary = repository.NewEmailRepository(pool, logger)
		}
	case config.BackendMongo:
		if mongoClient != nil {
			coll := mongoClient.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection)
			mongoRepo := repository.NewMongoEmailRepository(coll, logger)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := mongoRepo.EnsureIndexes(ctx); err != nil {
				return nil, err
			}
			primary = mongoRepo
		}
	}

	if primary == nil {
		logger.Warn("email records are kept in memory only",
			slog.String("store_backend", cfg.Store.Backend),
			slog.Bool("durable", false),
		)
		return memory, nil
	}
	return repository.NewFailoverEmailRepository(primary, memory, logger), nil
}
