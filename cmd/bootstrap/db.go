package bootstrap

import (
	"context"
	"log/slog"

	"scheduled-mailer/internal/infra/db"
	"scheduled-mailer/internal/pkg/config"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.uber.org/fx"
)

var DBModule = fx.Module("db",
	fx.Provide(
		NewDB,
		NewRedis,
		NewMongo,
	),
)

// NewDB returns a nil pool when no component is configured for Postgres or
// when it cannot be reached. Callers fall back to in-memory storage then.
func NewDB(lc fx.Lifecycle, cfg config.Config, logger *slog.Logger) (*pgxpool.Pool, error) {
	if cfg.Store.Backend != config.BackendPostgres && cfg.Queue.Backend != config.BackendPostgres {
		return nil, nil
	}

	pool, cleanup, err := db.Connect(cfg.DB)
	if err != nil {
		logger.Error("POSTGRES UNAVAILABLE: falling back to in-memory storage, data will be lost on restart",
			slog.String("host", cfg.DB.Host),
			slog.String("error", err.Error()),
		)
		return nil, nil
	}

	if cfg.DB.MigrationsAuto {
		if err := db.Migrate(context.Background(), cfg.DB, logger); err != nil {
			cleanup()
			return nil, err
		}
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			cleanup()
			return nil
		},
	})

	return pool, nil
}

func NewRedis(lc fx.Lifecycle, cfg config.Config, logger *slog.Logger) (*redis.Client, error) {
	if cfg.Queue.Backend != config.BackendRedis {
		return nil, nil
	}

	client, err := db.ConnectRedis(context.Background(), cfg.Redis)
	if err != nil {
		logger.Error("REDIS UNAVAILABLE: delivery queue falls back to memory, jobs will be lost on restart",
			slog.String("error", err.Error()),
		)
		return nil, nil
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return client.Close()
		},
	})
	return client, nil
}

func NewMongo(lc fx.Lifecycle, cfg config.Config, logger *slog.Logger) (*mongo.Client, error) {
	if cfg.Store.Backend != config.BackendMongo {
		return nil, nil
	}

	client, err := db.ConnectMongo(context.Background(), cfg.Mongo)
	if err != nil {
		logger.Error("MONGO UNAVAILABLE: falling back to in-memory storage, data will be lost on restart",
			slog.String("error", err.Error()),
		)
		return nil, nil
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Disconnect(ctx)
		},
	})
	return client, nil
}
