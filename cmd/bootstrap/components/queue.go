package components

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"scheduled-mailer/internal/infra/jobstore"
	"scheduled-mailer/internal/jobqueue"
	"scheduled-mailer/internal/pkg/clock"
	"scheduled-mailer/internal/pkg/config"
	"scheduled-mailer/internal/usecase/commands"
	"scheduled-mailer/internal/usecase/delivery"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

var QueueModule = fx.Module("queue",
	fx.Provide(
		NewJobQueue,
		NewLimiter,
		NewRetryPolicy,
		func(q *jobqueue.Queue) commands.JobQueue { return q },
	),
)

// WorkerModule runs the dispatcher for the lifetime of the app.
var WorkerModule = fx.Module("worker",
	fx.Provide(
		fx.Annotate(
			delivery.NewExecutor,
			fx.As(new(jobqueue.Handler)),
		),
		NewExecutorConfig,
		NewDispatcher,
	),
	fx.Invoke(
		startDispatcher,
		startReconciler,
	),
)

func NewRetryPolicy(cfg config.Config) jobqueue.RetryPolicy {
	return jobqueue.RetryPolicy{Base: cfg.Queue.RetryBase, MaxAttempts: cfg.Queue.MaxAttempts}
}

// NewJobQueue pairs the configured store with an in-memory fallback. When the
// configured store could not be reached the memory store is all there is.
func NewJobQueue(cfg config.Config, pool *pgxpool.Pool, redisClient *redis.Client, logger *slog.Logger) *jobqueue.Queue {
	var primary jobqueue.Store
	switch cfg.Queue.Backend {
	case config.BackendPostgres:
		if pool != nil {
			primary = jobstore.NewPostgres(pool, logger)
		}
	case config.BackendRedis:
		if redisClient != nil {
			primary = jobstore.NewRedis(redisClient, cfg.Redis.KeyPrefix, logger)
		}
	}

	if primary == nil {
		logger.Error("DELIVERY QUEUE IS NOT DURABLE: jobs are held in memory and lost on restart",
			slog.String("queue_backend", cfg.Queue.Backend),
		)
		return jobqueue.NewQueue(jobqueue.NewMemoryStore(logger), nil, logger)
	}
	return jobqueue.NewQueue(primary, jobqueue.NewMemoryStore(logger), logger)
}

// NewLimiter shares the dispatch rate through Redis when the queue lives
// there, otherwise the limit holds per process.
func NewLimiter(cfg config.Config, redisClient *redis.Client, clk clock.Clock, logger *slog.Logger) jobqueue.Limiter {
	qc := cfg.Queue
	if qc.Backend == config.BackendRedis && redisClient != nil {
		return jobstore.NewRedisLimiter(redisClient, cfg.Redis.KeyPrefix, qc.RateLimitMax, qc.RateLimitInterval, clk, logger)
	}
	return jobqueue.NewLocalLimiter(qc.RateLimitMax, qc.RateLimitInterval, clk)
}

func NewExecutorConfig(cfg config.Config) delivery.Config {
	return delivery.Config{From: cfg.Mail.From, AttemptTimeout: cfg.Queue.AttemptTimeout}
}

func NewDispatcher(cfg config.Config, queue *jobqueue.Queue, handler jobqueue.Handler, policy jobqueue.RetryPolicy, limiter jobqueue.Limiter, clk clock.Clock, logger *slog.Logger) *jobqueue.Dispatcher {
	return jobqueue.NewDispatcher(queue, handler, policy, limiter, clk, logger, jobqueue.DispatcherConfig{
		WorkerID:     workerID(),
		Concurrency:  cfg.Queue.WorkerConcurrency,
		PollInterval: cfg.Queue.PollInterval,
		Lease:        cfg.Queue.LeaseDuration,
	})
}

func workerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%s", host, uuid.NewString()[:8])
}

func startDispatcher(lc fx.Lifecycle, d *jobqueue.Dispatcher) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			d.Start(ctx)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return d.Stop(ctx)
		},
	})
}

// startReconciler re-admits SCHEDULED records whose queue entry is missing,
// once at startup and then every RECONCILE_INTERVAL.
func startReconciler(lc fx.Lifecycle, cfg config.Config, cmds commands.EmailCommands, logger *slog.Logger) {
	interval := cfg.Queue.ReconcileInterval
	var (
		cancel context.CancelFunc
		done   chan struct{}
	)

	reconcile := func(ctx context.Context) {
		if _, err := cmds.Reconcile(ctx); err != nil {
			logger.ErrorContext(ctx, "reconcile failed", slog.String("error", err.Error()))
		}
	}

	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			var ctx context.Context
			ctx, cancel = context.WithCancel(context.Background())
			done = make(chan struct{})

			go func() {
				defer close(done)
				reconcile(ctx)
				if interval <= 0 {
					return
				}
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						reconcile(ctx)
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}
