package jobstore

import (
	"context"
	"log/slog"
	"time"

	"scheduled-mailer/internal/jobqueue"
	"scheduled-mailer/internal/pkg/clock"
	"scheduled-mailer/internal/pkg/errs"

	"github.com/redis/go-redis/v9"
)

var (
	// GCRA over a single theoretical-arrival-time key.
	// KEYS: tat key
	// ARGV: now ms, emission interval ms, burst tolerance ms
	acquireScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local emission = tonumber(ARGV[2])
local tolerance = tonumber(ARGV[3])
local tat = tonumber(redis.call('GET', KEYS[1]) or now)
if tat < now then tat = now end
if tat - now > tolerance then return {0, tat} end
local next = tat + emission
redis.call('SET', KEYS[1], next, 'PX', next - now + emission)
return {1, next}`)

	// KEYS: tat key
	// ARGV: tat written by the acquire being refunded, emission interval ms
	refundScript = redis.NewScript(`
if tonumber(redis.call('GET', KEYS[1])) ~= tonumber(ARGV[1]) then return 0 end
redis.call('SET', KEYS[1], tonumber(ARGV[1]) - tonumber(ARGV[2]), 'KEEPTTL')
return 1`)
)

// RedisLimiter shares the dispatch rate across every process pointed at the
// same Redis. When Redis cannot be reached it falls back to a per-process
// limiter and reports the error.
type RedisLimiter struct {
	client    *redis.Client
	key       string
	emission  time.Duration
	tolerance time.Duration
	clock     clock.Clock
	fallback  jobqueue.Limiter
	logger    *slog.Logger
}

func NewRedisLimiter(client *redis.Client, prefix string, max int, interval time.Duration, clk clock.Clock, logger *slog.Logger) *RedisLimiter {
	if max < 1 {
		max = 1
	}
	if prefix == "" {
		prefix = "mailer"
	}
	emission := interval / time.Duration(max)
	return &RedisLimiter{
		client:    client,
		key:       prefix + ":ratelimit:dispatch",
		emission:  emission,
		tolerance: emission * time.Duration(max-1),
		clock:     clk,
		fallback:  jobqueue.NewLocalLimiter(max, interval, clk),
		logger:    logger.With(slog.String("component", "ratelimit.redis")),
	}
}

func (l *RedisLimiter) TryAcquire(ctx context.Context) (func(), bool, error) {
	now := l.clock.Now().UnixMilli()
	res, err := acquireScript.Run(ctx, l.client, []string{l.key},
		now, l.emission.Milliseconds(), l.tolerance.Milliseconds()).Int64Slice()
	if err != nil || len(res) != 2 {
		if err == nil {
			err = errs.New("unexpected limiter reply")
		}
		release, ok, _ := l.fallback.TryAcquire(ctx)
		return release, ok, errs.Wrap(err, "redis rate limiter")
	}
	if res[0] == 0 {
		return nil, false, nil
	}

	tat := res[1]
	return func() {
		// refund must not depend on the caller's context being alive
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if err := refundScript.Run(rctx, l.client, []string{l.key}, tat, l.emission.Milliseconds()).Err(); err != nil {
			l.logger.WarnContext(rctx, "rate token refund failed", slog.String("error", err.Error()))
		}
	}, true, nil
}
