package jobstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"scheduled-mailer/internal/infra"
	"scheduled-mailer/internal/jobqueue"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Members of the due set are "<seq:%020d>:<id>" so equal scores fall back to
// admission order.
const memberSeqWidth = 20

var (
	// KEYS: due zset, data hash, member hash, lease key
	// ARGV: id, score, member, job json
	admitScript = redis.NewScript(`
local old = redis.call('HGET', KEYS[3], ARGV[1])
if old then redis.call('ZREM', KEYS[1], old) end
redis.call('ZADD', KEYS[1], ARGV[2], ARGV[3])
redis.call('HSET', KEYS[2], ARGV[1], ARGV[4])
redis.call('HSET', KEYS[3], ARGV[1], ARGV[3])
return 1`)

	// KEYS: due zset, data hash, member hash, lease key
	// ARGV: id
	removeScript = redis.NewScript(`
local member = redis.call('HGET', KEYS[3], ARGV[1])
if not member then return 0 end
redis.call('ZREM', KEYS[1], member)
redis.call('HDEL', KEYS[2], ARGV[1])
redis.call('HDEL', KEYS[3], ARGV[1])
redis.call('DEL', KEYS[4])
return 1`)

	// KEYS: due zset, data hash, member hash, lease key
	// ARGV: id, worker
	completeScript = redis.NewScript(`
if redis.call('GET', KEYS[4]) ~= ARGV[2] then return 0 end
local member = redis.call('HGET', KEYS[3], ARGV[1])
if member then redis.call('ZREM', KEYS[1], member) end
redis.call('HDEL', KEYS[2], ARGV[1])
redis.call('HDEL', KEYS[3], ARGV[1])
redis.call('DEL', KEYS[4])
return 1`)

	// KEYS: due zset, data hash, member hash, lease key
	// ARGV: id, worker, score, member, job json
	retryScript = redis.NewScript(`
local old = redis.call('HGET', KEYS[3], ARGV[1])
if not old then return 0 end
local holder = redis.call('GET', KEYS[4])
if holder and holder ~= ARGV[2] then return 0 end
redis.call('ZREM', KEYS[1], old)
redis.call('ZADD', KEYS[1], ARGV[3], ARGV[4])
redis.call('HSET', KEYS[2], ARGV[1], ARGV[5])
redis.call('HSET', KEYS[3], ARGV[1], ARGV[4])
redis.call('DEL', KEYS[4])
return 1`)

	// KEYS: due zset, data hash
	// ARGV: now ms, limit, worker, lease ms, lease key prefix, seq width
	claimScript = redis.NewScript(`
local members = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1])
local limit = tonumber(ARGV[2])
local out = {}
for _, m in ipairs(members) do
  if #out >= limit then break end
  local id = string.sub(m, tonumber(ARGV[6]) + 2)
  if redis.call('SET', ARGV[5] .. id, ARGV[3], 'NX', 'PX', ARGV[4]) then
    local data = redis.call('HGET', KEYS[2], id)
    if data then
      table.insert(out, data)
    else
      redis.call('ZREM', KEYS[1], m)
      redis.call('DEL', ARGV[5] .. id)
    end
  end
end
return out`)
)

// Redis is a durable job store on a sorted set scored by NotBefore. Claims
// run inside a Lua script, so selection and lease are one atomic step.
type Redis struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

func NewRedis(client *redis.Client, prefix string, logger *slog.Logger) *Redis {
	if prefix == "" {
		prefix = "mailer"
	}
	return &Redis{
		client: client,
		prefix: prefix,
		logger: logger.With(slog.String("component", "jobstore.redis")),
	}
}

func (s *Redis) Name() string  { return "redis" }
func (s *Redis) Durable() bool { return true }

func (s *Redis) dueKey() string      { return s.prefix + ":jobs:due" }
func (s *Redis) dataKey() string     { return s.prefix + ":jobs:data" }
func (s *Redis) memberKey() string   { return s.prefix + ":jobs:member" }
func (s *Redis) seqKey() string      { return s.prefix + ":jobs:seq" }
func (s *Redis) leasePrefix() string { return s.prefix + ":jobs:lease:" }

func (s *Redis) keys(id uuid.UUID) []string {
	return []string{s.dueKey(), s.dataKey(), s.memberKey(), s.leasePrefix() + id.String()}
}

func member(seq int64, id uuid.UUID) string {
	return fmt.Sprintf("%0*d:%s", memberSeqWidth, seq, id)
}

func (s *Redis) encode(ctx context.Context, job jobqueue.Job) (jobqueue.Job, string, error) {
	seq, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return job, "", err
	}
	job.Seq = seq
	data, err := json.Marshal(job)
	if err != nil {
		return job, "", err
	}
	return job, string(data), nil
}

func (s *Redis) Admit(ctx context.Context, job jobqueue.Job) error {
	job, data, err := s.encode(ctx, job)
	if err != nil {
		return infra.WrapRepoErr(s.logger, infra.KindDBFailure, "failed to prepare job", err)
	}

	err = admitScript.Run(ctx, s.client, s.keys(job.ID),
		job.ID.String(), job.NotBefore.UnixMilli(), member(job.Seq, job.ID), data).Err()
	if err != nil {
		return infra.WrapRepoErr(s.logger, infra.KindDBFailure, "failed to admit job", err)
	}
	return nil
}

func (s *Redis) Remove(ctx context.Context, id uuid.UUID) (bool, error) {
	n, err := removeScript.Run(ctx, s.client, s.keys(id), id.String()).Int()
	if err != nil {
		return false, infra.WrapRepoErr(s.logger, infra.KindDBFailure, "failed to remove job", err)
	}
	return n == 1, nil
}

func (s *Redis) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	ok, err := s.client.HExists(ctx, s.memberKey(), id.String()).Result()
	if err != nil {
		return false, infra.WrapRepoErr(s.logger, infra.KindDBFailure, "failed to check job", err)
	}
	return ok, nil
}

func (s *Redis) Claim(ctx context.Context, req jobqueue.ClaimRequest) ([]jobqueue.Job, error) {
	raw, err := claimScript.Run(ctx, s.client, []string{s.dueKey(), s.dataKey()},
		req.Now.UnixMilli(), req.Limit, req.WorkerID, req.Lease.Milliseconds(), s.leasePrefix(), memberSeqWidth,
	).StringSlice()
	if err != nil {
		return nil, infra.WrapRepoErr(s.logger, infra.KindDBFailure, "failed to claim jobs", err)
	}

	jobs := make([]jobqueue.Job, 0, len(raw))
	for _, data := range raw {
		var job jobqueue.Job
		if err := json.NewDecoder(strings.NewReader(data)).Decode(&job); err != nil {
			return nil, infra.WrapRepoErr(s.logger, infra.KindDBFailure, "failed to decode claimed job", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (s *Redis) Complete(ctx context.Context, id uuid.UUID, workerID string) error {
	if err := completeScript.Run(ctx, s.client, s.keys(id), id.String(), workerID).Err(); err != nil {
		return infra.WrapRepoErr(s.logger, infra.KindDBFailure, "failed to complete job", err)
	}
	return nil
}

func (s *Redis) Retry(ctx context.Context, job jobqueue.Job, workerID string) error {
	job, data, err := s.encode(ctx, job)
	if err != nil {
		return infra.WrapRepoErr(s.logger, infra.KindDBFailure, "failed to prepare job", err)
	}

	err = retryScript.Run(ctx, s.client, s.keys(job.ID),
		job.ID.String(), workerID, job.NotBefore.UnixMilli(), member(job.Seq, job.ID), data).Err()
	if err != nil {
		return infra.WrapRepoErr(s.logger, infra.KindDBFailure, "failed to reschedule job", err)
	}
	return nil
}

func (s *Redis) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
