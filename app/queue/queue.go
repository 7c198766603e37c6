// Package queue implements durable priority job queues on Redis with worker pools.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "newsroom:queue:"

// priorityScale keeps the arrival sequence from ever crossing a priority boundary.
const priorityScale = 1e12

// popScript moves the lowest scored waiting job to the active hash atomically.
// It pops nothing while the queue is paused or the rate window is used up.
//
// KEYS: waiting, active, job prefix, paused, rate window counter
// ARGV: now (ms), rate max (0 disables), rate window (ms)
var popScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[4]) == 1 then
  return false
end
local rateMax = tonumber(ARGV[2])
if rateMax > 0 then
  local used = tonumber(redis.call('GET', KEYS[5]) or '0')
  if used >= rateMax then
    if redis.call('PTTL', KEYS[5]) < 0 then
      redis.call('PEXPIRE', KEYS[5], ARGV[3])
    end
    return false
  end
end
local popped = redis.call('ZPOPMIN', KEYS[1])
if #popped == 0 then
  return false
end
if rateMax > 0 then
  if redis.call('INCR', KEYS[5]) == 1 then
    redis.call('PEXPIRE', KEYS[5], ARGV[3])
  end
end
local id = popped[1]
redis.call('HSET', KEYS[2], id, ARGV[1])
local jobKey = KEYS[3] .. id
redis.call('HSET', jobKey, 'status', 'active')
redis.call('HINCRBY', jobKey, 'attempts', 1)
return id
`)

type keys struct {
	waiting   string
	delayed   string
	active    string
	completed string
	failed    string
	paused    string
	limiter   string
	seq       string
	job       string // prefix, job id appended
}

func newKeys(name string) keys {
	base := keyPrefix + name + ":"
	return keys{
		waiting:   base + "waiting",
		delayed:   base + "delayed",
		active:    base + "active",
		completed: base + "completed",
		failed:    base + "failed",
		paused:    base + "paused",
		limiter:   base + "limiter",
		seq:       base + "seq",
		job:       base + "job:",
	}
}

// Handler executes one job. Returning nil completes it; any other error is retried
// until retries run out, unless wrapped with Permanent.
type Handler func(ctx context.Context, job *Job) error

type Queue struct {
	client  redis.UniversalClient
	cfg     Config
	keys    keys
	now     func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	stopCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(client redis.UniversalClient, cfg Config) *Queue {
	cfg = cfg.withDefaults()

	return &Queue{
		client: client,
		cfg:    cfg,
		keys:   newKeys(cfg.Name),
		now:    time.Now,
	}
}

func (q *Queue) Name() string {
	return q.cfg.Name
}

// Enqueue stores payload as a new waiting job. Lower priority values run first.
func (q *Queue) Enqueue(ctx context.Context, payload any, priority int) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode job payload: %w", err)
	}

	seq, err := q.client.Incr(ctx, q.keys.seq).Result()
	if err != nil {
		return "", fmt.Errorf("failed to allocate job sequence: %w", err)
	}

	id := uuid.NewString()
	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, q.keys.job+id, map[string]any{
			"id":         id,
			"payload":    string(data),
			"priority":   priority,
			"attempts":   0,
			"status":     string(StatusWaiting),
			"created_at": q.now().UnixMilli(),
		})
		pipe.ZAdd(ctx, q.keys.waiting, redis.Z{Score: waitingScore(priority, seq), Member: id})
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to enqueue job: %w", err)
	}

	return id, nil
}

func (q *Queue) Get(ctx context.Context, id string) (*Job, error) {
	fields, err := q.client.HGetAll(ctx, q.keys.job+id).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrJobNotFound
	}
	return jobFromHash(q.cfg.Name, fields), nil
}

func (q *Queue) Counts(ctx context.Context) (Counts, error) {
	var waiting, active, completed, failed, delayed *redis.IntCmd

	_, err := q.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		waiting = pipe.ZCard(ctx, q.keys.waiting)
		active = pipe.HLen(ctx, q.keys.active)
		completed = q.countHistory(ctx, pipe, q.keys.completed, q.cfg.CompletedTTL)
		failed = q.countHistory(ctx, pipe, q.keys.failed, q.cfg.FailedTTL)
		delayed = pipe.ZCard(ctx, q.keys.delayed)
		return nil
	})
	if err != nil {
		return Counts{}, fmt.Errorf("failed to count %s jobs: %w", q.cfg.Name, err)
	}

	return Counts{
		Waiting:   waiting.Val(),
		Active:    active.Val(),
		Completed: completed.Val(),
		Failed:    failed.Val(),
		Delayed:   delayed.Val(),
	}, nil
}

// countHistory counts finished jobs still inside their retention window. Entries
// waiting for the next trim or Purge are not reported.
func (q *Queue) countHistory(ctx context.Context, pipe redis.Pipeliner, set string, ttl time.Duration) *redis.IntCmd {
	if ttl <= 0 {
		return pipe.ZCard(ctx, set)
	}
	return pipe.ZCount(ctx, set, "("+historyCutoff(q.now(), ttl), "+inf")
}

// Pause stops new dequeues across every process sharing this queue. In-flight jobs continue.
func (q *Queue) Pause(ctx context.Context) error {
	if err := q.client.Set(ctx, q.keys.paused, "1", 0).Err(); err != nil {
		return fmt.Errorf("failed to pause %s queue: %w", q.cfg.Name, err)
	}
	return nil
}

func (q *Queue) Resume(ctx context.Context) error {
	if err := q.client.Del(ctx, q.keys.paused).Err(); err != nil {
		return fmt.Errorf("failed to resume %s queue: %w", q.cfg.Name, err)
	}
	return nil
}

func (q *Queue) IsPaused(ctx context.Context) (bool, error) {
	n, err := q.client.Exists(ctx, q.keys.paused).Result()
	if err != nil {
		return false, fmt.Errorf("failed to read %s pause flag: %w", q.cfg.Name, err)
	}
	return n > 0, nil
}

// Purge drops completed and failed history past its retention window or size cap,
// and requeues jobs left active longer than the job timeout by a dead worker.
func (q *Queue) Purge(ctx context.Context) (int64, error) {
	now := q.now()
	var purged int64

	if q.cfg.CompletedTTL > 0 {
		n, err := q.purgeBefore(ctx, q.keys.completed, now.Add(-q.cfg.CompletedTTL))
		if err != nil {
			return purged, err
		}
		purged += n

		n, err = q.purgeOverflow(ctx, q.keys.completed, q.cfg.CompletedMax)
		if err != nil {
			return purged, err
		}
		purged += n
	}

	if q.cfg.FailedTTL > 0 {
		n, err := q.purgeBefore(ctx, q.keys.failed, now.Add(-q.cfg.FailedTTL))
		if err != nil {
			return purged, err
		}
		purged += n
	}

	if _, err := q.requeueStalled(ctx); err != nil {
		return purged, err
	}

	return purged, nil
}

func (q *Queue) purgeBefore(ctx context.Context, set string, cutoff time.Time) (int64, error) {
	ids, err := q.client.ZRangeByScore(ctx, set, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(cutoff.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list expired jobs: %w", err)
	}
	return q.removeJobs(ctx, set, ids)
}

func (q *Queue) purgeOverflow(ctx context.Context, set string, max int64) (int64, error) {
	if max <= 0 {
		return 0, nil
	}

	size, err := q.client.ZCard(ctx, set).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count jobs: %w", err)
	}
	if size <= max {
		return 0, nil
	}

	ids, err := q.client.ZRange(ctx, set, 0, size-max-1).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list overflow jobs: %w", err)
	}
	return q.removeJobs(ctx, set, ids)
}

func (q *Queue) removeJobs(ctx context.Context, set string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	members := make([]any, len(ids))
	jobKeys := make([]string, len(ids))
	for i, id := range ids {
		members[i] = id
		jobKeys[i] = q.keys.job + id
	}

	var removed *redis.IntCmd
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.ZRem(ctx, set, members...)
		pipe.Del(ctx, jobKeys...)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to remove jobs: %w", err)
	}

	return removed.Val(), nil
}

// requeueStalled returns jobs whose active entry outlived the job timeout to the waiting set.
func (q *Queue) requeueStalled(ctx context.Context) (int, error) {
	active, err := q.client.HGetAll(ctx, q.keys.active).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list active jobs: %w", err)
	}

	cutoff := q.now().Add(-q.cfg.JobTimeout - time.Minute).UnixMilli()
	requeued := 0
	for id, startedAt := range active {
		started, _ := strconv.ParseInt(startedAt, 10, 64)
		if started > cutoff {
			continue
		}

		removed, err := q.client.HDel(ctx, q.keys.active, id).Result()
		if err != nil {
			return requeued, fmt.Errorf("failed to release stalled job: %w", err)
		}
		if removed == 0 {
			continue
		}

		if err := q.pushWaiting(ctx, id); err != nil {
			return requeued, err
		}
		requeued++
	}

	return requeued, nil
}

// promoteDue moves delayed jobs whose backoff has elapsed back to the waiting set.
func (q *Queue) promoteDue(ctx context.Context) error {
	ids, err := q.client.ZRangeByScore(ctx, q.keys.delayed, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(q.now().UnixMilli(), 10),
		Count: 100,
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to list due jobs: %w", err)
	}

	for _, id := range ids {
		// Only the worker whose ZREM succeeds promotes the job.
		removed, err := q.client.ZRem(ctx, q.keys.delayed, id).Result()
		if err != nil {
			return fmt.Errorf("failed to claim due job: %w", err)
		}
		if removed == 0 {
			continue
		}
		if err := q.pushWaiting(ctx, id); err != nil {
			return err
		}
	}

	return nil
}

func (q *Queue) pushWaiting(ctx context.Context, id string) error {
	priority, err := q.client.HGet(ctx, q.keys.job+id, "priority").Int()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to read job priority: %w", err)
	}

	seq, err := q.client.Incr(ctx, q.keys.seq).Result()
	if err != nil {
		return fmt.Errorf("failed to allocate job sequence: %w", err)
	}

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, q.keys.job+id, "status", string(StatusWaiting))
		pipe.ZAdd(ctx, q.keys.waiting, redis.Z{Score: waitingScore(priority, seq), Member: id})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to requeue job: %w", err)
	}

	return nil
}

// pop claims the next waiting job, or returns nil when none is waiting.
func (q *Queue) pop(ctx context.Context) (*Job, error) {
	id, err := popScript.Run(ctx, q.client,
		[]string{q.keys.waiting, q.keys.active, q.keys.job, q.keys.paused, q.keys.limiter},
		q.now().UnixMilli(), q.cfg.RateMax, q.cfg.RateWindow.Milliseconds(),
	).Text()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to pop job: %w", err)
	}

	job, err := q.Get(ctx, id)
	if err == ErrJobNotFound {
		q.client.HDel(ctx, q.keys.active, id)
		return nil, nil
	}
	return job, err
}

func (q *Queue) complete(ctx context.Context, job *Job) error {
	now := q.now()
	jobKey := q.keys.job + job.ID

	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, q.keys.active, job.ID)

		if q.cfg.CompletedTTL <= 0 {
			pipe.Del(ctx, jobKey)
			return nil
		}

		pipe.HSet(ctx, jobKey, map[string]any{
			"status":      string(StatusCompleted),
			"finished_at": now.UnixMilli(),
		})
		pipe.Expire(ctx, jobKey, q.cfg.CompletedTTL)
		pipe.ZAdd(ctx, q.keys.completed, redis.Z{Score: float64(now.UnixMilli()), Member: job.ID})
		pipe.ZRemRangeByScore(ctx, q.keys.completed, "-inf", historyCutoff(now, q.cfg.CompletedTTL))
		if q.cfg.CompletedMax > 0 {
			pipe.ZRemRangeByRank(ctx, q.keys.completed, 0, -q.cfg.CompletedMax-1)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	return nil
}

func (q *Queue) retry(ctx context.Context, job *Job, cause error, delay time.Duration) error {
	readyAt := q.now().Add(delay)

	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, q.keys.active, job.ID)
		pipe.HSet(ctx, q.keys.job+job.ID, map[string]any{
			"status":     string(StatusDelayed),
			"last_error": cause.Error(),
		})
		pipe.ZAdd(ctx, q.keys.delayed, redis.Z{Score: float64(readyAt.UnixMilli()), Member: job.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to schedule retry: %w", err)
	}

	return nil
}

func (q *Queue) fail(ctx context.Context, job *Job, cause error) error {
	now := q.now()
	jobKey := q.keys.job + job.ID

	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HDel(ctx, q.keys.active, job.ID)
		pipe.HSet(ctx, jobKey, map[string]any{
			"status":      string(StatusFailed),
			"last_error":  cause.Error(),
			"finished_at": now.UnixMilli(),
		})
		pipe.ZAdd(ctx, q.keys.failed, redis.Z{Score: float64(now.UnixMilli()), Member: job.ID})
		if q.cfg.FailedTTL > 0 {
			pipe.Expire(ctx, jobKey, q.cfg.FailedTTL)
			pipe.ZRemRangeByScore(ctx, q.keys.failed, "-inf", historyCutoff(now, q.cfg.FailedTTL))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}

	return nil
}

// historyCutoff is the finish-time score at or below which history has expired.
// Trimmed ids need no hash cleanup: their job hashes carry the same TTL.
func historyCutoff(now time.Time, ttl time.Duration) string {
	return strconv.FormatInt(now.Add(-ttl).UnixMilli(), 10)
}

func waitingScore(priority int, seq int64) float64 {
	return float64(priority)*priorityScale + float64(seq)
}
