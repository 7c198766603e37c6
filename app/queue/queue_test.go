package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPayload struct {
	Name string `json:"name"`
}

func newTestQueue(t *testing.T, cfg Config) *Queue {
	t.Helper()
	q, _ := newTestQueueWithServer(t, cfg)
	return q
}

func newTestQueueWithServer(t *testing.T, cfg Config) (*Queue, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	if cfg.Name == "" {
		cfg.Name = "test"
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 10 * time.Millisecond
	}

	q := New(client, cfg)
	t.Cleanup(q.Stop)
	return q, mr
}

func TestEnqueueAndGet(t *testing.T) {
	q := newTestQueue(t, Config{})
	ctx := context.Background()

	id, err := q.Enqueue(ctx, testPayload{Name: "first"}, 4)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	job, err := q.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, job.ID)
	assert.Equal(t, "test", job.Queue)
	assert.Equal(t, 4, job.Priority)
	assert.Equal(t, StatusWaiting, job.Status)
	assert.Equal(t, 0, job.Attempts)
	assert.False(t, job.CreatedAt.IsZero())

	var payload testPayload
	require.NoError(t, job.Decode(&payload))
	assert.Equal(t, "first", payload.Name)

	counts, err := q.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Waiting: 1}, counts)

	_, err = q.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestDecodeFailureIsPermanent(t *testing.T) {
	job := &Job{Queue: "test", Payload: []byte("{not json")}
	var payload testPayload
	err := job.Decode(&payload)
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
}

func TestPriorityOrdering(t *testing.T) {
	q := newTestQueue(t, Config{Workers: 1})
	ctx := context.Background()

	for _, item := range []struct {
		name     string
		priority int
	}{
		{"low", 5},
		{"high-a", 1},
		{"mid", 3},
		{"high-b", 1},
	} {
		_, err := q.Enqueue(ctx, testPayload{Name: item.name}, item.priority)
		require.NoError(t, err)
	}

	var mu sync.Mutex
	var order []string
	q.Start(func(ctx context.Context, job *Job) error {
		var payload testPayload
		if err := job.Decode(&payload); err != nil {
			return err
		}
		mu.Lock()
		order = append(order, payload.Name)
		mu.Unlock()
		return nil
	})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 4
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"high-a", "high-b", "mid", "low"}, order)
}

func TestFailingJobIsRetriedThenFailed(t *testing.T) {
	q := newTestQueue(t, Config{
		Workers:    2,
		MaxRetries: 3,
		Backoff:    FixedBackoff(10 * time.Millisecond),
		FailedTTL:  time.Hour,
	})
	ctx := context.Background()

	id, err := q.Enqueue(ctx, testPayload{Name: "broken"}, 1)
	require.NoError(t, err)

	var calls atomic.Int32
	q.Start(func(ctx context.Context, job *Job) error {
		calls.Add(1)
		return errors.New("upstream unavailable")
	})

	require.Eventually(t, func() bool {
		counts, err := q.Counts(ctx)
		return err == nil && counts.Failed == 1
	}, 3*time.Second, 10*time.Millisecond)

	assert.Equal(t, int32(4), calls.Load())

	job, err := q.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, job.Status)
	assert.Equal(t, 4, job.Attempts)
	assert.Equal(t, "upstream unavailable", job.LastError)
	assert.False(t, job.FinishedAt.IsZero())

	counts, err := q.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Failed: 1}, counts)
}

func TestPermanentErrorIsNotRetried(t *testing.T) {
	q := newTestQueue(t, Config{MaxRetries: 3, FailedTTL: time.Hour})
	ctx := context.Background()

	id, err := q.Enqueue(ctx, testPayload{Name: "bad"}, 1)
	require.NoError(t, err)

	var calls atomic.Int32
	q.Start(func(ctx context.Context, job *Job) error {
		calls.Add(1)
		return Permanent(errors.New("malformed"))
	})

	require.Eventually(t, func() bool {
		job, err := q.Get(ctx, id)
		return err == nil && job.Status == StatusFailed
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, int32(1), calls.Load())
}

func TestPanickingJobFails(t *testing.T) {
	q := newTestQueue(t, Config{FailedTTL: time.Hour})
	ctx := context.Background()

	id, err := q.Enqueue(ctx, testPayload{Name: "boom"}, 1)
	require.NoError(t, err)

	q.Start(func(ctx context.Context, job *Job) error {
		panic("boom")
	})

	require.Eventually(t, func() bool {
		job, err := q.Get(ctx, id)
		return err == nil && job.Status == StatusFailed
	}, 2*time.Second, 10*time.Millisecond)

	job, err := q.Get(ctx, id)
	require.NoError(t, err)
	assert.Contains(t, job.LastError, "panicked")
}

func TestCompletedJobsDroppedWithoutRetention(t *testing.T) {
	q := newTestQueue(t, Config{})
	ctx := context.Background()

	id, err := q.Enqueue(ctx, testPayload{Name: "done"}, 1)
	require.NoError(t, err)

	done := make(chan struct{})
	q.Start(func(ctx context.Context, job *Job) error {
		close(done)
		return nil
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected job to run")
	}
	q.Stop()

	_, err = q.Get(ctx, id)
	assert.ErrorIs(t, err, ErrJobNotFound)

	counts, err := q.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{}, counts)
}

func TestPauseAndResume(t *testing.T) {
	q := newTestQueue(t, Config{CompletedTTL: time.Hour})
	ctx := context.Background()

	require.NoError(t, q.Pause(ctx))
	paused, err := q.IsPaused(ctx)
	require.NoError(t, err)
	assert.True(t, paused)

	_, err = q.Enqueue(ctx, testPayload{Name: "held"}, 1)
	require.NoError(t, err)

	var calls atomic.Int32
	q.Start(func(ctx context.Context, job *Job) error {
		calls.Add(1)
		return nil
	})

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())

	require.NoError(t, q.Resume(ctx))
	require.Eventually(t, func() bool {
		counts, err := q.Counts(ctx)
		return err == nil && counts.Completed == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPauseStopsDequeueAfterInFlightJob(t *testing.T) {
	q := newTestQueue(t, Config{CompletedTTL: time.Hour})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := q.Enqueue(ctx, testPayload{Name: "paused"}, 1)
		require.NoError(t, err)
	}

	started := make(chan struct{}, 2)
	release := make(chan struct{})
	var calls atomic.Int32
	q.Start(func(ctx context.Context, job *Job) error {
		calls.Add(1)
		started <- struct{}{}
		<-release
		return nil
	})

	<-started
	require.NoError(t, q.Pause(ctx))
	close(release)

	require.Eventually(t, func() bool {
		counts, err := q.Counts(ctx)
		return err == nil && counts.Completed == 1
	}, 2*time.Second, 10*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())

	counts, err := q.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts.Waiting)
}

func TestPopRefusesPausedQueue(t *testing.T) {
	q := newTestQueue(t, Config{})
	ctx := context.Background()

	_, err := q.Enqueue(ctx, testPayload{Name: "held"}, 1)
	require.NoError(t, err)
	require.NoError(t, q.Pause(ctx))

	job, err := q.pop(ctx)
	require.NoError(t, err)
	assert.Nil(t, job)

	require.NoError(t, q.Resume(ctx))
	job, err = q.pop(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, StatusActive, job.Status)
}

func TestContentRateWindowCapsDequeues(t *testing.T) {
	cfg := ContentQueueConfig(5, 20)
	cfg.PollInterval = 10 * time.Millisecond
	q, mr := newTestQueueWithServer(t, cfg)
	ctx := context.Background()

	// A second process sharing the queue draws from the same window.
	peer := New(q.client, cfg)
	t.Cleanup(peer.Stop)

	for i := 0; i < 25; i++ {
		_, err := q.Enqueue(ctx, testPayload{Name: "limited"}, 1)
		require.NoError(t, err)
	}

	var calls atomic.Int32
	handler := func(ctx context.Context, job *Job) error {
		calls.Add(1)
		return nil
	}
	q.Start(handler)
	peer.Start(handler)

	require.Eventually(t, func() bool {
		return calls.Load() == 20
	}, 2*time.Second, 10*time.Millisecond)

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(20), calls.Load())

	counts, err := q.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), counts.Waiting)

	mr.FastForward(time.Minute)

	require.Eventually(t, func() bool {
		return calls.Load() == 25
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCountsExcludeExpiredHistory(t *testing.T) {
	q, mr := newTestQueueWithServer(t, Config{CompletedTTL: time.Hour, FailedTTL: time.Hour})
	ctx := context.Background()

	handler := func(ctx context.Context, job *Job) error {
		var payload testPayload
		_ = job.Decode(&payload)
		if payload.Name == "fail" {
			return errors.New("nope")
		}
		return nil
	}

	_, err := q.Enqueue(ctx, testPayload{Name: "ok"}, 1)
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, testPayload{Name: "fail"}, 2)
	require.NoError(t, err)

	q.Start(handler)
	require.Eventually(t, func() bool {
		counts, err := q.Counts(ctx)
		return err == nil && counts.Completed == 1 && counts.Failed == 1
	}, 2*time.Second, 10*time.Millisecond)
	q.Stop()

	later := time.Now().Add(3 * time.Hour)
	q.now = func() time.Time { return later }
	mr.FastForward(3 * time.Hour)

	counts, err := q.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), counts.Completed)
	assert.Equal(t, int64(0), counts.Failed)

	// Finishing new jobs trims the expired entries from the history sets.
	_, err = q.Enqueue(ctx, testPayload{Name: "ok"}, 1)
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, testPayload{Name: "fail"}, 2)
	require.NoError(t, err)

	q.Start(handler)
	require.Eventually(t, func() bool {
		counts, err := q.Counts(ctx)
		return err == nil && counts.Completed == 1 && counts.Failed == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, int64(1), q.client.ZCard(ctx, q.keys.completed).Val())
	assert.Equal(t, int64(1), q.client.ZCard(ctx, q.keys.failed).Val())
}

func TestPurgeDropsExpiredHistory(t *testing.T) {
	q := newTestQueue(t, Config{CompletedTTL: time.Hour, FailedTTL: time.Hour})
	ctx := context.Background()

	_, err := q.Enqueue(ctx, testPayload{Name: "ok"}, 1)
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, testPayload{Name: "fail"}, 2)
	require.NoError(t, err)

	q.Start(func(ctx context.Context, job *Job) error {
		var payload testPayload
		_ = job.Decode(&payload)
		if payload.Name == "fail" {
			return errors.New("nope")
		}
		return nil
	})

	require.Eventually(t, func() bool {
		counts, err := q.Counts(ctx)
		return err == nil && counts.Completed == 1 && counts.Failed == 1
	}, 2*time.Second, 10*time.Millisecond)
	q.Stop()

	purged, err := q.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), purged)

	later := time.Now().Add(2 * time.Hour)
	q.now = func() time.Time { return later }

	purged, err = q.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), purged)

	counts, err := q.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{}, counts)
}

func TestPurgeCapsCompletedHistory(t *testing.T) {
	q := newTestQueue(t, Config{CompletedTTL: time.Hour, CompletedMax: 2})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := q.Enqueue(ctx, testPayload{Name: "ok"}, 1)
		require.NoError(t, err)
	}

	var calls atomic.Int32
	q.Start(func(ctx context.Context, job *Job) error {
		calls.Add(1)
		return nil
	})

	require.Eventually(t, func() bool {
		return calls.Load() == 5
	}, 2*time.Second, 10*time.Millisecond)
	q.Stop()

	counts, err := q.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), counts.Completed)
}

func TestPurgeRequeuesStalledJobs(t *testing.T) {
	q := newTestQueue(t, Config{JobTimeout: time.Minute})
	ctx := context.Background()

	id, err := q.Enqueue(ctx, testPayload{Name: "stuck"}, 1)
	require.NoError(t, err)

	job, err := q.pop(ctx)
	require.NoError(t, err)
	require.NotNil(t, job)
	assert.Equal(t, id, job.ID)
	assert.Equal(t, 1, job.Attempts)

	counts, err := q.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Active: 1}, counts)

	later := time.Now().Add(10 * time.Minute)
	q.now = func() time.Time { return later }

	_, err = q.Purge(ctx)
	require.NoError(t, err)

	counts, err = q.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Waiting: 1}, counts)

	job, err = q.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, StatusWaiting, job.Status)
}

func TestBackoff(t *testing.T) {
	backoff := ExponentialBackoff(5 * time.Second)
	assert.Equal(t, 5*time.Second, backoff(1))
	assert.Equal(t, 10*time.Second, backoff(2))
	assert.Equal(t, 20*time.Second, backoff(3))

	assert.Equal(t, 10*time.Second, FixedBackoff(10*time.Second)(7))

	cfg := ContentQueueConfig(5, 20)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 20, cfg.RateMax)
	assert.Equal(t, time.Minute, cfg.RateWindow)
}
