package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Start launches the configured number of workers. It is a no-op when already running.
func (q *Queue) Start(handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.running {
		return
	}

	q.running = true
	q.stopCh = make(chan struct{})
	q.stopCtx, q.cancel = context.WithCancel(context.Background())

	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i, handler)
	}

	slog.Info("Queue workers started", "queue", q.cfg.Name, "workers", q.cfg.Workers)
}

// Stop signals workers to exit and waits for in-flight jobs to finish.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	close(q.stopCh)
	q.cancel()
	q.mu.Unlock()

	q.wg.Wait()
	slog.Info("Queue workers stopped", "queue", q.cfg.Name)
}

func (q *Queue) worker(id int, handler Handler) {
	defer q.wg.Done()

	for {
		select {
		case <-q.stopCh:
			return
		default:
		}

		worked, err := q.next(handler)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				slog.Error("Queue worker error", "queue", q.cfg.Name, "worker", id, "error", err)
			}
			q.sleep()
			continue
		}

		if !worked {
			q.sleep()
		}
	}
}

// next runs at most one job. It reports false when there was nothing to do, the
// queue is paused or the rate window is used up.
func (q *Queue) next(handler Handler) (bool, error) {
	ctx := q.stopCtx

	if err := q.promoteDue(ctx); err != nil {
		return false, err
	}

	job, err := q.pop(ctx)
	if err != nil {
		return false, err
	}
	if job == nil {
		return false, nil
	}

	q.process(job, handler)
	return true, nil
}

func (q *Queue) process(job *Job, handler Handler) {
	start := time.Now()

	err := q.run(job, handler)
	duration := time.Since(start)

	// Bookkeeping must land even when Stop cancelled the worker context.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err == nil {
		if ferr := q.complete(ctx, job); ferr != nil {
			slog.Error("Failed to finalize job", "queue", q.cfg.Name, "job_id", job.ID, "error", ferr)
		}
		recordOutcome(q.cfg.Name, "completed", duration)
		slog.Debug("Job completed", "queue", q.cfg.Name, "job_id", job.ID, "duration", duration)
		return
	}

	if !IsPermanent(err) && job.Attempts-1 < q.cfg.MaxRetries {
		delay := q.cfg.Backoff(job.Attempts)
		if ferr := q.retry(ctx, job, err, delay); ferr != nil {
			slog.Error("Failed to finalize job", "queue", q.cfg.Name, "job_id", job.ID, "error", ferr)
		}
		recordOutcome(q.cfg.Name, "retried", duration)
		slog.Warn("Job failed, retrying",
			"queue", q.cfg.Name, "job_id", job.ID, "attempt", job.Attempts, "retry_in", delay, "error", err)
		return
	}

	if ferr := q.fail(ctx, job, err); ferr != nil {
		slog.Error("Failed to finalize job", "queue", q.cfg.Name, "job_id", job.ID, "error", ferr)
	}
	recordOutcome(q.cfg.Name, "failed", duration)
	slog.Error("Job failed", "queue", q.cfg.Name, "job_id", job.ID, "attempts", job.Attempts, "error", err)
}

func (q *Queue) run(job *Job, handler Handler) (err error) {
	ctx, cancel := context.WithTimeout(context.Background(), q.cfg.JobTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()

	return handler(ctx, job)
}

func (q *Queue) sleep() {
	select {
	case <-q.stopCh:
	case <-time.After(q.cfg.PollInterval):
	}
}
