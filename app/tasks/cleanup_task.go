package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

type Retention struct {
	Articles time.Duration
	// MinViews keeps old articles that reached this many views.
	MinViews int
	Trends   time.Duration
	// Dedup records are kept forever when zero.
	Dedup time.Duration
}

func DefaultRetention() Retention {
	return Retention{
		Articles: 90 * 24 * time.Hour,
		MinViews: 10,
		Trends:   7 * 24 * time.Hour,
		Dedup:    30 * 24 * time.Hour,
	}
}

// CleanupTask enforces retention on articles, trends, the dedup ledger and queue history.
type CleanupTask struct {
	Task
	retention Retention
	articles  ArticleCleaner
	trends    TrendStore
	ledger    LedgerCleaner
	queues    []Purger
	now       func() time.Time
}

func NewCleanupTask(retention Retention, articles ArticleCleaner, trends TrendStore, ledger LedgerCleaner, queues ...Purger) *CleanupTask {
	return &CleanupTask{
		Task:      NewTask(TaskTypeCleanup),
		retention: retention,
		articles:  articles,
		trends:    trends,
		ledger:    ledger,
		queues:    queues,
		now:       time.Now,
	}
}

// Execute runs every cleanup step even when an earlier one fails.
func (t *CleanupTask) Execute(ctx context.Context) error {
	now := t.now().UTC()
	var errs []error

	deletedArticles, err := t.articles.DeleteStale(ctx, now.Add(-t.retention.Articles), t.retention.MinViews)
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to delete stale articles: %w", err))
	}

	deletedTrends, err := t.trends.DeleteOlderThan(ctx, now.Add(-t.retention.Trends))
	if err != nil {
		errs = append(errs, fmt.Errorf("failed to delete old trends: %w", err))
	}

	var deletedRecords int64
	if t.retention.Dedup > 0 {
		deletedRecords, err = t.ledger.DeleteOlderThan(ctx, now.Add(-t.retention.Dedup))
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to delete old dedup records: %w", err))
		}
	}

	var purgedJobs int64
	for _, q := range t.queues {
		n, err := q.Purge(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to purge %s queue: %w", q.Name(), err))
		}
		purgedJobs += n
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"articles", deletedArticles,
		"trends", deletedTrends,
		"dedup_records", deletedRecords,
		"jobs", purgedJobs)

	return errors.Join(errs...)
}
