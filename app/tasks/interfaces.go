package tasks

import (
	"context"
	"time"

	"github.com/lysyi3m/newsroom/app/crawler"
	"github.com/lysyi3m/newsroom/app/database"
	"github.com/lysyi3m/newsroom/app/feed"
)

// TaskSchedulerInterface is the handle the entry point and the control surface hold.
//
//	scheduler := NewScheduler(factories)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.TriggerNow(TaskTypeCrawl)
type TaskSchedulerInterface interface {
	Start()
	Stop()
	TriggerNow(stage TaskType) error
}

type Crawler interface {
	Crawl(ctx context.Context, category string) ([]crawler.Candidate, crawler.Stats, error)
}

// Enqueuer accepts fire-and-forget jobs. Lower priority values run first.
type Enqueuer interface {
	Enqueue(ctx context.Context, payload any, priority int) (string, error)
}

type Purger interface {
	Name() string
	Purge(ctx context.Context) (int64, error)
}

type ArticleCleaner interface {
	DeleteStale(ctx context.Context, cutoff time.Time, minViews int) (int64, error)
}

type TrendStore interface {
	ListSince(ctx context.Context, since time.Time) ([]database.Trend, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type LedgerCleaner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type PerformanceStore interface {
	RefreshTotalViews(ctx context.Context, since time.Time) error
	AggregateByCategory(ctx context.Context, since time.Time) ([]database.CategoryPerformance, error)
}

type SourceUpserter interface {
	UpsertSource(ctx context.Context, source database.Source) (bool, error)
}

type SourceCatalog interface {
	GetSources() []feed.SourceConfig
}
