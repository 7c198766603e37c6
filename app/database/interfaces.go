package database

import (
	"context"
	"time"
)

type SourceRepository interface {
	UpsertSource(ctx context.Context, source Source) (bool, error)
	GetSource(ctx context.Context, id string) (*Source, error)
	ListActiveSources(ctx context.Context, category string) ([]Source, error)
	RecordFetchSuccess(ctx context.Context, sourceID string, fetchedAt time.Time) error
	RecordFetchFailure(ctx context.Context, sourceID string) error
}

type LedgerRepository interface {
	HasURLHash(ctx context.Context, urlHash string) (bool, error)
	HasTitleHash(ctx context.Context, titleHash string) (bool, error)
	InsertIfAbsent(ctx context.Context, record DedupRecord) (bool, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type TrendRepository interface {
	InsertTrend(ctx context.Context, trend Trend) error
	ListSince(ctx context.Context, since time.Time) ([]Trend, error)
	ListUnprocessed(ctx context.Context, limit int) ([]Trend, error)
	MarkProcessed(ctx context.Context, id string) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type ArticleRepository interface {
	Publish(ctx context.Context, article Article) error
	GetArticle(ctx context.Context, id string) (*Article, error)
	GetArticleBySlug(ctx context.Context, slug string) (*Article, error)
	CountArticles(ctx context.Context) (int, error)
	IncrementViews(ctx context.Context, id string) error
	DeleteStale(ctx context.Context, cutoff time.Time, minViews int) (int64, error)
}

type AuthorRepository interface {
	ListAuthors(ctx context.Context) ([]Author, error)
}

type PerformanceRepository interface {
	GetDaily(ctx context.Context, date, category string) (*PerformanceDaily, error)
	RefreshTotalViews(ctx context.Context, since time.Time) error
	AggregateByCategory(ctx context.Context, since time.Time) ([]CategoryPerformance, error)
}

var (
	_ SourceRepository      = (*SourceStore)(nil)
	_ LedgerRepository      = (*LedgerStore)(nil)
	_ TrendRepository       = (*TrendStore)(nil)
	_ ArticleRepository     = (*ArticleStore)(nil)
	_ AuthorRepository      = (*AuthorStore)(nil)
	_ PerformanceRepository = (*PerformanceStore)(nil)
)
