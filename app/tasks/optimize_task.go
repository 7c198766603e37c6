package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/newsroom/app/database"
	"github.com/lysyi3m/newsroom/app/scoring"
)

const (
	reportWindow = 7 * 24 * time.Hour
	topTrends    = 10
)

// Report is what one optimization run observed.
type Report struct {
	Categories []database.CategoryPerformance
	Trends     []scoring.RankedTrend
}

// Advisor receives each report. The default only logs; sources are never reprioritized.
type Advisor func(ctx context.Context, report Report)

type OptimizeTask struct {
	Task
	performance PerformanceStore
	trends      TrendStore
	advise      Advisor
	now         func() time.Time
}

func NewOptimizeTask(performance PerformanceStore, trends TrendStore) *OptimizeTask {
	return &OptimizeTask{
		Task:        NewTask(TaskTypeOptimize),
		performance: performance,
		trends:      trends,
		advise:      func(context.Context, Report) {},
		now:         time.Now,
	}
}

// WithAdvisor installs a consumer for the weekly report.
func (t *OptimizeTask) WithAdvisor(advise Advisor) *OptimizeTask {
	t.advise = advise
	return t
}

func (t *OptimizeTask) Execute(ctx context.Context) error {
	since := t.now().UTC().Add(-reportWindow)

	if err := t.performance.RefreshTotalViews(ctx, since); err != nil {
		return fmt.Errorf("failed to refresh performance views: %w", err)
	}

	categories, err := t.performance.AggregateByCategory(ctx, since)
	if err != nil {
		return fmt.Errorf("failed to aggregate performance: %w", err)
	}

	trends, err := t.trends.ListSince(ctx, since)
	if err != nil {
		return fmt.Errorf("failed to list recent trends: %w", err)
	}

	report := Report{Categories: categories, Trends: rankTrends(trends, t.now())}

	for _, c := range report.Categories {
		slog.Info("Category performance",
			"category", c.Category,
			"articles", c.ArticleCount,
			"views", c.TotalViews,
			"avg_rpm", c.AvgRPM)
	}
	for i, tr := range report.Trends {
		slog.Info("Top trend", "rank", i+1, "keyword", tr.Keyword, "category", tr.Category, "score", tr.Score)
	}

	t.advise(ctx, report)

	slog.Info("Task completed", "type", t.GetType(), "duration", t.GetDuration(), "categories", len(categories))
	return nil
}

func rankTrends(trends []database.Trend, now time.Time) []scoring.RankedTrend {
	candidates := make([]scoring.RankedTrend, len(trends))
	for i, tr := range trends {
		candidates[i] = scoring.RankedTrend{
			Keyword:    tr.Keyword,
			Category:   tr.Category,
			SourceKind: tr.SourceKind,
			Raw:        tr.Score,
			DetectedAt: tr.DetectedAt,
		}
	}

	ranked := scoring.RankTrends(candidates, now)
	if len(ranked) > topTrends {
		ranked = ranked[:topTrends]
	}
	return ranked
}
