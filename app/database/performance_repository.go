package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type PerformanceStore struct {
	db *DB
}

func NewPerformanceStore(db *DB) *PerformanceStore {
	return &PerformanceStore{db: db}
}

func (r *PerformanceStore) GetDaily(ctx context.Context, date, category string) (*PerformanceDaily, error) {
	var perf PerformanceDaily
	err := r.db.QueryRowContext(ctx, `
		SELECT date, category, article_count, total_views, avg_rpm
		FROM performance_daily
		WHERE date = ? AND category = ?
	`, date, category).Scan(&perf.Date, &perf.Category, &perf.ArticleCount, &perf.TotalViews, &perf.AvgRPM)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daily performance: %w", err)
	}
	return &perf, nil
}

// RefreshTotalViews recomputes total_views for rows dated on or after since from article views.
func (r *PerformanceStore) RefreshTotalViews(ctx context.Context, since time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE performance_daily
		SET total_views = (
			SELECT COALESCE(SUM(a.views), 0)
			FROM articles a
			WHERE a.category = performance_daily.category
			  AND substr(a.published_at, 1, 10) = performance_daily.date
		)
		WHERE date >= ?
	`, since.UTC().Format(time.DateOnly))
	if err != nil {
		return fmt.Errorf("failed to refresh total views: %w", err)
	}
	return nil
}

// AggregateByCategory sums daily rows dated on or after since, highest average RPM first.
func (r *PerformanceStore) AggregateByCategory(ctx context.Context, since time.Time) ([]CategoryPerformance, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT category,
		       SUM(article_count),
		       SUM(total_views),
		       CASE WHEN SUM(article_count) > 0
		            THEN SUM(avg_rpm * article_count) / SUM(article_count)
		            ELSE 0 END
		FROM performance_daily
		WHERE date >= ?
		GROUP BY category
		ORDER BY 4 DESC, category ASC
	`, since.UTC().Format(time.DateOnly))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate performance: %w", err)
	}
	defer rows.Close()

	var result []CategoryPerformance
	for rows.Next() {
		var perf CategoryPerformance
		if err := rows.Scan(&perf.Category, &perf.ArticleCount, &perf.TotalViews, &perf.AvgRPM); err != nil {
			return nil, fmt.Errorf("failed to scan performance row: %w", err)
		}
		result = append(result, perf)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating performance rows: %w", err)
	}

	return result, nil
}
