package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrTrendNotFound = errors.New("trend not found")

type TrendStore struct {
	db *DB
}

func NewTrendStore(db *DB) *TrendStore {
	return &TrendStore{db: db}
}

func (r *TrendStore) InsertTrend(ctx context.Context, trend Trend) error {
	if trend.ID == "" {
		trend.ID = uuid.NewString()
	}
	if trend.DetectedAt.IsZero() {
		trend.DetectedAt = time.Now()
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO trends (id, keyword, source_kind, score, category, processed, detected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, trend.ID, trend.Keyword, trend.SourceKind, trend.Score, trend.Category, trend.Processed, trend.DetectedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert trend: %w", err)
	}

	return nil
}

// ListSince returns trends detected at or after since, newest first.
func (r *TrendStore) ListSince(ctx context.Context, since time.Time) ([]Trend, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, keyword, source_kind, score, category, processed, detected_at
		FROM trends
		WHERE detected_at >= ?
		ORDER BY detected_at DESC
	`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list trends: %w", err)
	}
	return scanTrends(rows)
}

// ListUnprocessed returns up to limit trends not yet acted on, strongest first.
func (r *TrendStore) ListUnprocessed(ctx context.Context, limit int) ([]Trend, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, keyword, source_kind, score, category, processed, detected_at
		FROM trends
		WHERE processed = 0
		ORDER BY score DESC, detected_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unprocessed trends: %w", err)
	}
	return scanTrends(rows)
}

func (r *TrendStore) MarkProcessed(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "UPDATE trends SET processed = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to mark trend processed: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark trend processed: %w", err)
	}
	if affected == 0 {
		return ErrTrendNotFound
	}

	return nil
}

func scanTrends(rows *sql.Rows) ([]Trend, error) {
	defer rows.Close()

	var trends []Trend
	for rows.Next() {
		var trend Trend
		if err := rows.Scan(&trend.ID, &trend.Keyword, &trend.SourceKind, &trend.Score,
			&trend.Category, &trend.Processed, &trend.DetectedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trend row: %w", err)
		}
		trends = append(trends, trend)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trend rows: %w", err)
	}

	return trends, nil
}

func (r *TrendStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM trends WHERE detected_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete trends: %w", err)
	}
	return result.RowsAffected()
}
