package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

const sourceColumns = "id, name, url, category, priority, is_active, last_fetched_at, error_count, created_at, updated_at"

// SourceStore handles database operations for feed sources
type SourceStore struct {
	db *DB
}

func NewSourceStore(db *DB) *SourceStore {
	return &SourceStore{db: db}
}

// UpsertSource inserts a source or refreshes its catalog fields, keyed by URL.
// Breaker state (is_active, error_count) is left untouched on update.
func (r *SourceStore) UpsertSource(ctx context.Context, source Source) (bool, error) {
	newID := source.ID
	if newID == "" {
		newID = uuid.NewString()
	}
	now := time.Now().UTC()

	var id string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO sources (id, name, url, category, priority, is_active, error_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, 0, ?, ?)
		ON CONFLICT (url) DO UPDATE
		SET name = excluded.name,
		    category = excluded.category,
		    priority = excluded.priority,
		    updated_at = excluded.updated_at
		RETURNING id
	`, newID, source.Name, source.URL, source.Category, source.Priority, now, now).Scan(&id)
	if err != nil {
		return false, fmt.Errorf("failed to upsert source: %w", err)
	}

	return id == newID, nil
}

func (r *SourceStore) GetSource(ctx context.Context, id string) (*Source, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+sourceColumns+" FROM sources WHERE id = ?", id)

	source, err := scanSource(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}

	return source, nil
}

// ListActiveSources returns active sources by descending priority, optionally limited to one category.
func (r *SourceStore) ListActiveSources(ctx context.Context, category string) ([]Source, error) {
	builder := sq.Select(sourceColumns).
		From("sources").
		Where(sq.Eq{"is_active": true}).
		OrderBy("priority DESC", "name ASC")

	if category != "" {
		builder = builder.Where(sq.Eq{"category": category})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build source query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list active sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		source, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		sources = append(sources, *source)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating source rows: %w", err)
	}

	return sources, nil
}

func (r *SourceStore) RecordFetchSuccess(ctx context.Context, sourceID string, fetchedAt time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sources
		SET error_count = 0, last_fetched_at = ?, updated_at = ?
		WHERE id = ?
	`, fetchedAt.UTC(), time.Now().UTC(), sourceID)
	if err != nil {
		return fmt.Errorf("failed to record fetch success: %w", err)
	}

	return nil
}

// RecordFetchFailure increments the error counter and trips the breaker in one statement.
func (r *SourceStore) RecordFetchFailure(ctx context.Context, sourceID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sources
		SET error_count = error_count + 1,
		    is_active = CASE WHEN error_count + 1 >= ? THEN 0 ELSE is_active END,
		    updated_at = ?
		WHERE id = ?
	`, MaxSourceErrors, time.Now().UTC(), sourceID)
	if err != nil {
		return fmt.Errorf("failed to record fetch failure: %w", err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSource(row rowScanner) (*Source, error) {
	var source Source
	var lastFetched sql.NullTime

	err := row.Scan(
		&source.ID, &source.Name, &source.URL, &source.Category, &source.Priority,
		&source.IsActive, &lastFetched, &source.ErrorCount, &source.CreatedAt, &source.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if lastFetched.Valid {
		t := lastFetched.Time
		source.LastFetchedAt = &t
	}

	return &source, nil
}
