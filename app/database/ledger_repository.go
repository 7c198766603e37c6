package database

import (
	"context"
	"fmt"
	"time"
)

// LedgerStore records every URL and title that has entered the pipeline.
type LedgerStore struct {
	db *DB
}

func NewLedgerStore(db *DB) *LedgerStore {
	return &LedgerStore{db: db}
}

func (r *LedgerStore) HasURLHash(ctx context.Context, urlHash string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM dedup_records WHERE url_hash = ?)", urlHash).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check url hash: %w", err)
	}
	return exists, nil
}

func (r *LedgerStore) HasTitleHash(ctx context.Context, titleHash string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM dedup_records WHERE title_hash = ?)", titleHash).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check title hash: %w", err)
	}
	return exists, nil
}

// InsertIfAbsent returns false when a record with the same URL hash already exists.
func (r *LedgerStore) InsertIfAbsent(ctx context.Context, record DedupRecord) (bool, error) {
	processedAt := record.ProcessedAt
	if processedAt.IsZero() {
		processedAt = time.Now()
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO dedup_records (url_hash, url, title_hash, processed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (url_hash) DO NOTHING
	`, record.URLHash, record.URL, record.TitleHash, processedAt.UTC())
	if err != nil {
		return false, fmt.Errorf("failed to insert dedup record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return affected == 1, nil
}

func (r *LedgerStore) CountRecords(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM dedup_records").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count dedup records: %w", err)
	}
	return count, nil
}

func (r *LedgerStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM dedup_records WHERE processed_at < ?", cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete dedup records: %w", err)
	}
	return result.RowsAffected()
}
