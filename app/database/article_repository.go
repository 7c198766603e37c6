package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const articleColumns = `id, slug, title, excerpt, content, key_points, category, tags, COALESCE(author_id, ''),
	source_url, source_name, image_url, read_time, word_count, rpm_score, views, status,
	published_at, created_at, updated_at`

// ArticleStore handles database operations for published articles
type ArticleStore struct {
	db *DB
}

func NewArticleStore(db *DB) *ArticleStore {
	return &ArticleStore{db: db}
}

// Publish inserts the article, bumps the author's article count and folds the
// article into the daily performance row for its category, all in one transaction.
// A slug collision returns ErrSlugTaken and leaves nothing behind.
func (r *ArticleStore) Publish(ctx context.Context, article Article) error {
	if article.ID == "" {
		article.ID = uuid.NewString()
	}
	if article.Status == "" {
		article.Status = ArticleStatusPublished
	}
	now := time.Now().UTC()
	if article.PublishedAt.IsZero() {
		article.PublishedAt = now
	}
	publishedAt := article.PublishedAt.UTC()

	keyPoints, err := json.Marshal(nonNil(article.KeyPoints))
	if err != nil {
		return fmt.Errorf("failed to encode key points: %w", err)
	}
	tags, err := json.Marshal(nonNil(article.Tags))
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var authorID any
	if article.AuthorID != "" {
		authorID = article.AuthorID
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO articles (id, slug, title, excerpt, content, key_points, category, tags, author_id,
			source_url, source_name, image_url, read_time, word_count, rpm_score, views, status,
			published_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?)
	`, article.ID, article.Slug, article.Title, article.Excerpt, article.Content, string(keyPoints),
		article.Category, string(tags), authorID, article.SourceURL, article.SourceName, article.ImageURL,
		article.ReadTimeMinutes, article.WordCount, article.RPMScore, article.Status,
		publishedAt, now, now)
	if err != nil {
		if isUniqueViolation(err) && strings.Contains(err.Error(), "articles.slug") {
			return ErrSlugTaken
		}
		return fmt.Errorf("failed to insert article: %w", err)
	}

	if article.AuthorID != "" {
		_, err = tx.ExecContext(ctx,
			"UPDATE authors SET article_count = article_count + 1 WHERE id = ?", article.AuthorID)
		if err != nil {
			return fmt.Errorf("failed to update author article count: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO performance_daily (date, category, article_count, total_views, avg_rpm)
		VALUES (?, ?, 1, 0, ?)
		ON CONFLICT (date, category) DO UPDATE
		SET avg_rpm = (performance_daily.avg_rpm * performance_daily.article_count + excluded.avg_rpm)
		              / (performance_daily.article_count + 1),
		    article_count = performance_daily.article_count + 1
	`, publishedAt.Format(time.DateOnly), article.Category, article.RPMScore)
	if err != nil {
		return fmt.Errorf("failed to update daily performance: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit article: %w", err)
	}

	return nil
}

func (r *ArticleStore) GetArticle(ctx context.Context, id string) (*Article, error) {
	return r.getOne(ctx, "SELECT "+articleColumns+" FROM articles WHERE id = ?", id)
}

func (r *ArticleStore) GetArticleBySlug(ctx context.Context, slug string) (*Article, error) {
	return r.getOne(ctx, "SELECT "+articleColumns+" FROM articles WHERE slug = ?", slug)
}

func (r *ArticleStore) CountArticles(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return count, nil
}

func (r *ArticleStore) IncrementViews(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE articles SET views = views + 1, updated_at = ? WHERE id = ?", time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to increment views: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("article %s not found", id)
	}

	return nil
}

// DeleteStale removes published articles older than cutoff with fewer than minViews views.
func (r *ArticleStore) DeleteStale(ctx context.Context, cutoff time.Time, minViews int) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM articles
		WHERE status = ? AND published_at < ? AND views < ?
	`, ArticleStatusPublished, cutoff.UTC(), minViews)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale articles: %w", err)
	}
	return result.RowsAffected()
}

func (r *ArticleStore) getOne(ctx context.Context, query string, arg any) (*Article, error) {
	var article Article
	var keyPoints, tags string

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&article.ID, &article.Slug, &article.Title, &article.Excerpt, &article.Content, &keyPoints,
		&article.Category, &tags, &article.AuthorID, &article.SourceURL, &article.SourceName,
		&article.ImageURL, &article.ReadTimeMinutes, &article.WordCount, &article.RPMScore,
		&article.Views, &article.Status, &article.PublishedAt, &article.CreatedAt, &article.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get article: %w", err)
	}

	if err := json.Unmarshal([]byte(keyPoints), &article.KeyPoints); err != nil {
		return nil, fmt.Errorf("failed to decode key points: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &article.Tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}

	return &article, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
