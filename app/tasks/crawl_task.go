package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/lysyi3m/newsroom/app/crawler"
	"github.com/lysyi3m/newsroom/app/pipeline"
	"github.com/lysyi3m/newsroom/app/scoring"
)

type CrawlTask struct {
	Task
	Category string
	crawler  Crawler
	content  Enqueuer
	now      func() time.Time
}

// NewCrawlTask crawls every active source. A non-empty category limits the crawl.
func NewCrawlTask(c Crawler, content Enqueuer, category string) *CrawlTask {
	return &CrawlTask{
		Task:     NewTask(TaskTypeCrawl),
		Category: category,
		crawler:  c,
		content:  content,
		now:      time.Now,
	}
}

func (t *CrawlTask) Execute(ctx context.Context) error {
	candidates, stats, err := t.crawler.Crawl(ctx, t.Category)
	if err != nil {
		return fmt.Errorf("failed to crawl sources: %w", err)
	}

	now := t.now()
	type scored struct {
		candidate crawler.Candidate
		score     int
	}

	ranked := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		score := scoring.ScoreCandidate(c.Category, len([]rune(c.Body)), c.PublishedAt, now)
		ranked = append(ranked, scored{candidate: c, score: score})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	queued, failed := 0, 0
	for _, r := range ranked {
		job := pipeline.ContentJob{
			SourceURL:     r.candidate.URL,
			SourceName:    r.candidate.SourceName,
			SourceContent: r.candidate.Body,
			Category:      r.candidate.Category,
			PriorityScore: r.score,
			Title:         r.candidate.Title,
			PublishedAt:   r.candidate.PublishedAt,
		}

		if _, err := t.content.Enqueue(ctx, job, scoring.QueuePriority(r.score)); err != nil {
			slog.Error("Failed to enqueue content job", "url", r.candidate.URL, "error", err)
			failed++
			continue
		}
		queued++
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"sources", stats.Sources,
		"failed_sources", stats.FailedSources,
		"items", stats.Items,
		"duplicates", stats.Duplicates,
		"extraction_failures", stats.ExtractionFailures,
		"queued", queued)

	if failed > 0 {
		return fmt.Errorf("failed to enqueue %d of %d candidates", failed, len(ranked))
	}
	return nil
}
