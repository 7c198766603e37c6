// Package crawler turns active feed sources into deduplicated content candidates.
package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/lysyi3m/newsroom/app/database"
	"github.com/lysyi3m/newsroom/app/feed"
)

const (
	// Embedded feed content at least this long is used without fetching the page.
	MinEmbeddedLength = 200
	// Bodies shorter than this after extraction are dropped.
	MinBodyLength = 100
	// Bodies are cut to this many characters.
	MaxBodyLength = 10000
)

// ErrFetch marks a source whose feed could not be fetched or parsed.
var ErrFetch = errors.New("feed fetch failed")

type SourceStore interface {
	ListActiveSources(ctx context.Context, category string) ([]database.Source, error)
	RecordFetchSuccess(ctx context.Context, sourceID string, fetchedAt time.Time) error
	RecordFetchFailure(ctx context.Context, sourceID string) error
}

type Ledger interface {
	HasURLHash(ctx context.Context, urlHash string) (bool, error)
	HasTitleHash(ctx context.Context, titleHash string) (bool, error)
	InsertIfAbsent(ctx context.Context, record database.DedupRecord) (bool, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type Extractor interface {
	Run(data []byte) (string, error)
}

// FilterSource supplies per-source include/exclude rules.
type FilterSource interface {
	GetFilters(sourceURL string) []feed.ConfigFilter
}

type Candidate struct {
	Title       string
	URL         string
	Body        string
	SourceName  string
	Category    string
	PublishedAt time.Time
}

type Stats struct {
	Sources            int
	FailedSources      int
	Items              int
	Duplicates         int
	Filtered           int
	ExtractionFailures int
	TooShort           int
	Candidates         int
}

func (s *Stats) add(other Stats) {
	s.Items += other.Items
	s.Duplicates += other.Duplicates
	s.Filtered += other.Filtered
	s.ExtractionFailures += other.ExtractionFailures
	s.TooShort += other.TooShort
	s.Candidates += other.Candidates
}

type Crawler struct {
	sources   SourceStore
	ledger    Ledger
	fetcher   Fetcher
	parser    *feed.Parser
	extractor Extractor
	filterer  *feed.Filterer
	filters   FilterSource
}

func New(sources SourceStore, ledger Ledger, fetcher Fetcher, parser *feed.Parser, extractor Extractor, filters FilterSource) *Crawler {
	return &Crawler{
		sources:   sources,
		ledger:    ledger,
		fetcher:   fetcher,
		parser:    parser,
		extractor: extractor,
		filterer:  feed.NewFilterer(),
		filters:   filters,
	}
}

// Crawl visits every active source, optionally limited to one category, by descending priority.
// A failing source is recorded and skipped; only the source listing itself can fail the cycle.
func (c *Crawler) Crawl(ctx context.Context, category string) ([]Candidate, Stats, error) {
	var stats Stats

	sources, err := c.sources.ListActiveSources(ctx, category)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to list active sources: %w", err)
	}

	var candidates []Candidate
	for _, source := range sources {
		if err := ctx.Err(); err != nil {
			return candidates, stats, err
		}

		stats.Sources++

		found, sourceStats, err := c.CrawlSource(ctx, source)
		if err != nil {
			stats.FailedSources++
			slog.Warn("Source crawl failed", "source", source.Name, "error", err)
			continue
		}

		stats.add(sourceStats)
		candidates = append(candidates, found...)

		slog.Debug("Source crawled", "source", source.Name, "items", sourceStats.Items, "candidates", sourceStats.Candidates)
	}

	return candidates, stats, nil
}

// CrawlSource fetches one source and returns its new candidates.
// Fetch and parse failures advance the source's breaker and wrap ErrFetch.
func (c *Crawler) CrawlSource(ctx context.Context, source database.Source) ([]Candidate, Stats, error) {
	var stats Stats

	data, err := c.fetcher.Fetch(ctx, source.URL)
	if err == nil {
		var items []feed.Item
		_, items, err = c.parser.Run(data)
		if err == nil {
			if recordErr := c.sources.RecordFetchSuccess(ctx, source.ID, time.Now()); recordErr != nil {
				slog.Error("Failed to record fetch success", "source", source.Name, "error", recordErr)
			}
			return c.processItems(ctx, source, items)
		}
	}

	if recordErr := c.sources.RecordFetchFailure(ctx, source.ID); recordErr != nil {
		slog.Error("Failed to record fetch failure", "source", source.Name, "error", recordErr)
	}

	return nil, stats, fmt.Errorf("%w: %s: %w", ErrFetch, source.Name, err)
}

func (c *Crawler) processItems(ctx context.Context, source database.Source, items []feed.Item) ([]Candidate, Stats, error) {
	var stats Stats

	if c.filters != nil {
		items = c.filterer.Run(items, c.filters.GetFilters(source.URL))
	}

	var candidates []Candidate
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return candidates, stats, nil
		}

		stats.Items++

		if item.Link == "" || item.Title == "" {
			continue
		}

		if item.IsFiltered {
			stats.Filtered++
			slog.Debug("Item filtered", "source", source.Name, "title", item.Title, "reason", item.FilterReason)
			continue
		}

		candidate, outcome := c.processItem(ctx, source, item)
		switch outcome {
		case outcomeDuplicate:
			stats.Duplicates++
		case outcomeExtractionFailed:
			stats.ExtractionFailures++
		case outcomeTooShort:
			stats.TooShort++
		case outcomeAccepted:
			stats.Candidates++
			candidates = append(candidates, candidate)
		}
	}

	return candidates, stats, nil
}

type itemOutcome int

const (
	outcomeAccepted itemOutcome = iota
	outcomeDuplicate
	outcomeExtractionFailed
	outcomeTooShort
	outcomeError
)

func (c *Crawler) processItem(ctx context.Context, source database.Source, item feed.Item) (Candidate, itemOutcome) {
	urlHash := feed.URLHash(item.Link)
	titleHash := feed.TitleHash(item.Title)

	seen, err := c.ledger.HasURLHash(ctx, urlHash)
	if err != nil {
		slog.Error("Failed to check url ledger", "source", source.Name, "url", item.Link, "error", err)
		return Candidate{}, outcomeError
	}
	if seen {
		return Candidate{}, outcomeDuplicate
	}

	seen, err = c.ledger.HasTitleHash(ctx, titleHash)
	if err != nil {
		slog.Error("Failed to check title ledger", "source", source.Name, "url", item.Link, "error", err)
		return Candidate{}, outcomeError
	}
	if seen {
		return Candidate{}, outcomeDuplicate
	}

	body := feed.StripHTML(item.Body())
	extractionFailed := false
	if utf8.RuneCountInString(body) < MinEmbeddedLength {
		extracted, err := c.extractPage(ctx, item.Link)
		if err != nil {
			extractionFailed = true
			slog.Debug("Content extraction failed", "source", source.Name, "url", item.Link, "error", err)
		} else {
			body = extracted
		}
	}

	if utf8.RuneCountInString(body) < MinBodyLength {
		if extractionFailed {
			return Candidate{}, outcomeExtractionFailed
		}
		return Candidate{}, outcomeTooShort
	}

	body = feed.Truncate(body, MaxBodyLength)

	inserted, err := c.ledger.InsertIfAbsent(ctx, database.DedupRecord{
		URLHash:   urlHash,
		URL:       item.Link,
		TitleHash: titleHash,
	})
	if err != nil {
		slog.Error("Failed to record dedup entry", "source", source.Name, "url", item.Link, "error", err)
		return Candidate{}, outcomeError
	}
	if !inserted {
		return Candidate{}, outcomeDuplicate
	}

	return Candidate{
		Title:       item.Title,
		URL:         item.Link,
		Body:        body,
		SourceName:  source.Name,
		Category:    source.Category,
		PublishedAt: item.PublishedAt,
	}, outcomeAccepted
}

func (c *Crawler) extractPage(ctx context.Context, link string) (string, error) {
	data, err := c.fetcher.Fetch(ctx, link)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	return c.extractor.Run(data)
}
