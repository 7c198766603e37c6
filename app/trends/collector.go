// Package trends collects trending topics from Google Trends and Reddit.
package trends

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/newsroom/app/database"
	"github.com/lysyi3m/newsroom/app/queue"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	KindGoogle = "google"
	KindReddit = "reddit"
	KindAll    = "all"

	itemsPerSource = 10
)

// TrendJob is the trend queue payload.
type TrendJob struct {
	SourceKind string `json:"source_kind"`
}

type Endpoint struct {
	Name string
	URL  string
}

type Config struct {
	GoogleRegions []Endpoint
	Subreddits    []Endpoint

	// RequestRate paces outbound fetches shared by both sources. Zero disables it.
	RequestRate  rate.Limit
	RequestBurst int
}

func DefaultConfig() Config {
	return Config{
		GoogleRegions: []Endpoint{
			{Name: "us", URL: "https://trends.google.com/trends/trendingsearches/daily/rss?geo=US"},
			{Name: "uk", URL: "https://trends.google.com/trends/trendingsearches/daily/rss?geo=GB"},
			{Name: "global", URL: "https://trends.google.com/trends/trendingsearches/daily/rss"},
		},
		Subreddits: []Endpoint{
			{Name: "technology", URL: "https://www.reddit.com/r/technology/hot.json?limit=25"},
			{Name: "worldnews", URL: "https://www.reddit.com/r/worldnews/hot.json?limit=25"},
			{Name: "science", URL: "https://www.reddit.com/r/science/hot.json?limit=25"},
			{Name: "business", URL: "https://www.reddit.com/r/business/hot.json?limit=25"},
		},
		RequestRate:  rate.Every(time.Second),
		RequestBurst: 2,
	}
}

type TrendStore interface {
	InsertTrend(ctx context.Context, trend database.Trend) error
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type Collector struct {
	cfg     Config
	store   TrendStore
	fetcher Fetcher
	limiter *rate.Limiter
	now     func() time.Time
}

func NewCollector(cfg Config, store TrendStore, fetcher Fetcher) *Collector {
	c := &Collector{
		cfg:     cfg,
		store:   store,
		fetcher: fetcher,
		now:     time.Now,
	}
	if cfg.RequestRate > 0 {
		c.limiter = rate.NewLimiter(cfg.RequestRate, max(cfg.RequestBurst, 1))
	}
	return c
}

// HandleJob is the trend queue handler.
func (c *Collector) HandleJob(ctx context.Context, job *queue.Job) error {
	var payload TrendJob
	if err := job.Decode(&payload); err != nil {
		return err
	}

	count, err := c.Collect(ctx, payload.SourceKind)
	if err != nil {
		return err
	}

	slog.Info("Trend detection completed", "job_id", job.ID, "kind", payload.SourceKind, "trends", count)
	return nil
}

// Collect fetches and stores trends for kind. Unknown kinds collect from every source.
func (c *Collector) Collect(ctx context.Context, kind string) (int, error) {
	switch kind {
	case KindGoogle:
		return c.CollectGoogle(ctx)
	case KindReddit:
		return c.CollectReddit(ctx)
	}

	var google, reddit int
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		google, err = c.CollectGoogle(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		reddit, err = c.CollectReddit(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return google + reddit, err
	}

	return google + reddit, nil
}

// CollectGoogle stores the top items of each region's trending searches feed.
func (c *Collector) CollectGoogle(ctx context.Context) (int, error) {
	parser := gofeed.NewParser()
	stored := 0

	for _, region := range c.cfg.GoogleRegions {
		data, err := c.fetch(ctx, region.URL)
		if err != nil {
			slog.Warn("Failed to fetch Google Trends", "region", region.Name, "error", err)
			continue
		}

		parsed, err := parser.ParseString(string(data))
		if err != nil {
			slog.Warn("Failed to parse Google Trends", "region", region.Name, "error", err)
			continue
		}

		for _, item := range first(parsed.Items, itemsPerSource) {
			trend, ok := googleTrend(item)
			if !ok {
				continue
			}
			trend.DetectedAt = c.now().UTC()

			if err := c.store.InsertTrend(ctx, trend); err != nil {
				return stored, fmt.Errorf("failed to store Google trend: %w", err)
			}
			stored++
		}
	}

	slog.Debug("Fetched Google Trends", "trends", stored)
	return stored, nil
}

// CollectReddit stores hot posts above the engagement threshold for each subreddit.
func (c *Collector) CollectReddit(ctx context.Context) (int, error) {
	stored := 0

	for _, subreddit := range c.cfg.Subreddits {
		data, err := c.fetch(ctx, subreddit.URL)
		if err != nil {
			slog.Warn("Failed to fetch subreddit", "subreddit", subreddit.Name, "error", err)
			continue
		}

		posts, err := parseListing(data)
		if err != nil {
			slog.Warn("Failed to parse subreddit listing", "subreddit", subreddit.Name, "error", err)
			continue
		}

		for _, post := range first(posts, itemsPerSource) {
			trend, ok := redditTrend(subreddit.Name, post)
			if !ok {
				continue
			}
			trend.DetectedAt = c.now().UTC()

			if err := c.store.InsertTrend(ctx, trend); err != nil {
				return stored, fmt.Errorf("failed to store Reddit trend: %w", err)
			}
			stored++
		}

		slog.Debug("Fetched subreddit", "subreddit", subreddit.Name, "posts", len(posts))
	}

	return stored, nil
}

func (c *Collector) fetch(ctx context.Context, url string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("request pacing: %w", err)
		}
	}
	return c.fetcher.Fetch(ctx, url)
}

func first[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
