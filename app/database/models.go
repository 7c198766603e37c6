package database

import (
	"time"
)

const (
	ArticleStatusDraft     = "draft"
	ArticleStatusPublished = "published"
	ArticleStatusArchived  = "archived"
)

// MaxSourceErrors is the consecutive fetch failure count that deactivates a source.
const MaxSourceErrors = 5

type Source struct {
	ID            string
	Name          string
	URL           string
	Category      string
	Priority      int // 1-10, higher is crawled first
	IsActive      bool
	LastFetchedAt *time.Time
	ErrorCount    int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type DedupRecord struct {
	URLHash     string
	URL         string
	TitleHash   string
	ProcessedAt time.Time
}

type Trend struct {
	ID         string
	Keyword    string
	SourceKind string // google, reddit
	Score      int
	Category   string
	Processed  bool
	DetectedAt time.Time
}

type Author struct {
	ID           string
	Name         string
	Bio          string
	Role         string
	ArticleCount int
}

type Article struct {
	ID              string
	Slug            string
	Title           string
	Excerpt         string
	Content         string
	KeyPoints       []string
	Category        string
	Tags            []string
	AuthorID        string
	SourceURL       string
	SourceName      string
	ImageURL        string
	ReadTimeMinutes int
	WordCount       int
	RPMScore        float64
	Views           int
	Status          string
	PublishedAt     time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type PerformanceDaily struct {
	Date         string // YYYY-MM-DD in UTC
	Category     string
	ArticleCount int
	TotalViews   int
	AvgRPM       float64
}

// CategoryPerformance aggregates PerformanceDaily rows over a window.
type CategoryPerformance struct {
	Category     string
	ArticleCount int
	TotalViews   int
	AvgRPM       float64
}
