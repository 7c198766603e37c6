package api

import (
	"context"

	"github.com/lysyi3m/newsroom/app/control"
	"github.com/lysyi3m/newsroom/app/database"
)

// Controller is the operator surface the handlers drive.
type Controller interface {
	TriggerNow(stage string) error
	PauseQueues(ctx context.Context) error
	ResumeQueues(ctx context.Context) error
	QueueStats(ctx context.Context) (map[string]control.QueueStats, error)
	ListActiveSources(ctx context.Context) ([]database.Source, error)
	RecordView(articleID string)
	UnprocessedTrends(ctx context.Context, limit int) ([]database.Trend, error)
	MarkTrendProcessed(ctx context.Context, id string) error
}

var _ Controller = (*control.Service)(nil)

// HealthFunc reports dependency health. A non-nil error marks the service unhealthy.
type HealthFunc func(ctx context.Context) (map[string]any, error)

type Handler struct {
	control Controller
	health  HealthFunc
	version string
}

type sourceResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	URL           string  `json:"url"`
	Category      string  `json:"category"`
	Priority      int     `json:"priority"`
	ErrorCount    int     `json:"error_count"`
	LastFetchedAt *string `json:"last_fetched_at"`
}

type trendResponse struct {
	ID         string `json:"id"`
	Keyword    string `json:"keyword"`
	SourceKind string `json:"source_kind"`
	Score      int    `json:"score"`
	Category   string `json:"category"`
	DetectedAt string `json:"detected_at"`
}
