// Package control is the operator surface over the scheduler, the queues and the stores.
// It is transport independent; app/api exposes it over HTTP.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lysyi3m/newsroom/app/database"
	"github.com/lysyi3m/newsroom/app/queue"
	"github.com/lysyi3m/newsroom/app/tasks"
)

const viewTimeout = 5 * time.Second

type Trigger interface {
	TriggerNow(stage tasks.TaskType) error
}

type Queue interface {
	Name() string
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	IsPaused(ctx context.Context) (bool, error)
	Counts(ctx context.Context) (queue.Counts, error)
}

type SourceLister interface {
	ListActiveSources(ctx context.Context, category string) ([]database.Source, error)
}

type ViewCounter interface {
	IncrementViews(ctx context.Context, articleID string) error
}

// TrendBoard lists trends waiting to be acted on.
type TrendBoard interface {
	ListUnprocessed(ctx context.Context, limit int) ([]database.Trend, error)
	MarkProcessed(ctx context.Context, id string) error
}

var ErrTrendsUnavailable = errors.New("trend board not configured")

type QueueStats struct {
	queue.Counts
	Paused bool `json:"paused"`
}

type Service struct {
	trigger Trigger
	sources SourceLister
	views   ViewCounter
	trends  TrendBoard
	queues  []Queue
	wg      sync.WaitGroup
}

func NewService(trigger Trigger, sources SourceLister, views ViewCounter, queues ...Queue) *Service {
	return &Service{
		trigger: trigger,
		sources: sources,
		views:   views,
		queues:  queues,
	}
}

func (s *Service) WithTrends(trends TrendBoard) *Service {
	s.trends = trends
	return s
}

// TriggerNow starts stage outside its schedule and returns without waiting for it.
func (s *Service) TriggerNow(stage string) error {
	return s.trigger.TriggerNow(tasks.TaskType(stage))
}

// PauseQueues stops dequeues on every queue. In-flight jobs finish.
func (s *Service) PauseQueues(ctx context.Context) error {
	var errs []error
	for _, q := range s.queues {
		if err := q.Pause(ctx); err != nil {
			errs = append(errs, err)
			continue
		}
		slog.Info("Queue paused", "queue", q.Name())
	}
	return errors.Join(errs...)
}

func (s *Service) ResumeQueues(ctx context.Context) error {
	var errs []error
	for _, q := range s.queues {
		if err := q.Resume(ctx); err != nil {
			errs = append(errs, err)
			continue
		}
		slog.Info("Queue resumed", "queue", q.Name())
	}
	return errors.Join(errs...)
}

func (s *Service) QueueStats(ctx context.Context) (map[string]QueueStats, error) {
	stats := make(map[string]QueueStats, len(s.queues))
	for _, q := range s.queues {
		counts, err := q.Counts(ctx)
		if err != nil {
			return nil, err
		}
		paused, err := q.IsPaused(ctx)
		if err != nil {
			return nil, err
		}
		stats[q.Name()] = QueueStats{Counts: counts, Paused: paused}
	}
	return stats, nil
}

func (s *Service) ListActiveSources(ctx context.Context) ([]database.Source, error) {
	sources, err := s.sources.ListActiveSources(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list active sources: %w", err)
	}
	return sources, nil
}

// UnprocessedTrends returns up to limit trends nobody has acted on yet, strongest first.
func (s *Service) UnprocessedTrends(ctx context.Context, limit int) ([]database.Trend, error) {
	if s.trends == nil {
		return nil, ErrTrendsUnavailable
	}
	trends, err := s.trends.ListUnprocessed(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unprocessed trends: %w", err)
	}
	return trends, nil
}

func (s *Service) MarkTrendProcessed(ctx context.Context, id string) error {
	if s.trends == nil {
		return ErrTrendsUnavailable
	}
	return s.trends.MarkProcessed(ctx, id)
}

// RecordView counts a read in the background. Failures are logged, never returned.
func (s *Service) RecordView(articleID string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), viewTimeout)
		defer cancel()

		if err := s.views.IncrementViews(ctx, articleID); err != nil {
			slog.Warn("Failed to record article view", "article_id", articleID, "error", err)
		}
	}()
}

// Wait blocks until background view updates have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}
