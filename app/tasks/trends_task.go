package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/newsroom/app/trends"
)

// TrendsTask queues one collection job per trend source kind.
type TrendsTask struct {
	Task
	queue Enqueuer
}

func NewTrendsTask(queue Enqueuer) *TrendsTask {
	return &TrendsTask{
		Task:  NewTask(TaskTypeTrends),
		queue: queue,
	}
}

func (t *TrendsTask) Execute(ctx context.Context) error {
	for _, kind := range []string{trends.KindGoogle, trends.KindReddit} {
		if _, err := t.queue.Enqueue(ctx, trends.TrendJob{SourceKind: kind}, 0); err != nil {
			return fmt.Errorf("failed to enqueue %s trend job: %w", kind, err)
		}
	}

	slog.Info("Task completed", "type", t.GetType(), "duration", t.GetDuration())
	return nil
}
