package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/newsroom/app/database"
)

// SyncSourcesTask upserts the catalog into the sources table. Breaker state is kept.
type SyncSourcesTask struct {
	Task
	catalog SourceCatalog
	sources SourceUpserter
}

func NewSyncSourcesTask(catalog SourceCatalog, sources SourceUpserter) *SyncSourcesTask {
	return &SyncSourcesTask{
		Task:    NewTask(TaskTypeSyncSources),
		catalog: catalog,
		sources: sources,
	}
}

func (t *SyncSourcesTask) Execute(ctx context.Context) error {
	created := 0
	configs := t.catalog.GetSources()

	for _, config := range configs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		isNew, err := t.sources.UpsertSource(ctx, database.Source{
			Name:     config.Name,
			URL:      config.URL,
			Category: config.Category,
			Priority: config.Priority,
			IsActive: true,
		})
		if err != nil {
			return fmt.Errorf("failed to sync source %s: %w", config.Name, err)
		}
		if isNew {
			created++
		}
	}

	slog.Info("Task completed",
		"type", t.GetType(),
		"duration", t.GetDuration(),
		"sources", len(configs),
		"created", created)

	return nil
}
