package tasks

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

type TaskType string

const (
	TaskTypeCrawl       TaskType = "crawl"
	TaskTypeTrends      TaskType = "trends"
	TaskTypeCleanup     TaskType = "cleanup"
	TaskTypeOptimize    TaskType = "optimize"
	TaskTypeSyncSources TaskType = "sync-sources"
)

// DefaultTimeout bounds a single stage run.
const DefaultTimeout = 5 * time.Minute

type TaskInterface interface {
	Execute(ctx context.Context) error
	GetID() string
	GetType() TaskType
	Start()
	GetDuration() time.Duration
}

// TaskFactory builds a fresh task for each run of a stage.
type TaskFactory func() TaskInterface

type Task struct {
	ID        string
	Type      TaskType
	StartedAt *time.Time
}

func (t *Task) GetID() string {
	return t.ID
}

func (t *Task) GetType() TaskType {
	return t.Type
}

func (t *Task) Start() {
	now := time.Now()
	t.StartedAt = &now
}

func (t *Task) GetDuration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	return time.Since(*t.StartedAt)
}

func NewTask(taskType TaskType) Task {
	uniqueID := fmt.Sprintf("%d-%d", time.Now().UnixNano(), rand.Intn(10000))

	return Task{
		ID:   uniqueID,
		Type: taskType,
	}
}
