package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedules in standard five-field cron syntax, evaluated in UTC.
var Schedules = map[TaskType]string{
	TaskTypeCrawl:    "*/15 * * * *",
	TaskTypeTrends:   "*/30 * * * *",
	TaskTypeCleanup:  "0 3 * * *",
	TaskTypeOptimize: "0 0 * * 0",
}

// InitialCrawlDelay is how long after Start the first crawl runs.
const InitialCrawlDelay = 5 * time.Second

var _ TaskSchedulerInterface = (*Scheduler)(nil)

type Scheduler struct {
	factories    map[TaskType]TaskFactory
	cron         *cron.Cron
	initialDelay time.Duration
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

func NewScheduler(factories map[TaskType]TaskFactory) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	cronParser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

	return &Scheduler{
		factories: factories,
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithParser(cronParser),
			cron.WithChain(cron.Recover(newCronLogger(slog.Default()))),
		),
		initialDelay: InitialCrawlDelay,
		ctx:          ctx,
		cancel:       cancel,
	}
}

func (s *Scheduler) Start() {
	for stage, expr := range Schedules {
		if _, ok := s.factories[stage]; !ok {
			continue
		}

		stage := stage
		if _, err := s.cron.AddFunc(expr, func() { s.run(stage) }); err != nil {
			slog.Error("Failed to schedule stage", "stage", stage, "schedule", expr, "error", err)
			continue
		}
		slog.Debug("Stage scheduled", "stage", stage, "schedule", expr)
	}

	s.cron.Start()

	if _, ok := s.factories[TaskTypeCrawl]; ok {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			select {
			case <-s.ctx.Done():
			case <-time.After(s.initialDelay):
				s.run(TaskTypeCrawl)
			}
		}()
	}

	slog.Info("Scheduler started", "stages", len(s.factories))
}

// Stop waits for running cron entries and triggered stages to return.
func (s *Scheduler) Stop() {
	s.cancel()

	cronCtx := s.cron.Stop()
	<-cronCtx.Done()

	s.wg.Wait()
	slog.Info("Scheduler stopped")
}

// TriggerNow runs stage in the background and returns immediately.
// Concurrent runs of the same stage are allowed.
func (s *Scheduler) TriggerNow(stage TaskType) error {
	if _, ok := s.factories[stage]; !ok {
		return fmt.Errorf("unknown stage: %s", stage)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(stage)
	}()

	return nil
}

// RunNow runs stage synchronously.
func (s *Scheduler) RunNow(stage TaskType) error {
	factory, ok := s.factories[stage]
	if !ok {
		return fmt.Errorf("unknown stage: %s", stage)
	}
	return s.execute(factory())
}

func (s *Scheduler) run(stage TaskType) {
	factory, ok := s.factories[stage]
	if !ok {
		return
	}

	if err := s.execute(factory()); err != nil {
		slog.Error("Stage failed", "stage", stage, "error", err)
	}
}

func (s *Scheduler) execute(task TaskInterface) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("stage %s panicked: %v", task.GetType(), r)
		}
	}()

	task.Start()

	taskCtx, cancel := context.WithTimeout(s.ctx, DefaultTimeout)
	defer cancel()

	if err := task.Execute(taskCtx); err != nil {
		return err
	}

	slog.Debug("Stage finished", "stage", task.GetType(), "id", task.GetID(), "duration", task.GetDuration())
	return nil
}
