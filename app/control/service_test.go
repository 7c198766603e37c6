package control

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/lysyi3m/newsroom/app/database"
	"github.com/lysyi3m/newsroom/app/queue"
	"github.com/lysyi3m/newsroom/app/tasks"
)

type fakeTrigger struct {
	stages []tasks.TaskType
}

func (f *fakeTrigger) TriggerNow(stage tasks.TaskType) error {
	if stage == "bogus" {
		return errors.New("unknown stage: bogus")
	}
	f.stages = append(f.stages, stage)
	return nil
}

type fakeQueue struct {
	name     string
	paused   bool
	counts   queue.Counts
	pauseErr error
}

func (q *fakeQueue) Name() string { return q.name }

func (q *fakeQueue) Pause(ctx context.Context) error {
	if q.pauseErr != nil {
		return q.pauseErr
	}
	q.paused = true
	return nil
}

func (q *fakeQueue) Resume(ctx context.Context) error {
	q.paused = false
	return nil
}

func (q *fakeQueue) IsPaused(ctx context.Context) (bool, error) { return q.paused, nil }

func (q *fakeQueue) Counts(ctx context.Context) (queue.Counts, error) { return q.counts, nil }

type fakeSources struct{}

func (fakeSources) ListActiveSources(ctx context.Context, category string) ([]database.Source, error) {
	return []database.Source{{Name: "TechWire", Priority: 10, IsActive: true}}, nil
}

type fakeViews struct {
	mu    sync.Mutex
	views map[string]int
	err   error
}

func (f *fakeViews) IncrementViews(ctx context.Context, articleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.views == nil {
		f.views = map[string]int{}
	}
	f.views[articleID]++
	return nil
}

func TestTriggerNow(t *testing.T) {
	trigger := &fakeTrigger{}
	s := NewService(trigger, fakeSources{}, &fakeViews{})

	if err := s.TriggerNow("crawl"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if err := s.TriggerNow("bogus"); err == nil {
		t.Error("Expected error for unknown stage")
	}
	if len(trigger.stages) != 1 || trigger.stages[0] != tasks.TaskTypeCrawl {
		t.Errorf("Expected one crawl trigger, got %v", trigger.stages)
	}
}

func TestPauseResumeAndStats(t *testing.T) {
	content := &fakeQueue{name: "content", counts: queue.Counts{Waiting: 3, Failed: 1}}
	trends := &fakeQueue{name: "trends"}
	s := NewService(&fakeTrigger{}, fakeSources{}, &fakeViews{}, content, trends)
	ctx := context.Background()

	if err := s.PauseQueues(ctx); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if !content.paused || !trends.paused {
		t.Error("Expected both queues paused")
	}

	stats, err := s.QueueStats(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if stats["content"].Waiting != 3 || !stats["content"].Paused {
		t.Errorf("Expected paused content queue with 3 waiting, got %+v", stats["content"])
	}

	if err := s.ResumeQueues(ctx); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if content.paused || trends.paused {
		t.Error("Expected both queues resumed")
	}
}

func TestPauseQueuesReportsFailures(t *testing.T) {
	broken := &fakeQueue{name: "content", pauseErr: errors.New("redis down")}
	healthy := &fakeQueue{name: "trends"}
	s := NewService(&fakeTrigger{}, fakeSources{}, &fakeViews{}, broken, healthy)

	if err := s.PauseQueues(context.Background()); err == nil {
		t.Error("Expected pause error")
	}
	if !healthy.paused {
		t.Error("Expected healthy queue to be paused anyway")
	}
}

func TestListActiveSources(t *testing.T) {
	s := NewService(&fakeTrigger{}, fakeSources{}, &fakeViews{})
	sources, err := s.ListActiveSources(context.Background())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(sources) != 1 || sources[0].Name != "TechWire" {
		t.Errorf("Expected TechWire, got %+v", sources)
	}
}

func TestRecordViewIsBestEffort(t *testing.T) {
	views := &fakeViews{}
	s := NewService(&fakeTrigger{}, fakeSources{}, views)

	s.RecordView("a1")
	s.RecordView("a1")
	s.Wait()

	if views.views["a1"] != 2 {
		t.Errorf("Expected 2 views, got %d", views.views["a1"])
	}

	failing := NewService(&fakeTrigger{}, fakeSources{}, &fakeViews{err: errors.New("article not found")})
	failing.RecordView("missing")
	failing.Wait()
}

type fakeTrends struct {
	trends []database.Trend
}

func (f *fakeTrends) ListUnprocessed(ctx context.Context, limit int) ([]database.Trend, error) {
	var result []database.Trend
	for _, trend := range f.trends {
		if !trend.Processed && len(result) < limit {
			result = append(result, trend)
		}
	}
	return result, nil
}

func (f *fakeTrends) MarkProcessed(ctx context.Context, id string) error {
	for i := range f.trends {
		if f.trends[i].ID == id {
			f.trends[i].Processed = true
			return nil
		}
	}
	return database.ErrTrendNotFound
}

func TestUnprocessedTrends(t *testing.T) {
	board := &fakeTrends{trends: []database.Trend{{ID: "t1", Keyword: "rates"}, {ID: "t2", Keyword: "chips"}}}
	s := NewService(&fakeTrigger{}, fakeSources{}, &fakeViews{}).WithTrends(board)
	ctx := context.Background()

	trends, err := s.UnprocessedTrends(ctx, 1)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if len(trends) != 1 || trends[0].ID != "t1" {
		t.Errorf("Expected the first trend only, got: %+v", trends)
	}

	if err := s.MarkTrendProcessed(ctx, "t1"); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	trends, _ = s.UnprocessedTrends(ctx, 10)
	if len(trends) != 1 || trends[0].ID != "t2" {
		t.Errorf("Expected t2 left, got: %+v", trends)
	}

	if err := s.MarkTrendProcessed(ctx, "missing"); !errors.Is(err, database.ErrTrendNotFound) {
		t.Errorf("Expected ErrTrendNotFound, got: %v", err)
	}
}

func TestUnprocessedTrendsWithoutBoard(t *testing.T) {
	s := NewService(&fakeTrigger{}, fakeSources{}, &fakeViews{})
	if _, err := s.UnprocessedTrends(context.Background(), 5); !errors.Is(err, ErrTrendsUnavailable) {
		t.Errorf("Expected ErrTrendsUnavailable, got: %v", err)
	}
}
