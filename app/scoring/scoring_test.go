package scoring

import (
	"testing"
	"time"
)

var now = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

func TestScoreCandidate(t *testing.T) {
	tests := []struct {
		name        string
		category    string
		bodyLength  int
		publishedAt time.Time
		expected    int
	}{
		{"fresh long finance", "finance", 2500, now.Add(-30 * time.Minute), 14},
		{"old short entertainment", "entertainment", 500, now.Add(-10 * time.Hour), 2},
		{"fresh technology", "technology", 1500, now.Add(-time.Hour), 9},
		{"mid-age health", "health", 800, now.Add(-3 * time.Hour), 8},
		{"unknown category", "politics", 100, now.Add(-24 * time.Hour), 3},
		{"missing date counts as fresh", "science", 100, time.Time{}, 7},
		{"exactly 1000 chars earns nothing", "sports", 1000, now.Add(-7 * time.Hour), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScoreCandidate(tt.category, tt.bodyLength, tt.publishedAt, now)
			if got != tt.expected {
				t.Errorf("Expected score %d, got: %d", tt.expected, got)
			}
		})
	}
}

func TestQueuePriority(t *testing.T) {
	tests := map[int]int{
		14: 0,
		10: 0,
		9:  1,
		2:  8,
		0:  10,
		-3: 10,
	}

	for score, expected := range tests {
		if got := QueuePriority(score); got != expected {
			t.Errorf("QueuePriority(%d): expected %d, got: %d", score, expected, got)
		}
	}
}

func TestScoreTrend(t *testing.T) {
	// 100 * (10/5) * 2 * 1.5
	if got := ScoreTrend(100, "finance", "google", now.Add(-10*time.Minute), now); got != 600 {
		t.Errorf("Expected 600, got: %d", got)
	}
	// 10 * (2/5) * 1.5
	if got := ScoreTrend(10, "entertainment", "reddit", now.Add(-2*time.Hour), now); got != 6 {
		t.Errorf("Expected 6, got: %d", got)
	}
	// 50 * (3/5)
	if got := ScoreTrend(50, "general", "reddit", now.Add(-12*time.Hour), now); got != 30 {
		t.Errorf("Expected 30, got: %d", got)
	}
}

func TestRankTrends(t *testing.T) {
	ranked := RankTrends([]RankedTrend{
		{Keyword: "low", Category: "entertainment", SourceKind: "reddit", Raw: 10, DetectedAt: now.Add(-12 * time.Hour)},
		{Keyword: "high", Category: "finance", SourceKind: "google", Raw: 100, DetectedAt: now},
		{Keyword: "mid", Category: "technology", SourceKind: "reddit", Raw: 50, DetectedAt: now.Add(-3 * time.Hour)},
	}, now)

	if ranked[0].Keyword != "high" || ranked[1].Keyword != "mid" || ranked[2].Keyword != "low" {
		t.Errorf("Expected high, mid, low ordering, got: %+v", ranked)
	}
	if ranked[0].Score == 0 {
		t.Error("Expected scores to be filled in")
	}
}

func TestCategoryRPMDefault(t *testing.T) {
	if CategoryRPM("technology") != 6 {
		t.Errorf("Expected technology RPM 6, got: %v", CategoryRPM("technology"))
	}
	if CategoryRPM("unknown") != 3 {
		t.Errorf("Expected default RPM 3, got: %v", CategoryRPM("unknown"))
	}
}
