// Package scoring ranks candidates and trends by expected revenue and freshness.
package scoring

import (
	"math"
	"sort"
	"time"
)

const (
	defaultCategoryBase = 3
	defaultCategoryRPM  = 3.0

	// MaxQueuePriority is the lowest urgency a queue job can carry.
	MaxQueuePriority = 10
)

var categoryBase = map[string]int{
	"finance":       10,
	"health":        7,
	"technology":    6,
	"science":       5,
	"sports":        3,
	"entertainment": 2,
}

// Estimated revenue per thousand views.
var categoryRPM = map[string]float64{
	"technology":    6,
	"finance":       10,
	"health":        7,
	"sports":        3,
	"science":       5,
	"entertainment": 2,
}

func CategoryBase(category string) int {
	if base, ok := categoryBase[category]; ok {
		return base
	}
	return defaultCategoryBase
}

func CategoryRPM(category string) float64 {
	if rpm, ok := categoryRPM[category]; ok {
		return rpm
	}
	return defaultCategoryRPM
}

// ScoreCandidate scores a crawled item. A zero publishedAt counts as published now.
func ScoreCandidate(category string, bodyLength int, publishedAt, now time.Time) int {
	score := CategoryBase(category)

	if bodyLength > 1000 {
		score++
	}
	if bodyLength > 2000 {
		score++
	}

	if publishedAt.IsZero() {
		publishedAt = now
	}
	age := now.Sub(publishedAt)
	switch {
	case age < 2*time.Hour:
		score += 2
	case age < 6*time.Hour:
		score++
	}

	return score
}

// ScoreTrend weights a raw trend signal by category value, freshness and source kind.
func ScoreTrend(raw int, category, sourceKind string, detectedAt, now time.Time) int {
	score := float64(raw) * (CategoryRPM(category) / 5)

	age := now.Sub(detectedAt)
	switch {
	case age < time.Hour:
		score *= 2
	case age < 6*time.Hour:
		score *= 1.5
	}

	if sourceKind == "google" {
		score *= 1.5
	}

	return int(math.Round(score))
}

// QueuePriority maps a score to a queue priority where lower runs first.
func QueuePriority(score int) int {
	priority := MaxQueuePriority - score
	if priority < 0 {
		return 0
	}
	if priority > MaxQueuePriority {
		return MaxQueuePriority
	}
	return priority
}

type RankedTrend struct {
	Keyword    string
	Category   string
	SourceKind string
	Raw        int
	DetectedAt time.Time
	Score      int
}

// RankTrends scores trends at now and orders them best first. Ties keep input order.
func RankTrends(trends []RankedTrend, now time.Time) []RankedTrend {
	ranked := make([]RankedTrend, len(trends))
	for i, t := range trends {
		t.Score = ScoreTrend(t.Raw, t.Category, t.SourceKind, t.DetectedAt, now)
		ranked[i] = t
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})

	return ranked
}
