package feed

import (
	"testing"
)

func TestFilterer_NoFilters(t *testing.T) {
	filterer := NewFilterer()

	items := []Item{
		{Title: "Test Item 1", Description: "Test description"},
		{Title: "Test Item 2", Description: "Another description"},
	}

	result := filterer.Run(items, nil)

	if len(result) != 2 {
		t.Errorf("Expected 2 items, got %d", len(result))
	}
	for i, item := range result {
		if item.IsFiltered {
			t.Errorf("Item %d should not be filtered when no filters are configured", i)
		}
	}
}

func TestFilterer_CombinedIncludeExclude(t *testing.T) {
	filterer := NewFilterer()

	items := []Item{
		{Title: "Tech News Update"},
		{Title: "Tech Advertisement"},
		{Title: "Sports News"},
		{Title: "Weather Report"},
	}

	filters := []ConfigFilter{
		{
			Field:    "title",
			Includes: []string{"tech", "news"},
			Excludes: []string{"advertisement"},
		},
	}

	result := filterer.Run(items, filters)

	if result[0].IsFiltered {
		t.Errorf("First item should not be filtered")
	}
	if !result[1].IsFiltered {
		t.Errorf("Second item should be filtered due to excluded term")
	}
	if result[1].FilterReason == "" {
		t.Errorf("Second item should have filter reason")
	}
	if result[2].IsFiltered {
		t.Errorf("Third item should not be filtered")
	}
	if !result[3].IsFiltered {
		t.Errorf("Fourth item should be filtered, no included terms")
	}
}

func TestFilterer_MultipleFields(t *testing.T) {
	filterer := NewFilterer()

	items := []Item{
		{Title: "News Update", Authors: []string{"tech@example.com (Tech Writer)"}},
		{Title: "News Flash", Authors: []string{"spam@example.com (Spammer)"}},
		{Title: "Sports", Categories: []string{"Sports"}},
	}

	filters := []ConfigFilter{
		{Field: "title", Includes: []string{"news"}},
		{Field: "authors", Excludes: []string{"spam"}},
	}

	result := filterer.Run(items, filters)

	if result[0].IsFiltered {
		t.Errorf("First item should not be filtered")
	}
	if !result[1].IsFiltered {
		t.Errorf("Second item should be filtered by author")
	}
	if !result[2].IsFiltered {
		t.Errorf("Third item should be filtered by title")
	}
}

func TestFilterer_UnknownField(t *testing.T) {
	filterer := NewFilterer()

	result := filterer.Run([]Item{{Title: "Test Article"}}, []ConfigFilter{
		{Field: "unknown_field", Includes: []string{"test"}},
	})

	if !result[0].IsFiltered {
		t.Errorf("Item should be filtered when using unknown field")
	}
}

func TestContainsFold(t *testing.T) {
	if !ContainsFold("BREAKING NEWS UPDATE", "News") {
		t.Error("Expected case-insensitive match")
	}
	if ContainsFold("Sports Report", "tech") {
		t.Error("Expected no match")
	}
}
