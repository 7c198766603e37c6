package feed

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSourceCatalogLoadValidFile(t *testing.T) {
	tempDir := t.TempDir()

	content := `
sources:
  - name: TechWire
    url: "https://techwire.example/rss"
    category: Technology
    priority: 8
    filters:
      - field: "title"
        excludes:
          - "sponsored"
  - name: Markets Daily
    url: "https://markets.example/feed"
    category: finance
`

	path := filepath.Join(tempDir, "sources.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	catalog := NewSourceCatalog(path)
	if err := catalog.Run(); err != nil {
		t.Fatal(err)
	}

	if catalog.GetSourceCount() != 2 {
		t.Errorf("Expected 2 sources, got %d", catalog.GetSourceCount())
	}

	sources := catalog.GetSources()
	if sources[0].Name != "TechWire" || sources[1].Name != "Markets Daily" {
		t.Errorf("Expected file order to be preserved, got: %+v", sources)
	}
	if sources[0].Category != "technology" {
		t.Errorf("Expected category to be lowercased, got '%s'", sources[0].Category)
	}
	if sources[1].Priority != 5 {
		t.Errorf("Expected default priority 5, got %d", sources[1].Priority)
	}

	filters := catalog.GetFilters("https://techwire.example/rss")
	if len(filters) != 1 {
		t.Errorf("Expected 1 filter, got %d", len(filters))
	}
	if catalog.GetFilters("https://unknown.example/rss") != nil {
		t.Error("Expected no filters for unknown source")
	}
}

func TestSourceCatalogMissingFile(t *testing.T) {
	catalog := NewSourceCatalog(filepath.Join(t.TempDir(), "missing.yml"))
	if err := catalog.Run(); err != nil {
		t.Errorf("Expected no error for missing file, got: %v", err)
	}
	if catalog.GetSourceCount() != 0 {
		t.Errorf("Expected empty catalog, got %d sources", catalog.GetSourceCount())
	}
}

func TestSourceCatalogValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing url", "sources:\n  - name: A\n    category: news\n"},
		{"relative url", "sources:\n  - name: A\n    url: /feed\n    category: news\n"},
		{"missing category", "sources:\n  - name: A\n    url: https://a.example/rss\n"},
		{"priority out of range", "sources:\n  - name: A\n    url: https://a.example/rss\n    category: news\n    priority: 11\n"},
		{"duplicate url", "sources:\n  - name: A\n    url: https://a.example/rss\n    category: news\n  - name: B\n    url: https://a.example/rss\n    category: news\n"},
		{"bad filter field", "sources:\n  - name: A\n    url: https://a.example/rss\n    category: news\n    filters:\n      - field: body\n        includes: [x]\n"},
		{"empty filter", "sources:\n  - name: A\n    url: https://a.example/rss\n    category: news\n    filters:\n      - field: title\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			catalog := NewSourceCatalog("")
			if err := catalog.Load([]byte(tt.content)); err == nil {
				t.Errorf("Expected validation error for %s", tt.name)
			}
		})
	}
}
