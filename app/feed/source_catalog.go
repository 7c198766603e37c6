package feed

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// SourceCatalog holds the feed sources declared in the catalog file, keyed by URL.
type SourceCatalog struct {
	path  string
	cache map[string]*SourceConfig
	order []string
	mu    sync.RWMutex
}

func NewSourceCatalog(path string) *SourceCatalog {
	return &SourceCatalog{
		path:  path,
		cache: make(map[string]*SourceConfig),
	}
}

// Run (re)loads the catalog file. A missing file leaves the catalog empty.
func (sc *SourceCatalog) Run() error {
	if _, err := os.Stat(sc.path); os.IsNotExist(err) {
		slog.Warn("Source catalog not found", "path", sc.path)
		return nil
	}

	data, err := os.ReadFile(sc.path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	return sc.Load(data)
}

// Load replaces the catalog with the sources parsed from data.
func (sc *SourceCatalog) Load(data []byte) error {
	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	cache := make(map[string]*SourceConfig, len(catalog.Sources))
	order := make([]string, 0, len(catalog.Sources))

	for i := range catalog.Sources {
		source := catalog.Sources[i]
		source.Category = strings.ToLower(strings.TrimSpace(source.Category))
		if source.Priority == 0 {
			source.Priority = 5
		}

		if err := sc.validateSource(&source); err != nil {
			return fmt.Errorf("invalid source at index %d: %w", i, err)
		}
		if _, dup := cache[source.URL]; dup {
			return fmt.Errorf("duplicate source URL at index %d: %s", i, source.URL)
		}

		cache[source.URL] = &source
		order = append(order, source.URL)

		slog.Debug("Source loaded", "source", source.Name, "category", source.Category, "priority", source.Priority)
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.cache = cache
	sc.order = order

	return nil
}

func (sc *SourceCatalog) GetSource(sourceURL string) (*SourceConfig, bool) {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	source, ok := sc.cache[sourceURL]
	return source, ok
}

// GetSources returns the sources in catalog file order.
func (sc *SourceCatalog) GetSources() []SourceConfig {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	sources := make([]SourceConfig, 0, len(sc.order))
	for _, u := range sc.order {
		sources = append(sources, *sc.cache[u])
	}
	return sources
}

// GetFilters returns the item filters declared for a source, if any.
func (sc *SourceCatalog) GetFilters(sourceURL string) []ConfigFilter {
	source, ok := sc.GetSource(sourceURL)
	if !ok {
		return nil
	}
	return source.Filters
}

func (sc *SourceCatalog) GetSourceCount() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return len(sc.cache)
}

func (sc *SourceCatalog) validateSource(source *SourceConfig) error {
	requiredFields := map[string]string{
		"source name":     source.Name,
		"source URL":      source.URL,
		"source category": source.Category,
	}

	for fieldName, fieldValue := range requiredFields {
		if fieldValue == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
	}

	if parsed, err := url.Parse(source.URL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("source URL is not absolute: %s", source.URL)
	}

	if source.Priority < 1 || source.Priority > 10 {
		return fmt.Errorf("priority must be between 1 and 10, got %d", source.Priority)
	}

	for i, filter := range source.Filters {
		if !validFilterFields[filter.Field] {
			return fmt.Errorf("invalid filter field at index %d: %s", i, filter.Field)
		}
		if len(filter.Includes) == 0 && len(filter.Excludes) == 0 {
			return fmt.Errorf("filter at index %d must have at least one include or exclude rule", i)
		}
	}

	return nil
}
