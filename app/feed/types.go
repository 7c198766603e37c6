package feed

import (
	"time"
)

// Feed processing types

type Metadata struct {
	Title       string
	Link        string
	Description string
	Language    string
}

type Item struct {
	GUID        string
	Title       string
	Link        string
	Description string
	Content     string
	PublishedAt time.Time // zero when the feed carries no date
	Authors     []string
	Categories  []string

	IsFiltered   bool
	FilterReason string
}

// Body returns the richest embedded text the feed carried for the item.
func (i Item) Body() string {
	if len(i.Content) >= len(i.Description) {
		return i.Content
	}
	return i.Description
}

// Source catalog types

type Catalog struct {
	Sources []SourceConfig `yaml:"sources"`
}

type SourceConfig struct {
	Name     string         `yaml:"name"`
	URL      string         `yaml:"url"`
	Category string         `yaml:"category"`
	Priority int            `yaml:"priority"`
	Filters  []ConfigFilter `yaml:"filters"`
}

type ConfigFilter struct {
	Field    string   `yaml:"field"`
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}
