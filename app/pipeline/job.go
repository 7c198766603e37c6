package pipeline

import (
	"strings"
	"time"
	"unicode/utf8"
)

const maxTitleLength = 200

// ContentJob is the content queue payload produced by the crawl stage.
type ContentJob struct {
	SourceURL     string    `json:"source_url"`
	SourceName    string    `json:"source_name"`
	SourceContent string    `json:"source_content"`
	Category      string    `json:"category"`
	PriorityScore int       `json:"priority_score"`
	Title         string    `json:"title,omitempty"`
	PublishedAt   time.Time `json:"published_at,omitzero"`
}

// ResolveTitle returns the feed title, or the first line or sentence of the content.
func (j ContentJob) ResolveTitle() string {
	if title := strings.TrimSpace(j.Title); title != "" {
		return title
	}

	content := strings.TrimSpace(j.SourceContent)
	end := strings.IndexAny(content, "\n.")
	if end <= 0 {
		return "Untitled Article"
	}

	title := strings.TrimSpace(content[:end])
	if utf8.RuneCountInString(title) > maxTitleLength {
		title = string([]rune(title)[:maxTitleLength])
	}
	return title
}
