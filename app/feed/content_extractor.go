package feed

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"codeberg.org/readeck/go-readability/v2"
	"github.com/PuerkitoBio/goquery"
)

// Elements that never carry article text.
const noiseSelector = "script, style, noscript, iframe, embed, object, video, audio, canvas, nav, header, footer, aside, form"

type ContentExtractor struct{}

func NewContentExtractor() *ContentExtractor {
	return &ContentExtractor{}
}

// Run extracts the main readable text of an HTML page.
func (e *ContentExtractor) Run(data []byte) (string, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	cleaned := string(data)
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err == nil {
		doc.Find(noiseSelector).Remove()
		doc.Find("[class*='share'], [class*='social'], [class*='comment'], [id*='comment']").Remove()
		if html, err := doc.Html(); err == nil && html != "" {
			cleaned = html
		}
	}

	article, err := readability.FromReader(strings.NewReader(cleaned), nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	var buf strings.Builder
	if err := article.RenderText(&buf); err != nil {
		return "", fmt.Errorf("failed to render content: %w", err)
	}

	text := normalizeParagraphs(buf.String())
	if text == "" {
		return "", fmt.Errorf("no content extracted from HTML data")
	}

	slog.Debug("Content extracted successfully", "content_length", len(text))

	return text, nil
}

func normalizeParagraphs(s string) string {
	var paragraphs []string
	for _, line := range strings.Split(s, "\n") {
		if line = normalizeWhitespace(line); line != "" {
			paragraphs = append(paragraphs, line)
		}
	}
	return strings.Join(paragraphs, "\n\n")
}
