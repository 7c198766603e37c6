package ai

import (
	"fmt"
	"strings"
)

const (
	evaluateBodyLimit = 3000
	generateBodyLimit = 5000
)

func evaluatePrompt(title, body string) string {
	return fmt.Sprintf(`Analyze this news article and decide whether it is suitable for a professional news website.

Consider whether it is newsworthy, whether the content is substantial enough to rewrite,
whether it has lasting value or is time-sensitive, which category fits best, and its
estimated advertising value (RPM).

Return ONLY valid JSON, no markdown and no explanation:
{
  "should_publish": true or false,
  "category": one of %s,
  "evergreen_score": 1-10 (10 = timeless content),
  "estimated_rpm": 1-10 (10 = highest ad value),
  "reason": "brief explanation"
}

ARTICLE TITLE: %s

ARTICLE CONTENT:
%s`, quotedCategories(), title, clip(body, evaluateBodyLimit))
}

func generatePrompt(title, body, sourceName, category string) string {
	return fmt.Sprintf(`You are a professional news journalist. Rewrite this article for a global English-language news website.

Requirements:
- 700-900 words in an engaging journalistic style
- an SEO-optimized headline that is not clickbait
- exactly 4 key points summarizing the main takeaways
- a compelling 2-3 sentence excerpt
- factual information only, professional tone
- relevant SEO tags
- a URL-friendly slug (lowercase, hyphens, no special characters)
- credit the original source in the content

Return ONLY valid JSON, no markdown code blocks and no explanation:
{
  "title": "SEO-optimized headline",
  "slug": "url-friendly-slug",
  "excerpt": "2-3 sentence summary",
  "key_points": ["Key point 1", "Key point 2", "Key point 3", "Key point 4"],
  "content": "Full article content in markdown",
  "tags": ["tag1", "tag2", "tag3"],
  "read_time": estimated reading time in minutes (number)
}

CATEGORY: %s
SOURCE: %s
ORIGINAL TITLE: %s

ORIGINAL CONTENT:
%s`, category, sourceName, title, clip(body, generateBodyLimit))
}

func quotedCategories() string {
	quoted := make([]string, len(Categories))
	for i, c := range Categories {
		quoted[i] = `"` + c + `"`
	}
	return strings.Join(quoted, ", ")
}

func clip(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
