package pipeline

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	slugInvalid = regexp.MustCompile(`[^a-z0-9-]`)
	slugDashes  = regexp.MustCompile(`-+`)
)

// NormalizeSlug lowercases raw and reduces it to [a-z0-9-] with single inner dashes.
func NormalizeSlug(raw string) string {
	slug := strings.ToLower(raw)
	slug = slugInvalid.ReplaceAllString(slug, "-")
	slug = slugDashes.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "article"
	}
	return slug
}

// SuffixSlug appends a base-36 millisecond suffix. attempt shifts the suffix on collisions.
func SuffixSlug(base string, at time.Time, attempt int) string {
	return base + "-" + strconv.FormatInt(at.UnixMilli()+int64(attempt), 36)
}
