package feed

import (
	"crypto/sha256"
	"encoding/hex"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var strictPolicy = bluemonday.StrictPolicy()

// URLHash is the ledger key for an item link.
func URLHash(link string) string {
	return hashString(strings.TrimSpace(link))
}

// TitleHash is the ledger key for an item title after normalization.
func TitleHash(title string) string {
	return hashString(NormalizeTitle(title))
}

// NormalizeTitle folds case and unicode forms and collapses whitespace.
func NormalizeTitle(title string) string {
	folded := cases.Fold().String(norm.NFKC.String(title))
	return strings.Join(strings.Fields(folded), " ")
}

// StripHTML removes all markup and entities, returning single-spaced text.
func StripHTML(raw string) string {
	if !strings.Contains(raw, "<") && !strings.Contains(raw, "&") {
		return normalizeWhitespace(raw)
	}
	return normalizeWhitespace(html.UnescapeString(strictPolicy.Sanitize(raw)))
}

// Truncate cuts s to at most limit runes.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func hashString(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])
}
