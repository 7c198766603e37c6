package trends

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/lysyi3m/newsroom/app/database"
	"github.com/mmcdole/gofeed"
)

const (
	defaultGoogleScore = 50
	maxGoogleScore     = 10000

	minRedditScore = 100
	maxRedditScore = 100

	maxKeywordLength = 200
)

var trafficDigits = regexp.MustCompile(`\d+(?:,\d+)*`)

func googleTrend(item *gofeed.Item) (database.Trend, bool) {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		return database.Trend{}, false
	}

	keyword, _, _ := strings.Cut(title, " - ")
	if keyword = strings.TrimSpace(keyword); keyword == "" {
		keyword = title
	}

	return database.Trend{
		Keyword:    clipKeyword(keyword),
		SourceKind: KindGoogle,
		Score:      googleScore(item),
		Category:   Categorize(title),
	}, true
}

// googleScore reads the approx_traffic extension, then digits in the title.
func googleScore(item *gofeed.Item) int {
	candidates := []string{}
	if ht, ok := item.Extensions["ht"]; ok {
		for _, ext := range ht["approx_traffic"] {
			candidates = append(candidates, ext.Value)
		}
	}
	candidates = append(candidates, item.Title)

	for _, text := range candidates {
		match := trafficDigits.FindString(text)
		if match == "" {
			continue
		}
		score, err := strconv.Atoi(strings.ReplaceAll(match, ",", ""))
		if err != nil {
			continue
		}
		return min(score, maxGoogleScore)
	}

	return defaultGoogleScore
}

type redditPost struct {
	Title     string  `json:"title"`
	Score     float64 `json:"score"`
	Subreddit string  `json:"subreddit"`
}

type redditListing struct {
	Data struct {
		Children []struct {
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

func parseListing(data []byte) ([]redditPost, error) {
	var listing redditListing
	if err := json.Unmarshal(data, &listing); err != nil {
		return nil, fmt.Errorf("failed to decode listing: %w", err)
	}

	posts := make([]redditPost, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		posts = append(posts, child.Data)
	}
	return posts, nil
}

func redditTrend(subreddit string, post redditPost) (database.Trend, bool) {
	title := strings.TrimSpace(post.Title)
	if title == "" || post.Score < minRedditScore {
		return database.Trend{}, false
	}

	return database.Trend{
		Keyword:    clipKeyword(title),
		SourceKind: KindReddit,
		Score:      min(int(post.Score)/100, maxRedditScore),
		Category:   subredditCategory(subreddit, title),
	}, true
}

func clipKeyword(keyword string) string {
	if utf8.RuneCountInString(keyword) <= maxKeywordLength {
		return keyword
	}
	return string([]rune(keyword)[:maxKeywordLength])
}
