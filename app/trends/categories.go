package trends

import "github.com/lysyi3m/newsroom/app/feed"

const defaultCategory = "general"

type categoryKeywords struct {
	category string
	keywords []string
}

// First match wins, so the order of this table is part of its meaning.
var categoryTable = []categoryKeywords{
	{"technology", []string{"ai", "tech", "software", "app", "google", "apple", "microsoft", "computer", "phone", "iphone", "android", "nvidia", "tesla"}},
	{"finance", []string{"stock", "market", "bitcoin", "crypto", "bank", "economy", "inflation", "interest", "fed", "dollar", "investment"}},
	{"health", []string{"health", "covid", "vaccine", "medical", "drug", "hospital", "cancer", "disease", "fda"}},
	{"sports", []string{"nfl", "nba", "soccer", "football", "basketball", "baseball", "mlb", "game", "championship", "world cup"}},
	{"science", []string{"space", "nasa", "climate", "research", "study", "discovery", "scientist"}},
	{"entertainment", []string{"movie", "film", "music", "celebrity", "oscar", "grammy", "concert", "album"}},
}

var subredditCategories = map[string]string{
	"technology": "technology",
	"worldnews":  "news",
	"science":    "science",
	"business":   "finance",
}

// Categorize returns the first table category with a keyword contained in text.
func Categorize(text string) string {
	for _, entry := range categoryTable {
		for _, keyword := range entry.keywords {
			if feed.ContainsFold(text, keyword) {
				return entry.category
			}
		}
	}
	return defaultCategory
}

func subredditCategory(subreddit, title string) string {
	if category, ok := subredditCategories[subreddit]; ok {
		return category
	}
	return Categorize(title)
}
