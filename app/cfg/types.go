package cfg

type Cfg struct {
	// Storage configuration
	DBPath   string
	RedisURL string

	// Application configuration
	SourcesFile  string
	Port         string
	APIAccessKey string

	// Worker configuration
	ContentWorkers   int
	TrendWorkers     int
	ContentRateLimit int
	FetchTimeout     int

	// Retention configuration
	ArticleRetentionDays int
	TrendRetentionDays   int
	DedupRetentionDays   int

	// AI provider
	AIAPIKey    string
	AIModel     string
	AIMaxTokens int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
