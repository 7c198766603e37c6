package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath   string `long:"db-path" env:"DB_PATH" default:"./newsroom.db" description:"SQLite database file"`
	RedisURL string `long:"redis-url" env:"REDIS_URL" default:"redis://localhost:6379/0" description:"Redis URL backing the job queues"`

	// Application configuration
	SourcesFile  string `long:"sources-file" env:"SOURCES_FILE" default:"./sources.yml" description:"YAML file with the feed source catalog"`
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP control server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for the control endpoints (optional)"`

	// Worker configuration
	ContentWorkers   int `long:"content-workers" env:"CONTENT_WORKERS" default:"5" description:"Concurrent content transformation workers"`
	TrendWorkers     int `long:"trend-workers" env:"TREND_WORKERS" default:"3" description:"Concurrent trend collection workers"`
	ContentRateLimit int `long:"content-rate-limit" env:"CONTENT_RATE_LIMIT" default:"20" description:"Content dequeues allowed per minute"`
	FetchTimeout     int `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"15" description:"Feed and page fetch timeout in seconds"`

	// Retention configuration
	ArticleRetentionDays int `long:"article-retention-days" env:"ARTICLE_RETENTION_DAYS" default:"90" description:"Age after which low-traffic articles are deleted"`
	TrendRetentionDays   int `long:"trend-retention-days" env:"TREND_RETENTION_DAYS" default:"7" description:"Age after which trends are deleted"`
	DedupRetentionDays   int `long:"dedup-retention-days" env:"DEDUP_RETENTION_DAYS" default:"30" description:"Age after which dedup records are deleted (0 keeps them forever)"`

	// AI provider
	AIAPIKey    string `long:"ai-api-key" env:"AI_API_KEY" description:"API key for the AI provider (required)" required:"true"`
	AIModel     string `long:"ai-model" env:"AI_MODEL" default:"claude-3-5-haiku-latest" description:"Model used for evaluation and generation"`
	AIMaxTokens int    `long:"ai-max-tokens" env:"AI_MAX_TOKENS" default:"4096" description:"Maximum tokens per AI reply"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Mozilla/5.0 (compatible; Newsroom/1.0)" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	return load(nil)
}

// load parses args (os.Args when nil) together with the environment.
func load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args == nil {
		_, err = parser.Parse()
	} else {
		_, err = parser.ParseArgs(args)
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:               raw.DBPath,
		RedisURL:             raw.RedisURL,
		SourcesFile:          raw.SourcesFile,
		Port:                 raw.Port,
		APIAccessKey:         raw.APIAccessKey,
		ContentWorkers:       raw.ContentWorkers,
		TrendWorkers:         raw.TrendWorkers,
		ContentRateLimit:     raw.ContentRateLimit,
		FetchTimeout:         raw.FetchTimeout,
		ArticleRetentionDays: raw.ArticleRetentionDays,
		TrendRetentionDays:   raw.TrendRetentionDays,
		DedupRetentionDays:   raw.DedupRetentionDays,
		AIAPIKey:             raw.AIAPIKey,
		AIModel:              raw.AIModel,
		AIMaxTokens:          raw.AIMaxTokens,
		UserAgent:            raw.UserAgent,
		Timezone:             raw.Timezone,
		Debug:                raw.Debug,
		Version:              GetVersion(),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// FetchTimeoutDuration returns FetchTimeout as a time.Duration.
func (c *Cfg) FetchTimeoutDuration() time.Duration {
	return time.Duration(c.FetchTimeout) * time.Second
}

func (c *Cfg) validate() error {
	positiveFields := map[string]int{
		"content workers":        c.ContentWorkers,
		"trend workers":          c.TrendWorkers,
		"content rate limit":     c.ContentRateLimit,
		"fetch timeout":          c.FetchTimeout,
		"article retention days": c.ArticleRetentionDays,
		"trend retention days":   c.TrendRetentionDays,
		"ai max tokens":          c.AIMaxTokens,
	}

	for fieldName, fieldValue := range positiveFields {
		if fieldValue <= 0 {
			return fmt.Errorf("%s must be positive", fieldName)
		}
	}

	if c.DedupRetentionDays < 0 {
		return fmt.Errorf("dedup retention days must be non-negative")
	}

	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
