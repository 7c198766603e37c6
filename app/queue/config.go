package queue

import (
	"time"
)

const (
	ContentQueueName = "content"
	TrendQueueName   = "trends"

	DefaultJobTimeout   = 5 * time.Minute
	DefaultPollInterval = time.Second
)

// BackoffFunc returns the delay before retry number attempt (1-based).
type BackoffFunc func(attempt int) time.Duration

func ExponentialBackoff(base time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		return base << (attempt - 1)
	}
}

func FixedBackoff(delay time.Duration) BackoffFunc {
	return func(int) time.Duration {
		return delay
	}
}

type Config struct {
	Name    string
	Workers int

	// MaxRetries is the number of re-executions after the first attempt.
	MaxRetries int
	Backoff    BackoffFunc

	// RateMax caps dequeues per fixed RateWindow across every process sharing the
	// queue. Zero disables it.
	RateMax    int
	RateWindow time.Duration

	// Completed jobs are dropped immediately when CompletedTTL is zero.
	CompletedTTL time.Duration
	CompletedMax int64
	FailedTTL    time.Duration

	JobTimeout   time.Duration
	PollInterval time.Duration
}

// ContentQueueConfig: perMinute dequeues per minute, 3 retries backing off 5s, 10s, 20s.
func ContentQueueConfig(workers, perMinute int) Config {
	return Config{
		Name:         ContentQueueName,
		Workers:      workers,
		MaxRetries:   3,
		Backoff:      ExponentialBackoff(5 * time.Second),
		RateMax:      perMinute,
		RateWindow:   time.Minute,
		CompletedTTL: time.Hour,
		CompletedMax: 1000,
		FailedTTL:    24 * time.Hour,
	}
}

// TrendQueueConfig: 2 retries with a fixed 10s delay, completed jobs not kept.
func TrendQueueConfig(workers int) Config {
	return Config{
		Name:       TrendQueueName,
		Workers:    workers,
		MaxRetries: 2,
		Backoff:    FixedBackoff(10 * time.Second),
		FailedTTL:  time.Hour,
	}
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.Backoff == nil {
		c.Backoff = FixedBackoff(0)
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = DefaultJobTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.RateMax > 0 && c.RateWindow <= 0 {
		c.RateWindow = time.Minute
	}
	return c
}
