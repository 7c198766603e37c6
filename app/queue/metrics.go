package queue

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsTotal counts finished executions by queue and outcome.
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "newsroom",
			Name:      "queue_jobs_total",
			Help:      "Job executions by outcome (completed, retried, failed)",
		},
		[]string{"queue", "outcome"},
	)

	// JobDuration measures handler run time.
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "newsroom",
			Name:      "queue_job_duration_seconds",
			Help:      "Duration of job executions in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"queue"},
	)
)

func recordOutcome(queue, outcome string, duration time.Duration) {
	JobsTotal.WithLabelValues(queue, outcome).Inc()
	JobDuration.WithLabelValues(queue).Observe(duration.Seconds())
}

var depthDesc = prometheus.NewDesc(
	"newsroom_queue_jobs",
	"Jobs currently held by a queue, by state",
	[]string{"queue", "state"},
	nil,
)

// DepthCollector exports queue counts at scrape time.
type DepthCollector struct {
	queues []*Queue
}

func NewDepthCollector(queues ...*Queue) *DepthCollector {
	return &DepthCollector{queues: queues}
}

func (c *DepthCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- depthDesc
}

func (c *DepthCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for _, q := range c.queues {
		counts, err := q.Counts(ctx)
		if err != nil {
			slog.Warn("Failed to collect queue depth", "queue", q.Name(), "error", err)
			continue
		}

		for state, value := range map[string]int64{
			"waiting":   counts.Waiting,
			"active":    counts.Active,
			"completed": counts.Completed,
			"failed":    counts.Failed,
			"delayed":   counts.Delayed,
		} {
			ch <- prometheus.MustNewConstMetric(depthDesc, prometheus.GaugeValue, float64(value), q.Name(), state)
		}
	}
}
