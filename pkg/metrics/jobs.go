package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// JobMetrics records runs of background loops such as the outbox publisher.
type JobMetrics struct {
	duration *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	events   *prometheus.CounterVec
}

// NewJobMetrics registers the job metrics on the provided registerer.
func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	if reg == nil {
		return &JobMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "job_duration_seconds",
		Help:    "Duration of background job iterations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_runs_total",
		Help: "Background job iterations by outcome.",
	}, []string{"job", "outcome"})
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "job_events_total",
		Help: "Events handled by background jobs by outcome.",
	}, []string{"job", "outcome"})
	reg.MustRegister(duration, runs, events)
	return &JobMetrics{
		duration: duration,
		runs:     runs,
		events:   events,
	}
}

// ObserveRun records one iteration of job and whether it failed.
func (m *JobMetrics) ObserveRun(job string, duration time.Duration, err error) {
	if m == nil || m.duration == nil {
		return
	}
	job = normalizeLabel(job)
	m.duration.WithLabelValues(job).Observe(duration.Seconds())
	m.runs.WithLabelValues(job, outcomeOf(err)).Inc()
}

// AddEvents adds n handled events for job under outcome.
func (m *JobMetrics) AddEvents(job, outcome string, n int) {
	if m == nil || m.events == nil || n <= 0 {
		return
	}
	m.events.WithLabelValues(normalizeLabel(job), normalizeLabel(outcome)).Add(float64(n))
}

func outcomeOf(err error) string {
	if err != nil {
		return OutcomeFailure
	}
	return OutcomeSuccess
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
