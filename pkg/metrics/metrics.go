package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registered with the default registry via promauto and pushed once at
// the end of the job (see Push).
var (
	// JobsTotal counts finished jobs by outcome status.
	JobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nbrunner",
			Subsystem: "jobs",
			Name:      "total",
			Help:      "Total number of notebook jobs by outcome",
		},
		[]string{"status"},
	)

	// JobDuration tracks wall time from start to outcome.
	JobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "nbrunner",
			Subsystem: "jobs",
			Name:      "duration_seconds",
			Help:      "Duration of notebook jobs in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 15), // 0.1s to ~1.8h
		},
	)

	// StepDuration tracks each pipeline step.
	StepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "nbrunner",
			Subsystem: "steps",
			Name:      "duration_seconds",
			Help:      "Duration of job steps in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 20),
		},
		[]string{"step", "status"},
	)

	// NotificationsTotal counts webhook deliveries.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "nbrunner",
			Subsystem: "webhook",
			Name:      "notifications_total",
			Help:      "Total webhook notifications by result",
		},
		[]string{"result"},
	)
)

// RecordStep records how long a step took and whether it failed.
func RecordStep(step string, err error, seconds float64) {
	status := "success"
	if err != nil {
		status = "failed"
	}
	StepDuration.WithLabelValues(step, status).Observe(seconds)
}

// RecordJob records the final outcome of the job.
func RecordJob(status string, seconds float64) {
	JobsTotal.WithLabelValues(status).Inc()
	JobDuration.Observe(seconds)
}
