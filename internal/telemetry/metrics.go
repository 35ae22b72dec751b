package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// JobsEnqueued counts WorkflowJobs accepted by JobRunner.Enqueue.
	JobsEnqueued = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lade",
			Name:      "jobs_enqueued_total",
			Help:      "Total number of jobs accepted onto the queue",
		},
		[]string{"task"},
	)

	// JobsDeduped counts enqueue attempts suppressed by the dedup store.
	JobsDeduped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lade",
			Name:      "jobs_deduped_total",
			Help:      "Total number of enqueue attempts suppressed as duplicates",
		},
		[]string{"task"},
	)

	// JobsCompleted counts terminal job outcomes.
	JobsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lade",
			Name:      "jobs_completed_total",
			Help:      "Total number of jobs reaching a terminal state",
		},
		[]string{"task", "outcome"},
	)

	// JobAttempts counts each execution attempt by attempt number.
	JobAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lade",
			Name:      "job_attempts_total",
			Help:      "Total number of job execution attempts",
		},
		[]string{"task", "attempt"},
	)

	// CloudRequests counts CloudPort calls by operation and outcome.
	CloudRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lade",
			Name:      "cloud_requests_total",
			Help:      "Total number of cloud provider requests",
		},
		[]string{"op", "outcome"},
	)

	// ArchiveCreated counts successful archive directory materializations.
	ArchiveCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lade",
			Name:      "archive_created_total",
			Help:      "Total number of lease archive directories created",
		},
		[]string{"agency"},
	)

	// ReportDetected counts report-detection outcomes.
	ReportDetected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lade",
			Name:      "report_detected_total",
			Help:      "Total number of report detection passes, by whether a report was found",
		},
		[]string{"agency", "found"},
	)

	// Ensure metrics are only registered once
	once sync.Once
)

// InitMetrics registers all metrics with the global Prometheus registry.
// This function is idempotent and can be called multiple times safely.
func InitMetrics() {
	once.Do(func() {
		prometheus.DefaultRegisterer.Register(JobsEnqueued)
		prometheus.DefaultRegisterer.Register(JobsDeduped)
		prometheus.DefaultRegisterer.Register(JobsCompleted)
		prometheus.DefaultRegisterer.Register(JobAttempts)
		prometheus.DefaultRegisterer.Register(CloudRequests)
		prometheus.DefaultRegisterer.Register(ArchiveCreated)
		prometheus.DefaultRegisterer.Register(ReportDetected)
	})
}

// RecordCloudRequest is a convenience wrapper used by the cloud adapter so
// call sites don't reach into the CounterVec directly.
func RecordCloudRequest(op, outcome string) {
	CloudRequests.WithLabelValues(op, outcome).Inc()
}
