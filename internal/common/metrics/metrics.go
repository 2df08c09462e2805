// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduling_jobs_completed_total",
			Help: "Total number of jobs that reached completed",
		},
	)

	JobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduling_jobs_failed_total",
			Help: "Total number of jobs that reached failed",
		},
		[]string{"reason"},
	)

	JobDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "scheduling_job_duration_seconds",
			Help: "End-to-end duration of job processing in seconds",
		},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "scheduling_stage_duration_seconds",
			Help: "Duration of a single pipeline stage in seconds",
		},
		[]string{"stage"},
	)

	JobsAccepted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduling_jobs_accepted_total",
			Help: "Total number of jobs accepted at intake",
		},
		[]string{"input_type"},
	)
)
