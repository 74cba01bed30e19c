package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	RankingBusinesses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ranking_businesses_total",
			Help: "Businesses processed by ranking runs, by result",
		},
		[]string{"ranking_type", "result"},
	)

	RankingOutliers = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ranking_outliers_adjusted_total",
			Help: "Scores pulled back toward the IQR fence",
		},
	)

	ClaimOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claim_verification_outcomes_total",
			Help: "Claim verification outcomes",
		},
		[]string{"outcome"},
	)

	ReviewsImported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviews_imported_total",
			Help: "Reviews seen by the import worker, by result",
		},
		[]string{"result"},
	)

	ConfidenceScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "business_confidence_score",
			Help:    "Distribution of recomputed confidence scores",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)
)
