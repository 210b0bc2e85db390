package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cupid_pipeline_runs_total",
			Help: "Total number of matching pipeline runs by outcome",
		},
		[]string{"outcome"},
	)

	PipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cupid_pipeline_duration_seconds",
			Help:    "Duration of a matching pipeline run in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"outcome"},
	)

	CompatibilityResolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cupid_compatibility_resolutions_total",
			Help: "Total number of per-candidate compatibility resolutions by outcome",
		},
		[]string{"outcome"},
	)

	CompatibilityInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cupid_compatibility_in_flight",
			Help: "Number of compatibility engine calls currently outstanding",
		},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cupid_compatibility_cache_lookups_total",
			Help: "Compatibility cache lookups by result",
		},
		[]string{"result"},
	)

	NotificationsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cupid_notifications_created_total",
			Help: "Notifications created by type",
		},
		[]string{"type"},
	)
)
