package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Source document metrics
	DocumentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sourcegate_documents_total",
			Help: "Total number of source documents received, by outcome",
		},
		[]string{"outcome"},
	)

	DocumentEventsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sourcegate_document_events_total",
			Help: "Total number of events contained in accepted documents",
		},
	)

	ValidationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sourcegate_validation_duration_seconds",
			Help:    "Duration of the full validation pipeline in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Type registry metrics
	RegistryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sourcegate_registry_duration_seconds",
			Help:    "Duration of type registry round-trips in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)

	PlaceholderTypesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sourcegate_placeholder_types_total",
			Help: "Total number of placeholder types auto-registered",
		},
	)

	TypeDefinitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sourcegate_type_definitions_total",
			Help: "Total number of type definitions uploaded, by namespace",
		},
		[]string{"namespace"},
	)

	// Rate limiting metrics
	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sourcegate_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"route"},
	)
)
