package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// RequestCount counts HTTP requests
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// RequestDuration measures HTTP request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "HTTP request duration in seconds",
		},
		[]string{"method", "endpoint"},
	)

	// ComparisonCount counts comparison runs by scoring method and outcome
	ComparisonCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plagiarism_comparisons_total",
			Help: "Total number of document set comparisons",
		},
		[]string{"method", "status"},
	)

	// ComparisonDuration measures a whole comparison run
	ComparisonDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "plagiarism_comparison_duration_seconds",
			Help: "Document set comparison duration in seconds",
		},
		[]string{"method"},
	)

	// PairDuration measures scoring of a single document pair
	PairDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "plagiarism_pair_duration_seconds",
			Help:    "Single pair scoring duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
		[]string{"method"},
	)

	// ExcludedDocuments counts documents dropped from a run because their text was unavailable
	ExcludedDocuments = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "plagiarism_excluded_documents_total",
			Help: "Total number of documents excluded from comparisons",
		},
	)

	// IngestedDocuments counts stored submissions by source (upload, stream)
	IngestedDocuments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "plagiarism_ingested_documents_total",
			Help: "Total number of documents encrypted and stored",
		},
		[]string{"source"},
	)

	registerOnce sync.Once
)

// InitPrometheus registers all collectors with the default registry
func InitPrometheus() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCount,
			RequestDuration,
			ComparisonCount,
			ComparisonDuration,
			PairDuration,
			ExcludedDocuments,
			IngestedDocuments,
		)
	})
}

// Handler returns the Prometheus metrics handler
func Handler() http.Handler {
	return promhttp.Handler()
}
