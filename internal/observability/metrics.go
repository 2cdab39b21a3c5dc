package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Feed fetch outcomes.
const (
	FeedOutcomeLive     = "live"
	FeedOutcomeDemo     = "demo"
	FeedOutcomeCacheHit = "cache_hit"
	FeedOutcomeError    = "error"
)

// Metrics contains all Prometheus metrics for ScienceSwipe.
// Metrics are organized by subsystem: http, feed, reactions, images, cache and events.
type Metrics struct {
	// HTTPRequests counts handled requests by route, method and status code.
	HTTPRequests *prometheus.CounterVec

	// HTTPRequestDuration observes request latency in seconds by route and method.
	HTTPRequestDuration *prometheus.HistogramVec

	// FeedFetches counts feed reads by source and outcome (live, demo, cache_hit, error).
	FeedFetches *prometheus.CounterVec

	// FeedFetchDuration observes feed read latency in seconds by source.
	FeedFetchDuration *prometheus.HistogramVec

	// PapersServed counts normalized papers returned, by source.
	PapersServed *prometheus.CounterVec

	// Reactions counts reaction mutations by outcome (added, removed, reason_updated, conflict, failed).
	Reactions *prometheus.CounterVec

	// ImageGenerations counts image generation attempts by endpoint and status.
	ImageGenerations *prometheus.CounterVec

	// ImageGenerationDuration observes provider latency in seconds.
	ImageGenerationDuration prometheus.Histogram

	// CacheLookups counts cache lookups by result (hit, miss, error).
	CacheLookups *prometheus.CounterVec

	// EventsPublished counts published events by type and status.
	EventsPublished *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance registered with reg.
// Record methods are safe to call on a nil *Metrics.
// The namespace is used as a prefix for all metric names.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// HTTP
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 5, 15, 60},
		}, []string{"route", "method"}),

		// Feed
		FeedFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_fetches_total",
			Help:      "Total number of feed fetches by source and outcome",
		}, []string{"source", "outcome"}),
		FeedFetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "feed_fetch_duration_seconds",
			Help:      "Duration of feed fetches in seconds by source",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"source"}),
		PapersServed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "papers_served_total",
			Help:      "Total number of papers served by source",
		}, []string{"source"}),

		// Reactions
		Reactions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reactions_total",
			Help:      "Total number of reaction mutations by outcome",
		}, []string{"outcome"}),

		// Images
		ImageGenerations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "image_generations_total",
			Help:      "Total number of image generation requests by endpoint and status",
		}, []string{"endpoint", "status"}),
		ImageGenerationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "image_generation_duration_seconds",
			Help:      "Duration of image provider calls in seconds",
			Buckets:   []float64{1, 2, 5, 10, 20, 30, 60, 120},
		}),

		// Cache
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Total number of feed cache lookups by result",
		}, []string{"result"}),

		// Events
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Total number of events published by type and status",
		}, []string{"event_type", "status"}),
	}
}

// RecordHTTPRequest records a handled HTTP request.
func (m *Metrics) RecordHTTPRequest(route, method, status string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, method, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(route, method).Observe(durationSeconds)
}

// RecordFeedFetch records a feed read and how it was satisfied.
func (m *Metrics) RecordFeedFetch(source, outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.FeedFetches.WithLabelValues(source, outcome).Inc()
	m.FeedFetchDuration.WithLabelValues(source).Observe(durationSeconds)
}

// RecordPapersServed records the number of papers returned for a source.
func (m *Metrics) RecordPapersServed(source string, count int) {
	if m == nil {
		return
	}
	m.PapersServed.WithLabelValues(source).Add(float64(count))
}

// RecordReaction records a reaction mutation outcome.
func (m *Metrics) RecordReaction(outcome string) {
	if m == nil {
		return
	}
	m.Reactions.WithLabelValues(outcome).Inc()
}

// RecordImageGenerated records a successful image generation.
func (m *Metrics) RecordImageGenerated(endpoint string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.ImageGenerations.WithLabelValues(endpoint, "success").Inc()
	m.ImageGenerationDuration.Observe(durationSeconds)
}

// RecordImageFailed records a failed image generation.
func (m *Metrics) RecordImageFailed(endpoint string) {
	if m == nil {
		return
	}
	m.ImageGenerations.WithLabelValues(endpoint, "failed").Inc()
}

// RecordCacheLookup records a cache lookup result (hit, miss, error).
func (m *Metrics) RecordCacheLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

// RecordEventPublished records an event publish attempt.
func (m *Metrics) RecordEventPublished(eventType string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failed"
	}
	m.EventsPublished.WithLabelValues(eventType, status).Inc()
}
