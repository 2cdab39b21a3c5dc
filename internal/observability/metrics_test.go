package observability

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func newTestMetrics(t *testing.T) *Metrics {
	t.Helper()
	return NewMetrics("test_scienceswipe", prometheus.NewRegistry())
}

func TestNewMetrics(t *testing.T) {
	m := newTestMetrics(t)

	assert.NotNil(t, m.HTTPRequests)
	assert.NotNil(t, m.HTTPRequestDuration)
	assert.NotNil(t, m.FeedFetches)
	assert.NotNil(t, m.FeedFetchDuration)
	assert.NotNil(t, m.PapersServed)
	assert.NotNil(t, m.Reactions)
	assert.NotNil(t, m.ImageGenerations)
	assert.NotNil(t, m.ImageGenerationDuration)
	assert.NotNil(t, m.CacheLookups)
	assert.NotNil(t, m.EventsPublished)
}

func TestNewMetrics_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewMetrics("dup", prometheus.NewRegistry())
		NewMetrics("dup", prometheus.NewRegistry())
	})
}

func TestRecordHTTPRequest(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordHTTPRequest("/api/papers", "GET", "200", 0.02)
	m.RecordHTTPRequest("/api/papers", "GET", "200", 0.03)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.HTTPRequests.WithLabelValues("/api/papers", "GET", "200")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.HTTPRequestDuration))
}

func TestRecordFeedFetch(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordFeedFetch("core", FeedOutcomeLive, 0.1)
	m.RecordFeedFetch("core", FeedOutcomeDemo, 0.2)
	m.RecordFeedFetch("core", FeedOutcomeDemo, 0.2)
	m.RecordPapersServed("core", 3)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.FeedFetches.WithLabelValues("core", FeedOutcomeLive)))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.FeedFetches.WithLabelValues("core", FeedOutcomeDemo)))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.PapersServed.WithLabelValues("core")))
}

func TestRecordReaction(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordReaction("added")
	m.RecordReaction("added")
	m.RecordReaction("conflict")

	assert.Equal(t, float64(2), testutil.ToFloat64(m.Reactions.WithLabelValues("added")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Reactions.WithLabelValues("conflict")))
}

func TestRecordImageGeneration(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordImageGenerated("basic", 12.5)
	m.RecordImageFailed("custom")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ImageGenerations.WithLabelValues("basic", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ImageGenerations.WithLabelValues("custom", "failed")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.ImageGenerationDuration))
}

func TestRecordCacheAndEvents(t *testing.T) {
	m := newTestMetrics(t)

	m.RecordCacheLookup("hit")
	m.RecordCacheLookup("miss")
	m.RecordEventPublished("reaction.added", nil)
	m.RecordEventPublished("reaction.added", errors.New("broker down"))

	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsPublished.WithLabelValues("reaction.added", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.EventsPublished.WithLabelValues("reaction.added", "failed")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordHTTPRequest("/", "GET", "200", 0)
		m.RecordFeedFetch("papers", FeedOutcomeLive, 0)
		m.RecordPapersServed("papers", 1)
		m.RecordReaction("added")
		m.RecordImageGenerated("basic", 1)
		m.RecordImageFailed("basic")
		m.RecordCacheLookup("hit")
		m.RecordEventPublished("x", nil)
	})
}
