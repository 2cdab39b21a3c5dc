// Package observability provides logging and metrics support for ScienceSwipe.
//
// # Logging
//
// Create a logger from configuration:
//
//	logger, closer := observability.NewLogger(observability.LoggingConfig{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "/var/log/scienceswipe.log",
//	})
//	defer closer.Close()
//
// The terminal client always logs to a file so that log lines never corrupt
// the rendered screen.
//
// # Metrics
//
//	metrics := observability.NewMetrics("scienceswipe", prometheus.DefaultRegisterer)
//	metrics.RecordFeedFetch("core", observability.FeedOutcomeLive, 0.12)
//
// Tests pass a fresh prometheus.NewRegistry() to avoid duplicate registration.
//
// # Standard Fields
//
//   - request_id: HTTP request identifier
//   - correlation_id: caller supplied correlation identifier
//   - source: data source (papers, core, regional)
//   - paper_id: paper key within its source
//   - user_id: reacting user
package observability
