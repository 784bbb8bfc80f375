//go:build !prometheus

package main

import (
	"log/slog"

	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
)

// resolveRecorder returns nil without the prometheus build tag; the build
// service falls back to its no-op recorder.
func resolveRecorder() metrics.Recorder {
	return nil
}

// startMetricsServer has nothing to serve without the prometheus build tag.
// The build proceeds without a scrape endpoint.
func startMetricsServer(addr string) (func(), error) {
	slog.Warn("Metrics endpoint requires a prometheus-enabled binary", "addr", addr)
	return func() {}, nil
}
