//go:build prometheus

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promcollect "github.com/prometheus/client_golang/prometheus/collectors"

	"git.home.luguber.info/inful/sitebuilder/internal/metrics"
)

// buildRegistry backs both the build recorder and the scrape endpoint.
var buildRegistry = prom.NewRegistry()

var (
	recorderOnce  sync.Once
	buildRecorder *metrics.PrometheusRecorder
)

// resolveRecorder returns the process-wide Prometheus-backed recorder.
// Registration happens once; repeated builds in the same process reuse
// the same collectors.
func resolveRecorder() metrics.Recorder {
	recorderOnce.Do(func() {
		buildRegistry.MustRegister(
			promcollect.NewGoCollector(),
			promcollect.NewProcessCollector(promcollect.ProcessCollectorOpts{}),
		)
		buildRecorder = metrics.NewPrometheusRecorder(buildRegistry)
	})
	return buildRecorder
}

// startMetricsServer serves the scrape endpoint on addr for the duration of
// the build. The returned stop function shuts the server down and waits for
// it to exit.
func startMetricsServer(addr string) (func(), error) {
	resolveRecorder()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(buildRegistry, slog.Default()))
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", "error", err)
		}
	}()
	slog.Info("Serving build metrics", "addr", ln.Addr().String())

	stop := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		<-done
	}
	return stop, nil
}
