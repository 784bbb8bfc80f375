//go:build prometheus

package metrics

import (
	"fmt"
	"log/slog"
	"net/http"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPHandler returns the scrape handler for reg. Gather and encoding
// errors surface through logger instead of promhttp's default stderr
// printer; a nil logger falls back to slog.Default.
func HTTPHandler(reg *prom.Registry, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorLog:          scrapeErrorLog{logger: logger},
	})
}

// scrapeErrorLog adapts a slog.Logger to promhttp's Println-style logger.
type scrapeErrorLog struct {
	logger *slog.Logger
}

func (l scrapeErrorLog) Println(v ...any) {
	l.logger.Error(fmt.Sprint(v...))
}
