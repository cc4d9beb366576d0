// metrics.go — Prometheus-метрики HTTP-слоя консоли.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ekg_http_requests_total",
		Help: "HTTP-запросы к консоли по методу, маршруту и статусу",
	}, []string{"method", "path", "status"})

	// Загрузки длятся до таймаута прикрепления, отсюда верхние бакеты.
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ekg_http_request_duration_seconds",
		Help:    "Длительность обработки HTTP-запроса, секунды",
		Buckets: []float64{.01, .05, .1, .5, 1, 5, 15, 60, 300},
	}, []string{"method", "path"})

	httpInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ekg_http_requests_in_flight",
		Help: "Запросы, обрабатываемые в данный момент",
	})
)

// MetricsMiddleware считает запросы и их длительность по нормализованному маршруту.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			httpInFlight.Inc()
			defer httpInFlight.Dec()

			begin := time.Now()
			route := normalizePath(r.URL.Path)

			rec := record(w)
			next.ServeHTTP(rec, r)

			httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
			httpDuration.WithLabelValues(r.Method, route).Observe(time.Since(begin).Seconds())
		})
	}
}

// knownRoutes — статические маршруты, попадающие в метки как есть.
var knownRoutes = map[string]bool{
	"/": true, "/login": true, "/logout": true, "/admin": true,
	"/health/live": true, "/health/ready": true, "/metrics": true,
	"/api/v1/indexes": true, "/api/v1/upload": true,
	"/api/v1/drive/list": true, "/api/v1/drive/ingest": true,
}

// normalizePath ограничивает кардинальность меток:
// /api/v1/indexes/vs_abc123/files → /api/v1/indexes/{id}/files, прочее → "other".
func normalizePath(path string) string {
	if knownRoutes[path] {
		return path
	}

	const indexesPrefix = "/api/v1/indexes/"
	if rest, ok := strings.CutPrefix(path, indexesPrefix); ok && rest != "" {
		if _, suffix, found := strings.Cut(rest, "/"); found {
			return indexesPrefix + "{id}/" + suffix
		}
		return indexesPrefix + "{id}"
	}
	return "other"
}
