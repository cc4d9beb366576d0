// metrics.go — Prometheus метрики загрузки документов.
package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ingestTotal — загрузки по исходу.
	ingestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ekg_ingest_total",
			Help: "Количество загрузок файлов в индекс по исходу",
		},
		[]string{"result"},
	)

	// ingestDuration — длительность загрузки одного файла.
	ingestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ekg_ingest_duration_seconds",
			Help:    "Длительность загрузки одного файла в индекс в секундах",
			Buckets: []float64{.1, .5, 1, 5, 15, 30, 60, 120, 300},
		},
	)

	// conversionsTotal — выполненные конвертации таблиц в текст.
	conversionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ekg_ingest_conversions_total",
			Help: "Количество конвертаций XLSX в текст",
		},
	)
)

// resultLabel возвращает значение лейбла result для ошибки загрузки.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrUploadTimeout):
		return "timeout"
	case errors.Is(err, ErrServiceUnavailable):
		return "unavailable"
	case errors.Is(err, ErrConversion):
		return "conversion_error"
	default:
		return "error"
	}
}
