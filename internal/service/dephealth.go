// dephealth.go — интеграция с topologymetrics SDK для мониторинга зависимостей.
//
// EKG Admin мониторит до двух внешних сервисов (только сконфигурированные):
//   - сервис индексов — HTTP checker к базовому URL API (non-critical)
//   - Google Drive API — HTTP checker к discovery-документу (non-critical)
//
// Обе зависимости non-critical: без них вход и просмотр консоли продолжают работать,
// соответствующие операции возвращают ошибки.
//
// Метрики доступны на /metrics вместе с остальными Prometheus-метриками:
//   - app_dependency_health — состояние зависимости (1 = ok, 0 = fail)
//   - app_dependency_latency_seconds — задержка проверки
package service

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // HTTP checker
	"github.com/prometheus/client_golang/prometheus"
)

// ErrNoDependencies — ни одна зависимость не сконфигурирована.
var ErrNoDependencies = errors.New("нет зависимостей для мониторинга")

// DephealthTargets — URL проверяемых зависимостей. Пустой URL — зависимость не проверяется.
type DephealthTargets struct {
	IndexServiceURL string
	DriveAPIURL     string
}

// DephealthService — сервис мониторинга зависимостей через topologymetrics.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDephealthService создаёт сервис мониторинга зависимостей.
// Метрики регистрируются в глобальном Prometheus registry.
// Если целей нет — ErrNoDependencies.
func NewDephealthService(
	serviceID string,
	group string,
	targets DephealthTargets,
	checkInterval time.Duration,
	logger *slog.Logger,
) (*DephealthService, error) {
	return newDephealthService(serviceID, group, targets, checkInterval, logger)
}

// NewDephealthServiceWithRegisterer создаёт сервис с указанным Prometheus registerer.
// Используется в тестах для изоляции метрик.
func NewDephealthServiceWithRegisterer(
	serviceID string,
	group string,
	targets DephealthTargets,
	checkInterval time.Duration,
	logger *slog.Logger,
	registerer prometheus.Registerer,
) (*DephealthService, error) {
	return newDephealthService(serviceID, group, targets, checkInterval, logger,
		dephealth.WithRegisterer(registerer))
}

func newDephealthService(
	serviceID string,
	group string,
	targets DephealthTargets,
	checkInterval time.Duration,
	logger *slog.Logger,
	extraOpts ...dephealth.Option,
) (*DephealthService, error) {
	opts := []dephealth.Option{dephealth.WithLogger(logger)}

	for _, dep := range []struct{ name, url string }{
		{"index-service", targets.IndexServiceURL},
		{"google-drive", targets.DriveAPIURL},
	} {
		if dep.url == "" {
			continue
		}
		opts = append(opts, dephealth.HTTP(dep.name,
			dephealth.FromURL(dep.url),
			dephealth.WithHTTPHealthPath(healthPath(dep.url)),
			dephealth.CheckInterval(checkInterval),
			dephealth.Critical(false),
		))
	}

	if len(opts) == 1 {
		return nil, ErrNoDependencies
	}

	dh, err := dephealth.New(serviceID, group, append(opts, extraOpts...)...)
	if err != nil {
		return nil, err
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// healthPath возвращает path URL для HTTP-проверки ("/" если path пустой).
func healthPath(rawURL string) string {
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Path != "" {
		return parsed.Path
	}
	return "/"
}

// Start запускает периодическую проверку зависимостей.
func (ds *DephealthService) Start(ctx context.Context) error {
	ds.logger.Info("Мониторинг зависимостей запущен")
	return ds.dh.Start(ctx)
}

// Stop останавливает мониторинг зависимостей.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг зависимостей остановлен")
}

// Health возвращает текущее состояние зависимостей.
// Ключ — имя зависимости, значение — true если ok.
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}
