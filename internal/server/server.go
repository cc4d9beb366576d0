// Пакет server — HTTP-сервер EKG Admin с graceful shutdown.
// Без TLS — TLS termination на ingress.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/vinaykumarvk/create-EKG/internal/api/errors"
	"github.com/vinaykumarvk/create-EKG/internal/api/handlers"
	"github.com/vinaykumarvk/create-EKG/internal/api/middleware"
	"github.com/vinaykumarvk/create-EKG/internal/config"
	uihandlers "github.com/vinaykumarvk/create-EKG/internal/ui/handlers"
	uimiddleware "github.com/vinaykumarvk/create-EKG/internal/ui/middleware"
)

// UI — обработчики консоли оператора.
type UI struct {
	Auth          *uihandlers.AuthHandler
	Dashboard     *uihandlers.DashboardHandler
	SessionLoader *uimiddleware.SessionLoader
}

// Server — HTTP-сервер EKG Admin.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт HTTP-сервер с настроенными routes и middleware.
func New(cfg *config.Config, logger *slog.Logger, api *handlers.APIHandler, ui UI) *Server {
	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", cfg.Port),
		Handler:     NewRouter(logger, api, ui),
		ReadTimeout: 5 * time.Minute,
		// Пакет файлов обрабатывается последовательно, каждый — до UploadTimeout.
		WriteTimeout: time.Duration(cfg.MaxBatchFiles)*cfg.UploadTimeout + time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает маршруты консоли и API.
func NewRouter(logger *slog.Logger, api *handlers.APIHandler, ui UI) http.Handler {
	router := chi.NewRouter()

	// Глобальные middleware (применяются ко ВСЕМ маршрутам)
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.SecurityHeaders())

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apierrors.NotFound(w, "Маршрут не найден")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		apierrors.WriteError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Метод не поддерживается")
	})

	// Health и metrics — без сессии
	router.Get("/health/live", api.HealthLive)
	router.Get("/health/ready", api.HealthReady)
	router.Get("/metrics", api.GetMetrics)

	router.Group(func(r chi.Router) {
		r.Use(ui.SessionLoader.Middleware())

		r.Get("/", ui.Auth.HandleHome)
		r.Get("/login", ui.Auth.HandleLoginPage)
		r.Post("/login", ui.Auth.HandleLogin)
		r.Post("/logout", ui.Auth.HandleLogout)

		r.Group(func(r chi.Router) {
			r.Use(uimiddleware.RequireLogin)

			r.Get("/admin", ui.Dashboard.HandleDashboard)

			r.Route("/api/v1", func(r chi.Router) {
				r.Get("/indexes", api.ListIndexes)
				r.Post("/indexes", api.CreateIndex)
				r.Get("/indexes/{id}/files", api.ListIndexFiles)
				r.Delete("/indexes/{id}/files", api.DeleteIndexFiles)
				r.Post("/upload", api.UploadFiles)
				r.Post("/drive/list", api.DriveList)
				r.Post("/drive/ingest", api.DriveIngest)
			})
		})
	})

	return router
}

// Run запускает сервер и блокируется до отмены ctx, SIGINT или SIGTERM,
// после чего выполняет graceful shutdown в пределах ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP-сервер запущен", slog.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Получен сигнал завершения", slog.String("cause", context.Cause(ctx).Error()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
