package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/vinaykumarvk/create-EKG/internal/api/handlers"
	"github.com/vinaykumarvk/create-EKG/internal/config"
	"github.com/vinaykumarvk/create-EKG/internal/gdrive"
	"github.com/vinaykumarvk/create-EKG/internal/server"
	"github.com/vinaykumarvk/create-EKG/internal/service"
	"github.com/vinaykumarvk/create-EKG/internal/ui/auth"
	uihandlers "github.com/vinaykumarvk/create-EKG/internal/ui/handlers"
	uimiddleware "github.com/vinaykumarvk/create-EKG/internal/ui/middleware"
	"github.com/vinaykumarvk/create-EKG/internal/vectorstore"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Запустить HTTP-сервер консоли",
		Long: `Читает конфигурацию из переменных окружения EKG_*, подключает сервис
индексов и Google Drive (если настроены) и обслуживает консоль до SIGINT/SIGTERM.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	// 1. Конфигурация и логирование
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("ошибка загрузки конфигурации: %w", err)
	}

	logger := config.SetupLogger(cfg)
	logger.Info("EKG Admin запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
	)
	if cfg.AdminPasswordHash == "" {
		logger.Warn("EKG_ADMIN_PASSWORD_HASH не задан, вход в консоль невозможен")
	}

	// 2. Клиент сервиса индексов
	var backend service.IndexBackend
	if cfg.IndexEnabled() {
		backend = vectorstore.New(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.PollInterval, nil, logger)
		logger.Info("Клиент сервиса индексов создан", slog.String("url", cfg.OpenAIBaseURL))
	} else {
		logger.Warn("EKG_OPENAI_API_KEY не задан, операции с индексами недоступны")
	}

	// 3. Клиент Google Drive
	var drive service.DriveService
	if cfg.DriveEnabled() {
		client, err := gdrive.New(ctx, cfg.GoogleServiceAccountFile, cfg.GoogleImpersonatedUser, logger)
		if err != nil {
			return fmt.Errorf("ошибка инициализации Google Drive: %w", err)
		}
		drive = client
	}

	// 4. Services
	indexSvc := service.NewIndexService(backend, cfg.VectorStoreID, cfg.VectorStoreName, logger)
	ingestSvc := service.NewIngestionService(indexSvc, cfg.StagingDir, cfg.MaxUploadBytes, cfg.UploadTimeout, logger)
	driveBridge := service.NewDriveBridge(drive, ingestSvc, cfg.MaxUploadBytes, logger)

	// 5. topologymetrics — мониторинг зависимостей
	targets := service.DephealthTargets{}
	if cfg.IndexEnabled() {
		targets.IndexServiceURL = cfg.OpenAIBaseURL
	}
	if cfg.DriveEnabled() {
		targets.DriveAPIURL = gdrive.DiscoveryURL
	}

	var depHealth handlers.DependencyHealth
	dephealthSvc, err := service.NewDephealthService(
		"ekg-admin", cfg.DephealthGroup, targets, cfg.DephealthCheckInterval, logger,
	)
	switch {
	case errors.Is(err, service.ErrNoDependencies):
		logger.Info("Внешние зависимости не настроены, мониторинг не запускается")
	case err != nil:
		logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
			slog.String("error", err.Error()),
		)
	default:
		if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics", slog.String("error", startErr.Error()))
		} else {
			defer dephealthSvc.Stop()
			depHealth = dephealthSvc
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 6. Сессии и обработчики
	sessionManager, err := auth.NewSessionManager(cfg.SessionSecret, cfg.SecureCookie)
	if err != nil {
		return fmt.Errorf("ошибка создания менеджера сессий: %w", err)
	}

	apiHandler := handlers.NewAPIHandler(
		handlers.NewHealthHandler(depHealth),
		indexSvc,
		ingestSvc,
		driveBridge,
		sessionManager,
		handlers.Limits{MaxFileBytes: cfg.MaxUploadBytes, MaxBatchFiles: cfg.MaxBatchFiles},
		logger,
	)

	ui := server.UI{
		Auth: uihandlers.NewAuthHandler(sessionManager, cfg.AdminUsername, cfg.AdminPasswordHash, logger),
		Dashboard: uihandlers.NewDashboardHandler(sessionManager, uihandlers.DashboardInfo{
			MaxFileBytes:   cfg.MaxUploadBytes,
			MaxBatchFiles:  cfg.MaxBatchFiles,
			DefaultIndexID: cfg.VectorStoreID,
			IndexEnabled:   indexSvc.Enabled(),
			DriveEnabled:   driveBridge.Enabled(),
		}, logger),
		SessionLoader: uimiddleware.NewSessionLoader(sessionManager, logger),
	}

	// 7. HTTP-сервер (блокируется до сигнала завершения)
	if err := server.New(cfg, logger, apiHandler, ui).Run(ctx); err != nil {
		return err
	}

	logger.Info("EKG Admin остановлен")
	return nil
}
