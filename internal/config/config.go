// Пакет config — загрузка и валидация конфигурации EKG Admin
// из переменных окружения. Конфигурация читается один раз при старте
// и далее передаётся во все компоненты только для чтения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Минимальная длина секрета сессий.
const minSessionSecretLen = 16

// Лимит размера одного загружаемого файла по умолчанию (100 MiB).
const DefaultMaxUploadBytes int64 = 100 * 1024 * 1024

// Config содержит все параметры конфигурации EKG Admin.
type Config struct {
	// --- Сервер ---

	// Порт HTTP-сервера
	Port int
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string

	// --- Сессии и администратор ---

	// Секрет для шифрования cookie-сессий (не короче 16 символов)
	SessionSecret string
	// Secure flag для session cookie
	SecureCookie bool
	// Имя администратора
	AdminUsername string
	// PBKDF2-хеш пароля администратора (pbkdf2$...)
	AdminPasswordHash string

	// --- Сервис индексов (OpenAI Vector Stores) ---

	// API-ключ; пустой — все операции с индексами недоступны
	OpenAIAPIKey string
	// Базовый URL API
	OpenAIBaseURL string
	// Индекс по умолчанию
	VectorStoreID string
	// Имя автоматически создаваемого индекса
	VectorStoreName string

	// --- Google Drive ---

	// Путь к JSON-ключу service account; пустой — Drive отключён
	GoogleServiceAccountFile string
	// Пользователь для domain-wide delegation (опционально)
	GoogleImpersonatedUser string

	// --- Загрузка файлов ---

	// Максимальный размер одного файла в байтах
	MaxUploadBytes int64
	// Максимальное количество файлов в одном запросе
	MaxBatchFiles int
	// Таймаут прикрепления файла к индексу
	UploadTimeout time.Duration
	// Интервал опроса статуса прикрепления
	PollInterval time.Duration
	// Родительская директория для временных staging-директорий
	StagingDir string

	// --- topologymetrics ---

	// Группа в метриках зависимостей
	DephealthGroup string
	// Интервал проверки зависимостей
	DephealthCheckInterval time.Duration

	// --- Graceful shutdown ---

	// Таймаут graceful shutdown HTTP-сервера
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}
	var err error

	// --- Сервер ---

	// EKG_PORT — порт HTTP-сервера (по умолчанию 8000)
	cfg.Port, err = getEnvInt("EKG_PORT", 8000)
	if err != nil {
		return nil, fmt.Errorf("EKG_PORT: %w", err)
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("EKG_PORT: значение %d вне допустимого диапазона 1-65535", cfg.Port)
	}

	// EKG_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("EKG_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("EKG_LOG_LEVEL: %w", err)
	}

	// EKG_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("EKG_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("EKG_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// --- Сессии и администратор ---

	// EKG_SESSION_SECRET — обязательный, не короче 16 символов
	cfg.SessionSecret, err = getEnvRequired("EKG_SESSION_SECRET")
	if err != nil {
		return nil, err
	}
	if len(cfg.SessionSecret) < minSessionSecretLen {
		return nil, fmt.Errorf("EKG_SESSION_SECRET: длина должна быть не меньше %d символов", minSessionSecretLen)
	}

	// EKG_SECURE_COOKIE — Secure flag для cookie (по умолчанию true)
	cfg.SecureCookie, err = getEnvBool("EKG_SECURE_COOKIE", true)
	if err != nil {
		return nil, fmt.Errorf("EKG_SECURE_COOKIE: %w", err)
	}

	// EKG_ADMIN_USERNAME — имя администратора (по умолчанию admin)
	cfg.AdminUsername = getEnvDefault("EKG_ADMIN_USERNAME", "admin")

	// EKG_ADMIN_PASSWORD_HASH — опционально; без него вход невозможен
	cfg.AdminPasswordHash = getEnvDefault("EKG_ADMIN_PASSWORD_HASH", "")

	// --- Сервис индексов ---

	cfg.OpenAIAPIKey = getEnvDefault("EKG_OPENAI_API_KEY", "")
	cfg.OpenAIBaseURL = strings.TrimRight(getEnvDefault("EKG_OPENAI_BASE_URL", "https://api.openai.com/v1"), "/")
	cfg.VectorStoreID = getEnvDefault("EKG_VECTOR_STORE_ID", "")
	cfg.VectorStoreName = getEnvDefault("EKG_VECTOR_STORE_NAME", "Create EKG Vector Store")

	// --- Google Drive ---

	cfg.GoogleServiceAccountFile = getEnvDefault("EKG_GOOGLE_SERVICE_ACCOUNT_FILE", "")
	cfg.GoogleImpersonatedUser = getEnvDefault("EKG_GOOGLE_IMPERSONATED_USER", "")

	// --- Загрузка файлов ---

	// EKG_MAX_UPLOAD_BYTES — лимит размера файла (по умолчанию 100 MiB)
	cfg.MaxUploadBytes, err = getEnvInt64("EKG_MAX_UPLOAD_BYTES", DefaultMaxUploadBytes)
	if err != nil {
		return nil, fmt.Errorf("EKG_MAX_UPLOAD_BYTES: %w", err)
	}
	if cfg.MaxUploadBytes < 1 {
		return nil, fmt.Errorf("EKG_MAX_UPLOAD_BYTES: значение должно быть положительным")
	}

	// EKG_MAX_BATCH_FILES — файлов в одном запросе (по умолчанию 20)
	cfg.MaxBatchFiles, err = getEnvInt("EKG_MAX_BATCH_FILES", 20)
	if err != nil {
		return nil, fmt.Errorf("EKG_MAX_BATCH_FILES: %w", err)
	}
	if cfg.MaxBatchFiles < 1 || cfg.MaxBatchFiles > 100 {
		return nil, fmt.Errorf("EKG_MAX_BATCH_FILES: значение %d вне допустимого диапазона 1-100", cfg.MaxBatchFiles)
	}

	// EKG_UPLOAD_TIMEOUT — таймаут прикрепления к индексу (по умолчанию 5m)
	cfg.UploadTimeout, err = getEnvDuration("EKG_UPLOAD_TIMEOUT", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("EKG_UPLOAD_TIMEOUT: %w", err)
	}

	// EKG_POLL_INTERVAL — интервал опроса статуса (по умолчанию 1s)
	cfg.PollInterval, err = getEnvDuration("EKG_POLL_INTERVAL", time.Second)
	if err != nil {
		return nil, fmt.Errorf("EKG_POLL_INTERVAL: %w", err)
	}

	// EKG_STAGING_DIR — директория для staging (по умолчанию системная temp)
	cfg.StagingDir = getEnvDefault("EKG_STAGING_DIR", os.TempDir())

	// --- topologymetrics ---

	cfg.DephealthGroup = getEnvDefault("EKG_DEPHEALTH_GROUP", "ekg")

	cfg.DephealthCheckInterval, err = getEnvDuration("EKG_DEPHEALTH_CHECK_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("EKG_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// --- Graceful shutdown ---

	cfg.ShutdownTimeout, err = getEnvDuration("EKG_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("EKG_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// IndexEnabled сообщает, задан ли API-ключ сервиса индексов.
func (c *Config) IndexEnabled() bool {
	return c.OpenAIAPIKey != ""
}

// DriveEnabled сообщает, задан ли ключ service account Google Drive.
func (c *Config) DriveEnabled() bool {
	return c.GoogleServiceAccountFile != ""
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

func getEnvInt64(key string, defaultVal int64) (int64, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvBool возвращает булево значение (true/false/1/0) или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 15m)", val)
	}
	if d <= 0 {
		return 0, fmt.Errorf("длительность должна быть положительной: %q", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
