// Пакет handlers — JSON API консоли EKG Admin.
// handler.go — APIHandler объединяет доменные обработчики и общие помощники.
package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"

	"github.com/vinaykumarvk/create-EKG/internal/service"
	"github.com/vinaykumarvk/create-EKG/internal/ui/auth"
	uimiddleware "github.com/vinaykumarvk/create-EKG/internal/ui/middleware"
)

// CSRFHeader — заголовок с CSRF-токеном для JSON-запросов.
const CSRFHeader = "X-CSRF-Token"

// maxFormBytes — лимит тела небольших форм и JSON-запросов.
const maxFormBytes = 1 << 20

// Limits — ограничения загрузки.
type Limits struct {
	MaxFileBytes  int64
	MaxBatchFiles int
}

// APIHandler — обработчик JSON API консоли.
type APIHandler struct {
	health         *HealthHandler
	indexes        *service.IndexService
	ingest         *service.IngestionService
	drive          *service.DriveBridge
	sessionManager *auth.SessionManager
	limits         Limits
	logger         *slog.Logger
}

// NewAPIHandler создаёт основной обработчик API.
func NewAPIHandler(
	health *HealthHandler,
	indexes *service.IndexService,
	ingest *service.IngestionService,
	drive *service.DriveBridge,
	sessionManager *auth.SessionManager,
	limits Limits,
	logger *slog.Logger,
) *APIHandler {
	return &APIHandler{
		health:         health,
		indexes:        indexes,
		ingest:         ingest,
		drive:          drive,
		sessionManager: sessionManager,
		limits:         limits,
		logger:         logger.With(slog.String("component", "api_handler")),
	}
}

// HealthLive — liveness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthLive(w http.ResponseWriter, r *http.Request) {
	h.health.HealthLive(w, r)
}

// HealthReady — readiness probe (делегируется в HealthHandler).
func (h *APIHandler) HealthReady(w http.ResponseWriter, r *http.Request) {
	h.health.HealthReady(w, r)
}

// GetMetrics — Prometheus метрики (делегируется в HealthHandler).
func (h *APIHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.health.GetMetrics(w, r)
}

// --- Вспомогательные функции ---

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// session возвращает сессию запроса (пустую, если SessionLoader не подключён).
func session(r *http.Request) *auth.SessionData {
	if s := uimiddleware.SessionFromContext(r.Context()); s != nil {
		return s
	}
	return &auth.SessionData{}
}

// checkCSRF сверяет токен из заголовка X-CSRF-Token или поля csrf_token с сессией.
func checkCSRF(r *http.Request, fields url.Values) error {
	submitted := r.Header.Get(CSRFHeader)
	if submitted == "" {
		submitted = fields.Get("csrf_token")
	}
	return auth.ValidateCSRFToken(session(r).CSRFToken, submitted)
}

// readFields читает поля запроса из JSON-объекта или urlencoded/multipart формы.
// Строки JSON дают одно значение, массивы строк — несколько.
// Тело urlencoded читается вручную: net/http не разбирает его для DELETE.
func readFields(w http.ResponseWriter, r *http.Request) (url.Values, error) {
	if r.Body == nil || r.Body == http.NoBody {
		return url.Values{}, nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			if err == io.EOF {
				return url.Values{}, nil
			}
			return nil, fmt.Errorf("%w: некорректный JSON: %v", service.ErrInvalidRequest, err)
		}
		return jsonFields(raw), nil

	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxFormBytes); err != nil {
			return nil, fmt.Errorf("%w: некорректная форма: %v", service.ErrInvalidRequest, err)
		}
		return url.Values(r.MultipartForm.Value), nil

	default:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: ошибка чтения тела запроса: %v", service.ErrInvalidRequest, err)
		}
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, fmt.Errorf("%w: некорректная форма: %v", service.ErrInvalidRequest, err)
		}
		return values, nil
	}
}

// jsonFields преобразует JSON-объект в url.Values.
func jsonFields(raw map[string]any) url.Values {
	values := url.Values{}
	for k, v := range raw {
		switch typed := v.(type) {
		case string:
			values.Add(k, typed)
		case []any:
			for _, item := range typed {
				if s, ok := item.(string); ok {
					values.Add(k, s)
				}
			}
		}
	}
	return values
}

// saveFlash записывает flash-сообщение в сессию. Ошибка сохранения только логируется.
func (h *APIHandler) saveFlash(w http.ResponseWriter, r *http.Request, message string) {
	s := uimiddleware.SessionFromContext(r.Context())
	if s == nil || h.sessionManager == nil {
		return
	}
	s.SetFlash(message, auth.FlashSuccess)
	if err := h.sessionManager.Save(w, s); err != nil {
		h.logger.Warn("Ошибка сохранения flash-сообщения", slog.String("error", err.Error()))
	}
}
