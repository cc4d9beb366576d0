// Пакет errors — единый формат ошибок HTTP API EKG Admin.
// Формат: {"error": {"code": "...", "message": "..."}}.
// Все HTTP-ответы с ошибками должны использовать WriteError или WriteServiceError.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/vinaykumarvk/create-EKG/internal/service"
)

// Машиночитаемые коды ошибок.
const (
	CodeValidationError    = "VALIDATION_ERROR"
	CodeUnauthorized       = "UNAUTHORIZED"
	CodeNotFound           = "NOT_FOUND"
	CodeConflict           = "CONFLICT"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeConversionError    = "CONVERSION_ERROR"
	CodeUploadTimeout      = "UPLOAD_TIMEOUT"
	CodeRemoteService      = "REMOTE_SERVICE_ERROR"
	CodeInternalError      = "INTERNAL_ERROR"
)

// errorBody — структура тела ответа ошибки.
type errorBody struct {
	Error errorDetail `json:"error"`
}

// errorDetail — детали ошибки.
type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteError записывает ответ ошибки в стандартном формате.
func WriteError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// Classify сопоставляет ошибку сервисного слоя HTTP-статусу и коду.
// Неизвестные ошибки — 500 INTERNAL_ERROR.
func Classify(err error) (int, string) {
	switch {
	case stderrors.Is(err, service.ErrInvalidRequest):
		return http.StatusBadRequest, CodeValidationError
	case stderrors.Is(err, service.ErrUnauthorized):
		return http.StatusUnauthorized, CodeUnauthorized
	case stderrors.Is(err, service.ErrConflict):
		return http.StatusConflict, CodeConflict
	case stderrors.Is(err, service.ErrServiceUnavailable):
		return http.StatusServiceUnavailable, CodeServiceUnavailable
	case stderrors.Is(err, service.ErrConversion):
		return http.StatusInternalServerError, CodeConversionError
	case stderrors.Is(err, service.ErrUploadTimeout):
		return http.StatusGatewayTimeout, CodeUploadTimeout
	case stderrors.Is(err, service.ErrRemoteService):
		return http.StatusInternalServerError, CodeRemoteService
	default:
		return http.StatusInternalServerError, CodeInternalError
	}
}

// WriteServiceError классифицирует ошибку и записывает ответ.
// Для внутренних ошибок текст не раскрывается.
func WriteServiceError(w http.ResponseWriter, err error) {
	status, code := Classify(err)
	message := err.Error()
	if code == CodeInternalError {
		message = "Внутренняя ошибка сервера"
	}
	WriteError(w, status, code, message)
}

// --- Конструкторы для типичных ошибок ---

// ValidationError — 400 некорректные входные данные.
func ValidationError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, CodeValidationError, message)
}

// Unauthorized — 401 требуется аутентификация.
func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, CodeUnauthorized, message)
}

// NotFound — 404 маршрут не найден.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, CodeNotFound, message)
}

// InternalError — 500 внутренняя ошибка.
func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, CodeInternalError, message)
}
