// dashboard.go — GET /admin, состояние консоли для вошедшего оператора.
package handlers

import (
	"log/slog"
	"net/http"

	apierrors "github.com/vinaykumarvk/create-EKG/internal/api/errors"
	"github.com/vinaykumarvk/create-EKG/internal/config"
	"github.com/vinaykumarvk/create-EKG/internal/ui/auth"
)

// DashboardInfo — статические параметры консоли, известные при старте.
type DashboardInfo struct {
	MaxFileBytes   int64
	MaxBatchFiles  int
	DefaultIndexID string
	IndexEnabled   bool
	DriveEnabled   bool
}

// DashboardHandler — обработчик главной страницы консоли.
type DashboardHandler struct {
	sessionManager *auth.SessionManager
	info           DashboardInfo
	logger         *slog.Logger
}

// NewDashboardHandler создаёт DashboardHandler.
func NewDashboardHandler(sessionManager *auth.SessionManager, info DashboardInfo, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{
		sessionManager: sessionManager,
		info:           info,
		logger:         logger.With(slog.String("component", "ui_dashboard")),
	}
}

type dashboardResponse struct {
	Username       string      `json:"username"`
	CSRFToken      string      `json:"csrf_token"`
	Flash          *auth.Flash `json:"flash"`
	MaxFileBytes   int64       `json:"max_file_bytes"`
	MaxBatchFiles  int         `json:"max_batch_files"`
	DefaultIndexID string      `json:"default_vector_store_id,omitempty"`
	IndexEnabled   bool        `json:"index_enabled"`
	DriveEnabled   bool        `json:"drive_enabled"`
	Version        string      `json:"version"`
}

// HandleDashboard — GET /admin (только для вошедших, см. RequireLogin).
func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	session := sessionOrEmpty(r)

	token, err := session.EnsureCSRFToken()
	if err != nil {
		h.logger.Error("Ошибка генерации CSRF-токена", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
		return
	}
	flash := session.ConsumeFlash()

	if err := h.sessionManager.Save(w, session); err != nil {
		h.logger.Error("Ошибка сохранения сессии", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
		return
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		Username:       session.Username,
		CSRFToken:      token,
		Flash:          flash,
		MaxFileBytes:   h.info.MaxFileBytes,
		MaxBatchFiles:  h.info.MaxBatchFiles,
		DefaultIndexID: h.info.DefaultIndexID,
		IndexEnabled:   h.info.IndexEnabled,
		DriveEnabled:   h.info.DriveEnabled,
		Version:        config.Version,
	})
}
