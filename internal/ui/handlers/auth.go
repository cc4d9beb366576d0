// Пакет handlers — HTTP-обработчики операторской консоли.
// auth.go — вход и выход оператора по имени и паролю.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	apierrors "github.com/vinaykumarvk/create-EKG/internal/api/errors"
	"github.com/vinaykumarvk/create-EKG/internal/ui/auth"
	"github.com/vinaykumarvk/create-EKG/internal/ui/middleware"
)

// Flash-сообщения консоли.
const (
	flashWelcome   = "Welcome back!"
	flashSignedOut = "You have been signed out."
)

// AuthHandler — обработчики входа и выхода.
type AuthHandler struct {
	sessionManager *auth.SessionManager
	adminUsername  string
	// adminPasswordHash — pbkdf2$..., пустой — вход невозможен.
	adminPasswordHash string
	logger            *slog.Logger
}

// NewAuthHandler создаёт AuthHandler.
func NewAuthHandler(
	sessionManager *auth.SessionManager,
	adminUsername, adminPasswordHash string,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		sessionManager:    sessionManager,
		adminUsername:     adminUsername,
		adminPasswordHash: adminPasswordHash,
		logger:            logger.With(slog.String("component", "ui_auth")),
	}
}

// loginPageResponse — данные для формы входа.
type loginPageResponse struct {
	CSRFToken string      `json:"csrf_token"`
	Flash     *auth.Flash `json:"flash"`
}

// HandleHome — GET /
// Вошедший оператор перенаправляется в консоль, остальные — на вход.
func (h *AuthHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	if middleware.SessionFromContext(r.Context()).IsAuthenticated() {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// HandleLoginPage — GET /login
// Выдаёт CSRF-токен для формы и накопленное flash-сообщение.
func (h *AuthHandler) HandleLoginPage(w http.ResponseWriter, r *http.Request) {
	session := sessionOrEmpty(r)
	if session.IsAuthenticated() {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}

	token, err := session.EnsureCSRFToken()
	if err != nil {
		h.logger.Error("Ошибка генерации CSRF-токена", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
		return
	}
	flash := session.ConsumeFlash()

	if !h.save(w, session) {
		return
	}
	writeJSON(w, http.StatusOK, loginPageResponse{CSRFToken: token, Flash: flash})
}

// HandleLogin — POST /login (form: username, password, csrf_token).
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	session := sessionOrEmpty(r)

	if err := auth.ValidateCSRFToken(session.CSRFToken, r.PostFormValue("csrf_token")); err != nil {
		apierrors.WriteServiceError(w, err)
		return
	}

	username := r.PostFormValue("username")
	if username != h.adminUsername || !auth.VerifyPassword(r.PostFormValue("password"), h.adminPasswordHash) {
		h.logger.Warn("Неудачная попытка входа",
			slog.String("username", username),
			slog.String("remote_addr", r.RemoteAddr),
		)
		apierrors.Unauthorized(w, "Неверные учётные данные")
		return
	}

	session.Login(username)
	session.SetFlash(flashWelcome, auth.FlashSuccess)
	if !h.save(w, session) {
		return
	}

	h.logger.Info("Оператор вошёл в систему", slog.String("username", username))
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// HandleLogout — POST /logout (form: csrf_token).
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	session := sessionOrEmpty(r)

	if err := auth.ValidateCSRFToken(session.CSRFToken, r.PostFormValue("csrf_token")); err != nil {
		apierrors.WriteServiceError(w, err)
		return
	}

	username := session.Username
	if err := session.Logout(); err != nil {
		h.logger.Error("Ошибка выхода", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
		return
	}
	session.SetFlash(flashSignedOut, auth.FlashInfo)
	if !h.save(w, session) {
		return
	}

	h.logger.Info("Оператор вышел из системы", slog.String("username", username))
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// save записывает сессию; при ошибке отвечает 500 и возвращает false.
func (h *AuthHandler) save(w http.ResponseWriter, session *auth.SessionData) bool {
	if err := h.sessionManager.Save(w, session); err != nil {
		h.logger.Error("Ошибка сохранения сессии", slog.String("error", err.Error()))
		apierrors.InternalError(w, "Внутренняя ошибка сервера")
		return false
	}
	return true
}

// sessionOrEmpty возвращает сессию из контекста или новую пустую.
func sessionOrEmpty(r *http.Request) *auth.SessionData {
	if session := middleware.SessionFromContext(r.Context()); session != nil {
		return session
	}
	return &auth.SessionData{}
}

// writeJSON записывает JSON-ответ с указанным статусом.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
