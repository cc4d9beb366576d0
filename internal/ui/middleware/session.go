// Пакет middleware — HTTP middleware операторской консоли.
// session.go — загрузка cookie-сессии в контекст запроса и проверка входа.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	apierrors "github.com/vinaykumarvk/create-EKG/internal/api/errors"
	"github.com/vinaykumarvk/create-EKG/internal/ui/auth"
)

// contextKey — тип для ключей контекста UI (избегаем коллизий с API middleware).
type contextKey string

const (
	// ContextKeySession — данные сессии в контексте запроса.
	ContextKeySession contextKey = "ui_session"
)

// SessionLoader — middleware, извлекающий сессию из зашифрованного cookie.
// Повреждённый cookie очищается, посетитель получает пустую сессию.
type SessionLoader struct {
	sessionManager *auth.SessionManager
	logger         *slog.Logger
}

// NewSessionLoader создаёт SessionLoader.
func NewSessionLoader(sessionManager *auth.SessionManager, logger *slog.Logger) *SessionLoader {
	return &SessionLoader{
		sessionManager: sessionManager,
		logger:         logger.With(slog.String("component", "ui_session_middleware")),
	}
}

// Middleware возвращает HTTP middleware загрузки сессии.
func (sl *SessionLoader) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := sl.sessionManager.Load(r)
			if err != nil {
				sl.logger.Debug("Ошибка чтения сессии",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				sl.sessionManager.Clear(w)
				session = &auth.SessionData{}
			}

			ctx := context.WithValue(r.Context(), ContextKeySession, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireLogin отвечает 401 для неаутентифицированных посетителей.
func RequireLogin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !SessionFromContext(r.Context()).IsAuthenticated() {
			apierrors.Unauthorized(w, "Требуется вход в систему")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SessionFromContext извлекает SessionData из контекста запроса.
// Возвращает nil если сессия не найдена (не прошёл через SessionLoader).
func SessionFromContext(ctx context.Context) *auth.SessionData {
	session, ok := ctx.Value(ContextKeySession).(*auth.SessionData)
	if !ok {
		return nil
	}
	return session
}

// WithSession помещает сессию в контекст (для тестов обработчиков).
func WithSession(ctx context.Context, session *auth.SessionData) context.Context {
	return context.WithValue(ctx, ContextKeySession, session)
}
