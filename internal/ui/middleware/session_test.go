package middleware

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vinaykumarvk/create-EKG/internal/ui/auth"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newManager(t *testing.T) *auth.SessionManager {
	t.Helper()
	sm, err := auth.NewSessionManager("middleware-test-secret", false)
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	return sm
}

// TestSessionLoader_ValidCookie проверяет загрузку сессии из cookie.
func TestSessionLoader_ValidCookie(t *testing.T) {
	sm := newManager(t)

	rec := httptest.NewRecorder()
	if err := sm.Save(rec, &auth.SessionData{Authenticated: true, Username: "admin"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}

	var got *auth.SessionData
	h := NewSessionLoader(sm, testLogger()).Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = SessionFromContext(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), req)

	if !got.IsAuthenticated() || got.Username != "admin" {
		t.Errorf("ожидалась аутентифицированная сессия admin, получено %+v", got)
	}
}

// TestSessionLoader_CorruptCookie проверяет очистку повреждённого cookie.
func TestSessionLoader_CorruptCookie(t *testing.T) {
	sm := newManager(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: auth.SessionCookieName, Value: "garbage"})

	var got *auth.SessionData
	h := NewSessionLoader(sm, testLogger()).Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = SessionFromContext(r.Context())
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got == nil || got.IsAuthenticated() {
		t.Errorf("ожидалась пустая сессия, получено %+v", got)
	}

	cleared := false
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("повреждённый cookie должен быть очищен")
	}
}

// TestRequireLogin проверяет ответ 401 без входа.
func TestRequireLogin(t *testing.T) {
	called := false
	h := RequireLogin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	// Анонимный посетитель
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	h.ServeHTTP(rec, req.WithContext(WithSession(req.Context(), &auth.SessionData{})))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("статус = %d, ожидается 401", rec.Code)
	}
	if called {
		t.Error("обработчик не должен вызываться без входа")
	}

	// Без SessionLoader
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("статус = %d, ожидается 401", rec.Code)
	}

	// Вошедший оператор
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	h.ServeHTTP(rec, req.WithContext(WithSession(req.Context(), &auth.SessionData{Authenticated: true})))
	if !called {
		t.Error("обработчик должен вызываться после входа")
	}
}
