package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestSessionEncryptDecryptRoundTrip проверяет шифрование и дешифрование SessionData.
func TestSessionEncryptDecryptRoundTrip(t *testing.T) {
	sm, err := NewSessionManager("0123456789abcdef-secret", false)
	if err != nil {
		t.Fatalf("Ошибка создания SessionManager: %v", err)
	}

	original := &SessionData{
		Authenticated: true,
		Username:      "admin",
		CSRFToken:     "csrf-token-12345",
		Flash:         &Flash{Message: "Welcome back!", Category: FlashSuccess},
	}

	encrypted, err := sm.Encrypt(original)
	if err != nil {
		t.Fatalf("Ошибка шифрования: %v", err)
	}
	if encrypted == "" {
		t.Fatal("Зашифрованная строка пустая")
	}

	decrypted, err := sm.Decrypt(encrypted)
	if err != nil {
		t.Fatalf("Ошибка дешифрования: %v", err)
	}

	if !decrypted.Authenticated {
		t.Error("Authenticated: want true")
	}
	if decrypted.Username != original.Username {
		t.Errorf("Username: want %q, got %q", original.Username, decrypted.Username)
	}
	if decrypted.CSRFToken != original.CSRFToken {
		t.Errorf("CSRFToken: want %q, got %q", original.CSRFToken, decrypted.CSRFToken)
	}
	if decrypted.Flash == nil || decrypted.Flash.Message != "Welcome back!" {
		t.Errorf("Flash: got %+v", decrypted.Flash)
	}
}

// TestSessionManagerEmptyKey проверяет отказ без ключа.
func TestSessionManagerEmptyKey(t *testing.T) {
	if _, err := NewSessionManager("", false); err == nil {
		t.Fatal("Ожидалась ошибка для пустого ключа")
	}
}

// TestSessionDecryptWithDifferentKey проверяет, что чужой ключ не расшифрует cookie.
func TestSessionDecryptWithDifferentKey(t *testing.T) {
	sm1, _ := NewSessionManager("first-secret-value-123", false)
	sm2, _ := NewSessionManager("second-secret-value-456", false)

	encrypted, err := sm1.Encrypt(&SessionData{Authenticated: true})
	if err != nil {
		t.Fatalf("Ошибка шифрования: %v", err)
	}

	if _, err := sm2.Decrypt(encrypted); err == nil {
		t.Fatal("Ожидалась ошибка дешифрования чужим ключом")
	}
}

// TestSessionDecryptGarbage проверяет обработку повреждённых данных.
func TestSessionDecryptGarbage(t *testing.T) {
	sm, _ := NewSessionManager("garbage-test-secret", false)

	for _, value := range []string{"not-base64!!!", "YWJj", ""} {
		if _, err := sm.Decrypt(value); err == nil {
			t.Errorf("Ожидалась ошибка для %q", value)
		}
	}
}

// TestSessionCookieRoundTrip проверяет Save/Load через HTTP cookie.
func TestSessionCookieRoundTrip(t *testing.T) {
	sm, _ := NewSessionManager("cookie-test-secret-value", true)

	rec := httptest.NewRecorder()
	if err := sm.Save(rec, &SessionData{Authenticated: true, Username: "admin"}); err != nil {
		t.Fatalf("Ошибка Save: %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("Ожидался 1 cookie, получено %d", len(cookies))
	}
	c := cookies[0]
	if c.Name != SessionCookieName {
		t.Errorf("Имя cookie: want %q, got %q", SessionCookieName, c.Name)
	}
	if !c.HttpOnly || !c.Secure {
		t.Error("Cookie должен быть HttpOnly и Secure")
	}
	if c.SameSite != http.SameSiteLaxMode {
		t.Errorf("SameSite: want Lax, got %v", c.SameSite)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(c)

	session, err := sm.Load(req)
	if err != nil {
		t.Fatalf("Ошибка Load: %v", err)
	}
	if !session.IsAuthenticated() || session.Username != "admin" {
		t.Errorf("Сессия восстановлена некорректно: %+v", session)
	}
}

// TestSessionLoadNoCookie проверяет пустую сессию для нового посетителя.
func TestSessionLoadNoCookie(t *testing.T) {
	sm, _ := NewSessionManager("no-cookie-test-secret", false)

	session, err := sm.Load(httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil {
		t.Fatalf("Ошибка Load: %v", err)
	}
	if session == nil || session.IsAuthenticated() {
		t.Errorf("Ожидалась пустая неаутентифицированная сессия, получено %+v", session)
	}
}

// TestSessionClear проверяет удаление cookie.
func TestSessionClear(t *testing.T) {
	sm, _ := NewSessionManager("clear-test-secret-value", false)

	rec := httptest.NewRecorder()
	sm.Clear(rec)

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge != -1 {
		t.Errorf("Ожидался cookie с MaxAge=-1, получено %+v", cookies)
	}
}

// TestSessionGateLifecycle проверяет вход, выход, CSRF и flash.
func TestSessionGateLifecycle(t *testing.T) {
	s := &SessionData{}
	if s.IsAuthenticated() {
		t.Fatal("Новая сессия не должна быть аутентифицирована")
	}

	token, err := s.EnsureCSRFToken()
	if err != nil || token == "" {
		t.Fatalf("EnsureCSRFToken: token=%q err=%v", token, err)
	}
	again, _ := s.EnsureCSRFToken()
	if again != token {
		t.Error("EnsureCSRFToken должен возвращать существующий токен")
	}

	s.Login("admin")
	if !s.IsAuthenticated() || s.Username != "admin" {
		t.Fatal("Login не установил аутентификацию")
	}

	if err := s.Logout(); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if s.IsAuthenticated() {
		t.Error("После Logout сессия не должна быть аутентифицирована")
	}
	if s.CSRFToken == "" || s.CSRFToken == token {
		t.Error("Logout должен выпустить новый CSRF-токен")
	}

	s.SetFlash("first", FlashInfo)
	s.SetFlash("second", FlashSuccess)
	f := s.ConsumeFlash()
	if f == nil || f.Message != "second" {
		t.Errorf("Ожидалось последнее flash-сообщение, получено %+v", f)
	}
	if s.ConsumeFlash() != nil {
		t.Error("Повторное чтение flash должно вернуть nil")
	}
}

// TestNilSessionNotAuthenticated проверяет nil-безопасность.
func TestNilSessionNotAuthenticated(t *testing.T) {
	var s *SessionData
	if s.IsAuthenticated() {
		t.Error("nil-сессия не должна быть аутентифицирована")
	}
}
