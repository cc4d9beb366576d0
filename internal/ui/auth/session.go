package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// Имя cookie для зашифрованной сессии оператора.
const SessionCookieName = "ekg_session"

// Максимальный возраст cookie сессии (12 часов).
const SessionCookieMaxAge = 12 * 60 * 60

// Категории flash-сообщений.
const (
	FlashSuccess = "success"
	FlashInfo    = "info"
	FlashError   = "error"
)

// Flash — одноразовое сообщение для следующей страницы.
type Flash struct {
	Message  string `json:"message"`
	Category string `json:"category"`
}

// SessionData — состояние посетителя, хранящееся в зашифрованном cookie.
// Пустое значение — анонимный посетитель без CSRF-токена.
type SessionData struct {
	// Authenticated — оператор вошёл в систему.
	Authenticated bool `json:"authenticated"`
	// Username — имя вошедшего оператора.
	Username string `json:"username,omitempty"`
	// CSRFToken — токен для форм и state-changing запросов.
	CSRFToken string `json:"csrf_token,omitempty"`
	// Flash — единственный слот для flash-сообщения.
	Flash *Flash `json:"flash,omitempty"`
}

// IsAuthenticated сообщает, вошёл ли оператор.
func (s *SessionData) IsAuthenticated() bool {
	return s != nil && s.Authenticated
}

// Login помечает сессию аутентифицированной.
func (s *SessionData) Login(username string) {
	s.Authenticated = true
	s.Username = username
}

// Logout сбрасывает аутентификацию и выпускает новый CSRF-токен.
// Flash сохраняется, чтобы показать сообщение о выходе.
func (s *SessionData) Logout() error {
	s.Authenticated = false
	s.Username = ""

	token, err := GenerateCSRFToken()
	if err != nil {
		return err
	}
	s.CSRFToken = token
	return nil
}

// EnsureCSRFToken возвращает токен сессии, создавая его при отсутствии.
func (s *SessionData) EnsureCSRFToken() (string, error) {
	if s.CSRFToken != "" {
		return s.CSRFToken, nil
	}

	token, err := GenerateCSRFToken()
	if err != nil {
		return "", err
	}
	s.CSRFToken = token
	return token, nil
}

// SetFlash записывает flash-сообщение, заменяя предыдущее.
func (s *SessionData) SetFlash(message, category string) {
	s.Flash = &Flash{Message: message, Category: category}
}

// ConsumeFlash возвращает flash-сообщение и очищает слот.
func (s *SessionData) ConsumeFlash() *Flash {
	f := s.Flash
	s.Flash = nil
	return f
}

// SessionManager шифрует и дешифрует SessionData в HTTP cookie через AES-256-GCM.
type SessionManager struct {
	gcm cipher.AEAD
	// secure — использовать Secure flag для cookie (true для HTTPS).
	secure bool
}

// NewSessionManager создаёт менеджер сессий.
// key — base64 32-байтового ключа либо произвольная строка,
// которая хешируется SHA-256 до 32 байт.
func NewSessionManager(key string, secure bool) (*SessionManager, error) {
	if key == "" {
		return nil, errors.New("ключ сессии не задан")
	}

	keyBytes, err := base64.StdEncoding.DecodeString(key)
	if err != nil || len(keyBytes) != 32 {
		keyBytes = sha256Key(key)
	}

	block, err := aes.NewCipher(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания GCM: %w", err)
	}

	return &SessionManager{
		gcm:    gcm,
		secure: secure,
	}, nil
}

// Encrypt шифрует SessionData и возвращает base64-строку.
func (sm *SessionManager) Encrypt(data *SessionData) (string, error) {
	plaintext, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("ошибка сериализации сессии: %w", err)
	}

	nonce := make([]byte, sm.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("ошибка генерации nonce: %w", err)
	}

	// nonce prepended к ciphertext
	ciphertext := sm.gcm.Seal(nonce, nonce, plaintext, nil)

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

// Decrypt дешифрует base64-строку обратно в SessionData.
func (sm *SessionManager) Decrypt(encrypted string) (*SessionData, error) {
	ciphertext, err := base64.URLEncoding.DecodeString(encrypted)
	if err != nil {
		return nil, fmt.Errorf("ошибка декодирования base64: %w", err)
	}

	nonceSize := sm.gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, errors.New("зашифрованные данные слишком короткие")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := sm.gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка дешифрования сессии: %w", err)
	}

	var data SessionData
	if err := json.Unmarshal(plaintext, &data); err != nil {
		return nil, fmt.Errorf("ошибка десериализации сессии: %w", err)
	}

	return &data, nil
}

// Save записывает сессию в ответ. Вызывать до записи тела ответа.
func (sm *SessionManager) Save(w http.ResponseWriter, data *SessionData) error {
	encrypted, err := sm.Encrypt(data)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    encrypted,
		Path:     "/",
		MaxAge:   SessionCookieMaxAge,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Load извлекает сессию из cookie запроса.
// Возвращает пустую сессию, если cookie отсутствует.
func (sm *SessionManager) Load(r *http.Request) (*SessionData, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return &SessionData{}, nil
		}
		return nil, err
	}

	return sm.Decrypt(cookie.Value)
}

// Clear удаляет session cookie из ответа.
func (sm *SessionManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// sha256Key хеширует строковый ключ в 32 bytes через SHA-256.
func sha256Key(key string) []byte {
	h := sha256.Sum256([]byte(key))
	return h[:]
}
