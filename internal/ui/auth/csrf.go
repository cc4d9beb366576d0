package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/vinaykumarvk/create-EKG/internal/service"
)

// csrfTokenBytes — энтропия CSRF-токена.
const csrfTokenBytes = 32

// GenerateCSRFToken возвращает случайный URL-safe токен.
func GenerateCSRFToken() (string, error) {
	b := make([]byte, csrfTokenBytes)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("генерация CSRF-токена: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ValidateCSRFToken сравнивает токен сессии с присланным.
// Отсутствие токена и несовпадение возвращают одну и ту же ошибку.
func ValidateCSRFToken(sessionToken, submitted string) error {
	if sessionToken == "" || submitted == "" ||
		subtle.ConstantTimeCompare([]byte(sessionToken), []byte(submitted)) != 1 {
		return fmt.Errorf("%w: некорректный CSRF-токен", service.ErrInvalidRequest)
	}
	return nil
}
