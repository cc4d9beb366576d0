// Пакет auth — аутентификация администратора и сессии Admin UI.
// Хеширование паролей PBKDF2-SHA256, CSRF-токены, шифрование сессий AES-256-GCM.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// PasswordHashPrefix — идентификатор алгоритма в закодированном хеше.
	PasswordHashPrefix = "pbkdf2$"
	// PBKDF2Rounds — количество итераций PBKDF2.
	PBKDF2Rounds = 390000
	// saltSize — размер соли в байтах.
	saltSize = 16
	// derivedKeySize — длина производного ключа (SHA-256).
	derivedKeySize = sha256.Size
)

// HashPassword возвращает "pbkdf2$" + base64(salt || key) для пароля.
// Каждый вызов использует новую соль, поэтому результат всегда разный.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("генерация соли: %w", err)
	}

	dk := derive(password, salt)
	raw := make([]byte, 0, len(salt)+len(dk))
	raw = append(raw, salt...)
	raw = append(raw, dk...)

	return PasswordHashPrefix + base64.StdEncoding.EncodeToString(raw), nil
}

// VerifyPassword проверяет пароль по сохранённому хешу.
// Некорректный хеш — всегда false, без ошибки.
func VerifyPassword(password, stored string) bool {
	salt, digest, ok := splitHash(stored)
	if !ok {
		return false
	}

	candidate := derive(password, salt)
	return subtle.ConstantTimeCompare(candidate, digest) == 1
}

// derive вычисляет PBKDF2-HMAC-SHA256.
func derive(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, PBKDF2Rounds, derivedKeySize, sha256.New)
}

// splitHash разбирает закодированный хеш на соль и ключ.
func splitHash(stored string) (salt, digest []byte, ok bool) {
	encoded, found := strings.CutPrefix(stored, PasswordHashPrefix)
	if !found || encoded == "" {
		return nil, nil, false
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, nil, false
	}
	if len(raw) <= saltSize {
		return nil, nil, false
	}

	return raw[:saltSize], raw[saltSize:], true
}
