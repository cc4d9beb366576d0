package auth

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinaykumarvk/create-EKG/internal/service"
)

func TestGenerateCSRFToken(t *testing.T) {
	a, err := GenerateCSRFToken()
	require.NoError(t, err)
	b, err := GenerateCSRFToken()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)

	raw, err := base64.RawURLEncoding.DecodeString(a)
	require.NoError(t, err, "токен должен быть URL-safe base64")
	assert.Len(t, raw, csrfTokenBytes)
}

func TestValidateCSRFToken(t *testing.T) {
	require.NoError(t, ValidateCSRFToken("token-1", "token-1"))

	missing := ValidateCSRFToken("token-1", "")
	noSession := ValidateCSRFToken("", "token-1")
	mismatch := ValidateCSRFToken("token-1", "token-2")
	bothEmpty := ValidateCSRFToken("", "")

	for _, err := range []error{missing, noSession, mismatch, bothEmpty} {
		require.Error(t, err)
		assert.True(t, errors.Is(err, service.ErrInvalidRequest))
	}

	// Одинаковое сообщение для отсутствующего и неверного токена
	assert.Equal(t, missing.Error(), mismatch.Error())
	assert.Equal(t, missing.Error(), bothEmpty.Error())
}
