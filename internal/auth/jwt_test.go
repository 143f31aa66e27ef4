package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var secret = []byte("test-secret")

func TestGenerateAndValidate(t *testing.T) {
	token, err := GenerateJWT("user-42", secret, time.Hour)
	require.NoError(t, err)

	sub, err := ValidateToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, "user-42", sub)
}

func TestValidateToken_Rejects(t *testing.T) {
	_, err := GenerateJWT("", secret, time.Hour)
	assert.Error(t, err)

	token, err := GenerateJWT("user-42", secret, time.Hour)
	require.NoError(t, err)
	_, err = ValidateToken(token, []byte("other-secret"))
	assert.Error(t, err)

	expired, err := GenerateJWT("user-42", secret, -time.Minute)
	require.NoError(t, err)
	_, err = ValidateToken(expired, secret)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	noExp := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "user-42"})
	signed, err := noExp.SignedString(secret)
	require.NoError(t, err)
	_, err = ValidateToken(signed, secret)
	assert.Error(t, err)

	_, err = ValidateToken("not.a.token", secret)
	assert.Error(t, err)
}
