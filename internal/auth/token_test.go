package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken(t *testing.T) {
	assert := assert.New(t)
	secret := []byte("s3cret")

	raw, err := Mint(secret, "ops", "admin", time.Hour)
	require.NoError(t, err)

	claims, err := Parse(secret, raw)
	require.NoError(t, err)
	assert.Equal("ops", claims.Subject)
	assert.Equal("admin", claims.Scope)
	assert.NotZero(claims.ExpiresAt)

	_, err = Parse([]byte("other"), raw)
	assert.ErrorIs(err, ErrorInvalidToken)

	_, err = Parse(secret, "")
	assert.ErrorIs(err, ErrorMissingToken)

	_, err = Mint(nil, "ops", "", 0)
	assert.ErrorIs(err, ErrorMissingSecret)
}

func TestTokenExpired(t *testing.T) {
	secret := []byte("s3cret")
	claims := &Claims{StandardClaims: jwt.StandardClaims{
		Issuer:    Issuer,
		Subject:   "ops",
		ExpiresAt: time.Now().Add(-time.Minute).Unix(),
	}}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)

	_, err = Parse(secret, raw)
	assert.ErrorIs(t, err, ErrorInvalidToken)
}

func TestTokenWrongIssuer(t *testing.T) {
	secret := []byte("s3cret")
	claims := &Claims{StandardClaims: jwt.StandardClaims{Issuer: "someone-else"}}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)

	_, err = Parse(secret, raw)
	assert.ErrorIs(t, err, ErrorInvalidToken)
}
