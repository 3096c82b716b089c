package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"
)

const Issuer = "viberrelay"

var (
	ErrorMissingToken  = errors.New("missing token")
	ErrorInvalidToken  = errors.New("invalid token")
	ErrorMissingSecret = errors.New("missing signing secret")
)

type Claims struct {
	jwt.StandardClaims
	Scope string `json:"scope,omitempty"`
}

// Mint signs an HS256 API token for subject. A zero ttl mints a token that
// never expires.
func Mint(secret []byte, subject string, scope string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", fmt.Errorf("minting token: %w", ErrorMissingSecret)
	}

	now := time.Now().UTC()
	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:   Issuer,
			Subject:  subject,
			IssuedAt: now.Unix(),
		},
		Scope: scope,
	}
	if ttl > 0 {
		claims.ExpiresAt = now.Add(ttl).Unix()
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Parse verifies raw against secret and returns its claims.
func Parse(secret []byte, raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrorMissingToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrorInvalidToken, err)
	}
	if !token.Valid || claims.Issuer != Issuer {
		return nil, ErrorInvalidToken
	}
	return claims, nil
}
