package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenManager issues and validates department access tokens.
type TokenManager struct {
	secret         []byte
	accessDuration time.Duration
}

// NewTokenManager creates a token manager with the signing secret and
// access token lifetime.
func NewTokenManager(secret string, accessDuration time.Duration) *TokenManager {
	return &TokenManager{
		secret:         []byte(secret),
		accessDuration: accessDuration,
	}
}

// Generate issues a signed access token for the department.
func (m *TokenManager) Generate(departmentID uuid.UUID, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(m.accessDuration)
	claims := jwt.RegisteredClaims{
		Subject:   departmentID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validate parses and verifies an access token, returning the department id.
func (m *TokenManager) Validate(tokenString string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return uuid.Nil, ErrInvalidToken
	}

	departmentID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return departmentID, nil
}
