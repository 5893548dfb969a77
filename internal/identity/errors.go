package identity

import "errors"

// Identity service errors.
var (
	ErrAccountExists      = errors.New("account with this email or name already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)
