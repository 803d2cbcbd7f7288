package auth

import "errors"

// Error taxonomy. ErrInvalidInput is client-fixable and reported with field
// detail. Every other authentication failure collapses to one generic
// unauthorized signal at the transport boundary so callers cannot probe
// account existence or token state.
var (
	ErrInvalidInput       = errors.New("auth: invalid input")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrInvalidToken       = errors.New("auth: invalid or expired token")
	ErrSessionExpired     = errors.New("auth: session expired")
	ErrTokenRevoked       = errors.New("auth: refresh token revoked")
	ErrUserNotFound       = errors.New("auth: user not found")
	ErrUnauthorized       = errors.New("auth: unauthorized")
)

// IsAuthFailure reports whether err belongs to the family of authentication
// failures that must be indistinguishable to the caller.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrSessionExpired) ||
		errors.Is(err, ErrTokenRevoked) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrUnauthorized)
}
