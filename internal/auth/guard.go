package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"

	"authgate.org/internal/directory"
)

// RefreshGuard maintains the single live refresh-token hash per user.
// Issuing a new pair (login or refresh) atomically supersedes the previous
// hash even across other sessions of the same user, so a replayed refresh
// token is rejected by supersession rather than by a revocation list.
type RefreshGuard struct {
	users directory.Store
}

func NewRefreshGuard(users directory.Store) *RefreshGuard {
	return &RefreshGuard{users: users}
}

// Rotate unconditionally overwrites the user's stored refresh-token hash
// with the hash of the newly issued token.
func (g *RefreshGuard) Rotate(ctx context.Context, userID, refreshToken string) error {
	return g.users.SetRefreshTokenHash(ctx, userID, HashRefreshToken(refreshToken))
}

// Clear removes the stored hash; every outstanding refresh token of the user
// becomes unusable.
func (g *RefreshGuard) Clear(ctx context.Context, userID string) error {
	return g.users.SetRefreshTokenHash(ctx, userID, "")
}

// Verify compares a presented refresh token against the stored hash.
// An absent hash means the token was revoked or never issued; a mismatch
// means it was superseded by a later rotation. Both fail ErrTokenRevoked.
func (g *RefreshGuard) Verify(storedHash, presented string) error {
	if storedHash == "" {
		return ErrTokenRevoked
	}
	actual := HashRefreshToken(presented)
	if len(storedHash) != len(actual) {
		return ErrTokenRevoked
	}
	if subtle.ConstantTimeCompare([]byte(storedHash), []byte(actual)) != 1 {
		return ErrTokenRevoked
	}
	return nil
}

// HashRefreshToken produces the stored form of a refresh token. SHA-256 is
// used because the input is a high-entropy signed token, not a password, and
// bcrypt cannot digest inputs over 72 bytes.
func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
