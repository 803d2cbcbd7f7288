package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	defaultAccessTTL  = 15 * time.Minute
	defaultRefreshTTL = 7 * 24 * time.Hour
)

// TokenPayload is the identity and authorization set embedded into both
// access and refresh tokens. The shape is identical for the two token types;
// only the signing secret and TTL namespace differ, which prevents a token
// issued as one type from being accepted as the other.
type TokenPayload struct {
	UserID      string
	Username    string
	Email       string
	Permissions []string
	Roles       []Role
	SessionID   string
}

type tokenClaims struct {
	UserID      string   `json:"id"`
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	Permissions []string `json:"permissions"`
	Roles       []Role   `json:"roles"`
	SessionID   string   `json:"sessionId"`
	jwt.RegisteredClaims
}

type tokenNamespace struct {
	secret []byte
	ttl    time.Duration
}

// TokenIssuerConfig carries the two secret/TTL namespaces. Secrets are passed
// in explicitly so tests can inject distinct values per scenario.
type TokenIssuerConfig struct {
	Issuer        string
	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// TokenIssuer signs and verifies HS256 tokens under two independent
// secret/TTL namespaces. Signing and verification are pure in-memory
// computation; the issuer never touches storage.
type TokenIssuer struct {
	issuer  string
	access  tokenNamespace
	refresh tokenNamespace
	now     func() time.Time
}

// TokenIssuerOption configures TokenIssuer behavior.
type TokenIssuerOption func(*TokenIssuer)

// WithTokenClock overrides the time source (useful for tests).
func WithTokenClock(fn func() time.Time) TokenIssuerOption {
	return func(t *TokenIssuer) {
		if fn != nil {
			t.now = fn
		}
	}
}

// NewTokenIssuer constructs a TokenIssuer from explicit configuration.
func NewTokenIssuer(cfg TokenIssuerConfig, opts ...TokenIssuerOption) (*TokenIssuer, error) {
	accessSecret := strings.TrimSpace(cfg.AccessSecret)
	refreshSecret := strings.TrimSpace(cfg.RefreshSecret)
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("auth: access and refresh secrets are required")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("auth: access and refresh secrets must differ")
	}
	t := &TokenIssuer{
		issuer:  strings.TrimSpace(cfg.Issuer),
		access:  tokenNamespace{secret: []byte(accessSecret), ttl: defaultAccessTTL},
		refresh: tokenNamespace{secret: []byte(refreshSecret), ttl: defaultRefreshTTL},
		now:     time.Now,
	}
	if cfg.AccessTTL > 0 {
		t.access.ttl = cfg.AccessTTL
	}
	if cfg.RefreshTTL > 0 {
		t.refresh.ttl = cfg.RefreshTTL
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// SignAccess signs an access token for the payload.
func (t *TokenIssuer) SignAccess(p TokenPayload) (string, error) {
	return t.sign(p, t.access)
}

// SignRefresh signs a refresh token for the payload.
func (t *TokenIssuer) SignRefresh(p TokenPayload) (string, error) {
	return t.sign(p, t.refresh)
}

// VerifyAccess checks signature and expiry under the access namespace.
// Any structural, signature, or expiry failure collapses to ErrInvalidToken.
func (t *TokenIssuer) VerifyAccess(token string) (*TokenPayload, error) {
	return t.verify(token, t.access)
}

// VerifyRefresh checks signature and expiry under the refresh namespace.
func (t *TokenIssuer) VerifyRefresh(token string) (*TokenPayload, error) {
	return t.verify(token, t.refresh)
}

func (t *TokenIssuer) sign(p TokenPayload, ns tokenNamespace) (string, error) {
	now := t.now().UTC()
	claims := tokenClaims{
		UserID:      p.UserID,
		Username:    p.Username,
		Email:       p.Email,
		Permissions: p.Permissions,
		Roles:       p.Roles,
		SessionID:   p.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   p.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ns.ttl)),
			ID:        uuid.NewString(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ns.secret)
}

func (t *TokenIssuer) verify(token string, ns tokenNamespace) (*TokenPayload, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return t.now() }),
		jwt.WithExpirationRequired(),
	}
	if t.issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{}, func(tok *jwt.Token) (any, error) {
		return ns.secret, nil
	}, opts...)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.UserID) == "" || strings.TrimSpace(claims.SessionID) == "" {
		return nil, ErrInvalidToken
	}
	return &TokenPayload{
		UserID:      claims.UserID,
		Username:    claims.Username,
		Email:       claims.Email,
		Permissions: claims.Permissions,
		Roles:       claims.Roles,
		SessionID:   claims.SessionID,
	}, nil
}
