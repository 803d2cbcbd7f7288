// Package httpapi exposes the authentication operations over HTTP.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"authgate.org/internal/auth"
	"authgate.org/internal/obs"
)

// ReadyProbe reports readiness (storage reachability).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// RateLimitConfig bounds login attempts per client IP.
type RateLimitConfig struct {
	Burst     int
	PerSecond int
}

// API is the HTTP layer.
type API struct {
	auth       *auth.Service
	readyProbe ReadyProbe
	version    string
	rateLimit  RateLimitConfig
}

func New(authSvc *auth.Service, rp ReadyProbe, version string, rl RateLimitConfig) *API {
	if rl.Burst <= 0 {
		rl.Burst = 10
	}
	if rl.PerSecond <= 0 {
		rl.PerSecond = 5
	}
	return &API{
		auth:       authSvc,
		readyProbe: rp,
		version:    version,
		rateLimit:  rl,
	}
}

// Handler assembles the router with the full middleware stack.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(func(next http.Handler) http.Handler { return obs.Instrument(next) })
	r.Use(Logging)
	r.Use(SecurityHeaders)
	r.Use(CORS)
	r.Use(func(next http.Handler) http.Handler { return MaxBodyBytes(next, 1<<20) })

	r.Get("/healthz", a.handleHealthz)
	r.Get("/readyz", a.handleReadyz)
	r.Handle("/metrics", obs.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(func(next http.Handler) http.Handler {
				return RateLimit(next, a.rateLimit.Burst, a.rateLimit.PerSecond)
			})
			r.Post("/auth/login", a.handleLogin)
		})
		r.Post("/auth/refresh", a.handleRefresh)

		r.Group(func(r chi.Router) {
			r.Use(a.withAuth)
			r.Post("/auth/logout", a.handleLogout)
			r.With(a.require(auth.RequireRole(auth.RoleAdmin))).
				Get("/sessions/users/{userID}", a.handleActiveSessions)
		})
	})

	return r
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "authgate",
		"version": a.version,
	})
}

func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if err := a.readyProbe.Check(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}
