package httpapi

import (
	"net/http"

	"authgate.org/internal/audit"
	"authgate.org/internal/auth"
	"authgate.org/internal/obs"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := a.auth.Login(r.Context(), req.Email, req.Password, clientIP(r))
	if err != nil {
		obs.LoginsTotal.WithLabelValues("failure").Inc()
		writeAuthError(w, err)
		return
	}

	obs.LoginsTotal.WithLabelValues("success").Inc()
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"email": req.Email,
		"ip":    clientIP(r),
	})
	writeJSON(w, http.StatusOK, pair)
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pair, err := a.auth.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		obs.TokenRefreshesTotal.WithLabelValues("failure").Inc()
		writeAuthError(w, err)
		return
	}

	obs.TokenRefreshesTotal.WithLabelValues("success").Inc()
	writeJSON(w, http.StatusOK, pair)
}

// handleLogout derives the target user and session from the authenticated
// caller, never from the request body.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := a.auth.Logout(r.Context(), claims.UserID, claims.SessionID); err != nil {
		writeAuthError(w, err)
		return
	}

	_ = audit.LogEvent(r.Context(), "auth.logout", map[string]any{
		"session_id": claims.SessionID,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
