package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

type sessionResponse struct {
	SessionID  string     `json:"sessionId"`
	UserID     string     `json:"userId"`
	ClientAddr string     `json:"clientAddr,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastSeenAt *time.Time `json:"lastSeenAt,omitempty"`
}

// handleActiveSessions lists a user's currently-active sessions. Admin only.
func (a *API) handleActiveSessions(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(chi.URLParam(r, "userID"))
	if userID == "" {
		writeError(w, http.StatusBadRequest, "userID is required")
		return
	}

	sessions, err := a.auth.Sessions().ActiveByUser(r.Context(), userID)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	out := make([]sessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp := sessionResponse{
			SessionID:  s.SessionID,
			UserID:     s.UserID,
			ClientAddr: s.ClientAddr,
			CreatedAt:  s.CreatedAt,
		}
		if !s.LastSeenAt.IsZero() {
			t := s.LastSeenAt
			resp.LastSeenAt = &t
		}
		out = append(out, resp)
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
}
