package handlers

import (
	"net/http"
	"strings"

	"github.com/example/vod-platform/internal/platform/api"
	"github.com/example/vod-platform/internal/platform/auth"
	"github.com/example/vod-platform/internal/platform/httpserver"
	"github.com/example/vod-platform/services/ads/internal/gating"
)

// SessionReset clears the caller's session-scoped frequency counters. Clients
// call it on app cold start; daily rewarded counters are unaffected.
func SessionReset(registry *gating.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok || strings.TrimSpace(uid) == "" {
			api.Unauthorized(w, "AUTH_MISSING", "Missing auth", rid)
			return
		}
		registry.Get(uid).ResetSession()
		api.NoContent(w)
	}
}

// SessionState returns the caller's current frequency counters, mostly for
// client debugging screens.
func SessionState(registry *gating.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok || strings.TrimSpace(uid) == "" {
			api.Unauthorized(w, "AUTH_MISSING", "Missing auth", rid)
			return
		}
		api.WriteJSON(w, http.StatusOK, registry.Get(uid).Snapshot())
	}
}
