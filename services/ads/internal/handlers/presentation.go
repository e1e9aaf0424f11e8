package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/vod-platform/internal/platform/api"
	"github.com/example/vod-platform/internal/platform/auth"
	"github.com/example/vod-platform/internal/platform/httpserver"
	"github.com/example/vod-platform/services/ads/internal/orchestrator"
)

// Presentation lifecycle event types accepted by the events endpoint.
const (
	adEventStarted = "started"
	adEventEnded   = "ended"
	adEventError   = "error"
	adEventSkip    = "skip"
	adEventClick   = "click"
)

type adEventRequest struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
}

type adEventResponse struct {
	State         string `json:"state"`
	SkipRemaining int    `json:"skip_remaining_seconds"`
}

// PresentationEvents routes a client's ad lifecycle reports to its
// orchestrator. The response tells the client the presentation state, so a
// remounted view can pick up where it left off.
func PresentationEvents(manager *orchestrator.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok || strings.TrimSpace(uid) == "" {
			api.Unauthorized(w, "AUTH_MISSING", "Missing auth", rid)
			return
		}

		pid := strings.TrimSpace(chi.URLParam(r, "presentation_id"))
		o, found := manager.Get(uid, pid)
		if !found {
			api.NotFound(w, "UNKNOWN_PRESENTATION", "Unknown or expired presentation", rid)
			return
		}

		var req adEventRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "Invalid JSON", rid, nil)
			return
		}

		switch req.Type {
		case adEventStarted:
			o.OnPlaybackStarted()
		case adEventEnded:
			o.OnEnded()
			manager.Remove(pid)
		case adEventError:
			o.OnError(errors.New(strings.TrimSpace(req.Message)))
			manager.Remove(pid)
		case adEventSkip:
			if err := o.Skip(); err != nil {
				if errors.Is(err, orchestrator.ErrNotSkippable) {
					api.Conflict(w, "NOT_SKIPPABLE", "Skip countdown still running", rid,
						map[string]any{"skip_remaining_seconds": o.SkipRemaining()})
					return
				}
				api.Conflict(w, "PRESENTATION_FINISHED", "Presentation already finished", rid, nil)
				return
			}
			manager.Remove(pid)
		case adEventClick:
			if err := o.Click(); err != nil {
				api.Conflict(w, "PRESENTATION_FINISHED", "Presentation already finished", rid, nil)
				return
			}
		default:
			api.BadRequest(w, "UNKNOWN_EVENT", "Unknown presentation event type", rid, map[string]any{"type": req.Type})
			return
		}

		api.WriteJSON(w, http.StatusOK, adEventResponse{
			State:         string(o.State()),
			SkipRemaining: o.SkipRemaining(),
		})
	}
}
