package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/example/vod-platform/internal/platform/analytics"
	"github.com/example/vod-platform/internal/platform/api"
	"github.com/example/vod-platform/internal/platform/auth"
	"github.com/example/vod-platform/internal/platform/httpserver"
	"github.com/example/vod-platform/services/playback/internal/progress"
	"github.com/example/vod-platform/services/playback/internal/resume"
)

// Player lifecycle event types accepted by the events endpoint.
const (
	eventReady      = "ready"
	eventTimeUpdate = "timeupdate"
	eventEnded      = "ended"
	eventHidden     = "hidden"
)

type playerEventRequest struct {
	SessionID       string  `json:"session_id"`
	ContentID       string  `json:"content_id"`
	EpisodeID       string  `json:"episode_id,omitempty"`
	Type            string  `json:"type"`
	PositionSeconds float64 `json:"position_seconds,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	ClientTsMs      int64   `json:"client_ts_ms,omitempty"`
}

type playerEventResponse struct {
	Restored        bool    `json:"restored"`
	PositionSeconds float64 `json:"position_seconds,omitempty"`
}

// PlayerEvents drives the per-session resume controller from client player
// lifecycle events. The "ready" response tells the client where to seek.
func PlayerEvents(manager *resume.SessionManager, ap *analytics.Publisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok || strings.TrimSpace(uid) == "" {
			api.Unauthorized(w, "AUTH_MISSING", "Missing auth", rid)
			return
		}

		var req playerEventRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "Invalid JSON", rid, nil)
			return
		}
		if strings.TrimSpace(req.SessionID) == "" || strings.TrimSpace(req.ContentID) == "" {
			api.BadRequest(w, "MISSING_FIELDS", "session_id and content_id are required", rid, nil)
			return
		}
		if req.ClientTsMs == 0 {
			req.ClientTsMs = time.Now().UnixMilli()
		}

		key := progress.Key{
			UserID:    uid,
			ContentID: strings.TrimSpace(req.ContentID),
			EpisodeID: strings.TrimSpace(req.EpisodeID),
		}
		sess := manager.GetOrCreate(strings.TrimSpace(req.SessionID), key)

		var resp playerEventResponse
		var unknown bool
		sess.Do(func(p *resume.SessionPlayer, c *resume.Controller) {
			p.SetDuration(req.DurationSeconds)
			ctx := r.Context()
			switch req.Type {
			case eventReady:
				restored, pos := c.OnReady(ctx, req.ClientTsMs)
				resp.Restored = restored
				resp.PositionSeconds = pos
			case eventTimeUpdate:
				c.OnTimeUpdate(ctx, req.PositionSeconds, req.ClientTsMs)
			case eventEnded:
				c.OnEnded(ctx)
			case eventHidden:
				c.OnHidden(ctx, req.PositionSeconds, req.ClientTsMs)
			default:
				unknown = true
			}
		})
		if unknown {
			api.BadRequest(w, "UNKNOWN_EVENT", "Unknown player event type", rid, map[string]any{"type": req.Type})
			return
		}

		switch req.Type {
		case eventReady:
			if resp.Restored {
				ap.Publish(analytics.SubjectPlaybackResumed, "playback_resumed", uid, map[string]any{
					"content_id":       key.ContentID,
					"episode_id":       key.EpisodeID,
					"position_seconds": resp.PositionSeconds,
				})
			}
		case eventEnded:
			ap.Publish(analytics.SubjectPlaybackCompleted, "playback_completed", uid, map[string]any{
				"content_id": key.ContentID,
				"episode_id": key.EpisodeID,
			})
		}

		api.WriteJSON(w, http.StatusOK, resp)
	}
}
