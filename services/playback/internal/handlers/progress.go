package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/vod-platform/internal/platform/api"
	"github.com/example/vod-platform/internal/platform/auth"
	"github.com/example/vod-platform/internal/platform/httpserver"
	"github.com/example/vod-platform/services/playback/internal/progress"
)

const maxRequestBodyBytes = 1 << 20 // 1 MiB

type upsertProgressRequest struct {
	ContentID       string  `json:"content_id"`
	EpisodeID       string  `json:"episode_id,omitempty"`
	PositionSeconds float64 `json:"position_seconds"`
	DurationSeconds float64 `json:"duration_seconds"`
	ClientTsMs      int64   `json:"client_ts_ms,omitempty"`
}

type progressResponse struct {
	ContentID       string  `json:"content_id"`
	EpisodeID       string  `json:"episode_id,omitempty"`
	PositionSeconds float64 `json:"position_seconds"`
	DurationSeconds float64 `json:"duration_seconds"`
	SavedAtMs       int64   `json:"saved_at_ms"`
}

// UpsertProgress writes a playback position. When JetStream is configured the
// write is published and acknowledged with 202; otherwise it goes through the
// store synchronously.
func UpsertProgress(store *progress.Store, publisher *EventPublisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok || strings.TrimSpace(uid) == "" {
			api.Unauthorized(w, "AUTH_MISSING", "Missing auth", rid)
			return
		}

		var req upsertProgressRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "Invalid JSON", rid, nil)
			return
		}
		if strings.TrimSpace(req.ContentID) == "" {
			api.BadRequest(w, "MISSING_CONTENT_ID", "content_id is required", rid, nil)
			return
		}
		if req.ClientTsMs == 0 {
			req.ClientTsMs = time.Now().UnixMilli()
		}

		if publisher != nil && publisher.Enabled() {
			eventID, err := publisher.PublishJSON(SubjectProgress, map[string]any{
				"user_id":          uid,
				"content_id":       strings.TrimSpace(req.ContentID),
				"episode_id":       strings.TrimSpace(req.EpisodeID),
				"position_seconds": req.PositionSeconds,
				"duration_seconds": req.DurationSeconds,
				"client_ts_ms":     req.ClientTsMs,
			})
			if err != nil {
				api.WriteError(w, http.StatusServiceUnavailable, "EVENT_PUBLISH_FAILED", "failed to publish event", rid, nil)
				return
			}
			w.Header().Set("X-Event-ID", eventID)
			w.WriteHeader(http.StatusAccepted)
			return
		}

		key := progress.Key{UserID: uid, ContentID: strings.TrimSpace(req.ContentID), EpisodeID: strings.TrimSpace(req.EpisodeID)}
		store.Save(r.Context(), key, req.PositionSeconds, req.DurationSeconds, req.ClientTsMs)
		w.WriteHeader(http.StatusNoContent)
	}
}

// GetProgress loads the stored position for one playable unit.
func GetProgress(store *progress.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok || strings.TrimSpace(uid) == "" {
			api.Unauthorized(w, "AUTH_MISSING", "Missing auth", rid)
			return
		}

		key := progress.Key{
			UserID:    uid,
			ContentID: strings.TrimSpace(chi.URLParam(r, "content_id")),
			EpisodeID: strings.TrimSpace(r.URL.Query().Get("episode_id")),
		}
		if key.ContentID == "" {
			api.BadRequest(w, "MISSING_CONTENT_ID", "content_id is required", rid, nil)
			return
		}

		rec, found := store.Load(r.Context(), key, time.Now().UnixMilli())
		if !found {
			api.NotFound(w, "NO_PROGRESS", "No stored progress", rid)
			return
		}
		api.WriteJSON(w, http.StatusOK, progressResponse{
			ContentID:       key.ContentID,
			EpisodeID:       key.EpisodeID,
			PositionSeconds: rec.PlayedSeconds,
			DurationSeconds: rec.TotalDurationSeconds,
			SavedAtMs:       rec.SavedAtMs,
		})
	}
}

// DeleteProgress clears the stored position for one playable unit.
func DeleteProgress(store *progress.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok || strings.TrimSpace(uid) == "" {
			api.Unauthorized(w, "AUTH_MISSING", "Missing auth", rid)
			return
		}

		key := progress.Key{
			UserID:    uid,
			ContentID: strings.TrimSpace(chi.URLParam(r, "content_id")),
			EpisodeID: strings.TrimSpace(r.URL.Query().Get("episode_id")),
		}
		if key.ContentID == "" {
			api.BadRequest(w, "MISSING_CONTENT_ID", "content_id is required", rid, nil)
			return
		}

		store.Clear(r.Context(), key)
		w.WriteHeader(http.StatusNoContent)
	}
}

type continueWatchingResponse struct {
	Items []progressResponse `json:"items"`
	Limit int                `json:"limit"`
}

// ContinueWatching lists the user's most recent in-flight positions.
func ContinueWatching(store *progress.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok || strings.TrimSpace(uid) == "" {
			api.Unauthorized(w, "AUTH_MISSING", "Missing auth", rid)
			return
		}

		limit := 25
		if v := strings.TrimSpace(r.URL.Query().Get("limit")); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				if n < 1 {
					n = 1
				}
				if n > 100 {
					n = 100
				}
				limit = n
			}
		}

		entries := store.ContinueWatching(r.Context(), uid, limit)
		out := continueWatchingResponse{Items: make([]progressResponse, 0, len(entries)), Limit: limit}
		for _, e := range entries {
			out.Items = append(out.Items, progressResponse{
				ContentID:       e.Key.ContentID,
				EpisodeID:       e.Key.EpisodeID,
				PositionSeconds: e.Record.PlayedSeconds,
				DurationSeconds: e.Record.TotalDurationSeconds,
				SavedAtMs:       e.Record.SavedAtMs,
			})
		}
		api.WriteJSON(w, http.StatusOK, out)
	}
}
