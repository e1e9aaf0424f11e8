package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/vod-platform/internal/platform/api"
	"github.com/example/vod-platform/internal/platform/auth"
	"github.com/example/vod-platform/internal/platform/httpserver"
	"github.com/example/vod-platform/services/ads/internal/inventory"
)

type trackingRequest struct {
	EventID string `json:"event_id"`
}

type trackingResponse struct {
	Duplicate bool `json:"duplicate"`
}

// Impression records a client-reported impression for out-of-stream units
// (banners, house promos). In-stream impressions come from presentation
// lifecycle events instead.
func Impression(cache *inventory.Cache, tracker *Tracker) http.HandlerFunc {
	return trackingHandler(cache, func(r *http.Request, uid string, unit inventory.Unit, eventID string) bool {
		return tracker.RecordImpression(r.Context(), uid, unit, eventID, time.Now().UnixMilli())
	})
}

// Click records a client-reported click-through.
func Click(cache *inventory.Cache, tracker *Tracker) http.HandlerFunc {
	return trackingHandler(cache, func(r *http.Request, uid string, unit inventory.Unit, eventID string) bool {
		return tracker.RecordClick(r.Context(), uid, unit, eventID)
	})
}

func trackingHandler(cache *inventory.Cache, record func(r *http.Request, uid string, unit inventory.Unit, eventID string) bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok || strings.TrimSpace(uid) == "" {
			api.Unauthorized(w, "AUTH_MISSING", "Missing auth", rid)
			return
		}

		adID := strings.TrimSpace(chi.URLParam(r, "ad_id"))
		if adID == "" {
			api.BadRequest(w, "MISSING_AD_ID", "ad_id is required", rid, nil)
			return
		}
		unit, found := cache.Lookup(adID)
		if !found {
			api.NotFound(w, "UNKNOWN_AD", "Unknown ad unit", rid)
			return
		}

		var req trackingRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&req); err != nil {
			api.BadRequest(w, "INVALID_JSON", "Invalid JSON", rid, nil)
			return
		}
		if strings.TrimSpace(req.EventID) == "" {
			api.BadRequest(w, "MISSING_EVENT_ID", "event_id is required", rid, nil)
			return
		}

		dup := record(r, uid, unit, strings.TrimSpace(req.EventID))
		api.WriteJSON(w, http.StatusOK, trackingResponse{Duplicate: dup})
	}
}
