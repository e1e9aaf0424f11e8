package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/vod-platform/internal/platform/api"
	"github.com/example/vod-platform/internal/platform/auth"
	"github.com/example/vod-platform/internal/platform/httpserver"
	"github.com/example/vod-platform/services/ads/internal/gating"
	"github.com/example/vod-platform/services/ads/internal/gateway"
	"github.com/example/vod-platform/services/ads/internal/inventory"
	"github.com/example/vod-platform/services/ads/internal/orchestrator"
)

const maxRequestBodyBytes = 1 << 20 // 1 MiB

// reasonHeader tells clients why no ad was served on a 204.
const reasonHeader = "X-Ads-Reason"

type decisionResponse struct {
	PresentationID     string                 `json:"presentation_id,omitempty"`
	Ad                 orchestrator.Rendition `json:"ad"`
	CanSkipImmediately bool                   `json:"can_skip_immediately"`
}

// Decision picks an ad for a placement, or answers 204 when the user should
// see none. Frequency counters do not advance here; they advance on the
// impression, so an undisplayed decision costs the user nothing.
func Decision(cache *inventory.Cache, registry *gating.Registry, gw gateway.Gateway,
	presenter orchestrator.Presenter, manager *orchestrator.Manager, tracker *Tracker,
	log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rid := httpserver.RequestIDFromContext(r.Context())
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok || strings.TrimSpace(uid) == "" {
			api.Unauthorized(w, "AUTH_MISSING", "Missing auth", rid)
			return
		}

		placement := strings.TrimSpace(r.URL.Query().Get("placement"))
		if placement == "" {
			api.BadRequest(w, "MISSING_PLACEMENT", "placement is required", rid, nil)
			return
		}
		kind := inventory.Kind(strings.TrimSpace(r.URL.Query().Get("kind")))
		if kind != "" && !kind.Valid() {
			api.BadRequest(w, "INVALID_KIND", "unknown ad kind", rid, map[string]any{"kind": string(kind)})
			return
		}

		nowMs := time.Now().UnixMilli()
		premium := resolvePremium(r.Context(), gw, uid, auth.PremiumFromContext(r.Context()), log)
		policy := gating.NewPolicy(cache.Settings, registry.Get(uid))

		unit, found := cache.SelectForPlacement(placement, kind)
		if !found {
			noAd(w, gating.ReasonNoInventory)
			return
		}
		if d := policy.Check(unit.Kind, premium, nowMs); !d.Allowed {
			noAd(w, d.Reason)
			return
		}

		skipAfter := unit.SkipAfterSeconds
		if policy.CanSkipImmediately(premium) {
			skipAfter = 0
		}
		rendition, err := presenter.Present(unit, skipAfter, uid)
		if err != nil {
			log.Warn("ad rendition failed, serving none",
				zap.String("ad_id", unit.ID), zap.Error(err))
			noAd(w, "rendition_failed")
			return
		}

		resp := decisionResponse{Ad: rendition, CanSkipImmediately: skipAfter == 0}
		if unit.Kind.IsInStream() {
			resp.PresentationID = newPresentation(uid, unit, skipAfter == 0, manager, tracker, log)
		}
		api.WriteJSON(w, http.StatusOK, resp)
	}
}

// newPresentation registers an orchestrator whose callbacks feed the shared
// tracking funnel. The impression event ID is derived from the presentation,
// so a replayed client lifecycle can never double-count.
func newPresentation(uid string, unit inventory.Unit, skipImmediately bool,
	manager *orchestrator.Manager, tracker *Tracker, log *zap.Logger) string {
	var id string
	o := orchestrator.New(unit, skipImmediately, orchestrator.Callbacks{
		OnImpression: func(u inventory.Unit) {
			tracker.RecordImpression(context.Background(), uid, u, id+":impression", time.Now().UnixMilli())
		},
		OnClick: func(u inventory.Unit) {
			tracker.RecordClick(context.Background(), uid, u, id+":click")
		},
		OnSkip: func(u inventory.Unit) {
			tracker.RecordSkip(uid, u)
		},
		OnComplete: func(u inventory.Unit, errored bool) {
			log.Info("ad presentation finished",
				zap.String("ad_id", u.ID), zap.Bool("errored", errored))
		},
	}, log)
	id = manager.Create(uid, o)
	return id
}

func noAd(w http.ResponseWriter, reason string) {
	w.Header().Set(reasonHeader, reason)
	w.WriteHeader(http.StatusNoContent)
}

// resolvePremium asks the subscription store, falling back to the token's
// premium claim when the store is unreachable.
func resolvePremium(ctx context.Context, gw gateway.Gateway, uid string, hint bool, log *zap.Logger) bool {
	active, err := gw.ActiveSubscription(ctx, uid)
	if err != nil {
		log.Warn("subscription lookup failed, trusting token claim",
			zap.String("user_id", uid), zap.Error(err))
		return hint
	}
	return active
}
