// Package handlers exposes the ads service HTTP surface: the decision
// endpoint, tracking endpoints, presentation lifecycle events and the
// admin refresh hook.
package handlers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/example/vod-platform/internal/platform/analytics"
	"github.com/example/vod-platform/services/ads/internal/dedupe"
	"github.com/example/vod-platform/services/ads/internal/gating"
	"github.com/example/vod-platform/services/ads/internal/gateway"
	"github.com/example/vod-platform/services/ads/internal/inventory"
)

// Tracker is the single funnel for ad tracking events. Every impression and
// click, whether reported directly by a banner client or fired by an
// in-stream presentation, passes through the same dedupe, counter and
// analytics pipeline.
type Tracker struct {
	dedupe   dedupe.Store
	gw       gateway.Gateway
	registry *gating.Registry
	ap       *analytics.Publisher
	log      *zap.Logger
}

func NewTracker(d dedupe.Store, gw gateway.Gateway, registry *gating.Registry, ap *analytics.Publisher, log *zap.Logger) *Tracker {
	return &Tracker{dedupe: d, gw: gw, registry: registry, ap: ap, log: log}
}

// RecordImpression records one impression, once per eventID. Returns true
// when the event was a duplicate and nothing was recorded. Counter and
// analytics failures are logged and swallowed; frequency state has already
// advanced, which errs on the side of showing fewer ads.
func (t *Tracker) RecordImpression(ctx context.Context, userID string, unit inventory.Unit, eventID string, nowMs int64) bool {
	dup, err := t.dedupe.Check(ctx, eventID)
	if err != nil {
		t.log.Warn("impression dedupe check failed, recording anyway",
			zap.String("event_id", eventID), zap.Error(err))
	}
	if dup {
		return true
	}

	state := t.registry.Get(userID)
	switch unit.Kind {
	case inventory.KindInterstitial:
		state.RecordInterstitialShown(nowMs)
	case inventory.KindRewarded:
		state.RecordRewardedShown(gating.Today(time.UnixMilli(nowMs)))
	}

	if err := t.gw.IncrementAdCounter(ctx, unit.ID, gateway.CounterImpressions); err != nil {
		t.log.Warn("impression counter increment failed",
			zap.String("ad_id", unit.ID), zap.Error(err))
	}
	t.ap.Publish(analytics.SubjectAdImpression, "ad_impression", userID, map[string]any{
		"ad_id":     unit.ID,
		"kind":      string(unit.Kind),
		"placement": unit.Placement,
		"test_mode": unit.TestMode,
	})
	return false
}

// RecordClick records one click-through, once per eventID.
func (t *Tracker) RecordClick(ctx context.Context, userID string, unit inventory.Unit, eventID string) bool {
	dup, err := t.dedupe.Check(ctx, eventID)
	if err != nil {
		t.log.Warn("click dedupe check failed, recording anyway",
			zap.String("event_id", eventID), zap.Error(err))
	}
	if dup {
		return true
	}

	if err := t.gw.IncrementAdCounter(ctx, unit.ID, gateway.CounterClicks); err != nil {
		t.log.Warn("click counter increment failed",
			zap.String("ad_id", unit.ID), zap.Error(err))
	}
	t.ap.Publish(analytics.SubjectAdClick, "ad_click", userID, map[string]any{
		"ad_id":     unit.ID,
		"kind":      string(unit.Kind),
		"placement": unit.Placement,
	})
	return false
}

// RecordSkip reports a skipped in-stream ad to analytics.
func (t *Tracker) RecordSkip(userID string, unit inventory.Unit) {
	t.ap.Publish(analytics.SubjectAdSkipped, "ad_skipped", userID, map[string]any{
		"ad_id": unit.ID,
		"kind":  string(unit.Kind),
	})
}
