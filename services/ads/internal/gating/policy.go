package gating

import (
	"time"

	"github.com/example/vod-platform/services/ads/internal/inventory"
)

// Decision carries the outcome of a gating check plus the reason when denied.
type Decision struct {
	Allowed bool
	Reason  string
}

// Denial reasons returned to clients and logged with decisions.
const (
	ReasonAdsDisabled      = "ads_disabled"
	ReasonPremium          = "premium"
	ReasonCooldown         = "cooldown"
	ReasonSessionCap       = "session_cap"
	ReasonDailyCap         = "daily_cap"
	ReasonNoInventory      = "no_inventory"
	ReasonUnknownKind      = "unknown_kind"
	ReasonPlatformMismatch = "platform_mismatch"
)

func allow() Decision             { return Decision{Allowed: true} }
func deny(reason string) Decision { return Decision{Allowed: false, Reason: reason} }

// Policy evaluates frequency rules for one user against the live settings.
// Settings are read through a func so the policy always sees the cache's
// current snapshot.
type Policy struct {
	settings func() inventory.Settings
	state    *SessionState
}

func NewPolicy(settings func() inventory.Settings, state *SessionState) *Policy {
	return &Policy{settings: settings, state: state}
}

// ShouldShowAds is the coarse pre-check playback surfaces consult before
// requesting any ad: ads must be enabled, premium users are exempt when the
// policy says so, and a session that has consumed its interstitial budget
// shows nothing more until the next reset.
func (p *Policy) ShouldShowAds(hasPremium bool) Decision {
	s := p.settings()
	if !s.Global.AdsEnabled {
		return deny(ReasonAdsDisabled)
	}
	if hasPremium && s.Global.SkipForPremium {
		return deny(ReasonPremium)
	}
	if shown, _ := p.state.interstitialCounters(); shown >= s.Interstitial.MaxPerSession {
		return deny(ReasonSessionCap)
	}
	return allow()
}

// CanShowInterstitial enforces the cooldown and the per-session cap.
func (p *Policy) CanShowInterstitial(nowMs int64) Decision {
	cfg := p.settings().Interstitial
	shown, lastMs := p.state.interstitialCounters()
	if shown >= cfg.MaxPerSession {
		return deny(ReasonSessionCap)
	}
	if lastMs > 0 && nowMs-lastMs < int64(cfg.CooldownSeconds)*1000 {
		return deny(ReasonCooldown)
	}
	return allow()
}

// CanShowRewarded enforces the daily grant cap. The day string must come from
// Today so rollover is consistent across calls.
func (p *Policy) CanShowRewarded(today string) Decision {
	cfg := p.settings().Rewarded
	if p.state.rewardedCount(today) >= cfg.MaxPerDay {
		return deny(ReasonDailyCap)
	}
	return allow()
}

// CanShowBanner has no frequency rules beyond the global pre-check.
func (p *Policy) CanShowBanner() Decision {
	return allow()
}

// CanSkipImmediately reports whether an in-stream ad is skippable from the
// first frame. Deliberately independent of skip_for_premium: that flag
// already exempts premium users from ads entirely in ShouldShowAds, so
// gating on it here would leave this branch unreachable. A premium user who
// still sees an ad (skip_for_premium off, sponsorship placements) never
// sits through a countdown.
func (p *Policy) CanSkipImmediately(hasPremium bool) bool {
	return hasPremium
}

// RewardMultiplier returns the configured payout multiplier.
func (p *Policy) RewardMultiplier() float64 {
	return p.settings().Rewarded.RewardMultiplier
}

// Check dispatches to the kind-specific rule after the global pre-check.
func (p *Policy) Check(kind inventory.Kind, hasPremium bool, nowMs int64) Decision {
	if d := p.ShouldShowAds(hasPremium); !d.Allowed {
		return d
	}
	switch kind {
	case inventory.KindInterstitial:
		return p.CanShowInterstitial(nowMs)
	case inventory.KindRewarded:
		return p.CanShowRewarded(Today(time.UnixMilli(nowMs)))
	case inventory.KindBanner, inventory.KindPreRoll, inventory.KindMidRoll, inventory.KindPostRoll:
		return allow()
	default:
		return deny(ReasonUnknownKind)
	}
}

// Today formats the rewarded rollover day key in UTC.
func Today(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
