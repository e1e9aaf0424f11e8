// Package inventory holds the ad-unit catalog for one platform: typed
// definitions, validated policy settings and an atomically refreshed
// in-memory snapshot loaded from the content data gateway.
package inventory

import "strings"

// Kind is the ad unit presentation type.
type Kind string

const (
	KindBanner       Kind = "banner"
	KindInterstitial Kind = "interstitial"
	KindRewarded     Kind = "rewarded"
	KindPreRoll      Kind = "pre_roll"
	KindMidRoll      Kind = "mid_roll"
	KindPostRoll     Kind = "post_roll"
)

func (k Kind) Valid() bool {
	switch k {
	case KindBanner, KindInterstitial, KindRewarded, KindPreRoll, KindMidRoll, KindPostRoll:
		return true
	}
	return false
}

// IsInStream reports whether the kind plays inside the content stream.
func (k Kind) IsInStream() bool {
	return k == KindPreRoll || k == KindMidRoll || k == KindPostRoll
}

// PlatformTarget restricts a unit to a client platform.
type PlatformTarget string

const (
	PlatformAndroid PlatformTarget = "android"
	PlatformIOS     PlatformTarget = "ios"
	PlatformBoth    PlatformTarget = "both"
)

// Matches reports whether the target covers the requesting platform.
// An empty or unknown platform only matches "both".
func (p PlatformTarget) Matches(platform string) bool {
	if p == PlatformBoth {
		return true
	}
	return strings.EqualFold(string(p), strings.TrimSpace(platform))
}

// Unit is one configured advertisement creative plus its targeting rule.
type Unit struct {
	ID             string         `json:"id"`
	Kind           Kind           `json:"kind"`
	Placement      string         `json:"placement"`
	PlatformTarget PlatformTarget `json:"platform_target"`
	Active         bool           `json:"active"`
	TestMode       bool           `json:"test_mode"`
	Priority       int            `json:"priority"`

	CreativeURL      string  `json:"creative_url,omitempty"`
	ClickURL         string  `json:"click_url,omitempty"`
	RewardAmount     int     `json:"reward_amount,omitempty"`
	RewardType       string  `json:"reward_type,omitempty"`
	SkipAfterSeconds int     `json:"skip_after_seconds,omitempty"`
	DurationSeconds  float64 `json:"duration_seconds,omitempty"`
}

// Filter narrows a gateway ad-unit query.
type Filter struct {
	Active   bool
	Platform string
}
