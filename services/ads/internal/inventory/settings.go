package inventory

import (
	"encoding/json"

	"go.uber.org/zap"
)

// Settings group keys as stored in the ad_settings table.
const (
	SettingsKeyGlobal       = "global"
	SettingsKeyInterstitial = "interstitial"
	SettingsKeyRewarded     = "rewarded"
	SettingsKeyBanner       = "banner"
	SettingsKeyMidRoll      = "mid_roll"
)

// SettingsKeys lists every group fetched from the gateway.
var SettingsKeys = []string{
	SettingsKeyGlobal, SettingsKeyInterstitial, SettingsKeyRewarded,
	SettingsKeyBanner, SettingsKeyMidRoll,
}

type GlobalSettings struct {
	AdsEnabled     bool `json:"ads_enabled"`
	SkipForPremium bool `json:"skip_for_premium"`
}

type InterstitialSettings struct {
	CooldownSeconds int `json:"cooldown_seconds"`
	MaxPerSession   int `json:"max_per_session"`
}

type RewardedSettings struct {
	MaxPerDay        int     `json:"max_per_day"`
	RewardMultiplier float64 `json:"reward_multiplier"`
}

type BannerSettings struct {
	RefreshSeconds int    `json:"refresh_seconds"`
	Anchor         string `json:"anchor"`
}

type MidRollSettings struct {
	IntervalSeconds int `json:"interval_seconds"`
}

// Settings is the full validated policy configuration. Groups that fail to
// parse or validate fall back to their defaults individually, so one bad row
// cannot poison the rest.
type Settings struct {
	Global       GlobalSettings       `json:"global"`
	Interstitial InterstitialSettings `json:"interstitial"`
	Rewarded     RewardedSettings     `json:"rewarded"`
	Banner       BannerSettings       `json:"banner"`
	MidRoll      MidRollSettings      `json:"mid_roll"`
}

func DefaultSettings() Settings {
	return Settings{
		Global:       GlobalSettings{AdsEnabled: true, SkipForPremium: true},
		Interstitial: InterstitialSettings{CooldownSeconds: 120, MaxPerSession: 5},
		Rewarded:     RewardedSettings{MaxPerDay: 10, RewardMultiplier: 1.0},
		Banner:       BannerSettings{RefreshSeconds: 60, Anchor: "bottom"},
		MidRoll:      MidRollSettings{IntervalSeconds: 600},
	}
}

// ParseSettings decodes the raw gateway rows into a typed Settings, falling
// back to the default for any group that is missing, malformed or out of range.
func ParseSettings(raw map[string]json.RawMessage, log *zap.Logger) Settings {
	s := DefaultSettings()

	if b, ok := raw[SettingsKeyGlobal]; ok {
		var g GlobalSettings
		if err := json.Unmarshal(b, &g); err != nil {
			log.Warn("ad settings: bad global group, using defaults", zap.Error(err))
		} else {
			s.Global = g
		}
	}
	if b, ok := raw[SettingsKeyInterstitial]; ok {
		var g InterstitialSettings
		if err := json.Unmarshal(b, &g); err != nil || g.CooldownSeconds < 0 || g.MaxPerSession < 1 {
			log.Warn("ad settings: bad interstitial group, using defaults", zap.Error(err))
		} else {
			s.Interstitial = g
		}
	}
	if b, ok := raw[SettingsKeyRewarded]; ok {
		var g RewardedSettings
		if err := json.Unmarshal(b, &g); err != nil || g.MaxPerDay < 1 || g.RewardMultiplier <= 0 {
			log.Warn("ad settings: bad rewarded group, using defaults", zap.Error(err))
		} else {
			s.Rewarded = g
		}
	}
	if b, ok := raw[SettingsKeyBanner]; ok {
		var g BannerSettings
		if err := json.Unmarshal(b, &g); err != nil || g.RefreshSeconds < 1 {
			log.Warn("ad settings: bad banner group, using defaults", zap.Error(err))
		} else {
			if g.Anchor == "" {
				g.Anchor = "bottom"
			}
			s.Banner = g
		}
	}
	if b, ok := raw[SettingsKeyMidRoll]; ok {
		var g MidRollSettings
		if err := json.Unmarshal(b, &g); err != nil || g.IntervalSeconds < 1 {
			log.Warn("ad settings: bad mid_roll group, using defaults", zap.Error(err))
		} else {
			s.MidRoll = g
		}
	}
	return s
}
