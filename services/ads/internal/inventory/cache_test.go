package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeSource struct {
	mu          sync.Mutex
	units       []Unit
	settings    map[string]json.RawMessage
	err         error
	settingsErr error
}

func (f *fakeSource) QueryAdUnits(_ context.Context, _ Filter) ([]Unit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append([]Unit(nil), f.units...), nil
}

func (f *fakeSource) QueryAdSettings(_ context.Context, _ []string) (map[string]json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	if f.settingsErr != nil {
		return nil, f.settingsErr
	}
	return f.settings, nil
}

func (f *fakeSource) set(units []Unit, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.units = units
	f.err = err
}

func TestCache_RefreshAndSelect(t *testing.T) {
	src := &fakeSource{units: []Unit{
		{ID: "low", Kind: KindPreRoll, Placement: "player", Active: true, Priority: 1},
		{ID: "high", Kind: KindPreRoll, Placement: "player", Active: true, Priority: 9},
		{ID: "banner", Kind: KindBanner, Placement: "home", Active: true, Priority: 5},
	}}
	c := NewCache(src, time.Second, zap.NewNop())
	c.Refresh(context.Background(), "android")

	u, ok := c.SelectForPlacement("player", KindPreRoll)
	if !ok || u.ID != "high" {
		t.Fatalf("expected highest-priority unit, got %+v ok=%v", u, ok)
	}
	u, ok = c.SelectForPlacement("home", "")
	if !ok || u.ID != "banner" {
		t.Fatalf("expected banner for home, got %+v ok=%v", u, ok)
	}
	if _, ok := c.SelectForPlacement("player", KindRewarded); ok {
		t.Fatal("expected no rewarded unit for player")
	}
	if _, ok := c.SelectForPlacement("search", ""); ok {
		t.Fatal("expected no unit for unknown placement")
	}
}

func TestCache_EmptyBeforeFirstRefresh(t *testing.T) {
	c := NewCache(&fakeSource{}, time.Second, zap.NewNop())
	if _, ok := c.SelectForPlacement("player", ""); ok {
		t.Fatal("expected empty cache before refresh")
	}
	if got := c.Settings(); !got.Global.AdsEnabled {
		t.Fatal("expected default settings before refresh")
	}
	if !c.RefreshedAt().IsZero() {
		t.Fatal("expected zero refresh time before first load")
	}
}

func TestCache_FailedRefreshKeepsSnapshot(t *testing.T) {
	src := &fakeSource{units: []Unit{
		{ID: "ad-1", Kind: KindInterstitial, Placement: "episode_end", Active: true, Priority: 1},
	}}
	c := NewCache(src, time.Second, zap.NewNop())
	c.Refresh(context.Background(), "android")

	src.set(nil, errors.New("gateway down"))
	c.Refresh(context.Background(), "android")

	if _, ok := c.SelectForPlacement("episode_end", KindInterstitial); !ok {
		t.Fatal("expected previous snapshot to survive a failed refresh")
	}
}

func TestCache_PartialSettingsUseDefaults(t *testing.T) {
	src := &fakeSource{
		units: []Unit{{ID: "ad-1", Kind: KindBanner, Placement: "home", Active: true}},
		settings: map[string]json.RawMessage{
			SettingsKeyInterstitial: json.RawMessage(`{"cooldown_seconds":300,"max_per_session":2}`),
		},
	}
	c := NewCache(src, time.Second, zap.NewNop())
	c.Refresh(context.Background(), "android")

	if got := c.Settings().Interstitial.CooldownSeconds; got != 300 {
		t.Fatalf("expected configured cooldown 300, got %d", got)
	}
	// Other groups keep their defaults.
	if got := c.Settings().Rewarded.MaxPerDay; got != 10 {
		t.Fatalf("expected default rewarded cap, got %d", got)
	}
}

func TestCache_SettingsFetchFailureKeepsPrevious(t *testing.T) {
	src := &fakeSource{
		units: []Unit{{ID: "ad-1", Kind: KindBanner, Placement: "home", Active: true}},
		settings: map[string]json.RawMessage{
			SettingsKeyGlobal: json.RawMessage(`{"ads_enabled":false,"skip_for_premium":true}`),
		},
	}
	c := NewCache(src, time.Second, zap.NewNop())
	c.Refresh(context.Background(), "android")
	if c.Settings().Global.AdsEnabled {
		t.Fatal("expected ads disabled after first refresh")
	}

	// Units still load; only the settings query fails.
	src.mu.Lock()
	src.settingsErr = errors.New("settings table down")
	src.mu.Unlock()
	c.Refresh(context.Background(), "android")

	if c.Settings().Global.AdsEnabled {
		t.Fatal("expected the admin kill switch to survive a settings fetch failure")
	}
	if _, ok := c.SelectForPlacement("home", KindBanner); !ok {
		t.Fatal("expected units from the successful query to be installed")
	}
}

func TestCache_ResortsMisorderedUnits(t *testing.T) {
	src := &fakeSource{units: []Unit{
		{ID: "low", Kind: KindBanner, Placement: "home", Active: true, Priority: 1},
		{ID: "high", Kind: KindBanner, Placement: "home", Active: true, Priority: 7},
	}}
	c := NewCache(src, time.Second, zap.NewNop())
	c.Refresh(context.Background(), "android")

	if u, _ := c.SelectForPlacement("home", KindBanner); u.ID != "high" {
		t.Fatalf("expected priority order restored, got %s", u.ID)
	}
}
