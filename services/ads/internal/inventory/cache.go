package inventory

import (
	"context"
	"encoding/json"
	"sort"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Source is the slice of the content data gateway the cache needs.
type Source interface {
	// QueryAdUnits returns units matching the filter, highest priority first.
	QueryAdUnits(ctx context.Context, f Filter) ([]Unit, error)
	QueryAdSettings(ctx context.Context, keys []string) (map[string]json.RawMessage, error)
}

// snapshot is the immutable unit-of-publication for the cache.
type snapshot struct {
	units       []Unit
	settings    Settings
	refreshedAt time.Time
}

// Cache holds the current ad inventory for one platform. Reads are lock-free
// against an atomically swapped snapshot; a failed refresh keeps the previous
// snapshot in place and never surfaces to callers.
type Cache struct {
	source       Source
	log          *zap.Logger
	fetchTimeout time.Duration
	snap         atomic.Pointer[snapshot]
}

func NewCache(source Source, fetchTimeout time.Duration, log *zap.Logger) *Cache {
	if fetchTimeout <= 0 {
		fetchTimeout = 8 * time.Second
	}
	c := &Cache{source: source, log: log, fetchTimeout: fetchTimeout}
	c.snap.Store(&snapshot{settings: DefaultSettings()})
	return c
}

// Refresh reloads units and settings for the platform and swaps the snapshot
// atomically. Fetch failures are logged; the previous snapshot stays live.
func (c *Cache) Refresh(ctx context.Context, platform string) {
	ctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	units, err := c.source.QueryAdUnits(ctx, Filter{Active: true, Platform: platform})
	if err != nil {
		c.log.Warn("ad inventory refresh failed, keeping previous snapshot",
			zap.String("platform", platform), zap.Error(err))
		return
	}
	// The gateway orders by priority; sort again so a misbehaving source
	// cannot break selection.
	sort.SliceStable(units, func(i, j int) bool { return units[i].Priority > units[j].Priority })

	// A settings fetch failure must not fall back to defaults: defaults have
	// ads enabled, which would override an admin kill switch. Carry the
	// previous snapshot's settings forward instead.
	settings := c.snap.Load().settings
	raw, err := c.source.QueryAdSettings(ctx, SettingsKeys)
	if err != nil {
		c.log.Warn("ad settings fetch failed, keeping previous settings", zap.Error(err))
	} else {
		settings = ParseSettings(raw, c.log)
	}

	c.snap.Store(&snapshot{units: units, settings: settings, refreshedAt: time.Now()})
	c.log.Info("ad inventory refreshed",
		zap.String("platform", platform), zap.Int("units", len(units)))
}

// SelectForPlacement returns the highest-priority active unit for the
// placement, optionally narrowed by kind. Pure read over the snapshot.
func (c *Cache) SelectForPlacement(placement string, kind Kind) (Unit, bool) {
	snap := c.snap.Load()
	for _, u := range snap.units {
		if !u.Active || u.Placement != placement {
			continue
		}
		if kind != "" && u.Kind != kind {
			continue
		}
		return u, true
	}
	return Unit{}, false
}

// Lookup finds a unit by ID in the live snapshot.
func (c *Cache) Lookup(id string) (Unit, bool) {
	for _, u := range c.snap.Load().units {
		if u.ID == id {
			return u, true
		}
	}
	return Unit{}, false
}

// Settings returns the current validated policy settings.
func (c *Cache) Settings() Settings {
	return c.snap.Load().settings
}

// RefreshedAt reports when the live snapshot was loaded (zero before first load).
func (c *Cache) RefreshedAt() time.Time {
	return c.snap.Load().refreshedAt
}

// SubscribeInvalidate refreshes the cache whenever a message arrives on the
// invalidation subject. Used by the admin back office after edits.
func (c *Cache) SubscribeInvalidate(ctx context.Context, nc *nats.Conn, subject, platform string) error {
	_, err := nc.Subscribe(subject, func(_ *nats.Msg) {
		c.Refresh(ctx, platform)
	})
	return err
}
