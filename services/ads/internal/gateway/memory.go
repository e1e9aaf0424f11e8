package gateway

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/example/vod-platform/services/ads/internal/inventory"
)

// MemoryGateway is an in-memory Gateway for tests and local development.
type MemoryGateway struct {
	mu       sync.Mutex
	units    []inventory.Unit
	settings map[string]json.RawMessage
	counters map[string]int64
	premium  map[string]bool

	// Err, when set, is returned by every query. Lets tests exercise the
	// fail-open paths.
	Err error
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		settings: make(map[string]json.RawMessage),
		counters: make(map[string]int64),
		premium:  make(map[string]bool),
	}
}

func (g *MemoryGateway) SetUnits(units ...inventory.Unit) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.units = append([]inventory.Unit(nil), units...)
}

func (g *MemoryGateway) SetSetting(key string, value string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.settings[key] = json.RawMessage(value)
}

func (g *MemoryGateway) SetPremium(userID string, active bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.premium[userID] = active
}

// Counter returns the current value of a delivery counter.
func (g *MemoryGateway) Counter(adID, counter string) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.counters[adID+"/"+counter]
}

func (g *MemoryGateway) QueryAdUnits(_ context.Context, f inventory.Filter) ([]inventory.Unit, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	var out []inventory.Unit
	for _, u := range g.units {
		if f.Active && !u.Active {
			continue
		}
		if !u.PlatformTarget.Matches(f.Platform) {
			continue
		}
		out = append(out, u)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out, nil
}

func (g *MemoryGateway) QueryAdSettings(_ context.Context, keys []string) (map[string]json.RawMessage, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	out := make(map[string]json.RawMessage, len(keys))
	for _, k := range keys {
		if v, ok := g.settings[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (g *MemoryGateway) IncrementAdCounter(_ context.Context, adID, counter string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return g.Err
	}
	g.counters[adID+"/"+counter]++
	return nil
}

func (g *MemoryGateway) ActiveSubscription(_ context.Context, userID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return false, g.Err
	}
	return g.premium[userID], nil
}

var _ Gateway = (*MemoryGateway)(nil)
