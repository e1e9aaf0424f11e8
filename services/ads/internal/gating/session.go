// Package gating decides whether an ad may be shown to a user right now,
// based on validated policy settings and per-user frequency counters.
package gating

import (
	"sync"
	"time"
)

// SessionState tracks one user's ad frequency counters. Interstitial counters
// live for the session (until an explicit reset); rewarded counters roll over
// by calendar day.
type SessionState struct {
	mu sync.Mutex

	interstitialShown  int
	lastInterstitialMs int64

	rewardedDay   string
	rewardedShown int
}

// StateSnapshot is a point-in-time copy of the counters, for responses and logs.
type StateSnapshot struct {
	InterstitialShown  int    `json:"interstitial_shown"`
	LastInterstitialMs int64  `json:"last_interstitial_ms"`
	RewardedDay        string `json:"rewarded_day,omitempty"`
	RewardedShown      int    `json:"rewarded_shown"`
}

// RecordInterstitialShown bumps the session counter and stamps the cooldown clock.
func (s *SessionState) RecordInterstitialShown(nowMs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interstitialShown++
	s.lastInterstitialMs = nowMs
}

// RecordRewardedShown bumps the daily counter, resetting it first when the
// day has rolled over since the last grant.
func (s *SessionState) RecordRewardedShown(today string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rewardedDay != today {
		s.rewardedDay = today
		s.rewardedShown = 0
	}
	s.rewardedShown++
}

// ResetSession clears the session-scoped interstitial counters. Daily rewarded
// counters survive a session reset.
func (s *SessionState) ResetSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interstitialShown = 0
	s.lastInterstitialMs = 0
}

func (s *SessionState) Snapshot() StateSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StateSnapshot{
		InterstitialShown:  s.interstitialShown,
		LastInterstitialMs: s.lastInterstitialMs,
		RewardedDay:        s.rewardedDay,
		RewardedShown:      s.rewardedShown,
	}
}

// interstitialCounters reads the session counters in one lock acquisition.
func (s *SessionState) interstitialCounters() (shown int, lastMs int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interstitialShown, s.lastInterstitialMs
}

// rewardedCount returns the grants already made today, treating a stale day
// marker as zero.
func (s *SessionState) rewardedCount(today string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rewardedDay != today {
		return 0
	}
	return s.rewardedShown
}

// Registry holds per-user session state with idle expiry.
type Registry struct {
	mu      sync.Mutex
	states  map[string]*registryEntry
	idleTTL time.Duration
}

type registryEntry struct {
	state       *SessionState
	lastTouched time.Time
}

func NewRegistry(idleTTL time.Duration) *Registry {
	if idleTTL <= 0 {
		idleTTL = 12 * time.Hour
	}
	return &Registry{states: make(map[string]*registryEntry), idleTTL: idleTTL}
}

// Get returns the user's state, creating it on first use.
func (r *Registry) Get(userID string) *SessionState {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.states[userID]
	if !ok {
		e = &registryEntry{state: &SessionState{}}
		r.states[userID] = e
	}
	e.lastTouched = time.Now()
	return e.state
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

// Sweep drops states idle longer than the TTL and reports how many were removed.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	for id, e := range r.states {
		if now.Sub(e.lastTouched) > r.idleTTL {
			delete(r.states, id)
			removed++
		}
	}
	return removed
}

// StartJanitor sweeps periodically until the context is done.
func (r *Registry) StartJanitor(done <-chan struct{}, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case now := <-t.C:
			r.Sweep(now)
		}
	}
}
