package orchestrator

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Manager tracks live presentations so the event endpoints can route a
// client's lifecycle reports back to the right orchestrator. A client that
// remounts its ad view keeps the same presentation ID, which is what makes
// the impression fire only once.
type Manager struct {
	mu      sync.Mutex
	byID    map[string]*presentation
	idleTTL time.Duration
}

type presentation struct {
	userID      string
	orch        *Orchestrator
	lastTouched time.Time
}

func NewManager(idleTTL time.Duration) *Manager {
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &Manager{byID: make(map[string]*presentation), idleTTL: idleTTL}
}

// Create registers a presentation and returns its ID.
func (m *Manager) Create(userID string, o *Orchestrator) string {
	id := uuid.NewString()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[id] = &presentation{userID: userID, orch: o, lastTouched: time.Now()}
	return id
}

// Get returns the presentation's orchestrator, refusing IDs owned by a
// different user.
func (m *Manager) Get(userID, id string) (*Orchestrator, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.byID[id]
	if !ok || p.userID != userID {
		return nil, false
	}
	p.lastTouched = time.Now()
	return p.orch, true
}

// Remove drops a presentation and stops its countdown.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	p, ok := m.byID[id]
	delete(m.byID, id)
	m.mu.Unlock()
	if ok {
		p.orch.Stop()
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byID)
}

// Sweep removes presentations idle past the TTL and returns the count.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	var stale []*presentation
	for id, p := range m.byID {
		if now.Sub(p.lastTouched) > m.idleTTL {
			delete(m.byID, id)
			stale = append(stale, p)
		}
	}
	m.mu.Unlock()
	for _, p := range stale {
		p.orch.Stop()
	}
	return len(stale)
}

// StartJanitor sweeps periodically until done is closed.
func (m *Manager) StartJanitor(done <-chan struct{}, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case now := <-t.C:
			m.Sweep(now)
		}
	}
}
