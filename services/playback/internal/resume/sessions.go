package resume

import (
	"context"
	"sync"
	"time"

	"github.com/example/vod-platform/services/playback/internal/progress"
)

// SessionPlayer mirrors the client's player: the duration is whatever the
// client last reported, and seeks are recorded for the event response rather
// than executed locally.
type SessionPlayer struct {
	duration float64
	seekTo   float64
	seeked   bool
}

func (p *SessionPlayer) Duration() float64 { return p.duration }

func (p *SessionPlayer) SeekTo(seconds float64) {
	p.seekTo = seconds
	p.seeked = true
}

// SetDuration updates the client-reported media duration.
func (p *SessionPlayer) SetDuration(d float64) {
	if d > 0 {
		p.duration = d
	}
}

// TakeSeek returns and clears a pending seek target.
func (p *SessionPlayer) TakeSeek() (float64, bool) {
	if !p.seeked {
		return 0, false
	}
	p.seeked = false
	return p.seekTo, true
}

// Session is one client playback session: a controller plus its mirrored player.
type Session struct {
	mu         sync.Mutex
	Player     *SessionPlayer
	Controller *Controller
	lastSeen   time.Time
}

// Do runs fn with the session locked; events within a session are serialized.
func (s *Session) Do(fn func(p *SessionPlayer, c *Controller)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = time.Now()
	fn(s.Player, s.Controller)
}

// SessionManager tracks live playback sessions by client session id and
// evicts the ones that have gone idle.
type SessionManager struct {
	store   *progress.Store
	idleTTL time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessionManager(store *progress.Store, idleTTL time.Duration) *SessionManager {
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	return &SessionManager{
		store:    store,
		idleTTL:  idleTTL,
		sessions: make(map[string]*Session),
	}
}

// GetOrCreate returns the session for id, creating it when absent, and
// attaches the controller to key (resetting restore state on identity change).
func (m *SessionManager) GetOrCreate(id string, key progress.Key) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		player := &SessionPlayer{}
		s = &Session{
			Player:     player,
			Controller: NewController(m.store, player, key),
			lastSeen:   time.Now(),
		}
		m.sessions[id] = s
	}
	s.Controller.Attach(key)
	return s
}

// Len reports the number of live sessions.
func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// StartJanitor sweeps idle sessions until ctx is cancelled.
func (m *SessionManager) StartJanitor(ctx context.Context) {
	go func() {
		t := time.NewTicker(m.idleTTL / 2)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				m.sweep(time.Now())
			}
		}
	}()
}

func (m *SessionManager) sweep(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		s.mu.Lock()
		idle := now.Sub(s.lastSeen) > m.idleTTL
		s.mu.Unlock()
		if idle {
			delete(m.sessions, id)
		}
	}
}
