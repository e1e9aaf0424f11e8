package dedupe

import (
	"context"
	"sync"
	"time"
)

// memoryStore is a development-only dedupe store. Unlike the durable
// backends it forgets everything on restart and sees only one instance, so
// production startup refuses it. Entries honor the same TTL window as the
// Redis backend and are reclaimed lazily on write.
type memoryStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	seen map[string]time.Time
}

func newMemoryStore(ttl time.Duration) *memoryStore {
	return &memoryStore{ttl: ttl, seen: make(map[string]time.Time)}
}

func (s *memoryStore) Check(_ context.Context, eventID string) (bool, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	if at, ok := s.seen[eventID]; ok && now.Sub(at) < s.ttl {
		return true, nil
	}
	for id, at := range s.seen {
		if now.Sub(at) >= s.ttl {
			delete(s.seen, id)
		}
	}
	s.seen[eventID] = now
	return false, nil
}
