package progress

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository is an in-memory Repository for tests and development.
type MemoryRepository struct {
	mu      sync.RWMutex
	records map[string]Entry
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[string]Entry)}
}

func (r *MemoryRepository) Put(_ context.Context, key Key, rec Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.records[key.String()]; ok && rec.SavedAtMs < cur.Record.SavedAtMs {
		return nil // stale write, keep the newer record
	}
	r.records[key.String()] = Entry{Key: key, Record: rec}
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, key Key) (Record, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.records[key.String()]
	return e.Record, ok, nil
}

func (r *MemoryRepository) Delete(_ context.Context, key Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, key.String())
	return nil
}

func (r *MemoryRepository) List(_ context.Context, userID string, limit int) ([]Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Entry
	for _, e := range r.records {
		if e.Key.UserID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Record.SavedAtMs > out[j].Record.SavedAtMs })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
