package progress

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Store applies save/load policy on top of a Repository.
// All storage failures are logged and swallowed; callers never see them.
type Store struct {
	repo Repository
	opts Options
	log  *zap.Logger

	mu         sync.Mutex
	lastCommit map[string]int64 // key -> epoch ms of last committed write
}

func NewStore(repo Repository, opts Options, log *zap.Logger) *Store {
	return &Store{
		repo:       repo,
		opts:       opts.withDefaults(),
		log:        log,
		lastCommit: make(map[string]int64),
	}
}

// Save records a playback position. No-op when the duration is unknown or the
// position is below the start threshold; deletes the record at or above the
// completion threshold; otherwise commits at most once per SaveInterval per key.
func (s *Store) Save(ctx context.Context, key Key, played, total float64, nowMs int64) {
	s.save(ctx, key, played, total, nowMs, true)
}

// ForceSave is Save without the throttle, for best-effort flushes on
// page-hide/unload. Thresholds still apply.
func (s *Store) ForceSave(ctx context.Context, key Key, played, total float64, nowMs int64) {
	s.save(ctx, key, played, total, nowMs, false)
}

func (s *Store) save(ctx context.Context, key Key, played, total float64, nowMs int64, throttle bool) {
	if total <= 0 || played < 0 {
		return
	}
	pct := played / total * 100
	if pct < s.opts.MinProgressPercent {
		return
	}
	if pct >= s.opts.MaxProgressPercent {
		// Completed: the record is deleted rather than pinned at the end.
		s.Clear(ctx, key)
		return
	}

	k := key.String()
	if throttle {
		s.mu.Lock()
		last, ok := s.lastCommit[k]
		if ok && nowMs-last < s.opts.SaveInterval.Milliseconds() {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()
	}

	rec := Record{PlayedSeconds: played, TotalDurationSeconds: total, SavedAtMs: nowMs}
	if err := s.repo.Put(ctx, key, rec); err != nil {
		s.log.Warn("progress save failed", zap.String("key", k), zap.Error(err))
		return
	}
	s.mu.Lock()
	s.lastCommit[k] = nowMs
	s.mu.Unlock()
}

// Load returns the stored record, or ok=false when absent, malformed or
// older than MaxAge. Stale and malformed records are deleted as a side effect.
func (s *Store) Load(ctx context.Context, key Key, nowMs int64) (Record, bool) {
	rec, ok, err := s.repo.Get(ctx, key)
	if err != nil {
		s.log.Warn("progress load failed", zap.String("key", key.String()), zap.Error(err))
		return Record{}, false
	}
	if !ok {
		return Record{}, false
	}
	if rec.TotalDurationSeconds <= 0 || rec.PlayedSeconds < 0 || rec.PlayedSeconds >= rec.TotalDurationSeconds {
		s.Clear(ctx, key)
		return Record{}, false
	}
	if nowMs-rec.SavedAtMs > s.opts.MaxAge.Milliseconds() {
		s.Clear(ctx, key)
		return Record{}, false
	}
	return rec, true
}

// Clear unconditionally removes the record and its throttle state.
func (s *Store) Clear(ctx context.Context, key Key) {
	if err := s.repo.Delete(ctx, key); err != nil {
		s.log.Warn("progress clear failed", zap.String("key", key.String()), zap.Error(err))
	}
	s.mu.Lock()
	delete(s.lastCommit, key.String())
	s.mu.Unlock()
}

// ContinueWatching lists the user's most recent in-flight records.
func (s *Store) ContinueWatching(ctx context.Context, userID string, limit int) []Entry {
	if limit < 1 {
		limit = 1
	}
	entries, err := s.repo.List(ctx, userID, limit)
	if err != nil {
		s.log.Warn("continue watching list failed", zap.String("user_id", userID), zap.Error(err))
		return nil
	}
	return entries
}

// Options exposes the effective policy (after defaulting), for handlers.
func (s *Store) Options() Options {
	return s.opts
}
