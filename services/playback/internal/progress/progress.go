// Package progress persists per-user watch positions with start/completion
// thresholds, write throttling and staleness expiry. Storage failures never
// surface to playback: they are logged and the session simply loses resume.
package progress

import (
	"context"
	"time"
)

// movieSentinel namespaces movie progress alongside episode progress.
const movieSentinel = "movie"

// Key identifies one playable unit (a movie or a single episode) for one user.
type Key struct {
	UserID    string
	ContentID string
	EpisodeID string // empty for movies
}

// Unit returns the episode id or the movie sentinel.
func (k Key) Unit() string {
	if k.EpisodeID == "" {
		return movieSentinel
	}
	return k.EpisodeID
}

// String renders the namespaced storage key.
func (k Key) String() string {
	return "progress:" + k.UserID + ":" + k.ContentID + ":" + k.Unit()
}

// Record is a stored watch position.
type Record struct {
	PlayedSeconds        float64 `json:"time"`
	TotalDurationSeconds float64 `json:"duration"`
	SavedAtMs            int64   `json:"timestamp"`
}

// Entry pairs a key with its record for continue-watching listings.
type Entry struct {
	Key    Key
	Record Record
}

// Repository defines the durable backend for watch progress.
type Repository interface {
	// Put inserts or overwrites the record for key, ignoring stale writes
	// (saved_at_ms <= existing).
	Put(ctx context.Context, key Key, rec Record) error
	Get(ctx context.Context, key Key) (Record, bool, error)
	Delete(ctx context.Context, key Key) error
	// List returns up to limit entries for the user, most recently saved first.
	List(ctx context.Context, userID string, limit int) ([]Entry, error)
}

// Options are the store policy knobs. Zero values take the defaults below.
type Options struct {
	MinProgressPercent float64       // below this, saves are skipped (default 1)
	MaxProgressPercent float64       // at or above this, the record is deleted (default 95)
	SaveInterval       time.Duration // minimum spacing between committed writes per key (default 5s)
	MaxAge             time.Duration // records older than this load as none (default 30 days)
}

func (o Options) withDefaults() Options {
	if o.MinProgressPercent <= 0 {
		o.MinProgressPercent = 1
	}
	if o.MaxProgressPercent <= 0 {
		o.MaxProgressPercent = 95
	}
	if o.SaveInterval <= 0 {
		o.SaveInterval = 5 * time.Second
	}
	if o.MaxAge <= 0 {
		o.MaxAge = 30 * 24 * time.Hour
	}
	return o
}
