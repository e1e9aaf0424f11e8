// Package resume wires player lifecycle events to the progress store and
// decides, exactly once per loaded media item, whether to seek back to a
// previously saved position.
package resume

import (
	"context"
	"math"

	"github.com/example/vod-platform/services/playback/internal/progress"
)

const (
	// Positions this close to the start are not worth resuming.
	minResumeSeconds = 10
	// A saved duration this far from the loaded media means a different
	// cut/version; the stale record is cleared.
	maxDurationDriftSeconds = 30
)

// Player is the minimal surface the controller needs from a playback element.
type Player interface {
	Duration() float64
	SeekTo(seconds float64)
}

// Controller runs the one-shot restore state machine for a single media item.
// It is not safe for concurrent use; callers serialize events per session.
type Controller struct {
	store    *progress.Store
	player   Player
	key      progress.Key
	restored bool
}

func NewController(store *progress.Store, player Player, key progress.Key) *Controller {
	return &Controller{store: store, player: player, key: key}
}

// Attach switches the controller to a new media identity. A changed key resets
// the restore state so the new item gets its own attempt; the same key is a no-op.
func (c *Controller) Attach(key progress.Key) {
	if key == c.key {
		return
	}
	c.key = key
	c.restored = false
}

// Key returns the current media identity.
func (c *Controller) Key() progress.Key { return c.key }

// OnReady handles metadata-loaded / first-play. It attempts the restore at
// most once per attached key and reports whether a seek happened and to where.
func (c *Controller) OnReady(ctx context.Context, nowMs int64) (bool, float64) {
	if c.restored {
		return false, 0
	}
	// One attempt per key, whatever the outcome.
	c.restored = true

	rec, ok := c.store.Load(ctx, c.key, nowMs)
	if !ok {
		return false, 0
	}
	if rec.PlayedSeconds < minResumeSeconds {
		return false, 0
	}
	if d := c.player.Duration(); d > 0 && math.Abs(d-rec.TotalDurationSeconds) > maxDurationDriftSeconds {
		// Different cut or re-encode; the saved position is meaningless.
		c.store.Clear(ctx, c.key)
		return false, 0
	}

	c.player.SeekTo(rec.PlayedSeconds)
	return true, rec.PlayedSeconds
}

// OnTimeUpdate persists the position through the store's throttle.
func (c *Controller) OnTimeUpdate(ctx context.Context, played float64, nowMs int64) {
	c.store.Save(ctx, c.key, played, c.player.Duration(), nowMs)
}

// OnEnded clears the record: finished media never offers a resume.
func (c *Controller) OnEnded(ctx context.Context) {
	c.store.Clear(ctx, c.key)
}

// OnHidden flushes the current position unthrottled (page hidden / unload).
func (c *Controller) OnHidden(ctx context.Context, played float64, nowMs int64) {
	c.store.ForceSave(ctx, c.key, played, c.player.Duration(), nowMs)
}
