// Package orchestrator runs the lifecycle of one in-stream ad presentation:
// load, play, skip countdown, completion. Content playback must resume no
// matter how the ad ends, so every terminal path funnels into one completion.
package orchestrator

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/vod-platform/services/ads/internal/inventory"
)

// State of an ad presentation.
type State string

const (
	StateLoading   State = "loading"
	StatePlaying   State = "playing"
	StateSkippable State = "skippable"
	StateCompleted State = "completed"
	StateErrored   State = "errored"
)

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateErrored
}

// Callbacks are fired outside the orchestrator lock. Any of them may be nil.
type Callbacks struct {
	// OnImpression fires at most once per presentation, on first playback.
	OnImpression func(unit inventory.Unit)
	// OnClick fires on each click-through while the ad is on screen.
	OnClick func(unit inventory.Unit)
	// OnSkip fires when the user skips, before OnComplete.
	OnSkip func(unit inventory.Unit)
	// OnComplete fires exactly once per presentation, on every terminal
	// path: natural end, skip, and playback error alike.
	OnComplete func(unit inventory.Unit, errored bool)
}

var (
	ErrNotSkippable = errors.New("ad is not skippable yet")
	ErrFinished     = errors.New("ad presentation already finished")
)

// Orchestrator drives a single presentation of one ad unit.
type Orchestrator struct {
	unit inventory.Unit
	cb   Callbacks
	log  *zap.Logger

	tickInterval time.Duration

	mu              sync.Mutex
	state           State
	skipRemaining   int
	impressionFired bool
	completed       bool
	stop            chan struct{}
	stopOnce        sync.Once
}

// New prepares a presentation in the loading state. With skipImmediately the
// skip countdown is zero regardless of the unit's configuration.
func New(unit inventory.Unit, skipImmediately bool, cb Callbacks, log *zap.Logger) *Orchestrator {
	remaining := unit.SkipAfterSeconds
	if skipImmediately {
		remaining = 0
	}
	return &Orchestrator{
		unit:          unit,
		cb:            cb,
		log:           log,
		tickInterval:  time.Second,
		state:         StateLoading,
		skipRemaining: remaining,
		stop:          make(chan struct{}),
	}
}

func (o *Orchestrator) Unit() inventory.Unit { return o.unit }

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// SkipRemaining returns the seconds left on the skip countdown.
func (o *Orchestrator) SkipRemaining() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.skipRemaining
}

// OnPlaybackStarted moves the presentation into playing, fires the impression
// once, and starts the skip countdown. Safe to call again after a client
// remount; repeats are no-ops.
func (o *Orchestrator) OnPlaybackStarted() {
	o.mu.Lock()
	if o.state != StateLoading {
		o.mu.Unlock()
		return
	}
	if o.skipRemaining <= 0 {
		o.state = StateSkippable
	} else {
		o.state = StatePlaying
	}
	fire := !o.impressionFired
	o.impressionFired = true
	startCountdown := o.state == StatePlaying
	o.mu.Unlock()

	if fire && o.cb.OnImpression != nil {
		o.cb.OnImpression(o.unit)
	}
	if startCountdown {
		go o.runCountdown()
	}
}

// countdownTick decrements the skip countdown by one second. Returns true when
// the countdown is over or the presentation left the playing state.
func (o *Orchestrator) countdownTick() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StatePlaying {
		return true
	}
	o.skipRemaining--
	if o.skipRemaining <= 0 {
		o.skipRemaining = 0
		o.state = StateSkippable
		return true
	}
	return false
}

func (o *Orchestrator) runCountdown() {
	t := time.NewTicker(o.tickInterval)
	defer t.Stop()
	for {
		select {
		case <-o.stop:
			return
		case <-t.C:
			if o.countdownTick() {
				return
			}
		}
	}
}

// Skip ends the presentation early. Only allowed once the countdown has run
// out (or was zero to begin with).
func (o *Orchestrator) Skip() error {
	o.mu.Lock()
	if o.state.Terminal() {
		o.mu.Unlock()
		return ErrFinished
	}
	if o.state != StateSkippable {
		o.mu.Unlock()
		return ErrNotSkippable
	}
	o.mu.Unlock()

	if o.cb.OnSkip != nil {
		o.cb.OnSkip(o.unit)
	}
	o.finish(StateCompleted, false)
	return nil
}

// Click records a click-through while the ad is on screen.
func (o *Orchestrator) Click() error {
	o.mu.Lock()
	terminal := o.state.Terminal() || o.state == StateLoading
	o.mu.Unlock()
	if terminal {
		return ErrFinished
	}
	if o.cb.OnClick != nil {
		o.cb.OnClick(o.unit)
	}
	return nil
}

// OnEnded handles the creative finishing naturally.
func (o *Orchestrator) OnEnded() {
	o.finish(StateCompleted, false)
}

// OnError handles a load or playback failure. The presentation still
// completes so content playback is never blocked by a broken ad.
func (o *Orchestrator) OnError(err error) {
	if o.log != nil {
		o.log.Warn("ad playback failed, resuming content",
			zap.String("ad_id", o.unit.ID), zap.Error(err))
	}
	o.finish(StateErrored, true)
}

// Stop tears the presentation down without firing completion. Used when the
// owning session is discarded.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() { close(o.stop) })
}

// finish performs the single terminal transition and fires OnComplete once.
func (o *Orchestrator) finish(to State, errored bool) {
	o.mu.Lock()
	if o.completed {
		o.mu.Unlock()
		return
	}
	o.completed = true
	o.state = to
	o.mu.Unlock()

	o.Stop()
	if o.cb.OnComplete != nil {
		o.cb.OnComplete(o.unit, errored)
	}
}
