package resume

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/example/vod-platform/services/playback/internal/progress"
)

type fakePlayer struct {
	duration float64
	seekedTo float64
	seeks    int
}

func (p *fakePlayer) Duration() float64 { return p.duration }
func (p *fakePlayer) SeekTo(s float64)  { p.seekedTo = s; p.seeks++ }

func newFixture(duration float64) (*Controller, *fakePlayer, *progress.Store, *progress.MemoryRepository) {
	repo := progress.NewMemoryRepository()
	store := progress.NewStore(repo, progress.Options{}, zap.NewNop())
	player := &fakePlayer{duration: duration}
	key := progress.Key{UserID: "u", ContentID: "c", EpisodeID: "ep-1"}
	return NewController(store, player, key), player, store, repo
}

func seed(t *testing.T, repo *progress.MemoryRepository, key progress.Key, played, total float64, savedAtMs int64) {
	t.Helper()
	if err := repo.Put(context.Background(), key, progress.Record{
		PlayedSeconds: played, TotalDurationSeconds: total, SavedAtMs: savedAtMs,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestOnReady_RestoresSavedPosition(t *testing.T) {
	c, player, _, repo := newFixture(2000)
	seed(t, repo, c.Key(), 600, 2000, 1_000_000)

	restored, pos := c.OnReady(context.Background(), 1_000_000)
	if !restored {
		t.Fatal("expected restore")
	}
	if pos != 600 || player.seekedTo != 600 {
		t.Fatalf("expected seek to 600, got pos=%v seeked=%v", pos, player.seekedTo)
	}
}

func TestOnReady_OnlyOnceDespiteRepeatedEvents(t *testing.T) {
	c, player, _, repo := newFixture(2000)
	seed(t, repo, c.Key(), 600, 2000, 1_000_000)

	c.OnReady(context.Background(), 1_000_000)
	restored, _ := c.OnReady(context.Background(), 1_000_001)
	if restored {
		t.Fatal("expected second ready event to be a no-op")
	}
	if player.seeks != 1 {
		t.Fatalf("expected exactly one seek, got %d", player.seeks)
	}
}

func TestOnReady_NoRecordIsTerminal(t *testing.T) {
	c, player, _, repo := newFixture(2000)

	if restored, _ := c.OnReady(context.Background(), 1_000_000); restored {
		t.Fatal("expected no restore without a record")
	}
	// A record appearing later must not trigger a retry.
	seed(t, repo, c.Key(), 600, 2000, 1_000_000)
	if restored, _ := c.OnReady(context.Background(), 1_000_001); restored {
		t.Fatal("expected restore attempt to be terminal")
	}
	if player.seeks != 0 {
		t.Fatalf("expected no seeks, got %d", player.seeks)
	}
}

func TestOnReady_RejectsNearStartPositions(t *testing.T) {
	c, player, _, repo := newFixture(2000)
	seed(t, repo, c.Key(), 9.5, 2000, 1_000_000)

	restored, _ := c.OnReady(context.Background(), 1_000_000)
	if restored || player.seeks != 0 {
		t.Fatal("expected positions under 10s not to restore")
	}
	// The record itself stays; only the restore is skipped.
	if _, ok, _ := repo.Get(context.Background(), c.Key()); !ok {
		t.Fatal("expected near-start record to remain")
	}
}

func TestOnReady_DurationMismatchClearsRecord(t *testing.T) {
	c, player, _, repo := newFixture(3000)
	seed(t, repo, c.Key(), 600, 2000, 1_000_000) // saved against a 2000s cut

	restored, _ := c.OnReady(context.Background(), 1_000_000)
	if restored || player.seeks != 0 {
		t.Fatal("expected duration mismatch to reject the restore")
	}
	if _, ok, _ := repo.Get(context.Background(), c.Key()); ok {
		t.Fatal("expected mismatched record to be cleared")
	}
}

func TestOnReady_SmallDriftStillRestores(t *testing.T) {
	c, player, _, repo := newFixture(2020) // 20s drift, within tolerance
	seed(t, repo, c.Key(), 600, 2000, 1_000_000)

	restored, _ := c.OnReady(context.Background(), 1_000_000)
	if !restored || player.seekedTo != 600 {
		t.Fatal("expected restore within the 30s drift tolerance")
	}
}

func TestAttach_NewKeyResetsRestoreState(t *testing.T) {
	c, player, _, repo := newFixture(2000)
	seed(t, repo, c.Key(), 600, 2000, 1_000_000)
	c.OnReady(context.Background(), 1_000_000)

	next := progress.Key{UserID: "u", ContentID: "c", EpisodeID: "ep-2"}
	seed(t, repo, next, 700, 2000, 1_000_000)
	c.Attach(next)

	restored, pos := c.OnReady(context.Background(), 1_000_000)
	if !restored || pos != 700 {
		t.Fatalf("expected fresh restore for the new episode, restored=%v pos=%v", restored, pos)
	}
	if player.seeks != 2 {
		t.Fatalf("expected two seeks total, got %d", player.seeks)
	}
}

func TestAttach_SameKeyKeepsState(t *testing.T) {
	c, player, _, repo := newFixture(2000)
	seed(t, repo, c.Key(), 600, 2000, 1_000_000)
	c.OnReady(context.Background(), 1_000_000)

	c.Attach(c.Key())
	if restored, _ := c.OnReady(context.Background(), 1_000_001); restored {
		t.Fatal("expected re-attach with same key not to reset restore state")
	}
	if player.seeks != 1 {
		t.Fatalf("expected one seek, got %d", player.seeks)
	}
}

func TestOnTimeUpdate_SavesThroughStore(t *testing.T) {
	c, _, _, repo := newFixture(2000)

	c.OnTimeUpdate(context.Background(), 600, 1_000_000)
	rec, ok, _ := repo.Get(context.Background(), c.Key())
	if !ok || rec.PlayedSeconds != 600 || rec.TotalDurationSeconds != 2000 {
		t.Fatalf("expected committed record, got %+v ok=%v", rec, ok)
	}
}

func TestOnEnded_ClearsRecord(t *testing.T) {
	c, _, _, repo := newFixture(2000)
	seed(t, repo, c.Key(), 600, 2000, 1_000_000)

	c.OnEnded(context.Background())
	if _, ok, _ := repo.Get(context.Background(), c.Key()); ok {
		t.Fatal("expected ended to clear the record")
	}
}

func TestOnHidden_FlushesUnthrottled(t *testing.T) {
	c, _, _, repo := newFixture(2000)

	c.OnTimeUpdate(context.Background(), 600, 1_000_000)
	c.OnHidden(context.Background(), 602, 1_000_500) // within the throttle window

	rec, _, _ := repo.Get(context.Background(), c.Key())
	if rec.PlayedSeconds != 602 {
		t.Fatalf("expected hidden flush to commit, got %+v", rec)
	}
}

func TestSessionManager_ReusesAndExpires(t *testing.T) {
	repo := progress.NewMemoryRepository()
	store := progress.NewStore(repo, progress.Options{}, zap.NewNop())
	m := NewSessionManager(store, 10*time.Millisecond)

	key := progress.Key{UserID: "u", ContentID: "c", EpisodeID: "ep-1"}
	s1 := m.GetOrCreate("sess-1", key)
	s2 := m.GetOrCreate("sess-1", key)
	if s1 != s2 {
		t.Fatal("expected same session for same id")
	}
	if m.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", m.Len())
	}

	m.sweep(time.Now().Add(time.Minute))
	if m.Len() != 0 {
		t.Fatalf("expected idle session to be evicted, got %d", m.Len())
	}
}

func TestSessionManager_AttachOnKeyChange(t *testing.T) {
	repo := progress.NewMemoryRepository()
	store := progress.NewStore(repo, progress.Options{}, zap.NewNop())
	m := NewSessionManager(store, time.Minute)

	k1 := progress.Key{UserID: "u", ContentID: "c", EpisodeID: "ep-1"}
	k2 := progress.Key{UserID: "u", ContentID: "c", EpisodeID: "ep-2"}
	_ = m.GetOrCreate("sess-1", k1)
	s := m.GetOrCreate("sess-1", k2)

	if s.Controller.Key() != k2 {
		t.Fatalf("expected controller re-attached to new key, got %+v", s.Controller.Key())
	}
}
