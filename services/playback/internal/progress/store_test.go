package progress

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestStore(opts Options) (*Store, *MemoryRepository) {
	repo := NewMemoryRepository()
	return NewStore(repo, opts, zap.NewNop()), repo
}

func testKey() Key {
	return Key{UserID: "user-1", ContentID: "content-1", EpisodeID: "ep-1"}
}

func TestKey_MovieSentinel(t *testing.T) {
	k := Key{UserID: "u", ContentID: "c"}
	if k.Unit() != "movie" {
		t.Fatalf("expected movie sentinel, got %q", k.Unit())
	}
	if k.String() != "progress:u:c:movie" {
		t.Fatalf("unexpected key string %q", k.String())
	}
}

func TestSave_ThrottleSpacing(t *testing.T) {
	s, repo := newTestStore(Options{SaveInterval: 5 * time.Second})
	ctx := context.Background()
	key := testKey()

	// First save commits.
	s.Save(ctx, key, 100, 1000, 10_000)
	rec, ok, _ := repo.Get(ctx, key)
	if !ok || rec.SavedAtMs != 10_000 {
		t.Fatalf("expected first save to commit at 10000, got %+v ok=%v", rec, ok)
	}

	// 3s later: throttled.
	s.Save(ctx, key, 103, 1000, 13_000)
	rec, _, _ = repo.Get(ctx, key)
	if rec.SavedAtMs != 10_000 {
		t.Fatalf("expected throttled save to be skipped, got %+v", rec)
	}

	// 5s later: commits.
	s.Save(ctx, key, 105, 1000, 15_000)
	rec, _, _ = repo.Get(ctx, key)
	if rec.SavedAtMs != 15_000 {
		t.Fatalf("expected save at 15000 to commit, got %+v", rec)
	}
}

func TestSave_ThrottleIsPerKey(t *testing.T) {
	s, repo := newTestStore(Options{})
	ctx := context.Background()
	k1 := Key{UserID: "u", ContentID: "c", EpisodeID: "ep-1"}
	k2 := Key{UserID: "u", ContentID: "c", EpisodeID: "ep-2"}

	s.Save(ctx, k1, 100, 1000, 10_000)
	s.Save(ctx, k2, 100, 1000, 10_001)

	if _, ok, _ := repo.Get(ctx, k2); !ok {
		t.Fatal("expected second key to commit independently of the first")
	}
}

func TestSave_BelowStartThreshold(t *testing.T) {
	s, repo := newTestStore(Options{})
	ctx := context.Background()
	key := testKey()

	s.Save(ctx, key, 0.3, 100, 10_000) // 0.3%
	if _, ok, _ := repo.Get(ctx, key); ok {
		t.Fatal("expected no record below the start threshold")
	}
	if _, ok := s.Load(ctx, key, 10_000); ok {
		t.Fatal("expected Load to return none")
	}
}

func TestSave_CompletionDeletes(t *testing.T) {
	s, repo := newTestStore(Options{})
	ctx := context.Background()
	key := testKey()

	s.Save(ctx, key, 500, 1000, 10_000)
	if _, ok, _ := repo.Get(ctx, key); !ok {
		t.Fatal("expected mid-playback record")
	}

	// 96% >= 95%: treat as completed, delete.
	s.Save(ctx, key, 96, 100, 20_000)
	if _, ok, _ := repo.Get(ctx, key); ok {
		t.Fatal("expected completion save to delete the record")
	}
	if _, ok := s.Load(ctx, key, 20_000); ok {
		t.Fatal("expected Load to return none after completion")
	}
}

func TestSave_ZeroDurationNoop(t *testing.T) {
	s, repo := newTestStore(Options{})
	ctx := context.Background()
	key := testKey()

	s.Save(ctx, key, 100, 0, 10_000)
	if _, ok, _ := repo.Get(ctx, key); ok {
		t.Fatal("expected no record for zero duration")
	}
}

func TestForceSave_BypassesThrottle(t *testing.T) {
	s, repo := newTestStore(Options{SaveInterval: 5 * time.Second})
	ctx := context.Background()
	key := testKey()

	s.Save(ctx, key, 100, 1000, 10_000)
	s.ForceSave(ctx, key, 101, 1000, 10_500)

	rec, _, _ := repo.Get(ctx, key)
	if rec.SavedAtMs != 10_500 {
		t.Fatalf("expected forced save to commit, got %+v", rec)
	}
}

func TestLoad_StaleRecordDeleted(t *testing.T) {
	s, repo := newTestStore(Options{})
	ctx := context.Background()
	key := testKey()

	savedAt := int64(1_000_000)
	_ = repo.Put(ctx, key, Record{PlayedSeconds: 100, TotalDurationSeconds: 1000, SavedAtMs: savedAt})

	now := savedAt + 31*24*time.Hour.Milliseconds()
	if _, ok := s.Load(ctx, key, now); ok {
		t.Fatal("expected 31-day-old record to load as none")
	}
	if _, ok, _ := repo.Get(ctx, key); ok {
		t.Fatal("expected stale record to be deleted as a side effect")
	}
}

func TestLoad_FreshRecordWithinMaxAge(t *testing.T) {
	s, repo := newTestStore(Options{})
	ctx := context.Background()
	key := testKey()

	_ = repo.Put(ctx, key, Record{PlayedSeconds: 100, TotalDurationSeconds: 1000, SavedAtMs: 1_000_000})

	rec, ok := s.Load(ctx, key, 1_000_000+24*time.Hour.Milliseconds())
	if !ok {
		t.Fatal("expected day-old record to load")
	}
	if rec.PlayedSeconds != 100 {
		t.Fatalf("expected played 100, got %v", rec.PlayedSeconds)
	}
}

func TestLoad_MalformedRecordDeleted(t *testing.T) {
	s, repo := newTestStore(Options{})
	ctx := context.Background()
	key := testKey()

	_ = repo.Put(ctx, key, Record{PlayedSeconds: 100, TotalDurationSeconds: 0, SavedAtMs: 1_000_000})

	if _, ok := s.Load(ctx, key, 1_000_000); ok {
		t.Fatal("expected malformed record to load as none")
	}
	if _, ok, _ := repo.Get(ctx, key); ok {
		t.Fatal("expected malformed record to be deleted")
	}
}

func TestClear_RemovesRecordAndThrottleState(t *testing.T) {
	s, repo := newTestStore(Options{SaveInterval: 5 * time.Second})
	ctx := context.Background()
	key := testKey()

	s.Save(ctx, key, 100, 1000, 10_000)
	s.Clear(ctx, key)
	if _, ok, _ := repo.Get(ctx, key); ok {
		t.Fatal("expected record to be cleared")
	}

	// Throttle state is gone too, so an immediate save commits.
	s.Save(ctx, key, 102, 1000, 10_001)
	if _, ok, _ := repo.Get(ctx, key); !ok {
		t.Fatal("expected save after clear to commit immediately")
	}
}

func TestContinueWatching_MostRecentFirst(t *testing.T) {
	s, _ := newTestStore(Options{})
	ctx := context.Background()

	s.Save(ctx, Key{UserID: "u", ContentID: "c1", EpisodeID: "ep-1"}, 100, 1000, 10_000)
	s.Save(ctx, Key{UserID: "u", ContentID: "c2", EpisodeID: "ep-9"}, 200, 1000, 20_000)
	s.Save(ctx, Key{UserID: "other", ContentID: "c3"}, 300, 1000, 30_000)

	entries := s.ContinueWatching(ctx, "u", 10)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries for user u, got %d", len(entries))
	}
	if entries[0].Key.ContentID != "c2" {
		t.Fatalf("expected most recent first, got %+v", entries[0].Key)
	}
}

func TestMemoryRepository_StaleWriteIgnored(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	key := testKey()

	_ = repo.Put(ctx, key, Record{PlayedSeconds: 200, TotalDurationSeconds: 1000, SavedAtMs: 20_000})
	_ = repo.Put(ctx, key, Record{PlayedSeconds: 100, TotalDurationSeconds: 1000, SavedAtMs: 10_000})

	rec, _, _ := repo.Get(ctx, key)
	if rec.SavedAtMs != 20_000 {
		t.Fatalf("expected newer record to win, got %+v", rec)
	}
}

func TestRepositoryInterface(t *testing.T) {
	var _ Repository = (*MemoryRepository)(nil)
	var _ Repository = (*PostgresRepository)(nil)
}
