package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/example/vod-platform/internal/platform/auth"
	"github.com/example/vod-platform/services/playback/internal/progress"
	"github.com/example/vod-platform/services/playback/internal/resume"
)

// setupReq builds a request with chi URL params and optional user_id in context.
func setupReq(method, url, body string, params map[string]string, userID string) *http.Request {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, url, bytes.NewBufferString(body))
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if userID != "" {
		ctx = auth.WithUserID(ctx, userID)
	}
	return req.WithContext(ctx)
}

func newStore() *progress.Store {
	return progress.NewStore(progress.NewMemoryRepository(), progress.Options{}, zap.NewNop())
}

func TestUpsertProgress_SyncWrite(t *testing.T) {
	store := newStore()
	handler := UpsertProgress(store, nil)

	req := setupReq(http.MethodPut, "/v1/progress",
		`{"content_id":"c1","episode_id":"ep-1","position_seconds":600,"duration_seconds":2000}`,
		nil, "user-a")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rr.Code, rr.Body.String())
	}

	key := progress.Key{UserID: "user-a", ContentID: "c1", EpisodeID: "ep-1"}
	rec, ok := store.Load(context.Background(), key, time.Now().UnixMilli())
	if !ok || rec.PlayedSeconds != 600 {
		t.Fatalf("expected stored record, got %+v ok=%v", rec, ok)
	}
}

func TestUpsertProgress_Unauthorized(t *testing.T) {
	handler := UpsertProgress(newStore(), nil)
	req := setupReq(http.MethodPut, "/v1/progress", `{"content_id":"c1"}`, nil, "")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestUpsertProgress_MissingContentID(t *testing.T) {
	handler := UpsertProgress(newStore(), nil)
	req := setupReq(http.MethodPut, "/v1/progress", `{"position_seconds":600}`, nil, "user-a")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestGetProgress_FoundAndMissing(t *testing.T) {
	store := newStore()
	key := progress.Key{UserID: "user-a", ContentID: "c1", EpisodeID: "ep-1"}
	store.Save(context.Background(), key, 600, 2000, time.Now().UnixMilli())

	handler := GetProgress(store)
	req := setupReq(http.MethodGet, "/v1/progress/c1?episode_id=ep-1", "",
		map[string]string{"content_id": "c1"}, "user-a")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp progressResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.PositionSeconds != 600 {
		t.Fatalf("expected position 600, got %v", resp.PositionSeconds)
	}

	// Different episode: none stored.
	req = setupReq(http.MethodGet, "/v1/progress/c1?episode_id=ep-2", "",
		map[string]string{"content_id": "c1"}, "user-a")
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestDeleteProgress(t *testing.T) {
	store := newStore()
	key := progress.Key{UserID: "user-a", ContentID: "c1"}
	store.Save(context.Background(), key, 600, 2000, time.Now().UnixMilli())

	handler := DeleteProgress(store)
	req := setupReq(http.MethodDelete, "/v1/progress/c1", "",
		map[string]string{"content_id": "c1"}, "user-a")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if _, ok := store.Load(context.Background(), key, time.Now().UnixMilli()); ok {
		t.Fatal("expected record to be cleared")
	}
}

func TestContinueWatching_ReturnsUserItems(t *testing.T) {
	store := newStore()
	now := time.Now().UnixMilli()
	store.Save(context.Background(), progress.Key{UserID: "user-a", ContentID: "c1", EpisodeID: "ep-1"}, 600, 2000, now)
	store.Save(context.Background(), progress.Key{UserID: "user-b", ContentID: "c2"}, 700, 2000, now)

	handler := ContinueWatching(store)
	req := setupReq(http.MethodGet, "/v1/continue-watching", "", nil, "user-a")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp continueWatchingResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].ContentID != "c1" {
		t.Fatalf("expected only user-a items, got %+v", resp.Items)
	}
}

func TestPlayerEvents_ReadyRestores(t *testing.T) {
	store := newStore()
	key := progress.Key{UserID: "user-a", ContentID: "c1", EpisodeID: "ep-1"}
	store.Save(context.Background(), key, 600, 2000, time.Now().UnixMilli())

	manager := resume.NewSessionManager(store, time.Minute)
	handler := PlayerEvents(manager, nil)

	req := setupReq(http.MethodPost, "/v1/player/events",
		`{"session_id":"s1","content_id":"c1","episode_id":"ep-1","type":"ready","duration_seconds":2000}`,
		nil, "user-a")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp playerEventResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Restored || resp.PositionSeconds != 600 {
		t.Fatalf("expected restore to 600, got %+v", resp)
	}
}

func TestPlayerEvents_EndedClears(t *testing.T) {
	store := newStore()
	key := progress.Key{UserID: "user-a", ContentID: "c1", EpisodeID: "ep-1"}
	store.Save(context.Background(), key, 600, 2000, time.Now().UnixMilli())

	manager := resume.NewSessionManager(store, time.Minute)
	handler := PlayerEvents(manager, nil)

	req := setupReq(http.MethodPost, "/v1/player/events",
		`{"session_id":"s1","content_id":"c1","episode_id":"ep-1","type":"ended"}`,
		nil, "user-a")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if _, ok := store.Load(context.Background(), key, time.Now().UnixMilli()); ok {
		t.Fatal("expected ended event to clear progress")
	}
}

func TestPlayerEvents_UnknownType(t *testing.T) {
	manager := resume.NewSessionManager(newStore(), time.Minute)
	handler := PlayerEvents(manager, nil)

	req := setupReq(http.MethodPost, "/v1/player/events",
		`{"session_id":"s1","content_id":"c1","type":"seeked"}`, nil, "user-a")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}
