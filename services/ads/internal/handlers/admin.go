package handlers

import (
	"net/http"
	"time"

	"github.com/example/vod-platform/internal/platform/api"
	"github.com/example/vod-platform/services/ads/internal/inventory"
)

type refreshResponse struct {
	RefreshedAt time.Time `json:"refreshed_at"`
}

// InventoryRefresh forces a synchronous cache reload. Admin-only; the back
// office calls it after editing ad units so changes land without waiting for
// the periodic refresh.
func InventoryRefresh(cache *inventory.Cache, platform string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cache.Refresh(r.Context(), platform)
		api.WriteJSON(w, http.StatusOK, refreshResponse{RefreshedAt: cache.RefreshedAt()})
	}
}
