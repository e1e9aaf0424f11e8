// Package dedupe provides exactly-once tracking for ad tracking events
// (impressions and clicks) reported by clients, which retry on flaky
// mobile networks.
//
// Primary backend: Redis SETNX with TTL (env REDIS_DSN).
// Fallback: Postgres INSERT ... ON CONFLICT over the service pool.
// If neither is available, an in-memory store is used (development only).
package dedupe

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store checks whether a tracking event has already been recorded and marks it.
type Store interface {
	// Check returns true if eventID was already recorded.
	// If not seen, it atomically marks it as recorded.
	Check(ctx context.Context, eventID string) (duplicate bool, err error)
}

// NewStore creates the best available dedupe store: Redis > Postgres >
// in-memory (dev fallback). When isProd is true the in-memory fallback is
// not allowed and an error is returned instead.
func NewStore(redisDSN string, pool *pgxpool.Pool, ttl time.Duration, isProd bool) (Store, error) {
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	if redisDSN != "" {
		return newRedisStore(redisDSN, ttl), nil
	}
	if pool != nil {
		return newPostgresStore(pool), nil
	}
	if isProd {
		return nil, errors.New("production requires REDIS_DSN or DATABASE_URL for ad event dedupe; in-memory store is not allowed")
	}
	return newMemoryStore(ttl), nil
}
