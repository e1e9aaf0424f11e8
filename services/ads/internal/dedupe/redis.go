package dedupe

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// All tracking-event keys live under one prefix so operators can inspect
// and flush them without touching unrelated keyspaces.
const redisKeyPrefix = "ads:dedupe:"

type redisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func newRedisStore(dsn string, ttl time.Duration) *redisStore {
	opts, err := redis.ParseURL(dsn)
	if err != nil {
		// Plain host:port DSNs are accepted too.
		opts = &redis.Options{Addr: dsn}
	}
	return &redisStore{rdb: redis.NewClient(opts), ttl: ttl}
}

// Check marks eventID as seen for the TTL window. SETNX answers both
// questions in one round trip: set means first sighting, not-set means the
// event was already recorded.
func (s *redisStore) Check(ctx context.Context, eventID string) (bool, error) {
	firstSighting, err := s.rdb.SetNX(ctx, redisKeyPrefix+eventID, 1, s.ttl).Result()
	if err != nil {
		return false, err
	}
	return !firstSighting, nil
}
