package dedupe

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresStore struct {
	pool *pgxpool.Pool
}

func newPostgresStore(pool *pgxpool.Pool) *postgresStore {
	return &postgresStore{pool: pool}
}

// Check uses INSERT ... ON CONFLICT to atomically deduplicate.
//
// Schema:
//
//	CREATE TABLE ad_tracking_events (
//	    event_id   TEXT PRIMARY KEY,
//	    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
//	);
func (s *postgresStore) Check(ctx context.Context, eventID string) (bool, error) {
	const q = `INSERT INTO ad_tracking_events (event_id, created_at)
	           VALUES ($1, now())
	           ON CONFLICT (event_id) DO NOTHING`

	tag, err := s.pool.Exec(ctx, q, eventID)
	if err != nil {
		return false, err
	}
	// RowsAffected == 0 means the row already existed (duplicate).
	return tag.RowsAffected() == 0, nil
}
