package progress

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is the production Postgres-backed Repository.
//
// Schema:
//
//	CREATE TABLE watch_progress (
//	    user_id       TEXT NOT NULL,
//	    content_id    TEXT NOT NULL,
//	    unit_id       TEXT NOT NULL, -- episode id or 'movie'
//	    played_seconds         DOUBLE PRECISION NOT NULL,
//	    total_duration_seconds DOUBLE PRECISION NOT NULL,
//	    saved_at_ms   BIGINT NOT NULL,
//	    PRIMARY KEY (user_id, content_id, unit_id)
//	);
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Put(ctx context.Context, key Key, rec Record) error {
	q := `
INSERT INTO watch_progress (user_id, content_id, unit_id, played_seconds, total_duration_seconds, saved_at_ms)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (user_id, content_id, unit_id)
DO UPDATE SET
  played_seconds         = EXCLUDED.played_seconds,
  total_duration_seconds = EXCLUDED.total_duration_seconds,
  saved_at_ms            = EXCLUDED.saved_at_ms
WHERE watch_progress.saved_at_ms <= EXCLUDED.saved_at_ms`

	_, err := r.db.Exec(ctx, q,
		key.UserID, key.ContentID, key.Unit(),
		rec.PlayedSeconds, rec.TotalDurationSeconds, rec.SavedAtMs,
	)
	if err != nil {
		return fmt.Errorf("watch_progress upsert: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, key Key) (Record, bool, error) {
	q := `SELECT played_seconds, total_duration_seconds, saved_at_ms
	      FROM watch_progress WHERE user_id=$1 AND content_id=$2 AND unit_id=$3`
	var rec Record
	err := r.db.QueryRow(ctx, q, key.UserID, key.ContentID, key.Unit()).
		Scan(&rec.PlayedSeconds, &rec.TotalDurationSeconds, &rec.SavedAtMs)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, false, nil
		}
		return Record{}, false, fmt.Errorf("watch_progress select: %w", err)
	}
	return rec, true, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, key Key) error {
	q := `DELETE FROM watch_progress WHERE user_id=$1 AND content_id=$2 AND unit_id=$3`
	if _, err := r.db.Exec(ctx, q, key.UserID, key.ContentID, key.Unit()); err != nil {
		return fmt.Errorf("watch_progress delete: %w", err)
	}
	return nil
}

func (r *PostgresRepository) List(ctx context.Context, userID string, limit int) ([]Entry, error) {
	q := `SELECT content_id, unit_id, played_seconds, total_duration_seconds, saved_at_ms
	      FROM watch_progress WHERE user_id=$1
	      ORDER BY saved_at_ms DESC LIMIT $2`
	rows, err := r.db.Query(ctx, q, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("watch_progress list: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e := Entry{Key: Key{UserID: userID}}
		var unit string
		if err := rows.Scan(&e.Key.ContentID, &unit, &e.Record.PlayedSeconds, &e.Record.TotalDurationSeconds, &e.Record.SavedAtMs); err != nil {
			return nil, fmt.Errorf("watch_progress scan: %w", err)
		}
		if unit != movieSentinel {
			e.Key.EpisodeID = unit
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
