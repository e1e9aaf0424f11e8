package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/vod-platform/services/ads/internal/inventory"
)

// PostgresGateway is the production Gateway.
//
// Schema:
//
//	CREATE TABLE ad_units (
//	    id                 TEXT PRIMARY KEY,
//	    kind               TEXT NOT NULL,
//	    placement          TEXT NOT NULL,
//	    platform_target    TEXT NOT NULL DEFAULT 'both',
//	    active             BOOLEAN NOT NULL DEFAULT TRUE,
//	    test_mode          BOOLEAN NOT NULL DEFAULT FALSE,
//	    priority           INT NOT NULL DEFAULT 0,
//	    creative_url       TEXT NOT NULL DEFAULT '',
//	    click_url          TEXT NOT NULL DEFAULT '',
//	    reward_amount      INT NOT NULL DEFAULT 0,
//	    reward_type        TEXT NOT NULL DEFAULT '',
//	    skip_after_seconds INT NOT NULL DEFAULT 0,
//	    duration_seconds   DOUBLE PRECISION NOT NULL DEFAULT 0
//	);
//
//	CREATE TABLE ad_settings (
//	    key   TEXT PRIMARY KEY,
//	    value JSONB NOT NULL
//	);
//
//	CREATE TABLE ad_counters (
//	    ad_id       TEXT NOT NULL,
//	    counter     TEXT NOT NULL,
//	    value       BIGINT NOT NULL DEFAULT 0,
//	    PRIMARY KEY (ad_id, counter)
//	);
//
//	CREATE TABLE subscriptions (
//	    user_id    TEXT PRIMARY KEY,
//	    expires_at TIMESTAMPTZ NOT NULL
//	);
type PostgresGateway struct {
	db *pgxpool.Pool
}

func NewPostgresGateway(db *pgxpool.Pool) *PostgresGateway {
	return &PostgresGateway{db: db}
}

func (g *PostgresGateway) QueryAdUnits(ctx context.Context, f inventory.Filter) ([]inventory.Unit, error) {
	q := `SELECT id, kind, placement, platform_target, active, test_mode, priority,
	             creative_url, click_url, reward_amount, reward_type,
	             skip_after_seconds, duration_seconds
	      FROM ad_units
	      WHERE ($1 = FALSE OR active = TRUE)
	        AND (platform_target = 'both' OR platform_target = $2)
	      ORDER BY priority DESC, id`
	rows, err := g.db.Query(ctx, q, f.Active, f.Platform)
	if err != nil {
		return nil, fmt.Errorf("ad_units select: %w", err)
	}
	defer rows.Close()

	var out []inventory.Unit
	for rows.Next() {
		var u inventory.Unit
		if err := rows.Scan(
			&u.ID, &u.Kind, &u.Placement, &u.PlatformTarget, &u.Active, &u.TestMode, &u.Priority,
			&u.CreativeURL, &u.ClickURL, &u.RewardAmount, &u.RewardType,
			&u.SkipAfterSeconds, &u.DurationSeconds,
		); err != nil {
			return nil, fmt.Errorf("ad_units scan: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (g *PostgresGateway) QueryAdSettings(ctx context.Context, keys []string) (map[string]json.RawMessage, error) {
	q := `SELECT key, value FROM ad_settings WHERE key = ANY($1)`
	rows, err := g.db.Query(ctx, q, keys)
	if err != nil {
		return nil, fmt.Errorf("ad_settings select: %w", err)
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage, len(keys))
	for rows.Next() {
		var key string
		var value json.RawMessage
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("ad_settings scan: %w", err)
		}
		out[key] = value
	}
	return out, rows.Err()
}

func (g *PostgresGateway) IncrementAdCounter(ctx context.Context, adID, counter string) error {
	q := `INSERT INTO ad_counters (ad_id, counter, value) VALUES ($1, $2, 1)
	      ON CONFLICT (ad_id, counter) DO UPDATE SET value = ad_counters.value + 1`
	if _, err := g.db.Exec(ctx, q, adID, counter); err != nil {
		return fmt.Errorf("ad_counters increment: %w", err)
	}
	return nil
}

func (g *PostgresGateway) ActiveSubscription(ctx context.Context, userID string) (bool, error) {
	q := `SELECT expires_at > NOW() FROM subscriptions WHERE user_id = $1`
	var active bool
	err := g.db.QueryRow(ctx, q, userID).Scan(&active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("subscriptions select: %w", err)
	}
	return active, nil
}

var _ Gateway = (*PostgresGateway)(nil)
