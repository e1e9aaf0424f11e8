package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	platformconfig "github.com/example/vod-platform/internal/platform/config"
	"github.com/example/vod-platform/services/playback/internal/progress"
)

// ProgressEvent is the payload published by the HTTP layer for async
// watch-progress writes.
type ProgressEvent struct {
	EventID         string  `json:"event_id"`
	UserID          string  `json:"user_id"`
	ContentID       string  `json:"content_id"`
	EpisodeID       string  `json:"episode_id"`
	PositionSeconds float64 `json:"position_seconds"`
	DurationSeconds float64 `json:"duration_seconds"`
	ClientTsMs      int64   `json:"client_ts_ms"`
	CreatedAt       string  `json:"created_at"`
}

// StartProgressConsumer subscribes to playback.progress and applies events
// through the store (thresholds and completion-delete included). Events are
// deduplicated via processed_events when a DB pool is available.
func StartProgressConsumer(ctx context.Context, nc *nats.Conn, pool *pgxpool.Pool, store *progress.Store, log *zap.Logger) {
	js, err := nc.JetStream()
	if err != nil {
		log.Error("progress consumer: jetstream init failed", zap.Error(err))
		return
	}

	sub, err := js.PullSubscribe("playback.progress", "playback_progress")
	if err != nil {
		log.Error("progress consumer: subscribe failed", zap.Error(err))
		return
	}

	go func() {
		batchSize := platformconfig.EnvInt("WORKER_BATCH_SIZE", 100)
		batchWait := platformconfig.EnvDuration("WORKER_BATCH_WAIT", 2*time.Second)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			msgs, err := sub.Fetch(batchSize, nats.MaxWait(batchWait))
			if err != nil {
				if err == nats.ErrTimeout {
					continue
				}
				log.Warn("progress consumer: fetch failed", zap.Error(err))
				time.Sleep(time.Second)
				continue
			}

			for _, m := range msgs {
				if err := handleMessage(ctx, pool, store, log, m); err != nil {
					if nakErr := m.Nak(); nakErr != nil {
						log.Warn("progress consumer: nak failed", zap.Error(nakErr))
					}
					continue
				}
				if err := m.Ack(); err != nil {
					log.Warn("progress consumer: ack failed", zap.Error(err))
				}
			}
		}
	}()
}

func handleMessage(ctx context.Context, pool *pgxpool.Pool, store *progress.Store, log *zap.Logger, m *nats.Msg) error {
	var ev ProgressEvent
	if err := json.Unmarshal(m.Data, &ev); err != nil {
		// Malformed events can never succeed; drop them with an ack.
		log.Warn("progress consumer: invalid payload", zap.Error(err))
		return nil
	}

	if pool != nil && ev.EventID != "" {
		ct, err := pool.Exec(ctx,
			`INSERT INTO processed_events (event_id, subject, created_at, payload)
			 VALUES ($1, $2, $3, $4) ON CONFLICT (event_id) DO NOTHING`,
			ev.EventID, "playback.progress", ev.CreatedAt, m.Data)
		if err != nil {
			log.Warn("progress consumer: dedup insert failed", zap.String("event_id", ev.EventID), zap.Error(err))
			return err
		}
		if ct.RowsAffected() == 0 {
			// Already processed.
			return nil
		}
	}

	key := progress.Key{UserID: ev.UserID, ContentID: ev.ContentID, EpisodeID: ev.EpisodeID}
	nowMs := ev.ClientTsMs
	if nowMs == 0 {
		nowMs = time.Now().UnixMilli()
	}
	// The HTTP layer already spaced these out; apply without the throttle so
	// a redelivered batch cannot silently drop positions.
	store.ForceSave(ctx, key, ev.PositionSeconds, ev.DurationSeconds, nowMs)
	return nil
}
