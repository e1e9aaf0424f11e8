package config

import (
	"errors"
	"os"
	"strings"
	"time"

	platformconfig "github.com/example/vod-platform/internal/platform/config"
	"github.com/example/vod-platform/services/playback/internal/progress"
)

type PlaybackConfig struct {
	JWTSecret      []byte
	DatabaseURL    string // empty: in-memory repository (development only)
	Progress       progress.Options
	SessionIdleTTL time.Duration
}

func LoadPlayback() (PlaybackConfig, error) {
	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if secret == "" {
		return PlaybackConfig{}, errors.New("JWT_SECRET is required")
	}
	return PlaybackConfig{
		JWTSecret:   []byte(secret),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		Progress: progress.Options{
			MinProgressPercent: float64(platformconfig.EnvInt("PROGRESS_MIN_PERCENT", 1)),
			MaxProgressPercent: float64(platformconfig.EnvInt("PROGRESS_MAX_PERCENT", 95)),
			SaveInterval:       platformconfig.EnvDuration("PROGRESS_SAVE_INTERVAL", 5*time.Second),
			MaxAge:             platformconfig.EnvDuration("PROGRESS_MAX_AGE", 30*24*time.Hour),
		},
		SessionIdleTTL: platformconfig.EnvDuration("PLAYER_SESSION_IDLE_TTL", 30*time.Minute),
	}, nil
}
