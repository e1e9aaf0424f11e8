package config

import (
	"errors"
	"os"
	"strings"
	"time"

	platformconfig "github.com/example/vod-platform/internal/platform/config"
)

type AdsConfig struct {
	JWTSecret   []byte
	DatabaseURL string // empty: in-memory gateway (development only)
	RedisDSN    string // empty: dedupe falls back to Postgres or memory

	// Platform the inventory cache is loaded for.
	Platform string

	RefreshInterval   time.Duration
	FetchTimeout      time.Duration
	InvalidateSubject string

	DedupeTTL       time.Duration
	SessionIdleTTL  time.Duration
	PresentationTTL time.Duration

	// CreativeProxyURL, when set together with CreativeSecret, routes
	// creatives through the signed delivery proxy.
	CreativeProxyURL string
	CreativeSecret   string
	CreativeTTL      time.Duration
}

func LoadAds() (AdsConfig, error) {
	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if secret == "" {
		return AdsConfig{}, errors.New("JWT_SECRET is required")
	}
	return AdsConfig{
		JWTSecret:   []byte(secret),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		RedisDSN:    strings.TrimSpace(os.Getenv("REDIS_DSN")),

		Platform: platformconfig.EnvStr("ADS_PLATFORM", "android"),

		RefreshInterval:   platformconfig.EnvDuration("ADS_REFRESH_INTERVAL", 5*time.Minute),
		FetchTimeout:      platformconfig.EnvDuration("ADS_FETCH_TIMEOUT", 8*time.Second),
		InvalidateSubject: platformconfig.EnvStr("ADS_INVALIDATE_SUBJECT", "ads.inventory.invalidate"),

		DedupeTTL:       platformconfig.EnvDuration("ADS_DEDUPE_TTL", 48*time.Hour),
		SessionIdleTTL:  platformconfig.EnvDuration("ADS_SESSION_IDLE_TTL", 12*time.Hour),
		PresentationTTL: platformconfig.EnvDuration("ADS_PRESENTATION_TTL", 10*time.Minute),

		CreativeProxyURL: strings.TrimSpace(os.Getenv("ADS_CREATIVE_PROXY_URL")),
		CreativeSecret:   strings.TrimSpace(os.Getenv("ADS_CREATIVE_SECRET")),
		CreativeTTL:      platformconfig.EnvDuration("ADS_CREATIVE_TTL", 15*time.Minute),
	}, nil
}
