// Package config loads shared service configuration from the environment.
// Service-specific settings live in each service's internal/config package
// and use the Env* helpers exported here.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type HTTPConfig struct {
	Addr string
}

type AppConfig struct {
	ServiceName string
	Env         string // "production" tightens fallbacks (e.g. no in-memory dedup)
	LogLevel    string
	HTTP        HTTPConfig
}

func (c AppConfig) IsProd() bool {
	return strings.EqualFold(c.Env, "production") || strings.EqualFold(c.Env, "prod")
}

func Load() (AppConfig, error) {
	cfg := AppConfig{
		ServiceName: EnvStr("SERVICE_NAME", ""),
		Env:         EnvStr("APP_ENV", "development"),
		LogLevel:    EnvStr("LOG_LEVEL", "info"),
		HTTP: HTTPConfig{
			Addr: EnvStr("HTTP_ADDR", ":8080"),
		},
	}
	if cfg.ServiceName == "" {
		return AppConfig{}, errors.New("SERVICE_NAME is required")
	}
	return cfg, nil
}

// EnvStr returns the trimmed value of key, or fallback when unset/blank.
func EnvStr(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

// EnvInt returns the integer value of key, or fallback when unset or invalid.
func EnvInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// EnvDuration returns the parsed duration of key, or fallback when unset or invalid.
func EnvDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// EnvBool returns the boolean value of key, or fallback when unset.
// "0", "false" and "no" (any case) read as false; anything else as true.
func EnvBool(key string, fallback bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return fallback
	}
	return v != "0" && v != "false" && v != "no"
}
