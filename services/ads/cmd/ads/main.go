package main

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/example/vod-platform/internal/platform/analytics"
	"github.com/example/vod-platform/internal/platform/auth"
	"github.com/example/vod-platform/internal/platform/config"
	"github.com/example/vod-platform/internal/platform/db"
	"github.com/example/vod-platform/internal/platform/httpserver"
	"github.com/example/vod-platform/internal/platform/logging"
	"github.com/example/vod-platform/internal/platform/natsconn"
	"github.com/example/vod-platform/internal/platform/run"
	"github.com/example/vod-platform/internal/platform/signing"
	adsconfig "github.com/example/vod-platform/services/ads/internal/config"
	"github.com/example/vod-platform/services/ads/internal/dedupe"
	"github.com/example/vod-platform/services/ads/internal/gating"
	"github.com/example/vod-platform/services/ads/internal/gateway"
	adshandlers "github.com/example/vod-platform/services/ads/internal/handlers"
	"github.com/example/vod-platform/services/ads/internal/inventory"
	"github.com/example/vod-platform/services/ads/internal/orchestrator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(cfg.ServiceName, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	adsCfg, err := adsconfig.LoadAds()
	if err != nil {
		log.Error("load ads config", zap.Error(err))
		run.Exit(1)
	}

	ctx := context.Background()

	var gw gateway.Gateway
	var pool *pgxpool.Pool
	if adsCfg.DatabaseURL != "" {
		pool, err = db.Open(ctx, adsCfg.DatabaseURL)
		if err != nil {
			log.Error("db open", zap.Error(err))
			run.Exit(1)
		}
		defer pool.Close()
		gw = gateway.NewPostgresGateway(pool)
	} else {
		if cfg.IsProd() {
			log.Error("DATABASE_URL is required in production")
			run.Exit(1)
		}
		log.Warn("no DATABASE_URL set, using in-memory ad gateway")
		gw = gateway.NewMemoryGateway()
	}

	dd, err := dedupe.NewStore(adsCfg.RedisDSN, pool, adsCfg.DedupeTTL, cfg.IsProd())
	if err != nil {
		log.Error("dedupe store", zap.Error(err))
		run.Exit(1)
	}

	cache := inventory.NewCache(gw, adsCfg.FetchTimeout, log)
	cache.Refresh(ctx, adsCfg.Platform)

	registry := gating.NewRegistry(adsCfg.SessionIdleTTL)
	manager := orchestrator.NewManager(adsCfg.PresentationTTL)

	ap := analytics.New(nil, log)
	nc, err := natsconn.Connect(natsconn.Options{})
	if err != nil {
		log.Warn("nats connect failed, analytics and cache invalidation disabled", zap.Error(err))
	} else {
		defer nc.Close()
		if js, jsErr := nc.JetStream(); jsErr == nil {
			ap = analytics.New(js, log)
		}
		if err := cache.SubscribeInvalidate(ctx, nc, adsCfg.InvalidateSubject, adsCfg.Platform); err != nil {
			log.Warn("cache invalidation subscribe failed", zap.Error(err))
		}
	}

	var presenter orchestrator.Presenter = orchestrator.PlainPresenter{}
	if adsCfg.CreativeProxyURL != "" && adsCfg.CreativeSecret != "" {
		presenter = orchestrator.SignedPresenter{
			Signer:   signing.New(adsCfg.CreativeSecret),
			ProxyURL: adsCfg.CreativeProxyURL,
			TTL:      adsCfg.CreativeTTL,
		}
	}

	tracker := adshandlers.NewTracker(dd, gw, registry, ap, log)

	r := chi.NewRouter()
	httpserver.SetupRouter(r)

	verifier := auth.JWTVerifier{Secret: adsCfg.JWTSecret}
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(verifier))
		r.Get("/v1/ads/decision", adshandlers.Decision(cache, registry, gw, presenter, manager, tracker, log))
		r.Post("/v1/ads/{ad_id}/impression", adshandlers.Impression(cache, tracker))
		r.Post("/v1/ads/{ad_id}/click", adshandlers.Click(cache, tracker))
		r.Post("/v1/ads/presentations/{presentation_id}/events", adshandlers.PresentationEvents(manager))
		r.Get("/v1/ads/session", adshandlers.SessionState(registry))
		r.Post("/v1/ads/session/reset", adshandlers.SessionReset(registry))

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Post("/v1/ads/inventory/refresh", adshandlers.InventoryRefresh(cache, adsCfg.Platform))
		})
	})

	srv := httpserver.New(httpserver.Options{Addr: cfg.HTTP.Addr, ServiceName: cfg.ServiceName, Logger: log, Router: r})

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		go refreshLoop(ctx, cache, adsCfg.Platform, adsCfg.RefreshInterval)
		go registry.StartJanitor(ctx.Done(), time.Hour)
		go manager.StartJanitor(ctx.Done(), time.Minute)
		go func() {
			<-ctx.Done()
			_ = srv.Shutdown(context.Background())
		}()
		return srv.Start(log)
	})

	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}

// refreshLoop reloads the inventory cache on a fixed interval.
func refreshLoop(ctx context.Context, cache *inventory.Cache, platform string, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			cache.Refresh(ctx, platform)
		}
	}
}
