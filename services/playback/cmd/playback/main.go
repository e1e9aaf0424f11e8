package main

import (
	"context"

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
	playbackconfig "github.com/example/vod-platform/services/playback/internal/config"
	playbackhandlers "github.com/example/vod-platform/services/playback/internal/handlers"
	"github.com/example/vod-platform/services/playback/internal/progress"
	"github.com/example/vod-platform/services/playback/internal/resume"
	"github.com/example/vod-platform/services/playback/internal/worker"
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

	pbCfg, err := playbackconfig.LoadPlayback()
	if err != nil {
		log.Error("load playback config", zap.Error(err))
		run.Exit(1)
	}

	ctx := context.Background()

	var repo progress.Repository
	var pool *pgxpool.Pool
	if pbCfg.DatabaseURL != "" {
		pool, err = db.Open(ctx, pbCfg.DatabaseURL)
		if err != nil {
			log.Error("db open", zap.Error(err))
			run.Exit(1)
		}
		defer pool.Close()
		repo = progress.NewPostgresRepository(pool)
	} else {
		if cfg.IsProd() {
			log.Error("DATABASE_URL is required in production")
			run.Exit(1)
		}
		log.Warn("no DATABASE_URL set, using in-memory progress repository")
		repo = progress.NewMemoryRepository()
	}

	store := progress.NewStore(repo, pbCfg.Progress, log)
	manager := resume.NewSessionManager(store, pbCfg.SessionIdleTTL)

	var publisher *playbackhandlers.EventPublisher
	ap := analytics.New(nil, log)
	nc, err := natsconn.Connect(natsconn.Options{})
	if err != nil {
		log.Warn("nats connect failed, async writes and analytics disabled", zap.Error(err))
	} else {
		defer nc.Close()
		if js, jsErr := nc.JetStream(); jsErr == nil {
			publisher = playbackhandlers.NewEventPublisher(js)
			ap = analytics.New(js, log)
		}
	}

	r := chi.NewRouter()
	httpserver.SetupRouter(r)

	verifier := auth.JWTVerifier{Secret: pbCfg.JWTSecret}
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireUser(verifier))
		r.Put("/v1/progress", playbackhandlers.UpsertProgress(store, publisher))
		r.Get("/v1/progress/{content_id}", playbackhandlers.GetProgress(store))
		r.Delete("/v1/progress/{content_id}", playbackhandlers.DeleteProgress(store))
		r.Get("/v1/continue-watching", playbackhandlers.ContinueWatching(store))
		r.Post("/v1/player/events", playbackhandlers.PlayerEvents(manager, ap))
	})

	srv := httpserver.New(httpserver.Options{Addr: cfg.HTTP.Addr, ServiceName: cfg.ServiceName, Logger: log, Router: r})

	runner := run.New(log)
	code := runner.WithSignals(func(ctx context.Context) error {
		manager.StartJanitor(ctx)
		if nc != nil {
			worker.StartProgressConsumer(ctx, nc, pool, store, log)
		}
		go func() {
			<-ctx.Done()
			_ = srv.Shutdown(context.Background())
		}()
		return srv.Start(log)
	})

	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}
