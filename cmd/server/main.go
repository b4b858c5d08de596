package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/unifeed/config"
	"github.com/d60-Lab/unifeed/internal/action"
	"github.com/d60-Lab/unifeed/internal/api/handler"
	"github.com/d60-Lab/unifeed/internal/api/router"
	"github.com/d60-Lab/unifeed/internal/cache"
	"github.com/d60-Lab/unifeed/internal/feed"
	"github.com/d60-Lab/unifeed/internal/merge"
	"github.com/d60-Lab/unifeed/internal/model"
	"github.com/d60-Lab/unifeed/internal/remote"
	"github.com/d60-Lab/unifeed/internal/remote/mastodon"
	"github.com/d60-Lab/unifeed/internal/remote/twitter"
	"github.com/d60-Lab/unifeed/internal/repository"
	"github.com/d60-Lab/unifeed/internal/service"
	"github.com/d60-Lab/unifeed/internal/store"
	"github.com/d60-Lab/unifeed/pkg/database"
	"github.com/d60-Lab/unifeed/pkg/logger"
	"github.com/d60-Lab/unifeed/pkg/secret"
	"github.com/d60-Lab/unifeed/pkg/tracing"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func main() {
	cfg := must(config.Load())
	if err := logger.Init(cfg.App.Env); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.Telemetry.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Telemetry.SentryDSN, Environment: cfg.App.Env}); err != nil {
			panic(err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx := context.Background()
	shutdownTracing := must(tracing.Init(ctx, cfg.App.Name, cfg.Telemetry.OTLPEndpoint))
	defer func() { _ = shutdownTracing(ctx) }()

	db := must(database.InitDB(cfg))

	notifier := store.NewNotifier(10000)
	stopNotifier := notifier.Start(2)
	st := store.New(db, notifier)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	relCache := cache.NewRelationshipCache(rdb, cfg.Redis.CacheTTL)

	box := must(secret.NewBox(cfg.App.SecretKey))
	accountSvc := service.NewAccountService(repository.NewAccountRepository(db), box)

	clients := map[model.Platform]remote.Client{
		model.PlatformTwitter:  twitter.New(cfg.Vendors.Twitter.BaseURL, cfg.Vendors.Twitter.Timeout),
		model.PlatformMastodon: mastodon.New(cfg.Vendors.Mastodon.BaseURL, cfg.Vendors.Mastodon.Timeout),
	}

	engine := merge.NewEngine()
	tracker := feed.NewTracker()
	throttler := service.NewThrottler()
	timelineSvc := service.NewTimelineService(st, engine, tracker, clients, accountSvc, throttler, relCache)
	coordinator := action.NewCoordinator(st, engine, clients, accountSvc, relCache)

	refresher := service.NewRefresher(st, timelineSvc, throttler, time.Minute)
	stopRefresher := refresher.Start()

	// metrics endpoint
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		if err := http.ListenAndServe(cfg.Server.MetricsAddr, mux); err != nil {
			logger.Warn("metrics server stopped", zap.Error(err))
		}
	}()

	h := handler.New(coordinator, timelineSvc, accountSvc, relCache)
	r := router.New(cfg, h)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	_ = stopRefresher(shutdownCtx)
	_ = stopNotifier(shutdownCtx)
	logger.Info("server stopped")
}
