// Package main wires together the hot-list crawl service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"hotboard/internal/adapters"
	"hotboard/internal/api"
	"hotboard/internal/cache"
	"hotboard/internal/clock/system"
	"hotboard/internal/config"
	"hotboard/internal/fetch"
	"hotboard/internal/hotlist"
	"hotboard/internal/ingest"
	"hotboard/internal/logging"
	"hotboard/internal/metrics"
	"hotboard/internal/orchestrator"
	"hotboard/internal/pipeline"
	noopPublisher "hotboard/internal/publisher/noop"
	pubsubPublisher "hotboard/internal/publisher/pubsub"
	"hotboard/internal/scheduler"
	"hotboard/internal/storage/postgres"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()

	store, err := postgres.NewStore(ctx, postgres.StoreConfig{
		DSN:             cfg.DB.DSN,
		MaxConns:        cfg.DB.MaxConns,
		MinConns:        cfg.DB.MinConns,
		MaxConnLifetime: time.Duration(cfg.DB.MaxConnLifetimeMin) * time.Minute,
	})
	if err != nil {
		logger.Fatal("postgres init failed", zap.Error(err))
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatal("schema init failed", zap.Error(err))
	}

	var redisCache *cache.Redis
	var cacheIface hotlist.Cache
	if !cfg.Redis.DisableCache {
		redisCache = cache.NewRedis(cache.RedisConfig{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			DialTimeout:  time.Duration(cfg.Redis.DialTimeoutSec) * time.Second,
			ReadTimeout:  time.Duration(cfg.Redis.ReadTimeoutSec) * time.Second,
			WriteTimeout: time.Duration(cfg.Redis.WriteTimeoutSec) * time.Second,
			ScanBatch:    cfg.Redis.ScanBatchSize,
		})
		defer func() {
			_ = redisCache.Close()
		}()
		cacheIface = redisCache
	}
	invalidator := cache.NewInvalidator(cacheIface, logger)

	var publisher hotlist.Publisher = noopPublisher.New()
	if cfg.PubSub.ProjectID != "" {
		ps, err := pubsubPublisher.New(ctx, cfg.PubSub.ProjectID, cfg.PubSub.TopicName)
		if err != nil {
			logger.Warn("pubsub init failed, reports disabled", zap.Error(err))
		} else {
			publisher = ps
		}
	}
	defer func() {
		_ = publisher.Close()
	}()

	client := fetch.NewClient(fetch.Config{
		Timeout:     cfg.FetchTimeout(),
		MaxAttempts: cfg.HTTP.MaxAttempts,
		BackoffBase: time.Duration(cfg.HTTP.BackoffBaseMs) * time.Millisecond,
		UserAgent:   cfg.HTTP.UserAgent,
	}, logger.Named("fetch"))

	clock := system.New()
	orch := orchestrator.New(adapters.Build(adapters.Deps{
		Client: client,
		Logger: logger,
	}), cfg.AdapterTimeout(), logger)
	engine := ingest.New(store, clock, logger)
	pipe := pipeline.New(orch, engine, invalidator, publisher, logger)

	evictAfter := time.Duration(cfg.Scheduler.EvictAfterDays) * 24 * time.Hour
	cacheTTL := time.Duration(cfg.Redis.DefaultTTLSec) * time.Second
	jobs := []scheduler.Job{
		{
			Name:     "crawl",
			Interval: cfg.CrawlInterval(),
			Run: func(ctx context.Context) {
				pipe.RunAll(ctx)
			},
		},
		{
			Name:     "evict-stale",
			Interval: time.Duration(cfg.Scheduler.EvictIntervalHours) * time.Hour,
			Run: func(ctx context.Context) {
				removed, err := store.EvictStale(ctx, clock.Now().Add(-evictAfter))
				if err != nil {
					logger.Error("stale eviction failed", zap.Error(err))
					return
				}
				logger.Info("stale items evicted", zap.Int64("removed", removed))
			},
		},
		{
			Name:     "cache-sweep",
			Interval: time.Duration(cfg.Scheduler.CacheSweepMinutes) * time.Minute,
			Run: func(ctx context.Context) {
				invalidator.SweepTTL(ctx, cacheTTL)
			},
		},
	}
	sched, err := scheduler.New(jobs, logger)
	if err != nil {
		logger.Fatal("scheduler init failed", zap.Error(err))
	}
	sched.Start(ctx)

	apiServer := api.NewServer(pipe, sched, store, cacheIface, logger)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	sched.Shutdown()
	logger.Info("shutdown complete")
}
