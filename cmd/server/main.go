package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/yuehengyu/Lunara/internal/api"
	"github.com/yuehengyu/Lunara/internal/clock"
	"github.com/yuehengyu/Lunara/internal/config"
	"github.com/yuehengyu/Lunara/internal/delivery"
	"github.com/yuehengyu/Lunara/internal/engine"
	"github.com/yuehengyu/Lunara/internal/store"
	ws "github.com/yuehengyu/Lunara/internal/websocket"
	"github.com/yuehengyu/Lunara/internal/worker"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	digestZone, err := time.LoadLocation(cfg.DigestZone)
	if err != nil {
		logger.Error("unknown digest zone", "zone", cfg.DigestZone, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pgStore, err := store.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pgStore.Close()
	logger.Info("connected to PostgreSQL")

	if err := pgStore.RunMigrations(ctx, "migrations"); err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database migrations applied")

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Error("invalid redis URL", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	logger.Info("connected to Redis")

	clk := clock.System{}
	gateway := delivery.NewWebhookGateway(pgStore, logger)
	cache := engine.NewRedisDedupeCache(redisClient, logger)

	evaluator := engine.NewEvaluator(pgStore, pgStore, gateway, cache, clk, engine.Config{
		LookBack:      cfg.LookBack,
		LookAhead:     cfg.LookAhead,
		RolloverGrace: time.Duration(cfg.RolloverGraceMinutes) * time.Minute,
		ReapGrace:     time.Duration(cfg.ReapGraceMinutes) * time.Minute,
		SafetyGrace:   time.Duration(cfg.SafetyReapGraceMinutes) * time.Minute,
		DigestZone:    digestZone,
		PreviewCount:  cfg.PreviewCount,
	}, logger)

	hub := ws.NewHub(logger)
	evaluator.SetFeed(hub)

	// The cooperative instant-check loop.
	runner := worker.NewRunner(evaluator, cfg.CheckInterval, logger)
	go runner.Start(ctx)

	// The once-daily digest, framed in the reference zone.
	sched := cron.New(cron.WithLocation(digestZone))
	if _, err := sched.AddFunc(cfg.DigestCron, func() {
		if _, err := evaluator.RunDigest(context.Background()); err != nil {
			logger.Error("digest pass failed", "error", err)
		}
	}); err != nil {
		logger.Error("invalid digest cron spec", "spec", cfg.DigestCron, "error", err)
		os.Exit(1)
	}
	sched.Start()
	defer sched.Stop()

	router := api.NewRouter(pgStore, evaluator, clk, hub, logger)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")
	cancel() // stops scheduling runner ticks; an in-flight pass completes

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
