package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salescrm/internal/config"
	"salescrm/internal/infra"
	"salescrm/internal/router"
	"salescrm/internal/service"
	"salescrm/internal/session"
	"salescrm/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func setupLogger(cfg *config.Config) {
	if cfg.LogFormat != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
}

func main() {
	// Structured logger: dev pretty, prod JSON
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg)

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	dialect, _ := infra.ParseDSN(cfg.DatabaseURL)
	log.Info().Str("dialect", string(dialect)).Msg("database ready")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Sessions live in Redis when it is configured, in memory otherwise.
	var (
		rdb   *redis.Client
		store session.Store
	)
	if cfg.RedisURL != "" {
		rdb, err = infra.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rdb.Close()
		store = session.NewRedisStore(rdb)
	} else {
		mem := session.NewMemoryStore()
		go mem.RunPurge(ctx, 10*time.Minute)
		store = mem
		log.Warn().Msg("REDIS_URL not set: sessions are kept in memory and lost on restart")
	}
	sessions := session.NewManager(store, cfg.SessionSecret, cfg.SessionTTL())

	// Entry notifications: worker handlers are wired here (composition root).
	var notifier service.EntryNotifier
	var pool *worker.Pool
	if cfg.NotificationsEnabled() {
		mailer := infra.NewMailer(cfg)
		pool = worker.NewPool(rdb, worker.QueueNotifications)
		pool.Handle(worker.JobEntrySubmitted, worker.NewNotificationWorker(mailer, cfg.NotifyEmail))
		pool.Start(ctx, cfg.WorkerPoolSize)
		worker.StartRetryCron(ctx, worker.RetryCronConfig{
			RDB:   rdb,
			Queue: worker.QueueNotifications,
			CB:    mailer.Breaker(),
		})
		notifier = worker.NewDispatcher(rdb)
	}

	r := router.New(cfg, db, rdb, sessions, notifier)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("salescrm listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	cancel()
	if pool != nil {
		pool.Wait()
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("server exited")
}
