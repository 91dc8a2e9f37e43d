package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/slidrapp/slidr/internal/api"
	"github.com/slidrapp/slidr/internal/broadcast"
	"github.com/slidrapp/slidr/internal/config"
	"github.com/slidrapp/slidr/internal/realtime"
	"github.com/slidrapp/slidr/internal/render"
	"github.com/slidrapp/slidr/internal/storage"
	"github.com/slidrapp/slidr/internal/store"
	"github.com/slidrapp/slidr/internal/upload"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(level)
	} else {
		logger.Warn().Str("level", cfg.LogLevel).Msg("unknown LOG_LEVEL, using info")
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx := context.Background()

	// Document store: PostgreSQL when configured, SQLite otherwise
	var docs store.DocumentStore
	if cfg.DatabaseURL != "" {
		logger.Info().Msg("running database migrations...")
		if err := store.RunMigrations(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		logger.Info().Msg("migrations completed")

		pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		docs = pgStore
		logger.Info().Msg("connected to PostgreSQL")
	} else {
		sqliteStore, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		docs = sqliteStore
		logger.Info().Str("path", cfg.SQLitePath).Msg("using SQLite")
	}
	defer docs.Close()

	// Sync transports: in-process always, Redis when configured
	local := broadcast.NewLocalTransport()
	defer local.Close()
	transports := []broadcast.Transport{local}

	var redisStore *store.RedisStore
	if cfg.RedisURL != "" {
		var err error
		redisStore, err = store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisStore.Close()

		redisTransport := broadcast.NewRedisTransport(redisStore.Client(), broadcast.RedisTransportOptions{
			Logger: logger,
		})
		defer redisTransport.Close()
		transports = append(transports, redisTransport)
		logger.Info().Msg("connected to Redis")
	}

	bucket, err := storage.NewFileBucket(cfg.StorageDir, cfg.PublicURL+"/files")
	if err != nil {
		logger.Fatal().Err(err).Msg("storage init failed")
	}

	rtOpts := realtime.Options{
		Presentations:     docs,
		Transports:        transports,
		HeartbeatInterval: cfg.HeartbeatInterval,
		Logger:            logger,
	}
	if redisStore != nil {
		rtOpts.Reactions = redisStore
	}
	rt := realtime.NewServer(rtOpts)

	pipelineOpts := upload.Options{
		Store:      docs,
		Bucket:     bucket,
		Renderer:   render.NewFitzRenderer(),
		OnRendered: rt.Rendered,
		Width:      cfg.RenderWidth,
		Logger:     logger,
	}
	if redisStore != nil {
		pipelineOpts.Cache = redisStore
	}
	pipeline := upload.NewPipeline(pipelineOpts)
	defer pipeline.Close()

	router := api.NewRouter(api.Deps{
		Logger:   logger,
		Config:   cfg,
		Store:    docs,
		Redis:    redisStore,
		Bucket:   bucket,
		Pipeline: pipeline,
		Realtime: rt,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Int("transports", len(transports)).
			Msg("starting slidr server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Hijacked websocket connections are not tracked by Shutdown.
	rt.Shutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
