// Command server runs the media analysis backend.
//
// Startup order: load .env and config, set the global log level, initialize
// tracing, connect to MongoDB and ensure indexes, build the Cloudinary and
// Gemini clients, wire the HTTP router, and serve until SIGINT/SIGTERM with
// a graceful drain.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/trueai/go-detect-backend/internal/config"
	httpapi "github.com/trueai/go-detect-backend/internal/http"
	"github.com/trueai/go-detect-backend/internal/llm"
	"github.com/trueai/go-detect-backend/internal/observability"
	"github.com/trueai/go-detect-backend/internal/repo"
	"github.com/trueai/go-detect-backend/internal/staging"
	"github.com/trueai/go-detect-backend/internal/storage"
	"github.com/trueai/go-detect-backend/internal/sysutil"
)

// version is stamped at build time via -ldflags.
var version = "dev"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown error")
		}
	}()

	// MongoDB
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	client, db, err := repo.Connect(connectCtx, cfg.Mongo.URI, cfg.Mongo.DBName)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("mongodb connection failed")
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(dctx); err != nil {
			log.Warn().Err(err).Msg("mongodb disconnect error")
		}
	}()
	if err := repo.EnsureIndexes(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("mongodb index creation failed")
	}

	// Object storage
	store, err := storage.New(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret)
	if err != nil {
		log.Fatal().Err(err).Msg("cloudinary client init failed")
	}

	// Inference
	genaiClient, err := llm.NewGeminiClient(ctx, cfg.Gemini.APIKey)
	if err != nil {
		log.Fatal().Err(err).Msg("gemini client init failed")
	}
	defer genaiClient.Close()
	classifier := llm.NewClassifier(genaiClient, cfg.Gemini.Model)
	classifier.PollInterval = cfg.Gemini.PollInterval
	classifier.PollMaxAttempts = cfg.Gemini.PollMaxAttempts

	// Upload staging
	stage := staging.NewStore(cfg.StagingDir)
	stage.MaxBytes = cfg.MaxUploadBytes

	// HTTP
	r := gin.New()
	if err := httpapi.RegisterRoutes(r, httpapi.Deps{
		DB:         db,
		Store:      store,
		Classifier: classifier,
		Staging:    stage,
	}, cfg); err != nil {
		log.Fatal().Err(err).Msg("router setup failed")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(drainCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}
