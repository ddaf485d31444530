// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

// Package main is the entry point for the RecoLab server.
//
// Startup order: configuration, logging, Postgres, event bus, model
// registry, serving layer, recommendation engine, HTTP server. The
// server shuts down gracefully on SIGINT/SIGTERM, draining in-flight
// requests before closing the database and event bus.
package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Isaque-Sangley/recolab-v2/internal/api"
	"github.com/Isaque-Sangley/recolab-v2/internal/cache"
	"github.com/Isaque-Sangley/recolab-v2/internal/config"
	"github.com/Isaque-Sangley/recolab-v2/internal/database"
	"github.com/Isaque-Sangley/recolab-v2/internal/events"
	"github.com/Isaque-Sangley/recolab-v2/internal/features"
	"github.com/Isaque-Sangley/recolab-v2/internal/logging"
	"github.com/Isaque-Sangley/recolab-v2/internal/ml"
	"github.com/Isaque-Sangley/recolab-v2/internal/ml/registry"
	"github.com/Isaque-Sangley/recolab-v2/internal/ml/serving"
	"github.com/Isaque-Sangley/recolab-v2/internal/ml/storage"
	"github.com/Isaque-Sangley/recolab-v2/internal/recommend"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("addr", cfg.Server.Addr()).
		Msg("Starting RecoLab")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logging.Fatal().Err(err).Msg("Server exited with error")
	}
	logging.Info().Msg("Shutdown complete")
}

func run(ctx context.Context, cfg *config.Config) error {
	db, err := database.Open(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Failed to close database")
		}
	}()

	bus := events.NewBus(cfg.Events)
	defer func() {
		if err := bus.Close(); err != nil {
			logging.Error().Err(err).Msg("Failed to close event bus")
		}
	}()

	fileStore, err := storage.NewFileStore(cfg.Models.Dir)
	if err != nil {
		return err
	}
	reg := registry.New(fileStore,
		registry.WithPublisher(bus),
		registry.WithDegradationThreshold(cfg.Models.DegradationThreshold),
	)

	defaultModel := ml.ModelType(cfg.Models.DefaultType)
	server := serving.NewServer(reg, serving.Config{
		DefaultModelType: defaultModel,
		CacheTTL:         cfg.Serving.CacheTTL,
		LatencyAlpha:     cfg.Serving.LatencyAlpha,
		BreakerThreshold: cfg.Serving.BreakerThreshold,
		BreakerTimeout:   cfg.Serving.BreakerTimeout,
	})

	if cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logging.Warn().Err(err).Msg("Redis unavailable, keeping in-process result cache")
		} else {
			server.WithResultCache(cache.NewRedis(client, "recolab:recs", cfg.Serving.CacheTTL))
			logging.Info().Str("addr", cfg.Redis.Addr).Msg("Serving cache backed by Redis")
		}
	}

	featureStore := features.NewStore()

	engine := recommend.NewEngine(
		db.Users(), db.Movies(), db.Ratings(), db.Recommendations(),
		server, cfg.Recommend, defaultModel,
	)
	ratingService := recommend.NewRatingService(
		db.Users(), db.Movies(), db.Ratings(), server, featureStore, bus,
	)
	trainer := recommend.NewTrainer(db.Ratings(), reg, bus,
		recommend.WithTrainEpochs(cfg.Models.TrainEpochs))

	if err := registerSubscribers(ctx, bus, featureStore); err != nil {
		return err
	}
	if err := registerServingRefresh(ctx, bus, reg, server, db.Ratings()); err != nil {
		return err
	}

	go trainingLoop(ctx, trainer, db, cfg.Models, defaultModel)

	handler := api.NewHandler(api.HandlerDeps{
		Engine:    engine,
		Ratings:   ratingService,
		Trainer:   trainer,
		Registry:  reg,
		Serving:   server,
		Features:  featureStore,
		Users:     db.Users(),
		Movies:    db.Movies(),
		DB:        db,
		Config:    cfg.API,
		Recommend: cfg.Recommend,
	})
	router := api.NewRouter(handler, cfg.Server)

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

// trainingLoop optionally trains on startup, then retrains on the
// configured interval. Training is skipped while the rating corpus is
// below the configured minimum.
func trainingLoop(ctx context.Context, trainer *recommend.Trainer, db *database.DB, cfg config.ModelsConfig, modelType ml.ModelType) {
	train := func() {
		ratings, err := db.Ratings().FindAll(ctx)
		if err != nil {
			logging.Error().Err(err).Msg("Training skipped, could not load ratings")
			return
		}
		if len(ratings) < cfg.MinInteractions {
			logging.Info().
				Int("ratings", len(ratings)).
				Int("required", cfg.MinInteractions).
				Msg("Training skipped, corpus below minimum")
			return
		}
		if _, err := trainer.Train(ctx, modelType, true); err != nil {
			logging.Error().Err(err).Msg("Scheduled training failed")
		}
	}

	if cfg.TrainOnStartup {
		train()
	}
	if cfg.TrainInterval <= 0 {
		return
	}

	ticker := time.NewTicker(cfg.TrainInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			train()
		}
	}
}
