// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/Isaque-Sangley/recolab-v2/internal/events"
	"github.com/Isaque-Sangley/recolab-v2/internal/features"
	"github.com/Isaque-Sangley/recolab-v2/internal/logging"
	"github.com/Isaque-Sangley/recolab-v2/internal/ml/registry"
	"github.com/Isaque-Sangley/recolab-v2/internal/ml/serving"
	"github.com/Isaque-Sangley/recolab-v2/internal/recommend"
)

const (
	warmupWindow   = 7 * 24 * time.Hour
	warmupMaxUsers = 50
	warmupSlate    = 10
)

// registerSubscribers wires the in-process event consumers: feature
// invalidation on rating changes, and audit logging of the model
// lifecycle.
func registerSubscribers(ctx context.Context, bus *events.Bus, featureStore *features.Store) error {
	invalidate := func(_ context.Context, payload []byte) error {
		var event events.RatingEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return fmt.Errorf("decode rating event: %w", err)
		}
		featureStore.InvalidateUser(event.UserID)
		featureStore.InvalidateItem(event.MovieID)
		return nil
	}

	for _, topic := range []string{
		events.TopicRatingCreated,
		events.TopicRatingUpdated,
		events.TopicRatingDeleted,
	} {
		if err := bus.Subscribe(ctx, topic, "feature-invalidation", invalidate); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}

	audit := logging.WithComponent("model-audit")
	auditLog := func(topic string) events.Handler {
		return func(_ context.Context, payload []byte) error {
			audit.Info().
				Str("topic", topic).
				RawJSON("event", payload).
				Msg("Model lifecycle event")
			return nil
		}
	}

	for _, topic := range []string{
		events.TopicModelTrainingStarted,
		events.TopicModelTrainingCompleted,
		events.TopicModelDeployed,
		events.TopicModelRollback,
		events.TopicModelDegraded,
	} {
		if err := bus.Subscribe(ctx, topic, "model-audit", auditLog(topic)); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}

	return nil
}

// registerServingRefresh flushes serving state whenever the champion
// changes, then rebuilds slates for recently active users so the first
// requests after a deployment are not all cache misses.
func registerServingRefresh(
	ctx context.Context,
	bus *events.Bus,
	reg *registry.Registry,
	server *serving.Server,
	ratings recommend.RatingStore,
) error {
	log := logging.WithComponent("serving-refresh")

	refresh := func(ctx context.Context, payload []byte) error {
		var event events.DeploymentEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return fmt.Errorf("decode deployment event: %w", err)
		}

		reg.ClearCache()
		server.FlushResults()

		recent, err := ratings.FindSince(ctx, time.Now().Add(-warmupWindow))
		if err != nil {
			log.Warn().Err(err).Msg("Cache warmup skipped, cannot load recent ratings")
			return nil
		}
		seen := make(map[int]struct{})
		userIDs := make([]int, 0, warmupMaxUsers)
		for _, rating := range recent {
			if _, ok := seen[rating.UserID]; ok {
				continue
			}
			seen[rating.UserID] = struct{}{}
			userIDs = append(userIDs, rating.UserID)
			if len(userIDs) == warmupMaxUsers {
				break
			}
		}
		server.RecommendBatch(ctx, userIDs, warmupSlate, server.DefaultModelType())

		log.Info().
			Str("model_type", event.ModelType).
			Str("version", event.Version).
			Int("warmed_users", len(userIDs)).
			Msg("Serving caches refreshed after deployment")
		return nil
	}

	for _, topic := range []string{
		events.TopicModelDeployed,
		events.TopicModelRollback,
	} {
		if err := bus.Subscribe(ctx, topic, "serving-refresh", refresh); err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}
	}
	return nil
}
