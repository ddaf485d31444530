// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

package recommend

import (
	"context"
	"fmt"
	"time"

	"github.com/Isaque-Sangley/recolab-v2/internal/events"
	"github.com/Isaque-Sangley/recolab-v2/internal/logging"
	"github.com/Isaque-Sangley/recolab-v2/internal/metrics"
	"github.com/Isaque-Sangley/recolab-v2/internal/ml"
	"github.com/Isaque-Sangley/recolab-v2/internal/ml/registry"
	"github.com/Isaque-Sangley/recolab-v2/internal/ml/storage"
)

// Trainer fits models from the rating corpus and registers the result.
type Trainer struct {
	ratings   RatingStore
	registry  *registry.Registry
	publisher Publisher
	epochs    int
	now       func() time.Time
}

// TrainerOption configures a Trainer.
type TrainerOption func(*Trainer)

// WithTrainEpochs overrides the models' default SGD epoch count.
func WithTrainEpochs(epochs int) TrainerOption {
	return func(t *Trainer) { t.epochs = epochs }
}

// NewTrainer wires a model trainer.
func NewTrainer(ratings RatingStore, reg *registry.Registry, publisher Publisher, opts ...TrainerOption) *Trainer {
	t := &Trainer{
		ratings:   ratings,
		registry:  reg,
		publisher: publisher,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// TrainResult summarizes one training run.
type TrainResult struct {
	Metadata *storage.VersionMetadata `json:"metadata"`
	Metrics  map[string]float64       `json:"metrics"`
	Duration time.Duration            `json:"duration"`
	Promoted bool                     `json:"promoted"`
}

// Train fits a fresh model of the given type on the full rating set and
// registers the resulting version. With autoPromote, the new version
// becomes champion when no champion exists or when it beats the current
// champion's rmse.
func (t *Trainer) Train(ctx context.Context, modelType ml.ModelType, autoPromote bool) (*TrainResult, error) {
	start := t.now()
	t.publishTraining(ctx, events.TopicModelTrainingStarted, modelType, "", nil, nil)

	ratings, err := t.ratings.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load training ratings: %w", err)
	}

	set := ml.TrainingSet{
		UserIDs:  make([]int, len(ratings)),
		MovieIDs: make([]int, len(ratings)),
		Scores:   make([]float64, len(ratings)),
	}
	for i, r := range ratings {
		set.UserIDs[i] = r.UserID
		set.MovieIDs[i] = r.MovieID
		set.Scores[i] = float64(r.Score)
	}

	model, err := ml.NewWithEpochs(modelType, t.epochs)
	if err != nil {
		return nil, err
	}

	trainMetrics, err := model.Fit(ctx, set)
	if err != nil {
		t.publishTraining(ctx, events.TopicModelTrainingCompleted, modelType, "", nil, err)
		return nil, fmt.Errorf("fit %s: %w", modelType, err)
	}

	info := model.Info()
	meta, err := t.registry.Register(ctx, model, trainMetrics, map[string]interface{}{
		"factors":       info.Factors,
		"epochs":        info.Epochs,
		"train_samples": set.Len(),
	})
	if err != nil {
		return nil, err
	}

	elapsed := t.now().Sub(start)
	metrics.ModelTrainingDuration.WithLabelValues(string(modelType)).Observe(elapsed.Seconds())
	t.publishTraining(ctx, events.TopicModelTrainingCompleted, modelType, meta.Version, trainMetrics, nil)

	result := &TrainResult{
		Metadata: meta,
		Metrics:  trainMetrics,
		Duration: elapsed,
	}

	if autoPromote && t.shouldPromote(modelType, trainMetrics) {
		if err := t.registry.PromoteToChampion(ctx, modelType, meta.Version, registry.FullRollout()); err != nil {
			return nil, err
		}
		result.Promoted = true
	}

	logging.Ctx(ctx).Info().
		Str("model_type", string(modelType)).
		Str("version", meta.Version).
		Int("samples", set.Len()).
		Dur("elapsed", elapsed).
		Bool("promoted", result.Promoted).
		Msg("Model training completed")
	return result, nil
}

// shouldPromote compares the fresh metrics against the current champion.
// Lower rmse wins; with no champion (or no comparable metric) the new
// version is promoted.
func (t *Trainer) shouldPromote(modelType ml.ModelType, fresh map[string]float64) bool {
	champion, err := t.registry.GetChampion(modelType)
	if err != nil {
		return true
	}
	championRMSE, hasBaseline := champion.Metrics["rmse"]
	freshRMSE, hasFresh := fresh["rmse"]
	if !hasBaseline || !hasFresh {
		return true
	}
	return freshRMSE < championRMSE
}

func (t *Trainer) publishTraining(ctx context.Context, topic string, modelType ml.ModelType, version string, trainMetrics map[string]float64, trainErr error) {
	if t.publisher == nil {
		return
	}
	event := events.TrainingEvent{
		ModelType:  string(modelType),
		Version:    version,
		Metrics:    trainMetrics,
		OccurredAt: t.now().UTC(),
	}
	if trainErr != nil {
		event.Error = trainErr.Error()
	}
	if err := t.publisher.Publish(ctx, topic, event); err != nil {
		logging.CtxErr(ctx, err).Str("topic", topic).Msg("Failed to publish training event")
	}
}
