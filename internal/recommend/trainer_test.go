// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

package recommend

import (
	"context"
	"testing"
	"time"

	"github.com/Isaque-Sangley/recolab-v2/internal/ml"
	"github.com/Isaque-Sangley/recolab-v2/internal/ml/registry"
	"github.com/Isaque-Sangley/recolab-v2/internal/ml/storage"
)

func trainerFixture(t *testing.T) (*Trainer, *registry.Registry, *memRatingStore, *capturingPublisher) {
	t.Helper()

	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	pub := &capturingPublisher{}
	reg := registry.New(store, registry.WithPublisher(pub))

	now := time.Now()
	ratings := newMemRatingStore(
		mustRating(t, 1, 10, 5.0, now),
		mustRating(t, 1, 11, 4.5, now),
		mustRating(t, 2, 10, 4.0, now),
		mustRating(t, 2, 12, 2.0, now),
		mustRating(t, 3, 11, 4.5, now),
		mustRating(t, 3, 12, 1.5, now),
		mustRating(t, 4, 10, 4.5, now),
		mustRating(t, 4, 11, 4.0, now),
		mustRating(t, 4, 12, 2.5, now),
		mustRating(t, 5, 10, 3.5, now),
	)
	return NewTrainer(ratings, reg, pub), reg, ratings, pub
}

func TestTrainRegistersAndPromotes(t *testing.T) {
	trainer, reg, _, pub := trainerFixture(t)
	ctx := context.Background()

	result, err := trainer.Train(ctx, ml.TypeNeuralCF, true)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if result.Metadata.Version != "v1" {
		t.Errorf("version = %s, want v1", result.Metadata.Version)
	}
	if !result.Promoted {
		t.Error("first trained version should become champion")
	}
	if _, ok := result.Metrics["rmse"]; !ok {
		t.Errorf("metrics = %v, want rmse present", result.Metrics)
	}

	champion, err := reg.GetChampion(ml.TypeNeuralCF)
	if err != nil {
		t.Fatalf("GetChampion: %v", err)
	}
	if champion.Version != "v1" {
		t.Errorf("champion = %s, want v1", champion.Version)
	}

	// Training lifecycle events were published in order.
	topics := pub.topics()
	sawStart, sawComplete := false, false
	for _, topic := range topics {
		switch topic {
		case "model.training_started":
			sawStart = true
		case "model.training_completed":
			sawComplete = true
		}
	}
	if !sawStart || !sawComplete {
		t.Errorf("topics = %v, want training start and completion", topics)
	}

	// The champion is loadable end to end.
	model, err := reg.LoadModel(ctx, ml.TypeNeuralCF, "")
	if err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	score, err := model.Predict(ctx, 1, 12)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if score < 0.5 || score > 5.0 {
		t.Errorf("prediction %v outside rating scale", score)
	}
}

func TestTrainWithoutAutoPromote(t *testing.T) {
	trainer, reg, _, _ := trainerFixture(t)

	result, err := trainer.Train(context.Background(), ml.TypeNeuralCF, false)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if result.Promoted {
		t.Error("promotion not requested")
	}
	if _, err := reg.GetChampion(ml.TypeNeuralCF); err == nil {
		t.Error("no champion expected without promotion")
	}
}

func TestTrainEpochsOverride(t *testing.T) {
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	now := time.Now()
	ratings := newMemRatingStore(
		mustRating(t, 1, 10, 5.0, now),
		mustRating(t, 1, 11, 4.5, now),
		mustRating(t, 2, 10, 4.0, now),
		mustRating(t, 2, 11, 2.0, now),
	)
	trainer := NewTrainer(ratings, registry.New(store), nil, WithTrainEpochs(3))

	result, err := trainer.Train(context.Background(), ml.TypeNeuralCF, false)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if got := result.Metadata.TrainingConfig["epochs"]; got != 3 {
		t.Errorf("epochs = %v, want 3", got)
	}
}

func TestTrainUnknownModelType(t *testing.T) {
	trainer, _, _, _ := trainerFixture(t)

	if _, err := trainer.Train(context.Background(), ml.ModelType("oracle"), false); err == nil {
		t.Error("expected unknown model type to fail")
	}
}

func TestTrainEmptyCorpusFails(t *testing.T) {
	store, err := storage.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	trainer := NewTrainer(newMemRatingStore(), registry.New(store), nil)

	if _, err := trainer.Train(context.Background(), ml.TypeNeuralCF, false); err == nil {
		t.Error("expected training on an empty rating set to fail")
	}
}
