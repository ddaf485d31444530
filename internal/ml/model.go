// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

// Package ml defines the trainable model capability and its concrete
// implementations.
//
// A Model is an opaque capability set: fit on rating triples, predict a
// single score, recommend top-N items, and serialize itself. Orchestration
// code depends only on the Model interface; the registry and file store
// reconstruct concrete types through the New factory.
//
// # Thread Safety
//
// All models are safe for concurrent use. Training acquires an exclusive
// lock while prediction uses a shared lock.
package ml

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// ModelType identifies a model implementation.
type ModelType string

const (
	// TypeNeuralCF is matrix factorization with user/item embeddings and biases.
	TypeNeuralCF ModelType = "neural_cf"
	// TypeTwoTower is a dual-encoder model scoring via embedding dot product.
	TypeTwoTower ModelType = "two_tower"
	// TypeCollaborative is classic collaborative filtering.
	TypeCollaborative ModelType = "collaborative_filtering"
	// TypeContentBased scores by item attribute similarity.
	TypeContentBased ModelType = "content_based"
	// TypeHybrid blends collaborative and content-based scores.
	TypeHybrid ModelType = "hybrid"
)

// Valid reports whether t is a known model type.
func (t ModelType) Valid() bool {
	switch t {
	case TypeNeuralCF, TypeTwoTower, TypeCollaborative, TypeContentBased, TypeHybrid:
		return true
	}
	return false
}

var (
	// ErrNotTrained is returned when inference is attempted before Fit.
	ErrNotTrained = errors.New("model is not trained")

	// ErrUnknownUser is returned when the user was not seen during training.
	ErrUnknownUser = errors.New("user not seen during training")

	// ErrUnknownModelType is returned by the factory for unrecognized types.
	ErrUnknownModelType = errors.New("unknown model type")
)

// TrainingSet holds parallel slices of rating triples.
// UserIDs[i] rated MovieIDs[i] with Scores[i] on the 0.5-5.0 scale.
type TrainingSet struct {
	UserIDs  []int
	MovieIDs []int
	Scores   []float64
}

// Len returns the number of samples.
func (s TrainingSet) Len() int { return len(s.UserIDs) }

// Validate checks that the parallel slices are consistent.
func (s TrainingSet) Validate() error {
	if len(s.UserIDs) != len(s.MovieIDs) || len(s.UserIDs) != len(s.Scores) {
		return fmt.Errorf("training set slices have mismatched lengths: %d users, %d movies, %d scores",
			len(s.UserIDs), len(s.MovieIDs), len(s.Scores))
	}
	return nil
}

// Scored pairs a movie with a predicted score on the rating scale.
type Scored struct {
	MovieID int
	Score   float64
}

// Info describes a model's training state.
type Info struct {
	Type      ModelType `json:"type"`
	Trained   bool      `json:"trained"`
	Factors   int       `json:"factors"`
	Epochs    int       `json:"epochs"`
	UserCount int       `json:"user_count"`
	ItemCount int       `json:"item_count"`
	TrainedAt time.Time `json:"trained_at"`
}

// Model is the opaque trainable model capability.
type Model interface {
	// Type returns the model type identifier.
	Type() ModelType

	// Fit trains the model on the given rating triples and returns
	// training metrics (rmse, mae, sample counts).
	Fit(ctx context.Context, set TrainingSet) (map[string]float64, error)

	// Predict returns the predicted score for a user/movie pair on the
	// 0.5-5.0 rating scale.
	Predict(ctx context.Context, userID, movieID int) (float64, error)

	// Recommend returns up to n movies for the user, sorted by predicted
	// score descending. Movies in exclude and movies the user interacted
	// with during training are omitted.
	Recommend(ctx context.Context, userID, n int, exclude map[int]struct{}) ([]Scored, error)

	// SaveTo serializes the trained model state to w.
	SaveTo(w io.Writer) error

	// LoadFrom restores model state previously written by SaveTo.
	LoadFrom(r io.Reader) error

	// Info returns the model's training state.
	Info() Info
}

// New constructs an untrained model of the given type. Used by the file
// store and registry to reconstruct models from persisted state.
//
// TypeCollaborative maps to the NeuralCF implementation; content-based
// and hybrid scoring live in the recommendation engine, not behind this
// factory.
func New(t ModelType) (Model, error) {
	return NewWithEpochs(t, 0)
}

// NewWithEpochs constructs an untrained model with the default
// hyperparameters and an overridden epoch count. epochs <= 0 keeps the
// default.
func NewWithEpochs(t ModelType, epochs int) (Model, error) {
	switch t {
	case TypeNeuralCF, TypeCollaborative:
		cfg := DefaultNeuralCFConfig()
		if epochs > 0 {
			cfg.Epochs = epochs
		}
		m := NewNeuralCF(cfg)
		m.modelType = t
		return m, nil
	case TypeTwoTower:
		cfg := DefaultTwoTowerConfig()
		if epochs > 0 {
			cfg.Epochs = epochs
		}
		return NewTwoTower(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownModelType, t)
	}
}

// contextCancelled checks if the context has been canceled.
func contextCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// clampScore bounds a prediction to the valid rating range.
func clampScore(x float64) float64 {
	if x < 0.5 {
		return 0.5
	}
	if x > 5.0 {
		return 5.0
	}
	return x
}
