// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

// Package events provides the in-process domain event bus for RecoLab.
//
// Events are published through Watermill's gochannel Pub/Sub so publishers
// and subscribers stay decoupled. Subscriber failures are logged and
// acknowledged; a failing subscriber never blocks the publisher or
// poisons the topic.
package events

import "time"

// Topic names. One topic per event type.
const (
	TopicRatingCreated = "rating.created"
	TopicRatingUpdated = "rating.updated"
	TopicRatingDeleted = "rating.deleted"

	TopicModelTrainingStarted   = "model.training_started"
	TopicModelTrainingCompleted = "model.training_completed"
	TopicModelDeployed          = "model.deployed"
	TopicModelRollback          = "model.rollback"
	TopicModelDegraded          = "model.degraded"
)

// RatingEvent is emitted when a rating is created, updated, or deleted.
type RatingEvent struct {
	UserID     int       `json:"user_id"`
	MovieID    int       `json:"movie_id"`
	Score      float64   `json:"score"`
	OccurredAt time.Time `json:"occurred_at"`
}

// TrainingEvent is emitted when model training starts or completes.
type TrainingEvent struct {
	ModelType  string             `json:"model_type"`
	Version    string             `json:"version,omitempty"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
	Error      string             `json:"error,omitempty"`
	OccurredAt time.Time          `json:"occurred_at"`
}

// DeploymentEvent is emitted when a model version is promoted to champion
// or rolled back.
type DeploymentEvent struct {
	ModelType       string    `json:"model_type"`
	Version         string    `json:"version"`
	PreviousVersion string    `json:"previous_version,omitempty"`
	Strategy        string    `json:"strategy,omitempty"`
	Rollback        bool      `json:"rollback,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// DegradationEvent is emitted when champion performance monitoring detects
// a metric drop beyond the configured threshold.
type DegradationEvent struct {
	ModelType      string  `json:"model_type"`
	Version        string  `json:"version"`
	Metric         string  `json:"metric"`
	BaselineValue  float64 `json:"baseline_value"`
	CurrentValue   float64 `json:"current_value"`
	DegradationPct float64 `json:"degradation_pct"`
	OccurredAt     time.Time `json:"occurred_at"`
}
