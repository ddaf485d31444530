// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

package models

import (
	"time"
)

// Source identifies which strategy or model family produced a
// recommendation. Kept on every recommendation for explainability.
type Source string

const (
	// SourceCollaborative marks recommendations from collaborative filtering.
	SourceCollaborative Source = "collaborative"
	// SourceContentBased marks recommendations from item-attribute matching.
	SourceContentBased Source = "content_based"
	// SourceHybrid marks recommendations blending multiple signals.
	SourceHybrid Source = "hybrid"
	// SourcePopular marks popularity-ranked recommendations.
	SourcePopular Source = "popular"
	// SourceGenreBased marks recommendations from favorite-genre matching.
	SourceGenreBased Source = "genre_based"
	// SourcePersonalized marks recommendations with no more specific source.
	SourcePersonalized Source = "personalized"
)

// Recommendation is a single scored movie suggestion for a user.
// Recommendations are ephemeral: generated per request and persisted
// only as the latest batch per user for analytics.
type Recommendation struct {
	UserID    int            `json:"user_id"`
	MovieID   int            `json:"movie_id"`
	Score     float64        `json:"score"` // 0-1, higher is better
	Source    Source         `json:"source"`
	Timestamp time.Time      `json:"timestamp"`
	Rank      int            `json:"rank"` // 1-based position in the list
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewRecommendation creates a Recommendation and validates its invariants.
func NewRecommendation(userID, movieID int, score float64, source Source, ts time.Time, rank int) (*Recommendation, error) {
	if rank < 1 {
		return nil, newValidationError("rank", "must be >= 1, got %d", rank)
	}
	if score < 0 || score > 1 {
		return nil, newValidationError("score", "must be 0-1, got %g", score)
	}
	return &Recommendation{
		UserID:    userID,
		MovieID:   movieID,
		Score:     score,
		Source:    source,
		Timestamp: ts,
		Rank:      rank,
		Metadata:  make(map[string]any),
	}, nil
}

// AddMetadata attaches an explainability key to the recommendation.
func (r *Recommendation) AddMetadata(key string, value any) {
	if r.Metadata == nil {
		r.Metadata = make(map[string]any)
	}
	r.Metadata[key] = value
}

// IsHighConfidence reports whether the score meets the threshold.
func (r *Recommendation) IsHighConfidence(threshold float64) bool {
	return r.Score >= threshold
}

// SortRecommendations orders a slice by score descending in place,
// breaking ties by original order (stable).
func SortRecommendations(recs []*Recommendation) {
	// insertion sort keeps the common small lists cheap and stable
	for i := 1; i < len(recs); i++ {
		for j := i; j > 0 && recs[j].Score > recs[j-1].Score; j-- {
			recs[j], recs[j-1] = recs[j-1], recs[j]
		}
	}
}
