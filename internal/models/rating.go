// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

package models

import (
	"math"
	"time"
)

// Rating score bounds on the MovieLens half-star scale.
const (
	MinRatingScore = 0.5
	MaxRatingScore = 5.0
)

// RatingScore is a validated score on the 0.5-5.0 half-star scale.
type RatingScore float64

// NewRatingScore validates a raw score value. Valid scores are
// 0.5, 1.0, 1.5, ..., 5.0; everything else is rejected.
func NewRatingScore(value float64) (RatingScore, error) {
	if value < MinRatingScore || value > MaxRatingScore {
		return 0, newValidationError("score", "must be between %g and %g, got %g", MinRatingScore, MaxRatingScore, value)
	}
	if math.Mod(value*2, 1) != 0 {
		return 0, newValidationError("score", "must be in 0.5 increments, got %g", value)
	}
	return RatingScore(value), nil
}

// Normalize maps the score from [0.5, 5.0] to [0, 1].
func (s RatingScore) Normalize() float64 {
	return (float64(s) - MinRatingScore) / (MaxRatingScore - MinRatingScore)
}

// IsPositive reports whether the score indicates the user liked the movie.
func (s RatingScore) IsPositive() bool { return s >= 4.0 }

// IsNegative reports whether the score indicates the user disliked the movie.
func (s RatingScore) IsNegative() bool { return s <= 2.5 }

// Rating is the fundamental user-movie interaction. Identity is the
// composite (UserID, MovieID); score and timestamp are not part of it.
type Rating struct {
	UserID    int         `json:"user_id"`
	MovieID   int         `json:"movie_id"`
	Score     RatingScore `json:"score"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewRating creates a Rating with a validated score.
func NewRating(userID, movieID int, score float64, ts time.Time) (*Rating, error) {
	if userID <= 0 {
		return nil, newValidationError("user_id", "must be positive, got %d", userID)
	}
	if movieID <= 0 {
		return nil, newValidationError("movie_id", "must be positive, got %d", movieID)
	}
	s, err := NewRatingScore(score)
	if err != nil {
		return nil, err
	}
	return &Rating{UserID: userID, MovieID: movieID, Score: s, Timestamp: ts}, nil
}

// Key returns the composite identity of the rating.
func (r *Rating) Key() RatingKey {
	return RatingKey{UserID: r.UserID, MovieID: r.MovieID}
}

// IsRecent reports whether the rating is within the given number of days.
func (r *Rating) IsRecent(now time.Time, days int) bool {
	return now.Sub(r.Timestamp) <= time.Duration(days)*24*time.Hour
}

// RatingKey is the composite identity (UserID, MovieID). It is
// comparable and usable as a map key.
type RatingKey struct {
	UserID  int
	MovieID int
}
