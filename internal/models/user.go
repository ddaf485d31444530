// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

package models

import (
	"math"
	"time"
)

// UserType classifies a user by interaction history volume.
type UserType string

const (
	// UserColdStart is a user with no ratings at all.
	UserColdStart UserType = "cold_start"
	// UserNew is a user with 1-4 ratings.
	UserNew UserType = "new"
	// UserCasual is a user with 5-19 ratings.
	UserCasual UserType = "casual"
	// UserActive is a user with 20-99 ratings.
	UserActive UserType = "active"
	// UserPower is a user with 100+ ratings.
	UserPower UserType = "power_user"
)

// MaxFavoriteGenres bounds the number of favorite genres kept per user.
const MaxFavoriteGenres = 5

// activityWindowDays is the recency window for considering a user active.
const activityWindowDays = 30

// User is a member of the catalog with aggregate rating statistics.
// Statistics are recomputed from the full rating set on every rating
// change rather than trusted incrementally.
type User struct {
	ID             int        `json:"id"`
	CreatedAt      time.Time  `json:"created_at"`
	NRatings       int        `json:"n_ratings"`
	AvgRating      float64    `json:"avg_rating"`
	LastActivity   *time.Time `json:"last_activity,omitempty"`
	FavoriteGenres []string   `json:"favorite_genres,omitempty"`
}

// NewUser creates a User and validates its invariants.
func NewUser(id int, createdAt time.Time) (*User, error) {
	u := &User{ID: id, CreatedAt: createdAt}
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return u, nil
}

// Validate checks the user invariants.
func (u *User) Validate() error {
	if u.ID <= 0 {
		return newValidationError("id", "must be positive, got %d", u.ID)
	}
	if u.NRatings < 0 {
		return newValidationError("n_ratings", "cannot be negative: %d", u.NRatings)
	}
	if u.AvgRating < 0 || u.AvgRating > 5 {
		return newValidationError("avg_rating", "must be 0-5, got %g", u.AvgRating)
	}
	if len(u.FavoriteGenres) > MaxFavoriteGenres {
		return newValidationError("favorite_genres", "at most %d allowed, got %d", MaxFavoriteGenres, len(u.FavoriteGenres))
	}
	return nil
}

// Type classifies the user by number of ratings.
func (u *User) Type() UserType {
	switch {
	case u.NRatings == 0:
		return UserColdStart
	case u.NRatings < 5:
		return UserNew
	case u.NRatings < 20:
		return UserCasual
	case u.NRatings < 100:
		return UserActive
	default:
		return UserPower
	}
}

// MarkActivity records an interaction at the given time.
func (u *User) MarkActivity(now time.Time) {
	t := now
	u.LastActivity = &t
}

// IsActive reports whether the user interacted within the last 30 days.
func (u *User) IsActive(now time.Time) bool {
	if u.LastActivity == nil {
		return false
	}
	return now.Sub(*u.LastActivity) <= activityWindowDays*24*time.Hour
}

// ActivityScore combines rating volume (log scale) with recency.
// A user with 100 ratings and recent activity scores ~1.0.
func (u *User) ActivityScore(now time.Time) float64 {
	ratingScore := math.Min(1, math.Log(float64(u.NRatings)+1)/math.Log(100))

	recency := 0.5
	if u.IsActive(now) {
		recency = 1.0
	}

	return 0.6*ratingScore + 0.4*recency
}

// SetFavoriteGenres replaces the favorite genres, keeping at most
// MaxFavoriteGenres entries.
func (u *User) SetFavoriteGenres(genres []string) {
	if len(genres) > MaxFavoriteGenres {
		genres = genres[:MaxFavoriteGenres]
	}
	u.FavoriteGenres = genres
}
