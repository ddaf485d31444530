// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

// Package features is the in-memory feature store: derived user and
// item feature vectors cached per entity, plus a registry of feature
// definitions for introspection.
//
// Feature caches have no TTL; entries are invalidated explicitly when
// the underlying profile changes. Contextual features are computed per
// request and never cached.
package features

import (
	"math"
	"sync"
	"time"

	"github.com/Isaque-Sangley/recolab-v2/internal/logging"
	"github.com/Isaque-Sangley/recolab-v2/internal/models"
)

// UserFeatures is the derived feature vector for a user.
type UserFeatures struct {
	UserID         int       `json:"user_id"`
	NRatings       int       `json:"n_ratings"`
	AvgRating      float64   `json:"avg_rating"`
	RatingVariance float64   `json:"rating_variance"`
	FavoriteGenres []string  `json:"favorite_genres,omitempty"`
	RecencyScore   float64   `json:"recency_score"`
	ActivityScore  float64   `json:"activity_score"`
	ComputedAt     time.Time `json:"computed_at"`
}

// ItemFeatures is the derived feature vector for a movie.
type ItemFeatures struct {
	MovieID         int       `json:"movie_id"`
	Genres          []string  `json:"genres"`
	AvgRating       float64   `json:"avg_rating"`
	RatingCount     int       `json:"rating_count"`
	PopularityScore float64   `json:"popularity_score"`
	Year            int       `json:"year,omitempty"`
	ComputedAt      time.Time `json:"computed_at"`
}

// ContextFeatures describe the request context. Computed per request,
// never cached.
type ContextFeatures struct {
	HourOfDay  int    `json:"hour_of_day"`
	DayOfWeek  int    `json:"day_of_week"` // 0=Sunday
	IsWeekend  bool   `json:"is_weekend"`
	DeviceType string `json:"device_type"`
}

// Store caches derived feature vectors keyed by entity id.
type Store struct {
	now func() time.Time

	mu    sync.RWMutex
	users map[int]*UserFeatures
	items map[int]*ItemFeatures

	defsMu sync.RWMutex
	defs   map[string]Definition
}

// NewStore creates an empty feature store with the built-in feature
// definitions registered.
func NewStore() *Store {
	return NewStoreWithClock(time.Now)
}

// NewStoreWithClock creates a Store using the provided clock. Intended
// for tests.
func NewStoreWithClock(now func() time.Time) *Store {
	s := &Store{
		now:   now,
		users: make(map[int]*UserFeatures),
		items: make(map[int]*ItemFeatures),
		defs:  make(map[string]Definition, len(builtinDefinitions)),
	}
	for _, def := range builtinDefinitions {
		s.defs[def.Name] = def
	}
	return s
}

// ComputeUserFeatures derives and caches the feature vector for a user.
// ratingSample is a recent sample of the user's rating values used for
// the variance feature.
func (s *Store) ComputeUserFeatures(user *models.User, ratingSample []float64) *UserFeatures {
	recency := recencyScore(user.LastActivity, s.now())

	ratingScore := math.Min(1, math.Log(float64(user.NRatings)+1)/math.Log(100))
	activity := 0.6*ratingScore + 0.4*recency

	features := &UserFeatures{
		UserID:         user.ID,
		NRatings:       user.NRatings,
		AvgRating:      user.AvgRating,
		RatingVariance: populationVariance(ratingSample),
		FavoriteGenres: user.FavoriteGenres,
		RecencyScore:   recency,
		ActivityScore:  activity,
		ComputedAt:     s.now(),
	}

	s.mu.Lock()
	s.users[user.ID] = features
	s.mu.Unlock()

	logging.Debug().Int("user_id", user.ID).Msg("User features computed")
	return features
}

// ComputeItemFeatures derives and caches the feature vector for a movie.
// maxRatingCount is the rating count of the most-rated movie in the
// catalog, used to normalize popularity.
func (s *Store) ComputeItemFeatures(movie *models.Movie, maxRatingCount int) *ItemFeatures {
	popularity := 0.0
	if maxRatingCount > 0 {
		popularity = math.Min(1, float64(movie.RatingCount)/float64(maxRatingCount))
	}

	features := &ItemFeatures{
		MovieID:         movie.ID,
		Genres:          movie.Genres,
		AvgRating:       movie.AvgRating,
		RatingCount:     movie.RatingCount,
		PopularityScore: popularity,
		Year:            movie.Year,
		ComputedAt:      s.now(),
	}

	s.mu.Lock()
	s.items[movie.ID] = features
	s.mu.Unlock()
	return features
}

// ContextualFeatures derives request-context features from a timestamp
// and device type. Results are not cached.
func ContextualFeatures(at time.Time, deviceType string) ContextFeatures {
	weekday := at.Weekday()
	if deviceType == "" {
		deviceType = "unknown"
	}
	return ContextFeatures{
		HourOfDay:  at.Hour(),
		DayOfWeek:  int(weekday),
		IsWeekend:  weekday == time.Saturday || weekday == time.Sunday,
		DeviceType: deviceType,
	}
}

// GetUserFeatures returns the cached vector for a user, if present.
func (s *Store) GetUserFeatures(userID int) (*UserFeatures, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	features, ok := s.users[userID]
	return features, ok
}

// GetItemFeatures returns the cached vector for a movie, if present.
func (s *Store) GetItemFeatures(movieID int) (*ItemFeatures, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	features, ok := s.items[movieID]
	return features, ok
}

// InvalidateUser drops the cached vector for a user.
func (s *Store) InvalidateUser(userID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, userID)
}

// InvalidateItem drops the cached vector for a movie.
func (s *Store) InvalidateItem(movieID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, movieID)
}

// Clear drops every cached feature vector.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users = make(map[int]*UserFeatures)
	s.items = make(map[int]*ItemFeatures)
}

// CachedCounts returns the number of cached user and item vectors.
func (s *Store) CachedCounts() (users, items int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), len(s.items)
}

// recencyScore decays linearly from 1 to 0 over 30 days of inactivity.
func recencyScore(lastActivity *time.Time, now time.Time) float64 {
	if lastActivity == nil {
		return 0
	}
	days := now.Sub(*lastActivity).Hours() / 24
	return math.Max(0, 1-days/30)
}

// populationVariance returns the population variance of the sample, or
// 0 for fewer than two values.
func populationVariance(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	return variance / float64(len(values))
}
