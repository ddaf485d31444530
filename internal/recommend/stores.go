// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Isaque-Sangley/recolab-v2/internal/models"
)

// ErrNotFound is returned when a referenced entity does not exist.
// Wrap it with the offending id.
var ErrNotFound = errors.New("not found")

// NotFoundf wraps ErrNotFound with entity context.
func NotFoundf(entity string, id int) error {
	return fmt.Errorf("%s %d: %w", entity, id, ErrNotFound)
}

// UserStore reads and writes user profiles.
type UserStore interface {
	FindByID(ctx context.Context, id int) (*models.User, error)
	Save(ctx context.Context, user *models.User) error
}

// MovieStore reads the movie catalog.
type MovieStore interface {
	FindByID(ctx context.Context, id int) (*models.Movie, error)
	FindByIDs(ctx context.Context, ids []int) (map[int]*models.Movie, error)
	FindByGenres(ctx context.Context, genres []string, limit int) ([]*models.Movie, error)
	FindPopular(ctx context.Context, limit int) ([]*models.Movie, error)
	FindWellRated(ctx context.Context, minRating float64, limit int) ([]*models.Movie, error)
	MaxRatingCount(ctx context.Context) (int, error)
	Save(ctx context.Context, movie *models.Movie) error
}

// RatingStore reads and writes ratings keyed by (user, movie).
type RatingStore interface {
	FindByUser(ctx context.Context, userID int) ([]*models.Rating, error)
	FindByMovie(ctx context.Context, movieID int) ([]*models.Rating, error)
	FindByUserAndMovie(ctx context.Context, userID, movieID int) (*models.Rating, error)
	FindAll(ctx context.Context) ([]*models.Rating, error)
	FindSince(ctx context.Context, since time.Time) ([]*models.Rating, error)
	Save(ctx context.Context, rating *models.Rating) error
	Delete(ctx context.Context, userID, movieID int) error
}

// RecommendationStore persists the latest recommendation batch per user
// for analytics.
type RecommendationStore interface {
	ReplaceBatch(ctx context.Context, userID int, recs []*models.Recommendation) error
	FindByUser(ctx context.Context, userID int) ([]*models.Recommendation, error)
}
