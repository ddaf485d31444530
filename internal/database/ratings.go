// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Isaque-Sangley/recolab-v2/internal/models"
)

const ratingColumns = `user_id, movie_id, score, created_at`

// RatingRepo persists ratings keyed by (user, movie).
type RatingRepo struct {
	db *sql.DB
}

// FindByUser returns a user's ratings, newest first.
func (r *RatingRepo) FindByUser(ctx context.Context, userID int) ([]*models.Rating, error) {
	start := time.Now()
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ratingColumns+` FROM ratings
		 WHERE user_id = $1
		 ORDER BY created_at DESC`, userID)
	observe("select", "ratings", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query ratings for user %d: %w", userID, err)
	}
	defer closeRows(rows)

	return collectRatings(rows)
}

// FindByMovie returns all ratings for a movie.
func (r *RatingRepo) FindByMovie(ctx context.Context, movieID int) ([]*models.Rating, error) {
	start := time.Now()
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ratingColumns+` FROM ratings
		 WHERE movie_id = $1
		 ORDER BY created_at DESC`, movieID)
	observe("select", "ratings", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query ratings for movie %d: %w", movieID, err)
	}
	defer closeRows(rows)

	return collectRatings(rows)
}

// FindByUserAndMovie returns one rating, (nil, nil) if absent.
func (r *RatingRepo) FindByUserAndMovie(ctx context.Context, userID, movieID int) (*models.Rating, error) {
	start := time.Now()
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ratingColumns+` FROM ratings
		 WHERE user_id = $1 AND movie_id = $2`, userID, movieID)

	rating, err := scanRating(row)
	observe("select", "ratings", start, err)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query rating (%d, %d): %w", userID, movieID, err)
	}
	return rating, nil
}

// FindAll streams the full rating corpus for model training.
func (r *RatingRepo) FindAll(ctx context.Context) ([]*models.Rating, error) {
	start := time.Now()
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ratingColumns+` FROM ratings ORDER BY created_at`)
	observe("select", "ratings", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query all ratings: %w", err)
	}
	defer closeRows(rows)

	return collectRatings(rows)
}

// FindSince returns ratings created at or after the given time, used
// for the trending window.
func (r *RatingRepo) FindSince(ctx context.Context, since time.Time) ([]*models.Rating, error) {
	start := time.Now()
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+ratingColumns+` FROM ratings
		 WHERE created_at >= $1
		 ORDER BY created_at DESC`, since)
	observe("select", "ratings", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query ratings since %s: %w", since.Format(time.RFC3339), err)
	}
	defer closeRows(rows)

	return collectRatings(rows)
}

// Save upserts a rating. Re-rating a movie replaces the old score and
// timestamp.
func (r *RatingRepo) Save(ctx context.Context, rating *models.Rating) error {
	start := time.Now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ratings (user_id, movie_id, score, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, movie_id) DO UPDATE SET
			score      = EXCLUDED.score,
			created_at = EXCLUDED.created_at`,
		rating.UserID, rating.MovieID, float64(rating.Score), rating.Timestamp)
	observe("upsert", "ratings", start, err)
	if err != nil {
		return fmt.Errorf("failed to save rating (%d, %d): %w", rating.UserID, rating.MovieID, err)
	}
	return nil
}

// Delete removes a rating. Deleting an absent rating is not an error
// here; the service layer checks existence first.
func (r *RatingRepo) Delete(ctx context.Context, userID, movieID int) error {
	start := time.Now()
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM ratings WHERE user_id = $1 AND movie_id = $2`, userID, movieID)
	observe("delete", "ratings", start, err)
	if err != nil {
		return fmt.Errorf("failed to delete rating (%d, %d): %w", userID, movieID, err)
	}
	return nil
}

func scanRating(s scanner) (*models.Rating, error) {
	var (
		rating models.Rating
		score  float64
	)
	if err := s.Scan(&rating.UserID, &rating.MovieID, &score, &rating.Timestamp); err != nil {
		return nil, err
	}
	rating.Score = models.RatingScore(score)
	return &rating, nil
}

func collectRatings(rows *sql.Rows) ([]*models.Rating, error) {
	var out []*models.Rating
	for rows.Next() {
		rating, err := scanRating(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		out = append(out, rating)
	}
	return out, rows.Err()
}
