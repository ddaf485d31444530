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

	"github.com/lib/pq"

	"github.com/Isaque-Sangley/recolab-v2/internal/models"
)

// UserRepo persists user profiles. Absent rows are reported as
// (nil, nil) so callers decide whether absence is an error.
type UserRepo struct {
	db *sql.DB
}

// FindByID loads a single user profile.
func (r *UserRepo) FindByID(ctx context.Context, id int) (*models.User, error) {
	start := time.Now()
	row := r.db.QueryRowContext(ctx,
		`SELECT id, created_at, n_ratings, avg_rating, last_activity, favorite_genres
		 FROM users WHERE id = $1`, id)

	user, err := scanUser(row)
	observe("select", "users", start, err)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user %d: %w", id, err)
	}
	return user, nil
}

// Save upserts a user profile, including the denormalized rating stats.
func (r *UserRepo) Save(ctx context.Context, user *models.User) error {
	start := time.Now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, created_at, n_ratings, avg_rating, last_activity, favorite_genres)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
			n_ratings       = EXCLUDED.n_ratings,
			avg_rating      = EXCLUDED.avg_rating,
			last_activity   = EXCLUDED.last_activity,
			favorite_genres = EXCLUDED.favorite_genres`,
		user.ID, user.CreatedAt, user.NRatings, user.AvgRating,
		user.LastActivity, pq.Array(user.FavoriteGenres))
	observe("upsert", "users", start, err)
	if err != nil {
		return fmt.Errorf("failed to save user %d: %w", user.ID, err)
	}
	return nil
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*models.User, error) {
	var (
		user         models.User
		lastActivity sql.NullTime
		genres       pq.StringArray
	)
	if err := s.Scan(&user.ID, &user.CreatedAt, &user.NRatings,
		&user.AvgRating, &lastActivity, &genres); err != nil {
		return nil, err
	}
	if lastActivity.Valid {
		t := lastActivity.Time
		user.LastActivity = &t
	}
	if len(genres) > 0 {
		user.FavoriteGenres = []string(genres)
	}
	return &user, nil
}
