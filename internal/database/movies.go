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

const movieColumns = `id, title, genres, year, rating_count, avg_rating`

// MovieRepo reads and writes the movie catalog.
type MovieRepo struct {
	db *sql.DB
}

// FindByID loads a single movie, (nil, nil) if absent.
func (r *MovieRepo) FindByID(ctx context.Context, id int) (*models.Movie, error) {
	start := time.Now()
	row := r.db.QueryRowContext(ctx,
		`SELECT `+movieColumns+` FROM movies WHERE id = $1`, id)

	movie, err := scanMovie(row)
	observe("select", "movies", start, err)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query movie %d: %w", id, err)
	}
	return movie, nil
}

// FindByIDs loads a batch of movies keyed by id. Missing ids are
// simply absent from the result map.
func (r *MovieRepo) FindByIDs(ctx context.Context, ids []int) (map[int]*models.Movie, error) {
	if len(ids) == 0 {
		return map[int]*models.Movie{}, nil
	}

	start := time.Now()
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+movieColumns+` FROM movies WHERE id = ANY($1)`, pq.Array(ids))
	observe("select", "movies", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query movies batch: %w", err)
	}
	defer closeRows(rows)

	out := make(map[int]*models.Movie, len(ids))
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan movie: %w", err)
		}
		out[movie.ID] = movie
	}
	return out, rows.Err()
}

// FindByGenres returns movies matching any of the given genres,
// most popular first.
func (r *MovieRepo) FindByGenres(ctx context.Context, genres []string, limit int) ([]*models.Movie, error) {
	if len(genres) == 0 {
		return nil, nil
	}

	start := time.Now()
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+movieColumns+` FROM movies
		 WHERE genres && $1
		 ORDER BY rating_count DESC, id
		 LIMIT $2`, pq.Array(genres), limit)
	observe("select", "movies", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query movies by genres: %w", err)
	}
	defer closeRows(rows)

	return collectMovies(rows)
}

// FindPopular returns movies ordered by rating count.
func (r *MovieRepo) FindPopular(ctx context.Context, limit int) ([]*models.Movie, error) {
	start := time.Now()
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+movieColumns+` FROM movies
		 ORDER BY rating_count DESC, id
		 LIMIT $1`, limit)
	observe("select", "movies", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query popular movies: %w", err)
	}
	defer closeRows(rows)

	return collectMovies(rows)
}

// FindWellRated returns movies at or above minRating, best first.
// A small rating-count floor keeps single-vote outliers out.
func (r *MovieRepo) FindWellRated(ctx context.Context, minRating float64, limit int) ([]*models.Movie, error) {
	start := time.Now()
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+movieColumns+` FROM movies
		 WHERE avg_rating >= $1 AND rating_count >= 5
		 ORDER BY avg_rating DESC, rating_count DESC, id
		 LIMIT $2`, minRating, limit)
	observe("select", "movies", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query well-rated movies: %w", err)
	}
	defer closeRows(rows)

	return collectMovies(rows)
}

// MaxRatingCount returns the catalog-wide popularity ceiling used to
// normalize item popularity scores.
func (r *MovieRepo) MaxRatingCount(ctx context.Context) (int, error) {
	start := time.Now()
	var maxCount int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(rating_count), 0) FROM movies`).Scan(&maxCount)
	observe("select", "movies", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to query max rating count: %w", err)
	}
	return maxCount, nil
}

// Save upserts a movie, including the denormalized rating stats.
func (r *MovieRepo) Save(ctx context.Context, movie *models.Movie) error {
	start := time.Now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO movies (id, title, genres, year, rating_count, avg_rating)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO UPDATE SET
			title        = EXCLUDED.title,
			genres       = EXCLUDED.genres,
			year         = EXCLUDED.year,
			rating_count = EXCLUDED.rating_count,
			avg_rating   = EXCLUDED.avg_rating`,
		movie.ID, movie.Title, pq.Array(movie.Genres), movie.Year,
		movie.RatingCount, movie.AvgRating)
	observe("upsert", "movies", start, err)
	if err != nil {
		return fmt.Errorf("failed to save movie %d: %w", movie.ID, err)
	}
	return nil
}

func scanMovie(s scanner) (*models.Movie, error) {
	var (
		movie  models.Movie
		genres pq.StringArray
	)
	if err := s.Scan(&movie.ID, &movie.Title, &genres, &movie.Year,
		&movie.RatingCount, &movie.AvgRating); err != nil {
		return nil, err
	}
	movie.Genres = []string(genres)
	return &movie, nil
}

func collectMovies(rows *sql.Rows) ([]*models.Movie, error) {
	var out []*models.Movie
	for rows.Next() {
		movie, err := scanMovie(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan movie: %w", err)
		}
		out = append(out, movie)
	}
	return out, rows.Err()
}
