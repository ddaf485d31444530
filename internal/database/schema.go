// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

package database

import (
	"context"
	"fmt"
)

// migrations are applied in order and tracked in schema_migrations.
// Each entry must be idempotent-safe to rerun only through the version
// guard, so statements use IF NOT EXISTS where Postgres allows it.
var migrations = []string{
	// 1: core catalog tables
	`CREATE TABLE IF NOT EXISTS users (
		id              INTEGER PRIMARY KEY,
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		n_ratings       INTEGER NOT NULL DEFAULT 0,
		avg_rating      DOUBLE PRECISION NOT NULL DEFAULT 0,
		last_activity   TIMESTAMPTZ,
		favorite_genres TEXT[] NOT NULL DEFAULT '{}'
	);
	CREATE TABLE IF NOT EXISTS movies (
		id           INTEGER PRIMARY KEY,
		title        TEXT NOT NULL,
		genres       TEXT[] NOT NULL DEFAULT '{}',
		year         INTEGER NOT NULL DEFAULT 0,
		rating_count INTEGER NOT NULL DEFAULT 0,
		avg_rating   DOUBLE PRECISION NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS ratings (
		user_id    INTEGER NOT NULL REFERENCES users(id),
		movie_id   INTEGER NOT NULL REFERENCES movies(id),
		score      DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, movie_id)
	);`,

	// 2: recommendation history, replaced wholesale per user
	`CREATE TABLE IF NOT EXISTS recommendations (
		user_id      INTEGER NOT NULL REFERENCES users(id),
		movie_id     INTEGER NOT NULL,
		score        DOUBLE PRECISION NOT NULL,
		source       TEXT NOT NULL,
		rank         INTEGER NOT NULL,
		generated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (user_id, rank)
	);`,

	// 3: query-path indexes
	`CREATE INDEX IF NOT EXISTS idx_ratings_movie ON ratings (movie_id);
	CREATE INDEX IF NOT EXISTS idx_ratings_created ON ratings (created_at);
	CREATE INDEX IF NOT EXISTS idx_movies_popularity ON movies (rating_count DESC, id);
	CREATE INDEX IF NOT EXISTS idx_movies_genres ON movies USING GIN (genres);`,
}

// Migrate applies any migrations newer than the recorded schema version.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.conn.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	var current int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for i := current; i < len(migrations); i++ {
		version := i + 1
		tx, err := db.conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			rollbackQuietly(tx)
			return fmt.Errorf("migration %d failed: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version) VALUES ($1)`, version); err != nil {
			rollbackQuietly(tx)
			return fmt.Errorf("failed to record migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", version, err)
		}
	}

	return nil
}
