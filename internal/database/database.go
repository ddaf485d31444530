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

	_ "github.com/lib/pq"

	"github.com/Isaque-Sangley/recolab-v2/internal/config"
	"github.com/Isaque-Sangley/recolab-v2/internal/logging"
	"github.com/Isaque-Sangley/recolab-v2/internal/metrics"
)

// DB wraps the Postgres connection pool and exposes the repositories
// built on top of it.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig
}

// Open connects to Postgres, configures the connection pool, verifies
// the connection with a ping, and applies pending migrations.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (*DB, error) {
	conn, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn, cfg: cfg}

	if err := db.Migrate(ctx); err != nil {
		closeQuietly(conn)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	logging.Info().
		Int("max_open_conns", cfg.MaxOpenConns).
		Int("max_idle_conns", cfg.MaxIdleConns).
		Msg("Database connection established")

	return db, nil
}

// Ping verifies the connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close shuts down the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn exposes the underlying pool for repositories and health checks.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Users returns the user repository.
func (db *DB) Users() *UserRepo {
	return &UserRepo{db: db.conn}
}

// Movies returns the movie repository.
func (db *DB) Movies() *MovieRepo {
	return &MovieRepo{db: db.conn}
}

// Ratings returns the rating repository.
func (db *DB) Ratings() *RatingRepo {
	return &RatingRepo{db: db.conn}
}

// Recommendations returns the recommendation history repository.
func (db *DB) Recommendations() *RecommendationRepo {
	return &RecommendationRepo{db: db.conn}
}

// Stats reports connection pool statistics for the health endpoint.
func (db *DB) Stats() sql.DBStats {
	return db.conn.Stats()
}

// observe records query latency and errors for Prometheus.
// sql.ErrNoRows is an expected outcome, not a query error.
func observe(operation, table string, start time.Time, err error) {
	if err == sql.ErrNoRows {
		err = nil
	}
	metrics.RecordDBQuery(operation, table, time.Since(start), err)
}
