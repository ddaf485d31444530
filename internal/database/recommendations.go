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

// RecommendationRepo keeps the latest generated batch per user for
// analytics and debugging.
type RecommendationRepo struct {
	db *sql.DB
}

// ReplaceBatch atomically swaps a user's stored recommendations for a
// fresh batch. The insert uses COPY, which is the fast path for
// multi-row writes in lib/pq.
func (r *RecommendationRepo) ReplaceBatch(ctx context.Context, userID int, recs []*models.Recommendation) error {
	start := time.Now()
	err := r.replaceBatch(ctx, userID, recs)
	observe("replace", "recommendations", start, err)
	if err != nil {
		return fmt.Errorf("failed to replace recommendations for user %d: %w", userID, err)
	}
	return nil
}

func (r *RecommendationRepo) replaceBatch(ctx context.Context, userID int, recs []*models.Recommendation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM recommendations WHERE user_id = $1`, userID); err != nil {
		rollbackQuietly(tx)
		return err
	}

	if len(recs) > 0 {
		stmt, err := tx.PrepareContext(ctx, pq.CopyIn("recommendations",
			"user_id", "movie_id", "score", "source", "rank", "generated_at"))
		if err != nil {
			rollbackQuietly(tx)
			return err
		}
		for _, rec := range recs {
			if _, err := stmt.ExecContext(ctx, rec.UserID, rec.MovieID,
				rec.Score, string(rec.Source), rec.Rank, rec.Timestamp); err != nil {
				closeQuietly(stmt)
				rollbackQuietly(tx)
				return err
			}
		}
		// Flush the COPY buffer, then close the statement.
		if _, err := stmt.ExecContext(ctx); err != nil {
			closeQuietly(stmt)
			rollbackQuietly(tx)
			return err
		}
		if err := stmt.Close(); err != nil {
			rollbackQuietly(tx)
			return err
		}
	}

	return tx.Commit()
}

// FindByUser returns the stored recommendation batch in rank order.
func (r *RecommendationRepo) FindByUser(ctx context.Context, userID int) ([]*models.Recommendation, error) {
	start := time.Now()
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, movie_id, score, source, rank, generated_at
		 FROM recommendations
		 WHERE user_id = $1
		 ORDER BY rank`, userID)
	observe("select", "recommendations", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations for user %d: %w", userID, err)
	}
	defer closeRows(rows)

	var out []*models.Recommendation
	for rows.Next() {
		var (
			rec    models.Recommendation
			source string
		)
		if err := rows.Scan(&rec.UserID, &rec.MovieID, &rec.Score,
			&source, &rec.Rank, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan recommendation: %w", err)
		}
		rec.Source = models.Source(source)
		out = append(out, &rec)
	}
	return out, rows.Err()
}
