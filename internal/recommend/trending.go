// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

package recommend

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Isaque-Sangley/recolab-v2/internal/models"
)

// TrendingMovie is a movie ranked by recent rating activity.
type TrendingMovie struct {
	Movie       *models.Movie `json:"movie"`
	RecentCount int           `json:"recent_count"`
}

// Trending returns the movies most rated inside the trailing window,
// most active first. windowDays <= 0 defaults to 7.
func (e *Engine) Trending(ctx context.Context, windowDays, limit int) ([]TrendingMovie, error) {
	if windowDays <= 0 {
		windowDays = 7
	}
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}

	since := e.now().Add(-time.Duration(windowDays) * 24 * time.Hour)
	recent, err := e.ratings.FindSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("load recent ratings: %w", err)
	}

	counts := make(map[int]int)
	for _, r := range recent {
		counts[r.MovieID]++
	}
	if len(counts) == 0 {
		return []TrendingMovie{}, nil
	}

	ids := make([]int, 0, len(counts))
	for id := range counts {
		ids = append(ids, id)
	}
	// Frequency descending, id ascending for a stable order.
	sort.Slice(ids, func(i, j int) bool {
		if counts[ids[i]] != counts[ids[j]] {
			return counts[ids[i]] > counts[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > limit {
		ids = ids[:limit]
	}

	items, err := e.movies.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve trending movies: %w", err)
	}

	trending := make([]TrendingMovie, 0, len(ids))
	for _, id := range ids {
		movie, ok := items[id]
		if !ok {
			continue
		}
		trending = append(trending, TrendingMovie{Movie: movie, RecentCount: counts[id]})
	}
	return trending, nil
}
