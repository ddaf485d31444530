// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

// Package recommend orchestrates recommendation generation.
//
// # Flow
//
// For each request the engine:
//
//  1. Loads the user profile (NotFound if absent).
//  2. Selects a strategy from rating-history volume, honoring an
//     explicit request override.
//  3. Builds the exclude-set of already-rated movies when requested.
//  4. Sources candidates: popular/genre strategies read the catalog,
//     everything else queries the model server for an oversized pool.
//  5. Applies genre and year filters, re-ranks for diversity (greedy
//     MMR), and truncates to the requested count.
//  6. Enriches each pick with title, genres, year, and an optional
//     natural-language explanation.
//  7. Persists the batch (replacing the user's prior batch) for
//     analytics; persistence failures never fail the response.
//
// # Strategy Selection
//
// Strategy is a deterministic pure function of the user's rating count,
// from popularity lists for cold-start users up to a multi-stage
// pipeline for power users. A continuous adaptive-weight function is
// available for finer collaborative/content blending.
//
// # Thread Safety
//
// The engine itself is stateless; all shared state lives in the
// injected stores and the model server, which guard their own caches.
package recommend
