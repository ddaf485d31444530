// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

// Package models defines the domain entities of the recommendation system:
// users, movies, ratings, and recommendations.
//
// Entities validate their invariants at construction time. Invalid values
// (negative rating counts, out-of-range averages, malformed rating scores)
// are rejected with a ValidationError rather than silently coerced.
//
// # Identity
//
//   - User and Movie are identified by positive integer IDs.
//   - Rating identity is the composite (UserID, MovieID); a user rates a
//     movie at most once, and a later rating for the same pair updates in
//     place.
//   - Recommendation identity is (UserID, MovieID, Timestamp).
package models
