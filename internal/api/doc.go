// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

// Package api exposes the REST surface over chi.
//
// The route tree lives in router.go; handlers are grouped by resource
// (recommendations, ratings, movies, users, models, features). Domain
// errors map onto HTTP statuses in respond.go: not-found sentinels
// become 404, validation errors 400, everything else a logged 500.
// Request bodies are validated structurally with validator/v10 before
// the domain model applies its own invariants.
package api
