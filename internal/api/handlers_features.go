// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

package api

import (
	"net/http"

	"github.com/Isaque-Sangley/recolab-v2/internal/recommend"
)

// GetMovieFeatures serves GET /api/v1/movies/{movieID}/features.
// Features are computed against the current catalog maximum and cached
// in the feature store as a side effect.
func (h *Handler) GetMovieFeatures(w http.ResponseWriter, r *http.Request) {
	movieID, err := urlParamInt(r, "movieID")
	if err != nil {
		respondBadRequest(w, r, err.Error())
		return
	}

	movie, err := h.movies.FindByID(r.Context(), movieID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if movie == nil {
		respondError(w, r, recommend.NotFoundf("movie", movieID))
		return
	}

	if cached, ok := h.features.GetItemFeatures(movieID); ok {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	maxCount, err := h.movies.MaxRatingCount(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, h.features.ComputeItemFeatures(movie, maxCount))
}

// ListFeatureDefinitions serves GET /api/v1/features/definitions.
func (h *Handler) ListFeatureDefinitions(w http.ResponseWriter, r *http.Request) {
	defs := h.features.Definitions()
	respondJSON(w, http.StatusOK, map[string]any{
		"count":       len(defs),
		"definitions": defs,
	})
}

// FeatureStoreStats serves GET /api/v1/features/stats.
func (h *Handler) FeatureStoreStats(w http.ResponseWriter, r *http.Request) {
	users, items := h.features.CachedCounts()
	respondJSON(w, http.StatusOK, map[string]any{
		"cached_users": users,
		"cached_items": items,
		"definitions":  len(h.features.Definitions()),
	})
}
