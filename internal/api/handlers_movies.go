// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

package api

import (
	"net/http"

	"github.com/Isaque-Sangley/recolab-v2/internal/recommend"
)

// GetMovie serves GET /api/v1/movies/{movieID}.
func (h *Handler) GetMovie(w http.ResponseWriter, r *http.Request) {
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
	respondJSON(w, http.StatusOK, movie)
}

// GetPopularMovies serves GET /api/v1/movies/popular?limit=N.
func (h *Handler) GetPopularMovies(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", h.cfg.DefaultPageSize)
	if err != nil {
		respondBadRequest(w, r, err.Error())
		return
	}
	if limit < 1 || limit > h.cfg.MaxPageSize {
		limit = h.cfg.DefaultPageSize
	}

	movies, err := h.movies.FindPopular(r.Context(), limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"count":  len(movies),
		"movies": movies,
	})
}

// GetTrendingMovies serves GET /api/v1/movies/trending?window_days=N&limit=N.
func (h *Handler) GetTrendingMovies(w http.ResponseWriter, r *http.Request) {
	windowDays, err := queryInt(r, "window_days", h.recCfg.TrendingWindowDays)
	if err != nil {
		respondBadRequest(w, r, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		respondBadRequest(w, r, err.Error())
		return
	}

	trending, err := h.engine.Trending(r.Context(), windowDays, limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"window_days": windowDays,
		"count":       len(trending),
		"movies":      trending,
	})
}
