// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

package api

import (
	"net/http"

	"github.com/Isaque-Sangley/recolab-v2/internal/recommend"
)

// GetUser serves GET /api/v1/users/{userID}.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID, err := urlParamInt(r, "userID")
	if err != nil {
		respondBadRequest(w, r, err.Error())
		return
	}

	user, err := h.users.FindByID(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if user == nil {
		respondError(w, r, recommend.NotFoundf("user", userID))
		return
	}
	respondJSON(w, http.StatusOK, user)
}

// GetUserProfile serves GET /api/v1/users/{userID}/profile: the user
// plus the strategy the recommender would pick for them right now.
func (h *Handler) GetUserProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := urlParamInt(r, "userID")
	if err != nil {
		respondBadRequest(w, r, err.Error())
		return
	}

	user, err := h.users.FindByID(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if user == nil {
		respondError(w, r, recommend.NotFoundf("user", userID))
		return
	}

	cfWeight, cbWeight := recommend.AdaptiveWeights(user.NRatings)
	respondJSON(w, http.StatusOK, map[string]any{
		"user":     user,
		"strategy": recommend.DecideStrategy(user),
		"adaptive_weights": map[string]float64{
			"collaborative": cfWeight,
			"content_based": cbWeight,
		},
	})
}

// GetUserFeatures serves GET /api/v1/users/{userID}/features. Features
// are computed from the user's current ratings and cached in the
// feature store as a side effect.
func (h *Handler) GetUserFeatures(w http.ResponseWriter, r *http.Request) {
	userID, err := urlParamInt(r, "userID")
	if err != nil {
		respondBadRequest(w, r, err.Error())
		return
	}

	user, err := h.users.FindByID(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if user == nil {
		respondError(w, r, recommend.NotFoundf("user", userID))
		return
	}

	if cached, ok := h.features.GetUserFeatures(userID); ok {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	ratings, err := h.ratings.GetUserRatings(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	scores := make([]float64, len(ratings))
	for i, rating := range ratings {
		scores[i] = float64(rating.Score)
	}

	respondJSON(w, http.StatusOK, h.features.ComputeUserFeatures(user, scores))
}
