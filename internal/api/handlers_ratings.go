// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

package api

import (
	"net/http"
)

// rateMovieRequest is the body of POST /api/v1/ratings. Score uses the
// MovieLens scale: 0.5 to 5.0 in half-point steps, enforced by the
// domain model after the structural validation here.
type rateMovieRequest struct {
	UserID  int     `json:"user_id" validate:"required,gt=0"`
	MovieID int     `json:"movie_id" validate:"required,gt=0"`
	Score   float64 `json:"score" validate:"required,gte=0.5,lte=5"`
}

// RateMovie serves POST /api/v1/ratings. Creating and updating share
// the endpoint; re-rating a movie replaces the previous score.
func (h *Handler) RateMovie(w http.ResponseWriter, r *http.Request) {
	var req rateMovieRequest
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(w, r, "invalid JSON body: "+err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondBadRequest(w, r, "invalid rating request: "+err.Error())
		return
	}

	rating, err := h.ratings.RateMovie(r.Context(), req.UserID, req.MovieID, req.Score)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, rating)
}

// DeleteRating serves DELETE /api/v1/ratings/{userID}/{movieID}.
func (h *Handler) DeleteRating(w http.ResponseWriter, r *http.Request) {
	userID, err := urlParamInt(r, "userID")
	if err != nil {
		respondBadRequest(w, r, err.Error())
		return
	}
	movieID, err := urlParamInt(r, "movieID")
	if err != nil {
		respondBadRequest(w, r, err.Error())
		return
	}

	if err := h.ratings.DeleteRating(r.Context(), userID, movieID); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetUserRatings serves GET /api/v1/users/{userID}/ratings.
func (h *Handler) GetUserRatings(w http.ResponseWriter, r *http.Request) {
	userID, err := urlParamInt(r, "userID")
	if err != nil {
		respondBadRequest(w, r, err.Error())
		return
	}

	ratings, err := h.ratings.GetUserRatings(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"user_id": userID,
		"count":   len(ratings),
		"ratings": ratings,
	})
}
