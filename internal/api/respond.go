// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/Isaque-Sangley/recolab-v2/internal/logging"
	"github.com/Isaque-Sangley/recolab-v2/internal/ml/storage"
	"github.com/Isaque-Sangley/recolab-v2/internal/models"
	"github.com/Isaque-Sangley/recolab-v2/internal/recommend"
)

// errorBody is the uniform error envelope.
type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// respondJSON writes a JSON response with proper headers.
func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondError maps domain errors onto HTTP status codes:
//
//	not-found sentinels      -> 404
//	validation errors        -> 400
//	anything else            -> 500 (details logged, not leaked)
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	msg := "internal server error"

	var validationErr *models.ValidationError
	switch {
	case errors.Is(err, recommend.ErrNotFound),
		errors.Is(err, storage.ErrModelNotFound),
		errors.Is(err, storage.ErrNoChampion):
		status = http.StatusNotFound
		msg = err.Error()
	case errors.Is(err, storage.ErrVersionDeployed):
		status = http.StatusConflict

	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
		msg = err.Error()
	default:
		logging.CtxErr(r.Context(), err).Msg("Request failed")
	}

	respondJSON(w, status, errorBody{
		Error:     msg,
		RequestID: logging.RequestIDFromContext(r.Context()),
	})
}

// respondBadRequest reports a malformed request with its reason.
func respondBadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	respondJSON(w, http.StatusBadRequest, errorBody{
		Error:     msg,
		RequestID: logging.RequestIDFromContext(r.Context()),
	})
}

// decodeBody parses a JSON request body into dst.
func decodeBody(r *http.Request, dst any) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(dst)
}
