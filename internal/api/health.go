// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

package api

import (
	"net/http"
	"time"
)

// Health serves GET /health: overall status plus per-dependency detail.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	dbStatus := "ok"

	if h.db != nil {
		ctx, cancel := contextWithTimeout(r, 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			dbStatus = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}

	champion := "none"
	if h.registry != nil {
		if meta, err := h.registry.GetChampion(h.serving.DefaultModelType()); err == nil {
			champion = meta.Version
		}
	}

	body := map[string]any{
		"status": "ok",
		"checks": map[string]string{
			"database": dbStatus,
			"champion": champion,
		},
	}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	respondJSON(w, status, body)
}

// HealthLive serves GET /health/live: process liveness only.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HealthReady serves GET /health/ready: the service can take traffic
// once the database answers.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := contextWithTimeout(r, 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
			})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
