// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Isaque-Sangley/recolab-v2/internal/ml"
	"github.com/Isaque-Sangley/recolab-v2/internal/ml/registry"
	"github.com/Isaque-Sangley/recolab-v2/internal/ml/storage"
)

// modelTypeParam parses and validates the {modelType} path parameter.
func modelTypeParam(r *http.Request) (ml.ModelType, bool) {
	t := ml.ModelType(chi.URLParam(r, "modelType"))
	return t, t.Valid()
}

// ListModelVersions serves GET /api/v1/models/{modelType}/versions.
// An optional ?status= filter narrows the list.
func (h *Handler) ListModelVersions(w http.ResponseWriter, r *http.Request) {
	modelType, ok := modelTypeParam(r)
	if !ok {
		respondBadRequest(w, r, "unknown model type")
		return
	}

	status := storage.Status(r.URL.Query().Get("status"))
	versions := h.registry.ListVersions(modelType, status)
	respondJSON(w, http.StatusOK, map[string]any{
		"model_type": modelType,
		"count":      len(versions),
		"versions":   versions,
	})
}

// GetChampion serves GET /api/v1/models/{modelType}/champion.
func (h *Handler) GetChampion(w http.ResponseWriter, r *http.Request) {
	modelType, ok := modelTypeParam(r)
	if !ok {
		respondBadRequest(w, r, "unknown model type")
		return
	}

	meta, err := h.registry.GetChampion(modelType)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, meta)
}

// promoteRequest is the body of the promote endpoint. All fields are
// optional; an empty body means a full rollout.
type promoteRequest struct {
	Strategy string  `json:"strategy" validate:"omitempty,oneof=full canary ab_test blue_green"`
	Percent  float64 `json:"percent" validate:"omitempty,gt=0,lte=100"`
	Split    float64 `json:"split" validate:"omitempty,gt=0,lt=1"`
}

func (req promoteRequest) deploymentStrategy() registry.DeploymentStrategy {
	switch req.Strategy {
	case "canary":
		return registry.Canary(req.Percent)
	case "ab_test":
		return registry.ABTest(req.Split)
	case "blue_green":
		return registry.BlueGreen()
	default:
		return registry.FullRollout()
	}
}

// PromoteModel serves POST /api/v1/models/{modelType}/versions/{version}/promote.
func (h *Handler) PromoteModel(w http.ResponseWriter, r *http.Request) {
	modelType, ok := modelTypeParam(r)
	if !ok {
		respondBadRequest(w, r, "unknown model type")
		return
	}
	version := chi.URLParam(r, "version")

	var req promoteRequest
	if r.ContentLength > 0 {
		if err := decodeBody(r, &req); err != nil {
			respondBadRequest(w, r, "invalid JSON body: "+err.Error())
			return
		}
		if err := h.validate.Struct(&req); err != nil {
			respondBadRequest(w, r, "invalid promote request: "+err.Error())
			return
		}
	}

	if err := h.registry.PromoteToChampion(r.Context(), modelType, version, req.deploymentStrategy()); err != nil {
		respondError(w, r, err)
		return
	}

	meta, err := h.registry.GetChampion(modelType)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, meta)
}

// RollbackModel serves POST /api/v1/models/{modelType}/versions/{version}/rollback.
// The named version becomes champion again, annotated as a rollback.
func (h *Handler) RollbackModel(w http.ResponseWriter, r *http.Request) {
	modelType, ok := modelTypeParam(r)
	if !ok {
		respondBadRequest(w, r, "unknown model type")
		return
	}
	version := chi.URLParam(r, "version")

	if err := h.registry.Rollback(r.Context(), modelType, version); err != nil {
		respondError(w, r, err)
		return
	}

	meta, err := h.registry.GetChampion(modelType)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, meta)
}

// ArchiveModelVersion serves
// POST /api/v1/models/{modelType}/versions/{version}/archive.
func (h *Handler) ArchiveModelVersion(w http.ResponseWriter, r *http.Request) {
	modelType, ok := modelTypeParam(r)
	if !ok {
		respondBadRequest(w, r, "unknown model type")
		return
	}
	version := chi.URLParam(r, "version")

	if err := h.registry.ArchiveVersion(r.Context(), modelType, version); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"model_type": modelType,
		"version":    version,
		"status":     storage.StatusArchived,
	})
}

// DeleteModelVersion serves
// DELETE /api/v1/models/{modelType}/versions/{version}.
func (h *Handler) DeleteModelVersion(w http.ResponseWriter, r *http.Request) {
	modelType, ok := modelTypeParam(r)
	if !ok {
		respondBadRequest(w, r, "unknown model type")
		return
	}
	version := chi.URLParam(r, "version")

	if err := h.registry.DeleteVersion(r.Context(), modelType, version); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CompareVersions serves
// GET /api/v1/models/{modelType}/compare?version_a=v1&version_b=v2.
func (h *Handler) CompareVersions(w http.ResponseWriter, r *http.Request) {
	modelType, ok := modelTypeParam(r)
	if !ok {
		respondBadRequest(w, r, "unknown model type")
		return
	}

	versionA := r.URL.Query().Get("version_a")
	versionB := r.URL.Query().Get("version_b")
	if versionA == "" || versionB == "" {
		respondBadRequest(w, r, "version_a and version_b are required")
		return
	}

	result, err := h.registry.CompareVersions(modelType, versionA, versionB)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// monitorRequest carries live metrics to compare against the
// champion's training baseline.
type monitorRequest struct {
	Metrics map[string]float64 `json:"metrics" validate:"required,min=1"`
}

// MonitorPerformance serves POST /api/v1/models/{modelType}/monitor.
// Degradation is an advisory finding, so the response is 200 either way.
func (h *Handler) MonitorPerformance(w http.ResponseWriter, r *http.Request) {
	modelType, ok := modelTypeParam(r)
	if !ok {
		respondBadRequest(w, r, "unknown model type")
		return
	}

	var req monitorRequest
	if err := decodeBody(r, &req); err != nil {
		respondBadRequest(w, r, "invalid JSON body: "+err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		respondBadRequest(w, r, "invalid monitor request: "+err.Error())
		return
	}

	report, err := h.registry.MonitorPerformance(r.Context(), modelType, req.Metrics)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// trainRequest is the body of the train endpoint.
type trainRequest struct {
	AutoPromote bool `json:"auto_promote"`
}

// TrainModel serves POST /api/v1/models/{modelType}/train. Training is
// synchronous; on large corpora callers should use a generous timeout.
func (h *Handler) TrainModel(w http.ResponseWriter, r *http.Request) {
	modelType, ok := modelTypeParam(r)
	if !ok {
		respondBadRequest(w, r, "unknown model type")
		return
	}

	var req trainRequest
	if r.ContentLength > 0 {
		if err := decodeBody(r, &req); err != nil {
			respondBadRequest(w, r, "invalid JSON body: "+err.Error())
			return
		}
	}

	result, err := h.trainer.Train(r.Context(), modelType, req.AutoPromote)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, result)
}
