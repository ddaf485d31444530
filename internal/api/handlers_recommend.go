// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

package api

import (
	"net/http"
	"strings"

	"github.com/Isaque-Sangley/recolab-v2/internal/recommend"
)

// GetRecommendations serves GET /api/v1/users/{userID}/recommendations.
//
// Query parameters:
//
//	count         number of recommendations (default from config)
//	diversity     MMR re-rank weight 0..1 (default from config, 0 disables)
//	strategy      optional strategy override
//	genres        comma-separated genre filter
//	year_from     minimum release year
//	year_to       maximum release year
//	exclude_seen  drop already-rated movies (default true)
//	explanations  attach human-readable reasons (default false)
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	userID, err := urlParamInt(r, "userID")
	if err != nil {
		respondBadRequest(w, r, err.Error())
		return
	}

	count, err := queryInt(r, "count", h.recCfg.DefaultLimit)
	if err != nil {
		respondBadRequest(w, r, err.Error())
		return
	}

	defaultDiversity := 0.0
	if h.recCfg.DiversityEnabled {
		defaultDiversity = h.recCfg.DiversityLambda
	}
	diversity, err := queryFloat(r, "diversity", defaultDiversity)
	if err != nil {
		respondBadRequest(w, r, err.Error())
		return
	}
	if diversity < 0 || diversity > 1 {
		respondBadRequest(w, r, "diversity must be between 0 and 1")
		return
	}

	yearFrom, err := queryInt(r, "year_from", 0)
	if err != nil {
		respondBadRequest(w, r, err.Error())
		return
	}
	yearTo, err := queryInt(r, "year_to", 0)
	if err != nil {
		respondBadRequest(w, r, err.Error())
		return
	}

	req := recommend.Request{
		UserID:              userID,
		Count:               count,
		DiversityWeight:     diversity,
		IncludeExplanations: queryBool(r, "explanations", false),
		ExcludeSeen:         queryBool(r, "exclude_seen", true),
		Strategy:            r.URL.Query().Get("strategy"),
		Genres:              splitParam(r.URL.Query().Get("genres")),
		YearFrom:            yearFrom,
		YearTo:              yearTo,
	}

	resp, err := h.engine.GetRecommendations(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// ExplainRecommendation serves
// GET /api/v1/users/{userID}/recommendations/{movieID}/explain.
func (h *Handler) ExplainRecommendation(w http.ResponseWriter, r *http.Request) {
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

	explanation, err := h.engine.ExplainRecommendation(r.Context(), userID, movieID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"user_id":     userID,
		"movie_id":    movieID,
		"explanation": explanation,
	})
}

// ServingStats serves GET /api/v1/serving/stats.
func (h *Handler) ServingStats(w http.ResponseWriter, r *http.Request) {
	stats := h.serving.Stats()
	respondJSON(w, http.StatusOK, map[string]any{
		"total_requests":      stats.TotalRequests,
		"cache_hits":          stats.CacheHits,
		"cache_misses":        stats.CacheMisses,
		"cache_hit_rate":      stats.HitRate(),
		"predict_fallbacks":   stats.PredictFallbacks,
		"recommend_fallbacks": stats.RecommendFallbacks,
		"avg_latency_ms":      stats.AvgLatencyMs,
	})
}

// splitParam parses a comma-separated query value into trimmed parts.
func splitParam(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
