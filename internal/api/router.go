// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

// Package api provides HTTP routing using the chi router.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Isaque-Sangley/recolab-v2/internal/config"
)

// Router assembles the middleware stack and route tree around a Handler.
type Router struct {
	handler *Handler
	cfg     config.ServerConfig
}

// NewRouter creates a Router serving the given handler set.
func NewRouter(handler *Handler, cfg config.ServerConfig) *Router {
	return &Router{handler: handler, cfg: cfg}
}

// Routes builds the chi route tree.
//
// Health and /metrics sit outside the rate limiter so monitoring
// cannot be throttled by API traffic.
func (rt *Router) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: rt.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         86400,
	}))

	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/health", rt.handler.Health)
	r.Get("/health/live", rt.handler.HealthLive)
	r.Get("/health/ready", rt.handler.HealthReady)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(rt.cfg.RateLimitReqs, rt.cfg.RateLimitWindow))
		r.Use(RequestMetrics)

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/", rt.handler.GetUser)
			r.Get("/profile", rt.handler.GetUserProfile)
			r.Get("/ratings", rt.handler.GetUserRatings)
			r.Get("/features", rt.handler.GetUserFeatures)
			r.Get("/recommendations", rt.handler.GetRecommendations)
			r.Get("/recommendations/{movieID}/explain", rt.handler.ExplainRecommendation)
		})

		r.Route("/movies", func(r chi.Router) {
			r.Get("/popular", rt.handler.GetPopularMovies)
			r.Get("/trending", rt.handler.GetTrendingMovies)
			r.Get("/{movieID}", rt.handler.GetMovie)
			r.Get("/{movieID}/features", rt.handler.GetMovieFeatures)
		})

		r.Route("/ratings", func(r chi.Router) {
			r.Post("/", rt.handler.RateMovie)
			r.Delete("/{userID}/{movieID}", rt.handler.DeleteRating)
		})

		r.Route("/models/{modelType}", func(r chi.Router) {
			r.Get("/versions", rt.handler.ListModelVersions)
			r.Get("/champion", rt.handler.GetChampion)
			r.Get("/compare", rt.handler.CompareVersions)
			r.Post("/train", rt.handler.TrainModel)
			r.Post("/monitor", rt.handler.MonitorPerformance)
			r.Post("/versions/{version}/promote", rt.handler.PromoteModel)
			r.Post("/versions/{version}/rollback", rt.handler.RollbackModel)
			r.Post("/versions/{version}/archive", rt.handler.ArchiveModelVersion)
			r.Delete("/versions/{version}", rt.handler.DeleteModelVersion)
		})

		r.Route("/features", func(r chi.Router) {
			r.Get("/definitions", rt.handler.ListFeatureDefinitions)
			r.Get("/stats", rt.handler.FeatureStoreStats)
		})

		r.Get("/serving/stats", rt.handler.ServingStats)
	})

	return r
}
