// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/Isaque-Sangley/recolab-v2/internal/config"
	"github.com/Isaque-Sangley/recolab-v2/internal/features"
	"github.com/Isaque-Sangley/recolab-v2/internal/ml/registry"
	"github.com/Isaque-Sangley/recolab-v2/internal/ml/serving"
	"github.com/Isaque-Sangley/recolab-v2/internal/recommend"
)

// Pinger is the slice of the database the health endpoint needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler bundles the services behind the HTTP surface.
type Handler struct {
	engine   *recommend.Engine
	ratings  *recommend.RatingService
	trainer  *recommend.Trainer
	registry *registry.Registry
	serving  *serving.Server
	features *features.Store
	users    recommend.UserStore
	movies   recommend.MovieStore
	db       Pinger
	cfg      config.APIConfig
	recCfg   config.RecommendConfig
	validate *validator.Validate
}

// HandlerDeps lists the dependencies for NewHandler. All fields are
// required except DB, which may be nil in tests that skip the
// readiness probe.
type HandlerDeps struct {
	Engine   *recommend.Engine
	Ratings  *recommend.RatingService
	Trainer  *recommend.Trainer
	Registry *registry.Registry
	Serving  *serving.Server
	Features *features.Store
	Users    recommend.UserStore
	Movies   recommend.MovieStore
	DB        Pinger
	Config    config.APIConfig
	Recommend config.RecommendConfig
}

// NewHandler creates the handler set.
func NewHandler(deps HandlerDeps) *Handler {
	return &Handler{
		engine:   deps.Engine,
		ratings:  deps.Ratings,
		trainer:  deps.Trainer,
		registry: deps.Registry,
		serving:  deps.Serving,
		features: deps.Features,
		users:    deps.Users,
		movies:   deps.Movies,
		db:       deps.DB,
		cfg:      deps.Config,
		recCfg:   deps.Recommend,
		validate: validator.New(),
	}
}

// contextWithTimeout derives a bounded context from the request.
func contextWithTimeout(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), d)
}

// urlParamInt parses a positive integer path parameter.
func urlParamInt(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, raw)
	}
	return v, nil
}

// queryInt parses an optional integer query parameter, returning def
// when absent or malformed values as an error.
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", name, raw)
	}
	return v, nil
}

// queryFloat parses an optional float query parameter.
func queryFloat(r *http.Request, name string, def float64) (float64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", name, raw)
	}
	return v, nil
}

// queryBool parses an optional boolean query parameter.
func queryBool(r *http.Request, name string, def bool) bool {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}
