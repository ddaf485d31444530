// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

package recommend

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Isaque-Sangley/recolab-v2/internal/config"
	"github.com/Isaque-Sangley/recolab-v2/internal/logging"
	"github.com/Isaque-Sangley/recolab-v2/internal/metrics"
	"github.com/Isaque-Sangley/recolab-v2/internal/ml"
	"github.com/Isaque-Sangley/recolab-v2/internal/models"
	"github.com/Isaque-Sangley/recolab-v2/internal/recommend/diversity"
)

// wellRatedFloor is the minimum average rating for catalog backfill
// when model serving yields nothing.
const wellRatedFloor = 4.0

// ModelServer is the serving surface the engine depends on.
type ModelServer interface {
	Recommend(ctx context.Context, userID, n int, exclude map[int]struct{}, modelType ml.ModelType, version string) []*models.Recommendation
	InvalidateUserCache(userID int)
}

// Request describes one recommendation request.
type Request struct {
	UserID              int      `json:"user_id"`
	Count               int      `json:"count"`
	DiversityWeight     float64  `json:"diversity_weight"`
	IncludeExplanations bool     `json:"include_explanations"`
	ExcludeSeen         bool     `json:"exclude_seen"`
	Strategy            string   `json:"strategy,omitempty"` // optional override
	Genres              []string `json:"genres,omitempty"`   // keep only these genres
	YearFrom            int      `json:"year_from,omitempty"`
	YearTo              int      `json:"year_to,omitempty"`
}

// Response is the enriched recommendation slate.
type Response struct {
	UserID           int                      `json:"user_id"`
	Recommendations  []*models.Recommendation `json:"recommendations"`
	Strategy         StrategyDecision         `json:"strategy"`
	DiversityScore   float64                  `json:"diversity_score"`
	GenerationTimeMs float64                  `json:"generation_time_ms"`
}

// Engine is the recommendation orchestrator: it selects a strategy,
// sources candidates from the catalog or the model server, re-ranks for
// diversity, enriches with catalog metadata and explanations, and
// persists the resulting batch for analytics.
type Engine struct {
	users        UserStore
	movies       MovieStore
	ratings      RatingStore
	history      RecommendationStore
	server       ModelServer
	cfg          config.RecommendConfig
	defaultModel ml.ModelType
	now          func() time.Time
}

// NewEngine wires the orchestrator.
func NewEngine(
	users UserStore,
	movies MovieStore,
	ratings RatingStore,
	history RecommendationStore,
	server ModelServer,
	cfg config.RecommendConfig,
	defaultModel ml.ModelType,
) *Engine {
	if cfg.CandidateFactor < 1 {
		cfg.CandidateFactor = 2
	}
	if defaultModel == "" {
		defaultModel = ml.TypeNeuralCF
	}
	return &Engine{
		users:        users,
		movies:       movies,
		ratings:      ratings,
		history:      history,
		server:       server,
		cfg:          cfg,
		defaultModel: defaultModel,
		now:          time.Now,
	}
}

// GetRecommendations produces up to req.Count enriched recommendations
// for a user.
func (e *Engine) GetRecommendations(ctx context.Context, req Request) (*Response, error) {
	start := e.now()

	if req.Count <= 0 {
		req.Count = e.cfg.DefaultLimit
	}
	if e.cfg.MaxLimit > 0 && req.Count > e.cfg.MaxLimit {
		req.Count = e.cfg.MaxLimit
	}

	user, err := e.users.FindByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, NotFoundf("user", req.UserID)
	}

	decision := DecideStrategy(user)
	if override, ok := ParseStrategy(req.Strategy); ok && override != decision.Strategy {
		decision.Strategy = override
		decision.Reason = fmt.Sprintf("strategy overridden by request to %s", override)
		if decision.Metadata == nil {
			decision.Metadata = map[string]any{}
		}
		decision.Metadata["override"] = true
	}

	exclude := make(map[int]struct{})
	if req.ExcludeSeen {
		rated, err := e.ratings.FindByUser(ctx, req.UserID)
		if err != nil {
			return nil, fmt.Errorf("load rated movies for user %d: %w", req.UserID, err)
		}
		for _, r := range rated {
			exclude[r.MovieID] = struct{}{}
		}
	}

	candidateCount := req.Count * e.cfg.CandidateFactor
	candidates, items, err := e.sourceCandidates(ctx, user, decision, candidateCount, exclude)
	if err != nil {
		return nil, err
	}

	candidates = e.applyFilters(candidates, items, req)

	if req.DiversityWeight > 0 && len(candidates) > 1 {
		candidates = diversity.Rerank(candidates, items, req.DiversityWeight)
	}
	if len(candidates) > req.Count {
		pool := candidates[req.Count:]
		candidates = candidates[:req.Count]
		if e.cfg.MinGenreCoverage > 0 {
			candidates = diversity.EnsureGenreCoverage(candidates, items, pool, user.FavoriteGenres, e.cfg.MinGenreCoverage)
		}
	}

	final := e.enrich(user, candidates, items, decision, req.IncludeExplanations)

	diversityScore := outputDiversity(final, items)
	elapsed := e.now().Sub(start)

	if e.cfg.PersistResults && e.history != nil {
		// Persistence failures are logged, never returned: the slate was
		// already generated and the batch is analytics-only.
		if err := e.history.ReplaceBatch(ctx, req.UserID, final); err != nil {
			logging.CtxErr(ctx, err).Int("user_id", req.UserID).Msg("Failed to persist recommendation batch")
		}
	}

	metrics.RecordRecommendation(string(decision.Strategy), len(final), elapsed)
	metrics.DiversityScore.Observe(diversityScore)
	logging.Ctx(ctx).Debug().
		Int("user_id", req.UserID).
		Str("strategy", string(decision.Strategy)).
		Int("count", len(final)).
		Dur("elapsed", elapsed).
		Msg("Recommendations generated")

	return &Response{
		UserID:           req.UserID,
		Recommendations:  final,
		Strategy:         decision,
		DiversityScore:   diversityScore,
		GenerationTimeMs: float64(elapsed.Microseconds()) / 1000,
	}, nil
}

// sourceCandidates produces raw scored candidates plus the resolved
// movie record for each candidate.
func (e *Engine) sourceCandidates(ctx context.Context, user *models.User, decision StrategyDecision, n int, exclude map[int]struct{}) ([]*models.Recommendation, map[int]*models.Movie, error) {
	switch decision.Strategy {
	case StrategyPopular:
		movies, err := e.movies.FindPopular(ctx, n+len(exclude))
		if err != nil {
			return nil, nil, fmt.Errorf("load popular movies: %w", err)
		}
		return e.fromCatalog(user, movies, models.SourcePopular, exclude, n)

	case StrategyGenreBased:
		movies, err := e.movies.FindByGenres(ctx, user.FavoriteGenres, n+len(exclude))
		if err != nil {
			return nil, nil, fmt.Errorf("load genre movies: %w", err)
		}
		return e.fromCatalog(user, movies, models.SourceGenreBased, exclude, n)

	default:
		candidates := e.server.Recommend(ctx, user.ID, n, exclude, e.defaultModel, "")
		if len(candidates) == 0 {
			// The server returned its empty fallback (no champion, open
			// breaker, or inference failure). Backfill from the catalog
			// so the response is never empty for a known user.
			logging.Ctx(ctx).Warn().Int("user_id", user.ID).Msg("Model serving returned no candidates, backfilling from catalog")
			movies, err := e.movies.FindWellRated(ctx, wellRatedFloor, n+len(exclude))
			if err != nil {
				return nil, nil, fmt.Errorf("load well-rated movies: %w", err)
			}
			return e.fromCatalog(user, movies, models.SourcePopular, exclude, n)
		}
		items, err := e.resolveItems(ctx, candidates)
		if err != nil {
			return nil, nil, err
		}
		return candidates, items, nil
	}
}

// fromCatalog converts catalog movies into scored candidates, scoring
// by popularity normalized onto [0,1].
func (e *Engine) fromCatalog(user *models.User, movies []*models.Movie, source models.Source, exclude map[int]struct{}, n int) ([]*models.Recommendation, map[int]*models.Movie, error) {
	ts := e.now()
	candidates := make([]*models.Recommendation, 0, n)
	items := make(map[int]*models.Movie, n)

	for _, movie := range movies {
		if _, skip := exclude[movie.ID]; skip {
			continue
		}
		if len(candidates) >= n {
			break
		}
		candidates = append(candidates, &models.Recommendation{
			UserID:    user.ID,
			MovieID:   movie.ID,
			Score:     movie.PopularityScore() / 10, // popularity range is 0-10
			Source:    source,
			Timestamp: ts,
			Rank:      len(candidates) + 1,
			Metadata:  map[string]any{},
		})
		items[movie.ID] = movie
	}
	return candidates, items, nil
}

// resolveItems loads the movie record behind every candidate. Candidates
// whose movie cannot be resolved are dropped by the re-ranker.
func (e *Engine) resolveItems(ctx context.Context, candidates []*models.Recommendation) (map[int]*models.Movie, error) {
	ids := make([]int, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.MovieID)
	}
	items, err := e.movies.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve candidate movies: %w", err)
	}
	return items, nil
}

// applyFilters keeps only candidates matching the request's genre and
// year constraints.
func (e *Engine) applyFilters(candidates []*models.Recommendation, items map[int]*models.Movie, req Request) []*models.Recommendation {
	if len(req.Genres) == 0 && req.YearFrom == 0 && req.YearTo == 0 {
		return candidates
	}

	out := candidates[:0]
	for _, c := range candidates {
		item, ok := items[c.MovieID]
		if !ok {
			out = append(out, c)
			continue
		}
		if len(req.Genres) > 0 && !hasAnyGenre(item, req.Genres) {
			continue
		}
		if req.YearFrom > 0 && item.Year != 0 && item.Year < req.YearFrom {
			continue
		}
		if req.YearTo > 0 && item.Year != 0 && item.Year > req.YearTo {
			continue
		}
		out = append(out, c)
	}
	return out
}

func hasAnyGenre(movie *models.Movie, genres []string) bool {
	for _, g := range genres {
		if movie.HasGenre(g) {
			return true
		}
	}
	return false
}

// enrich attaches catalog metadata, final ranks, and optional
// explanations to the slate.
func (e *Engine) enrich(user *models.User, recs []*models.Recommendation, items map[int]*models.Movie, decision StrategyDecision, explain bool) []*models.Recommendation {
	for i, rec := range recs {
		rec.Rank = i + 1

		item, ok := items[rec.MovieID]
		if !ok {
			continue
		}
		rec.AddMetadata("title", item.Title)
		rec.AddMetadata("genres", item.Genres)
		if item.Year != 0 {
			rec.AddMetadata("year", item.Year)
		}
		if explain {
			rec.AddMetadata("explanation", explanation(user, item, decision))
		}
	}
	return recs
}

// explanation builds a human-readable reason: genre overlap with the
// user's favorites when present, the strategy's base reason otherwise.
func explanation(user *models.User, movie *models.Movie, decision StrategyDecision) string {
	var shared []string
	for _, favorite := range user.FavoriteGenres {
		if movie.HasGenre(favorite) {
			shared = append(shared, favorite)
		}
	}
	if len(shared) > 0 {
		return fmt.Sprintf("Because you like %s", strings.Join(shared, ", "))
	}
	return decision.Reason
}

// outputDiversity is the ratio of distinct genres to the served slate
// size.
func outputDiversity(recs []*models.Recommendation, items map[int]*models.Movie) float64 {
	genres := make(map[string]struct{})
	for _, rec := range recs {
		if item, ok := items[rec.MovieID]; ok {
			for _, g := range item.Genres {
				genres[g] = struct{}{}
			}
		}
	}
	size := len(recs)
	if size < 1 {
		size = 1
	}
	return float64(len(genres)) / float64(size)
}

// ExplainRecommendation explains why a movie would be recommended to a
// user, or returns NotFound if either entity is missing.
func (e *Engine) ExplainRecommendation(ctx context.Context, userID, movieID int) (string, error) {
	user, err := e.users.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", NotFoundf("user", userID)
	}
	movie, err := e.movies.FindByID(ctx, movieID)
	if err != nil {
		return "", err
	}
	if movie == nil {
		return "", NotFoundf("movie", movieID)
	}
	return explanation(user, movie, DecideStrategy(user)), nil
}

// InvalidateUserCache drops cached serving results for a user.
func (e *Engine) InvalidateUserCache(userID int) {
	e.server.InvalidateUserCache(userID)
}
