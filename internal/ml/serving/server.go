// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

// Package serving is the model-serving facade: it caches recommendation
// results per (user, count), loads models through the registry, converts
// raw model output into domain recommendation records, and tracks
// latency and cache-hit statistics.
//
// Inference failures never propagate: predictions fall back to a neutral
// 3.0 rating and recommendation lists fall back to empty, with error
// counts recorded. A circuit breaker trips after consecutive inference
// failures so a broken model artifact doesn't burn latency on every
// request.
package serving

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/Isaque-Sangley/recolab-v2/internal/cache"
	"github.com/Isaque-Sangley/recolab-v2/internal/logging"
	"github.com/Isaque-Sangley/recolab-v2/internal/metrics"
	"github.com/Isaque-Sangley/recolab-v2/internal/ml"
	"github.com/Isaque-Sangley/recolab-v2/internal/ml/storage"
	"github.com/Isaque-Sangley/recolab-v2/internal/models"
)

// NeutralRating is returned when a prediction cannot be served.
const NeutralRating = 3.0

// ModelLoader resolves models and champion metadata. Satisfied by
// *registry.Registry.
type ModelLoader interface {
	LoadModel(ctx context.Context, modelType ml.ModelType, version string) (ml.Model, error)
	GetChampion(modelType ml.ModelType) (*storage.VersionMetadata, error)
}

// Config holds the serving knobs.
type Config struct {
	DefaultModelType ml.ModelType
	CacheTTL         time.Duration
	LatencyAlpha     float64
	BreakerThreshold uint32
	BreakerTimeout   time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		DefaultModelType: ml.TypeNeuralCF,
		CacheTTL:         time.Hour,
		LatencyAlpha:     0.1,
		BreakerThreshold: 5,
		BreakerTimeout:   30 * time.Second,
	}
}

// Stats is a snapshot of serving counters.
type Stats struct {
	TotalRequests      int64   `json:"total_requests"`
	CacheHits          int64   `json:"cache_hits"`
	CacheMisses        int64   `json:"cache_misses"`
	PredictFallbacks   int64   `json:"predict_fallbacks"`
	RecommendFallbacks int64   `json:"recommend_fallbacks"`
	AvgLatencyMs       float64 `json:"avg_latency_ms"`
}

// HitRate returns the cache hit rate as a percentage.
func (s Stats) HitRate() float64 {
	total := s.CacheHits + s.CacheMisses
	if total == 0 {
		return 0
	}
	return float64(s.CacheHits) / float64(total) * 100
}

// Server serves predictions and recommendation lists from registry-loaded
// models.
type Server struct {
	loader  ModelLoader
	cfg     Config
	results cache.Cacher
	breaker *gobreaker.CircuitBreaker[[]ml.Scored]
	now     func() time.Time

	statsMu sync.Mutex
	stats   Stats
}

// NewServer creates a serving facade over the given model loader.
func NewServer(loader ModelLoader, cfg Config) *Server {
	if cfg.DefaultModelType == "" {
		cfg.DefaultModelType = ml.TypeNeuralCF
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.LatencyAlpha <= 0 || cfg.LatencyAlpha > 1 {
		cfg.LatencyAlpha = 0.1
	}
	if cfg.BreakerThreshold == 0 {
		cfg.BreakerThreshold = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}

	s := &Server{
		loader:  loader,
		cfg:     cfg,
		results: cache.NewTTL(cfg.CacheTTL),
		now:     time.Now,
	}
	s.breaker = gobreaker.NewCircuitBreaker[[]ml.Scored](gobreaker.Settings{
		Name:        "model-inference",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Inference circuit breaker state changed")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
	return s
}

// WithResultCache swaps the in-process result cache for another
// backend, e.g. Redis when several replicas should share results.
// Call before serving traffic.
func (s *Server) WithResultCache(c cache.Cacher) *Server {
	s.results = c
	return s
}

// newServerWithClock is the test constructor: deterministic clock, no
// background cache cleanup.
func newServerWithClock(loader ModelLoader, cfg Config, now func() time.Time) *Server {
	s := NewServer(loader, cfg)
	s.now = now
	s.results = cache.NewTTLWithClock(cfg.CacheTTL, now)
	return s
}

// Predict returns the predicted rating of a movie for a user. An empty
// modelType uses the configured default; an empty version uses the
// champion. Failures degrade to the neutral rating.
func (s *Server) Predict(ctx context.Context, userID, movieID int, modelType ml.ModelType, version string) float64 {
	if modelType == "" {
		modelType = s.cfg.DefaultModelType
	}

	start := s.now()
	score, err := s.predict(ctx, userID, movieID, modelType, version)
	s.observe(start, string(modelType), "predict")

	if err != nil {
		s.statsMu.Lock()
		s.stats.PredictFallbacks++
		s.statsMu.Unlock()
		metrics.ServingFallbacks.WithLabelValues("predict").Inc()
		logging.Ctx(ctx).Warn().Err(err).
			Int("user_id", userID).
			Int("movie_id", movieID).
			Str("model_type", string(modelType)).
			Msg("Prediction failed, serving neutral rating")
		return NeutralRating
	}
	return score
}

func (s *Server) predict(ctx context.Context, userID, movieID int, modelType ml.ModelType, version string) (float64, error) {
	model, err := s.loader.LoadModel(ctx, modelType, version)
	if err != nil {
		return 0, err
	}
	return model.Predict(ctx, userID, movieID)
}

// Recommend returns up to n scored recommendations for a user. Results
// are cached per (user, n); a cached entry is returned without touching
// the model. Failures degrade to an empty list.
func (s *Server) Recommend(ctx context.Context, userID, n int, exclude map[int]struct{}, modelType ml.ModelType, version string) []*models.Recommendation {
	if modelType == "" {
		modelType = s.cfg.DefaultModelType
	}

	s.statsMu.Lock()
	s.stats.TotalRequests++
	s.statsMu.Unlock()

	key := fmt.Sprintf("%d:%d", userID, n)
	if cached, ok := s.results.Get(key); ok {
		if recs, ok := decodeSlate(cached); ok {
			s.statsMu.Lock()
			s.stats.CacheHits++
			s.statsMu.Unlock()
			metrics.ServingCacheHits.Inc()
			return recs
		}
	}
	s.statsMu.Lock()
	s.stats.CacheMisses++
	s.statsMu.Unlock()
	metrics.ServingCacheMisses.Inc()

	start := s.now()
	scored, err := s.breaker.Execute(func() ([]ml.Scored, error) {
		model, err := s.loader.LoadModel(ctx, modelType, version)
		if err != nil {
			return nil, err
		}
		return model.Recommend(ctx, userID, n, exclude)
	})
	latency := s.observe(start, string(modelType), "recommend")

	if err != nil {
		s.statsMu.Lock()
		s.stats.RecommendFallbacks++
		s.statsMu.Unlock()
		metrics.ServingFallbacks.WithLabelValues("recommend").Inc()
		logging.Ctx(ctx).Warn().Err(err).
			Int("user_id", userID).
			Int("n", n).
			Str("model_type", string(modelType)).
			Msg("Recommendation inference failed, serving empty list")
		return []*models.Recommendation{}
	}

	recs := s.toRecommendations(userID, scored, modelType, version, latency)
	s.results.Set(key, recs)
	return recs
}

// decodeSlate normalizes a result-cache hit. The memory cache stores
// the slice directly; the Redis cache returns the stored JSON as bytes.
// Anything else is treated as a miss.
func decodeSlate(cached interface{}) ([]*models.Recommendation, bool) {
	switch v := cached.(type) {
	case []*models.Recommendation:
		return v, true
	case []byte:
		var recs []*models.Recommendation
		if err := json.Unmarshal(v, &recs); err != nil {
			logging.Warn().Err(err).Msg("Dropping undecodable cached slate")
			return nil, false
		}
		return recs, true
	default:
		return nil, false
	}
}

// RecommendBatch serves several users sequentially. Per-user failures
// yield empty lists without affecting the other users.
func (s *Server) RecommendBatch(ctx context.Context, userIDs []int, n int, modelType ml.ModelType) map[int][]*models.Recommendation {
	out := make(map[int][]*models.Recommendation, len(userIDs))
	for _, userID := range userIDs {
		out[userID] = s.Recommend(ctx, userID, n, nil, modelType, "")
	}
	return out
}

// toRecommendations converts raw model scores to domain records tagged
// with source, model version, and serving latency.
func (s *Server) toRecommendations(userID int, scored []ml.Scored, modelType ml.ModelType, version string, latency time.Duration) []*models.Recommendation {
	resolved := version
	if resolved == "" {
		if champion, err := s.loader.GetChampion(modelType); err == nil {
			resolved = champion.Version
		}
	}

	source := SourceForModel(modelType)
	ts := s.now()
	recs := make([]*models.Recommendation, 0, len(scored))
	for i, item := range scored {
		rec := &models.Recommendation{
			UserID:    userID,
			MovieID:   item.MovieID,
			Score:     normalizeScore(item.Score),
			Source:    source,
			Timestamp: ts,
			Rank:      i + 1,
			Metadata: map[string]any{
				"model_type":    string(modelType),
				"model_version": resolved,
				"latency_ms":    float64(latency.Microseconds()) / 1000,
			},
		}
		recs = append(recs, rec)
	}
	return recs
}

// SourceForModel maps a model type to a recommendation source tag.
func SourceForModel(modelType ml.ModelType) models.Source {
	switch modelType {
	case ml.TypeNeuralCF, ml.TypeTwoTower, ml.TypeCollaborative:
		return models.SourceCollaborative
	case ml.TypeContentBased:
		return models.SourceContentBased
	case ml.TypeHybrid:
		return models.SourceHybrid
	default:
		return models.SourcePersonalized
	}
}

// normalizeScore maps a rating-scale score (0.5-5.0) onto the 0-1
// recommendation score range.
func normalizeScore(score float64) float64 {
	normalized := (score - 0.5) / 4.5
	if normalized < 0 {
		return 0
	}
	if normalized > 1 {
		return 1
	}
	return normalized
}

// observe updates the latency EMA and inference metrics, returning the
// elapsed duration.
func (s *Server) observe(start time.Time, modelType, operation string) time.Duration {
	elapsed := s.now().Sub(start)
	ms := float64(elapsed.Microseconds()) / 1000

	s.statsMu.Lock()
	if s.stats.AvgLatencyMs == 0 {
		s.stats.AvgLatencyMs = ms
	} else {
		alpha := s.cfg.LatencyAlpha
		s.stats.AvgLatencyMs = alpha*ms + (1-alpha)*s.stats.AvgLatencyMs
	}
	s.statsMu.Unlock()

	metrics.RecordInference(modelType, operation, elapsed)
	return elapsed
}

// InvalidateUserCache drops every cached result for a user. Called
// whenever one of the user's ratings changes.
func (s *Server) InvalidateUserCache(userID int) {
	s.results.DeletePrefix(fmt.Sprintf("%d:", userID))
}

// FlushResults drops every cached slate. Called when a champion is
// deployed or rolled back so cached results never outlive the model
// that produced them.
func (s *Server) FlushResults() {
	s.results.Clear()
}

// DefaultModelType returns the model type used when callers do not
// name one.
func (s *Server) DefaultModelType() ml.ModelType {
	return s.cfg.DefaultModelType
}

// Stats returns a snapshot of the serving counters.
func (s *Server) Stats() Stats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats
}
