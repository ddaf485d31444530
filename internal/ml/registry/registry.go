// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

// Package registry manages model versions: champion/challenger state,
// promotion with a deployment-strategy descriptor, rollback, version
// comparison, and performance-degradation monitoring.
//
// Object storage is delegated to the file store; the registry adds an
// in-memory loaded-model cache keyed "type:version", with the current
// champion additionally cached under the bare model type to bound
// memory to one champion instance per type.
package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Isaque-Sangley/recolab-v2/internal/events"
	"github.com/Isaque-Sangley/recolab-v2/internal/logging"
	"github.com/Isaque-Sangley/recolab-v2/internal/metrics"
	"github.com/Isaque-Sangley/recolab-v2/internal/ml"
	"github.com/Isaque-Sangley/recolab-v2/internal/ml/storage"
)

// DeploymentStrategy describes how a promotion is meant to be rolled
// out. These are metadata descriptors recorded on the version; traffic
// routing is not enforced at this layer.
type DeploymentStrategy struct {
	Kind    string  `json:"kind"` // full, canary, ab_test, blue_green
	Percent float64 `json:"percent,omitempty"`
	Split   float64 `json:"split,omitempty"`
}

// FullRollout routes all traffic to the new champion immediately.
func FullRollout() DeploymentStrategy {
	return DeploymentStrategy{Kind: "full"}
}

// Canary describes a percentage-based gradual rollout.
func Canary(percent float64) DeploymentStrategy {
	return DeploymentStrategy{Kind: "canary", Percent: percent}
}

// ABTest describes a traffic split between champion and challenger.
func ABTest(split float64) DeploymentStrategy {
	return DeploymentStrategy{Kind: "ab_test", Split: split}
}

// BlueGreen describes a parallel-environment switchover.
func BlueGreen() DeploymentStrategy {
	return DeploymentStrategy{Kind: "blue_green"}
}

func (d DeploymentStrategy) describe() string {
	switch d.Kind {
	case "canary":
		return fmt.Sprintf("canary:%.0f%%", d.Percent)
	case "ab_test":
		return fmt.Sprintf("ab_test:%.2f", d.Split)
	case "", "full":
		return "full"
	default:
		return d.Kind
	}
}

// MetricComparison is the per-metric outcome of CompareVersions.
type MetricComparison struct {
	Metric          string  `json:"metric"`
	ValueA          float64 `json:"value_a"`
	ValueB          float64 `json:"value_b"`
	Delta           float64 `json:"delta"`
	DeltaPercentage float64 `json:"delta_percentage"`
	Winner          string  `json:"winner"` // version_a, version_b, tie
}

// ComparisonResult summarizes a two-version comparison.
type ComparisonResult struct {
	ModelType ml.ModelType       `json:"model_type"`
	VersionA  string             `json:"version_a"`
	VersionB  string             `json:"version_b"`
	Metrics   []MetricComparison `json:"metrics"`
}

// DegradationReport is the advisory result of MonitorPerformance. It is
// a structured finding, not an error.
type DegradationReport struct {
	ModelType        ml.ModelType       `json:"model_type"`
	Version          string             `json:"version"`
	Degraded         bool               `json:"degraded"`
	WorstMetric      string             `json:"worst_metric,omitempty"`
	WorstDegradation float64            `json:"worst_degradation,omitempty"`
	Degradations     map[string]float64 `json:"degradations,omitempty"`
	Threshold        float64            `json:"threshold"`
	CheckedAt        time.Time          `json:"checked_at"`
}

// Publisher is the event-bus surface the registry needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
}

// Registry coordinates model versioning on top of a FileStore.
type Registry struct {
	store     *storage.FileStore
	publisher Publisher
	threshold float64
	now       func() time.Time

	mu     sync.RWMutex
	loaded map[string]ml.Model
}

// Option configures a Registry.
type Option func(*Registry)

// WithPublisher attaches an event publisher for deployment and
// degradation events.
func WithPublisher(p Publisher) Option {
	return func(r *Registry) { r.publisher = p }
}

// WithDegradationThreshold overrides the default 10% relative
// degradation threshold.
func WithDegradationThreshold(t float64) Option {
	return func(r *Registry) { r.threshold = t }
}

// New creates a Registry backed by the given file store.
func New(store *storage.FileStore, opts ...Option) *Registry {
	r := &Registry{
		store:     store,
		threshold: 0.10,
		now:       time.Now,
		loaded:    make(map[string]ml.Model),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register stores a freshly trained model and returns its metadata.
// Registration never fails unless persistence does.
func (r *Registry) Register(
	ctx context.Context,
	model ml.Model,
	metrics map[string]float64,
	trainingConfig map[string]interface{},
) (*storage.VersionMetadata, error) {
	version := r.store.NextVersion(model.Type())
	meta, err := r.store.Save(ctx, model, version, metrics, trainingConfig)
	if err != nil {
		return nil, fmt.Errorf("register %s %s: %w", model.Type(), version, err)
	}

	logging.Ctx(ctx).Info().
		Str("model_type", string(model.Type())).
		Str("version", version).
		Msg("Model registered")
	return meta, nil
}

// GetChampion returns the deployed version's metadata for a model type.
func (r *Registry) GetChampion(modelType ml.ModelType) (*storage.VersionMetadata, error) {
	version, err := r.store.GetDeployedVersion(modelType)
	if err != nil {
		return nil, err
	}
	return r.store.GetMetadata(modelType, version)
}

// PromoteToChampion deploys a version, demoting the prior champion to
// trained. The strategy descriptor is recorded on the version.
func (r *Registry) PromoteToChampion(ctx context.Context, modelType ml.ModelType, version string, strategy DeploymentStrategy) error {
	return r.promote(ctx, modelType, version, strategy, nil)
}

// Rollback restores a previously trained version as champion. It is a
// promotion carrying rollback metadata naming the version rolled back
// from.
func (r *Registry) Rollback(ctx context.Context, modelType ml.ModelType, version string) error {
	annotations := map[string]string{"rollback": "true"}
	if prior, err := r.store.GetDeployedVersion(modelType); err == nil {
		annotations["rolled_back_from"] = prior
	}
	if err := r.promote(ctx, modelType, version, FullRollout(), annotations); err != nil {
		return err
	}
	metrics.ModelRollbacks.WithLabelValues(string(modelType)).Inc()
	return nil
}

func (r *Registry) promote(ctx context.Context, modelType ml.ModelType, version string, strategy DeploymentStrategy, annotations map[string]string) error {
	prior, _ := r.store.GetDeployedVersion(modelType)

	if err := r.store.SetDeployedVersion(modelType, version); err != nil {
		return fmt.Errorf("promote %s %s: %w", modelType, version, err)
	}
	if err := r.store.Annotate(modelType, version, "deployment_strategy", strategy.describe()); err != nil {
		return err
	}
	for key, value := range annotations {
		if err := r.store.Annotate(modelType, version, key, value); err != nil {
			return err
		}
	}

	// The champion changed; the unversioned cache entry is stale.
	r.mu.Lock()
	delete(r.loaded, string(modelType))
	r.mu.Unlock()

	metrics.ModelPromotions.WithLabelValues(string(modelType)).Inc()
	logging.Ctx(ctx).Info().
		Str("model_type", string(modelType)).
		Str("version", version).
		Str("prior_champion", prior).
		Str("strategy", strategy.describe()).
		Msg("Model promoted to champion")

	if r.publisher != nil {
		event := events.DeploymentEvent{
			ModelType:       string(modelType),
			Version:         version,
			PreviousVersion: prior,
			Strategy:        strategy.describe(),
			Rollback:        annotations["rollback"] == "true",
			OccurredAt:      r.now().UTC(),
		}
		topic := events.TopicModelDeployed
		if event.Rollback {
			topic = events.TopicModelRollback
		}
		if err := r.publisher.Publish(ctx, topic, event); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Str("topic", topic).Msg("Failed to publish deployment event")
		}
	}
	return nil
}

// ArchiveVersion retires a version from the challenger pool. The
// deployed champion cannot be archived; roll it back first.
func (r *Registry) ArchiveVersion(ctx context.Context, modelType ml.ModelType, version string) error {
	meta, err := r.store.GetMetadata(modelType, version)
	if err != nil {
		return err
	}
	if meta.Status == storage.StatusDeployed {
		return fmt.Errorf("%w: %s %s", storage.ErrVersionDeployed, modelType, version)
	}
	if err := r.store.SetStatus(modelType, version, storage.StatusArchived); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.loaded, string(modelType)+":"+version)
	r.mu.Unlock()

	logging.Ctx(ctx).Info().
		Str("model_type", string(modelType)).
		Str("version", version).
		Msg("Model version archived")
	return nil
}

// DeleteVersion removes a version and its artifact. The deployed
// champion cannot be deleted.
func (r *Registry) DeleteVersion(ctx context.Context, modelType ml.ModelType, version string) error {
	if err := r.store.DeleteVersion(modelType, version); err != nil {
		return err
	}

	r.mu.Lock()
	delete(r.loaded, string(modelType)+":"+version)
	r.mu.Unlock()

	logging.Ctx(ctx).Info().
		Str("model_type", string(modelType)).
		Str("version", version).
		Msg("Model version deleted")
	return nil
}

// ListVersions returns version metadata for a type, newest first. An
// empty status returns all versions.
func (r *Registry) ListVersions(modelType ml.ModelType, status storage.Status) []storage.VersionMetadata {
	return r.store.ListVersions(modelType, status)
}

// CompareVersions computes per-metric deltas and winners between two
// versions. Metrics whose name suggests an error quantity (rmse, mae,
// loss) win when lower; everything else wins when higher.
func (r *Registry) CompareVersions(modelType ml.ModelType, versionA, versionB string) (*ComparisonResult, error) {
	metaA, err := r.store.GetMetadata(modelType, versionA)
	if err != nil {
		return nil, err
	}
	metaB, err := r.store.GetMetadata(modelType, versionB)
	if err != nil {
		return nil, err
	}

	names := make(map[string]struct{})
	for name := range metaA.Metrics {
		names[name] = struct{}{}
	}
	for name := range metaB.Metrics {
		names[name] = struct{}{}
	}

	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	result := &ComparisonResult{
		ModelType: modelType,
		VersionA:  versionA,
		VersionB:  versionB,
	}
	for _, name := range sorted {
		a, okA := metaA.Metrics[name]
		b, okB := metaB.Metrics[name]
		if !okA || !okB {
			continue
		}

		cmp := MetricComparison{
			Metric: name,
			ValueA: a,
			ValueB: b,
			Delta:  b - a,
		}
		if a != 0 {
			cmp.DeltaPercentage = (b - a) / a * 100
		}
		switch {
		case a == b:
			cmp.Winner = "tie"
		case lowerIsBetter(name) == (b < a):
			cmp.Winner = "version_b"
		default:
			cmp.Winner = "version_a"
		}
		result.Metrics = append(result.Metrics, cmp)
	}
	return result, nil
}

func lowerIsBetter(metric string) bool {
	name := strings.ToLower(metric)
	for _, marker := range []string{"rmse", "mae", "loss", "error", "latency"} {
		if strings.Contains(name, marker) {
			return true
		}
	}
	return false
}

// LoadModel resolves a model from the in-memory cache, falling back to
// persistence. An empty version loads the current champion, cached
// under the bare model type.
func (r *Registry) LoadModel(ctx context.Context, modelType ml.ModelType, version string) (ml.Model, error) {
	key := string(modelType)
	if version != "" {
		key = string(modelType) + ":" + version
	}

	r.mu.RLock()
	model, ok := r.loaded[key]
	r.mu.RUnlock()
	if ok {
		return model, nil
	}

	resolved := version
	if resolved == "" {
		champion, err := r.store.GetDeployedVersion(modelType)
		if err != nil {
			return nil, err
		}
		resolved = champion
	}

	model, _, err := r.store.Load(ctx, modelType, resolved)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.loaded[key] = model
	r.mu.Unlock()

	logging.Ctx(ctx).Debug().
		Str("model_type", string(modelType)).
		Str("version", resolved).
		Msg("Model loaded into registry cache")
	return model, nil
}

// MonitorPerformance compares current live metrics against the
// champion's recorded baseline. Any metric whose relative degradation
// (baseline-current)/baseline exceeds the threshold is flagged; the
// report names the worst offender and a degradation event is published.
func (r *Registry) MonitorPerformance(ctx context.Context, modelType ml.ModelType, current map[string]float64) (*DegradationReport, error) {
	champion, err := r.GetChampion(modelType)
	if err != nil {
		return nil, err
	}

	report := &DegradationReport{
		ModelType: modelType,
		Version:   champion.Version,
		Threshold: r.threshold,
		CheckedAt: r.now().UTC(),
	}

	for name, baseline := range champion.Metrics {
		value, ok := current[name]
		if !ok || baseline == 0 {
			continue
		}
		degradation := (baseline - value) / baseline
		if degradation <= r.threshold {
			continue
		}
		if report.Degradations == nil {
			report.Degradations = make(map[string]float64)
		}
		report.Degradations[name] = degradation
		if degradation > report.WorstDegradation {
			report.WorstDegradation = degradation
			report.WorstMetric = name
		}
	}

	if len(report.Degradations) == 0 {
		return report, nil
	}
	report.Degraded = true

	metrics.ModelDegradations.WithLabelValues(string(modelType), report.WorstMetric).Inc()
	logging.Ctx(ctx).Warn().
		Str("model_type", string(modelType)).
		Str("version", champion.Version).
		Str("worst_metric", report.WorstMetric).
		Float64("degradation", report.WorstDegradation).
		Msg("Model performance degraded beyond threshold")

	if r.publisher != nil {
		event := events.DegradationEvent{
			ModelType:      string(modelType),
			Version:        champion.Version,
			Metric:         report.WorstMetric,
			BaselineValue:  champion.Metrics[report.WorstMetric],
			CurrentValue:   current[report.WorstMetric],
			DegradationPct: report.WorstDegradation * 100,
			OccurredAt:     report.CheckedAt,
		}
		if err := r.publisher.Publish(ctx, events.TopicModelDegraded, event); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("Failed to publish degradation event")
		}
	}
	return report, nil
}

// ClearCache drops all loaded model instances.
func (r *Registry) ClearCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaded = make(map[string]ml.Model)
}
