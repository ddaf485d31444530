// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

// Package storage persists trained model artifacts and their lifecycle
// metadata.
//
// Artifacts are gob-encoded by the model itself, gzip-compressed, and
// checksummed; metadata lives in a JSON index file alongside the
// artifacts so the registry can enumerate versions without touching the
// binary blobs.
//
// # Lifecycle
//
// A version moves training → trained → deployed ⇄ trained → archived;
// failed is terminal from training. At most one version per model type
// is deployed at a time.
//
// # Thread Safety
//
// All operations are safe for concurrent use; writes serialize on an
// exclusive lock.
package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/Isaque-Sangley/recolab-v2/internal/ml"
)

// Status is the lifecycle state of a model version.
type Status string

const (
	StatusTraining Status = "training"
	StatusTrained  Status = "trained"
	StatusDeployed Status = "deployed"
	StatusArchived Status = "archived"
	StatusFailed   Status = "failed"
)

var (
	// ErrModelNotFound is returned when a model version does not exist.
	ErrModelNotFound = errors.New("model version not found")

	// ErrNoChampion is returned when no version of a type is deployed.
	ErrNoChampion = errors.New("no deployed version for model type")

	// ErrVersionDeployed is returned when an operation would remove the
	// current champion.
	ErrVersionDeployed = errors.New("version is currently deployed")
)

// VersionMetadata describes a stored model version.
type VersionMetadata struct {
	ModelType      ml.ModelType           `json:"model_type"`
	Version        string                 `json:"version"`
	Status         Status                 `json:"status"`
	Metrics        map[string]float64     `json:"metrics,omitempty"`
	TrainingConfig map[string]interface{} `json:"training_config,omitempty"`
	Annotations    map[string]string      `json:"annotations,omitempty"`
	CreatedAt      time.Time              `json:"created_at"`
	DeployedAt     *time.Time             `json:"deployed_at,omitempty"`
	Checksum       string                 `json:"checksum"`
	SizeBytes      int64                  `json:"size_bytes"`
}

// FileStore persists model artifacts under a base directory.
type FileStore struct {
	baseDir string
	now     func() time.Time

	mu    sync.RWMutex
	index map[string]*VersionMetadata
}

const indexFilename = "index.json"

// NewFileStore opens (or creates) a model store at the given directory.
func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create model storage directory: %w", err)
	}

	s := &FileStore{
		baseDir: baseDir,
		now:     time.Now,
		index:   make(map[string]*VersionMetadata),
	}

	if err := s.loadIndex(); err != nil {
		return nil, fmt.Errorf("load model index: %w", err)
	}
	return s, nil
}

// loadIndex reads the JSON metadata index if one exists.
func (s *FileStore) loadIndex() error {
	data, err := os.ReadFile(filepath.Join(s.baseDir, indexFilename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var entries []*VersionMetadata
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse index: %w", err)
	}
	for _, meta := range entries {
		s.index[versionKey(meta.ModelType, meta.Version)] = meta
	}
	return nil
}

// persistIndexLocked writes the metadata index. Must be called with the
// write lock held.
func (s *FileStore) persistIndexLocked() error {
	entries := make([]*VersionMetadata, 0, len(s.index))
	for _, meta := range s.index {
		entries = append(entries, meta)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ModelType != entries[j].ModelType {
			return entries[i].ModelType < entries[j].ModelType
		}
		return entries[i].CreatedAt.Before(entries[j].CreatedAt)
	})

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode index: %w", err)
	}

	// Write-then-rename keeps the index readable if we crash mid-write.
	tmp := filepath.Join(s.baseDir, indexFilename+".tmp")
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return os.Rename(tmp, filepath.Join(s.baseDir, indexFilename))
}

// Save stores a trained model under the given version with its metrics
// and training configuration. The initial status is trained.
func (s *FileStore) Save(
	ctx context.Context,
	model ml.Model,
	version string,
	metrics map[string]float64,
	trainingConfig map[string]interface{},
) (*VersionMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if version == "" {
		return nil, fmt.Errorf("version is required")
	}

	var raw bytes.Buffer
	if err := model.SaveTo(&raw); err != nil {
		return nil, fmt.Errorf("serialize model: %w", err)
	}

	hash := sha256.Sum256(raw.Bytes())

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw.Bytes()); err != nil {
		return nil, fmt.Errorf("compress model: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, fmt.Errorf("finalize compression: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.artifactPath(model.Type(), version)
	if err := os.WriteFile(path, compressed.Bytes(), 0o640); err != nil {
		return nil, fmt.Errorf("write model artifact: %w", err)
	}

	meta := &VersionMetadata{
		ModelType:      model.Type(),
		Version:        version,
		Status:         StatusTrained,
		Metrics:        metrics,
		TrainingConfig: trainingConfig,
		CreatedAt:      s.now(),
		Checksum:       hex.EncodeToString(hash[:]),
		SizeBytes:      int64(compressed.Len()),
	}
	s.index[versionKey(model.Type(), version)] = meta

	if err := s.persistIndexLocked(); err != nil {
		return nil, err
	}
	return meta, nil
}

// Load reconstructs a model version from its artifact. Returns
// ErrModelNotFound if the version isn't in the index.
func (s *FileStore) Load(ctx context.Context, modelType ml.ModelType, version string) (ml.Model, *VersionMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	s.mu.RLock()
	meta, ok := s.index[versionKey(modelType, version)]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s %s", ErrModelNotFound, modelType, version)
	}

	compressed, err := os.ReadFile(s.artifactPath(modelType, version))
	if err != nil {
		return nil, nil, fmt.Errorf("read model artifact: %w", err)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, nil, fmt.Errorf("decompress model: %w", err)
	}
	defer func() { _ = gzr.Close() }()

	raw, err := io.ReadAll(gzr)
	if err != nil {
		return nil, nil, fmt.Errorf("read decompressed model: %w", err)
	}

	hash := sha256.Sum256(raw)
	if checksum := hex.EncodeToString(hash[:]); checksum != meta.Checksum {
		return nil, nil, fmt.Errorf("checksum mismatch for %s %s: expected %s, got %s",
			modelType, version, meta.Checksum, checksum)
	}

	model, err := ml.New(modelType)
	if err != nil {
		return nil, nil, err
	}
	if err := model.LoadFrom(bytes.NewReader(raw)); err != nil {
		return nil, nil, fmt.Errorf("restore model state: %w", err)
	}

	metaCopy := *meta
	return model, &metaCopy, nil
}

// GetMetadata returns the metadata for a version.
func (s *FileStore) GetMetadata(modelType ml.ModelType, version string) (*VersionMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meta, ok := s.index[versionKey(modelType, version)]
	if !ok {
		return nil, fmt.Errorf("%w: %s %s", ErrModelNotFound, modelType, version)
	}
	metaCopy := *meta
	return &metaCopy, nil
}

// SetStatus transitions a version to the given status.
func (s *FileStore) SetStatus(modelType ml.ModelType, version string, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, ok := s.index[versionKey(modelType, version)]
	if !ok {
		return fmt.Errorf("%w: %s %s", ErrModelNotFound, modelType, version)
	}
	meta.Status = status
	return s.persistIndexLocked()
}

// GetDeployedVersion returns the champion version for a model type.
func (s *FileStore) GetDeployedVersion(modelType ml.ModelType) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, meta := range s.index {
		if meta.ModelType == modelType && meta.Status == StatusDeployed {
			return meta.Version, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNoChampion, modelType)
}

// SetDeployedVersion promotes a version to deployed, demoting the prior
// champion of the same type to trained in the same operation.
func (s *FileStore) SetDeployedVersion(modelType ml.ModelType, version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, ok := s.index[versionKey(modelType, version)]
	if !ok {
		return fmt.Errorf("%w: %s %s", ErrModelNotFound, modelType, version)
	}

	for _, other := range s.index {
		if other.ModelType == modelType && other.Status == StatusDeployed && other.Version != version {
			other.Status = StatusTrained
		}
	}

	now := s.now()
	meta.Status = StatusDeployed
	meta.DeployedAt = &now

	return s.persistIndexLocked()
}

// Annotate attaches a key/value annotation to a version's metadata.
// Used for promotion and rollback bookkeeping.
func (s *FileStore) Annotate(modelType ml.ModelType, version, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	meta, ok := s.index[versionKey(modelType, version)]
	if !ok {
		return fmt.Errorf("%w: %s %s", ErrModelNotFound, modelType, version)
	}
	if meta.Annotations == nil {
		meta.Annotations = make(map[string]string)
	}
	meta.Annotations[key] = value
	return s.persistIndexLocked()
}

// ListVersions returns all versions for a model type, newest first.
// An empty statusFilter returns every status.
func (s *FileStore) ListVersions(modelType ml.ModelType, statusFilter Status) []VersionMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var versions []VersionMetadata
	for _, meta := range s.index {
		if meta.ModelType != modelType {
			continue
		}
		if statusFilter != "" && meta.Status != statusFilter {
			continue
		}
		versions = append(versions, *meta)
	}
	sort.Slice(versions, func(i, j int) bool {
		return versions[i].CreatedAt.After(versions[j].CreatedAt)
	})
	return versions
}

// NextVersion returns the next sequential version label ("v1", "v2", ...)
// for a model type.
func (s *FileStore) NextVersion(modelType ml.ModelType) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	max := 0
	for _, meta := range s.index {
		if meta.ModelType != modelType {
			continue
		}
		var n int
		if _, err := fmt.Sscanf(meta.Version, "v%d", &n); err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("v%d", max+1)
}

// DeleteVersion removes a version's artifact and metadata. The current
// champion cannot be deleted.
func (s *FileStore) DeleteVersion(modelType ml.ModelType, version string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := versionKey(modelType, version)
	meta, ok := s.index[key]
	if !ok {
		return fmt.Errorf("%w: %s %s", ErrModelNotFound, modelType, version)
	}
	if meta.Status == StatusDeployed {
		return fmt.Errorf("%w: %s %s", ErrVersionDeployed, modelType, version)
	}

	if err := os.Remove(s.artifactPath(modelType, version)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete model artifact: %w", err)
	}
	delete(s.index, key)
	return s.persistIndexLocked()
}

// artifactPath returns the file path for a model artifact.
func (s *FileStore) artifactPath(modelType ml.ModelType, version string) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s_%s.gob.gz", modelType, version))
}

func versionKey(modelType ml.ModelType, version string) string {
	return string(modelType) + ":" + version
}
