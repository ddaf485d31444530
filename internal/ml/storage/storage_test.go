// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

package storage

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/Isaque-Sangley/recolab-v2/internal/ml"
)

func trainedModel(t *testing.T) ml.Model {
	t.Helper()

	model, err := ml.New(ml.TypeNeuralCF)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	set := ml.TrainingSet{
		UserIDs:  []int{1, 1, 2, 2, 3, 3},
		MovieIDs: []int{10, 11, 10, 12, 11, 12},
		Scores:   []float64{5.0, 4.5, 4.0, 2.0, 4.5, 1.5},
	}
	if _, err := model.Fit(context.Background(), set); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	return model
}

func TestFileStoreSaveLoadRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	model := trainedModel(t)
	ctx := context.Background()

	meta, err := store.Save(ctx, model, "v1",
		map[string]float64{"rmse": 0.42},
		map[string]interface{}{"epochs": 20})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if meta.Status != StatusTrained {
		t.Errorf("status = %s, want %s", meta.Status, StatusTrained)
	}
	if meta.Checksum == "" || meta.SizeBytes == 0 {
		t.Errorf("expected checksum and size to be recorded, got %q / %d", meta.Checksum, meta.SizeBytes)
	}

	loaded, loadedMeta, err := store.Load(ctx, ml.TypeNeuralCF, "v1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loadedMeta.Metrics["rmse"] != 0.42 {
		t.Errorf("rmse = %v, want 0.42", loadedMeta.Metrics["rmse"])
	}

	want, err := model.Predict(ctx, 1, 12)
	if err != nil {
		t.Fatalf("Predict original: %v", err)
	}
	got, err := loaded.Predict(ctx, 1, 12)
	if err != nil {
		t.Fatalf("Predict loaded: %v", err)
	}
	if math.Abs(want-got) > 1e-9 {
		t.Errorf("loaded prediction = %v, want %v", got, want)
	}
}

func TestFileStoreLoadMissing(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	if _, _, err := store.Load(context.Background(), ml.TypeNeuralCF, "v99"); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("Load missing = %v, want ErrModelNotFound", err)
	}
}

func TestFileStoreDeployDemotesPriorChampion(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	model := trainedModel(t)
	ctx := context.Background()
	for _, v := range []string{"v1", "v2"} {
		if _, err := store.Save(ctx, model, v, nil, nil); err != nil {
			t.Fatalf("Save %s: %v", v, err)
		}
	}

	if _, err := store.GetDeployedVersion(ml.TypeNeuralCF); !errors.Is(err, ErrNoChampion) {
		t.Errorf("GetDeployedVersion with no champion = %v, want ErrNoChampion", err)
	}

	if err := store.SetDeployedVersion(ml.TypeNeuralCF, "v1"); err != nil {
		t.Fatalf("SetDeployedVersion v1: %v", err)
	}
	if err := store.SetDeployedVersion(ml.TypeNeuralCF, "v2"); err != nil {
		t.Fatalf("SetDeployedVersion v2: %v", err)
	}

	champion, err := store.GetDeployedVersion(ml.TypeNeuralCF)
	if err != nil {
		t.Fatalf("GetDeployedVersion: %v", err)
	}
	if champion != "v2" {
		t.Errorf("champion = %s, want v2", champion)
	}

	v1, err := store.GetMetadata(ml.TypeNeuralCF, "v1")
	if err != nil {
		t.Fatalf("GetMetadata v1: %v", err)
	}
	if v1.Status != StatusTrained {
		t.Errorf("demoted status = %s, want %s", v1.Status, StatusTrained)
	}
	v2, err := store.GetMetadata(ml.TypeNeuralCF, "v2")
	if err != nil {
		t.Fatalf("GetMetadata v2: %v", err)
	}
	if v2.Status != StatusDeployed || v2.DeployedAt == nil {
		t.Errorf("champion metadata = %+v, want deployed with timestamp", v2)
	}
}

func TestFileStoreDeleteVersion(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	model := trainedModel(t)
	ctx := context.Background()
	for _, v := range []string{"v1", "v2"} {
		if _, err := store.Save(ctx, model, v, nil, nil); err != nil {
			t.Fatalf("Save %s: %v", v, err)
		}
	}
	if err := store.SetDeployedVersion(ml.TypeNeuralCF, "v2"); err != nil {
		t.Fatalf("SetDeployedVersion: %v", err)
	}

	if err := store.DeleteVersion(ml.TypeNeuralCF, "v2"); err == nil {
		t.Error("expected deleting deployed version to fail")
	}
	if err := store.DeleteVersion(ml.TypeNeuralCF, "v1"); err != nil {
		t.Fatalf("DeleteVersion v1: %v", err)
	}
	if _, err := store.GetMetadata(ml.TypeNeuralCF, "v1"); !errors.Is(err, ErrModelNotFound) {
		t.Errorf("metadata after delete = %v, want ErrModelNotFound", err)
	}
}

func TestFileStoreIndexSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	model := trainedModel(t)
	ctx := context.Background()
	if _, err := store.Save(ctx, model, "v1", map[string]float64{"rmse": 0.5}, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.SetDeployedVersion(ml.TypeNeuralCF, "v1"); err != nil {
		t.Fatalf("SetDeployedVersion: %v", err)
	}
	if err := store.Annotate(ml.TypeNeuralCF, "v1", "promoted_by", "trainer"); err != nil {
		t.Fatalf("Annotate: %v", err)
	}

	reopened, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	champion, err := reopened.GetDeployedVersion(ml.TypeNeuralCF)
	if err != nil {
		t.Fatalf("GetDeployedVersion after reopen: %v", err)
	}
	if champion != "v1" {
		t.Errorf("champion after reopen = %s, want v1", champion)
	}
	meta, err := reopened.GetMetadata(ml.TypeNeuralCF, "v1")
	if err != nil {
		t.Fatalf("GetMetadata after reopen: %v", err)
	}
	if meta.Annotations["promoted_by"] != "trainer" {
		t.Errorf("annotations after reopen = %v", meta.Annotations)
	}
	if _, _, err := reopened.Load(ctx, ml.TypeNeuralCF, "v1"); err != nil {
		t.Errorf("Load after reopen: %v", err)
	}
}

func TestFileStoreNextVersion(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	if v := store.NextVersion(ml.TypeNeuralCF); v != "v1" {
		t.Errorf("NextVersion empty = %s, want v1", v)
	}

	model := trainedModel(t)
	if _, err := store.Save(context.Background(), model, "v3", nil, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if v := store.NextVersion(ml.TypeNeuralCF); v != "v4" {
		t.Errorf("NextVersion = %s, want v4", v)
	}
	if v := store.NextVersion(ml.TypeTwoTower); v != "v1" {
		t.Errorf("NextVersion other type = %s, want v1", v)
	}
}

func TestFileStoreListVersions(t *testing.T) {
	store, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	clock := base
	store.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	model := trainedModel(t)
	ctx := context.Background()
	for _, v := range []string{"v1", "v2", "v3"} {
		if _, err := store.Save(ctx, model, v, nil, nil); err != nil {
			t.Fatalf("Save %s: %v", v, err)
		}
	}
	if err := store.SetDeployedVersion(ml.TypeNeuralCF, "v2"); err != nil {
		t.Fatalf("SetDeployedVersion: %v", err)
	}

	all := store.ListVersions(ml.TypeNeuralCF, "")
	if len(all) != 3 {
		t.Fatalf("len(all) = %d, want 3", len(all))
	}
	if all[0].Version != "v3" {
		t.Errorf("newest first, got %s", all[0].Version)
	}

	deployed := store.ListVersions(ml.TypeNeuralCF, StatusDeployed)
	if len(deployed) != 1 || deployed[0].Version != "v2" {
		t.Errorf("deployed filter = %+v, want [v2]", deployed)
	}
}
