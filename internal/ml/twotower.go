// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

package ml

import (
	"context"
	"encoding/gob"
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
	"time"
)

// TwoTowerConfig contains hyperparameters for the TwoTower model.
type TwoTowerConfig struct {
	// Factors is the embedding dimension of each tower.
	Factors int

	// Epochs is the number of SGD passes over the training set.
	Epochs int

	// LearningRate is the SGD step size.
	LearningRate float64

	// Regularization is the L2 penalty on embeddings.
	Regularization float64

	// PositiveThreshold is the rating at or above which an interaction
	// counts as a positive example.
	PositiveThreshold float64
}

// DefaultTwoTowerConfig returns default TwoTower hyperparameters.
func DefaultTwoTowerConfig() TwoTowerConfig {
	return TwoTowerConfig{
		Factors:           32,
		Epochs:            20,
		LearningRate:      0.01,
		Regularization:    0.01,
		PositiveThreshold: 4.0,
	}
}

// TwoTower is a dual-encoder retrieval model. Each user and item gets an
// embedding (its tower output); affinity is the sigmoid of their dot
// product, trained with logistic loss on binarized ratings. Predictions
// are mapped back onto the 0.5-5.0 rating scale for interface parity
// with NeuralCF.
type TwoTower struct {
	mu     sync.RWMutex
	config TwoTowerConfig

	state twoTowerState
}

// twoTowerState is the serializable model state.
type twoTowerState struct {
	Trained   bool
	TrainedAt time.Time

	UserTower [][]float64
	ItemTower [][]float64

	UserIndex   map[int]int
	ItemIndex   map[int]int
	IndexToItem []int

	Seen map[int]map[int]struct{}

	Factors int
}

// NewTwoTower creates an untrained TwoTower model.
func NewTwoTower(cfg TwoTowerConfig) *TwoTower {
	if cfg.Factors <= 0 {
		cfg.Factors = 32
	}
	if cfg.Epochs <= 0 {
		cfg.Epochs = 20
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = 0.01
	}
	if cfg.Regularization < 0 {
		cfg.Regularization = 0.01
	}
	if cfg.PositiveThreshold <= 0 {
		cfg.PositiveThreshold = 4.0
	}

	return &TwoTower{config: cfg}
}

// Type returns the model type identifier.
func (m *TwoTower) Type() ModelType {
	return TypeTwoTower
}

// Fit trains both towers with SGD on binarized ratings.
func (m *TwoTower) Fit(ctx context.Context, set TrainingSet) (map[string]float64, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}
	if set.Len() == 0 {
		return nil, fmt.Errorf("training set has no samples")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if contextCancelled(ctx) {
		return nil, ctx.Err()
	}

	st := twoTowerState{
		UserIndex: make(map[int]int),
		ItemIndex: make(map[int]int),
		Seen:      make(map[int]map[int]struct{}),
		Factors:   m.config.Factors,
	}

	labels := make([]float64, set.Len())
	for i := 0; i < set.Len(); i++ {
		uid, iid := set.UserIDs[i], set.MovieIDs[i]
		if _, ok := st.UserIndex[uid]; !ok {
			st.UserIndex[uid] = len(st.UserIndex)
		}
		if _, ok := st.ItemIndex[iid]; !ok {
			st.ItemIndex[iid] = len(st.IndexToItem)
			st.IndexToItem = append(st.IndexToItem, iid)
		}
		if st.Seen[uid] == nil {
			st.Seen[uid] = make(map[int]struct{})
		}
		st.Seen[uid][iid] = struct{}{}

		if set.Scores[i] >= m.config.PositiveThreshold {
			labels[i] = 1.0
		}
	}

	k := m.config.Factors
	st.UserTower = make([][]float64, len(st.UserIndex))
	for u := range st.UserTower {
		st.UserTower[u] = make([]float64, k)
		for f := 0; f < k; f++ {
			st.UserTower[u][f] = 0.1 * (float64((u*k+f)%983)/983.0 - 0.5)
		}
	}
	st.ItemTower = make([][]float64, len(st.IndexToItem))
	for i := range st.ItemTower {
		st.ItemTower[i] = make([]float64, k)
		for f := 0; f < k; f++ {
			st.ItemTower[i][f] = 0.1 * (float64((i*k+f)%977)/977.0 - 0.5)
		}
	}

	lr := m.config.LearningRate
	reg := m.config.Regularization

	var logLoss float64
	for epoch := 0; epoch < m.config.Epochs; epoch++ {
		if contextCancelled(ctx) {
			return nil, ctx.Err()
		}

		logLoss = 0
		for i := 0; i < set.Len(); i++ {
			u := st.UserIndex[set.UserIDs[i]]
			it := st.ItemIndex[set.MovieIDs[i]]

			p := sigmoid(dot(st.UserTower[u], st.ItemTower[it]))
			grad := labels[i] - p
			logLoss += -labels[i]*math.Log(p+1e-12) - (1-labels[i])*math.Log(1-p+1e-12)

			for f := 0; f < k; f++ {
				uf, itf := st.UserTower[u][f], st.ItemTower[it][f]
				st.UserTower[u][f] += lr * (grad*itf - reg*uf)
				st.ItemTower[it][f] += lr * (grad*uf - reg*itf)
			}
		}
	}

	st.Trained = true
	st.TrainedAt = time.Now()
	m.state = st

	return map[string]float64{
		"log_loss":      logLoss / float64(set.Len()),
		"train_samples": float64(set.Len()),
	}, nil
}

// predictLocked maps affinity back to the rating scale. Unknown users or
// items get the neutral midpoint affinity.
func (m *TwoTower) predictLocked(userID, movieID int) float64 {
	st := &m.state
	u, uOK := st.UserIndex[userID]
	it, iOK := st.ItemIndex[movieID]

	affinity := 0.5
	if uOK && iOK {
		affinity = sigmoid(dot(st.UserTower[u], st.ItemTower[it]))
	}
	// Affinity in (0,1) mapped onto [0.5, 5.0].
	return clampScore(0.5 + affinity*4.5)
}

// Predict returns the predicted rating for a user/movie pair.
func (m *TwoTower) Predict(ctx context.Context, userID, movieID int) (float64, error) {
	if contextCancelled(ctx) {
		return 0, ctx.Err()
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.state.Trained {
		return 0, ErrNotTrained
	}
	return m.predictLocked(userID, movieID), nil
}

// Recommend scores every unseen item for the user and returns the top n.
func (m *TwoTower) Recommend(ctx context.Context, userID, n int, exclude map[int]struct{}) ([]Scored, error) {
	if contextCancelled(ctx) {
		return nil, ctx.Err()
	}
	if n <= 0 {
		return nil, nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.state.Trained {
		return nil, ErrNotTrained
	}
	if _, ok := m.state.UserIndex[userID]; !ok {
		return nil, ErrUnknownUser
	}

	seen := m.state.Seen[userID]
	scored := make([]Scored, 0, len(m.state.IndexToItem))
	for _, movieID := range m.state.IndexToItem {
		if _, ok := seen[movieID]; ok {
			continue
		}
		if _, ok := exclude[movieID]; ok {
			continue
		}
		scored = append(scored, Scored{
			MovieID: movieID,
			Score:   m.predictLocked(userID, movieID),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > n {
		scored = scored[:n]
	}
	return scored, nil
}

// SaveTo serializes the model state with gob.
func (m *TwoTower) SaveTo(w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.state.Trained {
		return ErrNotTrained
	}
	if err := gob.NewEncoder(w).Encode(m.state); err != nil {
		return fmt.Errorf("encode two_tower state: %w", err)
	}
	return nil
}

// LoadFrom restores model state written by SaveTo.
func (m *TwoTower) LoadFrom(r io.Reader) error {
	var st twoTowerState
	if err := gob.NewDecoder(r).Decode(&st); err != nil {
		return fmt.Errorf("decode two_tower state: %w", err)
	}

	m.mu.Lock()
	m.state = st
	m.mu.Unlock()
	return nil
}

// Info returns the model's training state.
func (m *TwoTower) Info() Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Info{
		Type:      TypeTwoTower,
		Trained:   m.state.Trained,
		Factors:   m.config.Factors,
		Epochs:    m.config.Epochs,
		UserCount: len(m.state.UserIndex),
		ItemCount: len(m.state.IndexToItem),
		TrainedAt: m.state.TrainedAt,
	}
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

var _ Model = (*TwoTower)(nil)
