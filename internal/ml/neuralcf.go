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

// NeuralCFConfig contains hyperparameters for the NeuralCF model.
type NeuralCFConfig struct {
	// Factors is the dimension of the latent embedding vectors.
	// Typical range: 16-128.
	Factors int

	// Epochs is the number of SGD passes over the training set.
	Epochs int

	// LearningRate is the SGD step size.
	LearningRate float64

	// Regularization is the L2 penalty on embeddings and biases.
	Regularization float64

	// HoldoutEvery reserves every k-th sample for evaluation.
	// 0 disables the holdout and metrics are computed on the training set.
	HoldoutEvery int
}

// DefaultNeuralCFConfig returns default NeuralCF hyperparameters.
func DefaultNeuralCFConfig() NeuralCFConfig {
	return NeuralCFConfig{
		Factors:        32,
		Epochs:         20,
		LearningRate:   0.005,
		Regularization: 0.02,
		HoldoutEvery:   10,
	}
}

// NeuralCF is a collaborative-filtering model factorizing the user-item
// rating matrix into embeddings with user/item bias terms:
//
//	r̂(u,i) = μ + b_u + b_i + p_u · q_i
//
// trained by stochastic gradient descent on observed ratings.
type NeuralCF struct {
	mu        sync.RWMutex
	config    NeuralCFConfig
	modelType ModelType

	state neuralCFState
}

// neuralCFState is the serializable model state.
type neuralCFState struct {
	Trained    bool
	TrainedAt  time.Time
	GlobalMean float64

	UserFactors [][]float64
	ItemFactors [][]float64
	UserBias    []float64
	ItemBias    []float64

	UserIndex   map[int]int
	ItemIndex   map[int]int
	IndexToItem []int

	// Seen records movies each user rated during training so Recommend
	// can exclude them.
	Seen map[int]map[int]struct{}

	Factors int
	Epochs  int
}

// NewNeuralCF creates an untrained NeuralCF model.
func NewNeuralCF(cfg NeuralCFConfig) *NeuralCF {
	if cfg.Factors <= 0 {
		cfg.Factors = 32
	}
	if cfg.Epochs <= 0 {
		cfg.Epochs = 20
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = 0.005
	}
	if cfg.Regularization < 0 {
		cfg.Regularization = 0.02
	}

	return &NeuralCF{
		config:    cfg,
		modelType: TypeNeuralCF,
	}
}

// Type returns the model type identifier.
func (m *NeuralCF) Type() ModelType {
	return m.modelType
}

// Fit trains the model with SGD and returns rmse/mae metrics computed on
// a holdout slice (or the training set when no holdout is configured).
//
//nolint:gocyclo // SGD training loops are inherently branchy
func (m *NeuralCF) Fit(ctx context.Context, set TrainingSet) (map[string]float64, error) {
	if err := set.Validate(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if contextCancelled(ctx) {
		return nil, ctx.Err()
	}

	st := neuralCFState{
		UserIndex: make(map[int]int),
		ItemIndex: make(map[int]int),
		Seen:      make(map[int]map[int]struct{}),
		Factors:   m.config.Factors,
		Epochs:    m.config.Epochs,
	}

	// Split train/holdout and build indices.
	trainIdx := make([]int, 0, set.Len())
	holdoutIdx := make([]int, 0)
	sum := 0.0
	for i := 0; i < set.Len(); i++ {
		if m.config.HoldoutEvery > 0 && (i+1)%m.config.HoldoutEvery == 0 {
			holdoutIdx = append(holdoutIdx, i)
		} else {
			trainIdx = append(trainIdx, i)
			sum += set.Scores[i]
		}

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
	}

	if len(trainIdx) == 0 {
		return nil, fmt.Errorf("training set has no samples")
	}
	st.GlobalMean = sum / float64(len(trainIdx))

	numUsers := len(st.UserIndex)
	numItems := len(st.IndexToItem)
	k := m.config.Factors

	// Deterministic small initialization.
	st.UserFactors = make([][]float64, numUsers)
	for u := 0; u < numUsers; u++ {
		st.UserFactors[u] = make([]float64, k)
		for f := 0; f < k; f++ {
			st.UserFactors[u][f] = 0.1 * (float64((u*k+f)%997)/997.0 - 0.5)
		}
	}
	st.ItemFactors = make([][]float64, numItems)
	for i := 0; i < numItems; i++ {
		st.ItemFactors[i] = make([]float64, k)
		for f := 0; f < k; f++ {
			st.ItemFactors[i][f] = 0.1 * (float64((i*k+f)%991)/991.0 - 0.5)
		}
	}
	st.UserBias = make([]float64, numUsers)
	st.ItemBias = make([]float64, numItems)

	lr := m.config.LearningRate
	reg := m.config.Regularization

	for epoch := 0; epoch < m.config.Epochs; epoch++ {
		if contextCancelled(ctx) {
			return nil, ctx.Err()
		}

		for _, i := range trainIdx {
			u := st.UserIndex[set.UserIDs[i]]
			it := st.ItemIndex[set.MovieIDs[i]]

			pred := st.GlobalMean + st.UserBias[u] + st.ItemBias[it] + dot(st.UserFactors[u], st.ItemFactors[it])
			err := set.Scores[i] - pred

			st.UserBias[u] += lr * (err - reg*st.UserBias[u])
			st.ItemBias[it] += lr * (err - reg*st.ItemBias[it])
			for f := 0; f < k; f++ {
				pu, qi := st.UserFactors[u][f], st.ItemFactors[it][f]
				st.UserFactors[u][f] += lr * (err*qi - reg*pu)
				st.ItemFactors[it][f] += lr * (err*pu - reg*qi)
			}
		}
	}

	st.Trained = true
	st.TrainedAt = time.Now()
	m.state = st

	evalIdx := holdoutIdx
	if len(evalIdx) == 0 {
		evalIdx = trainIdx
	}
	rmse, mae := m.evaluateLocked(set, evalIdx)

	return map[string]float64{
		"rmse":            rmse,
		"mae":             mae,
		"train_samples":   float64(len(trainIdx)),
		"holdout_samples": float64(len(holdoutIdx)),
	}, nil
}

// evaluateLocked computes RMSE and MAE over the given sample indices.
// Must be called with the model lock held.
func (m *NeuralCF) evaluateLocked(set TrainingSet, idx []int) (rmse, mae float64) {
	if len(idx) == 0 {
		return 0, 0
	}

	var sqSum, absSum float64
	for _, i := range idx {
		pred := m.predictLocked(set.UserIDs[i], set.MovieIDs[i])
		err := set.Scores[i] - pred
		sqSum += err * err
		absSum += math.Abs(err)
	}
	n := float64(len(idx))
	return math.Sqrt(sqSum / n), absSum / n
}

// predictLocked computes the raw clamped prediction. Unknown users or
// items fall back to the global mean plus whichever bias is known.
func (m *NeuralCF) predictLocked(userID, movieID int) float64 {
	st := &m.state
	u, uOK := st.UserIndex[userID]
	it, iOK := st.ItemIndex[movieID]

	pred := st.GlobalMean
	if uOK {
		pred += st.UserBias[u]
	}
	if iOK {
		pred += st.ItemBias[it]
	}
	if uOK && iOK {
		pred += dot(st.UserFactors[u], st.ItemFactors[it])
	}
	return clampScore(pred)
}

// Predict returns the predicted rating for a user/movie pair.
func (m *NeuralCF) Predict(ctx context.Context, userID, movieID int) (float64, error) {
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
func (m *NeuralCF) Recommend(ctx context.Context, userID, n int, exclude map[int]struct{}) ([]Scored, error) {
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
func (m *NeuralCF) SaveTo(w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.state.Trained {
		return ErrNotTrained
	}
	if err := gob.NewEncoder(w).Encode(m.state); err != nil {
		return fmt.Errorf("encode neural_cf state: %w", err)
	}
	return nil
}

// LoadFrom restores model state written by SaveTo.
func (m *NeuralCF) LoadFrom(r io.Reader) error {
	var st neuralCFState
	if err := gob.NewDecoder(r).Decode(&st); err != nil {
		return fmt.Errorf("decode neural_cf state: %w", err)
	}

	m.mu.Lock()
	m.state = st
	m.mu.Unlock()
	return nil
}

// Info returns the model's training state.
func (m *NeuralCF) Info() Info {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Info{
		Type:      m.modelType,
		Trained:   m.state.Trained,
		Factors:   m.config.Factors,
		Epochs:    m.config.Epochs,
		UserCount: len(m.state.UserIndex),
		ItemCount: len(m.state.IndexToItem),
		TrainedAt: m.state.TrainedAt,
	}
}

// dot computes the inner product of two equal-length vectors.
func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

var _ Model = (*NeuralCF)(nil)
