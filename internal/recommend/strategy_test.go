// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

package recommend

import (
	"math"
	"testing"

	"github.com/Isaque-Sangley/recolab-v2/internal/models"
)

func TestDecideStrategyThresholds(t *testing.T) {
	tests := []struct {
		nRatings       int
		favoriteGenres []string
		want           Strategy
		wantCF         float64
		wantCB         float64
		wantConfidence float64
	}{
		{0, nil, StrategyPopular, 0.0, 0.0, 1.0},
		{1, []string{"Action"}, StrategyGenreBased, 0.2, 0.8, 0.7},
		{1, nil, StrategyContentBased, 0.2, 0.8, 0.6},
		{4, []string{"Drama"}, StrategyGenreBased, 0.2, 0.8, 0.7},
		{5, nil, StrategyContentBased, 0.3, 0.7, 0.75},
		{19, nil, StrategyContentBased, 0.3, 0.7, 0.75},
		{20, nil, StrategyHybrid, 0.5, 0.5, 0.85},
		{49, nil, StrategyHybrid, 0.5, 0.5, 0.85},
		{50, nil, StrategyCollaborative, 0.7, 0.3, 0.9},
		{99, nil, StrategyCollaborative, 0.7, 0.3, 0.9},
		{100, nil, StrategyMultiStage, 0.75, 0.25, 0.95},
		{1000, nil, StrategyMultiStage, 0.75, 0.25, 0.95},
	}

	for _, tt := range tests {
		user := &models.User{ID: 1, NRatings: tt.nRatings, FavoriteGenres: tt.favoriteGenres}
		got := DecideStrategy(user)

		if got.Strategy != tt.want {
			t.Errorf("n=%d: strategy = %s, want %s", tt.nRatings, got.Strategy, tt.want)
		}
		if got.CFWeight != tt.wantCF || got.CBWeight != tt.wantCB {
			t.Errorf("n=%d: weights = %v/%v, want %v/%v",
				tt.nRatings, got.CFWeight, got.CBWeight, tt.wantCF, tt.wantCB)
		}
		if got.Confidence != tt.wantConfidence {
			t.Errorf("n=%d: confidence = %v, want %v", tt.nRatings, got.Confidence, tt.wantConfidence)
		}

		// Weights sum to 1 except for cold start, where both are 0.
		sum := got.CFWeight + got.CBWeight
		if tt.nRatings == 0 {
			if sum != 0 {
				t.Errorf("n=0: weight sum = %v, want 0", sum)
			}
		} else if math.Abs(sum-1.0) > 1e-9 {
			t.Errorf("n=%d: weight sum = %v, want 1.0", tt.nRatings, sum)
		}

		if got.Reason == "" {
			t.Errorf("n=%d: empty reason", tt.nRatings)
		}
	}
}

func TestAdaptiveWeights(t *testing.T) {
	// No ratings means neither signal is usable.
	cf, cb := AdaptiveWeights(0)
	if cf != 0 || cb != 0 {
		t.Errorf("AdaptiveWeights(0) = %v/%v, want 0/0", cf, cb)
	}

	cf, cb = AdaptiveWeights(9)
	if math.Abs(cf-0.5) > 1e-9 {
		t.Errorf("AdaptiveWeights(9) cf = %v, want 0.5", cf)
	}

	// ln(11)/ln(100) = 0.5207, rounded to two decimals.
	cf, cb = AdaptiveWeights(10)
	if cf != 0.52 || cb != 0.48 {
		t.Errorf("AdaptiveWeights(10) = %v/%v, want 0.52/0.48", cf, cb)
	}
	if math.Abs(cf+cb-1) > 1e-9 {
		t.Errorf("weights don't sum to 1: %v + %v", cf, cb)
	}

	// Saturates at 0.75 no matter how many ratings.
	cf, _ = AdaptiveWeights(100000)
	if cf != 0.75 {
		t.Errorf("AdaptiveWeights(100000) cf = %v, want 0.75", cf)
	}
}

func TestParseStrategy(t *testing.T) {
	if s, ok := ParseStrategy("collaborative"); !ok || s != StrategyCollaborative {
		t.Errorf("ParseStrategy(collaborative) = %v, %v", s, ok)
	}
	if _, ok := ParseStrategy("quantum"); ok {
		t.Error("unknown strategy should not parse")
	}
	if _, ok := ParseStrategy(""); ok {
		t.Error("empty strategy should not parse")
	}
}

func TestIsModelBacked(t *testing.T) {
	if StrategyPopular.IsModelBacked() || StrategyGenreBased.IsModelBacked() {
		t.Error("catalog strategies should not be model backed")
	}
	for _, s := range []Strategy{StrategyContentBased, StrategyHybrid, StrategyCollaborative, StrategyMultiStage} {
		if !s.IsModelBacked() {
			t.Errorf("%s should be model backed", s)
		}
	}
}
