// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

package recommend

import (
	"fmt"
	"math"

	"github.com/Isaque-Sangley/recolab-v2/internal/models"
)

// Strategy is the recommendation approach chosen for a request.
type Strategy string

const (
	StrategyPopular       Strategy = "popular"
	StrategyGenreBased    Strategy = "genre_based"
	StrategyContentBased  Strategy = "content_based"
	StrategyHybrid        Strategy = "hybrid"
	StrategyCollaborative Strategy = "collaborative"
	StrategyMultiStage    Strategy = "multi_stage"
)

// ParseStrategy maps a request string onto a Strategy. Unknown values
// return false so the caller can fall back to the computed decision.
func ParseStrategy(s string) (Strategy, bool) {
	switch Strategy(s) {
	case StrategyPopular, StrategyGenreBased, StrategyContentBased,
		StrategyHybrid, StrategyCollaborative, StrategyMultiStage:
		return Strategy(s), true
	}
	return "", false
}

// StrategyDecision is the outcome of strategy selection for one user.
// CFWeight and CBWeight sum to 1.0 except for cold-start users, where
// both are 0.
type StrategyDecision struct {
	Strategy   Strategy       `json:"strategy"`
	CFWeight   float64        `json:"cf_weight"`
	CBWeight   float64        `json:"cb_weight"`
	Confidence float64        `json:"confidence"`
	Reason     string         `json:"reason"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// DecideStrategy selects the recommendation approach for a user based on
// interaction-history volume. Pure function: no I/O, no side effects.
func DecideStrategy(user *models.User) StrategyDecision {
	n := user.NRatings

	switch {
	case n == 0:
		return StrategyDecision{
			Strategy:   StrategyPopular,
			CFWeight:   0.0,
			CBWeight:   0.0,
			Confidence: 1.0,
			Reason:     "new user with no ratings, showing popular movies",
			Metadata:   map[string]any{"user_type": models.UserColdStart},
		}

	case n < 5:
		if len(user.FavoriteGenres) > 0 {
			return StrategyDecision{
				Strategy:   StrategyGenreBased,
				CFWeight:   0.2,
				CBWeight:   0.8,
				Confidence: 0.7,
				Reason:     fmt.Sprintf("only %d ratings, leaning on favorite genres", n),
				Metadata: map[string]any{
					"user_type":       models.UserNew,
					"favorite_genres": user.FavoriteGenres,
				},
			}
		}
		return StrategyDecision{
			Strategy:   StrategyContentBased,
			CFWeight:   0.2,
			CBWeight:   0.8,
			Confidence: 0.6,
			Reason:     fmt.Sprintf("only %d ratings, matching on movie attributes", n),
			Metadata:   map[string]any{"user_type": models.UserNew},
		}

	case n < 20:
		return StrategyDecision{
			Strategy:   StrategyContentBased,
			CFWeight:   0.3,
			CBWeight:   0.7,
			Confidence: 0.75,
			Reason:     fmt.Sprintf("%d ratings, content signals still dominate", n),
			Metadata:   map[string]any{"user_type": models.UserCasual},
		}

	case n < 50:
		return StrategyDecision{
			Strategy:   StrategyHybrid,
			CFWeight:   0.5,
			CBWeight:   0.5,
			Confidence: 0.85,
			Reason:     fmt.Sprintf("%d ratings, blending collaborative and content signals", n),
			Metadata:   map[string]any{"user_type": models.UserActive},
		}

	case n < 100:
		return StrategyDecision{
			Strategy:   StrategyCollaborative,
			CFWeight:   0.7,
			CBWeight:   0.3,
			Confidence: 0.9,
			Reason:     fmt.Sprintf("%d ratings, collaborative filtering is reliable", n),
			Metadata:   map[string]any{"user_type": models.UserActive},
		}

	default:
		return StrategyDecision{
			Strategy:   StrategyMultiStage,
			CFWeight:   0.75,
			CBWeight:   0.25,
			Confidence: 0.95,
			Reason:     fmt.Sprintf("%d ratings, full multi-stage pipeline", n),
			Metadata:   map[string]any{"user_type": models.UserPower},
		}
	}
}

// AdaptiveWeights computes continuous blending weights from rating
// volume, independent of the discrete strategy table. The collaborative
// weight grows logarithmically, saturates at 0.75, and is rounded to
// two decimals. A user with no ratings gets (0, 0): neither signal is
// usable.
func AdaptiveWeights(nRatings int) (cfWeight, cbWeight float64) {
	if nRatings == 0 {
		return 0, 0
	}
	cfWeight = math.Min(0.75, math.Log(float64(nRatings)+1)/math.Log(100))
	cfWeight = math.Round(cfWeight*100) / 100
	return cfWeight, 1 - cfWeight
}

// IsModelBacked reports whether the strategy sources candidates from
// the model server. Popular and genre-based strategies read the catalog
// directly instead.
func (s Strategy) IsModelBacked() bool {
	switch s {
	case StrategyPopular, StrategyGenreBased:
		return false
	default:
		return true
	}
}
