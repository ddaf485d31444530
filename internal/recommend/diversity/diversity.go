// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

// Package diversity measures and improves the variety of a
// recommendation list: Shannon-entropy genre diversity, popularity
// spread, year spread, and a greedy Maximal Marginal Relevance
// re-ranker that trades relevance against genre redundancy.
package diversity

import (
	"math"
	"sort"
	"strings"

	"github.com/Isaque-Sangley/recolab-v2/internal/models"
)

// Metrics describes how diverse a list of movies is. All scores are in
// [0,1] and rounded to 3 decimals.
type Metrics struct {
	GenreDiversity      float64  `json:"genre_diversity"`
	PopularityDiversity float64  `json:"popularity_diversity"`
	YearDiversity       float64  `json:"year_diversity"`
	Overall             float64  `json:"overall"`
	GenresCovered       []string `json:"genres_covered"`
}

// Calculate computes the diversity metrics for a list of movies.
// An empty list yields all-zero metrics.
func Calculate(items []*models.Movie) Metrics {
	if len(items) == 0 {
		return Metrics{GenresCovered: []string{}}
	}

	genre, covered := genreDiversity(items)
	popularity := popularityDiversity(items)
	year := yearDiversity(items)

	return Metrics{
		GenreDiversity:      round3(genre),
		PopularityDiversity: round3(popularity),
		YearDiversity:       round3(year),
		Overall:             round3(0.5*genre + 0.3*popularity + 0.2*year),
		GenresCovered:       covered,
	}
}

// genreDiversity is the Shannon entropy of the genre-frequency
// distribution, normalized by the maximum entropy for the number of
// distinct genres. A single-genre list scores 0.
func genreDiversity(items []*models.Movie) (float64, []string) {
	counts := make(map[string]int)
	total := 0
	for _, item := range items {
		for _, genre := range item.Genres {
			counts[genre]++
			total++
		}
	}

	covered := make([]string, 0, len(counts))
	for genre := range counts {
		covered = append(covered, genre)
	}
	sort.Strings(covered)

	if len(counts) <= 1 || total == 0 {
		return 0, covered
	}

	entropy := 0.0
	for _, count := range counts {
		p := float64(count) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy / math.Log2(float64(len(counts))), covered
}

// popularityDiversity is the standard deviation of max-normalized
// rating counts against a theoretical maximum of 0.5.
func popularityDiversity(items []*models.Movie) float64 {
	if len(items) < 2 {
		return 0.5
	}

	maxCount := 0
	for _, item := range items {
		if item.RatingCount > maxCount {
			maxCount = item.RatingCount
		}
	}
	if maxCount == 0 {
		return 0
	}

	normalized := make([]float64, len(items))
	mean := 0.0
	for i, item := range items {
		normalized[i] = float64(item.RatingCount) / float64(maxCount)
		mean += normalized[i]
	}
	mean /= float64(len(normalized))

	// Sample standard deviation; the short-list guard above ensures at
	// least two items.
	variance := 0.0
	for _, v := range normalized {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(normalized) - 1)

	return math.Min(1, math.Sqrt(variance)/0.5)
}

// yearDiversity maps the release-year span onto [0,1], saturating at a
// 50-year range. Movies with no known year are ignored.
func yearDiversity(items []*models.Movie) float64 {
	minYear, maxYear := 0, 0
	known := 0
	for _, item := range items {
		if item.Year == 0 {
			continue
		}
		if known == 0 || item.Year < minYear {
			minYear = item.Year
		}
		if known == 0 || item.Year > maxYear {
			maxYear = item.Year
		}
		known++
	}
	if known < 2 {
		return 0.5
	}
	return math.Min(1, float64(maxYear-minYear)/50)
}

// Rerank reorders candidates by greedy Maximal Marginal Relevance: the
// first pick is the most relevant candidate unconditionally, and each
// subsequent pick maximizes
//
//	(1-lambda)*relevance - lambda*maxSimilarityToSelected
//
// where similarity is Jaccard genre overlap. lambda=0 preserves the
// input order. Candidates whose movie is missing from the items map are
// dropped before ranking starts.
func Rerank(candidates []*models.Recommendation, items map[int]*models.Movie, lambda float64) []*models.Recommendation {
	if lambda < 0 {
		lambda = 0
	}
	if lambda > 1 {
		lambda = 1
	}

	// Resolve every candidate upfront; unresolvable ones don't compete.
	remaining := make([]*models.Recommendation, 0, len(candidates))
	for _, candidate := range candidates {
		if _, ok := items[candidate.MovieID]; ok {
			remaining = append(remaining, candidate)
		}
	}
	if len(remaining) <= 1 {
		return remaining
	}

	selected := make([]*models.Recommendation, 0, len(remaining))
	selected = append(selected, remaining[0])
	remaining = remaining[1:]

	for len(remaining) > 0 {
		bestIdx := 0
		bestScore := math.Inf(-1)

		for i, candidate := range remaining {
			item := items[candidate.MovieID]

			maxSim := 0.0
			for _, picked := range selected {
				if sim := item.GenreSimilarity(items[picked.MovieID]); sim > maxSim {
					maxSim = sim
				}
			}

			score := (1-lambda)*candidate.Score - lambda*maxSim
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}

		selected = append(selected, remaining[bestIdx])
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}

	return selected
}

// EnsureGenreCoverage swaps trailing recommendations for pool entries
// until at least minGenres of the user's favorite genres are
// represented in the slate or the pool is exhausted. Coverage counts
// favorite genres only; overall variety is the reranker's job. The top
// of the list is never touched.
func EnsureGenreCoverage(recs []*models.Recommendation, items map[int]*models.Movie, pool []*models.Recommendation, favorites []string, minGenres int) []*models.Recommendation {
	if len(favorites) == 0 || minGenres < 1 || len(recs) < minGenres {
		return recs
	}

	wanted := make(map[string]struct{}, len(favorites))
	for _, genre := range favorites {
		wanted[strings.ToLower(genre)] = struct{}{}
	}
	if minGenres > len(wanted) {
		minGenres = len(wanted)
	}

	coveredFavorites := func(movie *models.Movie) []string {
		var out []string
		for _, genre := range movie.Genres {
			if _, fav := wanted[strings.ToLower(genre)]; fav {
				out = append(out, strings.ToLower(genre))
			}
		}
		return out
	}

	covered := make(map[string]struct{})
	for _, rec := range recs {
		if item, ok := items[rec.MovieID]; ok {
			for _, genre := range coveredFavorites(item) {
				covered[genre] = struct{}{}
			}
		}
	}
	if len(covered) >= minGenres {
		return recs
	}

	inList := make(map[int]struct{}, len(recs))
	for _, rec := range recs {
		inList[rec.MovieID] = struct{}{}
	}

	// Swap from the tail so the highest-relevance picks stay in place.
	swapAt := len(recs) - 1
	for _, candidate := range pool {
		if len(covered) >= minGenres || swapAt <= 0 {
			break
		}
		if _, dup := inList[candidate.MovieID]; dup {
			continue
		}
		item, ok := items[candidate.MovieID]
		if !ok {
			continue
		}

		novel := false
		for _, genre := range coveredFavorites(item) {
			if _, seen := covered[genre]; !seen {
				novel = true
				break
			}
		}
		if !novel {
			continue
		}

		delete(inList, recs[swapAt].MovieID)
		recs[swapAt] = candidate
		inList[candidate.MovieID] = struct{}{}
		for _, genre := range coveredFavorites(item) {
			covered[genre] = struct{}{}
		}
		swapAt--
	}
	return recs
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
