// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

package models

import (
	"math"
	"strings"
)

// Movie is a catalog item with aggregate rating statistics.
type Movie struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Genres      []string `json:"genres"`
	Year        int      `json:"year,omitempty"` // 0 means unknown
	RatingCount int      `json:"rating_count"`
	AvgRating   float64  `json:"avg_rating"`
}

// NewMovie creates a Movie and validates its invariants.
// An empty genre list defaults to ["Unknown"].
func NewMovie(id int, title string, genres []string) (*Movie, error) {
	m := &Movie{ID: id, Title: title, Genres: genres}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks the movie invariants and applies the genre default.
func (m *Movie) Validate() error {
	if m.ID <= 0 {
		return newValidationError("id", "must be positive, got %d", m.ID)
	}
	if strings.TrimSpace(m.Title) == "" {
		return newValidationError("title", "cannot be empty")
	}
	if m.RatingCount < 0 {
		return newValidationError("rating_count", "cannot be negative: %d", m.RatingCount)
	}
	if m.AvgRating < 0 || m.AvgRating > 5 {
		return newValidationError("avg_rating", "must be 0-5, got %g", m.AvgRating)
	}
	if len(m.Genres) == 0 {
		m.Genres = []string{"Unknown"}
	}
	return nil
}

// IsPopular reports whether the movie has at least threshold ratings.
func (m *Movie) IsPopular(threshold int) bool {
	return m.RatingCount >= threshold
}

// IsWellRated reports whether the average rating meets the threshold.
func (m *Movie) IsWellRated(threshold float64) bool {
	return m.AvgRating >= threshold
}

// HasGenre reports whether the movie carries the genre (case-insensitive).
func (m *Movie) HasGenre(genre string) bool {
	for _, g := range m.Genres {
		if strings.EqualFold(g, genre) {
			return true
		}
	}
	return false
}

// GenreSimilarity computes the Jaccard similarity between two movies'
// genre sets, case-insensitively. Returns 0-1.
func (m *Movie) GenreSimilarity(other *Movie) float64 {
	if other == nil || len(m.Genres) == 0 || len(other.Genres) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(m.Genres))
	for _, g := range m.Genres {
		setA[strings.ToLower(g)] = struct{}{}
	}
	setB := make(map[string]struct{}, len(other.Genres))
	for _, g := range other.Genres {
		setB[strings.ToLower(g)] = struct{}{}
	}

	intersection := 0
	for g := range setA {
		if _, ok := setB[g]; ok {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// PopularityScore combines rating volume with rating quality on a 0-10
// scale. The count component is log-scaled so blockbusters do not
// dominate: min(5, log(count+1)/log(100)*5) plus the 0-5 average.
func (m *Movie) PopularityScore() float64 {
	if m.RatingCount == 0 {
		return 0
	}

	countScore := math.Min(5, math.Log(float64(m.RatingCount)+1)/math.Log(100)*5)
	score := countScore + m.AvgRating

	return math.Round(score*100) / 100
}
