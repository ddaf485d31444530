// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

package models

import (
	"math"
	"testing"
)

func TestMovie_Validate(t *testing.T) {
	m := Movie{ID: 1, Title: "Heat", Genres: nil, AvgRating: 4.3}
	if err := m.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(m.Genres) != 1 || m.Genres[0] != "Unknown" {
		t.Errorf("empty genres should default to [Unknown], got %v", m.Genres)
	}

	bad := Movie{ID: 1, Title: ""}
	if err := bad.Validate(); err == nil {
		t.Error("expected error for empty title")
	}
}

func TestMovie_GenreSimilarity(t *testing.T) {
	a := Movie{ID: 1, Title: "a", Genres: []string{"Action", "Thriller"}}
	b := Movie{ID: 2, Title: "b", Genres: []string{"action", "Drama"}}
	c := Movie{ID: 3, Title: "c", Genres: []string{"Comedy"}}

	// Jaccard: |{action}| / |{action, thriller, drama}|.
	if got := a.GenreSimilarity(&b); math.Abs(got-1.0/3.0) > 1e-9 {
		t.Errorf("GenreSimilarity = %g, want 1/3", got)
	}
	if got := a.GenreSimilarity(&c); got != 0 {
		t.Errorf("disjoint genres similarity = %g, want 0", got)
	}
	if got := a.GenreSimilarity(&a); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("self similarity = %g, want 1", got)
	}
	if got := a.GenreSimilarity(nil); got != 0 {
		t.Errorf("nil other similarity = %g, want 0", got)
	}
}

func TestMovie_PopularityScore(t *testing.T) {
	if got := (&Movie{ID: 1, Title: "x"}).PopularityScore(); got != 0 {
		t.Errorf("unrated movie score = %g, want 0", got)
	}

	// 100 ratings saturates the volume term at 5.0.
	m := Movie{ID: 2, Title: "y", RatingCount: 99, AvgRating: 4.0}
	want := math.Round((5.0+4.0)*100) / 100
	if got := m.PopularityScore(); math.Abs(got-want) > 1e-9 {
		t.Errorf("PopularityScore = %g, want %g", got, want)
	}

	m = Movie{ID: 3, Title: "z", RatingCount: 9, AvgRating: 3.0}
	want = math.Round((math.Log(10)/math.Log(100)*5+3.0)*100) / 100
	if got := m.PopularityScore(); math.Abs(got-want) > 1e-9 {
		t.Errorf("PopularityScore = %g, want %g", got, want)
	}
}

func TestMovie_HasGenre(t *testing.T) {
	m := Movie{ID: 1, Title: "x", Genres: []string{"Sci-Fi", "Action"}}
	if !m.HasGenre("sci-fi") {
		t.Error("HasGenre should be case-insensitive")
	}
	if m.HasGenre("Drama") {
		t.Error("HasGenre should not match absent genre")
	}
}
