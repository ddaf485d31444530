// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

package features

import (
	"math"
	"testing"
	"time"

	"github.com/Isaque-Sangley/recolab-v2/internal/models"
)

var testNow = time.Date(2026, 8, 30, 15, 0, 0, 0, time.UTC)

func newTestStore() *Store {
	return NewStoreWithClock(func() time.Time { return testNow })
}

func TestComputeUserFeatures(t *testing.T) {
	store := newTestStore()

	lastActivity := testNow.Add(-15 * 24 * time.Hour)
	user := &models.User{
		ID:             1,
		NRatings:       99,
		AvgRating:      3.8,
		LastActivity:   &lastActivity,
		FavoriteGenres: []string{"Action", "Sci-Fi"},
	}

	features := store.ComputeUserFeatures(user, []float64{4.0, 3.0, 5.0, 3.0})

	if features.NRatings != 99 || features.AvgRating != 3.8 {
		t.Errorf("profile pass-through = %d/%v", features.NRatings, features.AvgRating)
	}

	// 15 of 30 days elapsed: recency decays to 0.5.
	if math.Abs(features.RecencyScore-0.5) > 1e-9 {
		t.Errorf("recency = %v, want 0.5", features.RecencyScore)
	}

	ratingScore := math.Min(1, math.Log(100)/math.Log(100))
	wantActivity := 0.6*ratingScore + 0.4*0.5
	if math.Abs(features.ActivityScore-wantActivity) > 1e-9 {
		t.Errorf("activity = %v, want %v", features.ActivityScore, wantActivity)
	}

	// Population variance of {4,3,5,3}: mean 3.75, variance 0.6875.
	if math.Abs(features.RatingVariance-0.6875) > 1e-9 {
		t.Errorf("variance = %v, want 0.6875", features.RatingVariance)
	}

	cached, ok := store.GetUserFeatures(1)
	if !ok || cached != features {
		t.Error("expected computed vector to be cached")
	}
}

func TestUserFeaturesNoActivity(t *testing.T) {
	store := newTestStore()

	user := &models.User{ID: 2, NRatings: 0}
	features := store.ComputeUserFeatures(user, nil)

	if features.RecencyScore != 0 {
		t.Errorf("recency with no activity = %v, want 0", features.RecencyScore)
	}
	if features.ActivityScore != 0 {
		t.Errorf("activity for cold-start user = %v, want 0", features.ActivityScore)
	}
	if features.RatingVariance != 0 {
		t.Errorf("variance with no sample = %v, want 0", features.RatingVariance)
	}
}

func TestRecencyClampsAtZero(t *testing.T) {
	store := newTestStore()

	stale := testNow.Add(-90 * 24 * time.Hour)
	user := &models.User{ID: 3, NRatings: 10, LastActivity: &stale}
	features := store.ComputeUserFeatures(user, nil)

	if features.RecencyScore != 0 {
		t.Errorf("recency after 90 days = %v, want 0", features.RecencyScore)
	}
}

func TestComputeItemFeatures(t *testing.T) {
	store := newTestStore()

	movie := &models.Movie{
		ID:          10,
		Title:       "Alien",
		Genres:      []string{"Horror", "Sci-Fi"},
		Year:        1979,
		RatingCount: 250,
		AvgRating:   4.4,
	}

	features := store.ComputeItemFeatures(movie, 1000)
	if math.Abs(features.PopularityScore-0.25) > 1e-9 {
		t.Errorf("popularity = %v, want 0.25", features.PopularityScore)
	}
	if features.AvgRating != 4.4 || features.RatingCount != 250 || features.Year != 1979 {
		t.Errorf("pass-through fields = %+v", features)
	}

	// More ratings than the reported max clamps to 1.
	features = store.ComputeItemFeatures(movie, 100)
	if features.PopularityScore != 1 {
		t.Errorf("clamped popularity = %v, want 1", features.PopularityScore)
	}

	// Empty catalog cannot normalize.
	features = store.ComputeItemFeatures(movie, 0)
	if features.PopularityScore != 0 {
		t.Errorf("popularity with zero max = %v, want 0", features.PopularityScore)
	}
}

func TestContextualFeatures(t *testing.T) {
	// 2026-08-29 is a Saturday.
	saturday := time.Date(2026, 8, 29, 21, 30, 0, 0, time.UTC)
	ctx := ContextualFeatures(saturday, "mobile")
	if ctx.HourOfDay != 21 {
		t.Errorf("hour = %d, want 21", ctx.HourOfDay)
	}
	if ctx.DayOfWeek != 6 {
		t.Errorf("day = %d, want 6", ctx.DayOfWeek)
	}
	if !ctx.IsWeekend {
		t.Error("saturday should be weekend")
	}
	if ctx.DeviceType != "mobile" {
		t.Errorf("device = %s", ctx.DeviceType)
	}

	monday := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	ctx = ContextualFeatures(monday, "")
	if ctx.IsWeekend {
		t.Error("monday should not be weekend")
	}
	if ctx.DeviceType != "unknown" {
		t.Errorf("empty device = %s, want unknown", ctx.DeviceType)
	}
}

func TestInvalidation(t *testing.T) {
	store := newTestStore()

	store.ComputeUserFeatures(&models.User{ID: 1, NRatings: 5}, nil)
	store.ComputeUserFeatures(&models.User{ID: 2, NRatings: 5}, nil)
	store.ComputeItemFeatures(&models.Movie{ID: 10, Title: "X", Genres: []string{"Drama"}}, 10)

	store.InvalidateUser(1)
	if _, ok := store.GetUserFeatures(1); ok {
		t.Error("user 1 should be invalidated")
	}
	if _, ok := store.GetUserFeatures(2); !ok {
		t.Error("user 2 should still be cached")
	}

	store.InvalidateItem(10)
	if _, ok := store.GetItemFeatures(10); ok {
		t.Error("item 10 should be invalidated")
	}

	store.ComputeUserFeatures(&models.User{ID: 3, NRatings: 1}, nil)
	store.Clear()
	users, items := store.CachedCounts()
	if users != 0 || items != 0 {
		t.Errorf("after Clear: %d users, %d items cached", users, items)
	}
}

func TestDefinitions(t *testing.T) {
	store := newTestStore()

	defs := store.Definitions()
	if len(defs) == 0 {
		t.Fatal("expected built-in definitions")
	}
	for i := 1; i < len(defs); i++ {
		if defs[i-1].Name >= defs[i].Name {
			t.Fatalf("definitions not sorted: %s >= %s", defs[i-1].Name, defs[i].Name)
		}
	}

	def, ok := store.GetDefinition("activity_score")
	if !ok {
		t.Fatal("missing activity_score definition")
	}
	if def.Type != TypeNumerical {
		t.Errorf("activity_score type = %s, want numerical", def.Type)
	}
	if len(def.Dependencies) == 0 {
		t.Error("activity_score should declare dependencies")
	}

	store.DefineFeature(Definition{Name: "session_length", Type: TypeNumerical})
	if _, ok := store.GetDefinition("session_length"); !ok {
		t.Error("custom definition not registered")
	}
}
