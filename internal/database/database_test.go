// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

package database

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/Isaque-Sangley/recolab-v2/internal/config"
	"github.com/Isaque-Sangley/recolab-v2/internal/models"
)

// testDB opens a connection against the database named by
// RECOLAB_TEST_DATABASE_DSN. Tests that need a live Postgres skip when
// the variable is unset so the suite stays runnable without one.
func testDB(t *testing.T) *DB {
	t.Helper()

	dsn := os.Getenv("RECOLAB_TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("RECOLAB_TEST_DATABASE_DSN not set, skipping integration test")
	}

	cfg := &config.DatabaseConfig{
		DSN:             dsn,
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
	}

	db, err := Open(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		ctx := context.Background()
		for _, table := range []string{"recommendations", "ratings", "movies", "users"} {
			if _, err := db.conn.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				t.Errorf("cleanup %s: %v", table, err)
			}
		}
		if err := db.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return db
}

func seedUser(t *testing.T, db *DB, id int) *models.User {
	t.Helper()
	user := &models.User{ID: id, CreatedAt: time.Now().UTC().Truncate(time.Second)}
	if err := db.Users().Save(context.Background(), user); err != nil {
		t.Fatalf("Users().Save() error = %v", err)
	}
	return user
}

func seedMovie(t *testing.T, db *DB, id int, title string, genres []string, ratingCount int) *models.Movie {
	t.Helper()
	movie := &models.Movie{ID: id, Title: title, Genres: genres, Year: 2000 + id%30, RatingCount: ratingCount}
	if err := db.Movies().Save(context.Background(), movie); err != nil {
		t.Fatalf("Movies().Save() error = %v", err)
	}
	return movie
}

func TestUserRepoRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	last := time.Now().UTC().Truncate(time.Second)
	want := &models.User{
		ID:             101,
		CreatedAt:      last.Add(-24 * time.Hour),
		NRatings:       7,
		AvgRating:      3.5,
		LastActivity:   &last,
		FavoriteGenres: []string{"Sci-Fi", "Drama"},
	}
	if err := db.Users().Save(ctx, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := db.Users().FindByID(ctx, 101)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if got == nil {
		t.Fatal("FindByID() = nil, want user")
	}
	if got.NRatings != 7 || got.AvgRating != 3.5 {
		t.Errorf("stats = (%d, %g), want (7, 3.5)", got.NRatings, got.AvgRating)
	}
	if got.LastActivity == nil || !got.LastActivity.Equal(last) {
		t.Errorf("LastActivity = %v, want %v", got.LastActivity, last)
	}
	if len(got.FavoriteGenres) != 2 || got.FavoriteGenres[0] != "Sci-Fi" {
		t.Errorf("FavoriteGenres = %v, want [Sci-Fi Drama]", got.FavoriteGenres)
	}

	// Upsert path: saving again overwrites the stats.
	want.NRatings = 8
	if err := db.Users().Save(ctx, want); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}
	got, err = db.Users().FindByID(ctx, 101)
	if err != nil {
		t.Fatalf("FindByID() after upsert error = %v", err)
	}
	if got.NRatings != 8 {
		t.Errorf("NRatings after upsert = %d, want 8", got.NRatings)
	}
}

func TestUserRepoMissingIsNil(t *testing.T) {
	db := testDB(t)

	got, err := db.Users().FindByID(context.Background(), 999999)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if got != nil {
		t.Errorf("FindByID() = %+v, want nil for missing user", got)
	}
}

func TestMovieRepoQueries(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	seedMovie(t, db, 1, "Blade Runner", []string{"Sci-Fi"}, 500)
	seedMovie(t, db, 2, "Heat", []string{"Crime", "Thriller"}, 300)
	seedMovie(t, db, 3, "Alien", []string{"Sci-Fi", "Horror"}, 400)

	popular, err := db.Movies().FindPopular(ctx, 2)
	if err != nil {
		t.Fatalf("FindPopular() error = %v", err)
	}
	if len(popular) != 2 || popular[0].ID != 1 || popular[1].ID != 3 {
		t.Errorf("FindPopular() order = %v, want [1 3]", movieIDs(popular))
	}

	sciFi, err := db.Movies().FindByGenres(ctx, []string{"Sci-Fi"}, 10)
	if err != nil {
		t.Fatalf("FindByGenres() error = %v", err)
	}
	if len(sciFi) != 2 {
		t.Errorf("FindByGenres(Sci-Fi) = %v, want 2 movies", movieIDs(sciFi))
	}

	batch, err := db.Movies().FindByIDs(ctx, []int{1, 3, 42})
	if err != nil {
		t.Fatalf("FindByIDs() error = %v", err)
	}
	if len(batch) != 2 || batch[1] == nil || batch[3] == nil {
		t.Errorf("FindByIDs() = %d movies, want 2 (missing id dropped)", len(batch))
	}

	maxCount, err := db.Movies().MaxRatingCount(ctx)
	if err != nil {
		t.Fatalf("MaxRatingCount() error = %v", err)
	}
	if maxCount != 500 {
		t.Errorf("MaxRatingCount() = %d, want 500", maxCount)
	}
}

func TestRatingRepoLifecycle(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	seedUser(t, db, 1)
	seedMovie(t, db, 10, "Arrival", []string{"Sci-Fi"}, 10)
	seedMovie(t, db, 11, "Sicario", []string{"Thriller"}, 10)

	now := time.Now().UTC().Truncate(time.Second)
	for _, r := range []struct {
		movieID int
		score   float64
		at      time.Time
	}{
		{10, 4.5, now.Add(-time.Hour)},
		{11, 3.0, now},
	} {
		rating, err := models.NewRating(1, r.movieID, r.score, r.at)
		if err != nil {
			t.Fatalf("NewRating() error = %v", err)
		}
		if err := db.Ratings().Save(ctx, rating); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	byUser, err := db.Ratings().FindByUser(ctx, 1)
	if err != nil {
		t.Fatalf("FindByUser() error = %v", err)
	}
	if len(byUser) != 2 || byUser[0].MovieID != 11 {
		t.Errorf("FindByUser() newest-first order broken: %+v", byUser)
	}

	// Re-rating replaces in place.
	updated, _ := models.NewRating(1, 10, 2.0, now)
	if err := db.Ratings().Save(ctx, updated); err != nil {
		t.Fatalf("re-rating Save() error = %v", err)
	}
	one, err := db.Ratings().FindByUserAndMovie(ctx, 1, 10)
	if err != nil {
		t.Fatalf("FindByUserAndMovie() error = %v", err)
	}
	if one == nil || float64(one.Score) != 2.0 {
		t.Errorf("score after re-rating = %v, want 2.0", one)
	}

	recent, err := db.Ratings().FindSince(ctx, now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("FindSince() error = %v", err)
	}
	if len(recent) != 2 {
		t.Errorf("FindSince() = %d ratings, want 2 (both re-stamped to now)", len(recent))
	}

	if err := db.Ratings().Delete(ctx, 1, 10); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	gone, err := db.Ratings().FindByUserAndMovie(ctx, 1, 10)
	if err != nil {
		t.Fatalf("FindByUserAndMovie() after delete error = %v", err)
	}
	if gone != nil {
		t.Errorf("rating still present after delete: %+v", gone)
	}
}

func TestRecommendationRepoReplaceBatch(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	seedUser(t, db, 5)
	now := time.Now().UTC().Truncate(time.Second)

	first := []*models.Recommendation{
		{UserID: 5, MovieID: 1, Score: 0.9, Source: models.SourceCollaborative, Timestamp: now, Rank: 1},
		{UserID: 5, MovieID: 2, Score: 0.8, Source: models.SourceCollaborative, Timestamp: now, Rank: 2},
	}
	if err := db.Recommendations().ReplaceBatch(ctx, 5, first); err != nil {
		t.Fatalf("ReplaceBatch() error = %v", err)
	}

	second := []*models.Recommendation{
		{UserID: 5, MovieID: 3, Score: 0.7, Source: models.SourceContentBased, Timestamp: now, Rank: 1},
	}
	if err := db.Recommendations().ReplaceBatch(ctx, 5, second); err != nil {
		t.Fatalf("second ReplaceBatch() error = %v", err)
	}

	got, err := db.Recommendations().FindByUser(ctx, 5)
	if err != nil {
		t.Fatalf("FindByUser() error = %v", err)
	}
	if len(got) != 1 || got[0].MovieID != 3 || got[0].Source != models.SourceContentBased {
		t.Errorf("FindByUser() = %+v, want only the second batch", got)
	}

	// An empty batch clears the history.
	if err := db.Recommendations().ReplaceBatch(ctx, 5, nil); err != nil {
		t.Fatalf("empty ReplaceBatch() error = %v", err)
	}
	got, err = db.Recommendations().FindByUser(ctx, 5)
	if err != nil {
		t.Fatalf("FindByUser() after clear error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("FindByUser() after clear = %d rows, want 0", len(got))
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := testDB(t)

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}

	var version int
	if err := db.conn.QueryRow(
		`SELECT MAX(version) FROM schema_migrations`).Scan(&version); err != nil {
		t.Fatalf("schema version query error = %v", err)
	}
	if version != len(migrations) {
		t.Errorf("schema version = %d, want %d", version, len(migrations))
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"refused", errors.New("dial tcp: connection refused"), true},
		{"bad conn", errors.New("driver: bad connection"), true},
		{"closed", errors.New("sql: database is closed"), true},
		{"query error", errors.New("pq: syntax error at or near SELECT"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.want {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func movieIDs(movies []*models.Movie) []int {
	ids := make([]int, len(movies))
	for i, m := range movies {
		ids[i] = m.ID
	}
	return ids
}
