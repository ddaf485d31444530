// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

package recommend

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/Isaque-Sangley/recolab-v2/internal/features"
	"github.com/Isaque-Sangley/recolab-v2/internal/models"
)

type capturedEvent struct {
	topic   string
	payload interface{}
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (p *capturingPublisher) Publish(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, capturedEvent{topic: topic, payload: payload})
	return nil
}

func (p *capturingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.topic
	}
	return out
}

func ratingFixture(t *testing.T) (*RatingService, *memUserStore, *memMovieStore, *memRatingStore, *fakeServer, *capturingPublisher) {
	t.Helper()

	userStore := newMemUserStore(&models.User{ID: 1})
	movieStore := newMemMovieStore(
		&models.Movie{ID: 10, Title: "Alien", Genres: []string{"Horror", "Sci-Fi"}},
		&models.Movie{ID: 11, Title: "Aliens", Genres: []string{"Action", "Sci-Fi"}},
		&models.Movie{ID: 12, Title: "Annie Hall", Genres: []string{"Comedy"}},
	)
	ratingStore := newMemRatingStore()
	srv := &fakeServer{}
	pub := &capturingPublisher{}
	svc := NewRatingService(userStore, movieStore, ratingStore, srv, features.NewStore(), pub)
	return svc, userStore, movieStore, ratingStore, srv, pub
}

func TestRateMovieRecomputesStats(t *testing.T) {
	svc, userStore, movieStore, _, srv, pub := ratingFixture(t)
	ctx := context.Background()

	if _, err := svc.RateMovie(ctx, 1, 10, 4.5); err != nil {
		t.Fatalf("RateMovie: %v", err)
	}
	if _, err := svc.RateMovie(ctx, 1, 11, 4.0); err != nil {
		t.Fatalf("RateMovie: %v", err)
	}
	if _, err := svc.RateMovie(ctx, 1, 12, 2.0); err != nil {
		t.Fatalf("RateMovie: %v", err)
	}

	user, _ := userStore.FindByID(ctx, 1)
	if user.NRatings != 3 {
		t.Errorf("n_ratings = %d, want 3", user.NRatings)
	}
	if want := (4.5 + 4.0 + 2.0) / 3; math.Abs(user.AvgRating-want) > 1e-9 {
		t.Errorf("avg_rating = %v, want %v", user.AvgRating, want)
	}
	if user.LastActivity == nil {
		t.Error("last activity not marked")
	}

	// Favorite genres come from the 4.0+ rated movies only: Sci-Fi
	// appears twice, Horror and Action once; Comedy (rated 2.0) never.
	if len(user.FavoriteGenres) == 0 || user.FavoriteGenres[0] != "Sci-Fi" {
		t.Errorf("favorite genres = %v, want Sci-Fi first", user.FavoriteGenres)
	}
	for _, g := range user.FavoriteGenres {
		if g == "Comedy" {
			t.Error("low-rated genre leaked into favorites")
		}
	}

	movie, _ := movieStore.FindByID(ctx, 10)
	if movie.RatingCount != 1 || movie.AvgRating != 4.5 {
		t.Errorf("movie stats = %d/%v, want 1/4.5", movie.RatingCount, movie.AvgRating)
	}

	if len(srv.invalidated) != 3 {
		t.Errorf("cache invalidations = %d, want 3", len(srv.invalidated))
	}
	for _, topic := range pub.topics() {
		if topic != "rating.created" {
			t.Errorf("unexpected topic %s", topic)
		}
	}
}

func TestRateMovieUpdateReplacesInPlace(t *testing.T) {
	svc, userStore, _, ratingStore, _, pub := ratingFixture(t)
	ctx := context.Background()

	if _, err := svc.RateMovie(ctx, 1, 10, 2.0); err != nil {
		t.Fatalf("RateMovie: %v", err)
	}
	if _, err := svc.RateMovie(ctx, 1, 10, 5.0); err != nil {
		t.Fatalf("RateMovie update: %v", err)
	}

	user, _ := userStore.FindByID(ctx, 1)
	if user.NRatings != 1 {
		t.Errorf("n_ratings after update = %d, want 1 (same pair)", user.NRatings)
	}
	if user.AvgRating != 5.0 {
		t.Errorf("avg after update = %v, want 5.0", user.AvgRating)
	}

	stored, _ := ratingStore.FindByUserAndMovie(ctx, 1, 10)
	if float64(stored.Score) != 5.0 {
		t.Errorf("stored score = %v, want 5.0", stored.Score)
	}

	topics := pub.topics()
	if len(topics) != 2 || topics[0] != "rating.created" || topics[1] != "rating.updated" {
		t.Errorf("topics = %v, want [rating.created rating.updated]", topics)
	}
}

func TestRateMovieValidation(t *testing.T) {
	svc, _, _, _, _, _ := ratingFixture(t)
	ctx := context.Background()

	if _, err := svc.RateMovie(ctx, 1, 10, 3.7); err == nil {
		t.Error("expected invalid score to be rejected")
	}
	if _, err := svc.RateMovie(ctx, 404, 10, 4.0); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown user = %v, want ErrNotFound", err)
	}
	if _, err := svc.RateMovie(ctx, 1, 404, 4.0); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown movie = %v, want ErrNotFound", err)
	}
}

func TestDeleteRating(t *testing.T) {
	svc, userStore, movieStore, _, _, pub := ratingFixture(t)
	ctx := context.Background()

	if _, err := svc.RateMovie(ctx, 1, 10, 4.0); err != nil {
		t.Fatalf("RateMovie: %v", err)
	}
	if err := svc.DeleteRating(ctx, 1, 10); err != nil {
		t.Fatalf("DeleteRating: %v", err)
	}

	user, _ := userStore.FindByID(ctx, 1)
	if user.NRatings != 0 || user.AvgRating != 0 {
		t.Errorf("user stats after delete = %d/%v, want 0/0", user.NRatings, user.AvgRating)
	}
	movie, _ := movieStore.FindByID(ctx, 10)
	if movie.RatingCount != 0 {
		t.Errorf("movie count after delete = %d, want 0", movie.RatingCount)
	}

	if err := svc.DeleteRating(ctx, 1, 10); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleting absent rating = %v, want ErrNotFound", err)
	}

	topics := pub.topics()
	if topics[len(topics)-1] != "rating.deleted" {
		t.Errorf("last topic = %s, want rating.deleted", topics[len(topics)-1])
	}
}

func TestGetUserRatings(t *testing.T) {
	svc, _, _, _, _, _ := ratingFixture(t)
	ctx := context.Background()

	if _, err := svc.RateMovie(ctx, 1, 10, 4.0); err != nil {
		t.Fatalf("RateMovie: %v", err)
	}
	ratings, err := svc.GetUserRatings(ctx, 1)
	if err != nil {
		t.Fatalf("GetUserRatings: %v", err)
	}
	if len(ratings) != 1 {
		t.Errorf("len = %d, want 1", len(ratings))
	}

	if _, err := svc.GetUserRatings(ctx, 404); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown user = %v, want ErrNotFound", err)
	}
}
