// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

package recommend

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Isaque-Sangley/recolab-v2/internal/ml"
	"github.com/Isaque-Sangley/recolab-v2/internal/models"
)

// In-memory store fakes shared by the package tests.

type memUserStore struct {
	mu    sync.Mutex
	users map[int]*models.User
}

func newMemUserStore(users ...*models.User) *memUserStore {
	s := &memUserStore{users: make(map[int]*models.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *memUserStore) FindByID(_ context.Context, id int) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id], nil
}

func (s *memUserStore) Save(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = user
	return nil
}

type memMovieStore struct {
	mu     sync.Mutex
	movies map[int]*models.Movie
}

func newMemMovieStore(movies ...*models.Movie) *memMovieStore {
	s := &memMovieStore{movies: make(map[int]*models.Movie)}
	for _, m := range movies {
		s.movies[m.ID] = m
	}
	return s
}

func (s *memMovieStore) FindByID(_ context.Context, id int) (*models.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.movies[id], nil
}

func (s *memMovieStore) FindByIDs(_ context.Context, ids []int) (map[int]*models.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]*models.Movie, len(ids))
	for _, id := range ids {
		if m, ok := s.movies[id]; ok {
			out[id] = m
		}
	}
	return out, nil
}

func (s *memMovieStore) FindByGenres(_ context.Context, genres []string, limit int) ([]*models.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Movie
	for _, m := range s.movies {
		for _, g := range genres {
			if m.HasGenre(g) {
				out = append(out, m)
				break
			}
		}
	}
	sortByPopularity(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memMovieStore) FindPopular(_ context.Context, limit int) ([]*models.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Movie, 0, len(s.movies))
	for _, m := range s.movies {
		out = append(out, m)
	}
	sortByPopularity(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memMovieStore) FindWellRated(_ context.Context, minRating float64, limit int) ([]*models.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Movie
	for _, m := range s.movies {
		if m.AvgRating >= minRating {
			out = append(out, m)
		}
	}
	sortByPopularity(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memMovieStore) MaxRatingCount(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	max := 0
	for _, m := range s.movies {
		if m.RatingCount > max {
			max = m.RatingCount
		}
	}
	return max, nil
}

func (s *memMovieStore) Save(_ context.Context, movie *models.Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.movies[movie.ID] = movie
	return nil
}

func sortByPopularity(movies []*models.Movie) {
	sort.Slice(movies, func(i, j int) bool {
		pi, pj := movies[i].PopularityScore(), movies[j].PopularityScore()
		if pi != pj {
			return pi > pj
		}
		return movies[i].ID < movies[j].ID
	})
}

type memRatingStore struct {
	mu      sync.Mutex
	ratings map[models.RatingKey]*models.Rating
}

func newMemRatingStore(ratings ...*models.Rating) *memRatingStore {
	s := &memRatingStore{ratings: make(map[models.RatingKey]*models.Rating)}
	for _, r := range ratings {
		s.ratings[r.Key()] = r
	}
	return s
}

func (s *memRatingStore) FindByUser(_ context.Context, userID int) ([]*models.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Rating
	for _, r := range s.ratings {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memRatingStore) FindByMovie(_ context.Context, movieID int) ([]*models.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Rating
	for _, r := range s.ratings {
		if r.MovieID == movieID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memRatingStore) FindByUserAndMovie(_ context.Context, userID, movieID int) (*models.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ratings[models.RatingKey{UserID: userID, MovieID: movieID}], nil
}

func (s *memRatingStore) FindAll(_ context.Context) ([]*models.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.Rating, 0, len(s.ratings))
	for _, r := range s.ratings {
		out = append(out, r)
	}
	return out, nil
}

func (s *memRatingStore) FindSince(_ context.Context, since time.Time) ([]*models.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Rating
	for _, r := range s.ratings {
		if !r.Timestamp.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *memRatingStore) Save(_ context.Context, rating *models.Rating) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ratings[rating.Key()] = rating
	return nil
}

func (s *memRatingStore) Delete(_ context.Context, userID, movieID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ratings, models.RatingKey{UserID: userID, MovieID: movieID})
	return nil
}

type memRecStore struct {
	mu      sync.Mutex
	batches map[int][]*models.Recommendation
	err     error
}

func newMemRecStore() *memRecStore {
	return &memRecStore{batches: make(map[int][]*models.Recommendation)}
}

func (s *memRecStore) ReplaceBatch(_ context.Context, userID int, recs []*models.Recommendation) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[userID] = recs
	return nil
}

func (s *memRecStore) FindByUser(_ context.Context, userID int) ([]*models.Recommendation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.batches[userID], nil
}

// fakeServer returns canned candidates and records invalidations.
type fakeServer struct {
	mu           sync.Mutex
	candidates   []*models.Recommendation
	lastExclude  map[int]struct{}
	invalidated  []int
	requestCount int
}

func (f *fakeServer) Recommend(_ context.Context, userID, n int, exclude map[int]struct{}, _ ml.ModelType, _ string) []*models.Recommendation {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requestCount++
	f.lastExclude = exclude

	out := make([]*models.Recommendation, 0, n)
	for _, c := range f.candidates {
		if _, skip := exclude[c.MovieID]; skip {
			continue
		}
		if len(out) >= n {
			break
		}
		copied := *c
		copied.UserID = userID
		out = append(out, &copied)
	}
	return out
}

func (f *fakeServer) InvalidateUserCache(userID int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invalidated = append(f.invalidated, userID)
}
