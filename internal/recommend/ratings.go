// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

package recommend

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Isaque-Sangley/recolab-v2/internal/events"
	"github.com/Isaque-Sangley/recolab-v2/internal/features"
	"github.com/Isaque-Sangley/recolab-v2/internal/logging"
	"github.com/Isaque-Sangley/recolab-v2/internal/models"
)

// Publisher is the event-bus surface the rating service needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
}

// RatingService handles rating writes and keeps the derived user and
// movie statistics consistent. Statistics are recomputed from the full
// rating set on every change, never incrementally trusted.
type RatingService struct {
	users     UserStore
	movies    MovieStore
	ratings   RatingStore
	server    ModelServer
	features  *features.Store
	publisher Publisher
	now       func() time.Time
}

// NewRatingService wires a rating service.
func NewRatingService(
	users UserStore,
	movies MovieStore,
	ratings RatingStore,
	server ModelServer,
	featureStore *features.Store,
	publisher Publisher,
) *RatingService {
	return &RatingService{
		users:     users,
		movies:    movies,
		ratings:   ratings,
		server:    server,
		features:  featureStore,
		publisher: publisher,
		now:       time.Now,
	}
}

// RateMovie creates or updates the rating for (user, movie). A second
// rating for the same pair replaces the first.
func (s *RatingService) RateMovie(ctx context.Context, userID, movieID int, score float64) (*models.Rating, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, NotFoundf("user", userID)
	}
	movie, err := s.movies.FindByID(ctx, movieID)
	if err != nil {
		return nil, err
	}
	if movie == nil {
		return nil, NotFoundf("movie", movieID)
	}

	rating, err := models.NewRating(userID, movieID, score, s.now())
	if err != nil {
		return nil, err
	}

	existing, err := s.ratings.FindByUserAndMovie(ctx, userID, movieID)
	if err != nil {
		return nil, err
	}

	if err := s.ratings.Save(ctx, rating); err != nil {
		return nil, fmt.Errorf("save rating: %w", err)
	}

	if err := s.refreshStats(ctx, user, movie); err != nil {
		return nil, err
	}
	s.invalidate(userID, movieID)

	topic := events.TopicRatingCreated
	if existing != nil {
		topic = events.TopicRatingUpdated
	}
	s.publish(ctx, topic, userID, movieID, score)

	return rating, nil
}

// DeleteRating removes the rating for (user, movie).
func (s *RatingService) DeleteRating(ctx context.Context, userID, movieID int) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return NotFoundf("user", userID)
	}
	movie, err := s.movies.FindByID(ctx, movieID)
	if err != nil {
		return err
	}
	if movie == nil {
		return NotFoundf("movie", movieID)
	}

	existing, err := s.ratings.FindByUserAndMovie(ctx, userID, movieID)
	if err != nil {
		return err
	}
	if existing == nil {
		return fmt.Errorf("rating for user %d movie %d: %w", userID, movieID, ErrNotFound)
	}

	if err := s.ratings.Delete(ctx, userID, movieID); err != nil {
		return fmt.Errorf("delete rating: %w", err)
	}

	if err := s.refreshStats(ctx, user, movie); err != nil {
		return err
	}
	s.invalidate(userID, movieID)
	s.publish(ctx, events.TopicRatingDeleted, userID, movieID, float64(existing.Score))
	return nil
}

// GetUserRatings returns all ratings by a user.
func (s *RatingService) GetUserRatings(ctx context.Context, userID int) ([]*models.Rating, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, NotFoundf("user", userID)
	}
	return s.ratings.FindByUser(ctx, userID)
}

// refreshStats recomputes the user's and movie's aggregate statistics
// from their full rating sets.
func (s *RatingService) refreshStats(ctx context.Context, user *models.User, movie *models.Movie) error {
	userRatings, err := s.ratings.FindByUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("reload user ratings: %w", err)
	}

	user.NRatings = len(userRatings)
	user.AvgRating = meanScore(userRatings)
	user.MarkActivity(s.now())
	if err := s.recomputeFavoriteGenres(ctx, user, userRatings); err != nil {
		return err
	}
	if err := s.users.Save(ctx, user); err != nil {
		return fmt.Errorf("save user stats: %w", err)
	}

	movieRatings, err := s.ratings.FindByMovie(ctx, movie.ID)
	if err != nil {
		return fmt.Errorf("reload movie ratings: %w", err)
	}
	movie.RatingCount = len(movieRatings)
	movie.AvgRating = meanScore(movieRatings)
	if err := s.movies.Save(ctx, movie); err != nil {
		return fmt.Errorf("save movie stats: %w", err)
	}
	return nil
}

// recomputeFavoriteGenres derives the user's favorite genres from the
// genres of movies they rated 4.0 or higher, most frequent first.
func (s *RatingService) recomputeFavoriteGenres(ctx context.Context, user *models.User, ratings []*models.Rating) error {
	ids := make([]int, 0, len(ratings))
	for _, r := range ratings {
		if r.Score.IsPositive() {
			ids = append(ids, r.MovieID)
		}
	}
	if len(ids) == 0 {
		user.SetFavoriteGenres(nil)
		return nil
	}

	liked, err := s.movies.FindByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("load liked movies: %w", err)
	}

	counts := make(map[string]int)
	for _, movie := range liked {
		for _, genre := range movie.Genres {
			counts[genre]++
		}
	}

	genres := make([]string, 0, len(counts))
	for genre := range counts {
		genres = append(genres, genre)
	}
	sort.Slice(genres, func(i, j int) bool {
		if counts[genres[i]] != counts[genres[j]] {
			return counts[genres[i]] > counts[genres[j]]
		}
		return genres[i] < genres[j]
	})

	user.SetFavoriteGenres(genres)
	return nil
}

// invalidate drops every cache derived from the changed rating.
func (s *RatingService) invalidate(userID, movieID int) {
	if s.server != nil {
		s.server.InvalidateUserCache(userID)
	}
	if s.features != nil {
		s.features.InvalidateUser(userID)
		s.features.InvalidateItem(movieID)
	}
}

// publish emits a rating event. Failures are logged and swallowed:
// subscribers are advisory, never part of the write path.
func (s *RatingService) publish(ctx context.Context, topic string, userID, movieID int, score float64) {
	if s.publisher == nil {
		return
	}
	event := events.RatingEvent{
		UserID:     userID,
		MovieID:    movieID,
		Score:      score,
		OccurredAt: s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		logging.CtxErr(ctx, err).Str("topic", topic).Msg("Failed to publish rating event")
	}
}

func meanScore(ratings []*models.Rating) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range ratings {
		sum += float64(r.Score)
	}
	return sum / float64(len(ratings))
}
