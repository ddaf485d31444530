// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

package features

import "sort"

// FeatureType classifies what kind of value a feature holds.
type FeatureType string

const (
	TypeNumerical   FeatureType = "numerical"
	TypeCategorical FeatureType = "categorical"
	TypeEmbedding   FeatureType = "embedding"
	TypeTemporal    FeatureType = "temporal"
)

// Definition documents a feature for introspection. Definitions are not
// enforced at write time.
type Definition struct {
	Name         string      `json:"name"`
	Type         FeatureType `json:"type"`
	Description  string      `json:"description"`
	Source       string      `json:"source"`
	Dependencies []string    `json:"dependencies,omitempty"`
}

// builtinDefinitions documents every feature the store computes.
var builtinDefinitions = []Definition{
	{
		Name:        "n_ratings",
		Type:        TypeNumerical,
		Description: "Total number of ratings submitted by the user",
		Source:      "user profile",
	},
	{
		Name:        "avg_rating",
		Type:        TypeNumerical,
		Description: "Mean rating given by the user",
		Source:      "user profile",
	},
	{
		Name:         "rating_variance",
		Type:         TypeNumerical,
		Description:  "Population variance of the user's recent ratings",
		Source:       "rating history",
		Dependencies: []string{"avg_rating"},
	},
	{
		Name:        "favorite_genres",
		Type:        TypeCategorical,
		Description: "Top genres derived from highly-rated movies",
		Source:      "user profile",
	},
	{
		Name:        "recency_score",
		Type:        TypeTemporal,
		Description: "Linear decay over 30 days since last activity",
		Source:      "user profile",
	},
	{
		Name:         "activity_score",
		Type:         TypeNumerical,
		Description:  "Blend of log-scaled rating volume and recency",
		Source:       "derived",
		Dependencies: []string{"n_ratings", "recency_score"},
	},
	{
		Name:        "popularity_score",
		Type:        TypeNumerical,
		Description: "Rating count relative to the most-rated movie",
		Source:      "movie catalog",
	},
	{
		Name:        "genres",
		Type:        TypeCategorical,
		Description: "Movie genre labels",
		Source:      "movie catalog",
	},
	{
		Name:        "movie_avg_rating",
		Type:        TypeNumerical,
		Description: "Mean rating received by the movie",
		Source:      "movie catalog",
	},
	{
		Name:        "hour_of_day",
		Type:        TypeTemporal,
		Description: "Request-local hour, 0-23",
		Source:      "request context",
	},
	{
		Name:        "day_of_week",
		Type:        TypeTemporal,
		Description: "Request-local weekday, 0=Sunday",
		Source:      "request context",
	},
	{
		Name:        "is_weekend",
		Type:        TypeTemporal,
		Description: "Whether the request falls on Saturday or Sunday",
		Source:      "request context",
	},
	{
		Name:        "device_type",
		Type:        TypeCategorical,
		Description: "Client device class from the request",
		Source:      "request context",
	},
}

// Definitions returns all registered feature definitions sorted by name.
func (s *Store) Definitions() []Definition {
	s.defsMu.RLock()
	defer s.defsMu.RUnlock()

	out := make([]Definition, 0, len(s.defs))
	for _, def := range s.defs {
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// DefineFeature registers or replaces a feature definition.
func (s *Store) DefineFeature(def Definition) {
	s.defsMu.Lock()
	defer s.defsMu.Unlock()
	s.defs[def.Name] = def
}

// GetDefinition looks a definition up by name.
func (s *Store) GetDefinition(name string) (Definition, bool) {
	s.defsMu.RLock()
	defer s.defsMu.RUnlock()
	def, ok := s.defs[name]
	return def, ok
}
