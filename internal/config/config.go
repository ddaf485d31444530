// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

// Package config provides layered configuration for RecoLab.
//
// Configuration is loaded from three sources in order of increasing
// precedence: built-in defaults, an optional YAML file, and environment
// variables. Loading is done with Koanf v2 so every setting has a single
// dot-separated path (e.g. "serving.cache_ttl") regardless of the source
// it came from.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for the RecoLab service.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Redis     RedisConfig     `koanf:"redis"`
	Logging   LoggingConfig   `koanf:"logging"`
	API       APIConfig       `koanf:"api"`
	Recommend RecommendConfig `koanf:"recommend"`
	Models    ModelsConfig    `koanf:"models"`
	Serving   ServingConfig   `koanf:"serving"`
	Events    EventsConfig    `koanf:"events"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	Environment     string        `koanf:"environment"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `koanf:"dsn"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

// RedisConfig holds Redis settings for the optional distributed cache.
// When Enabled is false, RecoLab falls back to in-process caches.
type RedisConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// APIConfig holds API surface settings.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// RecommendConfig holds recommendation engine settings.
type RecommendConfig struct {
	DefaultLimit       int     `koanf:"default_limit"`
	MaxLimit           int     `koanf:"max_limit"`
	CandidateFactor    int     `koanf:"candidate_factor"`
	DiversityLambda    float64 `koanf:"diversity_lambda"`
	DiversityEnabled   bool    `koanf:"diversity_enabled"`
	MinGenreCoverage   int     `koanf:"min_genre_coverage"`
	PersistResults     bool    `koanf:"persist_results"`
	TrendingWindowDays int     `koanf:"trending_window_days"`
}

// ModelsConfig holds model storage and registry settings.
type ModelsConfig struct {
	Dir                  string        `koanf:"dir"`
	DefaultType          string        `koanf:"default_type"`
	DegradationThreshold float64       `koanf:"degradation_threshold"`
	TrainEpochs          int           `koanf:"train_epochs"`
	TrainInterval        time.Duration `koanf:"train_interval"`
	TrainOnStartup       bool          `koanf:"train_on_startup"`
	MinInteractions      int           `koanf:"min_interactions"`
}

// ServingConfig holds model serving settings.
type ServingConfig struct {
	CacheTTL         time.Duration `koanf:"cache_ttl"`
	LatencyAlpha     float64       `koanf:"latency_alpha"`
	BreakerThreshold uint32        `koanf:"breaker_threshold"`
	BreakerTimeout   time.Duration `koanf:"breaker_timeout"`
}

// EventsConfig holds event bus settings.
type EventsConfig struct {
	BufferSize          int  `koanf:"buffer_size"`
	PersistentSubscribe bool `koanf:"persistent_subscribe"`
}

// Addr returns the host:port string the HTTP server binds to.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// IsProduction reports whether the server runs in production mode.
func (s ServerConfig) IsProduction() bool {
	return s.Environment == "production"
}

// Validate checks the configuration for invalid or inconsistent values.
// It is called automatically by Load.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("database.max_open_conns must be positive, got %d", c.Database.MaxOpenConns)
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis.enabled is true")
	}
	if c.API.DefaultPageSize < 1 || c.API.DefaultPageSize > c.API.MaxPageSize {
		return fmt.Errorf("api.default_page_size must be in [1, %d], got %d",
			c.API.MaxPageSize, c.API.DefaultPageSize)
	}
	if c.Recommend.DefaultLimit < 1 || c.Recommend.DefaultLimit > c.Recommend.MaxLimit {
		return fmt.Errorf("recommend.default_limit must be in [1, %d], got %d",
			c.Recommend.MaxLimit, c.Recommend.DefaultLimit)
	}
	if c.Recommend.CandidateFactor < 1 {
		return fmt.Errorf("recommend.candidate_factor must be positive, got %d", c.Recommend.CandidateFactor)
	}
	if c.Recommend.DiversityLambda < 0 || c.Recommend.DiversityLambda > 1 {
		return fmt.Errorf("recommend.diversity_lambda must be in [0, 1], got %g", c.Recommend.DiversityLambda)
	}
	if c.Models.Dir == "" {
		return fmt.Errorf("models.dir is required")
	}
	if c.Models.DegradationThreshold <= 0 || c.Models.DegradationThreshold >= 1 {
		return fmt.Errorf("models.degradation_threshold must be in (0, 1), got %g", c.Models.DegradationThreshold)
	}
	if c.Serving.CacheTTL <= 0 {
		return fmt.Errorf("serving.cache_ttl must be positive, got %s", c.Serving.CacheTTL)
	}
	if c.Serving.LatencyAlpha <= 0 || c.Serving.LatencyAlpha > 1 {
		return fmt.Errorf("serving.latency_alpha must be in (0, 1], got %g", c.Serving.LatencyAlpha)
	}
	if c.Events.BufferSize < 1 {
		return fmt.Errorf("events.buffer_size must be positive, got %d", c.Events.BufferSize)
	}
	return nil
}
