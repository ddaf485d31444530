// RecoLab - Movie Recommendation Backend
// Copyright 2026 Isaque Sangley
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/Isaque-Sangley/recolab-v2

package config

import (
	"testing"
	"time"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"empty dsn", func(c *Config) { c.Database.DSN = "" }},
		{"redis enabled without addr", func(c *Config) { c.Redis.Enabled = true; c.Redis.Addr = "" }},
		{"default page above max", func(c *Config) { c.API.DefaultPageSize = 500 }},
		{"default limit above max", func(c *Config) { c.Recommend.DefaultLimit = 1000 }},
		{"zero candidate factor", func(c *Config) { c.Recommend.CandidateFactor = 0 }},
		{"lambda out of range", func(c *Config) { c.Recommend.DiversityLambda = 1.5 }},
		{"empty models dir", func(c *Config) { c.Models.Dir = "" }},
		{"degradation threshold at 1", func(c *Config) { c.Models.DegradationThreshold = 1.0 }},
		{"zero cache ttl", func(c *Config) { c.Serving.CacheTTL = 0 }},
		{"alpha above 1", func(c *Config) { c.Serving.LatencyAlpha = 1.2 }},
		{"zero event buffer", func(c *Config) { c.Events.BufferSize = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"RECOLAB_SERVER_PORT", "server.port"},
		{"RECOLAB_DATABASE_DSN", "database.dsn"},
		{"RECOLAB_SERVING_CACHE_TTL", "serving.cache_ttl"},
		{"RECOLAB_RECOMMEND_DIVERSITY_LAMBDA", "recommend.diversity_lambda"},
		{"RECOLAB_MODELS_DEFAULT_TYPE", "models.default_type"},
		{"LOG_LEVEL", "logging.level"},
		{"DATABASE_URL", "database.dsn"},
		{"PORT", "server.port"},
		{"PATH", ""},
		{"RECOLAB_UNKNOWN_SECTION", ""},
	}

	for _, tt := range tests {
		if got := envTransformFunc(tt.key); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("RECOLAB_SERVER_PORT", "9000")
	t.Setenv("RECOLAB_SERVING_CACHE_TTL", "30m")
	t.Setenv("RECOLAB_SERVER_CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Serving.CacheTTL != 30*time.Minute {
		t.Errorf("cache ttl = %s, want 30m", cfg.Serving.CacheTTL)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example" {
		t.Errorf("cors origins = %v", cfg.Server.CORSOrigins)
	}
}

func TestServerConfig_Addr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 8080}
	if got := s.Addr(); got != "127.0.0.1:8080" {
		t.Errorf("Addr() = %q", got)
	}
}
