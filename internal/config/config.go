// Package config provides centralized configuration loaded from environment
// variables. Shared by both cmd/api and cmd/combine.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Table names, single source of truth, matches schema.sql
// --------------------------------------------------------------------------

const (
	PlayersTable      = "players"
	PlayerStatusTable = "player_status"
	SeasonsTable      = "seasons"
	AnthroTable       = "combine_anthro"
	AgilityTable      = "combine_agility"
	ShootingTable     = "combine_shooting"
	PositionsTable    = "positions"
	DefinitionsTable  = "metric_definitions"
	SnapshotsTable    = "metric_snapshots"
	ValuesTable       = "player_metric_values"
	SimilarityTable   = "player_similarity"
)

// --------------------------------------------------------------------------
// Config struct populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Compute defaults
	MinSampleSize int

	// Similarity defaults
	SimilarityWeights   map[string]float64
	OverlapThreshold    float64
	SimilarityBatchSize int
	MaxSimilarNeighbors int

	// Cache
	CacheEnabled bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	dbURL := envOr("DATABASE_URL", envOr("COMBINE_DATABASE_URL", ""))
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL or COMBINE_DATABASE_URL must be set")
	}

	return &Config{
		DatabaseURL:    dbURL,
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		MinSampleSize: envInt("MIN_SAMPLE_SIZE", 3),

		SimilarityWeights: map[string]float64{
			"anthro":   envFloat("SIMILARITY_WEIGHT_ANTHRO", 0.4),
			"combine":  envFloat("SIMILARITY_WEIGHT_COMBINE", 0.4),
			"shooting": envFloat("SIMILARITY_WEIGHT_SHOOTING", 0.2),
		},
		OverlapThreshold:    envFloat("SIMILARITY_OVERLAP_THRESHOLD", 0.7),
		SimilarityBatchSize: envInt("SIMILARITY_BATCH_SIZE", 2000),
		MaxSimilarNeighbors: envInt("SIMILARITY_MAX_NEIGHBORS", 0),

		CacheEnabled: envBool("CACHE_ENABLED", true),
	}, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
