// Package config handles application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Port    int
	BaseURL string

	// Database
	DatabaseURL string

	// Supabase Authentication
	SupabaseJWTSecret     string // Shared secret for session JWT verification (HS256)
	SupabaseWebhookSecret string // Standard-webhooks signing secret for auth hooks

	// Creem (payment provider)
	CreemAPIKey        string
	CreemAPIBase       string
	CreemWebhookSecret string

	// OpenRouter (image generation)
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	GenerationModel   string

	// CORS
	CORSOrigins []string

	// Object Storage (Tigris/S3-compatible) for generated images
	StorageEnabled   bool
	StorageEndpoint  string // AWS_ENDPOINT_URL_S3
	StorageAccessKey string // AWS_ACCESS_KEY_ID
	StorageSecretKey string // AWS_SECRET_ACCESS_KEY
	StorageBucket    string
	StorageRegion    string
	StoragePublicURL string // Public base URL for uploaded objects

	// Outbound call budgets
	CheckoutTimeout   time.Duration // Payment provider calls
	GenerationTimeout time.Duration // Model inference calls

	// GenerationCost is the number of credits deducted per generation.
	GenerationCost int64
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnvInt("PORT", 8080),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		DatabaseURL: getEnv("DATABASE_URL", "file:nanobanana.db?_journal=WAL&_timeout=5000"),

		SupabaseJWTSecret:     getEnv("SUPABASE_JWT_SECRET", ""),
		SupabaseWebhookSecret: getEnv("SUPABASE_WEBHOOK_SECRET", ""),

		CreemAPIKey:        getEnv("CREEM_API_KEY", ""),
		CreemAPIBase:       getEnv("CREEM_API_BASE", "https://api.creem.io/v1"),
		CreemWebhookSecret: getEnv("CREEM_WEBHOOK_SECRET", ""),

		OpenRouterAPIKey:  getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterBaseURL: getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		GenerationModel:   getEnv("GENERATION_MODEL", "google/gemini-2.5-flash-image-preview"),

		CORSOrigins: getEnvSlice("CORS_ORIGINS", []string{"http://localhost:3000"}),

		// Object Storage - uses Fly's standard env vars; BUCKET_NAME is
		// set automatically by `fly storage create`
		StorageEndpoint:  getEnv("AWS_ENDPOINT_URL_S3", ""),
		StorageAccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
		StorageSecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		StorageBucket:    getEnvWithFallback("BUCKET_NAME", "STORAGE_BUCKET", ""),
		StorageRegion:    getEnv("AWS_REGION", "auto"),
		StoragePublicURL: getEnv("STORAGE_PUBLIC_URL", ""),

		CheckoutTimeout:   getEnvDuration("CHECKOUT_TIMEOUT", 10*time.Second),
		GenerationTimeout: getEnvDuration("GENERATION_TIMEOUT", 120*time.Second),

		GenerationCost: int64(getEnvInt("GENERATION_COST", 1)),
	}

	// Enable storage if bucket is configured
	cfg.StorageEnabled = cfg.StorageBucket != "" && cfg.StorageEndpoint != ""

	if cfg.SupabaseJWTSecret == "" {
		return nil, fmt.Errorf("SUPABASE_JWT_SECRET is required")
	}
	if cfg.GenerationCost <= 0 {
		return nil, fmt.Errorf("GENERATION_COST must be positive")
	}

	return cfg, nil
}

// CreemTestMode reports whether the configured API key targets the
// Creem sandbox. Test-mode checkouts bypass the API and redirect
// straight to the hosted test payment page.
func (c *Config) CreemTestMode() bool {
	return strings.HasPrefix(c.CreemAPIKey, "creem_test_")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

func getEnvWithFallback(primary, fallback, defaultValue string) string {
	if value := os.Getenv(primary); value != "" {
		return value
	}
	if value := os.Getenv(fallback); value != "" {
		return value
	}
	return defaultValue
}
