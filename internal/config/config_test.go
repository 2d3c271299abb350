package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "BASE_URL", "DATABASE_URL",
		"SUPABASE_JWT_SECRET", "SUPABASE_WEBHOOK_SECRET",
		"CREEM_API_KEY", "CREEM_API_BASE", "CREEM_WEBHOOK_SECRET",
		"OPENROUTER_API_KEY", "CORS_ORIGINS",
		"AWS_ENDPOINT_URL_S3", "BUCKET_NAME", "STORAGE_BUCKET",
		"CHECKOUT_TIMEOUT", "GENERATION_TIMEOUT", "GENERATION_COST",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	clearEnv(t)

	if _, err := Load(); err == nil {
		t.Fatal("expected error when SUPABASE_JWT_SECRET is unset")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("SUPABASE_JWT_SECRET", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("Port = %d, want 8080", cfg.Port)
	}
	if cfg.CreemAPIBase != "https://api.creem.io/v1" {
		t.Errorf("CreemAPIBase = %s", cfg.CreemAPIBase)
	}
	if cfg.GenerationCost != 1 {
		t.Errorf("GenerationCost = %d, want 1", cfg.GenerationCost)
	}
	if cfg.CheckoutTimeout != 10*time.Second {
		t.Errorf("CheckoutTimeout = %v", cfg.CheckoutTimeout)
	}
	if cfg.GenerationTimeout != 120*time.Second {
		t.Errorf("GenerationTimeout = %v", cfg.GenerationTimeout)
	}
	if cfg.StorageEnabled {
		t.Error("StorageEnabled = true with no bucket configured")
	}
}

func TestLoad_RejectsNonPositiveGenerationCost(t *testing.T) {
	clearEnv(t)
	t.Setenv("SUPABASE_JWT_SECRET", "secret")
	t.Setenv("GENERATION_COST", "0")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for GENERATION_COST=0")
	}
}

func TestLoad_StorageEnabledNeedsBucketAndEndpoint(t *testing.T) {
	clearEnv(t)
	t.Setenv("SUPABASE_JWT_SECRET", "secret")
	t.Setenv("BUCKET_NAME", "images")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.StorageEnabled {
		t.Error("StorageEnabled = true without endpoint")
	}

	t.Setenv("AWS_ENDPOINT_URL_S3", "https://fly.storage.tigris.dev")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.StorageEnabled {
		t.Error("StorageEnabled = false with bucket and endpoint set")
	}
}

func TestLoad_CORSOriginsSplit(t *testing.T) {
	clearEnv(t)
	t.Setenv("SUPABASE_JWT_SECRET", "secret")
	t.Setenv("CORS_ORIGINS", "https://app.example.com,https://staging.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[0] != "https://app.example.com" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
}

func TestCreemTestMode(t *testing.T) {
	tests := []struct {
		apiKey string
		want   bool
	}{
		{"creem_test_abc123", true},
		{"creem_live_abc123", false},
		{"", false},
	}
	for _, tt := range tests {
		cfg := &Config{CreemAPIKey: tt.apiKey}
		if got := cfg.CreemTestMode(); got != tt.want {
			t.Errorf("CreemTestMode() with key %q = %v, want %v", tt.apiKey, got, tt.want)
		}
	}
}
