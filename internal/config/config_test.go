package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("MAX_DB_CONNS", "4")
	t.Setenv("IDENTITY_CACHE_TTL_SECONDS", "30")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg := Load()
	if cfg.ServerPort != "9090" || cfg.MaxDBConns != 4 {
		t.Fatalf("cfg = %+v", cfg)
	}
	if cfg.IdentityCacheTTL != 30*time.Second {
		t.Fatalf("IdentityCacheTTL = %v", cfg.IdentityCacheTTL)
	}
	if cfg.MetricsEnabled {
		t.Fatal("MetricsEnabled = true")
	}
	want := []string{"https://a.example", "https://b.example"}
	if !reflect.DeepEqual(cfg.AllowedOrigins, want) {
		t.Fatalf("AllowedOrigins = %q, want %q", cfg.AllowedOrigins, want)
	}
}

func TestGetEnvFallbacks(t *testing.T) {
	t.Setenv("PRACTICE_TEST_INT", "twelve")
	t.Setenv("PRACTICE_TEST_BOOL", "maybe")

	if got := getEnvInt("PRACTICE_TEST_INT", 12); got != 12 {
		t.Errorf("getEnvInt = %d, want fallback 12", got)
	}
	if got := getEnvBool("PRACTICE_TEST_BOOL", true); !got {
		t.Error("getEnvBool = false, want fallback true")
	}
	if got := getEnv("PRACTICE_TEST_UNSET", "x"); got != "x" {
		t.Errorf("getEnv = %q", got)
	}
	if parseOrigins("") != nil {
		t.Error("empty origins should allow all")
	}
}

func TestKeys(t *testing.T) {
	if got := CacheKey.IdentityTokenKey("abc"); got != "identity:token:abc" {
		t.Errorf("IdentityTokenKey = %q", got)
	}
	if WorkerKey.ContentEventsQueue == "" {
		t.Error("empty queue key")
	}
}
