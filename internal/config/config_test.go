package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/boddenberg/pay-selfservice-go/internal/config"
)

const secret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", secret)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 9200 {
		t.Errorf("expected port 9200, got %d", cfg.Port)
	}
	if cfg.SessionStore != config.StoreMemory {
		t.Errorf("expected memory store, got %q", cfg.SessionStore)
	}
	if cfg.SessionMaxAge != 90*time.Minute {
		t.Errorf("expected 90m session max age, got %s", cfg.SessionMaxAge)
	}
	if !cfg.SecureCookies {
		t.Error("expected secure cookies by default")
	}
	if cfg.FeatureFlags.Enabled("webhooks") {
		t.Error("expected no features by default")
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("SESSION_SECRET", secret)
	t.Setenv("PORT", "8080")
	t.Setenv("HTTP_TIMEOUT", "3s")
	t.Setenv("SESSION_STORE", "Redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("PRODUCTS_FRIENDLY_BASE_URI", "https://pay.example/redirect/")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Port)
	}
	if cfg.HTTPTimeout != 3*time.Second {
		t.Errorf("expected 3s timeout, got %s", cfg.HTTPTimeout)
	}
	if cfg.SessionStore != config.StoreRedis {
		t.Errorf("expected redis store, got %q", cfg.SessionStore)
	}
	if cfg.ProductsFriendlyBaseURI != "https://pay.example/redirect" {
		t.Errorf("expected trailing slash trimmed, got %q", cfg.ProductsFriendlyBaseURI)
	}
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"short secret", map[string]string{"SESSION_SECRET": "short"}, "SESSION_SECRET"},
		{"redis without url", map[string]string{"SESSION_SECRET": secret, "SESSION_STORE": "redis"}, "REDIS_URL"},
		{"postgres without url", map[string]string{"SESSION_SECRET": secret, "SESSION_STORE": "postgres"}, "DATABASE_URL"},
		{"unknown store", map[string]string{"SESSION_SECRET": secret, "SESSION_STORE": "disk"}, "SESSION_STORE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := config.Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error about %s, got %v", tt.want, err)
			}
		})
	}
}

func TestFeatureFlags(t *testing.T) {
	flags := config.ParseFeatureFlags(" Webhooks , recurring")
	if !flags.Enabled("webhooks") || !flags.Enabled("recurring") {
		t.Error("expected listed features on")
	}
	if flags.Enabled("other") {
		t.Error("expected unlisted feature off")
	}

	if !config.ParseFeatureFlags("true").Enabled("anything") {
		t.Error("expected true to switch on every feature")
	}
	if config.ParseFeatureFlags("").Enabled("webhooks") {
		t.Error("expected empty list to switch nothing on")
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("SELFSERVICE_TEST_FROM_FILE=file\nSELFSERVICE_TEST_KEPT=file\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("SELFSERVICE_TEST_KEPT", "env")
	t.Setenv("SELFSERVICE_TEST_FROM_FILE", "")
	os.Unsetenv("SELFSERVICE_TEST_FROM_FILE")

	if err := config.LoadDotEnv(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := os.Getenv("SELFSERVICE_TEST_FROM_FILE"); got != "file" {
		t.Errorf("expected value from file, got %q", got)
	}
	if got := os.Getenv("SELFSERVICE_TEST_KEPT"); got != "env" {
		t.Errorf("expected environment to win, got %q", got)
	}
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	if err := config.LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Errorf("expected missing file to be ignored, got %v", err)
	}
}
