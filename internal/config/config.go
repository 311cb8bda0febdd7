package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Session store backends.
const (
	StoreMemory   = "memory"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Backends
	ConnectorURL  string
	LedgerURL     string
	AdminUsersURL string
	PublicAuthURL string
	ProductsURL   string
	WebhooksURL   string

	// HTTP client
	HTTPTimeout    time.Duration
	MaxConcurrency int

	// Sessions
	SessionSecret        string
	SessionMaxAge        time.Duration
	SessionStore         string
	SecureCookies        bool
	RedisURL             string
	DatabaseURL          string
	SessionPurgeSchedule string

	// Stripe
	StripeAPIKey string
	StripeAPIURL string

	// Payment links
	ProductsFriendlyBaseURI string

	// Onboarding
	OnboardingTasksFile string

	// Features
	FeatureFlags FeatureFlags

	// Observability
	OTLPEndpoint string
}

// Load reads configuration from environment variables with defaults.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("PORT", 9200)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CONNECTOR_URL", "http://localhost:9300")
	v.SetDefault("LEDGER_URL", "http://localhost:10700")
	v.SetDefault("ADMINUSERS_URL", "http://localhost:9700")
	v.SetDefault("PUBLIC_AUTH_URL", "http://localhost:9600")
	v.SetDefault("PRODUCTS_URL", "http://localhost:18000")
	v.SetDefault("WEBHOOKS_URL", "http://localhost:10500")
	v.SetDefault("HTTP_TIMEOUT", 10*time.Second)
	v.SetDefault("MAX_CONCURRENCY", 50)
	v.SetDefault("SESSION_MAX_AGE", 90*time.Minute)
	v.SetDefault("SESSION_STORE", StoreMemory)
	v.SetDefault("SESSION_PURGE_SCHEDULE", "@every 15m")
	v.SetDefault("SECURE_COOKIES", true)
	v.SetDefault("PRODUCTS_FRIENDLY_BASE_URI", "http://localhost:3000/redirect")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")

	cfg := &Config{
		Port:     v.GetInt("PORT"),
		LogLevel: v.GetString("LOG_LEVEL"),

		ConnectorURL:  v.GetString("CONNECTOR_URL"),
		LedgerURL:     v.GetString("LEDGER_URL"),
		AdminUsersURL: v.GetString("ADMINUSERS_URL"),
		PublicAuthURL: v.GetString("PUBLIC_AUTH_URL"),
		ProductsURL:   v.GetString("PRODUCTS_URL"),
		WebhooksURL:   v.GetString("WEBHOOKS_URL"),

		HTTPTimeout:    v.GetDuration("HTTP_TIMEOUT"),
		MaxConcurrency: v.GetInt("MAX_CONCURRENCY"),

		SessionSecret:        v.GetString("SESSION_SECRET"),
		SessionMaxAge:        v.GetDuration("SESSION_MAX_AGE"),
		SessionStore:         strings.ToLower(strings.TrimSpace(v.GetString("SESSION_STORE"))),
		SecureCookies:        v.GetBool("SECURE_COOKIES"),
		RedisURL:             v.GetString("REDIS_URL"),
		DatabaseURL:          v.GetString("DATABASE_URL"),
		SessionPurgeSchedule: v.GetString("SESSION_PURGE_SCHEDULE"),

		StripeAPIKey: v.GetString("STRIPE_API_KEY"),
		StripeAPIURL: v.GetString("STRIPE_API_URL"),

		ProductsFriendlyBaseURI: strings.TrimSuffix(v.GetString("PRODUCTS_FRIENDLY_BASE_URI"), "/"),
		OnboardingTasksFile:     v.GetString("ONBOARDING_TASKS_FILE"),
		FeatureFlags:            ParseFeatureFlags(v.GetString("FEATURE_FLAGS")),

		OTLPEndpoint: v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if len(c.SessionSecret) < 32 {
		return errors.New("SESSION_SECRET must be at least 32 characters")
	}
	switch c.SessionStore {
	case StoreMemory:
	case StoreRedis:
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required for the redis session store")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres session store")
		}
	default:
		return fmt.Errorf("unknown SESSION_STORE %q", c.SessionStore)
	}
	return nil
}

// FeatureFlags is the set of switched on features.
type FeatureFlags struct {
	all   bool
	names map[string]bool
}

// ParseFeatureFlags reads a comma separated list. "true" switches on every
// feature.
func ParseFeatureFlags(s string) FeatureFlags {
	f := FeatureFlags{names: map[string]bool{}}
	for _, name := range strings.Split(s, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		switch name {
		case "":
		case "true":
			f.all = true
		default:
			f.names[name] = true
		}
	}
	return f
}

// Enabled reports whether the named feature is on.
func (f FeatureFlags) Enabled(name string) bool {
	return f.all || f.names[strings.ToLower(name)]
}
