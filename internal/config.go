package internal

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	Port        int
	LogLevel    string
	DatabaseUrl string

	// Application base URL (for checkout redirects)
	BaseURL string

	// Pricing engine
	PricingCacheTTL       time.Duration // how long a loaded rule set stays fresh
	PricingRefreshTimeout time.Duration // per-refresh store read timeout

	// Admin API access control
	AdminAPIKeys []string // keys accepted on the X-Admin-Key header

	// SMTP Configuration (rule-change notices)
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	SMTPFrom       string
	SMTPFromName   string
	AdminNotifyTo  []string // addresses notified after rule mutations
	EmailEnabled   bool

	// Snapshot archive Configuration
	ArchiveProvider string // "local" or "r2"

	// Local archive (development)
	LocalArchivePath string // Base directory for local snapshot storage

	// R2 archive (production)
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string

	// Stripe Billing Configuration
	// These are required when credit-pack sales are enabled in production.
	// In development, billing handlers function as stubs if these are empty.
	StripeSecretKey     string // Stripe API secret key (sk_test_... or sk_live_...)
	StripeWebhookSecret string // Stripe webhook signing secret (whsec_...)

	// Stripe Price IDs for credit packs
	StripePack10PriceID  string
	StripePack50PriceID  string
	StripePack200PriceID string

	// Metrics endpoint authentication
	// If both are empty, the /metrics endpoint will be unprotected (not recommended)
	MetricsUsername string
	MetricsPassword string
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		// Base URL defaults to localhost for development
		BaseURL: getEnv("BASE_URL", "http://localhost:8080"),

		// Pricing defaults
		PricingCacheTTL:       getEnvDuration("PRICING_CACHE_TTL", 5*time.Minute),
		PricingRefreshTimeout: getEnvDuration("PRICING_REFRESH_TIMEOUT", 5*time.Second),

		// SMTP defaults for Mailhog (development)
		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnvInt("SMTP_PORT", 1025),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@averline.com"),
		SMTPFromName: getEnv("SMTP_FROM_NAME", "Averline Concierge"),
		EmailEnabled: getEnvBool("EMAIL_ENABLED", true),

		// Archive defaults to local filesystem for development
		ArchiveProvider:  getEnv("ARCHIVE_PROVIDER", "local"),
		LocalArchivePath: getEnv("LOCAL_ARCHIVE_PATH", "./archive"),

		// R2 configuration (production only)
		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),

		// Stripe billing (optional, handlers degrade to stubs without it)
		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),

		// Stripe price IDs (required when billing is enabled)
		StripePack10PriceID:  getEnv("STRIPE_PACK_10_PRICE_ID", ""),
		StripePack50PriceID:  getEnv("STRIPE_PACK_50_PRICE_ID", ""),
		StripePack200PriceID: getEnv("STRIPE_PACK_200_PRICE_ID", ""),

		// Metrics authentication
		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
	}

	// Parse admin API keys from comma-separated environment variable
	adminKeysStr := getEnv("ADMIN_API_KEYS", "")
	if adminKeysStr != "" {
		keys := strings.Split(adminKeysStr, ",")
		for _, key := range keys {
			trimmed := strings.TrimSpace(key)
			if trimmed != "" {
				cfg.AdminAPIKeys = append(cfg.AdminAPIKeys, trimmed)
			}
		}
	}

	// Parse admin notification addresses from comma-separated environment variable
	notifyStr := getEnv("ADMIN_NOTIFY_EMAILS", "")
	if notifyStr != "" {
		emails := strings.Split(notifyStr, ",")
		for _, email := range emails {
			trimmed := strings.TrimSpace(strings.ToLower(email))
			if trimmed != "" {
				cfg.AdminNotifyTo = append(cfg.AdminNotifyTo, trimmed)
			}
		}
	}

	// Required
	cfg.DatabaseUrl = os.Getenv("DATABASE_URL")
	if cfg.DatabaseUrl == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	// Validate archive configuration
	if cfg.ArchiveProvider == "r2" {
		if cfg.R2AccountID == "" {
			return nil, fmt.Errorf("R2_ACCOUNT_ID is required when ARCHIVE_PROVIDER is 'r2'")
		}
		if cfg.R2AccessKeyID == "" {
			return nil, fmt.Errorf("R2_ACCESS_KEY_ID is required when ARCHIVE_PROVIDER is 'r2'")
		}
		if cfg.R2SecretAccessKey == "" {
			return nil, fmt.Errorf("R2_SECRET_ACCESS_KEY is required when ARCHIVE_PROVIDER is 'r2'")
		}
		if cfg.R2BucketName == "" {
			return nil, fmt.Errorf("R2_BUCKET_NAME is required when ARCHIVE_PROVIDER is 'r2'")
		}
	} else if cfg.ArchiveProvider != "local" {
		return nil, fmt.Errorf("ARCHIVE_PROVIDER must be either 'local' or 'r2', got: %s", cfg.ArchiveProvider)
	}

	if cfg.PricingCacheTTL <= 0 {
		return nil, fmt.Errorf("PRICING_CACHE_TTL must be positive")
	}
	if cfg.PricingRefreshTimeout <= 0 {
		return nil, fmt.Errorf("PRICING_REFRESH_TIMEOUT must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
