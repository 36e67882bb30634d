// Package config handles loading and managing application configuration.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Server configuration
	Server ServerConfig

	// PhonePe gateway configuration
	PhonePe PhonePeConfig

	// Security settings
	Security SecurityConfig

	// Rate limiting policies
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port    string
	GinMode string // "debug", "release", or "test"
}

// PhonePeConfig holds the upstream gateway configuration.
// Resource paths are provider-specific and intentionally configurable
// rather than hardcoded, so sandbox and production can differ.
type PhonePeConfig struct {
	// TokenURL is the full URL of the OAuth token endpoint.
	TokenURL string

	// BaseURL is the base URL for the checkout API.
	BaseURL string

	// PayPath is the resource path for creating a payment.
	PayPath string

	// StatusPathFormat is the resource path for order status;
	// it contains one %s verb for the merchant order id.
	StatusPathFormat string

	ClientID      string
	ClientSecret  string
	ClientVersion string
}

// SecurityConfig holds security-related configuration.
type SecurityConfig struct {
	// ChecksumSecret is the HMAC key used to sign and verify
	// client-facing payloads and upstream integrity hashes.
	ChecksumSecret string

	// AllowedStatusOrigins is the CORS allowlist for the status endpoint.
	// The create endpoint mirrors any origin; status checks do not.
	AllowedStatusOrigins []string
}

// RateLimitConfig holds the two independent rate limiting policies.
type RateLimitConfig struct {
	// CreateLimit/CreateWindow apply to the create-payment endpoint.
	CreateLimit  int
	CreateWindow time.Duration

	// StatusLimit/StatusWindow apply to the status endpoint, which
	// accepts client verification data and gets the tighter policy.
	StatusLimit  int
	StatusWindow time.Duration
}

// Load reads configuration from environment variables.
// Returns a Config struct with all settings populated.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:    getEnv("PORT", "8080"),
			GinMode: getEnv("GIN_MODE", "debug"),
		},
		PhonePe: PhonePeConfig{
			TokenURL:         getEnv("PHONEPE_TOKEN_URL", "https://api-preprod.phonepe.com/apis/pg-sandbox/v1/oauth/token"),
			BaseURL:          getEnv("PHONEPE_BASE_URL", "https://api-preprod.phonepe.com/apis/pg-sandbox"),
			PayPath:          getEnv("PHONEPE_PAY_PATH", "/checkout/v2/pay"),
			StatusPathFormat: getEnv("PHONEPE_STATUS_PATH_FORMAT", "/checkout/v2/order/%s/status"),
			ClientID:         getEnv("PHONEPE_CLIENT_ID", ""),
			ClientSecret:     getEnv("PHONEPE_CLIENT_SECRET", ""),
			ClientVersion:    getEnv("PHONEPE_CLIENT_VERSION", "1"),
		},
		Security: SecurityConfig{
			ChecksumSecret:       getEnv("CHECKSUM_SECRET", ""),
			AllowedStatusOrigins: splitAndTrim(getEnv("ALLOWED_STATUS_ORIGINS", "")),
		},
		RateLimit: RateLimitConfig{
			CreateLimit:  getEnvInt("RATE_LIMIT_CREATE", 10),
			CreateWindow: time.Duration(getEnvInt("RATE_LIMIT_CREATE_WINDOW_SECONDS", 60)) * time.Second,
			StatusLimit:  getEnvInt("RATE_LIMIT_STATUS", 5),
			StatusWindow: time.Duration(getEnvInt("RATE_LIMIT_STATUS_WINDOW_SECONDS", 900)) * time.Second,
		},
	}
}

// getEnv retrieves an environment variable with a fallback default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as an integer with a fallback.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// splitAndTrim splits a comma-separated list, dropping empty entries.
func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
