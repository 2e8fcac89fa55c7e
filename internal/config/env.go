package config

import (
	"os"
	"strconv"
	"time"
)

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv(cfg *Config) {
	if port := os.Getenv("WEBPIXELS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}

	if logLevel := os.Getenv("WEBPIXELS_LOG_LEVEL"); logLevel != "" {
		cfg.Server.LogLevel = logLevel
	}

	// Database
	setString(&cfg.Database.Driver, "WEBPIXELS_DB_DRIVER")
	setString(&cfg.Database.Host, "WEBPIXELS_DB_HOST")
	setString(&cfg.Database.Name, "WEBPIXELS_DB_NAME")
	setString(&cfg.Database.User, "WEBPIXELS_DB_USER")
	setString(&cfg.Database.Password, "WEBPIXELS_DB_PASSWORD")
	if port := os.Getenv("WEBPIXELS_DB_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Database.Port = p
		}
	}

	setString(&cfg.Auth.JWTSecret, "WEBPIXELS_JWT_SECRET")
	if ttl := os.Getenv("WEBPIXELS_SESSION_TTL"); ttl != "" {
		if d, err := time.ParseDuration(ttl); err == nil {
			cfg.Auth.SessionTTL = d
		}
	}

	setString(&cfg.Platform.GraphQLURL, "WEBPIXELS_PLATFORM_GRAPHQL_URL")
	setString(&cfg.Platform.AccessToken, "WEBPIXELS_PLATFORM_TOKEN")

	if enabled := os.Getenv("WEBPIXELS_NATS_ENABLED"); enabled != "" {
		if b, err := strconv.ParseBool(enabled); err == nil {
			cfg.NATS.Enabled = b
		}
	}
	setString(&cfg.NATS.URL, "WEBPIXELS_NATS_URL")

	// Vendor credentials are secrets and usually only arrive via env
	setString(&cfg.Vendors.Facebook.AccessToken, "WEBPIXELS_FACEBOOK_ACCESS_TOKEN")
	setString(&cfg.Vendors.Facebook.TestEventCode, "WEBPIXELS_FACEBOOK_TEST_EVENT_CODE")
	setString(&cfg.Vendors.TikTok.AccessToken, "WEBPIXELS_TIKTOK_ACCESS_TOKEN")
	setString(&cfg.Vendors.Snapchat.AccessToken, "WEBPIXELS_SNAPCHAT_ACCESS_TOKEN")
	setString(&cfg.Vendors.Google.APISecret, "WEBPIXELS_GOOGLE_API_SECRET")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// GetEnvOrDefault returns environment variable or default value
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
