package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Platform PlatformConfig `yaml:"platform"`
	NATS     NATSConfig     `yaml:"nats"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Vendors  VendorsConfig  `yaml:"vendors"`
}

type ServerConfig struct {
	Port     int    `yaml:"port" default:"8080"`
	LogLevel string `yaml:"log_level" default:"info"`
}

type DatabaseConfig struct {
	// Driver is "postgres" or "memory".
	Driver   string `yaml:"driver" default:"postgres"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port" default:"5432"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode" default:"disable"`
}

type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"`
	Issuer     string        `yaml:"issuer" default:"webpixels"`
	SessionTTL time.Duration `yaml:"session_ttl" default:"24h"`
}

// PlatformConfig points at the storefront platform's admin GraphQL API.
type PlatformConfig struct {
	GraphQLURL  string        `yaml:"graphql_url"`
	AccessToken string        `yaml:"access_token"`
	Timeout     time.Duration `yaml:"timeout" default:"10s"`
}

type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url" default:"nats://127.0.0.1:4222"`
	Subject string `yaml:"subject" default:"storefront.events.>"`
	Queue   string `yaml:"queue" default:"webpixels"`
}

type IngestConfig struct {
	RequestsPerSecond int           `yaml:"requests_per_second" default:"50"`
	Burst             int           `yaml:"burst" default:"100"`
	SettingsCacheTTL  time.Duration `yaml:"settings_cache_ttl" default:"30s"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes" default:"65536"`
}

// VendorsConfig carries the server-side credentials for each vendor's
// conversion API. The pixel identifiers themselves come from merchant
// settings.
type VendorsConfig struct {
	Facebook FacebookConfig `yaml:"facebook"`
	TikTok   TikTokConfig   `yaml:"tiktok"`
	Snapchat SnapchatConfig `yaml:"snapchat"`
	Google   GoogleConfig   `yaml:"google"`

	Timeout          time.Duration `yaml:"timeout" default:"5s"`
	RatePerSecond    int           `yaml:"rate_per_second" default:"20"`
	Burst            int           `yaml:"burst" default:"40"`
	FailureThreshold int           `yaml:"failure_threshold" default:"5"`
	ResetTimeout     time.Duration `yaml:"reset_timeout" default:"1m"`
}

type FacebookConfig struct {
	Endpoint      string `yaml:"endpoint" default:"https://graph.facebook.com"`
	APIVersion    string `yaml:"api_version" default:"v19.0"`
	AccessToken   string `yaml:"access_token"`
	TestEventCode string `yaml:"test_event_code"`
}

type TikTokConfig struct {
	Endpoint    string `yaml:"endpoint" default:"https://business-api.tiktok.com"`
	AccessToken string `yaml:"access_token"`
}

type SnapchatConfig struct {
	Endpoint    string `yaml:"endpoint" default:"https://tr.snapchat.com"`
	AccessToken string `yaml:"access_token"`
}

type GoogleConfig struct {
	Endpoint  string `yaml:"endpoint" default:"https://www.google-analytics.com"`
	APISecret string `yaml:"api_secret"`
}

// Load reads a YAML config file (if path is non-empty), applies environment
// overrides and defaults, and validates the result.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	LoadFromEnv(cfg)
	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills in default values
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}

	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "webpixels"
	}
	if c.Auth.SessionTTL == 0 {
		c.Auth.SessionTTL = 24 * time.Hour
	}

	if c.Platform.Timeout == 0 {
		c.Platform.Timeout = 10 * time.Second
	}

	if c.NATS.URL == "" {
		c.NATS.URL = "nats://127.0.0.1:4222"
	}
	if c.NATS.Subject == "" {
		c.NATS.Subject = "storefront.events.>"
	}
	if c.NATS.Queue == "" {
		c.NATS.Queue = "webpixels"
	}

	if c.Ingest.RequestsPerSecond == 0 {
		c.Ingest.RequestsPerSecond = 50
	}
	if c.Ingest.Burst == 0 {
		c.Ingest.Burst = 100
	}
	if c.Ingest.SettingsCacheTTL == 0 {
		c.Ingest.SettingsCacheTTL = 30 * time.Second
	}
	if c.Ingest.MaxBodyBytes == 0 {
		c.Ingest.MaxBodyBytes = 64 << 10
	}

	v := &c.Vendors
	if v.Facebook.Endpoint == "" {
		v.Facebook.Endpoint = "https://graph.facebook.com"
	}
	if v.Facebook.APIVersion == "" {
		v.Facebook.APIVersion = "v19.0"
	}
	if v.TikTok.Endpoint == "" {
		v.TikTok.Endpoint = "https://business-api.tiktok.com"
	}
	if v.Snapchat.Endpoint == "" {
		v.Snapchat.Endpoint = "https://tr.snapchat.com"
	}
	if v.Google.Endpoint == "" {
		v.Google.Endpoint = "https://www.google-analytics.com"
	}
	if v.Timeout == 0 {
		v.Timeout = 5 * time.Second
	}
	if v.RatePerSecond == 0 {
		v.RatePerSecond = 20
	}
	if v.Burst == 0 {
		v.Burst = 40
	}
	if v.FailureThreshold == 0 {
		v.FailureThreshold = 5
	}
	if v.ResetTimeout == 0 {
		v.ResetTimeout = time.Minute
	}
}

// Validate checks configuration
func (c *Config) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Server.LogLevel] {
		return fmt.Errorf("config: invalid log level: %s", c.Server.LogLevel)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid port: %d", c.Server.Port)
	}

	switch c.Database.Driver {
	case "memory":
	case "postgres":
		if c.Database.Host == "" || c.Database.Name == "" {
			return fmt.Errorf("config: database host and name are required for postgres")
		}
	default:
		return fmt.Errorf("config: unknown database driver: %s", c.Database.Driver)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("config: auth.jwt_secret is required")
	}
	return nil
}
