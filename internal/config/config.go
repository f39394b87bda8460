// Package config loads the environment-driven configuration for the admin
// backend. Every external credential and tunable comes from the environment;
// there is no config file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
)

// Config holds the full runtime configuration.
type Config struct {
	App       AppConfig
	Supabase  SupabaseConfig
	Auth      AuthConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Email     EmailConfig
	Payment   PaymentConfig
}

// AppConfig holds service identity and HTTP settings.
type AppConfig struct {
	Name        string        `env:"APP_NAME,default=Nexus Connect Admin API"`
	Version     string        `env:"APP_VERSION,default=2.1.0"`
	Environment string        `env:"ENVIRONMENT,default=development"`
	AdminDomain string        `env:"ADMIN_DOMAIN,default=admin-connect.nexus-partners.xyz"`
	Port        int           `env:"PORT,default=8002"`
	CORSOrigins string        `env:"CORS_ORIGINS,default=http://localhost:3001"`
	Shutdown    time.Duration `env:"SHUTDOWN_TIMEOUT,default=15s"`
	LogLevel    string        `env:"LOG_LEVEL,default=info"`
}

// SupabaseConfig holds the external store credentials.
type SupabaseConfig struct {
	URL            string `env:"SUPABASE_URL"`
	AnonKey        string `env:"SUPABASE_ANON_KEY"`
	ServiceRoleKey string `env:"SUPABASE_SERVICE_ROLE_KEY"`
	JWTSecret      string `env:"SUPABASE_JWT_SECRET"`
}

// AuthConfig holds token lifetimes.
type AuthConfig struct {
	AccessTokenTTL      time.Duration `env:"JWT_ACCESS_TOKEN_TTL,default=60m"`
	RefreshTokenTTL     time.Duration `env:"JWT_REFRESH_TOKEN_TTL,default=720h"`
	ImpersonationTTL    time.Duration `env:"IMPERSONATION_TOKEN_TTL,default=15m"`
	ImpersonationIssuer string        `env:"IMPERSONATION_ISSUER,default=nexus-admin"`
}

// RedisConfig holds the shared rate-counter cache address.
type RedisConfig struct {
	URL string `env:"REDIS_URL,default=redis://localhost:6379/0"`
}

// RateLimitConfig bounds requests per admin.
type RateLimitConfig struct {
	PerMinute int `env:"RATE_LIMIT_PER_MINUTE,default=100"`
	Burst     int `env:"RATE_LIMIT_BURST,default=20"`
}

// EmailConfig holds the SendGrid gateway credentials.
type EmailConfig struct {
	SendGridAPIKey string `env:"SENDGRID_API_KEY,default="`
	From           string `env:"EMAIL_FROM,default=noreply@nexus-partners.xyz"`
	FromName       string `env:"EMAIL_FROM_NAME,default=Nexus Connect"`
}

// PaymentConfig holds the Moneroo gateway credentials.
type PaymentConfig struct {
	APIKey        string `env:"MONEROO_API_KEY,default="`
	SecretKey     string `env:"MONEROO_SECRET_KEY,default="`
	WebhookSecret string `env:"MONEROO_WEBHOOK_SECRET,default="`
	BaseURL       string `env:"MONEROO_BASE_URL,default=https://api.moneroo.io"`
}

// Load decodes the configuration from the environment.
func Load() (*Config, error) {
	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces the settings that have no safe default.
func (c *Config) Validate() error {
	if c.IsProduction() {
		if c.Supabase.URL == "" || c.Supabase.ServiceRoleKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_ROLE_KEY are required in production")
		}
		if c.Supabase.JWTSecret == "" {
			return fmt.Errorf("SUPABASE_JWT_SECRET is required in production")
		}
	}
	if c.RateLimit.PerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	return nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.App.Environment), "production")
}

// CORSOriginList parses the comma-separated CORS origins.
func (c *Config) CORSOriginList() []string {
	raw := strings.TrimSpace(c.App.CORSOrigins)
	if raw == "*" {
		return []string{"*"}
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
