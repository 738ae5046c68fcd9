package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// RateLimitConfig holds per-endpoint-group rate limiting configuration.
// Requests are counted per client IP per minute.
type RateLimitConfig struct {
	Enabled                   bool
	AuthRequestsPerMinute     int
	RedeemRequestsPerMinute   int
	RefreshRequestsPerMinute  int
	GenerateRequestsPerMinute int
}

// SecurityHeadersConfig holds security header configuration.
type SecurityHeadersConfig struct {
	Enabled            bool
	FrameOptions       string
	ContentTypeOptions string
	ReferrerPolicy     string
}

// InferenceConfig holds text-generation backend configuration.
type InferenceConfig struct {
	BaseURL       string
	APIKey        string
	FreeModel     string
	PremiumModel  string
	MaxTokensCap  int
	Timeout       time.Duration
}

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr string
	ServerPort int

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret       string
	JWTIssuer       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Lockout
	LockoutMode     string // "temporary" or "permanent"
	MaxFailedLogins int
	LockoutMinutes  int

	// Registration
	PasswordMinLength int

	// Admin allowlist, loaded once at startup
	AdminUsers []string

	// HTTP
	RateLimit          RateLimitConfig
	SecurityHeaders    SecurityHeadersConfig
	MaxRequestBodySize int64
	CORSAllowedOrigins []string

	// Inference backend
	Inference InferenceConfig
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		// Server defaults
		ServerAddr: getEnv("SERVER_ADDR", "0.0.0.0"),
		ServerPort: getEnvInt("SERVER_PORT", 8080),

		// Database defaults
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "parlabot"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// JWT defaults
		JWTSecret:       getEnv("JWT_SECRET", ""),
		JWTIssuer:       getEnv("JWT_ISSUER", "parlabot"),
		AccessTokenTTL:  getEnvDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: getEnvDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),

		// Lockout defaults
		LockoutMode:     getEnv("LOCKOUT_MODE", "temporary"),
		MaxFailedLogins: getEnvInt("MAX_FAILED_LOGINS", 5),
		LockoutMinutes:  getEnvInt("LOCKOUT_MINUTES", 15),

		PasswordMinLength: getEnvInt("PASSWORD_MIN_LENGTH", 6),

		AdminUsers: getEnvList("ADMIN_USERS", nil),

		RateLimit: RateLimitConfig{
			Enabled:                   getEnvBool("RATE_LIMIT_ENABLED", true),
			AuthRequestsPerMinute:     getEnvInt("RATE_LIMIT_AUTH_PER_MINUTE", 10),
			RedeemRequestsPerMinute:   getEnvInt("RATE_LIMIT_REDEEM_PER_MINUTE", 10),
			RefreshRequestsPerMinute:  getEnvInt("RATE_LIMIT_REFRESH_PER_MINUTE", 30),
			GenerateRequestsPerMinute: getEnvInt("RATE_LIMIT_GENERATE_PER_MINUTE", 20),
		},
		SecurityHeaders: SecurityHeadersConfig{
			Enabled:            getEnvBool("SECURITY_HEADERS_ENABLED", true),
			FrameOptions:       getEnv("SECURITY_FRAME_OPTIONS", "DENY"),
			ContentTypeOptions: getEnv("SECURITY_CONTENT_TYPE_OPTIONS", "nosniff"),
			ReferrerPolicy:     getEnv("SECURITY_REFERRER_POLICY", "strict-origin-when-cross-origin"),
		},
		MaxRequestBodySize: int64(getEnvInt("MAX_REQUEST_BODY_SIZE", 1<<20)),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),

		Inference: InferenceConfig{
			BaseURL:      getEnv("INFERENCE_BASE_URL", "https://openrouter.ai/api"),
			APIKey:       getEnv("INFERENCE_API_KEY", ""),
			FreeModel:    getEnv("INFERENCE_FREE_MODEL", "openai/gpt-oss-20b"),
			PremiumModel: getEnv("INFERENCE_PREMIUM_MODEL", "openai/gpt-oss-120b"),
			MaxTokensCap: getEnvInt("INFERENCE_MAX_TOKENS_CAP", 1024),
			Timeout:      getEnvDuration("INFERENCE_TIMEOUT", 60*time.Second),
		},
	}

	// Validate required fields
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.LockoutMode != "temporary" && cfg.LockoutMode != "permanent" {
		return nil, fmt.Errorf("LOCKOUT_MODE must be \"temporary\" or \"permanent\", got %q", cfg.LockoutMode)
	}
	if cfg.MaxFailedLogins < 1 {
		return nil, fmt.Errorf("MAX_FAILED_LOGINS must be at least 1")
	}

	return cfg, nil
}

// AdminSet returns the admin allowlist as a set.
func (c *Config) AdminSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.AdminUsers))
	for _, u := range c.AdminUsers {
		set[u] = struct{}{}
	}
	return set
}

// LockoutDuration returns the temporary lockout duration.
func (c *Config) LockoutDuration() time.Duration {
	return time.Duration(c.LockoutMinutes) * time.Minute
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
