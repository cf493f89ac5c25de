// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
	GetDatabaseMaxConns() int32
}

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// AuthServiceConfig provides settings needed by the auth service.
type AuthServiceConfig interface {
	JWTConfig
	GetAccessTokenTTL() time.Duration
	GetRefreshTokenTTL() time.Duration
}

// EmailConfig provides settings for email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetEmailProvider() string
	GetBrevoAPIKey() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	SMTPConfig
}

// SMTPConfig provides settings for direct SMTP delivery.
type SMTPConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
}

// HubConfig provides the public URLs used in invitation links.
type HubConfig interface {
	GetAppBaseURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// MinIOConfig provides settings for MinIO S3-compatible storage.
type MinIOConfig interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	GetMinioBucketSignatures() string
	GetMinioBucketReceipts() string
	IsMinIOEnabled() bool
}

// RedisConfig provides the redis connection used outside of asynq.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// SchedulerConfig provides settings for the asynq client and worker.
type SchedulerConfig interface {
	RedisConfig
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetSalesEligibleScanSpec() string
	GetInvitationExpirySweepSpec() string
}

// AdvisorConfig provides settings for the FDD advisor chat.
type AdvisorConfig interface {
	GetAdvisorProvider() string
	GetGeminiAPIKey() string
	GetOpenAIAPIKey() string
	GetOpenAIBaseURL() string
	GetAdvisorModel() string
	IsAdvisorEnabled() bool
}

// ESignConfig provides settings for the e-signature webhook.
type ESignConfig interface {
	GetESignWebhookSecret() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                       string
	HTTPAddr                  string
	DatabaseURL               string
	DatabaseMaxConns          int32
	JWTAccessSecret           string
	AccessTokenTTL            time.Duration
	RefreshTokenTTL           time.Duration
	CORSAllowAll              bool
	CORSOrigins               []string
	CORSAllowCreds            bool
	AppBaseURL                string
	EmailEnabled              bool
	EmailProvider             string
	BrevoAPIKey               string
	EmailFromName             string
	EmailFromAddress          string
	SMTPHost                  string
	SMTPPort                  int
	SMTPUsername              string
	SMTPPassword              string
	MinIOEndpoint             string
	MinIOAccessKey            string
	MinIOSecretKey            string
	MinIOUseSSL               bool
	MinIOMaxFileSize          int64
	MinioBucketSignatures     string
	MinioBucketReceipts       string
	RedisURL                  string
	RedisTLSInsecure          bool
	AsynqQueueName            string
	AsynqConcurrency          int
	SalesEligibleScanSpec     string
	InvitationExpirySweepSpec string
	AdvisorProvider           string
	GeminiAPIKey              string
	OpenAIAPIKey              string
	OpenAIBaseURL             string
	AdvisorModel              string
	ESignWebhookSecret        string
}

// DatabaseConfig
func (c *Config) GetDatabaseURL() string     { return c.DatabaseURL }
func (c *Config) GetDatabaseMaxConns() int32 { return c.DatabaseMaxConns }

// JWTConfig / AuthServiceConfig
func (c *Config) GetJWTAccessSecret() string        { return c.JWTAccessSecret }
func (c *Config) GetAccessTokenTTL() time.Duration  { return c.AccessTokenTTL }
func (c *Config) GetRefreshTokenTTL() time.Duration { return c.RefreshTokenTTL }

// EmailConfig
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetEmailProvider() string    { return c.EmailProvider }
func (c *Config) GetBrevoAPIKey() string      { return c.BrevoAPIKey }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }

// HubConfig
func (c *Config) GetAppBaseURL() string { return c.AppBaseURL }

// HTTPConfig
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// MinIOConfig
func (c *Config) GetMinIOEndpoint() string          { return c.MinIOEndpoint }
func (c *Config) GetMinIOAccessKey() string         { return c.MinIOAccessKey }
func (c *Config) GetMinIOSecretKey() string         { return c.MinIOSecretKey }
func (c *Config) GetMinIOUseSSL() bool              { return c.MinIOUseSSL }
func (c *Config) GetMinIOMaxFileSize() int64        { return c.MinIOMaxFileSize }
func (c *Config) GetMinioBucketSignatures() string  { return c.MinioBucketSignatures }
func (c *Config) GetMinioBucketReceipts() string    { return c.MinioBucketReceipts }
func (c *Config) IsMinIOEnabled() bool              { return c.MinIOEndpoint != "" }

// RedisConfig / SchedulerConfig
func (c *Config) GetRedisURL() string                  { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool            { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string            { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int             { return c.AsynqConcurrency }
func (c *Config) GetSalesEligibleScanSpec() string     { return c.SalesEligibleScanSpec }
func (c *Config) GetInvitationExpirySweepSpec() string { return c.InvitationExpirySweepSpec }

// AdvisorConfig
func (c *Config) GetAdvisorProvider() string { return c.AdvisorProvider }
func (c *Config) GetGeminiAPIKey() string    { return c.GeminiAPIKey }
func (c *Config) GetOpenAIAPIKey() string    { return c.OpenAIAPIKey }
func (c *Config) GetOpenAIBaseURL() string   { return c.OpenAIBaseURL }
func (c *Config) GetAdvisorModel() string    { return c.AdvisorModel }

// IsAdvisorEnabled reports whether the selected provider has an API key.
func (c *Config) IsAdvisorEnabled() bool {
	if c.AdvisorProvider == "openai" {
		return c.OpenAIAPIKey != ""
	}
	return c.GeminiAPIKey != ""
}

// ESignConfig
func (c *Config) GetESignWebhookSecret() string { return c.ESignWebhookSecret }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")
	provider := strings.ToLower(getEnv("EMAIL_PROVIDER", "brevo"))

	cfg := &Config{
		Env:                       getEnv("APP_ENV", "development"),
		HTTPAddr:                  getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:               getEnv("DATABASE_URL", ""),
		DatabaseMaxConns:          int32(mustInt64(getEnv("DATABASE_MAX_CONNS", "20"))),
		JWTAccessSecret:           getEnv("JWT_ACCESS_SECRET", ""),
		AccessTokenTTL:            mustDuration(getEnv("JWT_ACCESS_TTL", "15m")),
		RefreshTokenTTL:           mustDuration(getEnv("JWT_REFRESH_TTL", "720h")),
		CORSAllowAll:              corsAllowAll,
		CORSOrigins:               corsOrigins,
		CORSAllowCreds:            strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		AppBaseURL:                getEnv("APP_BASE_URL", "http://localhost:3000"),
		EmailEnabled:              emailEnabled,
		EmailProvider:             provider,
		BrevoAPIKey:               getEnv("BREVO_API_KEY", ""),
		EmailFromName:             getEnv("EMAIL_FROM_NAME", "FDDHub"),
		EmailFromAddress:          getEnv("EMAIL_FROM_ADDRESS", ""),
		SMTPHost:                  getEnv("SMTP_HOST", ""),
		SMTPPort:                  int(mustInt64(getEnv("SMTP_PORT", "587"))),
		SMTPUsername:              getEnv("SMTP_USERNAME", ""),
		SMTPPassword:              getEnv("SMTP_PASSWORD", ""),
		MinIOEndpoint:             getEnv("MINIO_ENDPOINT", ""),
		MinIOAccessKey:            getEnv("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey:            getEnv("MINIO_SECRET_KEY", ""),
		MinIOUseSSL:               strings.EqualFold(getEnv("MINIO_USE_SSL", "false"), "true"),
		MinIOMaxFileSize:          mustInt64(getEnv("MINIO_MAX_FILE_SIZE", "20971520")),
		MinioBucketSignatures:     getEnv("MINIO_BUCKET_SIGNATURES", "item23-signatures"),
		MinioBucketReceipts:       getEnv("MINIO_BUCKET_RECEIPTS", "item23-receipts"),
		RedisURL:                  getEnv("REDIS_URL", ""),
		RedisTLSInsecure:          strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:            getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:          int(mustInt64(getEnv("ASYNQ_CONCURRENCY", "10"))),
		SalesEligibleScanSpec:     getEnv("SALES_ELIGIBLE_SCAN_SPEC", "@every 1h"),
		InvitationExpirySweepSpec: getEnv("INVITATION_EXPIRY_SWEEP_SPEC", "@every 6h"),
		AdvisorProvider:           strings.ToLower(getEnv("ADVISOR_PROVIDER", "gemini")),
		GeminiAPIKey:              getEnv("GEMINI_API_KEY", ""),
		OpenAIAPIKey:              getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:             getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		AdvisorModel:              getEnv("ADVISOR_MODEL", ""),
		ESignWebhookSecret:        getEnv("ESIGN_WEBHOOK_SECRET", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.EmailEnabled {
		if err := validateEmail(cfg); err != nil {
			return nil, err
		}
	}
	switch cfg.AdvisorProvider {
	case "gemini", "openai":
	default:
		return nil, fmt.Errorf("unsupported ADVISOR_PROVIDER %q", cfg.AdvisorProvider)
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

func validateEmail(cfg *Config) error {
	if cfg.EmailFromAddress == "" {
		return fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	switch cfg.EmailProvider {
	case "brevo":
		if cfg.BrevoAPIKey == "" {
			return fmt.Errorf("BREVO_API_KEY is required when EMAIL_PROVIDER is brevo")
		}
	case "smtp":
		if cfg.SMTPHost == "" || cfg.SMTPPort <= 0 {
			return fmt.Errorf("SMTP_HOST and SMTP_PORT are required when EMAIL_PROVIDER is smtp")
		}
	default:
		return fmt.Errorf("unsupported EMAIL_PROVIDER %q", cfg.EmailProvider)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
