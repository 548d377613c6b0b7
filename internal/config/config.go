package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Shared key expected in the x-api-key header. Empty disables the check.
	APIKey             string
	CORSAllowedOrigins []string

	// Session stop conditions
	MaxMessages   int
	MaxNoNewIntel int

	// Terminal report delivery
	CallbackURL     string
	CallbackTimeout time.Duration

	// Report archive (optional, disabled when RedisAddr is empty)
	RedisAddr        string
	RedisPassword    string
	RedisTLS         bool
	ReportArchiveTTL time.Duration

	// Postgres report archive (disabled when DatabaseURL is empty)
	DatabaseURL string

	// S3 report export (disabled when ReportS3Bucket is empty)
	ReportS3Bucket      string
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
}

// Load reads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		Port:                getEnv("PORT", "8080"),
		Env:                 getEnv("ENV", "development"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		APIKey:              strings.TrimSpace(getEnv("API_KEY", "")),
		CORSAllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		MaxMessages:         getEnvAsInt("MAX_MESSAGES", 15),
		MaxNoNewIntel:       getEnvAsInt("MAX_NO_NEW_INTEL", 3),
		CallbackURL:         getEnv("CALLBACK_URL", "https://hackathon.guvi.in/api/updateHoneyPotFinalResult"),
		CallbackTimeout:     getEnvAsDuration("CALLBACK_TIMEOUT", 10*time.Second),
		RedisAddr:           getEnv("REDIS_ADDR", ""),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisTLS:            getEnvAsBool("REDIS_TLS", false),
		ReportArchiveTTL:    getEnvAsDuration("REPORT_ARCHIVE_TTL", 7*24*time.Hour),
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		ReportS3Bucket:      getEnv("REPORT_S3_BUCKET", ""),
		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
	}
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = 15
	}
	if cfg.MaxNoNewIntel <= 0 {
		cfg.MaxNoNewIntel = 3
	}
	if cfg.CallbackTimeout <= 0 {
		cfg.CallbackTimeout = 10 * time.Second
	}
	return cfg
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated variable, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
