package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Gemini  GeminiConfig
	GSA     GSAConfig
	Auth    AuthConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// StorageConfig holds the local persistence configuration
type StorageConfig struct {
	DBPath string
}

// GeminiConfig holds extraction collaborator configuration
type GeminiConfig struct {
	Model      string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

// GSAConfig holds per-diem rate lookup configuration
type GSAConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// AuthConfig holds identity/session configuration
type AuthConfig struct {
	JWTSecret     string
	AllowedDomain string
	SessionTTL    time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:           ":" + getEnv("PORT", "8080"),
			AllowedOrigins: []string{getEnv("FRONTEND_ORIGIN", "*")},
		},
		Storage: StorageConfig{
			DBPath: getEnv("DB_PATH", "./data/expenses.db"),
		},
		Gemini: GeminiConfig{
			Model:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			APIKey:     getEnv("GEMINI_API_KEY", ""),
			Timeout:    getEnvAsDuration("GEMINI_TIMEOUT", 45*time.Second),
			MaxRetries: getEnvAsInt("GEMINI_MAX_RETRIES", 2),
		},
		GSA: GSAConfig{
			BaseURL: getEnv("GSA_BASE_URL", "https://api.gsa.gov/travel/perdiem/v2"),
			APIKey:  getEnv("GSA_API_KEY", ""),
			Timeout: getEnvAsDuration("GSA_TIMEOUT", 15*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret:     getEnv("JWT_SECRET", ""),
			AllowedDomain: getEnv("ALLOWED_EMAIL_DOMAIN", "blackcape.io"),
			SessionTTL:    getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
