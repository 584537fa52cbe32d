package config

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// HTTP Server Configuration
	HTTPPort int

	// Database Configuration
	DatabaseURL string

	// DataDir is where persisted secrets and the default SQLite database live
	DataDir string

	// Authentication Configuration
	AdminEmail     string
	AdminPassword  string
	JWTSecret      string
	JWTExpiryHours int

	// WebhookAPIKeys protect the alert ingestion endpoints. Empty means open.
	WebhookAPIKeys []string

	// EncryptionKey encrypts integration credentials at rest
	EncryptionKey string

	// Job Configuration
	RefreshInterval   time.Duration
	RefreshBatchSize  int
	AlertSyncInterval time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}

	// HTTP Port for API server
	cfg.HTTPPort = getEnvAsIntOrDefault("HTTP_PORT", 3001)

	// Data directory, used for the SQLite default and persisted secrets
	cfg.DataDir = getEnvOrDefault("DATA_DIR", "/opsimate")

	// Database configuration. A postgres:// URL selects the Postgres driver;
	// anything else is treated as a SQLite path.
	cfg.DatabaseURL = getEnvOrDefault("DATABASE_URL", filepath.Join(cfg.DataDir, "opsimate.db"))

	// Authentication configuration
	cfg.AdminEmail = getEnvOrDefault("ADMIN_EMAIL", "admin@opsimate.local")
	cfg.AdminPassword = os.Getenv("ADMIN_PASSWORD") // No default - must be set
	cfg.JWTExpiryHours = getEnvAsIntOrDefault("JWT_EXPIRY_HOURS", 24)

	// JWT Secret: auto-generate and persist if not provided via env var
	cfg.JWTSecret = loadOrGenerateSecret("JWT_SECRET", filepath.Join(cfg.DataDir, ".jwt_secret"))

	// Webhook ingestion keys, comma-separated
	cfg.WebhookAPIKeys = splitAndTrim(os.Getenv("WEBHOOK_API_KEYS"))

	// Integration credentials encryption key, persisted alongside the JWT
	// secret so stored credentials survive restarts
	cfg.EncryptionKey = loadOrGenerateSecret("ENCRYPTION_KEY", filepath.Join(cfg.DataDir, ".encryption_key"))

	// Background job configuration
	cfg.RefreshInterval = getEnvAsDurationOrDefault("REFRESH_INTERVAL", 30*time.Second)
	cfg.RefreshBatchSize = getEnvAsIntOrDefault("REFRESH_BATCH_SIZE", 4)
	cfg.AlertSyncInterval = getEnvAsDurationOrDefault("ALERT_SYNC_INTERVAL", 60*time.Second)

	return cfg, nil
}

// loadOrGenerateSecret loads a secret from the env var or file, generating
// and persisting a new one when neither exists
func loadOrGenerateSecret(envKey, secretPath string) string {
	// Env var wins, allowing override
	if envSecret := os.Getenv(envKey); envSecret != "" {
		log.Printf("Using %s from environment variable", envKey)
		return envSecret
	}

	// Try to load existing secret from file
	if data, err := os.ReadFile(secretPath); err == nil {
		secret := strings.TrimSpace(string(data))
		if secret != "" {
			log.Printf("Loaded %s from %s", envKey, secretPath)
			return secret
		}
	}

	// Generate new secret
	secret := generateSecureSecret(32) // 256 bits

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(secretPath), 0755); err != nil {
		log.Printf("Warning: Could not create directory for %s: %v", envKey, err)
		return secret
	}

	// Save secret to file
	if err := os.WriteFile(secretPath, []byte(secret), 0600); err != nil {
		log.Printf("Warning: Could not save %s to file: %v", envKey, err)
	} else {
		log.Printf("Generated and saved new %s to %s", envKey, secretPath)
	}

	return secret
}

// generateSecureSecret generates a cryptographically secure random string
func generateSecureSecret(bytes int) string {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		// Fallback to a less secure but functional default (should never happen)
		log.Printf("Warning: Could not generate secure random bytes: %v", err)
		return "fallback-insecure-secret-please-set-env"
	}
	return hex.EncodeToString(b)
}

// splitAndTrim splits a comma-separated value, dropping empty entries
func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// getEnvOrDefault returns the value of an environment variable or a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault returns the value of an environment variable as an integer or a default value
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvAsDurationOrDefault returns the value of an environment variable as a
// duration ("30s", "5m") or a default value
func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
