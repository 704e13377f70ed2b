package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Layout   LayoutConfig
	PDF      PDFConfig
	Batch    BatchConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN         string
	DialTimeout time.Duration
}

// LayoutConfig selects the active field layout revision.
type LayoutConfig struct {
	Path         string  // JSON layout file; empty -> built-in LOA313 table
	RowTolerance float64 // 0 -> layout default
}

// PDFConfig holds document-decryption configuration.
type PDFConfig struct {
	Passwords []string // candidates probed in order; empty entry means "no password"
}

// BatchConfig holds batch-import configuration.
type BatchConfig struct {
	Concurrency int // parallel documents; never parallel within a document
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:         getEnv("LJ_DB_DSN", "lohnjournal.db"),
			DialTimeout: getEnvAsDuration("LJ_DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Layout: LayoutConfig{
			Path:         getEnv("LJ_LAYOUT_PATH", ""),
			RowTolerance: getEnvAsFloat64("LJ_ROW_TOLERANCE", 0),
		},
		PDF: PDFConfig{
			Passwords: getEnvAsList("LJ_PDF_PASSWORDS"),
		},
		Batch: BatchConfig{
			Concurrency: getEnvAsInt("LJ_BATCH_CONCURRENCY", 4),
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

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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

func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "LJ_DB_DSN is required", ErrInvalidInput)
	}
	if c.Batch.Concurrency < 1 {
		return NewAppError("CONFIG_ERROR", "LJ_BATCH_CONCURRENCY must be >= 1", ErrInvalidInput)
	}
	return nil
}
