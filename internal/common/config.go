package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	LLM      LLMConfig
	Pipeline PipelineConfig
	PageText PageTextConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Path string
}

// LLMConfig holds extraction-model configuration
type LLMConfig struct {
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float32
	Timeout     time.Duration
}

// PipelineConfig holds batch processing configuration
type PipelineConfig struct {
	BatchSize     int
	CallDelay     time.Duration
	MinSpanLength int
}

// PageTextConfig holds the vertical body band used to drop page headers
// and footers before segmentation.
type PageTextConfig struct {
	BodyYMin float64
	BodyYMax float64
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: getEnv("CREDIT_DB_PATH", "credit_history.db"),
		},
		LLM: LLMConfig{
			BaseURL:     getEnv("MISTRAL_BASE_URL", "https://api.mistral.ai/v1"),
			Model:       getEnv("MISTRAL_MODEL", "mistral-large-latest"),
			APIKey:      getEnv("MISTRAL_API_KEY", ""),
			Temperature: getEnvAsFloat32("MISTRAL_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("MISTRAL_TIMEOUT", 45*time.Second),
		},
		Pipeline: PipelineConfig{
			BatchSize:     getEnvAsInt("BATCH_SIZE", 5),
			CallDelay:     getEnvAsDuration("API_DELAY", time.Second),
			MinSpanLength: getEnvAsInt("MIN_SPAN_LENGTH", 100),
		},
		PageText: PageTextConfig{
			BodyYMin: getEnvAsFloat64("BODY_Y_MIN", 50),
			BodyYMax: getEnvAsFloat64("BODY_Y_MAX", 720),
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

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
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
		// Plain numbers are read as seconds (API_DELAY=1.5 style values).
		if secs, err := strconv.ParseFloat(value, 64); err == nil {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return defaultValue
}

// Validate checks the configuration for fatal startup errors.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return NewAppError("CONFIG_ERROR", "CREDIT_DB_PATH is required", ErrInvalidInput)
	}
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "MISTRAL_API_KEY is required", ErrInvalidInput)
	}
	if c.Pipeline.BatchSize <= 0 {
		return NewAppError("CONFIG_ERROR", "BATCH_SIZE must be positive", ErrInvalidInput)
	}
	if c.PageText.BodyYMin >= c.PageText.BodyYMax {
		return NewAppError("CONFIG_ERROR", "BODY_Y_MIN must be below BODY_Y_MAX", ErrInvalidInput)
	}
	return nil
}
