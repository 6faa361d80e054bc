// Package config loads process configuration for the bubble-sheet server from
// environment variables, optionally seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds server configuration.
type Config struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string

	// Backend selects the vision backend: "native" or "opencv".
	Backend string

	// Threshold is the fill-confidence decision threshold T.
	Threshold float64

	// CanonicalWidth and CanonicalHeight size the rectified sheet.
	CanonicalWidth  int
	CanonicalHeight int

	// MaxInputDimension caps the long side of a capture before processing.
	// Zero disables down-scaling.
	MaxInputDimension int

	// StudentIDDigits is the default number of student-ID columns.
	StudentIDDigits int

	// OCRLanguage is the Tesseract language used for header verification.
	OCRLanguage string

	// TessdataPrefix overrides the Tesseract training data directory.
	TessdataPrefix string

	// BatchWorkers bounds concurrent sheets in a batch call.
	BatchWorkers int
}

// Load reads configuration from the environment. If envFile is non-empty and
// exists it is loaded first; variables already set in the environment win.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := godotenv.Load(envFile); err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
			}
		}
	}

	threshold, err := getEnvAsFloatOrDefault("BUBBLE_MCP_THRESHOLD", 0.4)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		LogLevel:          getEnvOrDefault("BUBBLE_MCP_LOG_LEVEL", "info"),
		Backend:           getEnvOrDefault("BUBBLE_MCP_BACKEND", "native"),
		Threshold:         threshold,
		CanonicalWidth:    getEnvAsIntOrDefault("BUBBLE_MCP_CANONICAL_WIDTH", 700),
		CanonicalHeight:   getEnvAsIntOrDefault("BUBBLE_MCP_CANONICAL_HEIGHT", 700),
		MaxInputDimension: getEnvAsIntOrDefault("BUBBLE_MCP_MAX_INPUT_DIM", 2000),
		StudentIDDigits:   getEnvAsIntOrDefault("BUBBLE_MCP_STUDENT_ID_DIGITS", 6),
		OCRLanguage:       getEnvOrDefault("BUBBLE_MCP_OCR_LANG", "vie"),
		TessdataPrefix:    os.Getenv("BUBBLE_MCP_TESSDATA"),
		BatchWorkers:      getEnvAsIntOrDefault("BUBBLE_MCP_BATCH_WORKERS", 4),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Threshold <= 0 || c.Threshold >= 1 {
		return fmt.Errorf("BUBBLE_MCP_THRESHOLD must be in (0,1), got %v", c.Threshold)
	}
	if c.CanonicalWidth < 100 || c.CanonicalHeight < 100 {
		return fmt.Errorf("canonical size %dx%d is too small", c.CanonicalWidth, c.CanonicalHeight)
	}
	if c.MaxInputDimension < 0 {
		return fmt.Errorf("BUBBLE_MCP_MAX_INPUT_DIM must not be negative")
	}
	if c.StudentIDDigits < 1 || c.StudentIDDigits > 10 {
		return fmt.Errorf("BUBBLE_MCP_STUDENT_ID_DIGITS must be 1-10, got %d", c.StudentIDDigits)
	}
	if c.BatchWorkers < 1 {
		c.BatchWorkers = 1
	}
	switch c.Backend {
	case "native", "opencv":
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvAsFloatOrDefault(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
