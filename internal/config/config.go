package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultMaxUploadBytes is the local upload guard: files larger than this are
// rejected before the extraction model is ever called.
const DefaultMaxUploadBytes = 10 << 20 // 10 MB

type Config struct {
	// HTTP server
	Port          string
	AllowedOrigin string

	// Gemini
	GeminiModel string

	// Upload guard
	MaxUploadBytes int64
}

// Load reads configuration from the environment, after loading a .env file if
// one is present. Missing keys fall back to defaults.
func Load() *Config {
	// A missing .env file is not an error; env vars may be set directly.
	_ = godotenv.Load()

	return &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigin:  getEnv("ALLOWED_ORIGIN", "*"),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", DefaultMaxUploadBytes),
	}
}

// Validate checks the configuration and returns an error describing every
// invalid field.
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port %q: must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.GeminiModel == "" {
		problems = append(problems, "GEMINI_MODEL must not be empty")
	}

	if c.MaxUploadBytes <= 0 {
		problems = append(problems, fmt.Sprintf("invalid MAX_UPLOAD_BYTES %d: must be positive", c.MaxUploadBytes))
	}

	if len(problems) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}
