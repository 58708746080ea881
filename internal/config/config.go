// Package config loads service settings from the environment, optionally
// seeded from a dotenv file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/ironsheep/edge-map-service/internal/imaging"
)

// Backends understood by the pipeline.
const (
	BackendNative = "native"
	BackendOpenCV = "opencv"
)

// DefaultMaxPixels bounds the declared area of an upload. Decoding and
// detection need roughly 20 bytes per pixel, so this is about 320 MB of
// working memory per request.
const DefaultMaxPixels = 16_000_000

type Config struct {
	EnvFile         string
	Addr            string
	LogLevel        string
	LogFormat       string
	Backend         string
	Luminance       string
	JPEGQuality     int
	MaxBodyBytes    int64
	MaxPixels       int64
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Load reads the dotenv file named by EDGEMAP_ENV_FILE (default ".env") if
// it exists, then builds a Config from the environment. Variables already
// set in the process environment take precedence over the file.
func Load() (*Config, error) {
	envFile := getEnv("EDGEMAP_ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}

	return &Config{
		EnvFile:         envFile,
		Addr:            getEnv("EDGEMAP_ADDR", ":8080"),
		LogLevel:        getEnv("EDGEMAP_LOG_LEVEL", "info"),
		LogFormat:       getEnv("EDGEMAP_LOG_FORMAT", "json"),
		Backend:         getEnv("EDGEMAP_BACKEND", BackendNative),
		Luminance:       getEnv("EDGEMAP_LUMINANCE", string(imaging.LuminanceBT601)),
		JPEGQuality:     getEnvAsInt("EDGEMAP_JPEG_QUALITY", imaging.DefaultJPEGQuality),
		MaxBodyBytes:    getEnvAsInt64("EDGEMAP_MAX_BODY_BYTES", 10<<20),
		MaxPixels:       getEnvAsInt64("EDGEMAP_MAX_PIXELS", DefaultMaxPixels),
		ReadTimeout:     getEnvAsDuration("EDGEMAP_READ_TIMEOUT", 60*time.Second),
		WriteTimeout:    getEnvAsDuration("EDGEMAP_WRITE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvAsDuration("EDGEMAP_SHUTDOWN_TIMEOUT", 10*time.Second),
	}, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("EDGEMAP_LOG_FORMAT must be json or console, got %q", c.LogFormat)
	}
	switch c.Backend {
	case BackendNative, BackendOpenCV:
	default:
		return fmt.Errorf("EDGEMAP_BACKEND must be %s or %s, got %q", BackendNative, BackendOpenCV, c.Backend)
	}
	if _, err := imaging.ParseLuminance(c.Luminance); err != nil {
		return fmt.Errorf("EDGEMAP_LUMINANCE: %w", err)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("EDGEMAP_JPEG_QUALITY must be in [1,100], got %d", c.JPEGQuality)
	}
	if c.MaxBodyBytes <= 0 {
		return fmt.Errorf("EDGEMAP_MAX_BODY_BYTES must be positive, got %d", c.MaxBodyBytes)
	}
	if c.MaxPixels < 0 {
		return fmt.Errorf("EDGEMAP_MAX_PIXELS must not be negative, got %d", c.MaxPixels)
	}
	if c.Addr == "" {
		return fmt.Errorf("EDGEMAP_ADDR must not be empty")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
