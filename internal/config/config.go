// Package config loads CLI configuration from a .env file or environment
// variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all hdfscli configuration.
type Config struct {
	// Cluster
	URLs  []string // name-node endpoints, highest priority first
	Root  string
	User  string
	Token string

	// Requests
	Timeout       time.Duration
	RetryAttempts int

	// Logging
	LogLevel  string
	LogFormat string

	// Transfers
	Workers int
}

// Load reads configuration from environment variables with defaults. A
// .env file in the working directory is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		URLs:          splitList(envOr("HDFS_URLS", "http://localhost:9870")),
		Root:          envOr("HDFS_ROOT", "/"),
		User:          envOr("HDFS_USER", ""),
		Token:         envOr("HDFS_TOKEN", ""),
		Timeout:       time.Duration(envInt("HDFS_TIMEOUT", 30)) * time.Second,
		RetryAttempts: envInt("HDFS_RETRY_ATTEMPTS", 3),
		LogLevel:      envOr("LOG_LEVEL", "info"),
		LogFormat:     envOr("LOG_FORMAT", "console"),
		Workers:       envInt("HDFS_WORKERS", 1),
	}

	if len(cfg.URLs) == 0 {
		return nil, fmt.Errorf("HDFS_URLS is required")
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
