package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// GetEnv returns the trimmed value of an environment variable ("" when unset).
func GetEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// GetEnvOrDefault returns the variable or the fallback when it is unset.
func GetEnvOrDefault(key, fallback string) string {
	if v := GetEnv(key); v != "" {
		return v
	}
	return fallback
}

// GetEnvInt parses an integer variable, falling back on absence or parse failure.
func GetEnvInt(key string, fallback int) int {
	v := GetEnv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		Logger.Warn("Invalid integer in environment, using default", zap.String("key", key), zap.Int("default", fallback))
		return fallback
	}
	return n
}

// GetEnvDuration parses a Go duration string such as "90s" or "30m".
func GetEnvDuration(key string, fallback time.Duration) time.Duration {
	v := GetEnv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		Logger.Warn("Invalid duration in environment, using default", zap.String("key", key), zap.Duration("default", fallback))
		return fallback
	}
	return d
}

// GetEnvList splits a comma-separated variable, dropping empty entries.
func GetEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(GetEnv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
