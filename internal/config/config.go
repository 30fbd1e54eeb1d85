package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mindbridge/mindbridge/internal/watcher"
)

type Config struct {
	DataDir          string
	ModelsDBPath     string
	LogLevel         string
	LogFormat        string
	MappingCacheSize int
	ToolTimeout      time.Duration
	Watcher          watcher.Config
}

// Load reads configuration from the environment, with an optional .env
// file. Everything has a working default; the data directory is the only
// setting most deployments touch.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DataDir:          envOr("MINDBRIDGE_DATA_DIR", "data"),
		ModelsDBPath:     os.Getenv("MINDBRIDGE_MODELS_DB"),
		LogLevel:         envOr("MINDBRIDGE_LOG_LEVEL", "info"),
		LogFormat:        envOr("MINDBRIDGE_LOG_FORMAT", "text"),
		MappingCacheSize: envInt("MINDBRIDGE_CACHE_SIZE", 16),
		ToolTimeout:      envDuration("MINDBRIDGE_TOOL_TIMEOUT", 2*time.Minute),
		Watcher:          watcher.DefaultConfig(),
	}
	cfg.Watcher.Enabled = envBool("MINDBRIDGE_WATCH", true)
	return cfg
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
