package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	HTTPAddr string `yaml:"http_addr"`
	WSAddr   string `yaml:"ws_addr"`

	StockfishPath  string `yaml:"stockfish_path"`
	EnginePoolSize int    `yaml:"engine_pool_size"`

	ResultsPath string `yaml:"results_path"`
	RedisURL    string `yaml:"redis_url"`
	DatabaseURL string `yaml:"database_url"`

	SessionTTL        time.Duration `yaml:"session_ttl"`
	DefaultDifficulty string        `yaml:"default_difficulty"`

	MessagesDir string `yaml:"messages_dir"`
}

func defaults() *AppConfig {
	return &AppConfig{
		HTTPAddr:          ":5000",
		StockfishPath:     "stockfish",
		SessionTTL:        24 * time.Hour,
		DefaultDifficulty: "medium",
	}
}

// Load builds the configuration from defaults, the optional YAML file named
// by WEBCHESS_CONFIG, then environment variables.
func Load() (*AppConfig, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("WEBCHESS_CONFIG")); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("WS_ADDR")); v != "" {
		cfg.WSAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("STOCKFISH_PATH")); v != "" {
		cfg.StockfishPath = v
	}
	if v := strings.TrimSpace(os.Getenv("ENGINE_POOL_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EnginePoolSize = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("RESULTS_PATH")); v != "" {
		cfg.ResultsPath = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		cfg.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("SESSION_TTL")); v != "" {
		ttl, err := parseTTL(v)
		if err != nil {
			return nil, fmt.Errorf("SESSION_TTL: %w", err)
		}
		cfg.SessionTTL = ttl
	}
	if v := strings.TrimSpace(os.Getenv("DEFAULT_DIFFICULTY")); v != "" {
		cfg.DefaultDifficulty = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("MESSAGES_DIR")); v != "" {
		cfg.MessagesDir = v
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("HTTP_ADDR is required")
	}
	if cfg.SessionTTL <= 0 {
		return nil, errors.New("SESSION_TTL must be greater than 0")
	}
	return cfg, nil
}

func (c *AppConfig) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// parseTTL accepts a Go duration ("90m") or a plain number of seconds.
func parseTTL(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}
