package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var configKeys = []string{
	"WEBCHESS_CONFIG", "HTTP_ADDR", "WS_ADDR", "STOCKFISH_PATH", "ENGINE_POOL_SIZE",
	"RESULTS_PATH", "REDIS_URL", "DATABASE_URL", "SESSION_TTL", "DEFAULT_DIFFICULTY", "MESSAGES_DIR",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":5000" || cfg.StockfishPath != "stockfish" || cfg.SessionTTL != 24*time.Hour || cfg.DefaultDifficulty != "medium" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.WSAddr != "" || cfg.RedisURL != "" || cfg.DatabaseURL != "" {
		t.Fatalf("optional services must be off by default: %+v", cfg)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_ADDR", " :8080 ")
	t.Setenv("WS_ADDR", ":8081")
	t.Setenv("ENGINE_POOL_SIZE", "3")
	t.Setenv("RESULTS_PATH", "/tmp/r.txt")
	t.Setenv("SESSION_TTL", "90")
	t.Setenv("DEFAULT_DIFFICULTY", "HARD")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" || cfg.WSAddr != ":8081" || cfg.EnginePoolSize != 3 || cfg.ResultsPath != "/tmp/r.txt" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.SessionTTL != 90*time.Second || cfg.DefaultDifficulty != "hard" {
		t.Fatalf("unexpected ttl/difficulty %+v", cfg)
	}
}

func TestLoadYAMLThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "webchess.yaml")
	body := "http_addr: \":7000\"\nredis_url: redis://localhost:6379/0\nsession_ttl: 2h\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("WEBCHESS_CONFIG", path)
	t.Setenv("REDIS_URL", "redis://other:6379/1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":7000" || cfg.SessionTTL != 2*time.Hour {
		t.Fatalf("yaml not applied: %+v", cfg)
	}
	if cfg.RedisURL != "redis://other:6379/1" {
		t.Fatalf("env must win over yaml, got %q", cfg.RedisURL)
	}
}

func TestLoadRejectsBadInput(t *testing.T) {
	clearEnv(t)
	t.Setenv("SESSION_TTL", "soon")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for bad SESSION_TTL")
	}

	clearEnv(t)
	t.Setenv("WEBCHESS_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
