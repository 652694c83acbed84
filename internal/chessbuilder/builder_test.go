package chessbuilder

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/park285/webchess/internal/config"
)

func TestParseRedisURL(t *testing.T) {
	opts, err := parseRedisURL("redis://:secret@cache.local:6380/2")
	if err != nil {
		t.Fatalf("parseRedisURL: %v", err)
	}
	if opts.Addr != "cache.local:6380" || opts.Password != "secret" || opts.DB != 2 {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if opts.TLSConfig != nil {
		t.Fatalf("plain redis must not enable TLS")
	}

	opts, err = parseRedisURL("rediss://cache.local")
	if err != nil {
		t.Fatalf("parseRedisURL: %v", err)
	}
	if opts.Addr != "cache.local:6379" || opts.TLSConfig == nil {
		t.Fatalf("unexpected options: %+v", opts)
	}

	for _, bad := range []string{"http://cache.local", "redis://cache.local:port", "redis://cache.local/db"} {
		if _, err := parseRedisURL(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestNewFallsBackWithoutEngine(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.AppConfig{
		StockfishPath: filepath.Join(t.TempDir(), "no-such-engine"),
		ResultsPath:   filepath.Join(t.TempDir(), "results.txt"),
		RedisURL:      "redis://" + mr.Addr() + "/0",
		SessionTTL:    time.Hour,
	}
	deps, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = deps.Close() })

	if deps.Engine != nil {
		t.Fatalf("engine must be nil when the binary is missing")
	}
	if got := deps.Service.EngineName(); got != "random" {
		t.Fatalf("engine name = %q, want random", got)
	}
	if deps.Redis == nil || deps.Postgres != nil || deps.Hub == nil || deps.Messages == nil {
		t.Fatalf("unexpected deps: %+v", deps)
	}

	deps.Service.StartSession(context.Background(), "Alice")
	if !mr.Exists("webchess:session") {
		t.Fatalf("session should be saved in redis")
	}
}

func TestNewRejectsBadRedisURL(t *testing.T) {
	cfg := &config.AppConfig{
		StockfishPath: filepath.Join(t.TempDir(), "no-such-engine"),
		ResultsPath:   filepath.Join(t.TempDir(), "results.txt"),
		RedisURL:      "memcached://localhost",
		SessionTTL:    time.Hour,
	}
	if _, err := New(context.Background(), cfg, nil); err == nil {
		t.Fatalf("expected error for unsupported redis scheme")
	}
}
