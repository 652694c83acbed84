package obslog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestOptionsFromEnv(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("LOG_TO_CONSOLE", "false")
	t.Setenv("LOG_TO_FILE", "false")
	t.Setenv("LOG_CALLER", "true")

	opts := OptionsFromEnv()
	if opts.Level != zapcore.WarnLevel || opts.Format != "json" || opts.Console || opts.File != "" || !opts.Caller {
		t.Fatalf("unexpected options %+v", opts)
	}
}

func TestOptionsFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"LOG_LEVEL", "LOG_FORMAT", "LOG_TO_CONSOLE", "LOG_TO_FILE", "LOG_FILE"} {
		t.Setenv(k, "")
	}
	opts := OptionsFromEnv()
	if opts.Level != zapcore.InfoLevel || opts.Format != "legacy" || !opts.Console {
		t.Fatalf("unexpected defaults %+v", opts)
	}
	if opts.File != filepath.Join("logs", "webchess.log") {
		t.Fatalf("default log file = %q", opts.File)
	}
}

func TestNewWritesJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "app.log")
	logger, err := New(Options{Level: zapcore.InfoLevel, Format: "json", File: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Debug("hidden")
	logger.Info("chess session started", zap.String("player", "Alice"))
	_ = logger.Sync()

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	text := string(raw)
	if strings.Contains(text, "hidden") {
		t.Fatalf("debug line written at info level: %s", text)
	}
	if !strings.Contains(text, `"msg":"chess session started"`) || !strings.Contains(text, `"player":"Alice"`) {
		t.Fatalf("unexpected log output: %s", text)
	}
}

func TestInitReplacesGlobal(t *testing.T) {
	before := L()
	if err := Init(Options{Level: zapcore.ErrorLevel}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { globalLogger = before })
	if L() == before {
		t.Fatalf("Init must install a new logger")
	}
	if L().Core().Enabled(zapcore.InfoLevel) {
		t.Fatalf("info must be disabled at error level")
	}
}
