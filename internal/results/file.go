package results

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/adrg/xdg"
	"github.com/park285/webchess/internal/domain"
)

// DefaultPath is the result log location when none is configured.
func DefaultPath() string {
	return filepath.Join(xdg.StateHome, "webchess", "results.txt")
}

// FileSink appends records to a flat text file. The file is opened and
// closed on every append.
type FileSink struct {
	path string
	mu   sync.Mutex
}

func NewFileSink(path string) *FileSink {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath()
	}
	return &FileSink{path: path}
}

func (f *FileSink) Path() string { return f.path }

func (f *FileSink) Append(_ context.Context, game domain.GameResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if dir := filepath.Dir(f.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: create dir: %v", ErrLogWrite, err)
		}
	}
	file, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("%w: open: %v", ErrLogWrite, err)
	}
	if _, err := file.WriteString(FormatRecord(game)); err != nil {
		file.Close()
		return fmt.Errorf("%w: write: %v", ErrLogWrite, err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("%w: close: %v", ErrLogWrite, err)
	}
	return nil
}

// ReadAll returns the whole log, or ErrNoGames if nothing was written yet.
func (f *FileSink) ReadAll() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNoGames
	}
	if err != nil {
		return "", fmt.Errorf("read result log: %w", err)
	}
	return string(raw), nil
}
