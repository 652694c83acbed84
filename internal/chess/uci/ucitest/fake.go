// Package ucitest provides a scripted UCI engine for tests.
package ucitest

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

// Script writes a shell program that completes the UCI handshake and answers
// every "go" with the given lines, then returns its path. Tests are skipped
// on platforms without /bin/sh.
func Script(t *testing.T, searchOutput ...string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("scripted engine requires /bin/sh")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("scripted engine requires /bin/sh")
	}

	var reply strings.Builder
	for _, line := range searchOutput {
		reply.WriteString(" '")
		reply.WriteString(strings.ReplaceAll(line, "'", ""))
		reply.WriteString("'")
	}

	body := "#!/bin/sh\n" +
		"while IFS= read -r line; do\n" +
		"  case \"$line\" in\n" +
		"    uci) printf 'id name fakefish\\nuciok\\n' ;;\n" +
		"    isready) printf 'readyok\\n' ;;\n" +
		"    go*) printf '%s\\n'" + reply.String() + " ;;\n" +
		"    quit) exit 0 ;;\n" +
		"  esac\n" +
		"done\n"

	path := filepath.Join(t.TempDir(), "fakefish")
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write fake engine: %v", err)
	}
	return path
}

// Broken writes a program that exits immediately.
func Broken(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("scripted engine requires /bin/sh")
	}
	path := filepath.Join(t.TempDir(), "brokenfish")
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 3\n"), 0o755); err != nil {
		t.Fatalf("write broken engine: %v", err)
	}
	return path
}
