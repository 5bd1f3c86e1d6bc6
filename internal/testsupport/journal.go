package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// WriteJournal seeds a journal file with raw lines, creating parent
// directories. Lines are written verbatim so callers can plant malformed
// entries.
func WriteJournal(t testing.TB, path string, lines ...string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write journal %s: %v", path, err)
	}
}

// ReadJournal returns the non-empty lines of a journal file.
func ReadJournal(t testing.TB, path string) []string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read journal %s: %v", path, err)
	}
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
