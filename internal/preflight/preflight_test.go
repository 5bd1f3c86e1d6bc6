package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"despatch/internal/config"
)

func TestCanWriteSharedOutputLeavesNoProbe(t *testing.T) {
	dir := t.TempDir()
	if !CanWriteSharedOutput(dir) {
		t.Fatal("expected temp dir to be writable")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected probe file to be removed, found %d entries", len(entries))
	}
}

func TestCanWriteSharedOutputMissingDir(t *testing.T) {
	if CanWriteSharedOutput(filepath.Join(t.TempDir(), "missing")) {
		t.Fatal("expected missing dir to fail the probe")
	}
	if CanWriteSharedOutput("") {
		t.Fatal("expected empty path to fail the probe")
	}
}

func TestCanWriteSharedOutputReadOnlyDir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root bypasses directory permissions")
	}
	dir := t.TempDir()
	if err := os.Chmod(dir, 0o555); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	if CanWriteSharedOutput(dir) {
		t.Fatal("expected read-only dir to fail the probe")
	}
}

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckIntake(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	defer healthy.Close()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()

	if result := CheckIntake(context.Background(), healthy.URL); !result.Passed {
		t.Fatalf("expected reachable intake, got: %s", result.Detail)
	}
	if result := CheckIntake(context.Background(), broken.URL); result.Passed {
		t.Fatal("expected 5xx intake to fail")
	}
	if result := CheckIntake(context.Background(), ""); result.Passed {
		t.Fatal("expected missing url to fail")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_HotFolderConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.JournalDir = t.TempDir()
	cfg.Paths.OutputDir = t.TempDir()
	cfg.Transport.HotFolder = t.TempDir()

	results := RunAll(context.Background(), &cfg)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Passed {
			t.Errorf("check %q failed: %s", r.Name, r.Detail)
		}
	}
}

func TestRunAll_HTTPTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Paths.JournalDir = t.TempDir()
	cfg.Paths.OutputDir = t.TempDir()
	cfg.Transport.Mode = config.TransportHTTP
	cfg.Transport.IntakeURL = srv.URL

	results := RunAll(context.Background(), &cfg)
	last := results[len(results)-1]
	if last.Name != "Transport" || !last.Passed {
		t.Fatalf("expected passing transport check, got %+v", last)
	}
}
