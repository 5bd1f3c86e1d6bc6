package report

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"despatch/internal/config"
)

func TestRenderWritesNamedReport(t *testing.T) {
	dir := t.TempDir()
	site := config.Site{Name: "TY FELIN", ReportPrefix: filepath.Join(dir, "REPORT_TYF_")}
	at := time.Date(2024, 2, 1, 10, 11, 12, 0, time.Local)

	w := New(site, WithClock(func() time.Time { return at }))
	path, err := w.Render(context.Background(), []string{"1234567890", "0987654321"}, "alice")
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	if want := filepath.Join(dir, "REPORT_TYF_alice.01022024_101112.txt"); path != want {
		t.Fatalf("unexpected report path %q want %q", path, want)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	content := string(data)
	for _, fragment := range []string{
		"Despatch Report",
		"Site: Ty Felin",
		"Submitted on 01/02/2024 @ 10:11:12 by alice",
		"Records: 2",
		"1234567890",
		"0987654321",
	} {
		if !strings.Contains(content, fragment) {
			t.Fatalf("expected %q in report:\n%s", fragment, content)
		}
	}
	if strings.Index(content, "1234567890") > strings.Index(content, "0987654321") {
		t.Fatal("expected ids in submission order")
	}
}

func TestRenderFailsForMissingDirectory(t *testing.T) {
	site := config.Site{Name: "BRP", ReportPrefix: filepath.Join(t.TempDir(), "missing", "R_")}
	if _, err := New(site).Render(context.Background(), []string{"1234567890"}, "bob"); err == nil {
		t.Fatal("expected error when the report directory is missing")
	}
}

func TestFileName(t *testing.T) {
	got := FileName("/repo/R_", "bob", time.Date(2023, 12, 31, 23, 59, 58, 0, time.UTC))
	if got != "/repo/R_bob.31122023_235958.txt" {
		t.Fatalf("unexpected file name %q", got)
	}
}

func TestFileNameKeepsUserInsidePrefixDirectory(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "R_")
	at := time.Date(2023, 12, 31, 23, 59, 58, 0, time.UTC)

	for _, user := range []string{"../../etc/x", `..\\evil`, "a/b", "tab\tname"} {
		got := FileName(prefix, user, at)
		if filepath.Dir(got) != dir {
			t.Fatalf("FileName(%q) escaped %s: %q", user, dir, got)
		}
		if !strings.HasPrefix(filepath.Base(got), "R_") {
			t.Fatalf("FileName(%q) lost the prefix: %q", user, got)
		}
	}
	if got := FileName(prefix, "../x", at); filepath.Base(got) != "R_.._x.31122023_235958.txt" {
		t.Fatalf("unexpected sanitised name %q", got)
	}
}

func TestRenderWithHostileUserStaysInOutputDir(t *testing.T) {
	dir := t.TempDir()
	site := config.Site{Name: "BRP", ReportPrefix: filepath.Join(dir, "R_")}
	path, err := New(site).Render(context.Background(), []string{"1234567890"}, "../../outside")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("report written outside %s: %q", dir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(data), "by ../../outside") {
		t.Fatalf("report body should keep the user verbatim:\n%s", data)
	}
}
