package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"despatch/internal/preflight"
	"despatch/internal/services"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Submission", statusError, "transport_failed", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Submission:", "[ERROR] transport_failed")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Submission", statusOK, "done", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestPreflightLines(t *testing.T) {
	results := []preflight.Result{
		{Name: "Journal directory", Passed: true, Detail: "/tmp/j (read/write ok)"},
		{Name: "Hot folder", Detail: "/mnt/hot (error: does not exist)"},
	}
	lines := preflightLines(results, false)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "[OK] /tmp/j") {
		t.Fatalf("unexpected first line %q", lines[0])
	}
	if !strings.Contains(lines[1], "[ERROR] /mnt/hot") {
		t.Fatalf("unexpected second line %q", lines[1])
	}
	if !strings.Contains(lines[2], "1 of 2 checks failed") {
		t.Fatalf("unexpected summary %q", lines[2])
	}
}

func TestErrorLinesShowIntakeErrorVerbatim(t *testing.T) {
	err := fmt.Errorf("deliver: %w", &services.TransportError{Code: "RPD-9", Message: "Queue closed", Remedy: "Try after 6pm"})
	lines := errorLines("Submission", err, false)
	joined := strings.Join(lines, "\n")
	for _, want := range []string{"[ERROR] transport_failed", "[INFO] RPD-9", "[INFO] Queue closed", "[INFO] Try after 6pm"} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in\n%s", want, joined)
		}
	}

	lines = errorLines("Site", services.Wrap(services.ErrBusy, "journal", "lock", "in use", errors.New("x")), false)
	if len(lines) != 2 || !strings.Contains(lines[0], "busy") {
		t.Fatalf("unexpected lines %v", lines)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}
