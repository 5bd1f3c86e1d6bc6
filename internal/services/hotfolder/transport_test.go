package hotfolder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"despatch/internal/logging"
	"despatch/internal/services"
)

func TestDeliverCopiesIntoHotFolder(t *testing.T) {
	src := filepath.Join(t.TempDir(), "DESPATCH_TYF_01022024_101112.DAT")
	if err := os.WriteFile(src, []byte("1234567890\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()

	tr := New(dir, logging.NewNop())
	if err := tr.Deliver(context.Background(), src); err != nil {
		t.Fatalf("Deliver returned error: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, filepath.Base(src)))
	if err != nil {
		t.Fatalf("read delivered file: %v", err)
	}
	if string(got) != "1234567890\n" {
		t.Fatalf("unexpected delivered content %q", got)
	}
	if _, err := os.Stat(filepath.Join(dir, filepath.Base(src)+partSuffix)); !os.IsNotExist(err) {
		t.Fatalf("expected no leftover part file, stat err %v", err)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("expected source to remain: %v", err)
	}
}

func TestDeliverMissingFolder(t *testing.T) {
	src := filepath.Join(t.TempDir(), "x.DAT")
	if err := os.WriteFile(src, []byte("1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	err := New(filepath.Join(t.TempDir(), "gone"), nil).Deliver(context.Background(), src)
	var te *services.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if te.Code != CodeFolderMissing || te.Remedy == "" {
		t.Fatalf("unexpected transport error %+v", te)
	}
	if !errors.Is(err, services.ErrTransport) {
		t.Fatal("expected error to match ErrTransport")
	}
}

func TestDeliverMissingSource(t *testing.T) {
	dir := t.TempDir()
	err := New(dir, nil).Deliver(context.Background(), filepath.Join(t.TempDir(), "missing.EOT"))
	var te *services.TransportError
	if !errors.As(err, &te) || te.Code != CodeCopyFailed {
		t.Fatalf("expected copy failure, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("expected hot folder to stay empty, found %d entries", len(entries))
	}
}

func TestDeliverCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := New(t.TempDir(), nil).Deliver(ctx, "whatever")
	var te *services.TransportError
	if !errors.As(err, &te) || te.Code != CodeCanceled {
		t.Fatalf("expected canceled transport error, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatal("expected cause to be context.Canceled")
	}
}
