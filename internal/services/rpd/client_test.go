package rpd

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"despatch/internal/services"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestDeliverUploadsMultipartWithBearer(t *testing.T) {
	var gotName, gotContent, gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("form file: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotName = header.Filename
		gotContent = string(data)
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	path := writeFile(t, "DESPATCH_BRP_01022024_101112.EOT", "RUNVOL=2\nUSER=alice\nRUNDATE=01022024\n")
	client := NewClient(server.URL, time.Second, WithTokenSource(StaticToken("tok-1")))
	if err := client.Deliver(context.Background(), path); err != nil {
		t.Fatalf("Deliver returned error: %v", err)
	}
	if gotAuth != "Bearer tok-1" {
		t.Fatalf("unexpected authorization header %q", gotAuth)
	}
	if gotName != filepath.Base(path) {
		t.Fatalf("unexpected upload name %q", gotName)
	}
	if gotContent != "RUNVOL=2\nUSER=alice\nRUNDATE=01022024\n" {
		t.Fatalf("unexpected upload content %q", gotContent)
	}
}

func TestDeliverPassesIntakeErrorThroughVerbatim(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"code":    "E-4012",
			"message": "Duplicate run date",
			"action":  "Contact the print bureau",
		})
	}))
	defer server.Close()

	path := writeFile(t, "x.DAT", "1234567890\n")
	err := NewClient(server.URL, time.Second).Deliver(context.Background(), path)

	var te *services.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if te.Code != "E-4012" || te.Message != "Duplicate run date" || te.Remedy != "Contact the print bureau" {
		t.Fatalf("intake error not passed through verbatim: %+v", te)
	}
	if te.Path != path {
		t.Fatalf("expected path on transport error, got %q", te.Path)
	}
}

func TestDeliverNonJSONError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gateway down", http.StatusBadGateway)
	}))
	defer server.Close()

	err := NewClient(server.URL, time.Second).Deliver(context.Background(), writeFile(t, "x.DAT", "1\n"))
	var te *services.TransportError
	if !errors.As(err, &te) || te.Code != CodeBadResponse || te.Message != "gateway down" {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestDeliverMissingFile(t *testing.T) {
	err := NewClient("http://127.0.0.1:1", time.Second).Deliver(context.Background(), filepath.Join(t.TempDir(), "missing"))
	var te *services.TransportError
	if !errors.As(err, &te) || te.Code != CodeLocalFile {
		t.Fatalf("expected local file error, got %v", err)
	}
}

func TestAuthenticate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode login: %v", err)
		}
		if req.Username != "alice" || req.Password != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"code": "AUTH", "message": "Bad credentials", "action": "Retry"})
			return
		}
		_ = json.NewEncoder(w).Encode(loginResponse{Token: "tok-alice"})
	}))
	defer server.Close()

	client := NewClient(server.URL+"/files", time.Second, WithLoginURL(server.URL+"/login"))
	token, err := client.Authenticate(context.Background(), "alice", "pw")
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if token != "tok-alice" {
		t.Fatalf("unexpected token %q", token)
	}

	_, err = client.Authenticate(context.Background(), "alice", "wrong")
	if !errors.Is(err, services.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	var te *services.TransportError
	if !errors.As(err, &te) || te.Message != "Bad credentials" {
		t.Fatalf("expected intake message to survive, got %v", err)
	}
}

func TestAuthenticateWithoutLoginURL(t *testing.T) {
	_, err := NewClient("http://intake", time.Second).Authenticate(context.Background(), "a", "b")
	if !errors.Is(err, services.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}
