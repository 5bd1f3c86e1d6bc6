package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"despatch/internal/services"
	"despatch/internal/testsupport"
)

func TestSubmitHotFolder(t *testing.T) {
	env := setupCLITestEnv(t)
	journalPath := env.journalPath(t, "TY FELIN")

	if _, _, err := runCLI(t, env, "", "add", "--site", "TY FELIN", "1234567890", "0987654321"); err != nil {
		t.Fatalf("add: %v", err)
	}

	out, _, err := runCLI(t, env, "", "--json", "submit", "--site", "TY FELIN", "--user", "alice")
	if err != nil {
		t.Fatalf("submit: %v\n%s", err, out)
	}
	var view submissionView
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode submission: %v\n%s", err, out)
	}
	if view.State != "success" || view.User != "alice" || view.Records != 2 {
		t.Fatalf("unexpected submission: %+v", view)
	}

	hot := env.cfg.Transport.HotFolder
	dat := globBase(t, hot, "DESPATCH_TYF_*.DAT")
	eot := globBase(t, hot, "DESPATCH_TYF_*.EOT")
	if len(dat) != 1 || len(eot) != 1 {
		t.Fatalf("expected one payload and one marker in hot folder, got %v %v", dat, eot)
	}
	if strings.TrimSuffix(dat[0], ".DAT") != strings.TrimSuffix(eot[0], ".EOT") {
		t.Fatalf("payload and marker stamps differ: %s %s", dat[0], eot[0])
	}
	payload, err := os.ReadFile(filepath.Join(hot, dat[0]))
	if err != nil {
		t.Fatalf("read payload: %v", err)
	}
	if string(payload) != "1234567890\n0987654321\n" {
		t.Fatalf("unexpected payload %q", payload)
	}
	marker, err := os.ReadFile(filepath.Join(hot, eot[0]))
	if err != nil {
		t.Fatalf("read marker: %v", err)
	}
	requireContains(t, string(marker), "RUNVOL=2\n")
	requireContains(t, string(marker), "USER=alice\n")

	if lines := testsupport.ReadJournal(t, journalPath); len(lines) != 0 {
		t.Fatalf("expected journal cleared, got %v", lines)
	}
	if reports := globBase(t, env.cfg.Paths.OutputDir, "REPORT_TYF_alice.*.txt"); len(reports) != 1 {
		t.Fatalf("expected one report, got %v", reports)
	}
	requireUnlocked(t, journalPath)
}

func TestSubmitEmptyBatch(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, env, "", "submit", "--site", "BRP", "--user", "alice")
	if !errors.Is(err, services.ErrEmptyBatch) {
		t.Fatalf("expected ErrEmptyBatch, got %v", err)
	}
	if files := globBase(t, env.cfg.Paths.OutputDir, "*.DAT"); len(files) != 0 {
		t.Fatalf("expected no payload written, got %v", files)
	}
}

func TestSubmitRequiresUser(t *testing.T) {
	var mu sync.Mutex
	var messages []string
	ntfy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		messages = append(messages, string(body))
		mu.Unlock()
	}))
	defer ntfy.Close()

	env := setupCLITestEnv(t, testsupport.WithNtfyTopic(ntfy.URL))
	if _, _, err := runCLI(t, env, "", "add", "--site", "BRP", "1234567890"); err != nil {
		t.Fatalf("add: %v", err)
	}

	out, _, err := runCLI(t, env, "", "--json", "submit", "--site", "BRP")
	if !errors.Is(err, services.ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
	var view struct {
		State     string `json:"state"`
		ErrorKind string `json:"error_kind"`
		Records   int    `json:"records"`
	}
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode submission: %v\n%s", err, out)
	}
	if view.State != "failed" || view.ErrorKind != "not_authenticated" {
		t.Fatalf("unexpected submission view %+v", view)
	}
	if view.Records != 1 {
		t.Fatalf("expected one pending id in the view, got %d", view.Records)
	}

	mu.Lock()
	if len(messages) != 1 || !strings.HasPrefix(messages[0], "Brp: submission of 1 job id(s) failed") {
		t.Fatalf("expected one failure notification, got %q", messages)
	}
	mu.Unlock()

	if lines := testsupport.ReadJournal(t, env.journalPath(t, "BRP")); len(lines) != 1 {
		t.Fatalf("expected journal kept, got %v", lines)
	}
	requireUnlocked(t, env.journalPath(t, "BRP"))
}

type fakeIntake struct {
	mu       sync.Mutex
	uploads  []string
	auth     []string
	password string
	reject   bool
}

func (f *fakeIntake) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode login: %v", err)
		}
		f.mu.Lock()
		f.password = body.Password
		f.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"token":"tok-123"}`)
	})
	mux.HandleFunc("/intake", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.auth = append(f.auth, r.Header.Get("Authorization"))
		if f.reject {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = io.WriteString(w, `{"code":"RPD-17","message":"batch rejected","action":"Contact the print room"}`)
			return
		}
		_, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("read upload: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.uploads = append(f.uploads, header.Filename)
		w.WriteHeader(http.StatusCreated)
	})
	return mux
}

func TestSubmitHTTPIntake(t *testing.T) {
	intake := &fakeIntake{}
	srv := httptest.NewServer(intake.handler(t))
	defer srv.Close()

	env := setupCLITestEnv(t, testsupport.WithHTTPIntake(srv.URL+"/intake", srv.URL+"/login"))
	if _, _, err := runCLI(t, env, "", "add", "--site", "MORRISTON", "1234567890"); err != nil {
		t.Fatalf("add: %v", err)
	}

	out, stderr, err := runCLI(t, env, "s3cret\n", "submit", "--site", "MORRISTON", "--user", "bob")
	if err != nil {
		t.Fatalf("submit: %v\n%s", err, out)
	}
	requireContains(t, stderr, "Password:")
	requireContains(t, out, "1 job id(s) by bob")

	intake.mu.Lock()
	defer intake.mu.Unlock()
	if intake.password != "s3cret" {
		t.Fatalf("expected prompted password, got %q", intake.password)
	}
	if len(intake.uploads) != 2 ||
		!strings.HasSuffix(intake.uploads[0], ".DAT") || !strings.HasSuffix(intake.uploads[1], ".EOT") {
		t.Fatalf("expected payload then marker, got %v", intake.uploads)
	}
	for _, header := range intake.auth {
		if header != "Bearer tok-123" {
			t.Fatalf("unexpected authorization header %q", header)
		}
	}
	if lines := testsupport.ReadJournal(t, env.journalPath(t, "MORRISTON")); len(lines) != 0 {
		t.Fatalf("expected journal cleared, got %v", lines)
	}
}

func TestSubmitHTTPIntakeRejected(t *testing.T) {
	intake := &fakeIntake{reject: true}
	srv := httptest.NewServer(intake.handler(t))
	defer srv.Close()

	env := setupCLITestEnv(t, testsupport.WithHTTPIntake(srv.URL+"/intake", srv.URL+"/login"))
	t.Setenv(passwordEnv, "from-env")
	if _, _, err := runCLI(t, env, "", "add", "--site", "MORRISTON", "1234567890"); err != nil {
		t.Fatalf("add: %v", err)
	}

	out, _, err := runCLI(t, env, "", "submit", "--site", "MORRISTON", "--user", "bob")
	if !errors.Is(err, services.ErrTransport) {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	requireContains(t, out, "RPD-17")
	requireContains(t, out, "batch rejected")
	requireContains(t, out, "Contact the print room")
	requireContains(t, out, "kept (1 job ids)")

	if lines := testsupport.ReadJournal(t, env.journalPath(t, "MORRISTON")); len(lines) != 1 {
		t.Fatalf("expected journal kept, got %v", lines)
	}
	requireUnlocked(t, env.journalPath(t, "MORRISTON"))
}

func TestSubmitPublishesNotification(t *testing.T) {
	var mu sync.Mutex
	var messages []string
	ntfy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		messages = append(messages, string(body))
		mu.Unlock()
	}))
	defer ntfy.Close()

	env := setupCLITestEnv(t, testsupport.WithNtfyTopic(ntfy.URL))
	if _, _, err := runCLI(t, env, "", "add", "--site", "BRP", "1234567890"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, _, err := runCLI(t, env, "", "submit", "--site", "BRP", "--user", "dave"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(messages) != 1 || messages[0] != "Brp: 1 job id(s) submitted by dave" {
		t.Fatalf("unexpected notifications %q", messages)
	}
}
