package auth

import (
	"context"
	"strings"
	"sync"

	"despatch/internal/services"
)

// Authenticator checks credentials and returns a transport token.
type Authenticator interface {
	Authenticate(ctx context.Context, user, password string) (string, error)
}

// Session is the authenticated-session provider. It is safe for concurrent
// use because the pipeline reads it from a background goroutine.
type Session struct {
	mu    sync.RWMutex
	user  string
	token string
}

// NewSession returns an unauthenticated session.
func NewSession() *Session {
	return &Session{}
}

// Login authenticates user and stores the resulting token. A failed login
// leaves any previous session untouched.
func (s *Session) Login(ctx context.Context, authn Authenticator, user, password string) error {
	user = strings.TrimSpace(user)
	if user == "" {
		return services.Wrap(services.ErrNotAuthenticated, "auth", "login", "user name is required", nil)
	}
	if authn == nil {
		return services.Wrap(services.ErrNotAuthenticated, "auth", "login", "no authenticator configured", nil)
	}
	token, err := authn.Authenticate(ctx, user, password)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.user = user
	s.token = token
	s.mu.Unlock()
	return nil
}

// Logout forgets the current user and token.
func (s *Session) Logout() {
	s.mu.Lock()
	s.user = ""
	s.token = ""
	s.mu.Unlock()
}

// IsAuthenticated reports whether a user is logged in.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user != ""
}

// CurrentUserName returns the logged-in user, or "" when logged out.
func (s *Session) CurrentUserName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Token returns the transport token for the current user.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Local trusts the workstation login and issues no token. Any non-empty
// user name is accepted.
type Local struct{}

// Authenticate implements Authenticator.
func (Local) Authenticate(_ context.Context, user, _ string) (string, error) {
	if strings.TrimSpace(user) == "" {
		return "", services.Wrap(services.ErrNotAuthenticated, "auth", "login", "user name is required", nil)
	}
	return "", nil
}
