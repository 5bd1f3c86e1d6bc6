package site

import (
	"context"
	"log/slog"
	"sync"

	"despatch/internal/config"
	"despatch/internal/logging"
	"despatch/internal/preflight"
	"despatch/internal/services"
)

// Selector tracks the currently selected site and guarantees at most one
// site lock is held by this process.
type Selector struct {
	cfg    *config.Config
	opts   []Option
	probe  func(dir string) bool
	logger *slog.Logger

	mu      sync.Mutex
	current *Session
}

// NewSelector builds a selector over cfg's sites. opts are applied to every
// Session it opens.
func NewSelector(cfg *config.Config, logger *slog.Logger, opts ...Option) *Selector {
	sessionOpts := []Option{WithLockMode(cfg.Journal.Lock), WithLogger(logger)}
	return &Selector{
		cfg:    cfg,
		opts:   append(sessionOpts, opts...),
		probe:  preflight.CanWriteSharedOutput,
		logger: logging.NewComponentLogger(logger, "selector"),
	}
}

// SetProbe replaces the shared output access probe.
func (s *Selector) SetProbe(probe func(dir string) bool) {
	if probe != nil {
		s.probe = probe
	}
}

// Select releases the current site, verifies the new site's shared output
// directory is writable, and opens its journal. Selecting the site that is
// already current re-reads its journal instead.
func (s *Selector) Select(ctx context.Context, name string) (*Session, error) {
	site, err := s.cfg.Site(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && s.current.Site().Name == site.Name {
		if err := s.current.Reload(); err != nil {
			return nil, err
		}
		return s.current, nil
	}
	if err := s.releaseLocked(); err != nil {
		return nil, err
	}

	logger := logging.WithContext(services.WithSite(ctx, site.Name), s.logger)
	if !s.probe(site.OutputDir) {
		logging.WarnWithContext(logger, "shared output not writable", "site_probe_failed",
			logging.String("dir", site.OutputDir),
			logging.String(logging.FieldErrorHint, "request read/write access to the shared output directory"),
			logging.String(logging.FieldImpact, "site cannot be selected"),
		)
		return nil, services.Wrap(services.ErrDirectoryUnwritable, "site", "select", site.OutputDir, nil)
	}

	session, err := Open(site, s.opts...)
	if err != nil {
		return nil, err
	}
	s.current = session
	return session, nil
}

// Current returns the selected session or nil.
func (s *Selector) Current() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Close releases the current site's lock.
func (s *Selector) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.releaseLocked()
}

func (s *Selector) releaseLocked() error {
	if s.current == nil {
		return nil
	}
	if err := s.current.Close(); err != nil {
		return err
	}
	s.current = nil
	return nil
}
