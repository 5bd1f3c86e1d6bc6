package retention

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"despatch/internal/logging"
	"despatch/internal/services"
)

// Extensions lists the artifact extensions eligible for sweeping.
var Extensions = []string{".DAT", ".EOT", ".TXT", ".PDF"}

// Result contains the outcome of a sweep.
type Result struct {
	Removed []string
	Errors  []DeleteError
}

// DeleteError pairs a file path with its delete error.
type DeleteError struct {
	Path  string
	Error error
}

// Option customises a Sweeper.
type Option func(*Sweeper)

// WithClock overrides the time source used for the cutoff.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCreationTime overrides how a file's creation time is determined.
func WithCreationTime(fn func(path string, info fs.FileInfo) time.Time) Option {
	return func(s *Sweeper) {
		if fn != nil {
			s.creationTime = fn
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) {
		s.logger = logging.NewComponentLogger(logger, "retention")
	}
}

// Sweeper removes aged artifacts.
type Sweeper struct {
	now          func() time.Time
	creationTime func(path string, info fs.FileInfo) time.Time
	logger       *slog.Logger
}

// New constructs a Sweeper using the system clock and filesystem birth times.
func New(opts ...Option) *Sweeper {
	s := &Sweeper{
		now:          time.Now,
		creationTime: CreationTime,
		logger:       logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run deletes every eligible file in dir created more than retentionDays*24h
// ago. The returned error is non-nil only when the sweep could not start.
func (s *Sweeper) Run(ctx context.Context, dir string, retentionDays int) (Result, error) {
	result := Result{}
	logger := logging.WithContext(ctx, s.logger)

	if err := checkDirectory(dir); err != nil {
		logging.WarnWithContext(logger, "retention sweep skipped", "retention_sweep_skipped",
			logging.String("dir", dir),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the shared output directory exists and is writable"),
			logging.String(logging.FieldImpact, "aged artifacts were not removed"),
		)
		return result, err
	}
	if retentionDays < 0 {
		retentionDays = 0
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return result, services.Wrap(services.ErrIO, "retention", "list", dir, err)
	}

	now := s.now()
	cutoff := now.Add(-time.Duration(retentionDays) * 24 * time.Hour)

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if entry.IsDir() || !eligible(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, DeleteError{Path: path, Error: err})
			continue
		}
		created := s.creationTime(path, info)
		if !created.Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			result.Errors = append(result.Errors, DeleteError{Path: path, Error: err})
			logging.WarnWithContext(logger, "failed to remove aged artifact", "retention_delete_failed",
				logging.Path(path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on the shared output directory"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, path)
		logger.Info("removed aged artifact",
			logging.Path(path),
			logging.String("age", humanize.RelTime(created, now, "old", "from now")),
			logging.String(logging.FieldEventType, "retention_delete"),
		)
	}

	logger.Info("retention sweep complete",
		logging.String("dir", dir),
		logging.Int("removed", len(result.Removed)),
		logging.Int("failed", len(result.Errors)),
		logging.Int("retention_days", retentionDays),
		logging.String(logging.FieldEventType, "retention_sweep"),
	)
	return result, nil
}

func eligible(name string) bool {
	ext := filepath.Ext(name)
	for _, want := range Extensions {
		if strings.EqualFold(ext, want) {
			return true
		}
	}
	return false
}

func checkDirectory(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return services.Wrap(services.ErrDirectoryUnwritable, "retention", "check", "no directory configured", nil)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return services.Wrap(services.ErrDirectoryUnwritable, "retention", "check", dir, err)
	}
	if !info.IsDir() {
		return services.Wrap(services.ErrDirectoryUnwritable, "retention", "check", fmt.Sprintf("%s is not a directory", dir), nil)
	}
	if err := unix.Access(dir, unix.W_OK|unix.X_OK); err != nil {
		return services.Wrap(services.ErrDirectoryUnwritable, "retention", "check", dir, err)
	}
	return nil
}
