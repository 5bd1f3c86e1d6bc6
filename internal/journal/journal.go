package journal

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"despatch/internal/fileutil"
	"despatch/internal/jobid"
	"despatch/internal/logging"
	"despatch/internal/services"
)

// ErrNotRelocked reports a write that reached the file but left the lock
// released afterwards. The mutation is durable; callers must treat the file
// as changed.
var ErrNotRelocked = errors.New("journal written but not re-locked")

// Journal is the durable per-site list of pending job records.
type Journal struct {
	path   string
	locker Locker
	logger *slog.Logger

	mu   sync.Mutex
	held bool
}

// Option customises a Journal.
type Option func(*Journal)

// WithLocker replaces the default read-only flag locker.
func WithLocker(l Locker) Option {
	return func(j *Journal) {
		if l != nil {
			j.locker = l
		}
	}
}

// WithLogger attaches a logger; nil keeps the no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(j *Journal) {
		j.logger = logging.NewComponentLogger(logger, "journal")
	}
}

// Open binds a journal to path. The file is not touched until Read.
func Open(path string, opts ...Option) *Journal {
	j := &Journal{
		path:   path,
		locker: NewReadOnlyLocker(path),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Path returns the journal file location.
func (j *Journal) Path() string { return j.path }

// Held reports whether this journal currently owns the lock.
func (j *Journal) Held() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.held
}

// Read returns the records in file order and leaves the journal locked by the
// caller. A missing file is created empty. When another session holds the
// journal the error matches services.ErrBusy.
func (j *Journal) Read() ([]jobid.Record, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	created, err := j.ensureFile()
	if err != nil {
		return nil, err
	}
	if !j.held {
		if err := j.locker.Acquire(); err != nil {
			return nil, err
		}
		j.held = true
		j.logger.Debug("journal locked", logging.Path(j.path), logging.Bool("created", created))
	}
	if created {
		return []jobid.Record{}, nil
	}

	records, err := j.readRecords()
	if err != nil {
		j.releaseLocked()
		return nil, err
	}
	return records, nil
}

// Snapshot re-reads the records without touching the lock. It is used to
// resynchronise a cached list after a failed mutation.
func (j *Journal) Snapshot() ([]jobid.Record, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.readRecords()
}

// Append writes one record line in append mode.
func (j *Journal) Append(rec jobid.Record) error {
	line, err := rec.MarshalText()
	if err != nil {
		return services.Wrap(services.ErrIO, "journal", "append", "encode record", err)
	}
	return j.mutate("append", func() error {
		file, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		if _, err := file.Write(line); err != nil {
			_ = file.Close()
			return err
		}
		if err := file.Sync(); err != nil {
			_ = file.Close()
			return err
		}
		return file.Close()
	})
}

// Remove rewrites the journal without any line whose id matches rec.ID.
func (j *Journal) Remove(rec jobid.Record) error {
	return j.mutate("remove", func() error {
		data, err := os.ReadFile(j.path)
		if err != nil {
			return err
		}
		var kept strings.Builder
		for _, line := range strings.SplitAfter(string(data), "\n") {
			if line == "" {
				continue
			}
			id, _, _ := strings.Cut(strings.TrimRight(line, "\r\n"), "\t")
			if id == rec.ID {
				continue
			}
			kept.WriteString(line)
			if !strings.HasSuffix(line, "\n") {
				kept.WriteByte('\n')
			}
		}
		return fileutil.ReplaceFile(j.path, []byte(kept.String()), 0o644)
	})
}

// Clear truncates the journal to zero records.
func (j *Journal) Clear() error {
	return j.mutate("clear", func() error {
		return os.Truncate(j.path, 0)
	})
}

// Unlock releases the journal if this session holds it. Safe to call from
// any shutdown path, any number of times.
func (j *Journal) Unlock() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.releaseLocked()
}

func (j *Journal) releaseLocked() error {
	if !j.held {
		return nil
	}
	if err := j.locker.Release(); err != nil {
		return err
	}
	j.held = false
	j.logger.Debug("journal unlocked", logging.Path(j.path))
	return nil
}

func (j *Journal) mutate(operation string, write func() error) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.held {
		return services.Wrap(services.ErrBusy, "journal", operation, "journal is not held by this session", nil)
	}
	if err := j.locker.Suspend(); err != nil {
		return err
	}
	writeErr := write()
	resumeErr := j.locker.Resume()
	if writeErr != nil {
		logging.WarnWithContext(j.logger, "journal write failed", "journal_write_failed",
			logging.Path(j.path),
			logging.String("operation", operation),
			logging.Error(writeErr),
			logging.String(logging.FieldErrorHint, "check permissions on the journal directory"),
			logging.String(logging.FieldImpact, "scan list unchanged"),
		)
		return services.Wrap(services.ErrIO, "journal", operation, j.path, errors.Join(writeErr, resumeErr))
	}
	if resumeErr != nil {
		logging.WarnWithContext(j.logger, "journal not re-locked", "journal_relock_failed",
			logging.Path(j.path),
			logging.String("operation", operation),
			logging.Error(resumeErr),
			logging.String(logging.FieldErrorHint, "restore the journal lock before another session opens the site"),
			logging.String(logging.FieldImpact, "change was written"),
		)
		return services.Wrap(services.ErrIO, "journal", operation, "written but not re-locked", errors.Join(ErrNotRelocked, resumeErr))
	}
	return nil
}

func (j *Journal) ensureFile() (bool, error) {
	_, err := os.Stat(j.path)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return false, services.Wrap(services.ErrIO, "journal", "stat", j.path, err)
	}
	if dir := filepath.Dir(j.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return false, services.Wrap(services.ErrIO, "journal", "create", dir, err)
		}
	}
	file, err := os.OpenFile(j.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, services.Wrap(services.ErrIO, "journal", "create", j.path, err)
	}
	if err := file.Close(); err != nil {
		return false, services.Wrap(services.ErrIO, "journal", "create", j.path, err)
	}
	return true, nil
}

func (j *Journal) readRecords() ([]jobid.Record, error) {
	file, err := os.Open(j.path)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "journal", "read", j.path, err)
	}
	defer file.Close()

	records := []jobid.Record{}
	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		rec, err := jobid.Parse(line)
		if err != nil {
			return nil, services.Wrap(services.ErrIO, "journal", "read", fmt.Sprintf("%s line %d", j.path, lineNo), err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, services.Wrap(services.ErrIO, "journal", "read", j.path, err)
	}
	return records, nil
}
