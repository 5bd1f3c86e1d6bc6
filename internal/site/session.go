package site

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"despatch/internal/config"
	"despatch/internal/jobid"
	"despatch/internal/journal"
	"despatch/internal/logging"
	"despatch/internal/services"
)

// Option customises Session construction.
type Option func(*options)

type options struct {
	lockMode string
	locker   func(path string) journal.Locker
	now      func() time.Time
	logger   *slog.Logger
}

// WithLockMode selects the journal locker (config.LockReadOnly or config.LockFlock).
func WithLockMode(mode string) Option {
	return func(o *options) { o.lockMode = mode }
}

// WithLocker replaces the locker chosen by the lock mode.
func WithLocker(newLocker func(path string) journal.Locker) Option {
	return func(o *options) { o.locker = newLocker }
}

// WithClock overrides the capture timestamp source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

func buildOptions(opts []Option) options {
	o := options{lockMode: config.LockReadOnly, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Session is the working state of one selected site.
type Session struct {
	site    config.Site
	journal *journal.Journal
	now     func() time.Time
	logger  *slog.Logger

	mu         sync.Mutex
	records    []jobid.Record
	submitting bool
}

// Open binds the site's journal and reads it, taking the lock. A journal held
// by another session fails with services.ErrBusy.
func Open(site config.Site, opts ...Option) (*Session, error) {
	o := buildOptions(opts)
	logger := logging.NewComponentLogger(o.logger, "site").With(logging.String(logging.FieldSite, site.Name))
	locker := journal.LockerFor(o.lockMode, site.JournalPath)
	if o.locker != nil {
		locker = o.locker(site.JournalPath)
	}
	j := journal.Open(site.JournalPath,
		journal.WithLocker(locker),
		journal.WithLogger(o.logger),
	)
	records, err := j.Read()
	if err != nil {
		return nil, err
	}
	logger.Info("site opened",
		logging.String("journal", site.JournalPath),
		logging.Records(len(records)),
		logging.String(logging.FieldEventType, "site_opened"),
	)
	return &Session{
		site:    site,
		journal: j,
		now:     o.now,
		logger:  logger,
		records: records,
	}, nil
}

// Site returns the resolved site configuration.
func (s *Session) Site() config.Site { return s.site }

// Add records a scanned id. Malformed ids fail with services.ErrInvalidJobID
// and ids already present fail with services.ErrDuplicate; neither reaches
// the journal.
func (s *Session) Add(id string) (jobid.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitting {
		return jobid.Record{}, services.Wrap(services.ErrSubmissionInFlight, "site", "add", id, nil)
	}
	rec, err := jobid.New(id, s.now())
	if err != nil {
		return jobid.Record{}, err
	}
	if jobid.Contains(s.records, rec.ID) {
		return jobid.Record{}, services.Wrap(services.ErrDuplicate, "site", "add", fmt.Sprintf("%s already scanned", rec.ID), nil)
	}
	if err := s.journal.Append(rec); err != nil {
		s.resync(err)
		return jobid.Record{}, err
	}
	s.records = append(s.records, rec)
	s.logger.Debug("job id added", logging.JobID(rec.ID))
	return rec, nil
}

// Remove deletes every record with id. It reports false without touching
// the journal when id is not present.
func (s *Session) Remove(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitting {
		return false, services.Wrap(services.ErrSubmissionInFlight, "site", "remove", id, nil)
	}
	if !jobid.Contains(s.records, id) {
		return false, nil
	}
	if err := s.journal.Remove(jobid.Record{ID: id}); err != nil {
		s.resync(err)
		return false, err
	}
	kept := s.records[:0]
	for _, rec := range s.records {
		if rec.ID != id {
			kept = append(kept, rec)
		}
	}
	s.records = kept
	s.logger.Debug("job id removed", logging.JobID(id))
	return true, nil
}

// Clear empties the journal and the cached list. It is allowed while a
// submission is in flight because the pipeline calls it on success.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.journal.Clear(); err != nil {
		s.resync(err)
		return err
	}
	s.records = nil
	return nil
}

// resync reloads the cached list from the file after a failed mutation, which
// may still have reached the file. Callers hold s.mu.
func (s *Session) resync(cause error) {
	records, err := s.journal.Snapshot()
	if err != nil {
		s.logger.Warn("journal resync failed",
			logging.Error(cause),
			logging.String("resync_error", err.Error()),
			logging.String(logging.FieldEventType, "journal_resync_failed"),
		)
		return
	}
	s.records = records
	if errors.Is(cause, journal.ErrNotRelocked) {
		s.logger.Debug("journal resynced after relock failure", logging.Records(len(records)))
	}
}

// Records returns a copy of the cached records in scan order.
func (s *Session) Records() []jobid.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]jobid.Record(nil), s.records...)
}

// IDs returns the cached ids in scan order.
func (s *Session) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return jobid.IDs(s.records)
}

// Len returns the number of cached records.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// BeginSubmission freezes the list and returns the ids to submit. An empty
// list fails with services.ErrEmptyBatch and leaves the session unfrozen.
func (s *Session) BeginSubmission() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitting {
		return nil, services.Wrap(services.ErrSubmissionInFlight, "site", "submit", s.site.Name, nil)
	}
	if len(s.records) == 0 {
		return nil, services.Wrap(services.ErrEmptyBatch, "site", "submit", "no job ids scanned", nil)
	}
	s.submitting = true
	return jobid.IDs(s.records), nil
}

// EndSubmission unfreezes the list.
func (s *Session) EndSubmission() {
	s.mu.Lock()
	s.submitting = false
	s.mu.Unlock()
}

// Submitting reports whether a submission is in flight.
func (s *Session) Submitting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitting
}

// Reload re-derives the cached list from the journal file.
func (s *Session) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.journal.Read()
	if err != nil {
		return err
	}
	s.records = records
	return nil
}

// Close releases the journal lock. It is safe to call more than once.
func (s *Session) Close() error {
	if err := s.journal.Unlock(); err != nil {
		return err
	}
	s.logger.Debug("site closed", logging.String(logging.FieldEventType, "site_closed"))
	return nil
}
