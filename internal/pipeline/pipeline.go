package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"despatch/internal/config"
	"despatch/internal/export"
	"despatch/internal/logging"
	"despatch/internal/retention"
	"despatch/internal/services"
)

// SessionProvider reports the authenticated operator.
type SessionProvider interface {
	IsAuthenticated() bool
	CurrentUserName() string
}

// Exporter writes and delivers a batch.
type Exporter interface {
	Send(ctx context.Context, ids []string, user string) (export.Batch, error)
}

// Journal is the part of the site journal the pipeline mutates.
type Journal interface {
	Clear() error
}

// Sweeper removes aged artifacts from the output directory.
type Sweeper interface {
	Run(ctx context.Context, dir string, retentionDays int) (retention.Result, error)
}

// Reporter renders the despatch report after a successful delivery.
type Reporter interface {
	Render(ctx context.Context, ids []string, user string) (string, error)
}

// Notifier announces terminal outcomes.
type Notifier interface {
	NotifySubmissionSucceeded(ctx context.Context, site, user string, records int) error
	NotifySubmissionFailed(ctx context.Context, site string, records int, err error) error
}

// Deps are the collaborators a Pipeline drives. Login, Sweeper, Reporter and
// Notifier are optional. Login runs in StateAwaitingAuth before Session is
// consulted; its failure fails the run like a missing session.
type Deps struct {
	Login    func(ctx context.Context) error
	Session  SessionProvider
	Exporter Exporter
	Journal  Journal
	Sweeper  Sweeper
	Reporter Reporter
	Notifier Notifier
}

// Event is the single terminal outcome of a run.
type Event struct {
	State   State
	BatchID string
	Site    string
	IDs     []string
	User    string
	Batch   export.Batch
	// Err is set when State is StateFailed.
	Err error
	// ClearErr is set when delivery succeeded but the journal could not be
	// cleared; State stays StateSuccess.
	ClearErr   error
	ReportPath string
	ReportErr  error
}

// Pipeline runs one submission.
type Pipeline struct {
	site   config.Site
	deps   Deps
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	history []State
	started bool

	background sync.WaitGroup
}

// New constructs a Pipeline for site.
func New(site config.Site, deps Deps, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		site:    site,
		deps:    deps,
		logger:  logging.NewComponentLogger(logger, "pipeline"),
		state:   StateIdle,
		history: []State{StateIdle},
	}
}

// State returns the current state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// History returns every state entered, in order.
func (p *Pipeline) History() []State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]State(nil), p.history...)
}

// Run executes the submission synchronously. The error is non-nil only when
// the batch is rejected before the machine starts (services.ErrEmptyBatch or
// reuse of a spent pipeline); every other outcome is reported in the Event.
func (p *Pipeline) Run(ctx context.Context, ids []string) (Event, error) {
	if err := p.claim(ids); err != nil {
		return Event{}, err
	}
	return p.run(ctx, append([]string(nil), ids...)), nil
}

// Start runs the submission in the background. The returned channel
// receives exactly one Event and is then closed.
func (p *Pipeline) Start(ctx context.Context, ids []string) (<-chan Event, error) {
	if err := p.claim(ids); err != nil {
		return nil, err
	}
	ids = append([]string(nil), ids...)
	events := make(chan Event, 1)
	go func() {
		defer close(events)
		events <- p.run(ctx, ids)
	}()
	return events, nil
}

// Wait blocks until the background retention sweep and success notification
// have finished.
func (p *Pipeline) Wait() {
	p.background.Wait()
}

func (p *Pipeline) claim(ids []string) error {
	if len(ids) == 0 {
		return services.Wrap(services.ErrEmptyBatch, "pipeline", "submit", "no job ids to submit", nil)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return services.Wrap(services.ErrSubmissionInFlight, "pipeline", "submit", "pipeline already used", nil)
	}
	p.started = true
	return nil
}

func (p *Pipeline) run(ctx context.Context, ids []string) Event {
	batchID := uuid.NewString()
	ctx = services.WithBatchID(services.WithSite(ctx, p.site.Name), batchID)
	logger := logging.WithContext(ctx, p.logger)
	event := Event{BatchID: batchID, Site: p.site.Name, IDs: ids}

	p.transition(logger, StateAwaitingAuth)
	if p.deps.Login != nil {
		if err := p.deps.Login(ctx); err != nil {
			if !errors.Is(err, services.ErrNotAuthenticated) {
				err = services.Wrap(services.ErrNotAuthenticated, "pipeline", "authenticate", "login failed", err)
			}
			return p.fail(ctx, logger, event, err)
		}
	}
	if p.deps.Session == nil || !p.deps.Session.IsAuthenticated() {
		return p.fail(ctx, logger, event, services.Wrap(services.ErrNotAuthenticated, "pipeline", "authenticate", "operator is not logged in", nil))
	}
	event.User = p.deps.Session.CurrentUserName()

	p.transition(logger, StateExporting)
	batch, err := p.deps.Exporter.Send(ctx, ids, event.User)
	event.Batch = batch
	if err != nil {
		return p.fail(ctx, logger, event, err)
	}

	if err := p.deps.Journal.Clear(); err != nil {
		event.ClearErr = err
		logging.ErrorWithContext(logger, "journal clear failed after delivery", "journal_clear_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.String(logging.FieldErrorHint, "files were delivered; clear the site list manually before scanning again"),
		)
	}

	if p.deps.Sweeper != nil {
		p.background.Add(1)
		go func() {
			defer p.background.Done()
			// Sweep failures are logged by the sweeper and never change the outcome.
			_, _ = p.deps.Sweeper.Run(context.WithoutCancel(ctx), p.site.OutputDir, p.site.RetentionDays)
		}()
	}

	if p.deps.Reporter != nil {
		path, err := p.deps.Reporter.Render(ctx, ids, event.User)
		event.ReportPath = path
		if err != nil {
			event.ReportErr = err
			logging.WarnWithContext(logger, "despatch report not written", "report_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the shared output directory"),
				logging.String(logging.FieldImpact, "submission succeeded without a report"),
			)
		}
	}

	p.transition(logger, StateSuccess)
	event.State = StateSuccess
	logger.Info("submission succeeded",
		logging.Records(len(ids)),
		logging.String("user", event.User),
		logging.String(logging.FieldEventType, "submission_succeeded"),
	)
	if p.deps.Notifier != nil {
		p.background.Add(1)
		go func(user string) {
			defer p.background.Done()
			p.notified(logger, p.deps.Notifier.NotifySubmissionSucceeded(context.WithoutCancel(ctx), p.site.Name, user, len(ids)))
		}(event.User)
	}
	return event
}

func (p *Pipeline) fail(ctx context.Context, logger *slog.Logger, event Event, err error) Event {
	p.transition(logger, StateFailed)
	event.State = StateFailed
	event.Err = err
	logging.ErrorWithContext(logger, "submission failed", "submission_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorKind, services.Kind(err)),
		logging.Records(len(event.IDs)),
		logging.String(logging.FieldErrorHint, "scan list kept; fix the cause and resubmit"),
	)
	if p.deps.Notifier != nil {
		p.notified(logger, p.deps.Notifier.NotifySubmissionFailed(ctx, p.site.Name, len(event.IDs), err))
	}
	return event
}

func (p *Pipeline) notified(logger *slog.Logger, err error) {
	if err == nil {
		return
	}
	logging.WarnWithContext(logger, "submission notification failed", "notification_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		logging.String(logging.FieldImpact, "outcome not announced"),
	)
}

func (p *Pipeline) transition(logger *slog.Logger, next State) {
	p.mu.Lock()
	prev := p.state
	p.state = next
	p.history = append(p.history, next)
	p.mu.Unlock()
	logger.Debug("submission state changed",
		logging.String("from", prev.String()),
		logging.String("to", next.String()),
	)
}
