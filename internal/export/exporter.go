package export

import (
	"context"
	"log/slog"
	"time"

	"despatch/internal/config"
	"despatch/internal/fileutil"
	"despatch/internal/logging"
	"despatch/internal/services"
)

// Transport delivers one file to the remote intake.
type Transport interface {
	Deliver(ctx context.Context, path string) error
}

// Option customises an Exporter.
type Option func(*Exporter)

// WithClock overrides the time source used to stamp batches.
func WithClock(now func() time.Time) Option {
	return func(e *Exporter) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Exporter) {
		e.logger = logging.NewComponentLogger(logger, "export")
	}
}

// Exporter writes and delivers batches for one site.
type Exporter struct {
	payloadPrefix string
	markerPrefix  string
	transport     Transport
	now           func() time.Time
	logger        *slog.Logger
}

// New constructs an exporter for site.
func New(site config.Site, transport Transport, opts ...Option) *Exporter {
	e := &Exporter{
		payloadPrefix: site.PayloadPrefix,
		markerPrefix:  site.MarkerPrefix,
		transport:     transport,
		now:           time.Now,
		logger:        logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Send writes and delivers the payload, then the marker. The returned batch
// describes the files even when an error is returned.
func (e *Exporter) Send(ctx context.Context, ids []string, user string) (Batch, error) {
	batch := NewBatch(e.payloadPrefix, e.markerPrefix, ids, user, e.now())
	if len(batch.IDs) == 0 {
		return batch, services.Wrap(services.ErrEmptyBatch, "export", "send", "no job ids to send", nil)
	}
	logger := logging.WithContext(ctx, e.logger)

	if err := fileutil.WriteLines(batch.PayloadPath, batch.PayloadLines(), 0o644); err != nil {
		return batch, services.Wrap(services.ErrPayloadWrite, "export", "write payload", batch.PayloadPath, err)
	}
	logger.Debug("payload written", logging.Path(batch.PayloadPath), logging.Records(len(batch.IDs)))

	if err := e.transport.Deliver(ctx, batch.PayloadPath); err != nil {
		return batch, services.AsTransportError(batch.PayloadPath, err)
	}

	if err := fileutil.WriteLines(batch.MarkerPath, batch.MarkerLines(), 0o644); err != nil {
		return batch, services.Wrap(services.ErrMarkerWrite, "export", "write marker", batch.MarkerPath, err)
	}
	logger.Debug("marker written", logging.Path(batch.MarkerPath))

	if err := e.transport.Deliver(ctx, batch.MarkerPath); err != nil {
		return batch, services.AsTransportError(batch.MarkerPath, err)
	}

	logger.Info("batch delivered",
		logging.String("payload", batch.PayloadPath),
		logging.String("marker", batch.MarkerPath),
		logging.Records(len(batch.IDs)),
		logging.String("user", user),
		logging.String(logging.FieldEventType, "batch_delivered"),
	)
	return batch, nil
}
