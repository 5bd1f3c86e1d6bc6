package report

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"despatch/internal/config"
	"despatch/internal/fileutil"
	"despatch/internal/logging"
	"despatch/internal/services"
)

const (
	// Heading is the first line of every report.
	Heading = "Despatch Report"

	fileStampLayout      = "02012006_150405"
	submittedStampLayout = "02/01/2006 @ 15:04:05"
	fileExt              = ".txt"
)

// Option customises a Writer.
type Option func(*Writer)

// WithClock overrides the time source used for the file name and heading.
func WithClock(now func() time.Time) Option {
	return func(w *Writer) {
		if now != nil {
			w.now = now
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Writer) {
		w.logger = logging.NewComponentLogger(logger, "report")
	}
}

// Writer renders reports for one site.
type Writer struct {
	prefix string
	site   string
	now    func() time.Time
	logger *slog.Logger
}

// New constructs a report writer for site.
func New(site config.Site, opts ...Option) *Writer {
	w := &Writer{
		prefix: site.ReportPrefix,
		site:   site.DisplayName(),
		now:    time.Now,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// FileName returns <prefix><user>.<ddMMyyyy_HHmmss>.txt. Path separators and
// control characters in user become underscores so the report always lands
// beside prefix.
func FileName(prefix, user string, at time.Time) string {
	return prefix + fileSafe(user) + "." + at.Format(fileStampLayout) + fileExt
}

func fileSafe(user string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == os.PathSeparator:
			return '_'
		case unicode.IsControl(r):
			return '_'
		}
		return r
	}, user)
}

// Render writes the report for ids and returns its path.
func (w *Writer) Render(ctx context.Context, ids []string, user string) (string, error) {
	at := w.now()
	path := FileName(w.prefix, user, at)
	content := Format(w.site, ids, user, at)
	if err := fileutil.WriteFileSync(path, []byte(content), 0o644); err != nil {
		return "", services.Wrap(services.ErrIO, "report", "write", path, err)
	}
	logging.WithContext(ctx, w.logger).Info("despatch report written",
		logging.Path(path),
		logging.Records(len(ids)),
		logging.String(logging.FieldEventType, "report_written"),
	)
	return path, nil
}

// Format renders the report body.
func Format(site string, ids []string, user string, at time.Time) string {
	var b strings.Builder
	b.WriteString(Heading)
	b.WriteString("\n\n")
	if site != "" {
		fmt.Fprintf(&b, "Site: %s\n", site)
	}
	fmt.Fprintf(&b, "Submitted on %s by %s\n", at.Format(submittedStampLayout), user)
	fmt.Fprintf(&b, "Records: %d\n\n", len(ids))

	tw := table.NewWriter()
	tw.SetStyle(table.StyleDefault)
	tw.AppendHeader(table.Row{"#", "Job ID"})
	for i, id := range ids {
		tw.AppendRow(table.Row{strconv.Itoa(i + 1), id})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
	})
	b.WriteString(tw.Render())
	b.WriteByte('\n')
	return b.String()
}
