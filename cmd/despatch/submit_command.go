package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"despatch/internal/auth"
	"despatch/internal/pipeline"
	"despatch/internal/services"
	"despatch/internal/site"
)

const passwordEnv = "DESPATCH_PASSWORD"

// lineReader returns the next input line without its terminator, or io.EOF.
type lineReader func() (string, error)

func newLineReader(r io.Reader) lineReader {
	br := bufio.NewReader(r)
	return func() (string, error) {
		line, err := br.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) && line != "" {
				return strings.TrimRight(line, "\r\n"), nil
			}
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
}

type submissionView struct {
	State       string    `json:"state"`
	BatchID     string    `json:"batch_id"`
	Site        string    `json:"site"`
	User        string    `json:"user,omitempty"`
	Records     int       `json:"records"`
	SubmittedAt time.Time `json:"submitted_at,omitzero"`
	Payload     string    `json:"payload,omitempty"`
	Marker      string    `json:"marker,omitempty"`
	Report      string    `json:"report,omitempty"`
	Error       string    `json:"error,omitempty"`
	ErrorKind   string    `json:"error_kind,omitempty"`
	ClearError  string    `json:"clear_error,omitempty"`
	ReportError string    `json:"report_error,omitempty"`
}

func newSubmissionView(event pipeline.Event) submissionView {
	view := submissionView{
		State:       event.State.String(),
		BatchID:     event.BatchID,
		Site:        event.Site,
		User:        event.User,
		Records:     len(event.IDs),
		SubmittedAt: event.Batch.StampedAt,
		Payload:     event.Batch.PayloadPath,
		Marker:      event.Batch.MarkerPath,
		Report:      event.ReportPath,
	}
	if event.Err != nil {
		view.Error = event.Err.Error()
		view.ErrorKind = services.Kind(event.Err)
	}
	if event.ClearErr != nil {
		view.ClearError = event.ClearErr.Error()
	}
	if event.ReportErr != nil {
		view.ReportError = event.ReportErr.Error()
	}
	return view
}

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var siteName string
	var user string

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a site's scan list to the intake",
		Long: "Submit writes the payload and marker files for the site's pending job ids, delivers\n" +
			"them through the configured transport, and clears the list once both are delivered.\n" +
			"For the HTTP intake the password is read from " + passwordEnv + " or prompted for.",
		RunE: func(cmd *cobra.Command, args []string) error {
			selector, session, err := ctx.selectSite(cmd.Context(), siteName)
			if err != nil {
				return err
			}
			defer selector.Close()

			event, err := ctx.submitBatch(cmd, session, user, newLineReader(cmd.InOrStdin()))
			if err != nil {
				return err
			}
			return reportSubmission(cmd, ctx.jsonOutput(), event)
		},
	}

	cmd.Flags().StringVarP(&siteName, "site", "s", "", "Site name")
	cmd.Flags().StringVarP(&user, "user", "u", "", "Operator user name")
	return cmd
}

// submitBatch freezes the session's list and runs one pipeline to its
// terminal event. The operator logs in inside the pipeline, so a refused
// login is a failed event. Background work finishes before it returns.
func (c *commandContext) submitBatch(cmd *cobra.Command, session *site.Session, user string, readLine lineReader) (pipeline.Event, error) {
	ids, err := session.BeginSubmission()
	if err != nil {
		return pipeline.Event{}, err
	}
	defer session.EndSubmission()

	operator := auth.NewSession()
	transport, authn, err := c.collaborators(operator)
	if err != nil {
		return pipeline.Event{}, err
	}
	var password string
	if _, local := authn.(auth.Local); !local {
		password, err = readPassword(cmd, readLine)
		if err != nil {
			return pipeline.Event{}, err
		}
	}
	login := func(ctx context.Context) error {
		return operator.Login(ctx, authn, user, password)
	}

	p, err := c.newPipeline(session, operator, transport, login)
	if err != nil {
		return pipeline.Event{}, err
	}
	events, err := p.Start(cmd.Context(), ids)
	if err != nil {
		return pipeline.Event{}, err
	}
	event := <-events
	p.Wait()
	return event, nil
}

func readPassword(cmd *cobra.Command, readLine lineReader) (string, error) {
	if password, ok := os.LookupEnv(passwordEnv); ok {
		return password, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	if file, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(file.Fd())) {
		password, err := term.ReadPassword(int(file.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(password), nil
	}
	password, err := readLine()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return password, nil
}

// reportSubmission prints the terminal event. A failed submission is
// returned as an error so the process exits non-zero.
func reportSubmission(cmd *cobra.Command, asJSON bool, event pipeline.Event) error {
	if asJSON {
		if err := writeJSON(cmd, newSubmissionView(event)); err != nil {
			return err
		}
		return event.Err
	}

	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)
	if event.State == pipeline.StateFailed {
		printLines(out, errorLines("Submission", event.Err, colorize))
		fmt.Fprintln(out, renderStatusLine("Scan list", statusInfo, fmt.Sprintf("kept (%d job ids)", len(event.IDs)), colorize))
		return event.Err
	}

	lines := []string{
		renderStatusLine("Submission", statusOK, fmt.Sprintf("%d job id(s) by %s", len(event.IDs), event.User), colorize),
		renderStatusLine("Payload", statusInfo, event.Batch.PayloadPath, colorize),
		renderStatusLine("Marker", statusInfo, event.Batch.MarkerPath, colorize),
	}
	if event.ClearErr != nil {
		lines = append(lines, renderStatusLine("Scan list", statusWarn, "delivered but not cleared; remove the ids manually", colorize))
	} else {
		lines = append(lines, renderStatusLine("Scan list", statusOK, "cleared", colorize))
	}
	switch {
	case event.ReportErr != nil:
		lines = append(lines, renderStatusLine("Report", statusWarn, event.ReportErr.Error(), colorize))
	case event.ReportPath != "":
		lines = append(lines, renderStatusLine("Report", statusInfo, event.ReportPath, colorize))
	}
	printLines(out, lines)
	return nil
}
