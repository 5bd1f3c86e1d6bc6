package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"despatch/internal/services"
	"despatch/internal/site"
)

const scanHelp = "Scan or type job ids. Commands: :site NAME, :list, :remove ID, :submit, :quit"

func newScanCommand(ctx *commandContext) *cobra.Command {
	var siteName string
	var user string

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Interactively record scanned job ids",
		Long: "Scan reads one job id per line, as sent by a keyboard-wedge barcode scanner,\n" +
			"and records each in the selected site's journal. " + scanHelp + ".",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			if strings.TrimSpace(siteName) == "" {
				return fmt.Errorf("--site is required (one of: %s)", strings.Join(cfg.SiteNames(), ", "))
			}

			selector := site.NewSelector(cfg, logger)
			defer selector.Close()
			if _, err := selector.Select(cmd.Context(), siteName); err != nil {
				return err
			}

			loop := &scanLoop{
				ctx:      ctx,
				cmd:      cmd,
				selector: selector,
				user:     user,
				readLine: newLineReader(cmd.InOrStdin()),
				out:      cmd.OutOrStdout(),
			}
			loop.colorize = shouldColorize(loop.out)
			return loop.run()
		},
	}

	cmd.Flags().StringVarP(&siteName, "site", "s", "", "Site name")
	cmd.Flags().StringVarP(&user, "user", "u", "", "Operator user name used by :submit")
	return cmd
}

type scanLoop struct {
	ctx      *commandContext
	cmd      *cobra.Command
	selector *site.Selector
	user     string
	readLine lineReader
	out      io.Writer
	colorize bool
}

func (l *scanLoop) run() error {
	fmt.Fprintln(l.out, scanHelp)
	l.prompt()
	for {
		if err := l.cmd.Context().Err(); err != nil {
			return err
		}
		line, err := l.readLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read input: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			l.prompt()
			continue
		}
		quit, err := l.handle(line)
		if err != nil {
			return err
		}
		if quit {
			return nil
		}
		l.prompt()
	}
}

// handle processes one input line. Only errors that leave the session
// unusable are returned; operator mistakes are printed and the loop goes on.
func (l *scanLoop) handle(line string) (bool, error) {
	session := l.selector.Current()
	if !strings.HasPrefix(line, ":") {
		l.add(session, line)
		return false, nil
	}

	command, arg, _ := strings.Cut(strings.TrimPrefix(line, ":"), " ")
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(command) {
	case "quit", "q":
		return true, nil
	case "list":
		l.list(session)
	case "site":
		next, err := l.selector.Select(l.cmd.Context(), arg)
		if err != nil {
			printLines(l.out, errorLines("Site", err, l.colorize))
			if errors.Is(err, services.ErrUnknownSite) {
				return false, nil
			}
			// The previous site has been released; without a site there is
			// nothing left to scan into.
			if l.selector.Current() == nil {
				return false, err
			}
			return false, nil
		}
		fmt.Fprintln(l.out, renderStatusLine("Site", statusOK, fmt.Sprintf("%s (%d pending)", next.Site().DisplayName(), next.Len()), l.colorize))
	case "remove", "rm":
		removed, err := session.Remove(arg)
		switch {
		case err != nil:
			printLines(l.out, errorLines("Remove", err, l.colorize))
		case !removed:
			fmt.Fprintln(l.out, renderStatusLine(arg, statusWarn, "not in list", l.colorize))
		default:
			fmt.Fprintln(l.out, renderStatusLine(arg, statusOK, "removed", l.colorize))
		}
	case "submit":
		event, err := l.ctx.submitBatch(l.cmd, session, l.user, l.readLine)
		if err != nil {
			printLines(l.out, errorLines("Submission", err, l.colorize))
			return false, nil
		}
		// Failures are already printed and the list is kept for a retry.
		_ = reportSubmission(l.cmd, false, event)
	default:
		fmt.Fprintln(l.out, renderStatusLine(line, statusWarn, "unknown command; "+scanHelp, l.colorize))
	}
	return false, nil
}

func (l *scanLoop) add(session *site.Session, id string) {
	_, err := session.Add(id)
	switch {
	case err == nil:
		fmt.Fprintln(l.out, renderStatusLine(id, statusOK, fmt.Sprintf("added (%d pending)", session.Len()), l.colorize))
	case errors.Is(err, services.ErrDuplicate):
		fmt.Fprintln(l.out, renderStatusLine(id, statusWarn, "already in list", l.colorize))
	case errors.Is(err, services.ErrInvalidJobID):
		fmt.Fprintln(l.out, renderStatusLine(id, statusWarn, "not a 10 digit job id", l.colorize))
	default:
		printLines(l.out, errorLines(id, err, l.colorize))
	}
}

func (l *scanLoop) list(session *site.Session) {
	records := session.Records()
	if len(records) == 0 {
		fmt.Fprintf(l.out, "No job ids pending for %s\n", session.Site().DisplayName())
		return
	}
	fmt.Fprintln(l.out, recordTable(records, time.Now()))
}

func (l *scanLoop) prompt() {
	if session := l.selector.Current(); session != nil {
		fmt.Fprintf(l.out, "%s> ", session.Site().DisplayName())
	}
}
