package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"despatch/internal/jobid"
	"despatch/internal/services"
)

type recordView struct {
	ID        string    `json:"id"`
	ScannedAt time.Time `json:"scanned_at"`
}

type listView struct {
	Site    string       `json:"site"`
	Count   int          `json:"count"`
	Records []recordView `json:"records"`
}

type addOutcome struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func recordViews(records []jobid.Record) []recordView {
	views := make([]recordView, 0, len(records))
	for _, rec := range records {
		views = append(views, recordView{ID: rec.ID, ScannedAt: rec.CapturedAt})
	}
	return views
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var siteName string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the pending scan list for a site",
		RunE: func(cmd *cobra.Command, args []string) error {
			selector, session, err := ctx.selectSite(cmd.Context(), siteName)
			if err != nil {
				return err
			}
			defer selector.Close()

			records := session.Records()
			if ctx.jsonOutput() {
				return writeJSON(cmd, listView{
					Site:    session.Site().Name,
					Count:   len(records),
					Records: recordViews(records),
				})
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintf(out, "No job ids pending for %s\n", session.Site().DisplayName())
				return nil
			}
			fmt.Fprintln(out, recordTable(records, time.Now()))
			fmt.Fprintf(out, "%d job id(s) pending for %s\n", len(records), session.Site().DisplayName())
			return nil
		},
	}

	cmd.Flags().StringVarP(&siteName, "site", "s", "", "Site name")
	return cmd
}

func newAddCommand(ctx *commandContext) *cobra.Command {
	var siteName string

	cmd := &cobra.Command{
		Use:   "add ID...",
		Short: "Record scanned job ids for a site",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			selector, session, err := ctx.selectSite(cmd.Context(), siteName)
			if err != nil {
				return err
			}
			defer selector.Close()

			outcomes := make([]addOutcome, 0, len(args))
			var fatal error
			for _, id := range args {
				outcome := addOutcome{ID: id, Status: "added"}
				if _, err := session.Add(id); err != nil {
					outcome.Status = services.Kind(err)
					outcome.Error = err.Error()
					if !errors.Is(err, services.ErrDuplicate) && !errors.Is(err, services.ErrInvalidJobID) {
						fatal = err
					}
				}
				outcomes = append(outcomes, outcome)
				if fatal != nil {
					break
				}
			}

			if ctx.jsonOutput() {
				if err := writeJSON(cmd, outcomes); err != nil {
					return err
				}
				return fatal
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, outcome := range outcomes {
				switch outcome.Status {
				case "added":
					fmt.Fprintln(out, renderStatusLine(outcome.ID, statusOK, "added", colorize))
				case "duplicate":
					fmt.Fprintln(out, renderStatusLine(outcome.ID, statusWarn, "already in list", colorize))
				case "invalid_job_id":
					fmt.Fprintln(out, renderStatusLine(outcome.ID, statusWarn, "not a 10 digit job id", colorize))
				default:
					fmt.Fprintln(out, renderStatusLine(outcome.ID, statusError, outcome.Status, colorize))
				}
			}
			if fatal != nil {
				return fatal
			}
			fmt.Fprintf(out, "%d job id(s) pending for %s\n", session.Len(), session.Site().DisplayName())
			return nil
		},
	}

	cmd.Flags().StringVarP(&siteName, "site", "s", "", "Site name")
	return cmd
}

func newRemoveCommand(ctx *commandContext) *cobra.Command {
	var siteName string

	cmd := &cobra.Command{
		Use:   "remove ID",
		Short: "Delete a job id from a site's scan list",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			selector, session, err := ctx.selectSite(cmd.Context(), siteName)
			if err != nil {
				return err
			}
			defer selector.Close()

			removed, err := session.Remove(args[0])
			if err != nil {
				return err
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]any{"id": args[0], "removed": removed})
			}
			out := cmd.OutOrStdout()
			if !removed {
				fmt.Fprintf(out, "Job id %s is not in the %s list\n", args[0], session.Site().DisplayName())
				return nil
			}
			fmt.Fprintf(out, "Removed job id %s from %s\n", args[0], session.Site().DisplayName())
			return nil
		},
	}

	cmd.Flags().StringVarP(&siteName, "site", "s", "", "Site name")
	return cmd
}
