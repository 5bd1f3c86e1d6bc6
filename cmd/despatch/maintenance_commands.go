package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"despatch/internal/notifications"
	"despatch/internal/preflight"
	"despatch/internal/retention"
)

type sweepView struct {
	Site    string   `json:"site"`
	Dir     string   `json:"dir"`
	Days    int      `json:"retention_days"`
	Removed []string `json:"removed"`
	Errors  []string `json:"errors,omitempty"`
}

func newSweepCommand(ctx *commandContext) *cobra.Command {
	var siteName string
	var days int

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Delete aged despatch artifacts from the shared output directory",
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
			target, err := cfg.Site(siteName)
			if err != nil {
				return err
			}
			if days <= 0 {
				days = target.RetentionDays
			}

			result, err := retention.New(retention.WithLogger(logger)).Run(cmd.Context(), target.OutputDir, days)
			if err != nil {
				return err
			}

			view := sweepView{Site: target.Name, Dir: target.OutputDir, Days: days, Removed: result.Removed}
			for _, failure := range result.Errors {
				view.Errors = append(view.Errors, fmt.Sprintf("%s: %v", failure.Path, failure.Error))
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, view)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintln(out, renderStatusLine("Removed", statusOK, fmt.Sprintf("%d file(s) older than %d day(s)", len(result.Removed), days), colorize))
			for _, line := range view.Errors {
				fmt.Fprintln(out, renderStatusLine("Not removed", statusWarn, line, colorize))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&siteName, "site", "s", "", "Site name")
	cmd.Flags().IntVar(&days, "days", 0, "Override the configured retention in days")
	return cmd
}

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var siteName string

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Check directory access, journal locks, and transport reachability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			results := preflight.RunAll(cmd.Context(), cfg)
			if strings.TrimSpace(siteName) != "" {
				results = append(results, ctx.probeSite(cmd, siteName))
			}

			failed := 0
			for _, result := range results {
				if !result.Passed {
					failed++
				}
			}
			if ctx.jsonOutput() {
				if err := writeJSON(cmd, results); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				printLines(out, renderSectionHeader("Preflight", colorize))
				printLines(out, preflightLines(results, colorize))
			}
			if failed > 0 {
				return fmt.Errorf("%d preflight check(s) failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&siteName, "site", "s", "", "Also verify the site can be selected")
	return cmd
}

// probeSite selects and immediately releases the site, proving the shared
// output is writable and the journal is not held elsewhere.
func (c *commandContext) probeSite(cmd *cobra.Command, name string) preflight.Result {
	label := "Site " + strings.ToUpper(strings.TrimSpace(name))
	selector, session, err := c.selectSite(cmd.Context(), name)
	if err != nil {
		return preflight.Result{Name: label, Detail: err.Error()}
	}
	defer selector.Close()
	return preflight.Result{
		Name:   label,
		Passed: true,
		Detail: fmt.Sprintf("%s (%d pending)", session.Site().JournalPath, session.Len()),
	}
}

func newTestNotifyCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a test notification",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			svc := notifications.NewService(cfg)
			if !notifications.Enabled(svc) {
				fmt.Fprintln(cmd.OutOrStdout(), "Notifications disabled; set notifications.ntfy_topic to enable them")
				return nil
			}
			if err := svc.TestNotification(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Test notification sent")
			return nil
		},
	}
}
