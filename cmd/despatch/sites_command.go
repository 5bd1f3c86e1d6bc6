package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type siteView struct {
	Name          string `json:"name"`
	DisplayName   string `json:"display_name"`
	Journal       string `json:"journal"`
	PayloadPrefix string `json:"payload_prefix"`
	MarkerPrefix  string `json:"marker_prefix"`
	ReportPrefix  string `json:"report_prefix"`
	RetentionDays int    `json:"retention_days"`
}

func newSitesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sites",
		Short: "List configured despatch sites",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			views := make([]siteView, 0, len(cfg.Sites))
			for _, name := range cfg.SiteNames() {
				s, err := cfg.Site(name)
				if err != nil {
					return err
				}
				views = append(views, siteView{
					Name:          s.Name,
					DisplayName:   s.DisplayName(),
					Journal:       s.JournalPath,
					PayloadPrefix: s.PayloadPrefix,
					MarkerPrefix:  s.MarkerPrefix,
					ReportPrefix:  s.ReportPrefix,
					RetentionDays: s.RetentionDays,
				})
			}
			if ctx.jsonOutput() {
				return writeJSON(cmd, views)
			}

			rows := make([][]string, 0, len(views))
			for _, v := range views {
				rows = append(rows, []string{v.Name, v.DisplayName, v.Journal})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Site", "Display", "Journal"}, rows, nil))
			return nil
		},
	}
}
