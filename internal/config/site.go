package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"despatch/internal/services"
)

// Site is the resolved per-site view consumed by the journal, exporter,
// report writer and retention sweeper. Prefix fields are full path prefixes
// inside OutputDir.
type Site struct {
	Name          string
	JournalPath   string
	OutputDir     string
	PayloadPrefix string
	MarkerPrefix  string
	ReportPrefix  string
	RetentionDays int
}

// DisplayName renders the site name for humans, e.g. "TY FELIN" -> "Ty Felin".
func (s Site) DisplayName() string {
	return DisplayName(s.Name)
}

// DisplayName title-cases an upper-case site name.
func DisplayName(name string) string {
	return cases.Title(language.BritishEnglish).String(strings.ToLower(strings.TrimSpace(name)))
}

// SiteNames lists configured site names in file order.
func (c *Config) SiteNames() []string {
	names := make([]string, 0, len(c.Sites))
	for _, entry := range c.Sites {
		names = append(names, entry.Name)
	}
	return names
}

// Site resolves the named site. Matching ignores case and surrounding space.
func (c *Config) Site(name string) (Site, error) {
	want := strings.ToUpper(strings.TrimSpace(name))
	for _, entry := range c.Sites {
		if entry.Name != want {
			continue
		}
		markerPrefix := entry.MarkerPrefix
		if markerPrefix == "" {
			markerPrefix = entry.PayloadPrefix
		}
		return Site{
			Name:          entry.Name,
			JournalPath:   c.journalPath(entry),
			OutputDir:     c.Paths.OutputDir,
			PayloadPrefix: filepath.Join(c.Paths.OutputDir, entry.PayloadPrefix),
			MarkerPrefix:  filepath.Join(c.Paths.OutputDir, markerPrefix),
			ReportPrefix:  filepath.Join(c.Paths.OutputDir, entry.ReportPrefix),
			RetentionDays: c.Retention.Days,
		}, nil
	}
	return Site{}, services.Wrap(services.ErrUnknownSite, "config", "resolve site",
		fmt.Sprintf("no site named %q (configured: %s)", name, strings.Join(c.SiteNames(), ", ")), nil)
}

func (c *Config) journalPath(entry SiteEntry) string {
	if filepath.IsAbs(entry.JournalFile) {
		return filepath.Clean(entry.JournalFile)
	}
	return filepath.Join(c.Paths.JournalDir, entry.JournalFile)
}
