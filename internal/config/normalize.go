package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeTransport(); err != nil {
		return err
	}
	c.normalizeJournal()
	c.normalizeLogging()
	c.normalizeNotifications()
	c.normalizeSites()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.OutputDir, err = expandPath(strings.TrimSpace(c.Paths.OutputDir)); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.JournalDir) == "" {
		c.Paths.JournalDir = defaultJournalDir
	}
	if c.Paths.JournalDir, err = expandPath(strings.TrimSpace(c.Paths.JournalDir)); err != nil {
		return fmt.Errorf("paths.journal_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTransport() error {
	c.Transport.Mode = strings.ToLower(strings.TrimSpace(c.Transport.Mode))
	if c.Transport.Mode == "" {
		c.Transport.Mode = defaultTransportMode
	}
	var err error
	if c.Transport.HotFolder, err = expandPath(strings.TrimSpace(c.Transport.HotFolder)); err != nil {
		return fmt.Errorf("transport.hot_folder: %w", err)
	}
	c.Transport.IntakeURL = strings.TrimSpace(c.Transport.IntakeURL)
	c.Transport.LoginURL = strings.TrimSpace(c.Transport.LoginURL)
	c.Transport.Token = strings.TrimSpace(c.Transport.Token)
	if c.Transport.Token == "" {
		if value, ok := os.LookupEnv(intakeTokenEnv); ok {
			c.Transport.Token = strings.TrimSpace(value)
		}
	}
	if c.Transport.TimeoutSeconds <= 0 {
		c.Transport.TimeoutSeconds = defaultTransportTimeout
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyTimeout
	}
}

func (c *Config) normalizeJournal() {
	c.Journal.Lock = strings.ToLower(strings.TrimSpace(c.Journal.Lock))
	if c.Journal.Lock == "" {
		c.Journal.Lock = defaultJournalLock
	}
}

func (c *Config) normalizeLogging() {
	format := strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
		c.Logging.Format = "json"
	default:
		c.Logging.Format = format
	}
	level := strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if level == "" {
		level = defaultLogLevel
	}
	if level == "warning" {
		level = "warn"
	}
	c.Logging.Level = level
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func (c *Config) normalizeSites() {
	for i := range c.Sites {
		entry := &c.Sites[i]
		entry.Name = strings.ToUpper(strings.TrimSpace(entry.Name))
		entry.JournalFile = strings.TrimSpace(entry.JournalFile)
		entry.PayloadPrefix = strings.TrimSpace(entry.PayloadPrefix)
		entry.MarkerPrefix = strings.TrimSpace(entry.MarkerPrefix)
		entry.ReportPrefix = strings.TrimSpace(entry.ReportPrefix)
		if entry.MarkerPrefix == "" {
			entry.MarkerPrefix = entry.PayloadPrefix
		}
	}
}
