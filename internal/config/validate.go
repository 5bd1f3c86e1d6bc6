package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRetention(); err != nil {
		return err
	}
	if err := c.validateJournal(); err != nil {
		return err
	}
	if err := c.validateTransport(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateSites()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	return nil
}

func (c *Config) validateRetention() error {
	if c.Retention.Days < 1 {
		return errors.New("retention.days must be at least 1")
	}
	return nil
}

func (c *Config) validateJournal() error {
	switch c.Journal.Lock {
	case LockReadOnly, LockFlock:
		return nil
	default:
		return fmt.Errorf("journal.lock: unsupported value %q (want %q or %q)", c.Journal.Lock, LockReadOnly, LockFlock)
	}
}

func (c *Config) validateTransport() error {
	switch c.Transport.Mode {
	case TransportHotFolder:
		if c.Transport.HotFolder == "" {
			return errors.New("transport.hot_folder must be set when transport.mode is hotfolder")
		}
	case TransportHTTP:
		if err := validateURL("transport.intake_url", c.Transport.IntakeURL); err != nil {
			return err
		}
		if c.Transport.LoginURL != "" {
			if err := validateURL("transport.login_url", c.Transport.LoginURL); err != nil {
				return err
			}
		} else if c.Transport.Token == "" {
			return fmt.Errorf("transport.login_url or transport.token is required when transport.mode is http (token may come from %s)", intakeTokenEnv)
		}
	default:
		return fmt.Errorf("transport.mode: unsupported value %q", c.Transport.Mode)
	}
	return nil
}

func validateURL(field, value string) error {
	if value == "" {
		return fmt.Errorf("%s must be set", field)
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must use http or https", field)
	}
	if parsed.Host == "" {
		return fmt.Errorf("%s must include a host", field)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.NtfyTopic == "" {
		return nil
	}
	return validateURL("notifications.ntfy_topic", c.Notifications.NtfyTopic)
}

func (c *Config) validateSites() error {
	if len(c.Sites) == 0 {
		return errors.New("at least one [[sites]] entry is required")
	}
	seen := make(map[string]struct{}, len(c.Sites))
	journals := make(map[string]string, len(c.Sites))
	for i, entry := range c.Sites {
		if entry.Name == "" {
			return fmt.Errorf("sites[%d].name must be set", i)
		}
		if _, ok := seen[entry.Name]; ok {
			return fmt.Errorf("sites[%d].name %q is duplicated", i, entry.Name)
		}
		seen[entry.Name] = struct{}{}
		if entry.JournalFile == "" {
			return fmt.Errorf("sites[%d].journal_file must be set", i)
		}
		path := c.journalPath(entry)
		if other, ok := journals[path]; ok {
			return fmt.Errorf("sites %q and %q share journal %s", other, entry.Name, path)
		}
		journals[path] = entry.Name
		if entry.PayloadPrefix == "" {
			return fmt.Errorf("sites[%d].payload_prefix must be set", i)
		}
		if entry.ReportPrefix == "" {
			return fmt.Errorf("sites[%d].report_prefix must be set", i)
		}
		for field, prefix := range map[string]string{
			"payload_prefix": entry.PayloadPrefix,
			"marker_prefix":  entry.MarkerPrefix,
			"report_prefix":  entry.ReportPrefix,
		} {
			if strings.ContainsAny(prefix, `/\`) {
				return fmt.Errorf("sites[%d].%s must be a file name prefix, not a path", i, field)
			}
		}
	}
	return nil
}
