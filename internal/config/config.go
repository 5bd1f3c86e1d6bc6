package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains shared directory configuration.
type Paths struct {
	OutputDir  string `toml:"output_dir"`
	JournalDir string `toml:"journal_dir"`
	LogDir     string `toml:"log_dir"`
}

// Retention controls how long delivered artifacts stay in the output directory.
type Retention struct {
	Days int `toml:"days"`
}

// Journal selects the exclusivity mechanism guarding site journals.
type Journal struct {
	Lock string `toml:"lock"`
}

// Transport configures the collaborator that delivers payload and marker files.
type Transport struct {
	Mode           string `toml:"mode"`
	HotFolder      string `toml:"hot_folder"`
	IntakeURL      string `toml:"intake_url"`
	LoginURL       string `toml:"login_url"`
	Token          string `toml:"token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Notifications configures optional ntfy alerts for submission outcomes.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
}

// SiteEntry is the raw [[sites]] table as written in the config file.
type SiteEntry struct {
	Name          string `toml:"name"`
	JournalFile   string `toml:"journal_file"`
	PayloadPrefix string `toml:"payload_prefix"`
	MarkerPrefix  string `toml:"marker_prefix"`
	ReportPrefix  string `toml:"report_prefix"`
}

// Config encapsulates all configuration values for despatch.
//
// Configuration sections by subsystem:
//   - Paths: shared output, journal and log directories
//   - Retention: artifact age horizon for the sweeper
//   - Journal: lock mechanism (readonly flag or advisory flock)
//   - Transport: hot folder or HTTP intake settings
//   - Logging: log format, level, and retention
//   - Notifications: ntfy topic for submission alerts
//   - Sites: one entry per print site
type Config struct {
	Paths         Paths         `toml:"paths"`
	Retention     Retention     `toml:"retention"`
	Journal       Journal       `toml:"journal"`
	Transport     Transport     `toml:"transport"`
	Logging       Logging       `toml:"logging"`
	Notifications Notifications `toml:"notifications"`
	Sites         []SiteEntry   `toml:"sites"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		// A file that declares its own sites replaces the default set.
		cfg.Sites = nil
		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
		if len(cfg.Sites) == 0 {
			cfg.Sites = defaultSites()
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("despatch.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the local directories despatch writes to. The
// shared output directory is not created: it lives on a network share and its
// absence must surface through the access probe.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.JournalDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration document.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
