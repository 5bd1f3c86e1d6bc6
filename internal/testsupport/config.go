package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"despatch/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The shared output and hot folder directories are created; journal and log
// directories are left for EnsureDirectories.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.OutputDir = filepath.Join(base, "repo")
	cfgVal.Paths.JournalDir = filepath.Join(base, "journals")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Transport.Mode = config.TransportHotFolder
	cfgVal.Transport.HotFolder = filepath.Join(base, "hotfolder")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	for _, dir := range []string{builder.cfg.Paths.OutputDir, builder.cfg.Transport.HotFolder} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	return builder.cfg
}

// WithLockMode selects the journal lock mechanism.
func WithLockMode(mode string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Journal.Lock = mode
	}
}

// WithRetentionDays overrides the artifact retention horizon.
func WithRetentionDays(days int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Retention.Days = days
	}
}

// WithHTTPIntake switches the transport to the HTTP intake at baseURL.
func WithHTTPIntake(intakeURL, loginURL string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Transport.Mode = config.TransportHTTP
		b.cfg.Transport.HotFolder = ""
		b.cfg.Transport.IntakeURL = intakeURL
		b.cfg.Transport.LoginURL = loginURL
	}
}

// WithNtfyTopic enables submission notifications to topic.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// WithSites replaces the configured sites.
func WithSites(entries ...config.SiteEntry) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sites = entries
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.OutputDir)
}

// WriteConfigFile encodes cfg as TOML at path so config.Load reads it back.
func WriteConfigFile(t testing.TB, path string, cfg *config.Config) {
	t.Helper()

	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config %s: %v", path, err)
	}
}
