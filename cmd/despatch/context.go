package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"despatch/internal/auth"
	"despatch/internal/config"
	"despatch/internal/export"
	"despatch/internal/logging"
	"despatch/internal/notifications"
	"despatch/internal/pipeline"
	"despatch/internal/report"
	"despatch/internal/retention"
	"despatch/internal/services/hotfolder"
	"despatch/internal/services/rpd"
	"despatch/internal/site"
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// ensureLogger builds the process logger and prunes old log files once.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = fmt.Errorf("create logger: %w", err)
			return
		}
		logging.PruneLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, time.Now())
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

// selectSite opens the named site through a fresh selector. The caller must
// Close the selector to release the journal lock.
func (c *commandContext) selectSite(ctx context.Context, name string) (*site.Selector, *site.Session, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, nil, fmt.Errorf("--site is required (one of: %s)", strings.Join(cfg.SiteNames(), ", "))
	}
	selector := site.NewSelector(cfg, logger)
	session, err := selector.Select(ctx, name)
	if err != nil {
		_ = selector.Close()
		return nil, nil, err
	}
	return selector, session, nil
}

// collaborators resolves the transport and authenticator for the configured
// transport mode. Deliveries read their token from sess.
func (c *commandContext) collaborators(sess *auth.Session) (export.Transport, auth.Authenticator, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, err
	}

	switch cfg.Transport.Mode {
	case config.TransportHotFolder:
		return hotfolder.New(cfg.Transport.HotFolder, logger), auth.Local{}, nil
	case config.TransportHTTP:
		var tokens rpd.TokenSource = sess
		if cfg.Transport.Token != "" {
			tokens = rpd.StaticToken(cfg.Transport.Token)
		}
		client := rpd.NewClient(
			cfg.Transport.IntakeURL,
			time.Duration(cfg.Transport.TimeoutSeconds)*time.Second,
			rpd.WithLoginURL(cfg.Transport.LoginURL),
			rpd.WithTokenSource(tokens),
			rpd.WithLogger(logger),
		)
		if cfg.Transport.LoginURL == "" {
			// A static token identifies the workstation; the operator name is trusted.
			return client, auth.Local{}, nil
		}
		return client, client, nil
	default:
		return nil, nil, fmt.Errorf("unsupported transport mode %q", cfg.Transport.Mode)
	}
}

// newPipeline wires one submission run for session.
func (c *commandContext) newPipeline(session *site.Session, sess *auth.Session, transport export.Transport, login func(context.Context) error) (*pipeline.Pipeline, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	target := session.Site()
	deps := pipeline.Deps{
		Login:    login,
		Session:  sess,
		Exporter: export.New(target, transport, export.WithLogger(logger)),
		Journal:  session,
		Sweeper:  retention.New(retention.WithLogger(logger)),
		Reporter: report.New(target, report.WithLogger(logger)),
		Notifier: notifications.NewService(cfg),
	}
	return pipeline.New(target, deps, logger), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
