package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"daemonkit/internal/config"
	"daemonkit/internal/daemonctl"
	"daemonkit/internal/daemonrun"
	"daemonkit/internal/detach"
	"daemonkit/internal/logging"
)

type commandContext struct {
	configFlag   *string
	pidfileFlag  *string
	logLevelFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag, pidfileFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		pidfileFlag:  pidfileFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, exists, err := config.Load(flagValue(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if override := flagValue(c.pidfileFlag); override != "" {
			expanded, err := config.ExpandPath(override)
			if err != nil {
				c.configErr = fmt.Errorf("resolve --pidfile: %w", err)
				return
			}
			cfg.Daemon.PIDFile = expanded
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = path
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) logLevel() string {
	if level := flagValue(c.logLevelFlag); level != "" {
		return level
	}
	if c.config != nil {
		return c.config.Logging.Level
	}
	return "info"
}

// foregroundLogger writes to stderr of the invoking terminal. Re-executed
// detach stages still share that stderr until redirection, so they only
// report errors there.
func (c *commandContext) foregroundLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	level := c.logLevel()
	if !detach.IsLauncher() {
		level = "error"
	}
	return logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{"stderr"},
	})
}

// launchOptions returns the flags the detached stages need to rebuild the
// same configuration after changing directory to the configured work_dir.
// An explicit --config is forwarded even when the file is missing so the
// stages fall back to the same defaults instead of searching elsewhere.
func (c *commandContext) launchOptions() daemonctl.LaunchOptions {
	opts := daemonctl.LaunchOptions{LogLevel: flagValue(c.logLevelFlag)}
	if c.configExists || flagValue(c.configFlag) != "" {
		opts.ConfigPath = c.configPath
	}
	if c.config != nil && flagValue(c.pidfileFlag) != "" {
		opts.PIDFile = c.config.Daemon.PIDFile
	}
	return opts
}

// openRuntime assembles the controller. detachArgs is what each detach stage
// re-executes; it is ignored by operations that never detach.
func (c *commandContext) openRuntime(ctx context.Context, detachArgs []string) (*daemonrun.Runtime, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.foregroundLogger()
	if err != nil {
		return nil, err
	}
	return daemonrun.New(ctx, cfg, daemonrun.Options{
		LogLevel: flagValue(c.logLevelFlag),
		Args:     detachArgs,
		Logger:   logger,
	})
}

func flagValue(flag *string) string {
	if flag == nil {
		return ""
	}
	return strings.TrimSpace(*flag)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
