package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeDaemon(); err != nil {
		return err
	}
	if err := c.normalizeLogging(); err != nil {
		return err
	}
	c.normalizeService()
	return c.normalizeJournal()
}

func (c *Config) normalizeDaemon() error {
	pidfile := strings.TrimSpace(c.Daemon.PIDFile)
	if pidfile == "" {
		if value, ok := os.LookupEnv(pidFileEnv); ok {
			pidfile = strings.TrimSpace(value)
		}
	}
	if pidfile == "" {
		pidfile = defaultPIDFile()
	}
	var err error
	if c.Daemon.PIDFile, err = expandPath(pidfile); err != nil {
		return fmt.Errorf("daemon.pidfile: %w", err)
	}

	targets := []struct {
		name  string
		value *string
	}{
		{"daemon.stdin", &c.Daemon.Stdin},
		{"daemon.stdout", &c.Daemon.Stdout},
		{"daemon.stderr", &c.Daemon.Stderr},
	}
	for _, target := range targets {
		trimmed := strings.TrimSpace(*target.value)
		if trimmed == "" {
			trimmed = defaultNullDevice
		}
		if *target.value, err = expandPath(trimmed); err != nil {
			return fmt.Errorf("%s: %w", target.name, err)
		}
	}

	if strings.TrimSpace(c.Daemon.WorkDir) == "" {
		c.Daemon.WorkDir = defaultWorkDir
	}
	if c.Daemon.WorkDir, err = expandPath(strings.TrimSpace(c.Daemon.WorkDir)); err != nil {
		return fmt.Errorf("daemon.work_dir: %w", err)
	}
	if c.Daemon.StopPollIntervalMS == 0 {
		c.Daemon.StopPollIntervalMS = defaultStopPollIntervalMS
	}
	return nil
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	var err error
	if c.Logging.Dir, err = expandPath(strings.TrimSpace(c.Logging.Dir)); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeService() {
	c.Service.Kind = strings.ToLower(strings.TrimSpace(c.Service.Kind))
	if c.Service.Kind == "" {
		c.Service.Kind = defaultServiceKind
	}
	c.Service.Command = strings.TrimSpace(c.Service.Command)
}

func (c *Config) normalizeJournal() error {
	var err error
	if c.Journal.Path, err = expandPath(strings.TrimSpace(c.Journal.Path)); err != nil {
		return fmt.Errorf("journal.path: %w", err)
	}
	return nil
}
