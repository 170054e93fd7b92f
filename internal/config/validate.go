package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateDaemon(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateService(); err != nil {
		return err
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return errors.New("journal.path must be set when journal.enabled is true")
	}
	return nil
}

func (c *Config) validateDaemon() error {
	if c.Daemon.PIDFile == "" {
		return errors.New("daemon.pidfile must be set")
	}
	if c.Daemon.WorkDir == "" {
		return errors.New("daemon.work_dir must be set")
	}
	if c.Daemon.Umask < 0 || c.Daemon.Umask > 0o777 {
		return fmt.Errorf("daemon.umask must be between 0 and 0o777, got %#o", c.Daemon.Umask)
	}
	if c.Daemon.StopPollIntervalMS <= 0 {
		return errors.New("daemon.stop_poll_interval_ms must be positive")
	}
	if c.Daemon.StopTimeout < 0 {
		return errors.New("daemon.stop_timeout must be zero (unbounded) or positive seconds")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	if c.Logging.Dir == "" {
		return errors.New("logging.dir must be set")
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must not be negative")
	}
	return nil
}

func (c *Config) validateService() error {
	switch c.Service.Kind {
	case ServiceHeartbeat:
		if c.Service.Interval <= 0 {
			return errors.New("service.interval must be positive (seconds)")
		}
	case ServiceExec:
		if c.Service.Command == "" {
			return errors.New("service.command must be set when service.kind is exec")
		}
	default:
		return fmt.Errorf("service.kind must be %s or %s, got %q", ServiceHeartbeat, ServiceExec, c.Service.Kind)
	}
	return nil
}
