package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Service hook kinds understood by the CLI.
const (
	ServiceHeartbeat = "heartbeat"
	ServiceExec      = "exec"
)

// Daemon holds the pidfile location, redirection targets, and stop policy.
type Daemon struct {
	PIDFile string `toml:"pidfile"`
	Stdin   string `toml:"stdin"`
	Stdout  string `toml:"stdout"`
	Stderr  string `toml:"stderr"`
	WorkDir string `toml:"work_dir"`
	// Umask is applied by the detached session leader. TOML octal (0o022) works.
	Umask              int  `toml:"umask"`
	StopPollIntervalMS int  `toml:"stop_poll_interval_ms"`
	StopTimeout        int  `toml:"stop_timeout"`
	Exclusive          bool `toml:"exclusive"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	Dir           string `toml:"dir"`
	RetentionDays int    `toml:"retention_days"`
}

// Service selects the hook the CLI runs once the daemon is detached.
type Service struct {
	Kind     string   `toml:"kind"`
	Interval int      `toml:"interval"`
	Command  string   `toml:"command"`
	Args     []string `toml:"args"`
}

// Journal configures the lifecycle history database.
type Journal struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Config encapsulates all configuration values for daemonkit.
//
// Sections:
//   - Daemon: pidfile, stdio redirection targets, detach and stop policy
//   - Logging: format, level, directory, and retention of daemon logs
//   - Service: which built-in hook the CLI runs
//   - Journal: SQLite lifecycle history
type Config struct {
	Daemon  Daemon  `toml:"daemon"`
	Logging Logging `toml:"logging"`
	Service Service `toml:"service"`
	Journal Journal `toml:"journal"`
}

// DefaultConfigPath returns the absolute path of the per-user config file.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPathTemplate)
}

// Load locates, parses, normalizes, and validates a configuration file. A
// missing file is not an error: defaults apply and exists is false.
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

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
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
	if strings.TrimSpace(path) != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs(defaultProjectConfigName)
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

// EnsureDirectories creates the directories holding the pidfile, logs, and
// journal.
func (c *Config) EnsureDirectories() error {
	dirs := []string{filepath.Dir(c.Daemon.PIDFile), c.Logging.Dir}
	if c.Journal.Enabled {
		dirs = append(dirs, filepath.Dir(c.Journal.Path))
	}
	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// StopPollInterval is the pause between termination signals.
func (c *Config) StopPollInterval() time.Duration {
	return time.Duration(c.Daemon.StopPollIntervalMS) * time.Millisecond
}

// StopTimeout bounds the termination loop. Zero means unbounded.
func (c *Config) StopTimeout() time.Duration {
	return time.Duration(c.Daemon.StopTimeout) * time.Second
}

// HeartbeatInterval is the tick period of the heartbeat service.
func (c *Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.Service.Interval) * time.Second
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
		} else if len(pathValue) > 1 && pathValue[1] == '/' {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes the annotated sample configuration to path.
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
