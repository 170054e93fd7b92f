package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	appName = "daemonkit"

	defaultNullDevice          = "/dev/null"
	defaultWorkDir             = "/"
	defaultUmask               = 0
	defaultStopPollIntervalMS  = 100
	defaultStopTimeoutSeconds  = 0
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30
	defaultServiceKind         = ServiceHeartbeat
	defaultHeartbeatInterval   = 30
	defaultJournalEnabled      = true
	defaultConfigPathTemplate  = "~/.config/daemonkit/config.toml"
	defaultProjectConfigName   = "daemonkit.toml"
	pidFileEnv                 = "DAEMONKIT_PIDFILE"
	defaultPIDFileName         = "daemonkit.pid"
	defaultJournalDatabaseName = "journal.db"
)

// Default returns a Config populated with repository defaults. The pidfile is
// left empty so normalize can apply the environment fallback before the XDG
// default.
func Default() Config {
	state := stateDir()
	return Config{
		Daemon: Daemon{
			Stdin:              defaultNullDevice,
			Stdout:             defaultNullDevice,
			Stderr:             defaultNullDevice,
			WorkDir:            defaultWorkDir,
			Umask:              defaultUmask,
			StopPollIntervalMS: defaultStopPollIntervalMS,
			StopTimeout:        defaultStopTimeoutSeconds,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			Dir:           filepath.Join(state, "logs"),
			RetentionDays: defaultLogRetentionDays,
		},
		Service: Service{
			Kind:     defaultServiceKind,
			Interval: defaultHeartbeatInterval,
		},
		Journal: Journal{
			Enabled: defaultJournalEnabled,
			Path:    filepath.Join(state, defaultJournalDatabaseName),
		},
	}
}

func stateDir() string {
	return filepath.Join(xdg.StateHome, appName)
}

func defaultPIDFile() string {
	return filepath.Join(stateDir(), defaultPIDFileName)
}
