// Package daemonctl holds the foreground side of daemon control: building
// the argument vector the detached stages re-execute and turning a status
// snapshot into display lines.
package daemonctl

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"daemonkit/internal/config"
	"daemonkit/internal/daemon"
)

// LaunchOptions carries the global flags a detached stage must see again.
type LaunchOptions struct {
	ConfigPath string
	PIDFile    string
	LogLevel   string
}

// StartArgs returns the arguments, after the executable, that re-run start
// with the same configuration. restart uses it so the detached stages never
// repeat the stop phase.
func StartArgs(opts LaunchOptions, args []string) []string {
	out := []string{"start"}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		out = append(out, "--config", cfg)
	}
	if pid := strings.TrimSpace(opts.PIDFile); pid != "" {
		out = append(out, "--pidfile", pid)
	}
	if level := strings.TrimSpace(opts.LogLevel); level != "" {
		out = append(out, "--log-level", level)
	}
	if len(args) > 0 {
		out = append(out, "--")
		out = append(out, args...)
	}
	return out
}

// StatusLine is one labelled row of status output.
type StatusLine struct {
	Label    string
	Severity string
	Detail   string
}

// StateLabel renders a daemon state for humans.
func StateLabel(state daemon.State) string {
	return cases.Title(language.Und).String(string(state))
}

// BuildStatusLines resolves status rows from a controller snapshot and the
// active configuration.
func BuildStatusLines(st daemon.Status, cfg *config.Config, now time.Time) []StatusLine {
	lines := make([]StatusLine, 0, 8)

	switch {
	case st.State == daemon.StateRunning:
		lines = append(lines, StatusLine{Label: "Daemon", Severity: "ok", Detail: fmt.Sprintf("%s (pid %d)", StateLabel(st.State), st.PID)})
	case st.Stale:
		lines = append(lines, StatusLine{Label: "Daemon", Severity: "warn", Detail: fmt.Sprintf("Stale pid file: pid %d is not running (run `daemonkit stop` to clear it)", st.PID)})
	default:
		lines = append(lines, StatusLine{Label: "Daemon", Severity: "info", Detail: StateLabel(st.State) + " (run `daemonkit start`)"})
	}
	lines = append(lines, StatusLine{Label: "PID File", Severity: "info", Detail: st.PIDFile})

	if st.State == daemon.StateRunning {
		proc := st.Process
		if proc.Name != "" {
			detail := proc.Name
			if proc.Username != "" {
				detail = fmt.Sprintf("%s (user %s)", proc.Name, proc.Username)
			}
			lines = append(lines, StatusLine{Label: "Process", Severity: "info", Detail: detail})
		}
		if proc.Cmdline != "" {
			lines = append(lines, StatusLine{Label: "Command", Severity: "info", Detail: proc.Cmdline})
		}
		if !proc.StartedAt.IsZero() {
			detail := fmt.Sprintf("%s (%s)", proc.StartedAt.Local().Format(time.DateTime), humanize.RelTime(proc.StartedAt, now, "ago", "from now"))
			lines = append(lines, StatusLine{Label: "Started", Severity: "info", Detail: detail})
		}
		if proc.RSSBytes > 0 {
			lines = append(lines, StatusLine{Label: "Memory", Severity: "info", Detail: humanize.IBytes(proc.RSSBytes) + " resident"})
		}
	}

	if cfg != nil {
		service := cfg.Service.Kind
		if cfg.Service.Kind == config.ServiceExec {
			service = fmt.Sprintf("exec %s", strings.TrimSpace(strings.Join(append([]string{cfg.Service.Command}, cfg.Service.Args...), " ")))
		}
		lines = append(lines, StatusLine{Label: "Service", Severity: "info", Detail: service})

		guard := "Disabled"
		if cfg.Daemon.Exclusive {
			guard = "Enabled"
		}
		lines = append(lines, StatusLine{Label: "Exclusive Guard", Severity: "info", Detail: guard})

		if cfg.Journal.Enabled {
			lines = append(lines, StatusLine{Label: "Journal", Severity: "ok", Detail: cfg.Journal.Path})
		} else {
			lines = append(lines, StatusLine{Label: "Journal", Severity: "info", Detail: "Disabled"})
		}
	}
	return lines
}
