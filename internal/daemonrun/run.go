// Package daemonrun assembles a daemon.Controller from configuration.
//
// It owns everything the controller treats as pluggable: the re-exec
// detacher, stream redirection targets, the terminator policy, the
// lifecycle journal, the per-run daemon log and the service hook chosen by
// the config file.
package daemonrun

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"daemonkit/internal/config"
	"daemonkit/internal/daemon"
	"daemonkit/internal/detach"
	"daemonkit/internal/journal"
	"daemonkit/internal/logging"
	"daemonkit/internal/pidfile"
	"daemonkit/internal/redirect"
	"daemonkit/internal/service"
	"daemonkit/internal/terminate"
)

const (
	logFilePrefix  = "daemonkit-"
	currentLogName = "daemonkit.log"
)

// Options configures runtime assembly.
type Options struct {
	// LogLevel overrides logging.level for the daemon log when set.
	LogLevel    string
	Development bool
	// Args is the argument vector, after the executable, that every detach
	// stage re-executes. It must lead back to a start operation.
	Args []string
	// Logger receives foreground diagnostics before the daemon log exists.
	Logger *slog.Logger

	// Hook, Detacher and Redirector override the configured defaults.
	Hook       daemon.ServiceHook
	Detacher   daemon.Detacher
	Redirector daemon.Redirector
}

// Runtime bundles a controller with the resources it holds open.
type Runtime struct {
	Controller *daemon.Controller
	InstanceID string
	PIDFile    *pidfile.Store

	cfg     *config.Config
	opts    Options
	journal *journal.Store
	logger  *slog.Logger
	logPath string
}

// New builds the runtime for cfg. The journal is opened eagerly when
// enabled; a journal that cannot be opened is reported and skipped.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	rt := &Runtime{
		InstanceID: uuid.NewString(),
		PIDFile:    pidfile.New(cfg.Daemon.PIDFile),
		cfg:        cfg,
		opts:       opts,
		logger:     logger,
	}

	var recorder daemon.Recorder
	if cfg.Journal.Enabled {
		store, err := journal.Open(ctx, cfg.Journal.Path)
		if err != nil {
			logging.WarnWithContext(logger, "lifecycle journal unavailable", "journal_open_failed",
				logging.Error(err),
				logging.String("journal_path", cfg.Journal.Path),
				logging.String(logging.FieldErrorHint, "check journal.path permissions or set journal.enabled = false"),
				logging.String(logging.FieldImpact, "lifecycle history will not be recorded"),
			)
		} else {
			rt.journal = store
			recorder = store
		}
	}

	detacher := opts.Detacher
	if detacher == nil {
		detacher = detach.New(detach.Options{
			Args:    opts.Args,
			WorkDir: cfg.Daemon.WorkDir,
			Umask:   cfg.Daemon.Umask,
			Logger:  logger,
		})
	}
	redirector := opts.Redirector
	if redirector == nil {
		redirector = redirect.New(redirect.WithLogger(logger))
	}
	hook := opts.Hook
	if hook == nil {
		hook = configuredService{rt: rt}
	}

	ctrl, err := daemon.New(daemon.Options{
		PIDFile:    rt.PIDFile,
		Detacher:   detacher,
		Redirector: redirector,
		Targets: redirect.Targets{
			Stdin:  cfg.Daemon.Stdin,
			Stdout: cfg.Daemon.Stdout,
			Stderr: cfg.Daemon.Stderr,
		},
		Terminator: terminate.New(rt.PIDFile, terminate.Options{
			PollInterval: cfg.StopPollInterval(),
			Timeout:      cfg.StopTimeout(),
			Logger:       logger,
		}),
		Hook:          hook,
		Exclusive:     cfg.Daemon.Exclusive,
		Journal:       recorder,
		InstanceID:    rt.InstanceID,
		Logger:        logger,
		RuntimeLogger: rt.openDaemonLog,
	})
	if err != nil {
		_ = rt.Close()
		return nil, err
	}
	rt.Controller = ctrl
	return rt, nil
}

// CurrentLogPath is the stable name that always points at the latest run's
// daemon log.
func CurrentLogPath(cfg *config.Config) string {
	return filepath.Join(cfg.Logging.Dir, currentLogName)
}

// Journal returns the open journal, or nil when disabled or unavailable.
func (r *Runtime) Journal() *journal.Store {
	return r.journal
}

// LogPath returns the per-run daemon log once the daemon has opened it.
func (r *Runtime) LogPath() string {
	return r.logPath
}

// Close releases the journal.
func (r *Runtime) Close() error {
	if r == nil || r.journal == nil {
		return nil
	}
	err := r.journal.Close()
	r.journal = nil
	return err
}

// openDaemonLog runs inside the detached process after redirection. It
// creates the per-run log file, repoints daemonkit.log at it and prunes old
// runs.
func (r *Runtime) openDaemonLog() (*slog.Logger, error) {
	cfg := r.cfg
	runID := time.Now().UTC().Format("20060102T150405.000Z")
	logPath := filepath.Join(cfg.Logging.Dir, fmt.Sprintf("%s%s.log", logFilePrefix, runID))

	level := cfg.Logging.Level
	if strings.TrimSpace(r.opts.LogLevel) != "" {
		level = r.opts.LogLevel
	}
	logger, err := logging.New(logging.Options{
		Level:       level,
		Format:      cfg.Logging.Format,
		OutputPaths: []string{logPath},
		Development: r.opts.Development,
		InstanceID:  r.InstanceID,
	})
	if err != nil {
		return nil, err
	}

	if err := logging.PointCurrentLog(cfg.Logging.Dir, currentLogName, logPath); err != nil {
		logging.WarnWithContext(logger, "unable to update current log pointer", "log_pointer_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, currentLogName+" may point at a previous run"),
		)
	}
	logging.CleanupOldLogs(logger, cfg.Logging.RetentionDays,
		logging.RetentionTarget{Dir: cfg.Logging.Dir, Pattern: logFilePrefix + "*.log", Exclude: []string{logPath}},
	)

	r.logger = logger
	r.logPath = logPath
	logger.Info("daemon log opened",
		logging.String("log_path", logPath),
		logging.String(logging.FieldEventType, "daemon_log_opened"),
	)
	return logger, nil
}

// configuredService builds the hook named by service.kind once the daemon
// log exists, so the hook logs there.
type configuredService struct {
	rt *Runtime
}

func (s configuredService) Run(ctx context.Context, args []string) error {
	hook, err := service.New(s.rt.cfg, s.rt.logger)
	if err != nil {
		return err
	}
	return hook.Run(ctx, args)
}

// ReplacesProcess lets the controller hand the exclusive guard to an exec'd
// service.
func (s configuredService) ReplacesProcess() bool {
	return s.rt.cfg.Service.Kind == config.ServiceExec
}
