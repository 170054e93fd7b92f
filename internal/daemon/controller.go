package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"daemonkit/internal/journal"
	"daemonkit/internal/logging"
	"daemonkit/internal/pidfile"
	"daemonkit/internal/procinfo"
	"daemonkit/internal/redirect"
	"daemonkit/internal/terminate"
)

// ServiceHook is the caller's service body. It runs after full detachment
// with the positional arguments of the control command.
type ServiceHook interface {
	Run(ctx context.Context, args []string) error
}

// HookFunc adapts a function to ServiceHook.
type HookFunc func(ctx context.Context, args []string) error

// Run calls f.
func (f HookFunc) Run(ctx context.Context, args []string) error { return f(ctx, args) }

// ProcessReplacer is implemented by hooks that exec another program in
// place of the daemon. The exclusive guard is handed over to that program.
type ProcessReplacer interface {
	ReplacesProcess() bool
}

// Detacher moves the process into the background.
type Detacher interface {
	Detach() error
}

// Redirector rebinds the standard streams.
type Redirector interface {
	Redirect(redirect.Targets) error
}

// Terminator stops the recorded process.
type Terminator interface {
	Terminate(ctx context.Context) (terminate.Result, error)
}

// Recorder persists lifecycle events.
type Recorder interface {
	Record(ctx context.Context, ev journal.Event) (journal.Event, error)
}

// NotifyFunc derives the hook context. The returned stop function restores
// default signal handling.
type NotifyFunc func(ctx context.Context) (context.Context, context.CancelFunc)

// Options wires a Controller.
type Options struct {
	PIDFile    *pidfile.Store
	Detacher   Detacher
	Redirector Redirector
	Targets    redirect.Targets
	Terminator Terminator
	Hook       ServiceHook
	InstanceID string
	Logger     *slog.Logger

	// Exclusive holds a flock guard next to the pidfile while the hook runs.
	Exclusive bool

	// Journal is optional; failures are logged and never change outcomes.
	Journal Recorder

	// RuntimeLogger builds the logger used once the streams are redirected.
	RuntimeLogger func() (*slog.Logger, error)
}

// Controller implements start, stop, restart and status.
type Controller struct {
	store      *pidfile.Store
	detacher   Detacher
	redirector Redirector
	targets    redirect.Targets
	terminator Terminator
	hook       ServiceHook
	exclusive  bool
	journal    Recorder
	instanceID string
	logger     *slog.Logger
	runtimeLog func() (*slog.Logger, error)

	phase   atomic.Int32
	notify  NotifyFunc
	getpid  func() int
	inspect func(ctx context.Context, pid int) procinfo.Info
}

// Option adjusts a Controller for tests.
type Option func(*Controller)

// WithNotify replaces the signal-derived hook context.
func WithNotify(fn NotifyFunc) Option {
	return func(c *Controller) {
		if fn != nil {
			c.notify = fn
		}
	}
}

// WithPID replaces os.Getpid.
func WithPID(fn func() int) Option {
	return func(c *Controller) {
		if fn != nil {
			c.getpid = fn
		}
	}
}

// WithInspector replaces the process inspector used by Status and Start.
func WithInspector(fn func(ctx context.Context, pid int) procinfo.Info) Option {
	return func(c *Controller) {
		if fn != nil {
			c.inspect = fn
		}
	}
}

// New validates opts and returns a Controller.
func New(opts Options, options ...Option) (*Controller, error) {
	if opts.PIDFile == nil {
		return nil, errors.New("daemon controller requires a pid file")
	}
	c := &Controller{
		store:      opts.PIDFile,
		detacher:   opts.Detacher,
		redirector: opts.Redirector,
		targets:    opts.Targets,
		terminator: opts.Terminator,
		hook:       opts.Hook,
		exclusive:  opts.Exclusive,
		journal:    opts.Journal,
		instanceID: opts.InstanceID,
		logger:     logging.NewComponentLogger(opts.Logger, "daemon"),
		runtimeLog: opts.RuntimeLogger,
		notify:     notifySignals,
		getpid:     os.Getpid,
		inspect:    procinfo.Inspect,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Phase reports where the controller is in its lifecycle.
func (c *Controller) Phase() Phase {
	return Phase(c.phase.Load())
}

func (c *Controller) setPhase(p Phase) {
	prev := Phase(c.phase.Swap(int32(p)))
	if prev != p {
		c.logger.Debug("phase changed",
			logging.String("from", prev.String()),
			logging.String("to", p.String()),
		)
	}
}

// Start launches the service unless the pidfile already holds a claim. In
// the launching process a successful detach exits before Start returns; in
// the daemon Start returns once the hook has finished.
func (c *Controller) Start(ctx context.Context, args []string) error {
	if c.detacher == nil || c.redirector == nil || c.hook == nil {
		return errors.New("daemon start requires detacher, redirector and hook")
	}

	pid, ok, err := c.store.Read()
	if err != nil {
		c.record(ctx, journal.ActionStart, journal.OutcomeFailed, 0, err.Error())
		return err
	}
	if ok {
		alive := c.inspect(ctx, pid).Alive
		runErr := &AlreadyRunningError{PID: pid, Path: c.store.Path(), Alive: alive}
		c.record(ctx, journal.ActionStart, journal.OutcomeAlreadyRunning, pid, runErr.Error())
		return runErr
	}

	c.setPhase(PhaseDetaching)
	if err := c.detacher.Detach(); err != nil {
		c.startFailed(ctx, 0, "detach failed", "detach_failed", err)
		return err
	}
	if err := c.redirector.Redirect(c.targets); err != nil {
		c.startFailed(ctx, c.getpid(), "stream redirection failed", "redirect_failed", err)
		return err
	}
	if c.runtimeLog != nil {
		logger, err := c.runtimeLog()
		if err != nil {
			c.startFailed(ctx, c.getpid(), "daemon logger unavailable", "daemon_log_failed", err)
			return fmt.Errorf("init daemon logger: %w", err)
		}
		c.logger = logging.NewComponentLogger(logger, "daemon")
	}

	return c.run(ctx, args)
}

func (c *Controller) run(ctx context.Context, args []string) error {
	own := c.getpid()

	var guard *pidfile.Guard
	if c.exclusive {
		guard = c.store.NewGuard()
		if err := guard.Acquire(); err != nil {
			c.setPhase(PhaseStopped)
			c.record(ctx, journal.ActionStart, journal.OutcomeAlreadyRunning, own, err.Error())
			return fmt.Errorf("%w: %w", ErrAlreadyRunning, err)
		}
		if r, ok := c.hook.(ProcessReplacer); ok && r.ReplacesProcess() {
			if err := guard.KeepAcrossExec(); err != nil {
				_ = guard.Release()
				c.startFailed(ctx, own, "pid file guard cannot survive exec", "guard_inherit_failed", err)
				return err
			}
		}
		defer func() {
			if err := guard.Release(); err != nil {
				logging.WarnWithContext(c.logger, "release pid file guard failed", "guard_release_failed",
					logging.Error(err),
					logging.String(logging.FieldImpact, "lock file released at process exit"),
				)
			}
		}()
	}

	if err := c.store.Write(own); err != nil {
		c.startFailed(ctx, own, "pid file write failed", "pidfile_write_failed", err)
		return err
	}

	c.setPhase(PhaseRunning)
	c.logger.Info("daemon started",
		logging.PID(own),
		logging.String(logging.FieldPIDFile, c.store.Path()),
		logging.Strings("args", args),
		logging.String(logging.FieldEventType, "daemon_started"),
	)
	c.record(ctx, journal.ActionStart, journal.OutcomeStarted, own, strings.Join(args, " "))

	hookCtx, stop := c.notify(ctx)
	defer stop()
	// After the first signal, later ones fall back to their default action.
	context.AfterFunc(hookCtx, stop)

	hookErr := c.hook.Run(hookCtx, args)
	c.exit(ctx, own, hookErr)
	return hookErr
}

// startFailed ends a start attempt that cannot continue.
func (c *Controller) startFailed(ctx context.Context, pid int, msg, eventType string, err error) {
	c.setPhase(PhaseStopped)
	logging.ErrorWithContext(c.logger, msg, eventType,
		logging.Error(err),
		logging.String(logging.FieldPIDFile, c.store.Path()),
	)
	c.record(ctx, journal.ActionStart, journal.OutcomeFailed, pid, err.Error())
}

func (c *Controller) exit(ctx context.Context, own int, hookErr error) {
	c.setPhase(PhaseStopped)

	removed, err := c.store.DeleteIfOwned(own)
	if err != nil {
		logging.WarnWithContext(c.logger, "remove pid file on exit failed", "pidfile_cleanup_failed",
			logging.Error(err),
			logging.String(logging.FieldPIDFile, c.store.Path()),
			logging.String(logging.FieldErrorHint, "run stop to reconcile the pid file"),
		)
	}

	detail := ""
	attrs := []logging.Attr{
		logging.PID(own),
		logging.Bool("pidfile_removed", removed),
		logging.String(logging.FieldEventType, "daemon_exited"),
	}
	if hookErr != nil && !errors.Is(hookErr, context.Canceled) {
		detail = hookErr.Error()
		attrs = append(attrs, logging.Error(hookErr))
	}
	c.logger.Info("daemon exited", logging.Args(attrs...)...)
	c.record(context.WithoutCancel(ctx), journal.ActionExit, journal.OutcomeExited, own, detail)
}

// Stop terminates the recorded instance. A missing pidfile is a no-op that
// reports terminate.NotRunning.
func (c *Controller) Stop(ctx context.Context) (terminate.Result, error) {
	if c.terminator == nil {
		return terminate.NotRunning, errors.New("daemon stop requires a terminator")
	}
	pid, _, _ := c.store.Read()

	c.setPhase(PhaseStopping)
	res, err := c.terminator.Terminate(ctx)
	c.setPhase(PhaseStopped)

	switch {
	case err != nil:
		c.record(ctx, journal.ActionStop, journal.OutcomeFailed, pid, err.Error())
		return res, err
	case res == terminate.NotRunning:
		c.logger.Info("daemon not running", logging.String(logging.FieldPIDFile, c.store.Path()))
		c.record(ctx, journal.ActionStop, journal.OutcomeNotRunning, 0, "")
	default:
		c.record(ctx, journal.ActionStop, journal.OutcomeTerminated, pid, "")
	}
	return res, nil
}

// Restart stops the current instance and starts a new one. A stop failure
// aborts before anything is launched.
func (c *Controller) Restart(ctx context.Context, args []string) error {
	res, err := c.Stop(ctx)
	if err != nil {
		c.record(ctx, journal.ActionRestart, journal.OutcomeFailed, 0, err.Error())
		return fmt.Errorf("restart: %w", err)
	}
	outcome := journal.OutcomeNotRunning
	if res == terminate.Terminated {
		outcome = journal.OutcomeTerminated
	}
	c.record(ctx, journal.ActionRestart, outcome, 0, "")
	return c.Start(ctx, args)
}

// Status reports the pidfile claim and whether its process is alive. It
// never modifies the pidfile.
func (c *Controller) Status(ctx context.Context) (Status, error) {
	st := Status{PIDFile: c.store.Path(), State: StateStopped}
	pid, ok, err := c.store.Read()
	if err != nil {
		return st, err
	}
	if !ok {
		return st, nil
	}
	st.PID = pid
	st.Process = c.inspect(ctx, pid)
	if st.Process.Alive {
		st.State = StateRunning
	} else {
		st.Stale = true
	}
	return st, nil
}

func (c *Controller) record(ctx context.Context, action journal.Action, outcome journal.Outcome, pid int, detail string) {
	if c.journal == nil {
		return
	}
	_, err := c.journal.Record(ctx, journal.Event{
		Action:     action,
		Outcome:    outcome,
		PID:        pid,
		InstanceID: c.instanceID,
		Detail:     detail,
	})
	if err != nil {
		logging.WarnWithContext(c.logger, "journal write failed", "journal_write_failed",
			logging.Error(err),
			logging.String("action", string(action)),
			logging.String(logging.FieldImpact, "lifecycle history incomplete"),
		)
	}
}

func notifySignals(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, syscall.SIGTERM, syscall.SIGINT)
}
