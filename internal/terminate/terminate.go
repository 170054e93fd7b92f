// Package terminate stops the process recorded in a pidfile.
package terminate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"

	"daemonkit/internal/logging"
	"daemonkit/internal/pidfile"
)

// DefaultPollInterval is the pause between SIGTERM deliveries.
const DefaultPollInterval = 100 * time.Millisecond

// Result describes how a terminate call ended.
type Result int

const (
	// NotRunning means no pidfile claim existed; nothing was touched.
	NotRunning Result = iota
	// Terminated means the recorded process is gone and the pidfile removed.
	Terminated
)

func (r Result) String() string {
	switch r {
	case NotRunning:
		return "not_running"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// ErrTimeout is returned when the process outlives Options.Timeout.
var ErrTimeout = errors.New("process did not exit before stop timeout")

// KillFunc delivers a signal, matching unix kill(2) semantics.
type KillFunc func(pid int, sig syscall.Signal) error

// Options configures a Terminator.
type Options struct {
	PollInterval time.Duration
	// Timeout bounds the signal loop when positive; zero waits forever.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Terminator repeatedly signals the recorded pid until it disappears.
type Terminator struct {
	store    *pidfile.Store
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger

	kill  KillFunc
	sleep func(context.Context, time.Duration) error
	now   func() time.Time
	self  int
}

// Option adjusts a Terminator for tests.
type Option func(*Terminator)

// WithKill replaces the signal delivery function.
func WithKill(fn KillFunc) Option {
	return func(t *Terminator) {
		if fn != nil {
			t.kill = fn
		}
	}
}

// WithSleep replaces the pause between signals.
func WithSleep(fn func(context.Context, time.Duration) error) Option {
	return func(t *Terminator) {
		if fn != nil {
			t.sleep = fn
		}
	}
}

// New returns a Terminator for store.
func New(store *pidfile.Store, opts Options, options ...Option) *Terminator {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	t := &Terminator{
		store:    store,
		interval: interval,
		timeout:  opts.Timeout,
		logger:   logging.NewComponentLogger(opts.Logger, "terminate"),
		kill:     defaultKill,
		sleep:    sleepContext,
		now:      time.Now,
		self:     os.Getpid(),
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

// Terminate sends SIGTERM to the recorded pid every poll interval until the
// kernel reports ESRCH, then deletes the pidfile. Any other signal error is
// returned with the pidfile left in place. A stale pidfile is reconciled on
// the first iteration.
func (t *Terminator) Terminate(ctx context.Context) (Result, error) {
	pid, ok, err := t.store.Read()
	if err != nil {
		return NotRunning, err
	}
	if !ok {
		t.logger.Debug("no pid file claim", logging.String(logging.FieldPIDFile, t.store.Path()))
		return NotRunning, nil
	}
	if pid <= 1 || pid == t.self {
		return NotRunning, fmt.Errorf("refusing to signal pid %d from %s", pid, t.store.Path())
	}

	var deadline time.Time
	if t.timeout > 0 {
		deadline = t.now().Add(t.timeout)
	}

	signals := 0
	for {
		err := t.kill(pid, syscall.SIGTERM)
		if errors.Is(err, syscall.ESRCH) {
			if delErr := t.store.Delete(); delErr != nil {
				return Terminated, delErr
			}
			t.logger.Info("process terminated",
				logging.PID(pid),
				logging.Int("signals_sent", signals),
				logging.String(logging.FieldEventType, "process_terminated"),
			)
			return Terminated, nil
		}
		if err != nil {
			logging.ErrorWithContext(t.logger, "signal delivery failed", "signal_failed",
				logging.PID(pid),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check that the pid file belongs to a process you may signal"),
			)
			return NotRunning, fmt.Errorf("signal pid %d: %w", pid, err)
		}
		signals++

		if !deadline.IsZero() && !t.now().Before(deadline) {
			logging.WarnWithContext(t.logger, "process still running after stop timeout", "stop_timeout",
				logging.PID(pid),
				logging.Duration("timeout", t.timeout),
				logging.String(logging.FieldErrorHint, "inspect the process or raise daemon.stop_timeout"),
				logging.String(logging.FieldImpact, "pid file left in place"),
			)
			return NotRunning, fmt.Errorf("pid %d: %w", pid, ErrTimeout)
		}
		if err := t.sleep(ctx, t.interval); err != nil {
			return NotRunning, err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
