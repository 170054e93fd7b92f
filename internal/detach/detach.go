// Package detach turns the calling process into a background daemon.
//
// A running Go program cannot fork, so each classic fork step is replaced by
// re-executing the same binary with a stage marker in its environment:
//
//	stage 0  launcher        spawn stage 1 in a new session, exit 0
//	stage 1  session leader  chdir, umask, spawn stage 2, exit 0
//	stage 2  daemon          clear marker, return to the caller
//
// Stage 2 is a member of the session created by stage 1 but not its leader,
// so it can never reacquire a controlling terminal. After stage 1 exits it is
// reparented to init (or the nearest subreaper).
package detach

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"daemonkit/internal/logging"
)

// StageEnv carries the detach stage across re-executions.
const StageEnv = "DAEMONKIT_DETACH_STAGE"

// Stage identifies a step of the detach sequence.
type Stage int

const (
	StageLauncher Stage = iota
	StageSessionLeader
	StageDaemon
)

func (s Stage) String() string {
	switch s {
	case StageLauncher:
		return "launcher"
	case StageSessionLeader:
		return "session_leader"
	case StageDaemon:
		return "daemon"
	default:
		return "stage_" + strconv.Itoa(int(s))
	}
}

// ErrUnsupported is returned on platforms without POSIX sessions.
var ErrUnsupported = errors.New("detach: unsupported platform")

// SpawnSpec describes one re-execution.
type SpawnSpec struct {
	Path   string
	Args   []string
	Env    []string
	Setsid bool
}

// SpawnFunc starts a process and returns its pid without waiting for it.
type SpawnFunc func(SpawnSpec) (int, error)

// System is the slice of process state a stage touches.
type System interface {
	Chdir(dir string) error
	Umask(mask int) int
	Getpid() int
	Getsid() (int, error)
	Executable() (string, error)
	Environ() []string
	Getenv(key string) string
	Unsetenv(key string) error
}

// Options configures a Detacher.
type Options struct {
	// Args are passed to every re-execution. The executable itself is
	// resolved through System.Executable.
	Args    []string
	WorkDir string
	Umask   int
	Logger  *slog.Logger
}

// Detacher runs the staged detach sequence.
type Detacher struct {
	args    []string
	workDir string
	umask   int
	logger  *slog.Logger

	spawn SpawnFunc
	exit  func(int)
	sys   System
}

// Option adjusts a Detacher, mainly for tests.
type Option func(*Detacher)

// WithSpawn replaces the process launcher.
func WithSpawn(fn SpawnFunc) Option {
	return func(d *Detacher) {
		if fn != nil {
			d.spawn = fn
		}
	}
}

// WithExit replaces os.Exit.
func WithExit(fn func(int)) Option {
	return func(d *Detacher) {
		if fn != nil {
			d.exit = fn
		}
	}
}

// WithSystem replaces the process state accessors.
func WithSystem(sys System) Option {
	return func(d *Detacher) {
		if sys != nil {
			d.sys = sys
		}
	}
}

// New builds a Detacher. Empty WorkDir means "/".
func New(opts Options, options ...Option) *Detacher {
	workDir := strings.TrimSpace(opts.WorkDir)
	if workDir == "" {
		workDir = "/"
	}
	d := &Detacher{
		args:    append([]string(nil), opts.Args...),
		workDir: workDir,
		umask:   opts.Umask,
		logger:  logging.NewComponentLogger(opts.Logger, "detach"),
		spawn:   spawnProcess,
		exit:    os.Exit,
		sys:     osSystem{},
	}
	for _, opt := range options {
		opt(d)
	}
	return d
}

// CurrentStage reports which stage this process is in.
func (d *Detacher) CurrentStage() (Stage, error) {
	return parseStage(d.sys.Getenv(StageEnv))
}

func parseStage(raw string) (Stage, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return StageLauncher, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < int(StageLauncher) || n > int(StageDaemon) {
		return 0, fmt.Errorf("detach: invalid %s value %q", StageEnv, raw)
	}
	return Stage(n), nil
}

// Detach returns nil only in the fully detached process. In the launcher and
// the session leader it calls the exit function with status 0 after the next
// stage has been spawned; a real exit never returns.
func (d *Detacher) Detach() error {
	stage, err := d.CurrentStage()
	if err != nil {
		return err
	}
	switch stage {
	case StageLauncher:
		if err := d.reexec(StageSessionLeader, true); err != nil {
			return err
		}
		d.exit(0)
		return nil
	case StageSessionLeader:
		if err := d.sys.Chdir(d.workDir); err != nil {
			return fmt.Errorf("detach: change directory to %s: %w", d.workDir, err)
		}
		d.sys.Umask(d.umask)
		if err := d.reexec(StageDaemon, false); err != nil {
			return err
		}
		d.exit(0)
		return nil
	default:
		return d.finish()
	}
}

func (d *Detacher) reexec(next Stage, setsid bool) error {
	path, err := d.sys.Executable()
	if err != nil {
		return fmt.Errorf("detach: resolve executable: %w", err)
	}
	spec := SpawnSpec{
		Path:   path,
		Args:   append([]string{path}, d.args...),
		Env:    withStage(d.sys.Environ(), next),
		Setsid: setsid,
	}
	pid, err := d.spawn(spec)
	if err != nil {
		return fmt.Errorf("detach: spawn %s: %w", next, err)
	}
	d.logger.Debug("detach stage spawned",
		logging.String(logging.FieldStage, next.String()),
		logging.PID(pid),
		logging.Bool("setsid", setsid),
	)
	return nil
}

func (d *Detacher) finish() error {
	if err := d.sys.Unsetenv(StageEnv); err != nil {
		return fmt.Errorf("detach: clear %s: %w", StageEnv, err)
	}
	pid := d.sys.Getpid()
	sid, err := d.sys.Getsid()
	if err != nil {
		return fmt.Errorf("detach: query session: %w", err)
	}
	if sid == pid {
		return fmt.Errorf("detach: pid %d is still a session leader", pid)
	}
	d.logger.Debug("detached",
		logging.String(logging.FieldStage, StageDaemon.String()),
		logging.PID(pid),
		logging.Int("sid", sid),
	)
	return nil
}

func withStage(env []string, stage Stage) []string {
	prefix := StageEnv + "="
	out := make([]string, 0, len(env)+1)
	for _, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			continue
		}
		out = append(out, kv)
	}
	return append(out, prefix+strconv.Itoa(int(stage)))
}

// IsLauncher reports whether the current process is the original invocation
// rather than a re-executed stage.
func IsLauncher() bool {
	stage, err := parseStage(os.Getenv(StageEnv))
	return err == nil && stage == StageLauncher
}
