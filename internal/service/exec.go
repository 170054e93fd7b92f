package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"daemonkit/internal/logging"
)

// ExecFunc replaces the process image; it only returns on failure.
type ExecFunc func(path string, argv []string, env []string) error

// Exec replaces the daemon with an external command. The pid recorded in the
// pidfile therefore becomes the command's pid, and the controller's exit
// cleanup never runs; stop reconciles the pidfile once the command is gone.
type Exec struct {
	command string
	args    []string
	logger  *slog.Logger
	exec    ExecFunc
	look    func(string) (string, error)
}

// NewExec returns an exec hook for command with fixed leading args.
func NewExec(command string, args []string, logger *slog.Logger) *Exec {
	return &Exec{
		command: strings.TrimSpace(command),
		args:    append([]string(nil), args...),
		logger:  logging.NewComponentLogger(logger, "exec"),
		exec:    execImage,
		look:    exec.LookPath,
	}
}

// WithExecFunc swaps the image replacement, for tests.
func (e *Exec) WithExecFunc(fn ExecFunc) *Exec {
	if fn != nil {
		e.exec = fn
	}
	return e
}

// Argv returns the argument vector the command will receive: the configured
// args followed by the control command's positional args.
func (e *Exec) Argv(args []string) []string {
	argv := make([]string, 0, 1+len(e.args)+len(args))
	argv = append(argv, e.command)
	argv = append(argv, e.args...)
	return append(argv, args...)
}

// ReplacesProcess reports that Run execs the command in place of the daemon.
func (e *Exec) ReplacesProcess() bool { return true }

// Run implements daemon.ServiceHook.
func (e *Exec) Run(ctx context.Context, args []string) error {
	if e.command == "" {
		return errors.New("exec service: command is empty")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := e.look(e.command)
	if err != nil {
		return fmt.Errorf("exec service: resolve %s: %w", e.command, err)
	}
	argv := e.Argv(args)
	e.logger.Info("replacing daemon image",
		logging.String("path", path),
		logging.Strings("argv", argv),
		logging.PID(os.Getpid()),
		logging.String(logging.FieldEventType, "service_exec"),
	)
	if err := e.exec(path, argv, os.Environ()); err != nil {
		return fmt.Errorf("exec service: %s: %w", path, err)
	}
	return nil
}
