// Package redirect rebinds the standard streams of a detached process.
package redirect

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"daemonkit/internal/logging"
)

// DevNull is the default target for every stream.
const DevNull = "/dev/null"

// ErrUnsupported is returned on platforms without dup2.
var ErrUnsupported = errors.New("redirect: unsupported platform")

// Targets names the files that replace stdin, stdout and stderr. Empty
// entries mean DevNull.
type Targets struct {
	Stdin  string
	Stdout string
	Stderr string
}

func (t Targets) withDefaults() Targets {
	if strings.TrimSpace(t.Stdin) == "" {
		t.Stdin = DevNull
	}
	if strings.TrimSpace(t.Stdout) == "" {
		t.Stdout = DevNull
	}
	if strings.TrimSpace(t.Stderr) == "" {
		t.Stderr = DevNull
	}
	return t
}

// Redirector duplicates opened targets onto a fixed descriptor triple.
type Redirector struct {
	stdinFD  int
	stdoutFD int
	stderrFD int
	logger   *slog.Logger
}

// Option adjusts a Redirector.
type Option func(*Redirector)

// WithDescriptors replaces the default 0/1/2 destinations.
func WithDescriptors(stdin, stdout, stderr int) Option {
	return func(r *Redirector) {
		r.stdinFD, r.stdoutFD, r.stderrFD = stdin, stdout, stderr
	}
}

// WithLogger attaches a logger for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Redirector) {
		r.logger = logging.NewComponentLogger(logger, "redirect")
	}
}

// New returns a Redirector targeting descriptors 0, 1 and 2.
func New(opts ...Option) *Redirector {
	r := &Redirector{
		stdinFD:  0,
		stdoutFD: 1,
		stderrFD: 2,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Redirect flushes pending output, opens the targets and duplicates them
// onto the configured descriptors. Stdin is opened read-only; stdout and
// stderr are opened for append and created with mode 0644 when missing.
// Nothing is duplicated unless all three targets open.
func (r *Redirector) Redirect(targets Targets) error {
	targets = targets.withDefaults()

	// Sync fails with EINVAL on pipes and terminals; only unwritten file
	// data matters here.
	_ = os.Stdout.Sync()
	_ = os.Stderr.Sync()

	in, err := os.OpenFile(targets.Stdin, os.O_RDONLY, 0)
	if err != nil {
		return fmt.Errorf("redirect stdin: %w", err)
	}
	defer in.Close()

	out, err := openAppend(targets.Stdout)
	if err != nil {
		return fmt.Errorf("redirect stdout: %w", err)
	}
	defer out.Close()

	errFile, err := openAppend(targets.Stderr)
	if err != nil {
		return fmt.Errorf("redirect stderr: %w", err)
	}
	defer errFile.Close()

	for _, pair := range []struct {
		name string
		file *os.File
		fd   int
	}{
		{"stdin", in, r.stdinFD},
		{"stdout", out, r.stdoutFD},
		{"stderr", errFile, r.stderrFD},
	} {
		if err := dupOnto(int(pair.file.Fd()), pair.fd); err != nil {
			return fmt.Errorf("redirect %s onto fd %d: %w", pair.name, pair.fd, err)
		}
	}

	r.logger.Debug("standard streams redirected",
		logging.String("stdin", targets.Stdin),
		logging.String("stdout", targets.Stdout),
		logging.String("stderr", targets.Stderr),
	)
	return nil
}

func openAppend(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
}
