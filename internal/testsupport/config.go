package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"daemonkit/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// The pidfile, logs, redirection targets and journal all live under one
// temp root; options adjust the rest.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Daemon.PIDFile = filepath.Join(base, "run", "daemonkit.pid")
	cfgVal.Daemon.Stdout = filepath.Join(base, "logs", "stdout.log")
	cfgVal.Daemon.Stderr = filepath.Join(base, "logs", "stderr.log")
	cfgVal.Daemon.WorkDir = base
	cfgVal.Daemon.StopPollIntervalMS = 10
	cfgVal.Logging.Dir = filepath.Join(base, "logs")
	cfgVal.Journal.Path = filepath.Join(base, "state", "journal.db")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return builder.cfg
}

// WithExclusive enables the flock guard.
func WithExclusive() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Daemon.Exclusive = true
	}
}

// WithStopTimeout bounds the stop loop.
func WithStopTimeout(seconds int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Daemon.StopTimeout = seconds
	}
}

// WithJournalDisabled turns the lifecycle journal off.
func WithJournalDisabled() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Journal.Enabled = false
	}
}

// WithExecService selects the exec hook.
func WithExecService(command string, args ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Service.Kind = config.ServiceExec
		b.cfg.Service.Command = command
		b.cfg.Service.Args = args
	}
}

// StubBinaries writes executables that exit 0 into dir and prepends dir to
// PATH for the duration of the test.
func StubBinaries(t testing.TB, dir string, names ...string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir bin dir: %v", err)
	}
	script := []byte("#!/bin/sh\nexit 0\n")
	for _, name := range names {
		target := filepath.Join(dir, name)
		if err := os.WriteFile(target, script, 0o755); err != nil {
			t.Fatalf("write stub %s: %v", name, err)
		}
	}

	oldPath := os.Getenv("PATH")
	if err := os.Setenv("PATH", dir+string(os.PathListSeparator)+oldPath); err != nil {
		t.Fatalf("set PATH: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Setenv("PATH", oldPath)
	})
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return cfg.Daemon.WorkDir
}
