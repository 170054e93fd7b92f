package main

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"daemonkit/internal/daemon"
	"daemonkit/internal/journal"
	"daemonkit/internal/terminate"
	"daemonkit/internal/testsupport"
)

const stalePID = 99999999

func TestStatusWithoutPIDFile(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "== Daemon Status ==")
	requireContains(t, out, "[INFO] Stopped")
	requireContains(t, out, env.cfg.Daemon.PIDFile)
	requireContains(t, out, "Exclusive Guard:")
}

func TestStatusReportsStalePIDFile(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteFile(t, env.cfg.Daemon.PIDFile, strconv.Itoa(stalePID)+"\n")

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "[WARN] Stale pid file")
	if _, err := os.Stat(env.cfg.Daemon.PIDFile); err != nil {
		t.Fatalf("status must not remove the pid file: %v", err)
	}
}

func TestStatusReportsRunningProcess(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteFile(t, env.cfg.Daemon.PIDFile, strconv.Itoa(os.Getpid())+"\n")

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "[OK] Running (pid "+strconv.Itoa(os.Getpid())+")")
}

func TestStopWhenNotRunning(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"stop"}, env.configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Daemon is not running")
}

func TestStopClearsStalePIDFile(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteFile(t, env.cfg.Daemon.PIDFile, strconv.Itoa(stalePID)+"\n")

	out, _, err := runCLI(t, []string{"stop"}, env.configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Daemon stopped (pid 99999999)")
	if _, err := os.Stat(env.cfg.Daemon.PIDFile); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected pid file removed, stat err = %v", err)
	}
}

func TestStopTerminatesProcess(t *testing.T) {
	env := setupCLITestEnv(t)

	proc := exec.Command("sleep", "30")
	if err := proc.Start(); err != nil {
		t.Skipf("sleep unavailable: %v", err)
	}
	waited := make(chan struct{})
	go func() {
		_ = proc.Wait()
		close(waited)
	}()
	t.Cleanup(func() {
		_ = proc.Process.Kill()
		<-waited
	})
	testsupport.WriteFile(t, env.cfg.Daemon.PIDFile, strconv.Itoa(proc.Process.Pid)+"\n")

	out, _, err := runCLI(t, []string{"stop"}, env.configPath)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	requireContains(t, out, "Daemon stopped (pid "+strconv.Itoa(proc.Process.Pid)+")")

	select {
	case <-waited:
	case <-time.After(5 * time.Second):
		t.Fatal("process still running after stop")
	}
	if _, err := os.Stat(env.cfg.Daemon.PIDFile); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected pid file removed, stat err = %v", err)
	}
}

func TestStartRefusesExistingClaim(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteFile(t, env.cfg.Daemon.PIDFile, strconv.Itoa(os.Getpid())+"\n")

	out, _, err := runCLI(t, []string{"start"}, env.configPath)
	if !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	requireContains(t, err.Error(), "already running")
	if strings.Contains(out, "Starting daemon") {
		t.Fatalf("refused start should not announce a launch, got %q", out)
	}
}

func TestStartReportsStaleClaim(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteFile(t, env.cfg.Daemon.PIDFile, strconv.Itoa(stalePID)+"\n")

	_, _, err := runCLI(t, []string{"start"}, env.configPath)
	if !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	requireContains(t, err.Error(), "run stop to clear it")
}

func TestPIDFileFlagOverridesConfig(t *testing.T) {
	env := setupCLITestEnv(t)
	override := filepath.Join(env.baseDir, "other", "override.pid")

	out, _, err := runCLI(t, []string{"--pidfile", override, "status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, override)
}

func TestHistoryListsLifecycleEvents(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"stop"}, env.configPath); err != nil {
		t.Fatalf("stop: %v", err)
	}
	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "stop")
	requireContains(t, out, "not_running")
}

func TestHistoryEmptyJournal(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No lifecycle events recorded")
}

func TestHistoryRequiresJournal(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithJournalDisabled())

	_, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err == nil {
		t.Fatal("expected error with journal disabled")
	}
	requireContains(t, err.Error(), "journal is disabled")
}

func TestLogsPrintsTrailingLines(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteFile(t, filepath.Join(env.cfg.Logging.Dir, "daemonkit.log"), "one\ntwo\nthree\n")

	out, _, err := runCLI(t, []string{"logs", "-n", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if out != "two\nthree\n" {
		t.Fatalf("unexpected logs output %q", out)
	}
}

func TestLogsWithoutDaemonLog(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"logs"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "No daemon log at")
}

func TestHistoryNewestFirst(t *testing.T) {
	env := setupCLITestEnv(t)
	store := testsupport.MustOpenJournal(t, env.cfg)
	testsupport.RecordEvent(t, store, journal.ActionStart, journal.OutcomeStarted, 4242)
	testsupport.RecordEvent(t, store, journal.ActionExit, journal.OutcomeExited, 4242)

	out, _, err := runCLI(t, []string{"history", "--limit", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "exited")
	requireContains(t, out, "4242")
	if strings.Contains(out, "started") {
		t.Fatalf("expected only the newest event, got %q", out)
	}
}

func TestStopTimesOutOnStubbornProcess(t *testing.T) {
	env := setupCLITestEnv(t, testsupport.WithStopTimeout(1))

	proc := exec.Command("sh", "-c", `trap "" TERM; exec sleep 30`)
	if err := proc.Start(); err != nil {
		t.Skipf("sh unavailable: %v", err)
	}
	t.Cleanup(func() {
		_ = proc.Process.Kill()
		_ = proc.Wait()
	})
	// Let the shell install the trap before exec.
	time.Sleep(100 * time.Millisecond)
	testsupport.WriteFile(t, env.cfg.Daemon.PIDFile, strconv.Itoa(proc.Process.Pid)+"\n")

	_, _, err := runCLI(t, []string{"stop"}, env.configPath)
	if !errors.Is(err, terminate.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if _, err := os.Stat(env.cfg.Daemon.PIDFile); err != nil {
		t.Fatalf("pid file should remain after timeout: %v", err)
	}
}
