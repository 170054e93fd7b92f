//go:build unix

package terminate_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"daemonkit/internal/pidfile"
	"daemonkit/internal/terminate"
)

const stalePID = 99999999

func newStore(t *testing.T) *pidfile.Store {
	t.Helper()
	return pidfile.New(filepath.Join(t.TempDir(), "daemon.pid"))
}

// startChild launches a process and reaps it in the background so that a
// terminated child does not linger as a zombie that still accepts signals.
func startChild(t *testing.T, name string, args ...string) int {
	t.Helper()
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		t.Fatalf("start %s: %v", name, err)
	}
	done := make(chan struct{})
	go func() {
		_ = cmd.Wait()
		close(done)
	}()
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		<-done
	})
	return cmd.Process.Pid
}

func TestTerminateWithoutPIDFileIsNoop(t *testing.T) {
	store := newStore(t)
	term := terminate.New(store, terminate.Options{}, terminate.WithKill(func(int, syscall.Signal) error {
		t.Fatal("kill must not be called without a pid file")
		return nil
	}))

	res, err := term.Terminate(context.Background())
	if err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if res != terminate.NotRunning {
		t.Fatalf("result = %v, want not_running", res)
	}
	if _, err := os.Stat(store.Path()); !os.IsNotExist(err) {
		t.Fatal("pid file must not be created")
	}
}

func TestTerminateReconcilesStalePIDFile(t *testing.T) {
	store := newStore(t)
	if err := store.Write(stalePID); err != nil {
		t.Fatal(err)
	}

	res, err := terminate.New(store, terminate.Options{}).Terminate(context.Background())
	if err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if res != terminate.Terminated {
		t.Fatalf("result = %v, want terminated", res)
	}
	if _, ok, _ := store.Read(); ok {
		t.Fatal("stale pid file should be removed")
	}
}

func TestTerminateStopsRealProcess(t *testing.T) {
	store := newStore(t)
	pid := startChild(t, "sleep", "30")
	if err := store.Write(pid); err != nil {
		t.Fatal(err)
	}

	term := terminate.New(store, terminate.Options{PollInterval: 10 * time.Millisecond, Timeout: 10 * time.Second})
	res, err := term.Terminate(context.Background())
	if err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if res != terminate.Terminated {
		t.Fatalf("result = %v, want terminated", res)
	}
	if _, ok, _ := store.Read(); ok {
		t.Fatal("pid file should be removed after termination")
	}
	if err := syscall.Kill(pid, 0); !errors.Is(err, syscall.ESRCH) {
		t.Fatalf("process %d still present: %v", pid, err)
	}
}

func TestTerminateKeepsPIDFileOnPermissionError(t *testing.T) {
	store := newStore(t)
	if err := store.Write(4321); err != nil {
		t.Fatal(err)
	}
	var logs bytes.Buffer
	term := terminate.New(store, terminate.Options{Logger: slog.New(slog.NewJSONHandler(&logs, nil))}, terminate.WithKill(func(int, syscall.Signal) error {
		return syscall.EPERM
	}))

	_, err := term.Terminate(context.Background())
	if !errors.Is(err, syscall.EPERM) {
		t.Fatalf("error = %v, want EPERM", err)
	}
	if pid, ok, _ := store.Read(); !ok || pid != 4321 {
		t.Fatalf("pid file changed: %d, %v", pid, ok)
	}
	if out := logs.String(); !strings.Contains(out, `"event_type":"signal_failed"`) || !strings.Contains(out, `"error_hint"`) {
		t.Fatalf("expected signal failure record, got:\n%s", out)
	}
}

func TestTerminateSignalsEveryPollInterval(t *testing.T) {
	store := newStore(t)
	if err := store.Write(4321); err != nil {
		t.Fatal(err)
	}

	var signals []syscall.Signal
	var sleeps []time.Duration
	term := terminate.New(store, terminate.Options{PollInterval: 250 * time.Millisecond},
		terminate.WithKill(func(pid int, sig syscall.Signal) error {
			if pid != 4321 {
				t.Fatalf("signalled pid %d", pid)
			}
			signals = append(signals, sig)
			if len(signals) > 3 {
				return syscall.ESRCH
			}
			return nil
		}),
		terminate.WithSleep(func(_ context.Context, d time.Duration) error {
			sleeps = append(sleeps, d)
			return nil
		}),
	)

	res, err := term.Terminate(context.Background())
	if err != nil || res != terminate.Terminated {
		t.Fatalf("Terminate = %v, %v", res, err)
	}
	if len(signals) != 4 {
		t.Fatalf("signals sent = %d, want 4", len(signals))
	}
	for _, sig := range signals {
		if sig != syscall.SIGTERM {
			t.Fatalf("signal = %v, want SIGTERM", sig)
		}
	}
	if len(sleeps) != 3 {
		t.Fatalf("sleeps = %d, want 3", len(sleeps))
	}
	for _, d := range sleeps {
		if d != 250*time.Millisecond {
			t.Fatalf("sleep = %v, want 250ms", d)
		}
	}
}

func TestTerminateDefaultPollInterval(t *testing.T) {
	store := newStore(t)
	if err := store.Write(4321); err != nil {
		t.Fatal(err)
	}
	calls := 0
	var slept time.Duration
	term := terminate.New(store, terminate.Options{},
		terminate.WithKill(func(int, syscall.Signal) error {
			calls++
			if calls > 1 {
				return syscall.ESRCH
			}
			return nil
		}),
		terminate.WithSleep(func(_ context.Context, d time.Duration) error {
			slept = d
			return nil
		}),
	)
	if _, err := term.Terminate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if slept != terminate.DefaultPollInterval {
		t.Fatalf("poll interval = %v, want %v", slept, terminate.DefaultPollInterval)
	}
}

func TestTerminateTimesOutOnIgnoredSIGTERM(t *testing.T) {
	store := newStore(t)
	// SIG_IGN survives exec, so sleep inherits the ignored SIGTERM.
	pid := startChild(t, "sh", "-c", `trap "" TERM; exec sleep 30`)
	if err := store.Write(pid); err != nil {
		t.Fatal(err)
	}
	time.Sleep(100 * time.Millisecond)

	term := terminate.New(store, terminate.Options{PollInterval: 20 * time.Millisecond, Timeout: 300 * time.Millisecond})
	_, err := term.Terminate(context.Background())
	if !errors.Is(err, terminate.ErrTimeout) {
		t.Fatalf("error = %v, want ErrTimeout", err)
	}
	if got, ok, _ := store.Read(); !ok || got != pid {
		t.Fatalf("pid file should be kept on timeout, got %d, %v", got, ok)
	}
}

func TestTerminateHonoursContextCancellation(t *testing.T) {
	store := newStore(t)
	if err := store.Write(4321); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	term := terminate.New(store, terminate.Options{}, terminate.WithKill(func(int, syscall.Signal) error { return nil }))
	_, err := term.Terminate(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if _, ok, _ := store.Read(); !ok {
		t.Fatal("pid file should remain after cancellation")
	}
}

func TestTerminateRefusesOwnPID(t *testing.T) {
	store := newStore(t)
	if err := store.Write(os.Getpid()); err != nil {
		t.Fatal(err)
	}
	_, err := terminate.New(store, terminate.Options{}).Terminate(context.Background())
	if err == nil {
		t.Fatal("expected refusal to signal own pid")
	}
	if _, ok, _ := store.Read(); !ok {
		t.Fatal("pid file should remain")
	}
}

func TestTerminateRefusesInit(t *testing.T) {
	store := newStore(t)
	if err := store.Write(1); err != nil {
		t.Fatal(err)
	}
	if _, err := terminate.New(store, terminate.Options{}).Terminate(context.Background()); err == nil {
		t.Fatal("expected refusal to signal pid 1")
	}
}
