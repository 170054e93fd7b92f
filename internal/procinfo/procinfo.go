// Package procinfo answers whether a recorded pid is alive and, when it is,
// what the process looks like.
package procinfo

import (
	"context"
	"errors"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// Info summarises one process. Detail fields stay empty when the platform or
// permissions do not expose them.
type Info struct {
	PID       int
	Alive     bool
	Name      string
	Cmdline   string
	Username  string
	StartedAt time.Time
	RSSBytes  uint64
}

// Uptime returns how long the process has run relative to now.
func (i Info) Uptime(now time.Time) time.Duration {
	if i.StartedAt.IsZero() || now.Before(i.StartedAt) {
		return 0
	}
	return now.Sub(i.StartedAt)
}

// Alive checks pid with signal 0. EPERM means the process exists under
// another user and counts as alive.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := signalZero(pid)
	return err == nil || errors.Is(err, syscall.EPERM)
}

// Inspect reports liveness for pid and fills in whatever details are
// readable. It never returns an error for a missing process.
func Inspect(ctx context.Context, pid int) Info {
	info := Info{PID: pid, Alive: Alive(pid)}
	if !info.Alive {
		return info
	}
	proc, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return info
	}
	if name, err := proc.NameWithContext(ctx); err == nil {
		info.Name = name
	}
	if cmdline, err := proc.CmdlineWithContext(ctx); err == nil {
		info.Cmdline = cmdline
	}
	if user, err := proc.UsernameWithContext(ctx); err == nil {
		info.Username = user
	}
	if created, err := proc.CreateTimeWithContext(ctx); err == nil && created > 0 {
		info.StartedAt = time.UnixMilli(created)
	}
	if mem, err := proc.MemoryInfoWithContext(ctx); err == nil && mem != nil {
		info.RSSBytes = mem.RSS
	}
	return info
}
