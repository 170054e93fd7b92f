// Package service provides the hooks the CLI can run inside a detached
// daemon.
package service

import (
	"fmt"
	"log/slog"

	"daemonkit/internal/config"
	"daemonkit/internal/daemon"
)

// New returns the hook selected by cfg.Service.Kind.
func New(cfg *config.Config, logger *slog.Logger) (daemon.ServiceHook, error) {
	if cfg == nil {
		return nil, fmt.Errorf("service: config is required")
	}
	switch cfg.Service.Kind {
	case config.ServiceHeartbeat:
		return NewHeartbeat(cfg.HeartbeatInterval(), logger), nil
	case config.ServiceExec:
		return NewExec(cfg.Service.Command, cfg.Service.Args, logger), nil
	default:
		return nil, fmt.Errorf("service: unknown kind %q", cfg.Service.Kind)
	}
}
