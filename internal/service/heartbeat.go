package service

import (
	"context"
	"log/slog"
	"time"

	"daemonkit/internal/logging"
)

// Heartbeat logs a line every interval until its context is cancelled. It is
// the default hook and doubles as a liveness check for the log pipeline.
type Heartbeat struct {
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

// NewHeartbeat returns a heartbeat hook. Non-positive intervals fall back to
// thirty seconds.
func NewHeartbeat(interval time.Duration, logger *slog.Logger) *Heartbeat {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Heartbeat{
		interval: interval,
		logger:   logging.NewComponentLogger(logger, "heartbeat"),
		now:      time.Now,
	}
}

// Run implements daemon.ServiceHook. Cancellation is a clean shutdown.
func (h *Heartbeat) Run(ctx context.Context, args []string) error {
	started := h.now()
	h.logger.Info("heartbeat service started",
		logging.Duration("interval", h.interval),
		logging.Strings("args", args),
		logging.String(logging.FieldEventType, "service_started"),
	)

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	beats := 0
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("heartbeat service stopping",
				logging.Int("beats", beats),
				logging.Duration("uptime", h.now().Sub(started).Round(time.Second)),
				logging.String(logging.FieldEventType, "service_stopping"),
			)
			return nil
		case <-ticker.C:
			beats++
			h.logger.Info("heartbeat",
				logging.Int("beat", beats),
				logging.Duration("uptime", h.now().Sub(started).Round(time.Second)),
			)
		}
	}
}
