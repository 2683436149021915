package worker

import (
	"context"
	"time"

	"github.com/roundbuy/notification-api/internal/service/device"
	"github.com/roundbuy/notification-api/internal/service/heartbeat"
	"github.com/roundbuy/notification-api/pkg/logger"
)

// RetentionWorker prunes stale device tokens and heartbeat checkpoints on a
// fixed interval.
type RetentionWorker struct {
	devices    device.Service
	heartbeats heartbeat.Service
	interval   time.Duration
	logger     *logger.Logger
}

func NewRetentionWorker(devices device.Service, heartbeats heartbeat.Service, interval time.Duration, logger *logger.Logger) *RetentionWorker {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &RetentionWorker{
		devices:    devices,
		heartbeats: heartbeats,
		interval:   interval,
		logger:     logger,
	}
}

func (w *RetentionWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("starting retention worker", "interval", w.interval.String())

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("shutting down retention worker")
			return
		case <-ticker.C:
			w.cleanup(ctx)
		}
	}
}

func (w *RetentionWorker) cleanup(ctx context.Context) {
	tokens, err := w.devices.CleanupInactive(ctx)
	if err != nil {
		w.logger.Error(err, "device token cleanup failed")
	} else if tokens > 0 {
		w.logger.Info("pruned stale device tokens", "deleted", tokens)
	}

	checkpoints, err := w.heartbeats.CleanupOldCheckpoints(ctx)
	if err != nil {
		w.logger.Error(err, "heartbeat checkpoint cleanup failed")
	} else if checkpoints > 0 {
		w.logger.Info("pruned old heartbeat checkpoints", "deleted", checkpoints)
	}
}
