package workflow

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"subforge/internal/logging"
	"subforge/internal/queue"
)

// heartbeatMonitor keeps a liveness timestamp on in-flight jobs so an
// interrupted run is distinguishable from a slow one.
type heartbeatMonitor struct {
	store    *queue.Store
	logger   *slog.Logger
	interval time.Duration
}

func newHeartbeatMonitor(store *queue.Store, logger *slog.Logger, interval time.Duration) *heartbeatMonitor {
	if logger == nil {
		logger = logging.NewNop()
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &heartbeatMonitor{
		store:    store,
		logger:   logger.With(logging.String(logging.FieldComponent, "workflow-heartbeat")),
		interval: interval,
	}
}

// startLoop updates a job's heartbeat until context cancellation. When a
// stop request lands on the job from another process, onStop fires once and
// the loop exits.
func (h *heartbeatMonitor) startLoop(ctx context.Context, wg *sync.WaitGroup, jobID int64, onStop func()) {
	defer wg.Done()
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.store.Heartbeat(ctx, jobID); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				h.logger.Warn("heartbeat update failed", logging.Error(err))
				continue
			}
			if h.stopRequested(ctx, jobID) {
				h.logger.Info("stop request detected", logging.Int64("job_id", jobID))
				if onStop != nil {
					onStop()
				}
				return
			}
		}
	}
}

func (h *heartbeatMonitor) stopRequested(ctx context.Context, jobID int64) bool {
	job, err := h.store.GetByID(ctx, jobID)
	if err != nil || job == nil {
		return false
	}
	return job.Status == queue.StatusFailed && job.ErrorMessage == queue.UserStopReason
}
