package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Purger deletes rows older than cutoff and reports how many were removed
type Purger interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// PurgeTarget is one store swept by the cleanup manager
type PurgeTarget struct {
	Name      string
	Store     Purger
	Retention time.Duration
}

// CleanupManager periodically removes attempt events and audit logs that are
// past their retention period
type CleanupManager struct {
	targets  []PurgeTarget
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCleanupManager creates a new cleanup manager. Targets with a nil store
// or a non-positive retention are skipped.
func NewCleanupManager(targets []PurgeTarget, logger *slog.Logger, interval time.Duration) *CleanupManager {
	kept := make([]PurgeTarget, 0, len(targets))
	for _, t := range targets {
		if t.Store == nil || t.Retention <= 0 {
			continue
		}
		kept = append(kept, t)
	}
	return &CleanupManager{
		targets:  kept,
		logger:   logger,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.RunOnce(ctx)

	for {
		select {
		case <-ticker.C:
			cm.RunOnce(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// RunOnce sweeps every target. A failing target does not stop the others.
func (cm *CleanupManager) RunOnce(ctx context.Context) {
	for _, t := range cm.targets {
		cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		cutoff := cm.now().Add(-t.Retention)

		rowsDeleted, err := t.Store.DeleteOlderThan(cleanupCtx, cutoff)
		cancel()
		if err != nil {
			cm.logger.Error("retention purge failed",
				slog.String("target", t.Name),
				slog.Any("error", err))
			continue
		}

		if rowsDeleted > 0 {
			cm.logger.Info("retention purge completed",
				slog.String("target", t.Name),
				slog.Int64("rows_deleted", rowsDeleted),
				slog.Time("cutoff", cutoff))
		}
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
