package refresh

import (
	"context"
	"time"

	"opencalc/internal/adapters/config"
	"opencalc/internal/workers"
)

// SnapshotService is the slice of the snapshot service the worker drives.
type SnapshotService interface {
	RefreshAll(ctx context.Context) error
}

// SnapshotRefresher periodically regenerates the strike snapshot for every
// tracked symbol.
type SnapshotRefresher struct {
	*workers.BaseWorker
	snapshots SnapshotService
}

// NewSnapshotRefresher creates the snapshot refresh worker
func NewSnapshotRefresher(snapshots SnapshotService, cfg config.WorkerConfig) *SnapshotRefresher {
	return &SnapshotRefresher{
		BaseWorker: workers.NewBaseWorker(
			"snapshot_refresher",
			cfg.SnapshotRefreshInterval,
			cfg.SnapshotRefreshEnabled,
		),
		snapshots: snapshots,
	}
}

// Run refreshes every tracked symbol's snapshot once
func (w *SnapshotRefresher) Run(ctx context.Context) error {
	start := time.Now()
	w.Log().Infow("Starting snapshot refresh cycle")

	if err := w.snapshots.RefreshAll(ctx); err != nil {
		w.RecordError(err, time.Since(start))
		return err
	}

	w.RecordRun(time.Since(start))
	w.Log().Infow("Snapshot refresh cycle complete", "duration", time.Since(start))
	return nil
}
