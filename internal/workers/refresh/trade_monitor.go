package refresh

import (
	"context"
	"time"

	"github.com/google/uuid"

	"opencalc/internal/adapters/config"
	"opencalc/internal/workers"
	"opencalc/pkg/errors"
)

// TrackerService is the slice of the tracker service the worker drives.
type TrackerService interface {
	RefreshOpen(ctx context.Context, userID uuid.UUID) error
}

// OpenTradeLister finds the users whose positions need refreshing.
type OpenTradeLister interface {
	UsersWithOpenTrades(ctx context.Context) ([]uuid.UUID, error)
}

// TradeMonitor periodically refreshes the tracking metrics of every open
// trade across all users.
type TradeMonitor struct {
	*workers.BaseWorker
	tracker TrackerService
	trades  OpenTradeLister
}

// NewTradeMonitor creates the trade monitor worker
func NewTradeMonitor(tracker TrackerService, trades OpenTradeLister, cfg config.WorkerConfig) *TradeMonitor {
	return &TradeMonitor{
		BaseWorker: workers.NewBaseWorker(
			"trade_monitor",
			cfg.TradeMonitorInterval,
			cfg.TradeMonitorEnabled,
		),
		tracker: tracker,
		trades:  trades,
	}
}

// Run refreshes open positions user by user. One user's failure does not
// stop the sweep.
func (w *TradeMonitor) Run(ctx context.Context) error {
	start := time.Now()

	users, err := w.trades.UsersWithOpenTrades(ctx)
	if err != nil {
		err = errors.Wrap(err, "list users with open trades")
		w.RecordError(err, time.Since(start))
		return err
	}
	if len(users) == 0 {
		w.RecordRun(time.Since(start))
		return nil
	}

	failed := 0
	for _, userID := range users {
		if err := w.tracker.RefreshOpen(ctx, userID); err != nil {
			w.Log().Errorw("Trade refresh failed for user", "user_id", userID, "error", err)
			failed++
		}
	}

	if failed > 0 {
		err := errors.Wrapf(errors.ErrInternal, "trade refresh failed for %d of %d users", failed, len(users))
		w.RecordError(err, time.Since(start))
		return err
	}

	w.RecordRun(time.Since(start))
	w.Log().Infow("Trade monitor sweep complete", "users", len(users), "duration", time.Since(start))
	return nil
}
