package workers

import (
	"context"
	"sync"
	"time"

	"opencalc/internal/metrics"
	"opencalc/pkg/errors"
	"opencalc/pkg/logger"
)

// A full snapshot sweep walks every tracked symbol against the provider
// rate limit, so in-flight cycles get a generous window to drain.
const shutdownTimeout = 30 * time.Second

// Scheduler runs each registered worker on its own ticker. Workers are
// independent: a slow snapshot sweep never delays the trade monitor.
type Scheduler struct {
	mu      sync.RWMutex
	workers []Worker
	started bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	log *logger.Logger
}

// NewScheduler creates an empty scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{log: logger.Get()}
}

// RegisterWorker adds a worker. Registration after Start is ignored since
// the launch loop has already run.
func (s *Scheduler) RegisterWorker(w Worker) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		s.log.Warnw("Worker registered after start, ignoring", "worker", w.Name())
		return
	}

	s.workers = append(s.workers, w)
	s.log.Infow("Worker registered", "worker", w.Name(), "interval", w.Interval())
}

// Start launches every enabled worker. Each runs once immediately and then
// on its interval until the context is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.Wrap(errors.ErrInternal, "scheduler already started")
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	launched := 0
	for _, w := range s.workers {
		if !w.Enabled() {
			s.log.Infow("Worker disabled, skipping", "worker", w.Name())
			continue
		}

		s.wg.Add(1)
		go s.loop(w)
		launched++
	}

	s.log.Infow("Scheduler started", "workers", launched)
	return nil
}

// Stop cancels all workers and waits for in-flight runs to finish, up to
// shutdownTimeout.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return errors.Wrap(errors.ErrInternal, "scheduler not started")
	}
	s.cancel()
	s.mu.Unlock()

	drained := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(drained)
	}()

	var err error
	select {
	case <-drained:
		s.log.Info("Scheduler stopped")
	case <-time.After(shutdownTimeout):
		s.log.Warnw("Scheduler shutdown timed out", "timeout", shutdownTimeout)
		err = errors.Wrapf(errors.ErrTimeout, "worker shutdown after %s", shutdownTimeout)
	}

	s.mu.Lock()
	s.started = false
	s.mu.Unlock()

	return err
}

func (s *Scheduler) loop(w Worker) {
	defer s.wg.Done()

	ticker := time.NewTicker(w.Interval())
	defer ticker.Stop()

	s.run(w)

	for {
		select {
		case <-s.ctx.Done():
			s.log.Infow("Worker stopped", "worker", w.Name())
			return
		case <-ticker.C:
			s.run(w)
		}
	}
}

// run executes one iteration. Panics are contained here so a bad provider
// payload in one sweep cannot kill the loop.
func (s *Scheduler) run(w Worker) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			s.log.Errorw("Worker panicked", "worker", w.Name(), "panic", r)
		}
	}()

	err := w.Run(s.ctx)
	metrics.RecordWorkerExecution(w.Name(), time.Since(start), err)

	if err != nil {
		s.log.Errorw("Worker run failed", "worker", w.Name(), "error", err, "duration", time.Since(start))
		return
	}
	s.log.Debugw("Worker run completed", "worker", w.Name(), "duration", time.Since(start))
}

// GetWorkers returns the registered workers, for the health surface.
func (s *Scheduler) GetWorkers() []Worker {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Worker, len(s.workers))
	copy(out, s.workers)
	return out
}

// IsRunning reports whether Start has been called without a matching Stop.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}
