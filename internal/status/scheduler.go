package status

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultInterval = time.Minute

// Reconciler is the part of *Updater the Scheduler needs.
type Reconciler interface {
	Run(ctx context.Context, now time.Time, trigger Trigger) (int, error)
}

// Scheduler runs the batch updater once at startup and then on a fixed interval, so
// matches complete even when nobody has a dashboard open.
type Scheduler struct {
	updater  Reconciler
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time

	done     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
	startMu  sync.Mutex
	started  bool
}

// NewScheduler constructs a Scheduler. A non-positive interval falls back to one minute.
func NewScheduler(updater Reconciler, logger *slog.Logger, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = defaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		updater:  updater,
		logger:   logger,
		interval: interval,
		now:      time.Now,
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Start launches the loop in a goroutine. It returns immediately; calling it twice is a no-op.
// The loop ends when ctx is cancelled or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.startMu.Lock()
	if s.started {
		s.startMu.Unlock()
		return
	}
	s.started = true
	s.startMu.Unlock()

	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("status scheduler started", slog.Duration("interval", s.interval))
		s.tick(ctx)

		for {
			select {
			case <-ctx.Done():
				s.logger.Info("status scheduler stopped")
				return
			case <-s.done:
				s.logger.Info("status scheduler stopped")
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}()
}

// Stop halts the loop and waits for an in-flight run to finish or for ctx to expire.
// It is safe to call more than once, and before Start.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.stopOnce.Do(func() { close(s.done) })

	s.startMu.Lock()
	started := s.started
	s.startMu.Unlock()
	if !started {
		return nil
	}

	select {
	case <-s.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// tick runs the updater once. Failures are logged and retried on the next tick.
func (s *Scheduler) tick(ctx context.Context) {
	start := time.Now()
	n, err := s.updater.Run(ctx, s.now(), TriggerInterval)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Error("status update failed",
			slog.Any("error", err),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return
	}
	if n > 0 {
		s.logger.Debug("status update finished",
			slog.Int("completed", n),
			slog.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	}
}
