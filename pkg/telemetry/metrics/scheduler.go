package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Scheduler persists the aggregator's snapshots on a cron schedule, in
// addition to the throttled write-through persistence on the request
// path. The schedule keeps the cached snapshots fresh on idle instances
// whose write-through path never fires.
type Scheduler struct {
	aggregator *Aggregator
	schedule   string
	cron       *cron.Cron
	mu         sync.Mutex
	logger     *slog.Logger
	running    bool
}

// NewScheduler creates a persistence scheduler. An empty schedule
// disables it.
func NewScheduler(aggregator *Aggregator, schedule string) *Scheduler {
	return &Scheduler{
		aggregator: aggregator,
		schedule:   schedule,
		cron:       cron.New(),
		logger:     slog.Default().With("component", "metrics.scheduler"),
	}
}

// Start begins scheduled persistence based on the cron expression.
// If the schedule is empty, Start does nothing.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("persist schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", s.schedule, err)
	}

	_, err := s.cron.AddFunc(s.schedule, func() {
		s.logger.Debug("persisting metric snapshots")
		s.aggregator.Persist(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule metrics persistence: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("metrics persistence scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Stop stops the scheduler and waits for any running job to complete.
// A final persistence pass runs so no in-memory updates are lost on
// shutdown.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.running = false
		s.aggregator.Persist(context.Background())
		s.logger.Info("metrics persistence scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}
