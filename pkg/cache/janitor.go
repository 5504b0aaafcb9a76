package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Janitor sweeps expired entries out of the fallback tier on a cron
// schedule. The fallback tier has no store-native expiry, so without
// the janitor expired files would accumulate until read.
type Janitor struct {
	tier     *FileTier
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewJanitor creates a janitor sweeping the given file tier.
//
// Common cron expressions:
//   - "*/10 * * * *" - every 10 minutes
//   - "0 * * * *"    - hourly
func NewJanitor(tier *FileTier, schedule string) *Janitor {
	return &Janitor{
		tier:     tier,
		schedule: schedule,
		cron:     cron.New(),
		logger:   slog.Default().With("component", "cache.janitor"),
	}
}

// Start begins scheduled sweeping. An empty schedule disables the
// janitor. Stop is triggered by context cancellation.
func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.schedule == "" {
		j.logger.Info("janitor schedule not configured, skipping")
		return nil
	}

	if _, err := cron.ParseStandard(j.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", j.schedule, err)
	}

	if _, err := j.cron.AddFunc(j.schedule, func() {
		j.sweep(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule cache sweep: %w", err)
	}

	j.cron.Start()
	j.running = true
	j.logger.Info("cache janitor started", "schedule", j.schedule)

	go func() {
		<-ctx.Done()
		j.Stop()
	}()

	return nil
}

// Stop halts scheduled sweeping.
func (j *Janitor) Stop() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !j.running {
		return
	}
	j.cron.Stop()
	j.running = false
	j.logger.Info("cache janitor stopped")
}

func (j *Janitor) sweep(ctx context.Context) {
	deleted, err := j.tier.Sweep(ctx)
	if err != nil {
		j.logger.Warn("cache sweep failed", "error", err)
		return
	}
	if deleted > 0 {
		j.logger.Info("cache sweep completed", "deleted", deleted)
	}
}
