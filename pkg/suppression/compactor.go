package suppression

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultCompactionSchedule runs compaction every 30 minutes.
const DefaultCompactionSchedule = "*/30 * * * *"

// DefaultGracePeriod is how long an expired record is kept before compaction
// removes it.
const DefaultGracePeriod = 24 * time.Hour

// Compactor removes expired suppression records on a cron schedule.
type Compactor struct {
	manager  *Manager
	schedule string
	grace    time.Duration
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewCompactor creates a compactor. An empty schedule disables it.
func NewCompactor(manager *Manager, schedule string, grace time.Duration, logger *slog.Logger) *Compactor {
	if grace < 0 {
		grace = 0
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Compactor{
		manager:  manager,
		schedule: schedule,
		grace:    grace,
		logger:   logger.With("component", "suppression.compactor"),
	}
}

// Start schedules compaction and returns immediately. The compactor stops
// when ctx is cancelled or Stop is called.
//
// Common schedules:
//   - "*/30 * * * *" - Every 30 minutes
//   - "0 * * * *"    - Hourly
//   - "0 3 * * *"    - Daily at 3 AM
func (c *Compactor) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.schedule == "" {
		c.logger.Info("Compaction schedule not configured, skipping")
		return nil
	}
	if c.running {
		return nil
	}

	if _, err := cron.ParseStandard(c.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", c.schedule, err)
	}

	// Each start gets its own scheduler so a restart does not stack jobs.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(c.schedule, func() {
		_, _ = c.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule compaction: %w", err)
	}

	scheduler.Start()
	c.cron = scheduler
	c.running = true

	c.logger.Info("Compactor started",
		"schedule", c.schedule,
		"grace_period", c.grace,
	)

	go func() {
		<-ctx.Done()
		c.Stop()
	}()

	return nil
}

// RunOnce performs a single compaction pass.
func (c *Compactor) RunOnce(ctx context.Context) (int, error) {
	deleted, err := c.manager.Compact(ctx, c.grace)
	if err != nil {
		c.logger.Error("Compaction failed", "error", err)
		return 0, err
	}

	if deleted > 0 {
		c.logger.Info("Compaction completed", "deleted_count", deleted)
	} else {
		c.logger.Debug("Compaction completed, no records deleted")
	}
	return deleted, nil
}

// Stop stops the schedule and waits for a running pass to finish.
func (c *Compactor) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		done := c.cron.Stop()
		<-done.Done()
		c.running = false
		c.logger.Info("Compactor stopped")
	}
}

// IsRunning reports whether the schedule is active.
func (c *Compactor) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.running
}

// NextRun returns the next scheduled compaction, or nil when not scheduled.
func (c *Compactor) NextRun() *time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil
	}
	entries := c.cron.Entries()
	if len(entries) == 0 {
		return nil
	}

	next := entries[0].Next
	return &next
}
