// Package worker provides the weekly task scheduling used by the
// publisher mode.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	hoursPerDay = 24
	// defaultGracePeriod is 6 days - prevents duplicate runs within the same week.
	defaultGracePeriod = 6 * hoursPerDay * time.Hour

	logFieldTask = "task"
)

// WeeklyTask is a task that runs once per week at a specific time.
type WeeklyTask struct {
	// Name identifies the task for logging.
	Name string

	// Day is the day of the week to run (default: Sunday).
	Day time.Weekday

	// Hour is the hour of the day to run (0-23, default: 0).
	Hour int

	// GracePeriod prevents duplicate runs within this duration
	// (default: 6 days). The task won't run if less than this duration
	// has passed since the last successful run.
	GracePeriod time.Duration

	// Run executes the task.
	Run func(ctx context.Context, logger *zerolog.Logger) error

	lastRun time.Time
}

// SetLastRun seeds the last-run time, e.g. from a persisted run log, so
// a restart does not re-trigger a week that already published.
func (t *WeeklyTask) SetLastRun(lastRun time.Time) {
	t.lastRun = lastRun
}

// Due reports whether the task should run at the given instant.
func (t *WeeklyTask) Due(now time.Time) bool {
	return ShouldRunWeekly(now, t.Day, t.Hour, t.lastRun, t.GracePeriod)
}

// ShouldRunWeekly checks whether a weekly task scheduled for day/hour
// with the given grace period is due.
func ShouldRunWeekly(now time.Time, day time.Weekday, hour int, lastRun time.Time, gracePeriod time.Duration) bool {
	if now.Weekday() != day {
		return false
	}

	if now.Hour() != hour {
		return false
	}

	if gracePeriod == 0 {
		gracePeriod = defaultGracePeriod
	}

	if !lastRun.IsZero() && now.Sub(lastRun) <= gracePeriod {
		return false
	}

	return true
}

// RunLoop ticks at the given interval and executes the task whenever it
// is due, until the context is canceled. Task failures are logged and
// do not advance the last-run time, so the next tick inside the
// scheduling window retries.
func RunLoop(ctx context.Context, task *WeeklyTask, tick time.Duration, logger *zerolog.Logger) error {
	taskLogger := logger.With().Str(logFieldTask, task.Name).Logger()
	taskLogger.Info().Msg("weekly scheduler started")

	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("weekly scheduler %s: %w", task.Name, ctx.Err())
		case <-ticker.C:
			runIfDue(ctx, task, &taskLogger, time.Now())
		}
	}
}

func runIfDue(ctx context.Context, task *WeeklyTask, logger *zerolog.Logger, now time.Time) {
	if !task.Due(now) {
		return
	}

	logger.Info().Msgf("starting weekly %s", task.Name)

	if err := task.Run(ctx, logger); err != nil {
		logger.Error().Err(err).Msgf("failed to run weekly %s", task.Name)

		return
	}

	task.lastRun = now
}
