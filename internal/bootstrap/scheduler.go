package bootstrap

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"medequip-backend/config"
	"medequip-backend/utils"
)

const (
	dailySchedule = "0 1 * * *"
	maxRetries    = 3
	retryDelay    = 30 * time.Second
)

// StatusRefresher moves open PMs between Upcoming, Due and Overdue.
type StatusRefresher interface {
	Refresh(ctx context.Context) (int, error)
}

// SchedulerConfig lists the nightly maintenance work.
type SchedulerConfig struct {
	PMRefresher StatusRefresher
	CleanupDirs []string
	FileTTL     time.Duration
	Schedule    string
	RetryDelay  time.Duration
}

// StartScheduler registers the nightly jobs and starts the cron runner. The
// caller stops it on shutdown.
func StartScheduler(cfg SchedulerConfig) (*cron.Cron, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = dailySchedule
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = retryDelay
	}
	c := cron.New(cron.WithLocation(utils.DateLocation))

	if cfg.PMRefresher != nil {
		if _, err := c.AddFunc(cfg.Schedule, func() { refreshPMStatuses(cfg) }); err != nil {
			return nil, err
		}
	}
	if len(cfg.CleanupDirs) > 0 {
		if _, err := c.AddFunc(cfg.Schedule, func() { cleanupFiles(cfg) }); err != nil {
			return nil, err
		}
	}

	c.Start()
	config.Logger.Info("Scheduler started", zap.String("schedule", cfg.Schedule), zap.Int("jobs", len(c.Entries())))
	return c, nil
}

func refreshPMStatuses(cfg SchedulerConfig) {
	withRetries("pm status refresh", cfg.RetryDelay, func() error {
		moved, err := cfg.PMRefresher.Refresh(context.Background())
		if err == nil {
			config.Logger.Info("PM statuses refreshed", zap.Int("moved", moved))
		}
		return err
	})
}

func cleanupFiles(cfg SchedulerConfig) {
	withRetries("file cleanup", cfg.RetryDelay, func() error {
		return utils.CleanupAllExpired(cfg.CleanupDirs, cfg.FileTTL)
	})
}

func withRetries(name string, delay time.Duration, fn func() error) {
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return
		}
		config.Logger.Warn("Scheduled task failed",
			zap.String("task", name),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt < maxRetries {
			time.Sleep(delay)
		}
	}
	config.Logger.Error("Scheduled task gave up", zap.String("task", name), zap.Int("attempts", maxRetries))
}
