package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"task-reminder/internal/repository"
)

// JobConfig selects which periodic jobs run and when.
type JobConfig struct {
	PollInterval     time.Duration
	AutosaveInterval time.Duration
	BackupDir        string
	// BackupAt is a daily HH:MM; empty disables backups.
	BackupAt string
	// DigestAt is a daily HH:MM; empty disables the summary.
	DigestAt   string
	JobTimeout time.Duration
}

// DigestSender delivers the daily summary.
type DigestSender func(ctx context.Context, text string) error

// Autosave saves the collection when it changed since the last save.
func (s *TaskService) Autosave(ctx context.Context) error {
	if !s.Dirty() {
		return nil
	}
	return s.Save(ctx)
}

// Backup writes a timestamped copy of the collection into dir.
func (s *TaskService) Backup(ctx context.Context, dir string, now time.Time) (string, error) {
	path, err := repository.Backup(ctx, s.List(), dir, now.In(s.loc))
	if err != nil {
		return "", err
	}
	s.log.Info("backup written", "path", path)
	return path, nil
}

// RegisterJobs adds the reminder poll, autosave, backup and digest jobs to sched.
func RegisterJobs(sched *SchedulerService, store *TaskService, reminders *ReminderService, cfg JobConfig, sendDigest DigestSender, log *slog.Logger) error {
	if log == nil {
		log = slog.Default()
	}
	timeout := cfg.JobTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	run := func(name string, job func(ctx context.Context) error) func() {
		return func() {
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			if err := job(ctx); err != nil {
				log.Warn("job failed", "job", name, "err", err)
			}
		}
	}

	if _, err := sched.ScheduleInterval(cfg.PollInterval, run("reminders", func(ctx context.Context) error {
		reminders.Tick(ctx, reminders.Now())
		return nil
	})); err != nil {
		return fmt.Errorf("schedule reminders: %w", err)
	}

	if cfg.AutosaveInterval > 0 {
		if _, err := sched.ScheduleInterval(cfg.AutosaveInterval, run("autosave", store.Autosave)); err != nil {
			return fmt.Errorf("schedule autosave: %w", err)
		}
	}

	if cfg.BackupAt != "" {
		if _, err := sched.ScheduleDaily(cfg.BackupAt, run("backup", func(ctx context.Context) error {
			_, err := store.Backup(ctx, cfg.BackupDir, reminders.Now())
			return err
		})); err != nil {
			return fmt.Errorf("schedule backup: %w", err)
		}
	}

	if cfg.DigestAt != "" && sendDigest != nil {
		if _, err := sched.ScheduleDaily(cfg.DigestAt, run("digest", func(ctx context.Context) error {
			return sendDigest(ctx, reminders.DailySummary(reminders.Now()))
		})); err != nil {
			return fmt.Errorf("schedule digest: %w", err)
		}
	}
	return nil
}
