package main

import (
	"context"
	"errors"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"task-reminder/internal/bot"
	"task-reminder/internal/service"
)

const shutdownTimeout = 15 * time.Second

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the reminder loop and the Telegram bot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), *configPath, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			code, err := a.serve()
			if cerr := a.close(); cerr != nil {
				a.log.Warn("close storage", "err", cerr)
			}
			if err != nil {
				return err
			}
			if code != 0 {
				os.Exit(code)
			}
			return nil
		},
	}
}

// serve runs until SIGINT or SIGTERM and returns the shutdown exit code.
func (a *app) serve() (int, error) {
	cfg := a.cfg
	log := a.log

	var api *tgbotapi.BotAPI
	var notifier service.Notifier = service.LogNotifier{Log: log}
	if cfg.Telegram.Token != "" {
		var err error
		api, err = bot.NewAPI(cfg.Telegram.Token)
		if err != nil {
			return 0, err
		}
		log.Info("bot authorized", "account", api.Self.UserName)
		if cfg.Reminders.NotificationsEnabled {
			notifier = bot.NewTelegramNotifier(api, cfg.Telegram.ChatID, cfg.Reminders.SnoozeChoices)
		}
	} else {
		log.Warn("telegram token not set, reminders go to the log only")
	}

	reminders := service.NewReminderService(a.store, notifier, log, service.ReminderOptions{
		PollInterval:  cfg.Reminders.PollInterval,
		DismissSnooze: cfg.Reminders.DismissSnooze,
	})

	var tg *bot.Bot
	var digest service.DigestSender
	if api != nil {
		tg = bot.New(api, bot.Options{
			Store:         a.store,
			Reminders:     reminders,
			ChatID:        cfg.Telegram.ChatID,
			SnoozeChoices: cfg.Reminders.SnoozeChoices,
			Log:           log,
		})
		digest = tg.SendDigest
	}
	return a.run(reminders, tg, digest)
}

func (a *app) run(reminders *service.ReminderService, tg *bot.Bot, digest service.DigestSender) (int, error) {
	cfg := a.cfg
	log := a.log

	scheduler := service.NewSchedulerService(a.loc, log)
	err := service.RegisterJobs(scheduler, a.store, reminders, service.JobConfig{
		PollInterval:     cfg.Reminders.PollInterval,
		AutosaveInterval: cfg.Storage.AutosaveInterval,
		BackupDir:        cfg.Storage.BackupDir,
		BackupAt:         cfg.Storage.BackupAt,
		DigestAt:         cfg.Reminders.DigestAt,
	}, digest, log)
	if err != nil {
		return 0, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reminders.Tick(runCtx, reminders.Now())
	scheduler.Start()

	botDone := make(chan struct{})
	if tg != nil {
		go func() {
			defer close(botDone)
			if err := tg.Start(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("bot stopped with error", "err", err)
			}
		}()
	} else {
		close(botDone)
	}

	log.Info("task reminder started", "tasks", len(a.store.List()), "poll_interval", cfg.Reminders.PollInterval)

	wait := gfshutdown.GracefulShutdown(context.Background(), shutdownTimeout, map[string]gfshutdown.Operation{
		"bot": func(ctx context.Context) error {
			cancel()
			select {
			case <-botDone:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
		"scheduler": func(ctx context.Context) error {
			scheduler.Stop()
			return nil
		},
		"store": func(ctx context.Context) error {
			return a.store.Save(ctx)
		},
	})

	code := <-wait
	log.Info("shutdown complete", "exit_code", code)
	return code, nil
}
