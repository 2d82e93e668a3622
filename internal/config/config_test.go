package config

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != "json" || cfg.Storage.Path != "tasks.json" {
		t.Fatalf("unexpected storage defaults: %+v", cfg.Storage)
	}
	if cfg.Storage.AutosaveInterval != 5*time.Minute || cfg.Storage.BackupAt != "03:00" {
		t.Fatalf("unexpected storage schedule: %+v", cfg.Storage)
	}
	if cfg.Reminders.PollInterval != time.Minute || cfg.Reminders.DismissSnooze != 5*time.Minute {
		t.Fatalf("unexpected reminder defaults: %+v", cfg.Reminders)
	}
	if !reflect.DeepEqual(cfg.Reminders.SnoozeChoices, []int{5, 10, 15, 30, 60}) {
		t.Fatalf("unexpected snooze choices: %v", cfg.Reminders.SnoozeChoices)
	}
	if !cfg.Reminders.NotificationsEnabled {
		t.Fatalf("notifications must default to enabled")
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskreminder.yaml")
	yaml := `
storage:
  driver: sqlite
  backup_at: "04:30"
reminders:
  poll_interval: 30s
  snooze_choices: [1, 2]
telegram:
  token: from-file
  chat_id: 42
log:
  format: json
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("TASKREMINDER_TELEGRAM_TOKEN", "from-env")
	t.Setenv("TASKREMINDER_REMINDERS_DISMISS_SNOOZE", "0s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage.Driver != "sqlite" || cfg.Storage.Path != "tasks.db" || cfg.Storage.BackupAt != "04:30" {
		t.Fatalf("file values not applied: %+v", cfg.Storage)
	}
	if cfg.Reminders.PollInterval != 30*time.Second || !reflect.DeepEqual(cfg.Reminders.SnoozeChoices, []int{1, 2}) {
		t.Fatalf("file reminder values not applied: %+v", cfg.Reminders)
	}
	if cfg.Telegram.Token != "from-env" || cfg.Telegram.ChatID != 42 {
		t.Fatalf("env must override file: %+v", cfg.Telegram)
	}
	if cfg.Reminders.DismissSnooze != 0 {
		t.Fatalf("expected dismiss snooze disabled, got %s", cfg.Reminders.DismissSnooze)
	}
	if cfg.Log.Format != "json" {
		t.Fatalf("unexpected log format %q", cfg.Log.Format)
	}
}

func TestLoadSnoozeChoicesFromEnv(t *testing.T) {
	t.Setenv("TASKREMINDER_REMINDERS_SNOOZE_CHOICES", "5, 20")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(cfg.Reminders.SnoozeChoices, []int{5, 20}) {
		t.Fatalf("unexpected snooze choices %v", cfg.Reminders.SnoozeChoices)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := map[string]string{
		"TASKREMINDER_STORAGE_DRIVER":           "postgres",
		"TASKREMINDER_STORAGE_BACKUP_AT":        "3am",
		"TASKREMINDER_REMINDERS_POLL_INTERVAL":  "10ms",
		"TASKREMINDER_REMINDERS_SNOOZE_CHOICES": "5,-1",
		"TASKREMINDER_LOG_LEVEL":                "loud",
		"TASKREMINDER_LOG_FORMAT":               "xml",
		"TASKREMINDER_TELEGRAM_TOKEN":           "token-without-chat",
		"TASKREMINDER_TIMEZONE":                 "Mars/Olympus",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(""); err == nil {
				t.Fatalf("expected %s=%s to be rejected", key, value)
			}
		})
	}
}

func TestLegacyTelegramTokenEnv(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "legacy")
	t.Setenv("TASKREMINDER_TELEGRAM_CHAT_ID", "7")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "legacy" || cfg.Telegram.ChatID != 7 {
		t.Fatalf("unexpected telegram config %+v", cfg.Telegram)
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	log, err := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	if err != nil {
		t.Fatalf("new logger: %v", err)
	}
	log.Info("hidden")
	log.Warn("shown", "task_id", 3)
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"task_id":3`) {
		t.Fatalf("unexpected log output %q", out)
	}
}
