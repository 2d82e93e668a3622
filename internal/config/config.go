package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "TASKREMINDER"

// Config keeps runtime settings.
type Config struct {
	Telegram  TelegramConfig
	Storage   StorageConfig
	Reminders ReminderConfig
	Log       LogConfig
	// Timezone names the zone due dates are read in. "Local" uses the host zone.
	Timezone string
}

type TelegramConfig struct {
	Token  string
	ChatID int64
}

type StorageConfig struct {
	Driver           string
	Path             string
	AutosaveInterval time.Duration
	BackupDir        string
	BackupAt         string
}

type ReminderConfig struct {
	PollInterval         time.Duration
	DismissSnooze        time.Duration
	SnoozeChoices        []int
	NotificationsEnabled bool
	DigestAt             string
}

type LogConfig struct {
	Level  string
	Format string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.chat_id", 0)
	v.SetDefault("storage.driver", "json")
	v.SetDefault("storage.path", "")
	v.SetDefault("storage.autosave_interval", "5m")
	v.SetDefault("storage.backup_dir", "backups")
	v.SetDefault("storage.backup_at", "03:00")
	v.SetDefault("reminders.poll_interval", "60s")
	v.SetDefault("reminders.dismiss_snooze", "5m")
	v.SetDefault("reminders.snooze_choices", []int{5, 10, 15, 30, 60})
	v.SetDefault("reminders.notifications_enabled", true)
	v.SetDefault("reminders.digest_at", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("timezone", "Local")
}

// Load reads defaults, then the YAML file at path (or ./taskreminder.yaml when path
// is empty and the file exists), then TASKREMINDER_* environment variables.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Older deployments only set TELEGRAM_TOKEN.
	if err := v.BindEnv("telegram.token", envPrefix+"_TELEGRAM_TOKEN", "TELEGRAM_TOKEN"); err != nil {
		return Config{}, fmt.Errorf("bind env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("taskreminder")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	choices, err := intSlice(v, "reminders.snooze_choices")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Telegram: TelegramConfig{
			Token:  strings.TrimSpace(v.GetString("telegram.token")),
			ChatID: v.GetInt64("telegram.chat_id"),
		},
		Storage: StorageConfig{
			Driver:           strings.ToLower(strings.TrimSpace(v.GetString("storage.driver"))),
			Path:             strings.TrimSpace(v.GetString("storage.path")),
			AutosaveInterval: v.GetDuration("storage.autosave_interval"),
			BackupDir:        strings.TrimSpace(v.GetString("storage.backup_dir")),
			BackupAt:         strings.TrimSpace(v.GetString("storage.backup_at")),
		},
		Reminders: ReminderConfig{
			PollInterval:         v.GetDuration("reminders.poll_interval"),
			DismissSnooze:        v.GetDuration("reminders.dismiss_snooze"),
			SnoozeChoices:        choices,
			NotificationsEnabled: v.GetBool("reminders.notifications_enabled"),
			DigestAt:             strings.TrimSpace(v.GetString("reminders.digest_at")),
		},
		Log: LogConfig{
			Level:  strings.ToLower(strings.TrimSpace(v.GetString("log.level"))),
			Format: strings.ToLower(strings.TrimSpace(v.GetString("log.format"))),
		},
		Timezone: strings.TrimSpace(v.GetString("timezone")),
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = defaultPath(cfg.Storage.Driver)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// intSlice reads a list from YAML or from a comma/space separated env value.
func intSlice(v *viper.Viper, key string) ([]int, error) {
	raw := v.Get(key)
	text, ok := raw.(string)
	if !ok {
		return v.GetIntSlice(key), nil
	}
	fields := strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == ' ' })
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a number", key, f)
		}
		out = append(out, n)
	}
	return out, nil
}

func defaultPath(driver string) string {
	if driver == "sqlite" {
		return "tasks.db"
	}
	return "tasks.json"
}

// Validate rejects settings the services cannot run with.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case "json", "sqlite":
	default:
		return fmt.Errorf("storage.driver must be json or sqlite, got %q", c.Storage.Driver)
	}
	if c.Storage.AutosaveInterval < 0 {
		return fmt.Errorf("storage.autosave_interval must not be negative")
	}
	if c.Storage.BackupAt != "" {
		if _, err := time.Parse("15:04", c.Storage.BackupAt); err != nil {
			return fmt.Errorf("storage.backup_at must be HH:MM, got %q", c.Storage.BackupAt)
		}
	}
	if c.Reminders.PollInterval < time.Second {
		return fmt.Errorf("reminders.poll_interval must be at least 1s, got %s", c.Reminders.PollInterval)
	}
	if c.Reminders.DismissSnooze < 0 {
		return fmt.Errorf("reminders.dismiss_snooze must not be negative")
	}
	for _, m := range c.Reminders.SnoozeChoices {
		if m <= 0 {
			return fmt.Errorf("reminders.snooze_choices must be positive minutes, got %d", m)
		}
	}
	if c.Reminders.DigestAt != "" {
		if _, err := time.Parse("15:04", c.Reminders.DigestAt); err != nil {
			return fmt.Errorf("reminders.digest_at must be HH:MM, got %q", c.Reminders.DigestAt)
		}
	}
	if c.Telegram.Token != "" && c.Telegram.ChatID == 0 {
		return fmt.Errorf("telegram.chat_id is required when telegram.token is set")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// NewLogger builds the structured logger described by c.
func (c LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func parseLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log.level must be debug, info, warn or error, got %q", raw)
	}
}
