package config

import (
	"path/filepath"
	"testing"
)

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("CONCIERGE_DATA_DIR", "")
	t.Setenv("CONCIERGE_DB_PATH", "")
	t.Setenv("CONCIERGE_HTTP_ADDR", "")
	t.Setenv("CONCIERGE_TELEGRAM_API_BASE", "")
	t.Setenv("CONCIERGE_TELEGRAM_POLL_SECONDS", "")
	t.Setenv("CONCIERGE_ADMIN_ROLE", "")
	t.Setenv("CONCIERGE_BROADCAST_DELAY_MS", "")
	t.Setenv("CONCIERGE_REMINDERS_ENABLED", "")
	t.Setenv("CONCIERGE_REMINDER_TIMEZONE", "")

	cfg := FromEnv()

	if cfg.DataDir != "/data" {
		t.Fatalf("expected default data dir, got %s", cfg.DataDir)
	}
	if cfg.DBPath != filepath.Join("/data", "concierge", "concierge.sqlite") {
		t.Fatalf("unexpected default db path: %s", cfg.DBPath)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected default http addr: %s", cfg.HTTPAddr)
	}
	if cfg.TelegramAPI != "https://api.telegram.org" {
		t.Fatalf("unexpected default telegram api base: %s", cfg.TelegramAPI)
	}
	if cfg.TelegramPoll != 25 {
		t.Fatalf("unexpected default poll seconds: %d", cfg.TelegramPoll)
	}
	if cfg.AdminRole != "admin" {
		t.Fatalf("unexpected default admin role: %s", cfg.AdminRole)
	}
	if cfg.BroadcastDelayMS != 100 {
		t.Fatalf("unexpected default broadcast delay: %d", cfg.BroadcastDelayMS)
	}
	if cfg.RemindersEnabled {
		t.Fatal("reminders should be disabled by default")
	}
	if cfg.ReminderTimezone != "UTC" {
		t.Fatalf("unexpected default reminder timezone: %s", cfg.ReminderTimezone)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("CONCIERGE_DATA_DIR", "/srv/bot")
	t.Setenv("CONCIERGE_DB_PATH", "")
	t.Setenv("CONCIERGE_TELEGRAM_POLL_SECONDS", "5")
	t.Setenv("CONCIERGE_BROADCAST_DELAY_MS", "not-a-number")
	t.Setenv("CONCIERGE_REMINDERS_ENABLED", "yes")

	cfg := FromEnv()

	if cfg.DBPath != filepath.Join("/srv/bot", "concierge", "concierge.sqlite") {
		t.Fatalf("db path should follow data dir: %s", cfg.DBPath)
	}
	if cfg.TelegramPoll != 5 {
		t.Fatalf("expected poll override, got %d", cfg.TelegramPoll)
	}
	if cfg.BroadcastDelayMS != 100 {
		t.Fatalf("invalid int should fall back to default, got %d", cfg.BroadcastDelayMS)
	}
	if !cfg.RemindersEnabled {
		t.Fatal("expected reminders enabled")
	}
}
