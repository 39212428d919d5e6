package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

type Config struct {
	Environment string
	HTTPAddr    string
	DataDir     string
	DBPath      string

	TelegramToken string
	TelegramAPI   string
	TelegramPoll  int

	AdminRole         string
	EscalationContact string
	BroadcastDelayMS  int

	DashboardURL     string
	ObjectionsURL    string
	KnowledgeBaseURL string
	FeedbackURL      string

	RemindersEnabled bool
	ReminderTimezone string
	MorningCron      string
	MiddayCron       string
	EveningCron      string
}

func FromEnv() Config {
	dataDir := stringOrDefault("CONCIERGE_DATA_DIR", "/data")
	dbPath := stringOrDefault("CONCIERGE_DB_PATH", filepath.Join(dataDir, "concierge", "concierge.sqlite"))

	return Config{
		Environment: stringOrDefault("CONCIERGE_ENV", "development"),
		HTTPAddr:    stringOrDefault("CONCIERGE_HTTP_ADDR", ":8080"),
		DataDir:     dataDir,
		DBPath:      dbPath,

		TelegramToken: os.Getenv("CONCIERGE_TELEGRAM_TOKEN"),
		TelegramAPI:   stringOrDefault("CONCIERGE_TELEGRAM_API_BASE", "https://api.telegram.org"),
		TelegramPoll:  intOrDefault("CONCIERGE_TELEGRAM_POLL_SECONDS", 25),

		AdminRole:         stringOrDefault("CONCIERGE_ADMIN_ROLE", "admin"),
		EscalationContact: stringOrDefault("CONCIERGE_ESCALATION_CONTACT", "@concierge_support"),
		BroadcastDelayMS:  intOrDefault("CONCIERGE_BROADCAST_DELAY_MS", 100),

		DashboardURL:     stringOrDefault("CONCIERGE_DASHBOARD_URL", "https://fieldops.example/dashboard"),
		ObjectionsURL:    stringOrDefault("CONCIERGE_OBJECTIONS_URL", "https://fieldops.example/objections"),
		KnowledgeBaseURL: stringOrDefault("CONCIERGE_KNOWLEDGE_BASE_URL", "https://fieldops.example/kb"),
		FeedbackURL:      stringOrDefault("CONCIERGE_FEEDBACK_URL", "https://fieldops.example/feedback"),

		RemindersEnabled: boolOrDefault("CONCIERGE_REMINDERS_ENABLED", false),
		ReminderTimezone: stringOrDefault("CONCIERGE_REMINDER_TIMEZONE", "UTC"),
		MorningCron:      stringOrDefault("CONCIERGE_MORNING_CRON", "0 9 * * 1-5"),
		MiddayCron:       stringOrDefault("CONCIERGE_MIDDAY_CRON", "0 13 * * 1-5"),
		EveningCron:      stringOrDefault("CONCIERGE_EVENING_CRON", "0 18 * * 1-5"),
	}
}

func stringOrDefault(name, fallback string) string {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	return value
}

func intOrDefault(name string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(name))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func boolOrDefault(name string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(name)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
