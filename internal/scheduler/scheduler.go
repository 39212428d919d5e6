// Package scheduler fires the daily report reminders: each reminder is a cron
// expression resolved in the configured timezone and delivered to every
// registered user as a broadcast.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fieldops/concierge/internal/broadcast"
)

var reminderCronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

type Broadcaster interface {
	Broadcast(ctx context.Context, filter *broadcast.Filter, text string) (broadcast.Report, error)
}

// Config describes the reminder schedules. Empty cron expressions disable the
// individual reminder; Enabled false disables the whole scheduler.
type Config struct {
	Enabled     bool
	Timezone    string
	MorningCron string
	MiddayCron  string
	EveningCron string
}

type entry struct {
	name     string
	schedule cron.Schedule
	text     string
}

type Scheduler struct {
	entries     []entry
	broadcaster Broadcaster
	location    *time.Location
	logger      *slog.Logger
	enabled     bool
	now         func() time.Time
}

func New(cfg Config, broadcaster Broadcaster, logger *slog.Logger) (*Scheduler, error) {
	timezone := strings.TrimSpace(cfg.Timezone)
	if timezone == "" {
		timezone = "UTC"
	}
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone: %w", err)
	}

	s := &Scheduler{
		broadcaster: broadcaster,
		location:    location,
		logger:      logger,
		enabled:     cfg.Enabled,
		now:         time.Now,
	}

	reminders := []struct {
		name string
		spec string
		text string
	}{
		{"morning", cfg.MorningCron, "Good morning! Time to post your plan for the day. Grab the template with /breakfast."},
		{"midday", cfg.MiddayCron, "Midday check-in: post your interim report. Grab the template with /lunch."},
		{"evening", cfg.EveningCron, "Wrapping up: post your end of day report. Grab the template with /dinner."},
	}
	for _, reminder := range reminders {
		spec := normalizeCronExpr(reminder.spec)
		if spec == "" {
			continue
		}
		schedule, err := reminderCronParser.Parse(spec)
		if err != nil {
			return nil, fmt.Errorf("parse %s reminder cron: %w", reminder.name, err)
		}
		s.entries = append(s.entries, entry{name: reminder.name, schedule: schedule, text: reminder.text})
	}
	return s, nil
}

func (s *Scheduler) Start(ctx context.Context) error {
	if !s.enabled || len(s.entries) == 0 {
		s.logger.Info("reminders disabled")
		<-ctx.Done()
		return nil
	}

	s.logger.Info("reminders started", "entries", len(s.entries), "timezone", s.location.String())
	for {
		next, at := s.nextEntry(s.now())
		timer := time.NewTimer(time.Until(at))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("reminders stopped")
			return nil
		case <-timer.C:
			s.fire(ctx, next)
		}
	}
}

// nextEntry returns the reminder with the soonest upcoming run after from.
func (s *Scheduler) nextEntry(from time.Time) (entry, time.Time) {
	local := from.In(s.location)
	soonest := s.entries[0]
	soonestAt := soonest.schedule.Next(local)
	for _, candidate := range s.entries[1:] {
		if at := candidate.schedule.Next(local); at.Before(soonestAt) {
			soonest = candidate
			soonestAt = at
		}
	}
	return soonest, soonestAt
}

func (s *Scheduler) fire(ctx context.Context, reminder entry) {
	report, err := s.broadcaster.Broadcast(ctx, nil, reminder.text)
	if err != nil {
		s.logger.Error("reminder broadcast failed", "reminder", reminder.name, "error", err)
		return
	}
	s.logger.Info("reminder sent", "reminder", reminder.name, "sent", report.Sent, "total", report.Total)
}

func normalizeCronExpr(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	return strings.Join(strings.Fields(trimmed), " ")
}
