// Package app wires the process: configuration, store, gateway, transport,
// reminders and the operational HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fieldops/concierge/internal/broadcast"
	"github.com/fieldops/concierge/internal/config"
	"github.com/fieldops/concierge/internal/gateway"
	"github.com/fieldops/concierge/internal/health"
	"github.com/fieldops/concierge/internal/httpapi"
	"github.com/fieldops/concierge/internal/identity"
	"github.com/fieldops/concierge/internal/report"
	"github.com/fieldops/concierge/internal/scheduler"
	"github.com/fieldops/concierge/internal/session"
	"github.com/fieldops/concierge/internal/store"
	"github.com/fieldops/concierge/internal/telegram"
)

type Runtime struct {
	cfg        config.Config
	logger     *slog.Logger
	store      *store.Store
	connector  *telegram.Connector
	scheduler  *scheduler.Scheduler
	health     *health.Registry
	httpServer *http.Server
}

func New(cfg config.Config, logger *slog.Logger) (*Runtime, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	sqlStore, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	if err := sqlStore.AutoMigrate(context.Background()); err != nil {
		sqlStore.Close()
		return nil, err
	}

	client := telegram.NewClient(cfg.TelegramToken, cfg.TelegramAPI, time.Duration(cfg.TelegramPoll+10)*time.Second)
	resolver := identity.NewResolver(sqlStore, logger.With("component", "identity"))
	sessions := session.NewManager()
	engine := broadcast.New(
		sqlStore,
		client,
		time.Duration(cfg.BroadcastDelayMS)*time.Millisecond,
		logger.With("component", "broadcast"),
	)
	commandGateway := gateway.New(
		resolver,
		sessions,
		engine,
		sqlStore,
		report.NewBuilder(cfg.EscalationContact),
		gateway.Config{
			AdminRole:         cfg.AdminRole,
			EscalationContact: cfg.EscalationContact,
			DashboardURL:      cfg.DashboardURL,
			ObjectionsURL:     cfg.ObjectionsURL,
			KnowledgeBaseURL:  cfg.KnowledgeBaseURL,
			FeedbackURL:       cfg.FeedbackURL,
		},
		logger.With("component", "gateway"),
	)
	connector := telegram.NewConnector(client, cfg.TelegramPoll, commandGateway, logger.With("connector", "telegram"))

	reminders, err := scheduler.New(scheduler.Config{
		Enabled:     cfg.RemindersEnabled,
		Timezone:    cfg.ReminderTimezone,
		MorningCron: cfg.MorningCron,
		MiddayCron:  cfg.MiddayCron,
		EveningCron: cfg.EveningCron,
	}, engine, logger.With("component", "scheduler"))
	if err != nil {
		sqlStore.Close()
		return nil, err
	}

	registry := health.NewRegistry()
	registry.Starting("telegram")
	registry.Starting("scheduler")
	registry.Starting("api")
	handler := httpapi.NewRouter(httpapi.Dependencies{
		Config:      cfg,
		Store:       sqlStore,
		Broadcaster: engine,
		Health:      registry,
		Logger:      logger.With("component", "api"),
	})
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		store:      sqlStore,
		connector:  connector,
		scheduler:  reminders,
		health:     registry,
		httpServer: httpServer,
	}, nil
}

func (r *Runtime) Run(ctx context.Context) error {
	r.logger.Info("concierge starting", "addr", r.cfg.HTTPAddr, "environment", r.cfg.Environment)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return r.monitored(groupCtx, "telegram", r.connector.Start)
	})
	group.Go(func() error {
		return r.monitored(groupCtx, "scheduler", r.scheduler.Start)
	})
	group.Go(func() error {
		return r.monitored(groupCtx, "api", func(context.Context) error {
			err := r.httpServer.ListenAndServe()
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return r.httpServer.Shutdown(shutdownCtx)
	})

	return group.Wait()
}

func (r *Runtime) monitored(ctx context.Context, component string, run func(context.Context) error) error {
	r.health.Running(component)
	err := run(ctx)
	if err != nil && ctx.Err() == nil {
		r.health.Degraded(component, err)
		return err
	}
	r.health.Stopped(component)
	return err
}

func (r *Runtime) Close() error {
	if r.store == nil {
		return nil
	}
	return r.store.Close()
}
