package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/fieldops/concierge/internal/config"
	"github.com/fieldops/concierge/internal/health"
)

func newTestRuntime(t *testing.T) *Runtime {
	t.Helper()
	cfg := config.Config{
		DBPath:           filepath.Join(t.TempDir(), "concierge.sqlite"),
		TelegramAPI:      "https://api.telegram.org",
		TelegramPoll:     1,
		AdminRole:        "admin",
		ReminderTimezone: "UTC",
	}
	runtime, err := New(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("new runtime: %v", err)
	}
	t.Cleanup(func() { runtime.Close() })
	return runtime
}

func componentState(t *testing.T, snapshot health.Snapshot, name string) string {
	t.Helper()
	for _, component := range snapshot.Components {
		if component.Name == name {
			return component.State
		}
	}
	t.Fatalf("component %q missing from snapshot %+v", name, snapshot)
	return ""
}

func TestComponentsStartInStartingState(t *testing.T) {
	runtime := newTestRuntime(t)

	snapshot := runtime.health.Snapshot()
	for _, name := range []string{"telegram", "scheduler", "api"} {
		if state := componentState(t, snapshot, name); state != health.StateStarting {
			t.Fatalf("component %s state = %q, want %q", name, state, health.StateStarting)
		}
	}
}

func TestMonitoredTransitionsComponentStates(t *testing.T) {
	runtime := newTestRuntime(t)

	var observed string
	err := runtime.monitored(context.Background(), "telegram", func(context.Context) error {
		observed = componentState(t, runtime.health.Snapshot(), "telegram")
		return nil
	})
	if err != nil {
		t.Fatalf("monitored: %v", err)
	}
	if observed != health.StateRunning {
		t.Fatalf("state during run = %q, want %q", observed, health.StateRunning)
	}
	if state := componentState(t, runtime.health.Snapshot(), "telegram"); state != health.StateStopped {
		t.Fatalf("state after run = %q, want %q", state, health.StateStopped)
	}
}

func TestMonitoredMarksFailedComponentDegraded(t *testing.T) {
	runtime := newTestRuntime(t)

	bootErr := errors.New("poll loop broke")
	err := runtime.monitored(context.Background(), "scheduler", func(context.Context) error {
		return bootErr
	})
	if !errors.Is(err, bootErr) {
		t.Fatalf("monitored error = %v, want %v", err, bootErr)
	}
	if state := componentState(t, runtime.health.Snapshot(), "scheduler"); state != health.StateDegraded {
		t.Fatalf("state after failure = %q, want %q", state, health.StateDegraded)
	}
}
