package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fieldops/concierge/internal/broadcast"
	"github.com/fieldops/concierge/internal/config"
	"github.com/fieldops/concierge/internal/health"
	"github.com/fieldops/concierge/internal/store"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(context.Context) error {
	return f.err
}

type fakeBroadcaster struct {
	report  broadcast.Report
	err     error
	filters []*broadcast.Filter
	texts   []string
}

func (f *fakeBroadcaster) Broadcast(_ context.Context, filter *broadcast.Filter, text string) (broadcast.Report, error) {
	f.filters = append(f.filters, filter)
	f.texts = append(f.texts, text)
	if f.err != nil {
		return broadcast.Report{}, f.err
	}
	return f.report, nil
}

func newTestRouter(pinger *fakePinger, broadcaster *fakeBroadcaster) http.Handler {
	return NewRouter(Dependencies{
		Config:      config.Config{Environment: "test", AdminRole: "admin"},
		Store:       pinger,
		Broadcaster: broadcaster,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestRouter(&fakePinger{}, &fakeBroadcaster{})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestReadyEndpointReflectsStore(t *testing.T) {
	handler := newTestRouter(&fakePinger{}, &fakeBroadcaster{})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	handler = newTestRouter(&fakePinger{err: errors.New("db locked")}, &fakeBroadcaster{})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestInfoEndpoint(t *testing.T) {
	handler := newTestRouter(&fakePinger{}, &fakeBroadcaster{})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/info", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"environment":"test"`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestStatusEndpoint(t *testing.T) {
	registry := health.NewRegistry()
	registry.Degraded("telegram", errors.New("poll failed"))
	handler := NewRouter(Dependencies{
		Config:      config.Config{Environment: "test"},
		Store:       &fakePinger{},
		Broadcaster: &fakeBroadcaster{},
		Health:      registry,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"overall":"degraded"`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestBroadcastEndpoint(t *testing.T) {
	broadcaster := &fakeBroadcaster{report: broadcast.Report{Sent: 4, Total: 5}}
	handler := newTestRouter(&fakePinger{}, broadcaster)

	body := strings.NewReader(`{"text":"all hands at five","attribute":"city","value":"Lisbon"}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/broadcasts", body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"sent":4`) {
		t.Fatalf("body = %s", rec.Body.String())
	}
	filter := broadcaster.filters[0]
	if filter == nil || filter.Attribute != "city" || filter.Value != "Lisbon" {
		t.Fatalf("filter = %+v", filter)
	}
}

func TestBroadcastEndpointAllUsers(t *testing.T) {
	broadcaster := &fakeBroadcaster{report: broadcast.Report{Sent: 1, Total: 1}}
	handler := newTestRouter(&fakePinger{}, broadcaster)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/broadcasts", strings.NewReader(`{"text":"hello"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if broadcaster.filters[0] != nil {
		t.Fatalf("expected nil filter, got %+v", broadcaster.filters[0])
	}
}

func TestBroadcastEndpointValidation(t *testing.T) {
	broadcaster := &fakeBroadcaster{}
	handler := newTestRouter(&fakePinger{}, broadcaster)

	cases := []struct {
		name string
		body string
	}{
		{"missing text", `{"attribute":"city","value":"Lisbon"}`},
		{"attribute without value", `{"text":"hi","attribute":"city"}`},
		{"value without attribute", `{"text":"hi","value":"Lisbon"}`},
		{"garbage", `{`},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/broadcasts", strings.NewReader(tc.body)))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: status = %d, want 400", tc.name, rec.Code)
		}
	}
	if len(broadcaster.texts) != 0 {
		t.Fatal("invalid requests must not reach the broadcaster")
	}
}

func TestBroadcastEndpointMapsEngineErrors(t *testing.T) {
	handler := newTestRouter(&fakePinger{}, &fakeBroadcaster{err: broadcast.ErrNoRecipients})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/broadcasts", strings.NewReader(`{"text":"hi","attribute":"city","value":"Atlantis"}`)))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}

	wrapped := fmt.Errorf("resolve audience: %w", store.ErrUnknownAttribute)
	handler = newTestRouter(&fakePinger{}, &fakeBroadcaster{err: wrapped})
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/broadcasts", strings.NewReader(`{"text":"hi","attribute":"shoe_size","value":"44"}`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestBroadcastEndpointMethodNotAllowed(t *testing.T) {
	handler := newTestRouter(&fakePinger{}, &fakeBroadcaster{})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/broadcasts", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}
