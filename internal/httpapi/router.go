// Package httpapi exposes the operational surface: health probes, build info
// and operator-initiated broadcasts.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fieldops/concierge/internal/broadcast"
	"github.com/fieldops/concierge/internal/config"
	"github.com/fieldops/concierge/internal/health"
	"github.com/fieldops/concierge/internal/store"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Broadcaster interface {
	Broadcast(ctx context.Context, filter *broadcast.Filter, text string) (broadcast.Report, error)
}

type Dependencies struct {
	Config      config.Config
	Store       Pinger
	Broadcaster Broadcaster
	Health      *health.Registry
	Logger      *slog.Logger
}

type router struct {
	deps Dependencies
}

func NewRouter(deps Dependencies) http.Handler {
	rt := &router{deps: deps}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.handleHealth)
	mux.HandleFunc("/readyz", rt.handleReady)
	mux.HandleFunc("/api/v1/info", rt.handleInfo)
	mux.HandleFunc("/api/v1/status", rt.handleStatus)
	mux.HandleFunc("/api/v1/broadcasts", rt.handleBroadcasts)
	return mux
}

func (r *router) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (r *router) handleReady(w http.ResponseWriter, req *http.Request) {
	if err := r.deps.Store.Ping(req.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not-ready", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (r *router) handleInfo(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":        "concierge",
		"environment": r.deps.Config.Environment,
		"admin_role":  r.deps.Config.AdminRole,
	})
}

func (r *router) handleStatus(w http.ResponseWriter, req *http.Request) {
	if r.deps.Health == nil {
		writeJSON(w, http.StatusOK, health.Snapshot{Overall: "ok"})
		return
	}
	writeJSON(w, http.StatusOK, r.deps.Health.Snapshot())
}

type broadcastRequest struct {
	Text      string `json:"text"`
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
}

func (r *router) handleBroadcasts(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var payload broadcastRequest
	if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	text := strings.TrimSpace(payload.Text)
	if text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "text is required"})
		return
	}
	attribute := strings.TrimSpace(payload.Attribute)
	value := strings.TrimSpace(payload.Value)
	if (attribute == "") != (value == "") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "attribute and value must be provided together"})
		return
	}

	var filter *broadcast.Filter
	if attribute != "" {
		filter = &broadcast.Filter{Attribute: attribute, Value: value}
	}

	report, err := r.deps.Broadcaster.Broadcast(req.Context(), filter, text)
	if err != nil {
		switch {
		case errors.Is(err, broadcast.ErrNoRecipients):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		case errors.Is(err, store.ErrUnknownAttribute):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			r.deps.Logger.Error("broadcast failed", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "broadcast failed"})
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sent":  report.Sent,
		"total": report.Total,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
