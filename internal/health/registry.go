// Package health tracks per-component liveness for the operational API.
package health

import (
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	StateStarting = "starting"
	StateRunning  = "running"
	StateDegraded = "degraded"
	StateStopped  = "stopped"
)

type ComponentStatus struct {
	Name          string `json:"name"`
	State         string `json:"state"`
	Error         string `json:"error,omitempty"`
	UpdatedAtUnix int64  `json:"updated_at_unix"`
}

type Snapshot struct {
	Overall    string            `json:"overall"`
	Components []ComponentStatus `json:"components"`
}

type record struct {
	state     string
	lastError string
	updatedAt time.Time
}

type Registry struct {
	mu         sync.RWMutex
	components map[string]record
}

func NewRegistry() *Registry {
	return &Registry{components: map[string]record{}}
}

func (r *Registry) Starting(component string) {
	r.set(component, StateStarting, nil)
}

func (r *Registry) Running(component string) {
	r.set(component, StateRunning, nil)
}

// Degraded marks a component that failed but did not take the process down.
func (r *Registry) Degraded(component string, err error) {
	r.set(component, StateDegraded, err)
}

func (r *Registry) Stopped(component string) {
	r.set(component, StateStopped, nil)
}

func (r *Registry) set(component, state string, err error) {
	name := strings.ToLower(strings.TrimSpace(component))
	if name == "" {
		return
	}
	entry := record{state: state, updatedAt: time.Now().UTC()}
	if err != nil {
		entry.lastError = err.Error()
	}
	r.mu.Lock()
	r.components[name] = entry
	r.mu.Unlock()
}

// Snapshot returns the current component states sorted by name. Overall is
// degraded if any component is degraded, ok otherwise.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	snapshot := Snapshot{Overall: "ok"}
	names := make([]string, 0, len(r.components))
	for name := range r.components {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry := r.components[name]
		if entry.state == StateDegraded {
			snapshot.Overall = "degraded"
		}
		snapshot.Components = append(snapshot.Components, ComponentStatus{
			Name:          name,
			State:         entry.state,
			Error:         entry.lastError,
			UpdatedAtUnix: entry.updatedAt.Unix(),
		})
	}
	return snapshot
}
