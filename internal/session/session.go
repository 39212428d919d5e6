// Package session holds the short-lived per-chat verification flow: a
// resolved profile is presented to the user, who must confirm or reject it
// before the flow continues. Sessions live in process memory only.
package session

import (
	"errors"
	"sync"

	"github.com/fieldops/concierge/internal/store"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
)

var (
	ErrNoSession  = errors.New("no verification session for chat")
	ErrNotPending = errors.New("verification session already resolved")
)

// Session is one confirm/deny round trip. The profile is captured when the
// session begins and never re-fetched, so a directory edit mid-confirmation
// cannot change what the user is confirming.
type Session struct {
	ChatID  int64
	Profile store.Employee
	Status  Status
}

type Manager struct {
	mu       sync.Mutex
	sessions map[int64]Session
}

func NewManager() *Manager {
	return &Manager{sessions: map[int64]Session{}}
}

// Begin starts a fresh pending session for the chat, replacing any previous
// session regardless of its state.
func (m *Manager) Begin(chatID int64, profile store.Employee) Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	created := Session{ChatID: chatID, Profile: profile, Status: StatusPending}
	m.sessions[chatID] = created
	return created
}

// Confirm transitions the chat's pending session to confirmed.
func (m *Manager) Confirm(chatID int64) (Session, error) {
	return m.resolve(chatID, StatusConfirmed)
}

// Reject transitions the chat's pending session to rejected.
func (m *Manager) Reject(chatID int64) (Session, error) {
	return m.resolve(chatID, StatusRejected)
}

func (m *Manager) resolve(chatID int64, target Status) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.sessions[chatID]
	if !ok {
		return Session{}, ErrNoSession
	}
	if current.Status != StatusPending {
		return current, ErrNotPending
	}
	current.Status = target
	m.sessions[chatID] = current
	return current, nil
}

// Get returns the chat's session, if any.
func (m *Manager) Get(chatID int64) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.sessions[chatID]
	return current, ok
}
