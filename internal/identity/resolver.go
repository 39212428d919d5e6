package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fieldops/concierge/internal/store"
)

var (
	// ErrNoHandle marks a chat identity without a handle. The directory is
	// keyed by handle, so such callers are rejected before any lookup.
	ErrNoHandle = errors.New("chat identity has no handle")
	// ErrNotEmployee marks a handle with no directory record.
	ErrNotEmployee = errors.New("handle not found in employee directory")
)

// ChatIdentity is the transport-supplied identity of an inbound event.
type ChatIdentity struct {
	ChatID int64
	Handle string
}

type Directory interface {
	UpsertUser(ctx context.Context, chatID int64, handle string) error
	EmployeeByHandle(ctx context.Context, handle string) (store.Employee, error)
}

// Resolver maps chat identities to employee directory records.
type Resolver struct {
	directory Directory
	logger    *slog.Logger
}

func NewResolver(directory Directory, logger *slog.Logger) *Resolver {
	return &Resolver{directory: directory, logger: logger}
}

// Resolve registers the chat identity in the user registry and returns its
// directory record. Registration is fire-and-forget: a duplicate or failed
// insert never aborts resolution.
func (r *Resolver) Resolve(ctx context.Context, id ChatIdentity) (store.Employee, error) {
	if store.NormalizeHandle(id.Handle) == "" {
		return store.Employee{}, ErrNoHandle
	}

	if err := r.directory.UpsertUser(ctx, id.ChatID, id.Handle); err != nil {
		r.logger.Error("user registration failed", "error", err, "chat_id", id.ChatID)
	}

	return r.lookup(ctx, id)
}

// Lookup returns the directory record for the identity without touching the
// user registry. Authorization checks use this path.
func (r *Resolver) Lookup(ctx context.Context, id ChatIdentity) (store.Employee, error) {
	if store.NormalizeHandle(id.Handle) == "" {
		return store.Employee{}, ErrNoHandle
	}
	return r.lookup(ctx, id)
}

func (r *Resolver) lookup(ctx context.Context, id ChatIdentity) (store.Employee, error) {
	employee, err := r.directory.EmployeeByHandle(ctx, id.Handle)
	if errors.Is(err, store.ErrEmployeeNotFound) {
		return store.Employee{}, ErrNotEmployee
	}
	if errors.Is(err, store.ErrDirectoryAmbiguous) {
		// The directory promises unique handles; never pick a row arbitrarily.
		r.logger.Error("directory inconsistency", "error", err, "handle", store.NormalizeHandle(id.Handle))
		return store.Employee{}, ErrNotEmployee
	}
	if err != nil {
		return store.Employee{}, fmt.Errorf("resolve identity: %w", err)
	}
	return employee, nil
}
