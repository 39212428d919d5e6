// Package broadcast delivers a message to a filtered audience of registered
// chats, one recipient at a time. A failed or blocked recipient never stops
// delivery to the rest of the audience.
package broadcast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fieldops/concierge/internal/store"
)

// ErrNoRecipients is returned when a filter matches no directory rows. It is
// distinct from a delivery failure: the filter simply named nobody.
var ErrNoRecipients = errors.New("filter matched no employees")

// Filter selects the audience by equality on one directory attribute.
// A nil filter targets every registered chat.
type Filter struct {
	Attribute string
	Value     string
}

// Report is the aggregate outcome of one fan-out.
type Report struct {
	Sent  int
	Total int
}

type Sender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

type Directory interface {
	ListChatIDs(ctx context.Context) ([]int64, error)
	EmployeesByAttribute(ctx context.Context, attribute, value string) ([]store.Employee, error)
	ChatIDsByHandles(ctx context.Context, handles []string) ([]int64, error)
}

type Engine struct {
	directory Directory
	sender    Sender
	delay     time.Duration
	logger    *slog.Logger
}

// New builds an engine with the given minimum inter-send delay. The delay is
// a throughput ceiling for the outbound transport, not a correctness
// requirement.
func New(directory Directory, sender Sender, delay time.Duration, logger *slog.Logger) *Engine {
	return &Engine{directory: directory, sender: sender, delay: delay, logger: logger}
}

// Broadcast resolves the audience for the filter and delivers text to each
// recipient sequentially. Per-recipient failures are logged and counted, never
// surfaced individually. The only way to stop a running job is cancelling ctx.
func (e *Engine) Broadcast(ctx context.Context, filter *Filter, text string) (Report, error) {
	audience, err := e.resolveAudience(ctx, filter)
	if err != nil {
		return Report{}, err
	}

	jobID := uuid.NewString()
	e.logger.Info("broadcast started", "job_id", jobID, "recipients", len(audience))

	report := Report{Total: len(audience)}
	for i, chatID := range audience {
		if err := ctx.Err(); err != nil {
			e.logger.Info("broadcast cancelled", "job_id", jobID, "sent", report.Sent, "total", report.Total)
			return report, err
		}
		if err := e.sender.SendText(ctx, chatID, text); err != nil {
			e.logger.Error("broadcast delivery failed", "job_id", jobID, "chat_id", chatID, "error", err)
		} else {
			report.Sent++
		}
		if i < len(audience)-1 {
			if err := e.pause(ctx); err != nil {
				e.logger.Info("broadcast cancelled", "job_id", jobID, "sent", report.Sent, "total", report.Total)
				return report, err
			}
		}
	}

	e.logger.Info("broadcast finished", "job_id", jobID, "sent", report.Sent, "total", report.Total)
	return report, nil
}

func (e *Engine) resolveAudience(ctx context.Context, filter *Filter) ([]int64, error) {
	if filter == nil {
		ids, err := e.directory.ListChatIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve audience: %w", err)
		}
		return ids, nil
	}

	employees, err := e.directory.EmployeesByAttribute(ctx, filter.Attribute, filter.Value)
	if err != nil {
		return nil, fmt.Errorf("resolve audience: %w", err)
	}
	if len(employees) == 0 {
		return nil, ErrNoRecipients
	}

	handles := make([]string, 0, len(employees))
	for _, employee := range employees {
		handles = append(handles, employee.Handle)
	}
	// A directory handle that never registered a chat has no id to message;
	// it is dropped here and shows up only through the smaller Total.
	ids, err := e.directory.ChatIDsByHandles(ctx, handles)
	if err != nil {
		return nil, fmt.Errorf("resolve audience: %w", err)
	}
	return ids, nil
}

func (e *Engine) pause(ctx context.Context) error {
	if e.delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(e.delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
