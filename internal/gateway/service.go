// Package gateway routes normalized chat commands and button callbacks to the
// bot's operations. Every failure is converted to a user-visible reply at this
// boundary; nothing propagates to the transport as a fault.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fieldops/concierge/internal/broadcast"
	"github.com/fieldops/concierge/internal/identity"
	"github.com/fieldops/concierge/internal/report"
	"github.com/fieldops/concierge/internal/session"
	"github.com/fieldops/concierge/internal/store"
)

const (
	CallbackConfirm = "confirm"
	CallbackReject  = "reject"
)

type Resolver interface {
	Resolve(ctx context.Context, id identity.ChatIdentity) (store.Employee, error)
	Lookup(ctx context.Context, id identity.ChatIdentity) (store.Employee, error)
}

type Sessions interface {
	Begin(chatID int64, profile store.Employee) session.Session
	Confirm(chatID int64) (session.Session, error)
	Reject(chatID int64) (session.Session, error)
}

type Broadcaster interface {
	Broadcast(ctx context.Context, filter *broadcast.Filter, text string) (broadcast.Report, error)
}

type Metrics interface {
	DailyMetricsByHandle(ctx context.Context, handle string) (store.DailyMetrics, error)
}

// Config is the gateway's slice of the process configuration, populated once
// at startup and read-only afterwards.
type Config struct {
	AdminRole         string
	EscalationContact string
	DashboardURL      string
	ObjectionsURL     string
	KnowledgeBaseURL  string
	FeedbackURL       string
}

type Service struct {
	resolver    Resolver
	sessions    Sessions
	broadcaster Broadcaster
	metrics     Metrics
	reports     *report.Builder
	cfg         Config
	logger      *slog.Logger
}

func New(resolver Resolver, sessions Sessions, broadcaster Broadcaster, metrics Metrics, reports *report.Builder, cfg Config, logger *slog.Logger) *Service {
	return &Service{
		resolver:    resolver,
		sessions:    sessions,
		broadcaster: broadcaster,
		metrics:     metrics,
		reports:     reports,
		cfg:         cfg,
		logger:      logger,
	}
}

// Button is one inline-keyboard button: either a callback or a URL, not both.
type Button struct {
	Label    string
	Callback string
	URL      string
}

// Reply is one outbound message.
type Reply struct {
	Text     string
	Keyboard [][]Button
}

type MessageInput struct {
	Identity identity.ChatIdentity
	Text     string
}

type MessageOutput struct {
	Handled bool
	Replies []Reply
}

type CallbackInput struct {
	Identity identity.ChatIdentity
	Data     string
}

type CallbackOutput struct {
	// EditText replaces the text of the message that carried the buttons.
	EditText string
	// Replies are sent as fresh messages after the edit.
	Replies []Reply
}

type handler func(ctx context.Context, input MessageInput, arg string) MessageOutput

// HandleMessage routes one inbound command.
func (s *Service) HandleMessage(ctx context.Context, input MessageInput) MessageOutput {
	command, arg := splitCommand(input.Text)
	switch command {
	case "start":
		return s.handleStart(ctx, input, arg)
	case "menu":
		return s.handleMenu(ctx, input, arg)
	case "breakfast":
		return s.handleReportTemplate(ctx, input, reportMorning)
	case "lunch":
		return s.handleReportTemplate(ctx, input, reportMidday)
	case "dinner":
		return s.handleReportTemplate(ctx, input, reportEvening)
	case "help":
		return s.handleHelp(ctx, input, arg)
	case "broadcast":
		return s.guarded(s.cfg.AdminRole, s.handleBroadcastAll)(ctx, input, arg)
	case "broadcast_city":
		return s.guarded(s.cfg.AdminRole, s.filteredBroadcastHandler("city"))(ctx, input, arg)
	case "broadcast_team":
		return s.guarded(s.cfg.AdminRole, s.filteredBroadcastHandler("team"))(ctx, input, arg)
	default:
		return MessageOutput{}
	}
}

// HandleCallback routes one inline-button press.
func (s *Service) HandleCallback(ctx context.Context, input CallbackInput) CallbackOutput {
	switch strings.TrimSpace(input.Data) {
	case CallbackConfirm:
		return s.handleConfirm(input)
	case CallbackReject:
		return s.handleReject(input)
	default:
		s.logger.Warn("unknown callback", "data", input.Data, "chat_id", input.Identity.ChatID)
		return CallbackOutput{}
	}
}

// guarded wraps a handler with the role gate: the caller's directory profile
// is resolved by handle (no registration side effect) and its role must equal
// required exactly. A failed gate short-circuits before the handler runs.
func (s *Service) guarded(required string, next handler) handler {
	return func(ctx context.Context, input MessageInput, arg string) MessageOutput {
		profile, err := s.resolver.Lookup(ctx, input.Identity)
		if err != nil {
			return s.identityFailure(err, input)
		}
		if profile.Role != required {
			return reply("You do not have permission to use this command.")
		}
		return next(ctx, input, arg)
	}
}

func (s *Service) handleStart(ctx context.Context, input MessageInput, _ string) MessageOutput {
	profile, err := s.resolver.Resolve(ctx, input.Identity)
	if err != nil {
		return s.identityFailure(err, input)
	}

	s.sessions.Begin(input.Identity.ChatID, profile)
	text := fmt.Sprintf(
		"Hello, %s! You are in %s, team %s — is that right?",
		profile.FullName, profile.City, profile.Team,
	)
	return MessageOutput{Handled: true, Replies: []Reply{{
		Text: text,
		Keyboard: [][]Button{{
			{Label: "Yes, that's me", Callback: CallbackConfirm},
			{Label: "No, that's not me", Callback: CallbackReject},
		}},
	}}}
}

func (s *Service) handleConfirm(input CallbackInput) CallbackOutput {
	confirmed, err := s.sessions.Confirm(input.Identity.ChatID)
	if err != nil {
		if errors.Is(err, session.ErrNoSession) || errors.Is(err, session.ErrNotPending) {
			return CallbackOutput{EditText: "This confirmation is no longer active. Send /start to begin again."}
		}
		s.logger.Error("confirm failed", "error", err, "chat_id", input.Identity.ChatID)
		return CallbackOutput{EditText: "Something went wrong. Please try /start again."}
	}

	welcome := strings.Join([]string{
		"Great, nice to meet you, " + firstName(confirmed.Profile.FullName) + "!",
		"",
		"I am your personal concierge. Open the menu with /menu.",
		"Report templates: /breakfast, /lunch and /dinner.",
		"I will also pass along important announcements, so keep notifications on.",
	}, "\n")

	return CallbackOutput{
		EditText: "Confirmed.",
		Replies:  []Reply{{Text: welcome}, s.menuReply()},
	}
}

func (s *Service) handleReject(input CallbackInput) CallbackOutput {
	if _, err := s.sessions.Reject(input.Identity.ChatID); err != nil {
		if errors.Is(err, session.ErrNoSession) || errors.Is(err, session.ErrNotPending) {
			return CallbackOutput{EditText: "This confirmation is no longer active. Send /start to begin again."}
		}
		s.logger.Error("reject failed", "error", err, "chat_id", input.Identity.ChatID)
		return CallbackOutput{EditText: "Something went wrong. Please try /start again."}
	}
	return CallbackOutput{
		EditText: "Understood. Please message " + s.cfg.EscalationContact + " so we can fix your record.",
	}
}

func (s *Service) handleMenu(_ context.Context, _ MessageInput, _ string) MessageOutput {
	return MessageOutput{Handled: true, Replies: []Reply{s.menuReply()}}
}

func (s *Service) menuReply() Reply {
	text := strings.Join([]string{
		"Concierge at your service.",
		"",
		"Dashboard — your numbers at a glance.",
		"Objection playbook — tips and recommended answers.",
		"Knowledge base — articles and guides.",
		"Feedback — tell us what to improve.",
		"Report templates: /breakfast /lunch /dinner",
	}, "\n")
	return Reply{
		Text: text,
		Keyboard: [][]Button{
			{{Label: "Dashboard", URL: s.cfg.DashboardURL}},
			{{Label: "Objection playbook", URL: s.cfg.ObjectionsURL}},
			{{Label: "Knowledge base", URL: s.cfg.KnowledgeBaseURL}},
			{{Label: "Feedback", URL: s.cfg.FeedbackURL}},
		},
	}
}

type reportKind int

const (
	reportMorning reportKind = iota
	reportMidday
	reportEvening
)

func (s *Service) handleReportTemplate(ctx context.Context, input MessageInput, kind reportKind) MessageOutput {
	profile, err := s.resolver.Lookup(ctx, input.Identity)
	if err != nil {
		return s.identityFailure(err, input)
	}

	var metrics *store.DailyMetrics
	if latest, err := s.metrics.DailyMetricsByHandle(ctx, profile.Handle); err == nil {
		metrics = &latest
	} else if !errors.Is(err, store.ErrMetricsNotFound) {
		s.logger.Error("metrics lookup failed", "error", err, "handle", profile.Handle)
	}

	now := time.Now()
	var text string
	switch kind {
	case reportMorning:
		text = s.reports.Morning(profile, metrics, now)
	case reportMidday:
		text = s.reports.Midday(profile, metrics, now)
	default:
		text = s.reports.Evening(profile, metrics, now)
	}
	return reply(text)
}

func (s *Service) handleHelp(_ context.Context, _ MessageInput, _ string) MessageOutput {
	lines := []string{"Commands:"}
	for _, command := range SlashCommands() {
		lines = append(lines, fmt.Sprintf("/%s — %s", command.Name, command.Description))
	}
	return reply(strings.Join(lines, "\n"))
}

func (s *Service) handleBroadcastAll(ctx context.Context, input MessageInput, arg string) MessageOutput {
	text := strings.TrimSpace(arg)
	if text == "" {
		return reply("Usage: /broadcast <message>")
	}
	return s.runBroadcast(ctx, nil, text)
}

func (s *Service) filteredBroadcastHandler(attribute string) handler {
	return func(ctx context.Context, input MessageInput, arg string) MessageOutput {
		value, text := splitFirstField(arg)
		if value == "" || text == "" {
			return reply(fmt.Sprintf("Usage: /broadcast_%s <%s> <message>", attribute, attribute))
		}
		return s.runBroadcast(ctx, &broadcast.Filter{Attribute: attribute, Value: value}, text)
	}
}

func (s *Service) runBroadcast(ctx context.Context, filter *broadcast.Filter, text string) MessageOutput {
	result, err := s.broadcaster.Broadcast(ctx, filter, text)
	if err != nil {
		if errors.Is(err, broadcast.ErrNoRecipients) {
			return reply("Nobody in the directory matches that filter. Nothing was sent.")
		}
		s.logger.Error("broadcast failed", "error", err)
		return reply("The broadcast could not be completed. Please try again later.")
	}
	return reply(fmt.Sprintf("Delivered to %d of %d recipients.", result.Sent, result.Total))
}

func (s *Service) identityFailure(err error, input MessageInput) MessageOutput {
	switch {
	case errors.Is(err, identity.ErrNoHandle):
		return reply("Please set a username in your Telegram settings, then try again.")
	case errors.Is(err, identity.ErrNotEmployee):
		return reply("I could not find you in the employee directory. Check that your username matches your record, or contact " + s.cfg.EscalationContact + ".")
	default:
		s.logger.Error("identity resolution failed", "error", err, "chat_id", input.Identity.ChatID)
		return reply("Something went wrong on our side. Please try again later or contact " + s.cfg.EscalationContact + ".")
	}
}

func reply(text string) MessageOutput {
	return MessageOutput{Handled: true, Replies: []Reply{{Text: text}}}
}

func splitCommand(text string) (string, string) {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "/") {
		return "", ""
	}
	trimmed = strings.TrimPrefix(trimmed, "/")
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return "", ""
	}
	command := strings.ToLower(fields[0])
	if idx := strings.Index(command, "@"); idx >= 0 {
		command = command[:idx]
	}
	arg := strings.TrimSpace(trimmed[len(fields[0]):])
	return command, arg
}

func splitFirstField(arg string) (string, string) {
	trimmed := strings.TrimSpace(arg)
	if trimmed == "" {
		return "", ""
	}
	fields := strings.Fields(trimmed)
	if len(fields) < 2 {
		return fields[0], ""
	}
	rest := strings.TrimSpace(trimmed[len(fields[0]):])
	return fields[0], rest
}

func firstName(fullName string) string {
	fields := strings.Fields(fullName)
	if len(fields) == 0 {
		return "colleague"
	}
	return fields[0]
}
