package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/lorrc/service-desk-notifier/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-notifier/internal/core/errors"
	"github.com/lorrc/service-desk-notifier/internal/core/filter"
	"github.com/lorrc/service-desk-notifier/internal/core/markup"
	"github.com/lorrc/service-desk-notifier/internal/core/ports"
	"github.com/lorrc/service-desk-notifier/internal/core/render"
)

// pipelineConfig is the read-only configuration shared by all events once
// the pipeline is ready.
type pipelineConfig struct {
	settings  domain.NotifierSettings
	filter    *filter.SubjectFilter
	filterErr error
}

// NotificationService turns helpdesk signals into chat notifications:
// extract, filter, sanitize, render, dispatch.
type NotificationService struct {
	lookup      ports.TicketLookup
	sender      ports.WebhookSender
	broadcaster ports.EventBroadcaster
	logger      *slog.Logger

	// nil while uninitialized
	cfg atomic.Pointer[pipelineConfig]
}

var _ ports.NotificationService = (*NotificationService)(nil)

// NewNotificationService creates the pipeline in the uninitialized state.
// Call Configure before signals are delivered.
func NewNotificationService(
	lookup ports.TicketLookup,
	sender ports.WebhookSender,
	broadcaster ports.EventBroadcaster,
	logger *slog.Logger,
) *NotificationService {
	return &NotificationService{
		lookup:      lookup,
		sender:      sender,
		broadcaster: broadcaster,
		logger:      logger.With("component", "notification_pipeline"),
	}
}

// Configure installs the operator settings and moves the pipeline to ready.
// It may be called again to replace the settings; events already in flight
// keep the settings they started with.
func (s *NotificationService) Configure(settings domain.NotifierSettings) {
	cfg := &pipelineConfig{settings: settings}

	f, err := filter.New(settings.SubjectIgnoreRegex)
	if err != nil {
		cfg.filterErr = err
		s.logger.Warn("subject filter is invalid and will not suppress notifications",
			"rule", settings.SubjectIgnoreRegex,
			"error", err,
		)
	}
	cfg.filter = f

	if !settings.HasWebhook() {
		s.logger.Error("notifier not configured: no webhook URL set")
	}

	s.cfg.Store(cfg)
	s.logger.Info("notification pipeline ready",
		"subject_filter", settings.SubjectIgnoreRegex != "",
		"stream", settings.Stream,
		"channel", settings.Channel,
	)
}

// State reports whether the pipeline accepts events.
func (s *NotificationService) State() ports.PipelineState {
	if s.cfg.Load() == nil {
		return ports.StateUninitialized
	}
	return ports.StateReady
}

// OnTicketCreated notifies about a newly created ticket.
func (s *NotificationService) OnTicketCreated(ctx context.Context, ticket *domain.Ticket) error {
	cfg, err := s.ready(domain.EventTicketCreated)
	if err != nil {
		return err
	}
	if ticket == nil {
		return s.skip(domain.EventTicketCreated, apperrors.ErrMissingTicketContext)
	}

	// Form-only submissions have no message; they still notify with an empty body.
	body := ""
	if first := ticket.FirstMessage(); first != nil {
		body = first.Body
	}

	return s.notify(ctx, cfg, domain.TicketEvent{
		Kind:    domain.EventTicketCreated,
		Ticket:  ticket,
		BaseURL: cfg.settings.HelpdeskURL,
		Body:    body,
	})
}

// OnTicketUpdated notifies about a new user message on an existing ticket.
func (s *NotificationService) OnTicketUpdated(ctx context.Context, entry *domain.ThreadEntry) error {
	cfg, err := s.ready(domain.EventTicketUpdated)
	if err != nil {
		return err
	}
	if !entry.IsMessage() {
		return s.skip(domain.EventTicketUpdated, apperrors.ErrNotUserMessage)
	}

	ticket, err := s.lookup.GetTicketByThreadID(ctx, entry.ThreadID)
	if err != nil && !errors.Is(err, apperrors.ErrTicketNotFound) {
		s.logger.Error("failed to resolve ticket for thread entry",
			"entry_id", entry.ID,
			"thread_id", entry.ThreadID,
			"error", err,
		)
		notificationsTotal.WithLabelValues(string(domain.EventTicketUpdated), "lookup_failed").Inc()
		return fmt.Errorf("resolve ticket for entry %d: %w", entry.ID, err)
	}
	if ticket == nil {
		// Threads of admin-created tickets have no resolvable owner.
		return s.skip(domain.EventTicketUpdated, apperrors.ErrMissingTicketContext,
			"entry_id", entry.ID, "thread_id", entry.ThreadID)
	}

	if ticket.IsFirstMessage(entry) {
		return s.skip(domain.EventTicketUpdated, apperrors.ErrFirstEntry,
			"entry_id", entry.ID, "ticket_id", ticket.ID)
	}

	return s.notify(ctx, cfg, domain.TicketEvent{
		Kind:    domain.EventTicketUpdated,
		Ticket:  ticket,
		BaseURL: cfg.settings.HelpdeskURL,
		Body:    entry.Body,
	})
}

// Preview renders the notification for a ticket without sending it.
func (s *NotificationService) Preview(ctx context.Context, params ports.PreviewParams) (*ports.Preview, error) {
	cfg := s.cfg.Load()
	if cfg == nil {
		return nil, apperrors.ErrNotInitialized
	}

	ticket, err := s.lookup.GetTicket(ctx, params.TicketID)
	if err != nil {
		return nil, err
	}

	settings := cfg.settings
	if params.Template != "" {
		settings.MessageTemplate = params.Template
	}

	payload := compose(settings, domain.TicketEvent{
		Kind:    domain.EventTicketCreated,
		Ticket:  ticket,
		BaseURL: settings.HelpdeskURL,
		Body:    params.Message,
	})
	return &ports.Preview{Heading: payload.Heading, Text: payload.Text}, nil
}

// ready returns the active configuration, or ErrNotInitialized when the
// pipeline has not been configured yet.
func (s *NotificationService) ready(kind domain.EventKind) (*pipelineConfig, error) {
	cfg := s.cfg.Load()
	if cfg == nil {
		s.logger.Warn("notifier called before initialization", "event", kind)
		notificationsTotal.WithLabelValues(string(kind), apperrors.ResultCode(apperrors.ErrNotInitialized)).Inc()
		return nil, apperrors.ErrNotInitialized
	}
	return cfg, nil
}

// skip ends an event that is not eligible for notification.
func (s *NotificationService) skip(kind domain.EventKind, reason error, attrs ...any) error {
	s.logger.Debug("notification skipped", append([]any{"event", kind, "reason", reason.Error()}, attrs...)...)
	notificationsTotal.WithLabelValues(string(kind), apperrors.ResultCode(reason)).Inc()
	return reason
}

func (s *NotificationService) notify(ctx context.Context, cfg *pipelineConfig, event domain.TicketEvent) error {
	ticket := event.Ticket
	logger := s.logger.With(
		"event", event.Kind,
		"ticket_id", ticket.ID,
		"ticket_number", ticket.Number,
	)
	kind := string(event.Kind)

	if cfg.filterErr != nil {
		logger.Warn("subject filter skipped: rule does not compile",
			"rule", cfg.settings.SubjectIgnoreRegex,
			"error", cfg.filterErr,
		)
	}
	matched, err := cfg.filter.Match(ticket.Subject)
	if err != nil {
		logger.Warn("subject filter skipped: evaluation failed", "error", err)
	}
	if matched {
		logger.Debug("notification suppressed: subject matched filter",
			"subject", ticket.Subject,
			"rule", cfg.filter.Rule(),
		)
		notificationsTotal.WithLabelValues(kind, apperrors.ResultCode(apperrors.ErrFilteredBySubject)).Inc()
		return apperrors.ErrFilteredBySubject
	}

	payload := compose(cfg.settings, event)

	if !cfg.settings.HasWebhook() {
		logger.Error("notifier not configured: a webhook URL is required before notifications can be sent")
		notificationsTotal.WithLabelValues(kind, apperrors.ResultCode(apperrors.ErrMisconfigured)).Inc()
		return apperrors.ErrMisconfigured
	}

	// The send runs to completion even if the signalling caller goes away.
	outcome := s.sender.Send(context.WithoutCancel(ctx), cfg.settings.WebhookURL, payload)
	outcome.TicketID = ticket.ID
	outcome.Heading = payload.Heading
	outcome.Color = payload.Color

	deliveryErr := apperrors.FromOutcome(outcome)
	if deliveryErr != nil {
		logger.Error("webhook delivery failed",
			"delivery_id", outcome.ID,
			"kind", outcome.Kind,
			"status_code", outcome.StatusCode,
			"error", deliveryErr,
		)
	} else {
		logger.Info("notification delivered",
			"delivery_id", outcome.ID,
			"duration_ms", outcome.Duration.Milliseconds(),
		)
	}
	notificationsTotal.WithLabelValues(kind, apperrors.ResultCode(deliveryErr)).Inc()

	if s.broadcaster != nil {
		_ = s.broadcaster.Broadcast(domain.FeedEvent{
			Type:     domain.FeedDeliveryOutcome,
			Payload:  outcome,
			TicketID: ticket.ID,
		})
	}

	return deliveryErr
}

// compose builds the webhook payload for an event.
func compose(settings domain.NotifierSettings, event domain.TicketEvent) domain.NotificationPayload {
	ticket := event.Ticket
	ticketURL := ticket.URL(event.BaseURL)

	heading := headingFor(event.Kind, ticketURL, ticket.Number).String()
	message := render.Render(settings.Template(), ticket.Vars(), render.Vars{
		render.SafeMessageVar: markup.Sanitize(event.Body),
	})

	return domain.NotificationPayload{
		TicketID: ticket.ID,
		APIKey:   settings.APIToken,
		UserName: settings.User,
		Stream:   settings.Stream,
		Channel:  settings.Channel,
		Text: fmt.Sprintf("%s - %s [#%s](%s)  %s",
			ticket.Number, ticket.Subject, ticket.Number, ticketURL, message),
		Heading: heading,
		Color:   event.Color(),
	}
}

func headingFor(kind domain.EventKind, ticketURL, number string) markup.Message {
	link := markup.Link(ticketURL, "#"+number)
	if kind == domain.EventTicketUpdated {
		return markup.New("Ticket ", link, " updated")
	}
	return markup.New("New Ticket ", link, " created")
}
