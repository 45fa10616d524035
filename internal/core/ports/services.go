package ports

import (
	"context"

	"github.com/lorrc/service-desk-notifier/internal/core/domain"
)

// PipelineState is the lifecycle state of the notification pipeline.
type PipelineState string

const (
	StateUninitialized PipelineState = "uninitialized"
	StateReady         PipelineState = "ready"
)

// NotificationService defines the entry points invoked for helpdesk signals.
type NotificationService interface {
	OnTicketCreated(ctx context.Context, ticket *domain.Ticket) error
	OnTicketUpdated(ctx context.Context, entry *domain.ThreadEntry) error
	Preview(ctx context.Context, params PreviewParams) (*Preview, error)
	State() PipelineState
}

// PreviewParams defines the input for rendering a message without sending it.
type PreviewParams struct {
	TicketID int64
	Template string // empty uses the configured template
	Message  string
}

// Preview is a rendered notification that was not sent.
type Preview struct {
	Heading string
	Text    string
}

// WebhookSender defines the port for delivering a payload to the chat webhook.
type WebhookSender interface {
	Send(ctx context.Context, url string, payload domain.NotificationPayload) domain.DeliveryOutcome
}

// EventBroadcaster defines the port for pushing events to live operator feeds.
type EventBroadcaster interface {
	Broadcast(event domain.FeedEvent) error
}
