package domain

// EventKind is the helpdesk signal that triggered a notification.
type EventKind string

const (
	EventTicketCreated EventKind = "ticket.created"
	EventTicketUpdated EventKind = "threadentry.created"
)

// Color tags sent along with each kind of event.
const (
	ColorCreated = "good"
	ColorUpdated = "warning"
)

// TicketEvent is what the handlers extract from a helpdesk signal before
// handing it to the pipeline. Body is plain text and may be empty.
type TicketEvent struct {
	Kind    EventKind
	Ticket  *Ticket
	BaseURL string
	Body    string
}

// Color returns the color tag for the event kind.
func (e TicketEvent) Color() string {
	if e.Kind == EventTicketUpdated {
		return ColorUpdated
	}
	return ColorCreated
}

// FeedEventType defines the type of message pushed to operator feed clients.
type FeedEventType string

const (
	FeedDeliveryOutcome FeedEventType = "DELIVERY_OUTCOME"
	FeedPong            FeedEventType = "PONG"
)

// FeedEvent is the payload sent over WebSocket to operators.
type FeedEvent struct {
	Type     FeedEventType `json:"type"`
	Payload  interface{}   `json:"payload,omitempty"`
	TicketID int64         `json:"ticketId,omitempty"` // Used for routing to ticket subscribers
}
