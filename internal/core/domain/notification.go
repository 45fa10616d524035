package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationPayload is the data sent to the chat webhook for one event.
// It is built per event and discarded after the send attempt.
type NotificationPayload struct {
	TicketID int64
	APIKey   string
	UserName string
	Stream   string
	Channel  string
	Text     string

	// Heading and Color are not part of the wire format; they travel with the
	// payload for logging and the operator feed.
	Heading string
	Color   string
}

// DeliveryKind classifies the result of a send attempt.
type DeliveryKind string

const (
	DeliverySucceeded        DeliveryKind = "success"
	DeliveryTransportError   DeliveryKind = "transport_error"
	DeliveryNonSuccessStatus DeliveryKind = "non_success_status"
)

// DeliveryOutcome is the result of a single webhook send. It is logged and
// broadcast, never queued or retried.
type DeliveryOutcome struct {
	ID         uuid.UUID     `json:"id"`
	TicketID   int64         `json:"ticketId"`
	Kind       DeliveryKind  `json:"kind"`
	StatusCode int           `json:"statusCode,omitempty"`
	Detail     string        `json:"detail,omitempty"`
	Heading    string        `json:"heading,omitempty"`
	Color      string        `json:"color,omitempty"`
	Duration   time.Duration `json:"durationNs"`
	SentAt     time.Time     `json:"sentAt"`
}

// Succeeded reports whether the webhook accepted the notification.
func (o DeliveryOutcome) Succeeded() bool {
	return o.Kind == DeliverySucceeded
}
