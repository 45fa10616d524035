package ports

import (
	"context"

	"github.com/lorrc/service-desk-notifier/internal/core/domain"
)

// TicketLookup gives read-only access to the helpdesk's tickets and threads.
type TicketLookup interface {
	GetTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error)
	GetThreadEntry(ctx context.Context, entryID int64) (*domain.ThreadEntry, error)
	// GetTicketByThreadID returns ErrTicketNotFound when the thread does not
	// belong to a ticket.
	GetTicketByThreadID(ctx context.Context, threadID int64) (*domain.Ticket, error)
}
