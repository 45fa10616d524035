package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lorrc/service-desk-notifier/internal/adapters/secondary/htmltext"
	"github.com/lorrc/service-desk-notifier/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-notifier/internal/core/errors"
	"github.com/lorrc/service-desk-notifier/internal/core/ports"
	"github.com/lorrc/service-desk-notifier/internal/core/utils"
)

// objectTicket marks threads owned by a ticket.
const objectTicket = "T"

const (
	getTicketSQL = `
SELECT t.id, t.number, t.subject, t.created_at, th.id
FROM tickets t
LEFT JOIN threads th ON th.object_type = 'T' AND th.object_id = t.id
WHERE t.id = $1`

	listMessagesSQL = `
SELECT id, thread_id, type, body, format, created_at
FROM thread_entries
WHERE thread_id = $1 AND type = 'M'
ORDER BY created_at, id`

	listFieldsSQL = `
SELECT name, value
FROM ticket_fields
WHERE ticket_id = $1`

	getThreadEntrySQL = `
SELECT id, thread_id, type, body, format, created_at
FROM thread_entries
WHERE id = $1`

	getThreadOwnerSQL = `
SELECT object_id, object_type
FROM threads
WHERE id = $1`
)

// TicketLookup is the secondary adapter reading tickets from the helpdesk
// database. It never writes.
type TicketLookup struct {
	pool *pgxpool.Pool
}

// Ensure TicketLookup implements the ports.TicketLookup interface.
var _ ports.TicketLookup = (*TicketLookup)(nil)

// NewTicketLookup creates a new ticket lookup.
func NewTicketLookup(pool *pgxpool.Pool) *TicketLookup {
	return &TicketLookup{pool: pool}
}

// Ping reports whether the helpdesk database is reachable.
func (r *TicketLookup) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// GetTicket retrieves a ticket with its user messages and custom fields.
func (r *TicketLookup) GetTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	err := r.readOnly(ctx, func(ctx context.Context, q DBTX) error {
		var err error
		ticket, err = getTicket(ctx, q, ticketID)
		return err
	})
	return ticket, err
}

// GetThreadEntry retrieves a single thread entry with its body as plain text.
func (r *TicketLookup) GetThreadEntry(ctx context.Context, entryID int64) (*domain.ThreadEntry, error) {
	entry, err := scanEntry(GetDBTX(ctx, r.pool).QueryRow(ctx, getThreadEntrySQL, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrEntryNotFound
		}
		return nil, fmt.Errorf("get thread entry %d: %w", entryID, err)
	}
	return entry, nil
}

// GetTicketByThreadID retrieves the ticket owning a thread. Threads owned by
// anything other than a ticket yield ErrTicketNotFound.
func (r *TicketLookup) GetTicketByThreadID(ctx context.Context, threadID int64) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	err := r.readOnly(ctx, func(ctx context.Context, q DBTX) error {
		var (
			objectID   int64
			objectType string
		)
		err := q.QueryRow(ctx, getThreadOwnerSQL, threadID).Scan(&objectID, &objectType)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.ErrTicketNotFound
			}
			return fmt.Errorf("get thread %d: %w", threadID, err)
		}
		if objectType != objectTicket {
			return apperrors.ErrTicketNotFound
		}

		ticket, err = getTicket(ctx, q, objectID)
		return err
	})
	return ticket, err
}

// readOnly runs fn in a read-only transaction so a ticket and its thread are
// read from one snapshot.
func (r *TicketLookup) readOnly(ctx context.Context, fn func(ctx context.Context, q DBTX) error) error {
	if tx, ok := TxFromContext(ctx); ok {
		return fn(ctx, tx)
	}
	return NewTransactionManager(r.pool).WithReadOnlyTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, tx)
	})
}

func getTicket(ctx context.Context, q DBTX, ticketID int64) (*domain.Ticket, error) {
	var (
		subject  pgtype.Text
		threadID pgtype.Int8
		ticket   domain.Ticket
	)
	err := q.QueryRow(ctx, getTicketSQL, ticketID).
		Scan(&ticket.ID, &ticket.Number, &subject, &ticket.CreatedAt, &threadID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrTicketNotFound
		}
		return nil, fmt.Errorf("get ticket %d: %w", ticketID, err)
	}
	ticket.Subject = utils.FromText(subject)
	ticket.ThreadID = utils.FromInt8(threadID)

	if ticket.ThreadID != 0 {
		ticket.Messages, err = listMessages(ctx, q, ticket.ThreadID)
		if err != nil {
			return nil, err
		}
	}

	ticket.Fields, err = listFields(ctx, q, ticket.ID)
	if err != nil {
		return nil, err
	}

	return &ticket, nil
}

func listMessages(ctx context.Context, q DBTX, threadID int64) ([]*domain.ThreadEntry, error) {
	rows, err := q.Query(ctx, listMessagesSQL, threadID)
	if err != nil {
		return nil, fmt.Errorf("list messages of thread %d: %w", threadID, err)
	}
	defer rows.Close()

	var messages []*domain.ThreadEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, entry)
	}
	return messages, rows.Err()
}

func listFields(ctx context.Context, q DBTX, ticketID int64) (map[string]string, error) {
	rows, err := q.Query(ctx, listFieldsSQL, ticketID)
	if err != nil {
		return nil, fmt.Errorf("list fields of ticket %d: %w", ticketID, err)
	}
	defer rows.Close()

	fields := make(map[string]string)
	for rows.Next() {
		var (
			name  string
			value pgtype.Text
		)
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan field: %w", err)
		}
		fields[name] = utils.FromText(value)
	}
	return fields, rows.Err()
}

// scanEntry maps a thread_entries row to the domain, converting HTML bodies.
func scanEntry(row pgx.Row) (*domain.ThreadEntry, error) {
	var (
		entry     domain.ThreadEntry
		entryType string
		body      string
		format    string
		createdAt time.Time
	)
	if err := row.Scan(&entry.ID, &entry.ThreadID, &entryType, &body, &format, &createdAt); err != nil {
		return nil, err
	}
	entry.Type = domain.EntryType(entryType)
	if !entry.Type.IsValid() {
		return nil, fmt.Errorf("thread entry %d has unknown type %q", entry.ID, entryType)
	}
	entry.Body = htmltext.FromFormat(body, format)
	entry.CreatedAt = createdAt
	return &entry, nil
}
