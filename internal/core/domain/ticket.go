package domain

import (
	"strconv"
	"strings"
	"time"
)

// EntryType identifies what kind of thread entry was recorded.
type EntryType string

const (
	EntryMessage  EntryType = "M" // message from the end user
	EntryResponse EntryType = "R" // staff reply
	EntryNote     EntryType = "N" // internal note or system entry
)

// IsValid reports whether the entry type is one the helpdesk produces.
func (t EntryType) IsValid() bool {
	switch t {
	case EntryMessage, EntryResponse, EntryNote:
		return true
	}
	return false
}

// ThreadEntry is a single message or event recorded against a ticket's conversation.
type ThreadEntry struct {
	ID        int64
	ThreadID  int64
	Type      EntryType
	Body      string // plain text, never HTML
	CreatedAt time.Time
}

// IsMessage reports whether the entry was written by the end user.
func (e *ThreadEntry) IsMessage() bool {
	return e != nil && e.Type == EntryMessage
}

// Ticket is the helpdesk ticket as seen by the notifier. It is read-only:
// the notifier never writes back to the helpdesk.
type Ticket struct {
	ID        int64
	Number    string
	Subject   string
	ThreadID  int64
	Messages  []*ThreadEntry // user messages, oldest first
	Fields    map[string]string
	CreatedAt time.Time
}

// FirstMessage returns the ticket's opening message, or nil when the ticket
// was created without one (custom form submissions).
func (t *Ticket) FirstMessage() *ThreadEntry {
	if t == nil || len(t.Messages) == 0 {
		return nil
	}
	return t.Messages[0]
}

// IsFirstMessage reports whether the entry is the message that opened the ticket.
func (t *Ticket) IsFirstMessage(entry *ThreadEntry) bool {
	first := t.FirstMessage()
	return first != nil && entry != nil && first.ID == entry.ID
}

// URL returns the staff panel link for the ticket under the helpdesk base URL.
func (t *Ticket) URL(baseURL string) string {
	if baseURL != "" && !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return baseURL + "scp/tickets.php?id=" + strconv.FormatInt(t.ID, 10)
}

// Vars returns the ticket's variable set for message templates.
func (t *Ticket) Vars() map[string]string {
	id := strconv.FormatInt(t.ID, 10)
	vars := map[string]string{
		"id":             id,
		"number":         t.Number,
		"subject":        t.Subject,
		"ticket.id":      id,
		"ticket.number":  t.Number,
		"ticket.subject": t.Subject,
	}
	if !t.CreatedAt.IsZero() {
		created := t.CreatedAt.UTC().Format(time.RFC3339)
		vars["created"] = created
		vars["ticket.created"] = created
	}
	for name, value := range t.Fields {
		key := strings.ToLower(name)
		vars["field."+key] = value
		// Standard variables win over custom fields of the same name.
		if _, taken := vars["ticket."+key]; !taken {
			vars["ticket."+key] = value
		}
	}
	return vars
}
