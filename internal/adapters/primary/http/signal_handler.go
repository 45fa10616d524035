package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lorrc/service-desk-notifier/internal/adapters/primary/validation"
	"github.com/lorrc/service-desk-notifier/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-notifier/internal/core/errors"
	"github.com/lorrc/service-desk-notifier/internal/core/ports"
	"github.com/lorrc/service-desk-notifier/internal/infrastructure/logging"
)

// SignalHandler receives helpdesk signals and runs them through the
// notification pipeline. A signal is always acknowledged with 202 once the
// request itself is well formed; the body reports what the pipeline did.
type SignalHandler struct {
	notifier     ports.NotificationService
	lookup       ports.TicketLookup
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewSignalHandler creates a new signal handler
func NewSignalHandler(
	notifier ports.NotificationService,
	lookup ports.TicketLookup,
	errorHandler *ErrorHandler,
	logger *slog.Logger,
) *SignalHandler {
	return &SignalHandler{
		notifier:     notifier,
		lookup:       lookup,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "signal"),
	}
}

// RegisterRoutes sets up the routing for the signal endpoints.
func (h *SignalHandler) RegisterRoutes(r chi.Router) {
	r.Post("/"+string(domain.EventTicketCreated), h.HandleTicketCreated)
	r.Post("/"+string(domain.EventTicketUpdated), h.HandleThreadEntryCreated)
}

// --- Request/Response DTOs ---

// TicketCreatedRequest defines the JSON body of a ticket.created signal
type TicketCreatedRequest struct {
	TicketID int64 `json:"ticketId"`
}

// Validate validates the ticket.created signal
func (r *TicketCreatedRequest) Validate() error {
	v := validation.NewValidator().PositiveID("ticketId", r.TicketID)
	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// ThreadEntryCreatedRequest defines the JSON body of a threadentry.created signal
type ThreadEntryCreatedRequest struct {
	EntryID int64 `json:"entryId"`
}

// Validate validates the threadentry.created signal
func (r *ThreadEntryCreatedRequest) Validate() error {
	v := validation.NewValidator().PositiveID("entryId", r.EntryID)
	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// SignalResponse reports the pipeline result for a signal.
type SignalResponse struct {
	Result string `json:"result"`
	Reason string `json:"reason,omitempty"`
}

// --- Handlers ---

// HandleTicketCreated handles POST /signals/ticket.created
func (h *SignalHandler) HandleTicketCreated(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeAndValidate[TicketCreatedRequest](w, r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	if err := req.Validate(); HandleError(w, r, err, h.errorHandler) {
		return
	}

	ctx := logging.WithEvent(r.Context(), string(domain.EventTicketCreated))
	ctx = logging.WithTicketID(ctx, req.TicketID)

	ticket, err := h.lookup.GetTicket(ctx, req.TicketID)
	if err != nil && !errors.Is(err, apperrors.ErrTicketNotFound) {
		h.logger.ErrorContext(ctx, "failed to load ticket for signal", "error", err)
		h.respond(w, err)
		return
	}

	// A missing ticket reaches the pipeline as absent context.
	h.respond(w, h.notifier.OnTicketCreated(ctx, ticket))
}

// HandleThreadEntryCreated handles POST /signals/threadentry.created
func (h *SignalHandler) HandleThreadEntryCreated(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeAndValidate[ThreadEntryCreatedRequest](w, r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	if err := req.Validate(); HandleError(w, r, err, h.errorHandler) {
		return
	}

	ctx := logging.WithEvent(r.Context(), string(domain.EventTicketUpdated))

	entry, err := h.lookup.GetThreadEntry(ctx, req.EntryID)
	if err != nil {
		if errors.Is(err, apperrors.ErrEntryNotFound) {
			h.logger.DebugContext(ctx, "signal for unknown thread entry", "entry_id", req.EntryID)
			WriteAccepted(w, SignalResponse{
				Result: apperrors.ResultCode(apperrors.ErrMissingTicketContext),
				Reason: err.Error(),
			})
			return
		}
		h.logger.ErrorContext(ctx, "failed to load thread entry for signal", "entry_id", req.EntryID, "error", err)
		h.respond(w, err)
		return
	}

	h.respond(w, h.notifier.OnTicketUpdated(ctx, entry))
}

func (h *SignalHandler) respond(w http.ResponseWriter, err error) {
	resp := SignalResponse{Result: apperrors.ResultCode(err)}
	if err != nil {
		resp.Reason = err.Error()
	}
	WriteAccepted(w, resp)
}
