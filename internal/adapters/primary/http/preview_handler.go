package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lorrc/service-desk-notifier/internal/adapters/primary/validation"
	"github.com/lorrc/service-desk-notifier/internal/core/ports"
	"github.com/lorrc/service-desk-notifier/internal/core/render"
)

const (
	maxTemplateLength = 4000
	maxMessageLength  = 65535
)

// PreviewHandler renders notifications for operators without sending them.
type PreviewHandler struct {
	notifier     ports.NotificationService
	errorHandler *ErrorHandler
	logger       *slog.Logger
}

// NewPreviewHandler creates a new preview handler
func NewPreviewHandler(notifier ports.NotificationService, errorHandler *ErrorHandler, logger *slog.Logger) *PreviewHandler {
	return &PreviewHandler{
		notifier:     notifier,
		errorHandler: errorHandler,
		logger:       logger.With("handler", "preview"),
	}
}

// RegisterRoutes sets up the routing for the preview endpoint.
func (h *PreviewHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.HandlePreview)
}

// PreviewRequest defines the expected JSON body for a preview
type PreviewRequest struct {
	TicketID int64  `json:"ticketId"`
	Template string `json:"template"`
	Message  string `json:"message"`
}

// Validate validates the preview request
func (r *PreviewRequest) Validate() error {
	v := validation.NewValidator()

	v.PositiveID("ticketId", r.TicketID)
	v.MaxLength("template", r.Template, maxTemplateLength)
	v.MaxLength("message", r.Message, maxMessageLength)

	if v.HasErrors() {
		return v.Errors()
	}
	return nil
}

// PreviewDTO defines the JSON response for a preview.
type PreviewDTO struct {
	Heading      string   `json:"heading"`
	Text         string   `json:"text"`
	Placeholders []string `json:"placeholders"`
}

// HandlePreview handles POST /preview
func (h *PreviewHandler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	req, err := validation.DecodeAndValidate[PreviewRequest](w, r)
	if HandleError(w, r, err, h.errorHandler) {
		return
	}
	if err := req.Validate(); HandleError(w, r, err, h.errorHandler) {
		return
	}

	preview, err := h.notifier.Preview(r.Context(), ports.PreviewParams{
		TicketID: req.TicketID,
		Template: req.Template,
		Message:  req.Message,
	})
	if HandleError(w, r, err, h.errorHandler) {
		return
	}

	placeholders := render.Placeholders(req.Template)
	if placeholders == nil {
		placeholders = []string{}
	}

	WriteJSON(w, http.StatusOK, PreviewDTO{
		Heading:      preview.Heading,
		Text:         preview.Text,
		Placeholders: placeholders,
	})
}
