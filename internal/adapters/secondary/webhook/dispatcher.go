package webhook

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lorrc/service-desk-notifier/internal/core/domain"
	"github.com/lorrc/service-desk-notifier/internal/core/ports"
)

const userAgent = "service-desk-notifier/1"

// Form fields expected by the chat webhook.
const (
	fieldAPIKey   = "api_key"
	fieldUserName = "user_name"
	fieldStream   = "stream"
	fieldChannel  = "channel_name"
	fieldText     = "text"
)

// Config holds the configuration for creating a Dispatcher.
type Config struct {
	// Timeout bounds a single request. Zero leaves the request bounded only
	// by the caller's context and the transport defaults.
	Timeout time.Duration
}

// Dispatcher delivers notification payloads to the chat webhook with a
// single form-encoded POST. It never retries.
type Dispatcher struct {
	client *http.Client
	logger *slog.Logger
}

var _ ports.WebhookSender = (*Dispatcher)(nil)

// NewDispatcher creates a Dispatcher.
func NewDispatcher(cfg Config, logger *slog.Logger) *Dispatcher {
	timeout := cfg.Timeout
	if timeout < 0 {
		timeout = 0
	}
	return &Dispatcher{
		client: &http.Client{
			Timeout:   timeout,
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
		},
		logger: logger.With("component", "webhook_dispatcher"),
	}
}

// Send posts the payload to rawURL and reports what happened. Only HTTP 200
// counts as success; the response body is discarded.
func (d *Dispatcher) Send(ctx context.Context, rawURL string, payload domain.NotificationPayload) domain.DeliveryOutcome {
	start := time.Now()
	outcome := domain.DeliveryOutcome{
		ID:       uuid.New(),
		TicketID: payload.TicketID,
		SentAt:   start.UTC(),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(encodeForm(payload)))
	if err != nil {
		return d.finish(outcome, start, domain.DeliveryTransportError, 0,
			fmt.Sprintf("%s - create request: %v", RedactURL(rawURL), err))
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return d.finish(outcome, start, domain.DeliveryTransportError, 0,
			fmt.Sprintf("%s - %v", RedactURL(rawURL), err))
	}
	defer func() {
		// Drain and close body to reuse connections.
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return d.finish(outcome, start, domain.DeliveryNonSuccessStatus, resp.StatusCode,
			fmt.Sprintf("error sending to %s: HTTP %d", RedactURL(rawURL), resp.StatusCode))
	}

	return d.finish(outcome, start, domain.DeliverySucceeded, resp.StatusCode, "")
}

// CloseIdleConnections releases pooled connections held by the client.
func (d *Dispatcher) CloseIdleConnections() {
	d.client.CloseIdleConnections()
}

func (d *Dispatcher) finish(outcome domain.DeliveryOutcome, start time.Time, kind domain.DeliveryKind, status int, detail string) domain.DeliveryOutcome {
	outcome.Kind = kind
	outcome.StatusCode = status
	outcome.Detail = detail
	outcome.Duration = time.Since(start)

	webhookSendTotal.WithLabelValues(string(kind)).Inc()
	webhookSendDuration.WithLabelValues(string(kind)).Observe(outcome.Duration.Seconds())

	d.logger.Debug("webhook request finished",
		"delivery_id", outcome.ID,
		"ticket_id", outcome.TicketID,
		"kind", kind,
		"status_code", status,
		"duration_ms", outcome.Duration.Milliseconds(),
	)
	return outcome
}

func encodeForm(payload domain.NotificationPayload) string {
	form := url.Values{}
	form.Set(fieldAPIKey, payload.APIKey)
	form.Set(fieldUserName, payload.UserName)
	form.Set(fieldStream, payload.Stream)
	form.Set(fieldChannel, payload.Channel)
	form.Set(fieldText, payload.Text)
	return form.Encode()
}

// ValidateURL checks that rawURL is an absolute http(s) URL with a host.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("webhook URL must use http or https scheme, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("webhook URL must include a host")
	}
	return nil
}

// RedactURL masks credentials in a URL for safe logging.
// It redacts userinfo passwords and query parameter values.
func RedactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<invalid-url>"
	}
	if u.RawQuery != "" {
		q := u.Query()
		for key := range q {
			q.Set(key, "REDACTED")
		}
		u.RawQuery = q.Encode()
	}
	return u.Redacted()
}
