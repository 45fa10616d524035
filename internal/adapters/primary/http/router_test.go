package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	stdhttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lorrc/service-desk-notifier/internal/auth"
	"github.com/lorrc/service-desk-notifier/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-notifier/internal/core/errors"
	"github.com/lorrc/service-desk-notifier/internal/core/mocks"
	"github.com/lorrc/service-desk-notifier/internal/core/ports"
)

const testSecret = "router-test-secret"

type testEnv struct {
	router   stdhttp.Handler
	tm       *auth.TokenManager
	notifier *mocks.MockNotificationService
	lookup   *mocks.MockTicketLookup
	db       *fakePinger
}

type fakePinger struct {
	err error
}

func (p *fakePinger) Ping(ctx context.Context) error {
	return p.err
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env := &testEnv{
		tm:       auth.NewTokenManager(testSecret, time.Hour),
		notifier: mocks.NewMockNotificationService(),
		lookup:   mocks.NewMockTicketLookup(),
		db:       &fakePinger{},
	}

	errorHandler := NewErrorHandler(logger)
	env.router = NewRouter(RouterConfig{
		Signals:      NewSignalHandler(env.notifier, env.lookup, errorHandler, logger),
		Preview:      NewPreviewHandler(env.notifier, errorHandler, logger),
		Health:       NewHealthHandler(env.db, env.notifier, "test"),
		TokenManager: env.tm,
		CORSOrigins:  []string{"https://ops.example.com"},
		Logger:       logger,
	})

	t.Cleanup(func() {
		env.notifier.AssertExpectations(t)
		env.lookup.AssertExpectations(t)
	})
	return env
}

func (e *testEnv) token(t *testing.T, scopes ...string) string {
	t.Helper()
	token, err := e.tm.GenerateToken("helpdesk", scopes...)
	require.NoError(t, err)
	return token
}

func (e *testEnv) post(t *testing.T, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(stdhttp.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeSignal(t *testing.T, rec *httptest.ResponseRecorder) SignalResponse {
	t.Helper()
	var resp SignalResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func testTicket() *domain.Ticket {
	return &domain.Ticket{
		ID:       7,
		Number:   "100007",
		Subject:  "Printer on fire",
		ThreadID: 70,
		Messages: []*domain.ThreadEntry{{ID: 700, ThreadID: 70, Type: domain.EntryMessage, Body: "help"}},
	}
}

func TestSignals_Auth(t *testing.T) {
	env := newTestEnv(t)

	t.Run("missing token", func(t *testing.T) {
		rec := env.post(t, "/api/v1/signals/ticket.created", "", map[string]any{"ticketId": 7})
		assert.Equal(t, stdhttp.StatusUnauthorized, rec.Code)
		assert.Equal(t, "UNAUTHORIZED", decodeError(t, rec).Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		rec := env.post(t, "/api/v1/signals/ticket.created", "not-a-jwt", map[string]any{"ticketId": 7})
		assert.Equal(t, stdhttp.StatusUnauthorized, rec.Code)
	})

	t.Run("missing scope", func(t *testing.T) {
		token := env.token(t, auth.ScopeTemplatePreview)
		rec := env.post(t, "/api/v1/signals/ticket.created", token, map[string]any{"ticketId": 7})
		assert.Equal(t, stdhttp.StatusForbidden, rec.Code)
		assert.Equal(t, "FORBIDDEN", decodeError(t, rec).Code)
	})
}

func TestSignals_TicketCreated(t *testing.T) {
	t.Run("dispatched", func(t *testing.T) {
		env := newTestEnv(t)
		ticket := testTicket()

		env.lookup.On("GetTicket", mock.Anything, int64(7)).Return(ticket, nil).Once()
		env.notifier.On("OnTicketCreated", mock.Anything, ticket).Return(nil).Once()

		rec := env.post(t, "/api/v1/signals/ticket.created", env.token(t, auth.ScopeSignalsWrite), map[string]any{"ticketId": 7})

		assert.Equal(t, stdhttp.StatusAccepted, rec.Code)
		resp := decodeSignal(t, rec)
		assert.Equal(t, "dispatched", resp.Result)
		assert.Empty(t, resp.Reason)
	})

	t.Run("suppressed by filter", func(t *testing.T) {
		env := newTestEnv(t)
		ticket := testTicket()

		env.lookup.On("GetTicket", mock.Anything, int64(7)).Return(ticket, nil).Once()
		env.notifier.On("OnTicketCreated", mock.Anything, ticket).Return(apperrors.ErrFilteredBySubject).Once()

		rec := env.post(t, "/api/v1/signals/ticket.created", env.token(t, auth.ScopeSignalsWrite), map[string]any{"ticketId": 7})

		assert.Equal(t, stdhttp.StatusAccepted, rec.Code)
		resp := decodeSignal(t, rec)
		assert.Equal(t, "suppressed", resp.Result)
		assert.Equal(t, apperrors.ErrFilteredBySubject.Error(), resp.Reason)
	})

	t.Run("unknown ticket reaches the pipeline as absent", func(t *testing.T) {
		env := newTestEnv(t)

		env.lookup.On("GetTicket", mock.Anything, int64(9)).Return(nil, apperrors.ErrTicketNotFound).Once()
		env.notifier.On("OnTicketCreated", mock.Anything, (*domain.Ticket)(nil)).
			Return(apperrors.ErrMissingTicketContext).Once()

		rec := env.post(t, "/api/v1/signals/ticket.created", env.token(t, auth.ScopeSignalsWrite), map[string]any{"ticketId": 9})

		assert.Equal(t, stdhttp.StatusAccepted, rec.Code)
		assert.Equal(t, "skipped", decodeSignal(t, rec).Result)
	})

	t.Run("lookup failure", func(t *testing.T) {
		env := newTestEnv(t)

		env.lookup.On("GetTicket", mock.Anything, int64(7)).Return(nil, errors.New("connection reset")).Once()

		rec := env.post(t, "/api/v1/signals/ticket.created", env.token(t, auth.ScopeSignalsWrite), map[string]any{"ticketId": 7})

		assert.Equal(t, stdhttp.StatusAccepted, rec.Code)
		resp := decodeSignal(t, rec)
		assert.Equal(t, "error", resp.Result)
		assert.Contains(t, resp.Reason, "connection reset")
		env.notifier.AssertNotCalled(t, "OnTicketCreated", mock.Anything, mock.Anything)
	})

	t.Run("delivery failure", func(t *testing.T) {
		env := newTestEnv(t)
		ticket := testTicket()
		deliveryErr := &apperrors.DeliveryError{Kind: domain.DeliveryNonSuccessStatus, StatusCode: 500, Detail: "HTTP 500"}

		env.lookup.On("GetTicket", mock.Anything, int64(7)).Return(ticket, nil).Once()
		env.notifier.On("OnTicketCreated", mock.Anything, ticket).Return(deliveryErr).Once()

		rec := env.post(t, "/api/v1/signals/ticket.created", env.token(t, auth.ScopeSignalsWrite), map[string]any{"ticketId": 7})

		assert.Equal(t, stdhttp.StatusAccepted, rec.Code)
		assert.Equal(t, "delivery_failed", decodeSignal(t, rec).Result)
	})

	t.Run("malformed body", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.post(t, "/api/v1/signals/ticket.created", env.token(t, auth.ScopeSignalsWrite), "{not json")
		assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)
		assert.Equal(t, "BAD_REQUEST", decodeError(t, rec).Code)
	})

	t.Run("empty body", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.post(t, "/api/v1/signals/ticket.created", env.token(t, auth.ScopeSignalsWrite), "")
		assert.Equal(t, stdhttp.StatusBadRequest, rec.Code)
	})

	t.Run("invalid ticket id", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.post(t, "/api/v1/signals/ticket.created", env.token(t, auth.ScopeSignalsWrite), map[string]any{"ticketId": 0})

		assert.Equal(t, stdhttp.StatusUnprocessableEntity, rec.Code)
		var resp ValidationErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "VALIDATION_ERROR", resp.Code)
		assert.Contains(t, resp.Fields, "ticketId")
	})
}

func TestSignals_ThreadEntryCreated(t *testing.T) {
	entry := &domain.ThreadEntry{ID: 701, ThreadID: 70, Type: domain.EntryMessage, Body: "any update?"}

	t.Run("dispatched", func(t *testing.T) {
		env := newTestEnv(t)

		env.lookup.On("GetThreadEntry", mock.Anything, int64(701)).Return(entry, nil).Once()
		env.notifier.On("OnTicketUpdated", mock.Anything, entry).Return(nil).Once()

		rec := env.post(t, "/api/v1/signals/threadentry.created", env.token(t, auth.ScopeSignalsWrite), map[string]any{"entryId": 701})

		assert.Equal(t, stdhttp.StatusAccepted, rec.Code)
		assert.Equal(t, "dispatched", decodeSignal(t, rec).Result)
	})

	t.Run("staff reply is skipped", func(t *testing.T) {
		env := newTestEnv(t)
		reply := &domain.ThreadEntry{ID: 702, ThreadID: 70, Type: domain.EntryResponse}

		env.lookup.On("GetThreadEntry", mock.Anything, int64(702)).Return(reply, nil).Once()
		env.notifier.On("OnTicketUpdated", mock.Anything, reply).Return(apperrors.ErrNotUserMessage).Once()

		rec := env.post(t, "/api/v1/signals/threadentry.created", env.token(t, auth.ScopeSignalsWrite), map[string]any{"entryId": 702})

		assert.Equal(t, stdhttp.StatusAccepted, rec.Code)
		resp := decodeSignal(t, rec)
		assert.Equal(t, "skipped", resp.Result)
		assert.Equal(t, apperrors.ErrNotUserMessage.Error(), resp.Reason)
	})

	t.Run("unknown entry is skipped", func(t *testing.T) {
		env := newTestEnv(t)

		env.lookup.On("GetThreadEntry", mock.Anything, int64(999)).Return(nil, apperrors.ErrEntryNotFound).Once()

		rec := env.post(t, "/api/v1/signals/threadentry.created", env.token(t, auth.ScopeSignalsWrite), map[string]any{"entryId": 999})

		assert.Equal(t, stdhttp.StatusAccepted, rec.Code)
		resp := decodeSignal(t, rec)
		assert.Equal(t, "skipped", resp.Result)
		assert.Equal(t, apperrors.ErrEntryNotFound.Error(), resp.Reason)
		env.notifier.AssertNotCalled(t, "OnTicketUpdated", mock.Anything, mock.Anything)
	})

	t.Run("pipeline not ready", func(t *testing.T) {
		env := newTestEnv(t)

		env.lookup.On("GetThreadEntry", mock.Anything, int64(701)).Return(entry, nil).Once()
		env.notifier.On("OnTicketUpdated", mock.Anything, entry).Return(apperrors.ErrNotInitialized).Once()

		rec := env.post(t, "/api/v1/signals/threadentry.created", env.token(t, auth.ScopeSignalsWrite), map[string]any{"entryId": 701})

		assert.Equal(t, stdhttp.StatusAccepted, rec.Code)
		assert.Equal(t, "not_ready", decodeSignal(t, rec).Result)
	})

	t.Run("invalid entry id", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.post(t, "/api/v1/signals/threadentry.created", env.token(t, auth.ScopeSignalsWrite), map[string]any{"entryId": -1})
		assert.Equal(t, stdhttp.StatusUnprocessableEntity, rec.Code)
	})
}

func TestPreview(t *testing.T) {
	t.Run("renders without sending", func(t *testing.T) {
		env := newTestEnv(t)
		params := ports.PreviewParams{TicketID: 7, Template: "[{number}] {zulip_safe_message}", Message: "a < b"}

		env.notifier.On("Preview", mock.Anything, params).Return(&ports.Preview{
			Heading: "New Ticket <https://help.example.com/scp/tickets.php?id=7|#100007> created",
			Text:    "100007 - Printer on fire [#100007](https://help.example.com/scp/tickets.php?id=7)  [100007] a &lt; b",
		}, nil).Once()

		rec := env.post(t, "/api/v1/preview", env.token(t, auth.ScopeTemplatePreview), map[string]any{
			"ticketId": 7,
			"template": params.Template,
			"message":  params.Message,
		})

		require.Equal(t, stdhttp.StatusOK, rec.Code)
		var resp PreviewDTO
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Contains(t, resp.Text, "[100007] a &lt; b")
		assert.Contains(t, resp.Heading, "#100007")
		assert.Equal(t, []string{"number", "zulip_safe_message"}, resp.Placeholders)
	})

	t.Run("placeholders are never null", func(t *testing.T) {
		env := newTestEnv(t)
		params := ports.PreviewParams{TicketID: 7}

		env.notifier.On("Preview", mock.Anything, params).Return(&ports.Preview{Heading: "h", Text: "t"}, nil).Once()

		rec := env.post(t, "/api/v1/preview", env.token(t, auth.ScopeTemplatePreview), map[string]any{"ticketId": 7})

		require.Equal(t, stdhttp.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"placeholders":[]`)
	})

	t.Run("unknown ticket", func(t *testing.T) {
		env := newTestEnv(t)

		env.notifier.On("Preview", mock.Anything, ports.PreviewParams{TicketID: 8}).
			Return(nil, apperrors.ErrTicketNotFound).Once()

		rec := env.post(t, "/api/v1/preview", env.token(t, auth.ScopeTemplatePreview), map[string]any{"ticketId": 8})

		assert.Equal(t, stdhttp.StatusNotFound, rec.Code)
		var resp ErrorResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "TICKET_NOT_FOUND", resp.Code)
	})

	t.Run("pipeline not ready", func(t *testing.T) {
		env := newTestEnv(t)

		env.notifier.On("Preview", mock.Anything, ports.PreviewParams{TicketID: 7}).
			Return(nil, apperrors.ErrNotInitialized).Once()

		rec := env.post(t, "/api/v1/preview", env.token(t, auth.ScopeTemplatePreview), map[string]any{"ticketId": 7})

		assert.Equal(t, stdhttp.StatusServiceUnavailable, rec.Code)
	})

	t.Run("signal scope cannot preview", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.post(t, "/api/v1/preview", env.token(t, auth.ScopeSignalsWrite), map[string]any{"ticketId": 7})
		assert.Equal(t, stdhttp.StatusForbidden, rec.Code)
	})

	t.Run("preflight needs no token", func(t *testing.T) {
		env := newTestEnv(t)

		req := httptest.NewRequest(stdhttp.MethodOptions, "/api/v1/preview", nil)
		req.Header.Set("Origin", "https://ops.example.com")
		req.Header.Set("Access-Control-Request-Method", stdhttp.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)

		assert.Equal(t, stdhttp.StatusOK, rec.Code)
		assert.Equal(t, "https://ops.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("foreign origin is not allowed", func(t *testing.T) {
		env := newTestEnv(t)

		req := httptest.NewRequest(stdhttp.MethodOptions, "/api/v1/preview", nil)
		req.Header.Set("Origin", "https://evil.example.org")
		req.Header.Set("Access-Control-Request-Method", stdhttp.MethodPost)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestHealth(t *testing.T) {
	t.Run("liveness", func(t *testing.T) {
		env := newTestEnv(t)

		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/health/live", nil))

		assert.Equal(t, stdhttp.StatusOK, rec.Code)
	})

	t.Run("ready", func(t *testing.T) {
		env := newTestEnv(t)
		env.notifier.On("State").Return(ports.StateReady)

		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/health/ready", nil))

		assert.Equal(t, stdhttp.StatusOK, rec.Code)
		var resp HealthResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "healthy", resp.Status)
		assert.Equal(t, "healthy", resp.Checks["pipeline"].Status)
	})

	t.Run("uninitialized pipeline is not ready", func(t *testing.T) {
		env := newTestEnv(t)
		env.notifier.On("State").Return(ports.StateUninitialized)

		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/health/ready", nil))

		assert.Equal(t, stdhttp.StatusServiceUnavailable, rec.Code)
		var resp HealthResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, "pipeline is uninitialized", resp.Checks["pipeline"].Message)
	})

	t.Run("database down degrades health", func(t *testing.T) {
		env := newTestEnv(t)
		env.db.err = errors.New("connection refused")
		env.notifier.On("State").Return(ports.StateReady)

		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/health", nil))

		assert.Equal(t, stdhttp.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), `"degraded"`)
	})

	t.Run("metrics are exposed", func(t *testing.T) {
		env := newTestEnv(t)

		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/metrics", nil))

		assert.Equal(t, stdhttp.StatusOK, rec.Code)
	})
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)

	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(stdhttp.MethodGet, "/api/v1/nowhere", nil))

	assert.Equal(t, stdhttp.StatusNotFound, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "NOT_FOUND", resp.Code)
	assert.Equal(t, "Route not found", resp.Error)
}
