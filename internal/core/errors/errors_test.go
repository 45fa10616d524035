package errors_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lorrc/service-desk-notifier/internal/core/domain"
	apperrors "github.com/lorrc/service-desk-notifier/internal/core/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromOutcome(t *testing.T) {
	t.Run("success is nil", func(t *testing.T) {
		assert.NoError(t, apperrors.FromOutcome(domain.DeliveryOutcome{Kind: domain.DeliverySucceeded}))
	})

	t.Run("non-success status", func(t *testing.T) {
		err := apperrors.FromOutcome(domain.DeliveryOutcome{
			Kind:       domain.DeliveryNonSuccessStatus,
			StatusCode: 500,
			Detail:     "webhook returned HTTP 500",
		})
		require.Error(t, err)

		var de *apperrors.DeliveryError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, domain.DeliveryNonSuccessStatus, de.Kind)
		assert.Equal(t, 500, de.StatusCode)
		assert.Contains(t, err.Error(), "HTTP 500")
	})

	t.Run("transport error", func(t *testing.T) {
		err := apperrors.FromOutcome(domain.DeliveryOutcome{
			Kind:   domain.DeliveryTransportError,
			Detail: "dial tcp: connection refused",
		})
		assert.True(t, apperrors.IsDeliveryError(err))
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestResultCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "dispatched"},
		{apperrors.ErrFilteredBySubject, "suppressed"},
		{apperrors.ErrFirstEntry, "skipped"},
		{apperrors.ErrNotUserMessage, "skipped"},
		{apperrors.ErrMissingTicketContext, "skipped"},
		{apperrors.ErrNotInitialized, "not_ready"},
		{apperrors.ErrMisconfigured, "misconfigured"},
		{&apperrors.DeliveryError{Kind: domain.DeliveryTransportError}, "delivery_failed"},
		{fmt.Errorf("wrapped: %w", apperrors.ErrFirstEntry), "skipped"},
		{errors.New("boom"), "error"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, apperrors.ResultCode(tt.err), "error: %v", tt.err)
	}
}

func TestAppErrorConstructors(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name     string
		err      *apperrors.AppError
		sentinel error
		status   int
		code     string
	}{
		{"bad request", apperrors.NewBadRequestError(cause, "Invalid request body"), apperrors.ErrBadRequest, 400, "BAD_REQUEST"},
		{"unauthorized", apperrors.NewUnauthorizedError("Invalid or expired token"), apperrors.ErrUnauthorized, 401, "UNAUTHORIZED"},
		{"forbidden", apperrors.NewForbiddenError("Token lacks scope x"), apperrors.ErrForbidden, 403, "FORBIDDEN"},
		{"not found", apperrors.NewNotFoundError(cause, "Route not found"), apperrors.ErrNotFound, 404, "NOT_FOUND"},
		{"internal", apperrors.NewInternalError(cause), apperrors.ErrInternal, 500, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.StatusCode)
			assert.Equal(t, tt.code, tt.err.Code)
			assert.ErrorIs(t, tt.err, tt.sentinel)

			var appErr *apperrors.AppError
			require.True(t, errors.As(fmt.Errorf("wrapped: %w", tt.err), &appErr))
			assert.Same(t, tt.err, appErr)
		})
	}

	t.Run("cause is preserved", func(t *testing.T) {
		assert.ErrorIs(t, apperrors.NewBadRequestError(cause, "x"), cause)
		assert.ErrorIs(t, apperrors.NewInternalError(cause), cause)
	})
}
