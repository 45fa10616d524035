package mocks

import (
	"context"

	"github.com/lorrc/service-desk-notifier/internal/core/domain"
	"github.com/lorrc/service-desk-notifier/internal/core/ports"
	"github.com/stretchr/testify/mock"
)

// MockTicketLookup is a mock implementation of ports.TicketLookup
type MockTicketLookup struct {
	mock.Mock
}

func NewMockTicketLookup() *MockTicketLookup {
	return &MockTicketLookup{}
}

func (m *MockTicketLookup) GetTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

func (m *MockTicketLookup) GetThreadEntry(ctx context.Context, entryID int64) (*domain.ThreadEntry, error) {
	args := m.Called(ctx, entryID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ThreadEntry), args.Error(1)
}

func (m *MockTicketLookup) GetTicketByThreadID(ctx context.Context, threadID int64) (*domain.Ticket, error) {
	args := m.Called(ctx, threadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Ticket), args.Error(1)
}

// MockWebhookSender is a mock implementation of ports.WebhookSender
type MockWebhookSender struct {
	mock.Mock
}

func NewMockWebhookSender() *MockWebhookSender {
	return &MockWebhookSender{}
}

func (m *MockWebhookSender) Send(ctx context.Context, url string, payload domain.NotificationPayload) domain.DeliveryOutcome {
	args := m.Called(ctx, url, payload)
	return args.Get(0).(domain.DeliveryOutcome)
}

// MockEventBroadcaster is a mock implementation of ports.EventBroadcaster
type MockEventBroadcaster struct {
	mock.Mock
}

func NewMockEventBroadcaster() *MockEventBroadcaster {
	return &MockEventBroadcaster{}
}

func (m *MockEventBroadcaster) Broadcast(event domain.FeedEvent) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockNotificationService is a mock implementation of ports.NotificationService
type MockNotificationService struct {
	mock.Mock
}

func NewMockNotificationService() *MockNotificationService {
	return &MockNotificationService{}
}

func (m *MockNotificationService) OnTicketCreated(ctx context.Context, ticket *domain.Ticket) error {
	args := m.Called(ctx, ticket)
	return args.Error(0)
}

func (m *MockNotificationService) OnTicketUpdated(ctx context.Context, entry *domain.ThreadEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockNotificationService) Preview(ctx context.Context, params ports.PreviewParams) (*ports.Preview, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.Preview), args.Error(1)
}

func (m *MockNotificationService) State() ports.PipelineState {
	args := m.Called()
	return args.Get(0).(ports.PipelineState)
}
