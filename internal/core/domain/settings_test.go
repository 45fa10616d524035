package domain_test

import (
	"testing"

	"github.com/lorrc/service-desk-notifier/internal/core/domain"
	"github.com/stretchr/testify/assert"
)

func TestNotifierSettings_HasWebhook(t *testing.T) {
	assert.False(t, domain.NotifierSettings{}.HasWebhook())
	assert.False(t, domain.NotifierSettings{WebhookURL: "   "}.HasWebhook())
	assert.True(t, domain.NotifierSettings{WebhookURL: "https://chat.example.com/hook"}.HasWebhook())
}

func TestNotifierSettings_Template(t *testing.T) {
	assert.Equal(t, domain.DefaultMessageTemplate, domain.NotifierSettings{}.Template())
	assert.Equal(t, "{subject}", domain.NotifierSettings{MessageTemplate: "{subject}"}.Template())
}

func TestDeliveryOutcome_Succeeded(t *testing.T) {
	assert.True(t, domain.DeliveryOutcome{Kind: domain.DeliverySucceeded}.Succeeded())
	assert.False(t, domain.DeliveryOutcome{Kind: domain.DeliveryTransportError}.Succeeded())
	assert.False(t, domain.DeliveryOutcome{Kind: domain.DeliveryNonSuccessStatus, StatusCode: 500}.Succeeded())
	assert.False(t, domain.DeliveryOutcome{}.Succeeded())
}
