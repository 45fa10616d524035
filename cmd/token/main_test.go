package main

import (
	"testing"
	"time"

	"github.com/lorrc/service-desk-notifier/internal/auth"
	"github.com/stretchr/testify/assert"
)

func TestIssue_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		secret  string
		subject string
		scopes  []string
		ttl     time.Duration
		wantErr string
	}{
		{"no secret", "", "helpdesk", []string{auth.ScopeSignalsWrite}, time.Hour, "JWT_SECRET is required"},
		{"no subject", "s3cret", "", []string{auth.ScopeSignalsWrite}, time.Hour, "--subject is required"},
		{"no scope", "s3cret", "helpdesk", nil, time.Hour, "at least one --scope"},
		{"unknown scope", "s3cret", "helpdesk", []string{"admin"}, time.Hour, `unknown scope "admin"`},
		{"non-positive ttl", "s3cret", "helpdesk", []string{auth.ScopeFeedRead}, 0, "--ttl must be positive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", tt.secret)
			err := issue(tt.subject, tt.scopes, tt.ttl)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestIssue_Succeeds(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	assert.NoError(t, issue("alice", []string{auth.ScopeTemplatePreview, auth.ScopeFeedRead}, time.Hour))
}
