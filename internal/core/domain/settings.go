package domain

import "strings"

// DefaultMessageTemplate is used when no template has been configured.
const DefaultMessageTemplate = "{zulip_safe_message}"

// NotifierSettings is the operator configuration read by the pipeline.
// A value is never mutated once handed to the pipeline.
type NotifierSettings struct {
	WebhookURL         string
	APIToken           string
	User               string
	Stream             string
	Channel            string
	SubjectIgnoreRegex string
	MessageTemplate    string
	HelpdeskURL        string // public base URL of the helpdesk
}

// HasWebhook reports whether a webhook URL has been configured.
func (s NotifierSettings) HasWebhook() bool {
	return strings.TrimSpace(s.WebhookURL) != ""
}

// Template returns the configured message template or the default.
func (s NotifierSettings) Template() string {
	if s.MessageTemplate == "" {
		return DefaultMessageTemplate
	}
	return s.MessageTemplate
}
