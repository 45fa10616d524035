// Package markup builds chat messages from trusted markup and untrusted text.
//
// Untrusted text has the three characters that are significant to the chat
// markup language (&, < and >) escaped; trusted spans are written verbatim.
// Escaping happens once, when the message is serialized, so markup produced
// by the notifier itself (such as ticket links) never needs to be protected
// from the escaping pass.
package markup

import (
	"strings"
	"unicode/utf8"
)

// MaxLength is the hard cap, in characters, on every sanitized string.
const MaxLength = 500

var escaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

// Span is a piece of a message.
type Span struct {
	Text    string
	Trusted bool
}

// Message is an ordered list of spans.
type Message []Span

// Text returns an untrusted span.
func Text(s string) Span {
	return Span{Text: s}
}

// Raw returns a trusted span that is emitted without escaping.
func Raw(s string) Span {
	return Span{Text: s, Trusted: true}
}

// Link returns the spans for a chat link: <url|label>. The angle brackets
// and separator are markup; the url and label are escaped like any text.
func Link(url, label string) []Span {
	return []Span{Raw("<"), Text(url), Raw("|"), Text(label), Raw(">")}
}

// New assembles a message from spans and span groups.
func New(parts ...any) Message {
	var m Message
	for _, p := range parts {
		switch v := p.(type) {
		case Span:
			m = append(m, v)
		case []Span:
			m = append(m, v...)
		case string:
			m = append(m, Text(v))
		}
	}
	return m
}

// String serializes the message, escaping untrusted spans, and truncates
// the result to MaxLength characters.
func (m Message) String() string {
	var b strings.Builder
	for _, span := range m {
		if span.Trusted {
			b.WriteString(span.Text)
			continue
		}
		b.WriteString(Escape(span.Text))
	}
	return Truncate(b.String(), MaxLength)
}

// Escape replaces &, < and > with their entities in a single pass, so an
// ampersand introduced by escaping is never escaped again.
func Escape(s string) string {
	return escaper.Replace(s)
}

// Truncate cuts s to at most max characters. It never splits a multi-byte
// character and does not look for word boundaries.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

// Sanitize escapes plain text and applies the length cap.
func Sanitize(s string) string {
	return Message{Text(s)}.String()
}
