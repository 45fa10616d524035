// Package filter decides whether a ticket's subject suppresses its notification.
package filter

import (
	"fmt"
	"time"

	"github.com/dlclark/regexp2"
)

// matchTimeout bounds a single evaluation of an operator-supplied rule.
const matchTimeout = 250 * time.Millisecond

// SubjectFilter holds a compiled subject-ignore rule. A nil *SubjectFilter
// is valid and never suppresses.
type SubjectFilter struct {
	rule string
	re   *regexp2.Regexp
}

// New compiles rule as a case-insensitive Perl-style pattern. An empty rule
// yields a nil filter.
func New(rule string) (*SubjectFilter, error) {
	if rule == "" {
		return nil, nil
	}
	re, err := regexp2.Compile(rule, regexp2.IgnoreCase)
	if err != nil {
		return nil, fmt.Errorf("compile subject filter %q: %w", rule, err)
	}
	re.MatchTimeout = matchTimeout
	return &SubjectFilter{rule: rule, re: re}, nil
}

// Rule returns the source pattern.
func (f *SubjectFilter) Rule() string {
	if f == nil {
		return ""
	}
	return f.rule
}

// Match searches subject for the rule. An error (match timeout) means the
// subject must be treated as not matching.
func (f *SubjectFilter) Match(subject string) (bool, error) {
	if f == nil {
		return false, nil
	}
	ok, err := f.re.MatchString(subject)
	if err != nil {
		return false, fmt.Errorf("evaluate subject filter %q: %w", f.rule, err)
	}
	return ok, nil
}

// ShouldSuppress reports whether rule matches subject. An empty or invalid
// rule never suppresses.
func ShouldSuppress(subject, rule string) bool {
	f, err := New(rule)
	if err != nil {
		return false
	}
	ok, _ := f.Match(subject)
	return ok
}
