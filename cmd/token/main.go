// Command token issues bearer tokens for the helpdesk host and operators.
//
//	token --subject helpdesk --scope signals:write
//	token --subject alice --scope templates:preview --scope feed:read --ttl 720h
package main

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/lorrc/service-desk-notifier/internal/auth"
)

var knownScopes = []string{auth.ScopeSignalsWrite, auth.ScopeTemplatePreview, auth.ScopeFeedRead}

func main() {
	_ = godotenv.Load()

	subject := pflag.StringP("subject", "s", "", "token subject, e.g. helpdesk or an operator name")
	scopes := pflag.StringSlice("scope", nil, "scope to grant (repeatable): "+fmt.Sprint(knownScopes))
	ttl := pflag.Duration("ttl", 24*time.Hour, "token lifetime")
	pflag.Parse()

	if err := issue(*subject, *scopes, *ttl); err != nil {
		fmt.Fprintln(os.Stderr, "token:", err)
		os.Exit(1)
	}
}

func issue(subject string, scopes []string, ttl time.Duration) error {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if subject == "" {
		return fmt.Errorf("--subject is required")
	}
	if len(scopes) == 0 {
		return fmt.Errorf("at least one --scope is required")
	}
	for _, scope := range scopes {
		if !slices.Contains(knownScopes, scope) {
			return fmt.Errorf("unknown scope %q", scope)
		}
	}
	if ttl <= 0 {
		return fmt.Errorf("--ttl must be positive")
	}

	token, err := auth.NewTokenManager(secret, ttl).GenerateToken(subject, scopes...)
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}
	fmt.Println(token)
	return nil
}
