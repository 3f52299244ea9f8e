package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks structural constraints (tags) plus the cross-field rules the
// tags can't express. Schedule syntax is validated by the poller, which owns
// the parser; the app composes both checks into the manager's validator hook.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}
	if err := structValidator.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if !c.GitHub.TokenKeyring && strings.TrimSpace(c.GitHub.Token) == "" {
		return fmt.Errorf("github.token is required (or set github.token_keyring)")
	}
	if !c.Discord.WebhookKeyring && strings.TrimSpace(c.Discord.WebhookURL) == "" {
		return fmt.Errorf("discord.webhook_url is required (or set discord.webhook_keyring)")
	}

	for _, f := range []struct{ path, raw string }{
		{"github.timeout", c.GitHub.Timeout},
		{"enrich.comment_window", c.Enrich.CommentWindow},
		{"enrich.run_window", c.Enrich.RunWindow},
		{"enrich.timeout", c.Enrich.Timeout},
		{"checkpoint.busy_timeout", c.Checkpoint.BusyTimeout},
	} {
		if _, err := ParseDurationField(f.path, f.raw); err != nil {
			return err
		}
	}

	switch d := strings.ToLower(strings.TrimSpace(c.Checkpoint.Driver)); d {
	case "", "none", "file", "sqlite", "sqlite3":
	default:
		return fmt.Errorf("checkpoint.driver: unknown driver %q", c.Checkpoint.Driver)
	}
	if d := strings.ToLower(strings.TrimSpace(c.Checkpoint.Driver)); d == "file" || d == "sqlite" || d == "sqlite3" {
		if strings.TrimSpace(c.Checkpoint.Path) == "" {
			return fmt.Errorf("checkpoint.path is required for driver %q", d)
		}
	}

	return nil
}
