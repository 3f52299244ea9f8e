package config

import (
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	keyringService        = "ghnotify"
	keyringGitHubToken    = "github_token"
	keyringDiscordWebhook = "webhook_url"
)

// ResolveSecrets fills secret fields marked *_keyring from the OS keyring.
// Values already present in the file win, so a populated config file works on
// hosts without a keyring daemon.
func (c *Config) ResolveSecrets() error {
	if c.GitHub.TokenKeyring && strings.TrimSpace(c.GitHub.Token) == "" {
		v, err := keyring.Get(keyringService, keyringGitHubToken)
		if err != nil {
			return fmt.Errorf("keyring: github token: %w", err)
		}
		c.GitHub.Token = v
	}
	if c.Discord.WebhookKeyring && strings.TrimSpace(c.Discord.WebhookURL) == "" {
		v, err := keyring.Get(keyringService, keyringDiscordWebhook)
		if err != nil {
			return fmt.Errorf("keyring: discord webhook url: %w", err)
		}
		c.Discord.WebhookURL = v
	}
	return nil
}

// StoreSecret writes one secret into the OS keyring.
// Exposed so operators can seed secrets with a one-off helper.
func StoreSecret(account, value string) error {
	return keyring.Set(keyringService, account, value)
}
