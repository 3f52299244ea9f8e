package config

import (
	"strings"
	"testing"
)

func baseConfig() *Config {
	return &Config{
		GitHub:  GitHubConfig{Token: "ghp_test"},
		Discord: DiscordConfig{WebhookURL: "https://discord.example/api/webhooks/1/abc"},
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string // substring; empty means valid
	}{
		{name: "minimal valid", mutate: func(*Config) {}},
		{
			name:    "missing token",
			mutate:  func(c *Config) { c.GitHub.Token = "  " },
			wantErr: "github.token",
		},
		{
			name:   "token via keyring",
			mutate: func(c *Config) { c.GitHub.Token = ""; c.GitHub.TokenKeyring = true },
		},
		{
			name:    "missing webhook",
			mutate:  func(c *Config) { c.Discord.WebhookURL = "" },
			wantErr: "discord.webhook_url",
		},
		{
			name:   "webhook via keyring",
			mutate: func(c *Config) { c.Discord.WebhookURL = ""; c.Discord.WebhookKeyring = true },
		},
		{
			name:    "bad api base",
			mutate:  func(c *Config) { c.GitHub.APIBase = "not a url" },
			wantErr: "config:",
		},
		{
			name:    "bad github timeout",
			mutate:  func(c *Config) { c.GitHub.Timeout = "fifteen seconds" },
			wantErr: "github.timeout",
		},
		{
			name:    "negative enrich window",
			mutate:  func(c *Config) { c.Enrich.RunWindow = "-5m" },
			wantErr: "enrich.run_window",
		},
		{
			name:    "batch size above discord cap",
			mutate:  func(c *Config) { c.Publish.BatchSize = 11 },
			wantErr: "config:",
		},
		{
			name:    "unknown checkpoint driver",
			mutate:  func(c *Config) { c.Checkpoint.Driver = "postgres" },
			wantErr: "checkpoint.driver",
		},
		{
			name:    "file driver needs path",
			mutate:  func(c *Config) { c.Checkpoint.Driver = "file" },
			wantErr: "checkpoint.path",
		},
		{
			name: "sqlite driver with path",
			mutate: func(c *Config) {
				c.Checkpoint.Driver = "sqlite"
				c.Checkpoint.Path = "/tmp/ghnotify.db"
			},
		},
		{
			name:   "driver none needs no path",
			mutate: func(c *Config) { c.Checkpoint.Driver = "none" },
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := baseConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error = %q, want substring %q", err, tc.wantErr)
			}
		})
	}
}

func TestValidateNil(t *testing.T) {
	t.Parallel()
	var c *Config
	if err := c.Validate(); err == nil {
		t.Fatal("nil config should not validate")
	}
}
