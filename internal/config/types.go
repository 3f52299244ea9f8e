package config

type Config struct {
	GitHub  GitHubConfig  `json:"github" validate:"required"`
	Discord DiscordConfig `json:"discord" validate:"required"`
	Logging LoggingConfig `json:"logging"`

	// Poll controls the periodic check trigger (cron spec or Go duration).
	Poll PollConfig `json:"poll"`

	Publish    PublishConfig    `json:"publish,omitempty"`
	Enrich     EnrichConfig     `json:"enrich,omitempty"`
	Checkpoint CheckpointConfig `json:"checkpoint,omitempty"`
	Ops        OpsConfig        `json:"ops,omitempty"`
}

// GitHubConfig configures the notifications feed client.
//
// Token is the PAT used for the notifications scope. If TokenKeyring is set,
// the token is read from the OS keyring instead (service "ghnotify",
// account "github_token") and Token may stay empty in the file.
type GitHubConfig struct {
	Token        string `json:"token,omitempty"`
	TokenKeyring bool   `json:"token_keyring,omitempty"`

	// APIBase defaults to https://api.github.com. Override for GHES or tests.
	APIBase   string `json:"api_base,omitempty" validate:"omitempty,url"`
	UserAgent string `json:"user_agent,omitempty"`

	// Timeout is a Go duration string for each API call (default "15s").
	Timeout string `json:"timeout,omitempty"`

	// FirstRunLimit caps how many notifications a checkpoint-less run may
	// publish (newest kept, sent oldest-first). Default 10.
	FirstRunLimit int `json:"first_run_limit,omitempty" validate:"omitempty,min=1"`

	// PageLimit caps feed pagination per run. Default 5 pages of 50.
	PageLimit int `json:"page_limit,omitempty" validate:"omitempty,min=1"`
}

// DiscordConfig configures the outbound webhook.
//
// WebhookURL receives notification batches. OpsWebhookURL, when set, receives
// mirrored error-level log lines (see logging.webhook).
type DiscordConfig struct {
	WebhookURL     string `json:"webhook_url,omitempty" validate:"omitempty,url"`
	WebhookKeyring bool   `json:"webhook_keyring,omitempty"`
	OpsWebhookURL  string `json:"ops_webhook_url,omitempty" validate:"omitempty,url"`
}

// PollConfig controls when checks run.
//
// Schedule accepts a cron spec (5 or 6 fields) or a plain Go duration
// ("5m", "90s"). Default "5m".
type PollConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule,omitempty"`
	Timezone string `json:"timezone,omitempty"`

	// LastCheckOverride seeds the checkpoint when no persisted value exists.
	// Parsed leniently; an unparsable value falls back to "no checkpoint".
	LastCheckOverride string `json:"last_check_override,omitempty"`
}

// PublishConfig controls webhook batching.
type PublishConfig struct {
	// BatchSize is embeds per webhook message (Discord caps at 10).
	BatchSize int `json:"batch_size,omitempty" validate:"omitempty,min=1,max=10"`
	// RatePerSec throttles batch POSTs. Default 1 (one batch per second).
	RatePerSec int `json:"rate_per_sec,omitempty" validate:"omitempty,min=1"`
}

// EnrichConfig controls best-effort detail lookups (issue/PR state, comment
// excerpts, workflow-run correlation). Failures never abort a run.
//
// All durations are Go duration strings.
type EnrichConfig struct {
	Enabled bool `json:"enabled"`
	// CommentWindow is the tolerance for matching a comment's created_at to
	// the notification's updated_at. Default "2m".
	CommentWindow string `json:"comment_window,omitempty"`
	// RunWindow is the tolerance for correlating workflow runs. Default "10m".
	RunWindow string `json:"run_window,omitempty"`
	// Timeout bounds each enrichment call. Default "5s".
	Timeout string `json:"timeout,omitempty"`
}

// CheckpointConfig controls the durable last-check record.
//
// Driver values:
//   - "file": single JSON document, atomic rename on save
//   - "sqlite": single-row table in a SQLite file
//
// If Driver is empty or "none", persistence is disabled and every run is a
// bounded first run.
type CheckpointConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

// OpsConfig controls the optional status/manual-check HTTP server.
//
// Security note:
//   - Prefer binding to localhost (e.g. "127.0.0.1:8610").
//   - If you bind to a non-loopback address, set a token.
type OpsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"`  // default: "127.0.0.1:8610"
	Token   string `json:"token,omitempty"` // optional bearer token (do not log)
}

type LoggingConfig struct {
	Level   string         `json:"level"`
	Console bool           `json:"console"`
	File    LoggingFile    `json:"file"`
	Webhook LoggingWebhook `json:"webhook"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingWebhook struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}
