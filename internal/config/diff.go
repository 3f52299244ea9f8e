package config

import (
	"strings"

	logx "ghnotify/pkg/logx"
)

// SummarizeConfigChange returns (1) a compact list of changed sections and
// (2) safe structured attrs for logging (never includes secrets like tokens
// or webhook URLs).
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 20)

	// GitHub (never log token)
	if (strings.TrimSpace(oldCfg.GitHub.Token) != "") != (strings.TrimSpace(newCfg.GitHub.Token) != "") ||
		oldCfg.GitHub.TokenKeyring != newCfg.GitHub.TokenKeyring ||
		strings.TrimSpace(oldCfg.GitHub.APIBase) != strings.TrimSpace(newCfg.GitHub.APIBase) ||
		strings.TrimSpace(oldCfg.GitHub.Timeout) != strings.TrimSpace(newCfg.GitHub.Timeout) ||
		oldCfg.GitHub.FirstRunLimit != newCfg.GitHub.FirstRunLimit ||
		oldCfg.GitHub.PageLimit != newCfg.GitHub.PageLimit {
		changed = append(changed, "github")
		attrs = append(attrs,
			logx.Bool("github.token_set", strings.TrimSpace(newCfg.GitHub.Token) != ""),
			logx.Bool("github.token_keyring", newCfg.GitHub.TokenKeyring),
			logx.String("github.api_base", strings.TrimSpace(newCfg.GitHub.APIBase)),
			logx.Int("github.first_run_limit", newCfg.GitHub.FirstRunLimit),
		)
	}

	// Discord (never log webhook URLs; they embed a secret token)
	if (strings.TrimSpace(oldCfg.Discord.WebhookURL) != "") != (strings.TrimSpace(newCfg.Discord.WebhookURL) != "") ||
		oldCfg.Discord.WebhookKeyring != newCfg.Discord.WebhookKeyring ||
		(strings.TrimSpace(oldCfg.Discord.OpsWebhookURL) != "") != (strings.TrimSpace(newCfg.Discord.OpsWebhookURL) != "") {
		changed = append(changed, "discord")
		attrs = append(attrs,
			logx.Bool("discord.webhook_set", strings.TrimSpace(newCfg.Discord.WebhookURL) != ""),
			logx.Bool("discord.ops_webhook_set", strings.TrimSpace(newCfg.Discord.OpsWebhookURL) != ""),
		)
	}

	// Logging
	if oldCfg.Logging.Level != newCfg.Logging.Level ||
		oldCfg.Logging.Console != newCfg.Logging.Console ||
		oldCfg.Logging.File.Enabled != newCfg.Logging.File.Enabled ||
		strings.TrimSpace(oldCfg.Logging.File.Path) != strings.TrimSpace(newCfg.Logging.File.Path) ||
		oldCfg.Logging.Webhook.Enabled != newCfg.Logging.Webhook.Enabled ||
		oldCfg.Logging.Webhook.MinLevel != newCfg.Logging.Webhook.MinLevel ||
		oldCfg.Logging.Webhook.RatePerSec != newCfg.Logging.Webhook.RatePerSec {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logx.webhook_enabled", newCfg.Logging.Webhook.Enabled),
		)
	}

	// Poll
	if oldCfg.Poll.Enabled != newCfg.Poll.Enabled ||
		strings.TrimSpace(oldCfg.Poll.Schedule) != strings.TrimSpace(newCfg.Poll.Schedule) ||
		strings.TrimSpace(oldCfg.Poll.Timezone) != strings.TrimSpace(newCfg.Poll.Timezone) ||
		strings.TrimSpace(oldCfg.Poll.LastCheckOverride) != strings.TrimSpace(newCfg.Poll.LastCheckOverride) {
		changed = append(changed, "poll")
		attrs = append(attrs,
			logx.Bool("poll.enabled", newCfg.Poll.Enabled),
			logx.String("poll.schedule", strings.TrimSpace(newCfg.Poll.Schedule)),
			logx.String("poll.timezone", strings.TrimSpace(newCfg.Poll.Timezone)),
		)
	}

	// Publish
	if oldCfg.Publish.BatchSize != newCfg.Publish.BatchSize ||
		oldCfg.Publish.RatePerSec != newCfg.Publish.RatePerSec {
		changed = append(changed, "publish")
		attrs = append(attrs,
			logx.Int("publish.batch_size", newCfg.Publish.BatchSize),
			logx.Int("publish.rate_per_sec", newCfg.Publish.RatePerSec),
		)
	}

	// Enrich
	if oldCfg.Enrich != newCfg.Enrich {
		changed = append(changed, "enrich")
		attrs = append(attrs,
			logx.Bool("enrich.enabled", newCfg.Enrich.Enabled),
			logx.String("enrich.comment_window", strings.TrimSpace(newCfg.Enrich.CommentWindow)),
			logx.String("enrich.run_window", strings.TrimSpace(newCfg.Enrich.RunWindow)),
		)
	}

	// Checkpoint (takes effect on next start; reload only logs it)
	if oldCfg.Checkpoint != newCfg.Checkpoint {
		changed = append(changed, "checkpoint")
		attrs = append(attrs,
			logx.String("checkpoint.driver", strings.TrimSpace(newCfg.Checkpoint.Driver)),
			logx.String("checkpoint.path", strings.TrimSpace(newCfg.Checkpoint.Path)),
		)
	}

	// Ops (never log token)
	if oldCfg.Ops.Enabled != newCfg.Ops.Enabled ||
		strings.TrimSpace(oldCfg.Ops.Addr) != strings.TrimSpace(newCfg.Ops.Addr) ||
		(strings.TrimSpace(oldCfg.Ops.Token) != "") != (strings.TrimSpace(newCfg.Ops.Token) != "") {
		changed = append(changed, "ops")
		attrs = append(attrs,
			logx.Bool("ops.enabled", newCfg.Ops.Enabled),
			logx.String("ops.addr", strings.TrimSpace(newCfg.Ops.Addr)),
			logx.Bool("ops.token_set", strings.TrimSpace(newCfg.Ops.Token) != ""),
		)
	}

	return changed, attrs
}
