// Package boot provides runtime configuration for the bot process.
package boot

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fr8labs/leadbot/internal/config"
)

// RuntimeConfig holds parsed runtime settings. Values from the TOML config
// may be overridden by environment variables, matching the deployment
// surface of the hosted bot (TELEGRAM_BOT_TOKEN, FRAPPE_CRM_BASE_URL,
// N8N_*_WEBHOOK_URL, EXTERNAL_URL, HTTP_ADDR / PORT).
type RuntimeConfig struct {
	BotToken        string
	SecretToken     string
	ServerAddr      string
	ExternalURL     string
	WebhookPath     string
	SessionDuration time.Duration
}

// ProvideRuntimeConfig builds RuntimeConfig from the given config and applies env overrides.
func ProvideRuntimeConfig(cfg config.Config) (*RuntimeConfig, error) {
	ret := &RuntimeConfig{
		BotToken:    cfg.Telegram.BotToken,
		SecretToken: cfg.Telegram.SecretToken,
		ServerAddr:  cfg.Server.Addr,
		ExternalURL: cfg.Server.ExternalURL,
		WebhookPath: cfg.Server.WebhookPath,
	}

	if value := os.Getenv("TELEGRAM_BOT_TOKEN"); value != "" {
		ret.BotToken = value
	}
	if value := os.Getenv("TELEGRAM_SECRET_TOKEN"); value != "" {
		ret.SecretToken = value
	}
	if value := os.Getenv("HTTP_ADDR"); value != "" {
		ret.ServerAddr = value
	}
	if value := os.Getenv("PORT"); value != "" {
		ret.ServerAddr = ":" + value
	}
	if value := os.Getenv("EXTERNAL_URL"); value != "" {
		ret.ExternalURL = value
	}

	if strings.TrimSpace(ret.BotToken) == "" {
		return nil, errors.New("telegram bot token is required")
	}
	if ret.WebhookPath == "" {
		ret.WebhookPath = config.DefaultWebhookPath
	}

	duration, err := time.ParseDuration(cfg.CRM.SessionDuration)
	if err != nil {
		return nil, fmt.Errorf("invalid crm session duration: %w", err)
	}
	ret.SessionDuration = duration

	return ret, nil
}

// ApplyCRMEnv overlays CRM environment overrides onto the config: the
// default connection (FRAPPE_CRM_BASE_URL, FRAPPE_API_KEY,
// FRAPPE_SECRET_KEY) and per-alias key pairs
// (FRAPPE_API_KEY_<ALIAS>, FRAPPE_API_SECRET_<ALIAS>).
func ApplyCRMEnv(cfg config.CRMConfig) config.CRMConfig {
	if value := os.Getenv("FRAPPE_CRM_BASE_URL"); value != "" {
		cfg.BaseURL = value
	}
	if value := os.Getenv("FRAPPE_API_KEY"); value != "" {
		cfg.APIKey = value
	}
	if value := os.Getenv("FRAPPE_SECRET_KEY"); value != "" {
		cfg.APISecret = value
	}

	aliases := make(map[string]config.CRMAlias, len(cfg.Aliases))
	for name, alias := range cfg.Aliases {
		envName := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
		if value := os.Getenv("FRAPPE_API_KEY_" + envName); value != "" {
			alias.APIKey = value
		}
		if value := os.Getenv("FRAPPE_API_SECRET_" + envName); value != "" {
			alias.APISecret = value
		}
		aliases[name] = alias
	}
	cfg.Aliases = aliases
	return cfg
}

// ApplyWorkflowEnv overlays per-intent webhook URL overrides
// (N8N_VOICE_WEBHOOK_URL, N8N_CONFIRM_WEBHOOK_URL, and friends).
func ApplyWorkflowEnv(cfg config.WorkflowConfig) config.WorkflowConfig {
	overrides := []struct {
		env    string
		target *string
	}{
		{"N8N_VOICE_WEBHOOK_URL", &cfg.VoiceLeadURL},
		{"N8N_VOICE_DEAL_WEBHOOK_URL", &cfg.VoiceDealURL},
		{"N8N_CONFIRM_WEBHOOK_URL", &cfg.ConfirmLeadURL},
		{"N8N_CONFIRM_DEAL_WEBHOOK_URL", &cfg.ConfirmDealURL},
		{"N8N_CREATE_TASK_WEBHOOK_URL", &cfg.CreateTaskURL},
		{"N8N_CREATE_NOTE_WEBHOOK_URL", &cfg.CreateNoteURL},
		{"N8N_CONVERT_LEAD_WEBHOOK_URL", &cfg.ConvertLeadURL},
	}
	for _, o := range overrides {
		if value := os.Getenv(o.env); value != "" {
			*o.target = value
		}
	}
	return cfg
}
