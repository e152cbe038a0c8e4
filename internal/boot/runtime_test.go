package boot

import (
	"testing"
	"time"

	"github.com/fr8labs/leadbot/internal/config"
)

func baseConfig() config.Config {
	return config.Config{
		Server: config.ServerConfig{
			Addr:        ":3000",
			WebhookPath: "/webhook",
		},
		Telegram: config.TelegramConfig{
			BotToken: "from-file",
		},
		CRM: config.CRMConfig{
			SessionDuration: "4h",
		},
	}
}

func TestProvideRuntimeConfigEnvOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "from-env")
	t.Setenv("PORT", "8080")
	t.Setenv("EXTERNAL_URL", "https://bot.example.com")

	rc, err := ProvideRuntimeConfig(baseConfig())
	if err != nil {
		t.Fatalf("ProvideRuntimeConfig: %v", err)
	}
	if rc.BotToken != "from-env" {
		t.Errorf("token = %q, want env override", rc.BotToken)
	}
	if rc.ServerAddr != ":8080" {
		t.Errorf("addr = %q, want :8080 from PORT", rc.ServerAddr)
	}
	if rc.ExternalURL != "https://bot.example.com" {
		t.Errorf("external url = %q", rc.ExternalURL)
	}
	if rc.SessionDuration != 4*time.Hour {
		t.Errorf("session duration = %s, want 4h", rc.SessionDuration)
	}
}

func TestProvideRuntimeConfigRequiresToken(t *testing.T) {
	cfg := baseConfig()
	cfg.Telegram.BotToken = "   "

	if _, err := ProvideRuntimeConfig(cfg); err == nil {
		t.Fatal("expected error without a bot token")
	}
}

func TestProvideRuntimeConfigRejectsBadDuration(t *testing.T) {
	cfg := baseConfig()
	cfg.CRM.SessionDuration = "four hours"

	if _, err := ProvideRuntimeConfig(cfg); err == nil {
		t.Fatal("expected error for unparseable session duration")
	}
}

func TestApplyCRMEnvPerAliasKeys(t *testing.T) {
	t.Setenv("FRAPPE_CRM_BASE_URL", "https://crm.env.example")
	t.Setenv("FRAPPE_API_KEY_GLEN", "env-key")
	t.Setenv("FRAPPE_API_SECRET_GLEN", "env-secret")

	cfg := ApplyCRMEnv(config.CRMConfig{
		Aliases: map[string]config.CRMAlias{
			"glen": {URL: "https://crm.glen.example"},
			"ops":  {URL: "https://crm.ops.example", APIKey: "file-key"},
		},
	})

	if cfg.BaseURL != "https://crm.env.example" {
		t.Errorf("base url = %q", cfg.BaseURL)
	}
	if cfg.Aliases["glen"].APIKey != "env-key" || cfg.Aliases["glen"].APISecret != "env-secret" {
		t.Errorf("glen alias = %+v", cfg.Aliases["glen"])
	}
	if cfg.Aliases["ops"].APIKey != "file-key" {
		t.Errorf("ops alias must keep file keys, got %+v", cfg.Aliases["ops"])
	}
}

func TestApplyWorkflowEnv(t *testing.T) {
	t.Setenv("N8N_VOICE_WEBHOOK_URL", "https://n8n.example/voice")
	t.Setenv("N8N_CONVERT_LEAD_WEBHOOK_URL", "https://n8n.example/convert")

	cfg := ApplyWorkflowEnv(config.WorkflowConfig{
		ConfirmLeadURL: "https://n8n.example/confirm-from-file",
	})

	if cfg.VoiceLeadURL != "https://n8n.example/voice" {
		t.Errorf("voice url = %q", cfg.VoiceLeadURL)
	}
	if cfg.ConvertLeadURL != "https://n8n.example/convert" {
		t.Errorf("convert url = %q", cfg.ConvertLeadURL)
	}
	if cfg.ConfirmLeadURL != "https://n8n.example/confirm-from-file" {
		t.Errorf("confirm url must keep file value, got %q", cfg.ConfirmLeadURL)
	}
}
