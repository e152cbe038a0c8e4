// Package config loads and exposes application configuration (TOML).
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath      = "config.toml"
	DefaultHTTPAddr        = ":3000"
	DefaultWebhookPath     = "/webhook"
	DefaultSessionDuration = "4h"
	DefaultStorePath       = "data/crm_connections.json"
	DefaultPGHost          = "127.0.0.1"
	DefaultPGPort          = 5432
	DefaultPGUser          = "postgres"
	DefaultPGDatabase      = "leadbot"
	DefaultPGSSLMode       = "disable"
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Server   ServerConfig   `toml:"server"`
	Telegram TelegramConfig `toml:"telegram"`
	CRM      CRMConfig      `toml:"crm"`
	Workflow WorkflowConfig `toml:"workflow"`
	Store    StoreConfig    `toml:"store"`
	Postgres PostgresConfig `toml:"postgres"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds the HTTP listen address, the externally reachable base
// URL used for Telegram webhook self-registration, and the webhook path.
type ServerConfig struct {
	Addr        string `toml:"addr"`
	ExternalURL string `toml:"external_url"`
	WebhookPath string `toml:"webhook_path"`
}

// TelegramConfig holds the bot token and the optional secret token Telegram
// echoes back in the X-Telegram-Bot-Api-Secret-Token header.
type TelegramConfig struct {
	BotToken    string `toml:"bot_token"`
	SecretToken string `toml:"secret_token"`
}

// CRMConfig holds the default CRM connection, the auth session duration, and
// the table of pre-provisioned connection aliases.
type CRMConfig struct {
	BaseURL         string              `toml:"base_url"`
	APIKey          string              `toml:"api_key"`
	APISecret       string              `toml:"api_secret"`
	SessionDuration string              `toml:"session_duration"`
	Aliases         map[string]CRMAlias `toml:"aliases"`
}

// CRMAlias is one pre-provisioned CRM connection in the alias table.
type CRMAlias struct {
	URL       string `toml:"url"`
	APIKey    string `toml:"api_key"`
	APISecret string `toml:"api_secret"`
}

// WorkflowConfig holds one webhook URL per workflow-engine intent.
type WorkflowConfig struct {
	VoiceLeadURL   string `toml:"voice_lead_url"`
	VoiceDealURL   string `toml:"voice_deal_url"`
	ConfirmLeadURL string `toml:"confirm_lead_url"`
	ConfirmDealURL string `toml:"confirm_deal_url"`
	CreateTaskURL  string `toml:"create_task_url"`
	CreateNoteURL  string `toml:"create_note_url"`
	ConvertLeadURL string `toml:"convert_lead_url"`
}

// StoreConfig holds the flat-file location for persisted CRM connections and
// the switch to the Postgres-backed store.
type StoreConfig struct {
	Path        string `toml:"path"`
	UsePostgres bool   `toml:"use_postgres"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// Load reads and parses the TOML config file at path and applies default values for missing fields.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Server: ServerConfig{
			Addr:        DefaultHTTPAddr,
			WebhookPath: DefaultWebhookPath,
		},
		CRM: CRMConfig{
			SessionDuration: DefaultSessionDuration,
		},
		Store: StoreConfig{
			Path: DefaultStorePath,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	return cfg, nil
}
