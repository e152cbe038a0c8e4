package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fr8labs/leadbot/internal/config"
	"github.com/fr8labs/leadbot/internal/version"
)

// HealthStatus reports liveness plus which credentials are configured.
// Only presence flags are exposed, never the values.
type HealthStatus struct {
	Status    string          `json:"status"`
	Timestamp string          `json:"timestamp"`
	Uptime    string          `json:"uptime"`
	Version   string          `json:"version"`
	Env       map[string]bool `json:"env"`
	Workflows map[string]bool `json:"workflows"`
}

// HealthHandler serves GET / and GET /health.
type HealthHandler struct {
	cfg     *config.Config
	started time.Time
	logger  *slog.Logger
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(log *slog.Logger, cfg *config.Config) *HealthHandler {
	return &HealthHandler{
		cfg:     cfg,
		started: time.Now(),
		logger:  log.With(slog.String("handler", "health")),
	}
}

// Register mounts GET / and GET /health on the Echo instance.
func (h *HealthHandler) Register(e *echo.Echo) {
	e.GET("/", h.Root)
	e.GET("/health", h.Health)
}

// Root returns a plain banner so a browser check shows the bot is up.
func (h *HealthHandler) Root(c echo.Context) error {
	return c.String(http.StatusOK, "Frappe Lead Bot is running")
}

// Health returns 200 JSON with uptime and configuration presence flags.
func (h *HealthHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthStatus{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.started).Round(time.Second).String(),
		Version:   version.GetInfo(),
		Env: map[string]bool{
			"bot_token":    h.cfg.Telegram.BotToken != "",
			"secret_token": h.cfg.Telegram.SecretToken != "",
			"crm_base_url": h.cfg.CRM.BaseURL != "",
			"crm_api_key":  h.cfg.CRM.APIKey != "",
		},
		Workflows: map[string]bool{
			"voice_lead":   h.cfg.Workflow.VoiceLeadURL != "",
			"voice_deal":   h.cfg.Workflow.VoiceDealURL != "",
			"confirm_lead": h.cfg.Workflow.ConfirmLeadURL != "",
			"confirm_deal": h.cfg.Workflow.ConfirmDealURL != "",
			"create_task":  h.cfg.Workflow.CreateTaskURL != "",
			"create_note":  h.cfg.Workflow.CreateNoteURL != "",
			"convert_lead": h.cfg.Workflow.ConvertLeadURL != "",
		},
	})
}
