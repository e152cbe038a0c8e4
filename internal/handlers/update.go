package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/labstack/echo/v4"
)

// secretTokenHeader is the header Telegram sends when the webhook was
// registered with a secret token.
const secretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

// UpdateDispatcher consumes parsed Telegram updates.
type UpdateDispatcher interface {
	HandleUpdate(ctx context.Context, update tgbotapi.Update)
}

// UpdateHandler receives Telegram webhook posts and hands them to the
// dispatcher. Telegram retries non-2xx responses, so malformed payloads are
// logged and acknowledged instead of rejected.
type UpdateHandler struct {
	dispatcher  UpdateDispatcher
	path        string
	secretToken string
	logger      *slog.Logger
}

// NewUpdateHandler creates the webhook handler. secretToken may be empty,
// in which case the header check is skipped.
func NewUpdateHandler(log *slog.Logger, dispatcher UpdateDispatcher, path, secretToken string) *UpdateHandler {
	if path == "" {
		path = "/webhook"
	}
	return &UpdateHandler{
		dispatcher:  dispatcher,
		path:        path,
		secretToken: secretToken,
		logger:      log.With(slog.String("handler", "update")),
	}
}

// Register mounts the webhook POST route.
func (h *UpdateHandler) Register(e *echo.Echo) {
	e.POST(h.path, h.Receive)
}

// Receive parses one webhook post. Payloads without an update_id are not
// Telegram updates and are dropped with a 200 so the sender stops retrying.
func (h *UpdateHandler) Receive(c echo.Context) error {
	if h.secretToken != "" && c.Request().Header.Get(secretTokenHeader) != h.secretToken {
		h.logger.Warn("webhook secret token mismatch", slog.String("remote_ip", c.RealIP()))
		return c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "invalid secret token"})
	}

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		h.logger.Warn("webhook body read failed", slog.Any("error", err))
		return c.NoContent(http.StatusOK)
	}

	var probe struct {
		UpdateID *int `json:"update_id"`
	}
	if err := json.Unmarshal(body, &probe); err != nil || probe.UpdateID == nil {
		h.logger.Warn("webhook payload without update_id dropped")
		return c.NoContent(http.StatusOK)
	}

	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		h.logger.Warn("webhook payload unparseable", slog.Any("error", err))
		return c.NoContent(http.StatusOK)
	}

	h.dispatcher.HandleUpdate(c.Request().Context(), update)
	return c.NoContent(http.StatusOK)
}
