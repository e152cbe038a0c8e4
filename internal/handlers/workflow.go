package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fr8labs/leadbot/internal/crm"
	"github.com/fr8labs/leadbot/internal/draft"
)

// DraftDeliverer pushes workflow results back into the chat.
type DraftDeliverer interface {
	DeliverDraft(ctx context.Context, chatID int64, draftID string, doctype crm.Doctype, record draft.Record) error
	Notify(chatID int64, text string) error
}

// WorkflowCallback is what the workflow engine posts back after processing
// a voice message or a confirmed draft. A record means a draft to present;
// text alone means a plain status notification.
type WorkflowCallback struct {
	ChatID  int64         `json:"chatId"`
	DraftID string        `json:"draftId,omitempty"`
	Doctype crm.Doctype   `json:"doctype,omitempty"`
	Record  *draft.Record `json:"record,omitempty"`
	Text    string        `json:"text,omitempty"`
}

// WorkflowHandler serves POST /workflow/callback.
type WorkflowHandler struct {
	deliverer DraftDeliverer
	logger    *slog.Logger
}

// NewWorkflowHandler creates the workflow callback handler.
func NewWorkflowHandler(log *slog.Logger, deliverer DraftDeliverer) *WorkflowHandler {
	return &WorkflowHandler{
		deliverer: deliverer,
		logger:    log.With(slog.String("handler", "workflow")),
	}
}

// Register mounts the callback route.
func (h *WorkflowHandler) Register(e *echo.Echo) {
	e.POST("/workflow/callback", h.Callback)
}

// Callback accepts a draft or a plain notification for a chat.
func (h *WorkflowHandler) Callback(c echo.Context) error {
	var req WorkflowCallback
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "invalid payload"})
	}
	if req.ChatID == 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "chatId is required"})
	}

	if req.Record != nil {
		if err := h.deliverer.DeliverDraft(c.Request().Context(), req.ChatID, req.DraftID, req.Doctype, *req.Record); err != nil {
			h.logger.Error("draft delivery failed", slog.Int64("chat_id", req.ChatID), slog.Any("error", err))
			return c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "delivery failed"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "delivered"})
	}

	if req.Text == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Message: "record or text is required"})
	}
	if err := h.deliverer.Notify(req.ChatID, req.Text); err != nil {
		h.logger.Error("notify failed", slog.Int64("chat_id", req.ChatID), slog.Any("error", err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "delivery failed"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "delivered"})
}
