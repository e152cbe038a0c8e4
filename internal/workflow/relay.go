// Package workflow posts intents to the external workflow engine (n8n).
// Posts are fire-and-forget: the engine's results arrive later through the
// completion callback endpoint, never through these responses.
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/fr8labs/leadbot/internal/config"
	"github.com/fr8labs/leadbot/internal/crm"
	"github.com/fr8labs/leadbot/internal/draft"
)

// Intent names one workflow-engine entry point.
type Intent string

// Workflow intents, one webhook URL each.
const (
	IntentVoiceLead   Intent = "voice_lead"
	IntentVoiceDeal   Intent = "voice_deal"
	IntentConfirmLead Intent = "confirm_lead"
	IntentConfirmDeal Intent = "confirm_deal"
	IntentCreateTask  Intent = "create_task"
	IntentCreateNote  Intent = "create_note"
	IntentConvertLead Intent = "convert_lead"
)

// VoicePayload asks the engine to transcribe a voice file and extract
// fields for a new or updated record.
type VoicePayload struct {
	ChatID   int64          `json:"chatId"`
	FileURL  string         `json:"fileUrl"`
	CRM      crm.Connection `json:"crm"`
	DocName  string         `json:"docName,omitempty"`
	IsUpdate bool           `json:"isUpdate,omitempty"`
}

// ConfirmPayload asks the engine to write a confirmed draft to the CRM.
// DocName set means update; empty means create.
type ConfirmPayload struct {
	ChatID  int64          `json:"chatId"`
	DraftID string         `json:"draftId"`
	CRM     crm.Connection `json:"crm"`
	DocName string         `json:"docName,omitempty"`
	Record  draft.Record   `json:"record"`
}

// ItemPayload asks the engine to attach one task or note to a document.
type ItemPayload struct {
	ChatID  int64             `json:"chatId"`
	DraftID string            `json:"draftId,omitempty"`
	CRM     crm.Connection    `json:"crm"`
	Doctype string            `json:"doctype"`
	DocName string            `json:"docName,omitempty"`
	Item    map[string]string `json:"item"`
}

// ConvertPayload asks the engine to convert a lead into a deal.
type ConvertPayload struct {
	ChatID  int64          `json:"chatId"`
	CRM     crm.Connection `json:"crm"`
	DocName string         `json:"docName"`
}

// Relay posts intent payloads to their configured webhook URLs.
type Relay struct {
	http    *http.Client
	urls    map[Intent]string
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewRelay builds the relay from the workflow config; timeout defaults to
// 20s when zero. The limiter keeps bursts of button presses from hammering
// the engine.
func NewRelay(log *slog.Logger, cfg config.WorkflowConfig, timeout time.Duration) *Relay {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Relay{
		http: &http.Client{Timeout: timeout},
		urls: map[Intent]string{
			IntentVoiceLead:   cfg.VoiceLeadURL,
			IntentVoiceDeal:   cfg.VoiceDealURL,
			IntentConfirmLead: cfg.ConfirmLeadURL,
			IntentConfirmDeal: cfg.ConfirmDealURL,
			IntentCreateTask:  cfg.CreateTaskURL,
			IntentCreateNote:  cfg.CreateNoteURL,
			IntentConvertLead: cfg.ConvertLeadURL,
		},
		limiter: rate.NewLimiter(rate.Limit(5), 10),
		logger:  log.With(slog.String("service", "workflow")),
	}
}

// Post sends one intent payload. The error is for the caller's user-facing
// message only; there is no retry.
func (r *Relay) Post(ctx context.Context, intent Intent, payload any) error {
	url := r.urls[intent]
	if url == "" {
		return fmt.Errorf("no webhook url configured for intent %s", intent)
	}
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("relay limiter: %w", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)

	resp, err := r.http.Do(req)
	if err != nil {
		r.logger.Error("relay post failed",
			slog.String("intent", string(intent)),
			slog.String("request_id", requestID),
			slog.Any("error", err),
		)
		return fmt.Errorf("relay %s: %w", intent, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		r.logger.Error("relay post rejected",
			slog.String("intent", string(intent)),
			slog.String("request_id", requestID),
			slog.Int("status", resp.StatusCode),
			slog.String("body", string(detail)),
		)
		return fmt.Errorf("relay %s: status %d", intent, resp.StatusCode)
	}

	r.logger.Info("relay post sent",
		slog.String("intent", string(intent)),
		slog.String("request_id", requestID),
	)
	return nil
}
