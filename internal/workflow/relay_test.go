package workflow

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fr8labs/leadbot/internal/config"
	"github.com/fr8labs/leadbot/internal/crm"
	"github.com/fr8labs/leadbot/internal/draft"
)

func TestPostSendsJSONPayload(t *testing.T) {
	t.Parallel()

	var gotBody []byte
	var gotContentType, gotRequestID string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotContentType = r.Header.Get("Content-Type")
		gotRequestID = r.Header.Get("X-Request-ID")
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	relay := NewRelay(slog.Default(), config.WorkflowConfig{ConfirmLeadURL: srv.URL}, time.Second)
	payload := ConfirmPayload{
		ChatID:  42,
		DraftID: "draft-1",
		CRM:     crm.Connection{Alias: "glen", URL: "http://crm.example"},
		Record:  draft.Record{Fields: map[string]string{"organization": "Acme"}},
	}

	if err := relay.Post(context.Background(), IntentConfirmLead, payload); err != nil {
		t.Fatalf("Post: %v", err)
	}

	if gotContentType != "application/json" {
		t.Errorf("unexpected content type %q", gotContentType)
	}
	if gotRequestID == "" {
		t.Error("expected a correlation request ID header")
	}

	var decoded ConfirmPayload
	if err := json.Unmarshal(gotBody, &decoded); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if decoded.ChatID != 42 || decoded.DraftID != "draft-1" {
		t.Fatalf("unexpected payload: %+v", decoded)
	}
	if decoded.Record.Fields["organization"] != "Acme" {
		t.Fatalf("record fields lost in transit: %+v", decoded.Record)
	}
}

func TestPostUnconfiguredIntent(t *testing.T) {
	t.Parallel()

	relay := NewRelay(slog.Default(), config.WorkflowConfig{}, time.Second)
	if err := relay.Post(context.Background(), IntentVoiceLead, VoicePayload{}); err == nil {
		t.Fatal("expected error for unconfigured intent")
	}
}

func TestPostErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "workflow broken", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	relay := NewRelay(slog.Default(), config.WorkflowConfig{VoiceLeadURL: srv.URL}, time.Second)
	if err := relay.Post(context.Background(), IntentVoiceLead, VoicePayload{ChatID: 1}); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
