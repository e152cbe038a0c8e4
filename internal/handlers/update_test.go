package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/labstack/echo/v4"
)

type recordingDispatcher struct {
	updates []tgbotapi.Update
}

func (r *recordingDispatcher) HandleUpdate(_ context.Context, update tgbotapi.Update) {
	r.updates = append(r.updates, update)
}

func postWebhook(h *UpdateHandler, body, secretHeader string) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	h.Register(e)
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if secretHeader != "" {
		req.Header.Set(secretTokenHeader, secretHeader)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec, nil
}

func TestReceiveDispatchesUpdate(t *testing.T) {
	t.Parallel()

	disp := &recordingDispatcher{}
	h := NewUpdateHandler(slog.Default(), disp, "/webhook", "")

	body := `{"update_id":42,"message":{"message_id":1,"chat":{"id":7},"text":"/help","entities":[{"type":"bot_command","offset":0,"length":5}]}}`
	rec, _ := postWebhook(h, body, "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(disp.updates) != 1 {
		t.Fatalf("expected one dispatched update, got %d", len(disp.updates))
	}
	if disp.updates[0].UpdateID != 42 {
		t.Fatalf("unexpected update id %d", disp.updates[0].UpdateID)
	}
}

func TestReceiveDropsPayloadWithoutUpdateID(t *testing.T) {
	t.Parallel()

	disp := &recordingDispatcher{}
	h := NewUpdateHandler(slog.Default(), disp, "/webhook", "")

	for _, body := range []string{`{"hello":"world"}`, `not json`, `{}`} {
		rec, _ := postWebhook(h, body, "")
		if rec.Code != http.StatusOK {
			t.Errorf("body %q: expected 200 ack, got %d", body, rec.Code)
		}
	}
	if len(disp.updates) != 0 {
		t.Fatalf("expected no dispatched updates, got %d", len(disp.updates))
	}
}

func TestReceiveChecksSecretToken(t *testing.T) {
	t.Parallel()

	disp := &recordingDispatcher{}
	h := NewUpdateHandler(slog.Default(), disp, "/webhook", "s3cret")

	rec, _ := postWebhook(h, `{"update_id":1}`, "wrong")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 on bad secret, got %d", rec.Code)
	}
	if len(disp.updates) != 0 {
		t.Fatal("update must not be dispatched on bad secret")
	}

	rec, _ = postWebhook(h, `{"update_id":1}`, "s3cret")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with matching secret, got %d", rec.Code)
	}
	if len(disp.updates) != 1 {
		t.Fatalf("expected one dispatched update, got %d", len(disp.updates))
	}
}
