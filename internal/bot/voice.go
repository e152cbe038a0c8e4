package bot

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/fr8labs/leadbot/internal/crm"
	"github.com/fr8labs/leadbot/internal/session"
	"github.com/fr8labs/leadbot/internal/workflow"
)

// handleVoice forwards a voice message's file URL to the workflow engine.
// A selected document at this point means update mode; the selection is
// consumed so the next voice cycle defaults back to create.
func (d *Dispatcher) handleVoice(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	d.logger.Info("voice received",
		slog.Int64("chat_id", chatID),
		slog.String("file_id", msg.Voice.FileID),
	)

	conn, ok := d.registry.ResolveActive(chatID)
	if !ok {
		d.reply(chatID, textNoCRM)
		return
	}

	d.replyPlain(chatID, "Processing voice...")

	file, err := d.api.GetFile(tgbotapi.FileConfig{FileID: msg.Voice.FileID})
	if err != nil {
		d.logger.Error("get file failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
		d.replyPlain(chatID, "Error. Try again.")
		return
	}
	fileURL := file.Link(d.token)

	var docName string
	var doctype crm.Doctype
	d.sessions.Mutate(chatID, func(sess *session.Session) {
		docName = sess.SelectedDocName
		doctype = sess.CurrentDoctype
		sess.SelectedDocName = ""
	})
	isUpdate := docName != ""

	intent := workflow.IntentVoiceLead
	if doctype == crm.DoctypeDeal {
		intent = workflow.IntentVoiceDeal
	}

	err = d.relay.Post(ctx, intent, workflow.VoicePayload{
		ChatID:   chatID,
		FileURL:  fileURL,
		CRM:      conn,
		DocName:  docName,
		IsUpdate: isUpdate,
	})
	if err != nil {
		d.logger.Error("voice relay failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
		d.replyPlain(chatID, "Error. Try again.")
		return
	}

	if isUpdate {
		d.replyPlain(chatID, "Updating "+doctype.Label()+"...")
	} else {
		d.replyPlain(chatID, "Analyzing...")
	}
}
