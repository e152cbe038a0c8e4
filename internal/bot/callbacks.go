package bot

import (
	"context"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/fr8labs/leadbot/internal/crm"
	"github.com/fr8labs/leadbot/internal/draft"
	"github.com/fr8labs/leadbot/internal/session"
	"github.com/fr8labs/leadbot/internal/workflow"
)

func (d *Dispatcher) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	// The Telegram client shows a spinner until the callback is answered;
	// ack exactly once no matter which branch runs or fails.
	defer d.ack(query.ID)

	if query.Message == nil {
		d.logger.Warn("callback without message", slog.String("data", query.Data))
		return
	}
	chatID := query.Message.Chat.ID

	act, err := parseAction(query.Data)
	if err != nil {
		d.logger.Warn("callback ignored", slog.Int64("chat_id", chatID), slog.Any("error", err))
		return
	}

	d.logger.Info("callback",
		slog.Int64("chat_id", chatID),
		slog.String("action", query.Data),
	)

	switch a := act.(type) {
	case actionCreate:
		d.sessions.Mutate(chatID, func(sess *session.Session) {
			sess.CurrentDoctype = a.Doctype
			sess.SelectedDocName = ""
		})
		d.reply(chatID, "Send a *voice message* with "+a.Doctype.Label()+" details.\nSet your CRM with `/setcrm` first.")

	case actionUpdatePrompt:
		d.sessions.Mutate(chatID, func(sess *session.Session) {
			sess.CurrentDoctype = a.Doctype
		})
		d.reply(chatID, "Type: `/search"+a.Doctype.Label()+"s Acme` or `/search"+a.Doctype.Label()+"s John`")

	case actionSelect:
		d.handleSelect(chatID, a)

	case actionConfirm:
		d.handleConfirm(ctx, chatID, query.Message, a)

	case actionConvert:
		d.handleConvert(ctx, chatID, query.Message, a)

	case actionPage:
		d.sessions.TurnPage(chatID, a.Delta)
		d.runSearch(ctx, chatID, "", a.Doctype, false)

	case actionFilterHelp:
		d.reply(chatID, textFilterHelp)

	case actionCancel:
		d.sessions.Mutate(chatID, func(sess *session.Session) {
			sess.SelectedDocName = ""
			sess.Draft = nil
		})
		d.edit(chatID, query.Message.MessageID, textCancelled)
	}
}

func (d *Dispatcher) ack(callbackID string) {
	if _, err := d.api.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		d.logger.Error("answer callback failed", slog.Any("error", err))
	}
}

func (d *Dispatcher) handleSelect(chatID int64, a actionSelect) {
	d.sessions.Mutate(chatID, func(sess *session.Session) {
		sess.SelectedDocName = a.Name
		sess.CurrentDoctype = a.Doctype
	})

	msg := tgbotapi.NewMessage(chatID, "Selected: *"+a.Name+"*\n\nSend *voice* to update.")
	msg.ParseMode = tgbotapi.ModeMarkdown
	if a.Doctype == crm.DoctypeLead {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Convert to Deal", cbConvertLead+":"+a.Name),
			),
		)
	}
	if _, err := d.api.Send(msg); err != nil {
		d.logger.Error("send failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
	}
}

// handleConfirm resolves the structured draft (cache first, message text as
// fallback), relays it to the workflow engine, and relays any nested tasks
// and notes through their own intents.
func (d *Dispatcher) handleConfirm(ctx context.Context, chatID int64, message *tgbotapi.Message, a actionConfirm) {
	conn, ok := d.registry.ResolveActive(chatID)
	if !ok {
		d.edit(chatID, message.MessageID, "No CRM selected. Use /setcrm and /login first.")
		return
	}

	sess := d.sessions.Snapshot(chatID)
	var cachedID string
	var cached *draft.Record
	if sess.Draft != nil {
		cachedID = sess.Draft.DraftID
		cached = &sess.Draft.Record
	}
	record := draft.ParseOrRetrieve(cachedID, cached, a.DraftID, message.Text)

	// SelectedDocName set at confirmation time means update, not create.
	docName := sess.SelectedDocName

	d.edit(chatID, message.MessageID, creatingText(a.Doctype, docName))

	intent := workflow.IntentConfirmLead
	if a.Doctype == crm.DoctypeDeal {
		intent = workflow.IntentConfirmDeal
	}
	err := d.relay.Post(ctx, intent, workflow.ConfirmPayload{
		ChatID:  chatID,
		DraftID: a.DraftID,
		CRM:     conn,
		DocName: docName,
		Record:  record,
	})
	if err != nil {
		d.logger.Error("confirm relay failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
		d.edit(chatID, message.MessageID, "Error. Try again.")
		return
	}

	d.relayItems(ctx, chatID, conn, a, docName, record)

	d.sessions.Mutate(chatID, func(sess *session.Session) {
		sess.SelectedDocName = ""
		sess.Draft = nil
	})
	d.edit(chatID, message.MessageID, "Waiting for CRM...")
}

// relayItems posts each nested task and note as its own intent. Failures
// are logged; the main confirm already went out.
func (d *Dispatcher) relayItems(ctx context.Context, chatID int64, conn crm.Connection, a actionConfirm, docName string, record draft.Record) {
	for _, task := range record.Tasks {
		if err := d.relay.Post(ctx, workflow.IntentCreateTask, workflow.ItemPayload{
			ChatID:  chatID,
			DraftID: a.DraftID,
			CRM:     conn,
			Doctype: a.Doctype.Resource(),
			DocName: docName,
			Item:    task,
		}); err != nil {
			d.logger.Error("task relay failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
		}
	}
	for _, note := range record.Notes {
		if err := d.relay.Post(ctx, workflow.IntentCreateNote, workflow.ItemPayload{
			ChatID:  chatID,
			DraftID: a.DraftID,
			CRM:     conn,
			Doctype: a.Doctype.Resource(),
			DocName: docName,
			Item:    note,
		}); err != nil {
			d.logger.Error("note relay failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
		}
	}
}

func (d *Dispatcher) handleConvert(ctx context.Context, chatID int64, message *tgbotapi.Message, a actionConvert) {
	conn, ok := d.registry.ResolveActive(chatID)
	if !ok {
		d.edit(chatID, message.MessageID, "No CRM selected. Use /setcrm and /login first.")
		return
	}

	err := d.relay.Post(ctx, workflow.IntentConvertLead, workflow.ConvertPayload{
		ChatID:  chatID,
		CRM:     conn,
		DocName: a.Name,
	})
	if err != nil {
		d.logger.Error("convert relay failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
		d.replyPlain(chatID, "Error. Try again.")
		return
	}
	d.replyPlain(chatID, "Converting "+a.Name+" to a deal...")
}

func creatingText(doctype crm.Doctype, docName string) string {
	if docName != "" {
		return "Updating " + doctype.Label() + "..."
	}
	return "Creating " + doctype.Label() + "..."
}
