// Package bot routes Telegram updates: commands, inline-button callbacks,
// and voice messages.
package bot

import (
	"context"
	"log/slog"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/fr8labs/leadbot/internal/crm"
	"github.com/fr8labs/leadbot/internal/draft"
	"github.com/fr8labs/leadbot/internal/search"
	"github.com/fr8labs/leadbot/internal/session"
	"github.com/fr8labs/leadbot/internal/workflow"
)

// API is the slice of the Telegram bot API the dispatcher uses.
// *tgbotapi.BotAPI satisfies it.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFile(config tgbotapi.FileConfig) (tgbotapi.File, error)
}

// Registry is the CRM connection registry surface the dispatcher needs.
type Registry interface {
	ResolveActive(chatID int64) (crm.Connection, bool)
	Authenticate(ctx context.Context, chatID int64, alias, username, password string) bool
	ValidateAlias(alias string) bool
	AvailableAliases() []string
	SetActive(chatID int64, alias string) bool
	List(chatID int64) []string
	Delete(ctx context.Context, chatID int64, alias string) bool
	UseCustomURL(ctx context.Context, chatID int64, url string) bool
}

// Searcher runs paginated CRM searches.
type Searcher interface {
	Run(ctx context.Context, chatID int64, input string, doctype crm.Doctype, explicit bool) (search.Page, error)
}

// Poster posts intents to the workflow engine.
type Poster interface {
	Post(ctx context.Context, intent workflow.Intent, payload any) error
}

// Dispatcher handles inbound Telegram updates and workflow callbacks.
type Dispatcher struct {
	api      API
	sessions *session.Store
	registry Registry
	search   Searcher
	relay    Poster
	token    string
	logger   *slog.Logger
}

// NewDispatcher creates the update dispatcher. The token is needed to build
// voice file download URLs.
func NewDispatcher(log *slog.Logger, api API, sessions *session.Store, registry Registry, searcher Searcher, relay Poster, token string) *Dispatcher {
	return &Dispatcher{
		api:      api,
		sessions: sessions,
		registry: registry,
		search:   searcher,
		relay:    relay,
		token:    token,
		logger:   log.With(slog.String("service", "dispatcher")),
	}
}

// HandleUpdate routes one Telegram update. Unroutable updates are dropped
// with a log line; the transport expects success regardless.
func (d *Dispatcher) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		d.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.Voice != nil:
		d.handleVoice(ctx, update.Message)
	case update.Message != nil && update.Message.IsCommand():
		d.handleCommand(ctx, update.Message)
	default:
		d.logger.Debug("update ignored", slog.Int("update_id", update.UpdateID))
	}
}

// DeliverDraft caches a structured draft for the chat and sends the
// confirmation message with Confirm/Cancel buttons. A missing draft ID is
// filled with a fresh one so the confirm callback can correlate.
func (d *Dispatcher) DeliverDraft(_ context.Context, chatID int64, draftID string, doctype crm.Doctype, record draft.Record) error {
	if !doctype.Valid() {
		doctype = crm.DoctypeLead
	}
	if draftID == "" {
		draftID = uuid.NewString()
	}

	d.sessions.Mutate(chatID, func(sess *session.Session) {
		sess.CurrentDoctype = doctype
		sess.Draft = &session.CachedDraft{
			DraftID: draftID,
			Doctype: doctype,
			Record:  record,
		}
	})

	text := "*New " + doctype.Label() + " draft:*\n\n" + draft.Render(record) + "\n\nConfirm?"
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Confirm", confirmCallback(doctype, draftID)),
			tgbotapi.NewInlineKeyboardButtonData("Cancel", cbCancelDraft),
		),
	)
	_, err := d.api.Send(msg)
	return err
}

// Notify sends a plain status message to the chat.
func (d *Dispatcher) Notify(chatID int64, text string) error {
	_, err := d.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// reply sends a Markdown-formatted message, logging send failures.
func (d *Dispatcher) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := d.api.Send(msg); err != nil {
		d.logger.Error("send failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
	}
}

// replyPlain sends a message without parse mode.
func (d *Dispatcher) replyPlain(chatID int64, text string) {
	if _, err := d.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		d.logger.Error("send failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
	}
}

// edit replaces a previously sent message's text.
func (d *Dispatcher) edit(chatID int64, messageID int, text string) {
	if _, err := d.api.Request(tgbotapi.NewEditMessageText(chatID, messageID, text)); err != nil {
		d.logger.Error("edit failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
	}
}

// sendSearchPage renders a result page with its selection and navigation
// keyboard, or the no-results message.
func (d *Dispatcher) sendSearchPage(chatID int64, page search.Page) {
	if page.Empty() {
		d.replyPlain(chatID, "No "+page.Doctype.Label()+"s found for \""+page.Query+"\"")
		return
	}

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(page.Items)+1)
	for i, item := range page.Items {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				strconv.Itoa(page.Start+i+1),
				selectCallback(page.Doctype, item.Name),
			),
		))
	}

	nav := make([]tgbotapi.InlineKeyboardButton, 0, 4)
	if page.HasPrev {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("Previous", pageCallback(page.Doctype, false)))
	}
	if page.HasMore {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("More", pageCallback(page.Doctype, true)))
	}
	nav = append(nav,
		tgbotapi.NewInlineKeyboardButtonData("Filter", filterCallback(page.Doctype)),
		tgbotapi.NewInlineKeyboardButtonData("Create new", createCallback(page.Doctype)),
	)
	rows = append(rows, nav)

	msg := tgbotapi.NewMessage(chatID, page.Text())
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	if _, err := d.api.Send(msg); err != nil {
		d.logger.Error("send search page failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
	}
}

// runSearch executes a search and renders the outcome, mapping the sentinel
// errors to their user-facing prompts.
func (d *Dispatcher) runSearch(ctx context.Context, chatID int64, input string, doctype crm.Doctype, explicit bool) {
	page, err := d.search.Run(ctx, chatID, input, doctype, explicit)
	switch {
	case err == nil:
		d.sendSearchPage(chatID, page)
	case err == search.ErrNoCRM:
		d.reply(chatID, textNoCRM)
	case err == search.ErrNoQuery:
		d.reply(chatID, "Use `/search"+doctype.Label()+"s <term>` first.")
	default:
		d.logger.Error("search failed",
			slog.Int64("chat_id", chatID),
			slog.String("doctype", string(doctype)),
			slog.Any("error", err),
		)
		d.replyPlain(chatID, doctype.Label()+" search failed. Check CRM URL or API key.")
	}
}
