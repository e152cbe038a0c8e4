package bot

import (
	"context"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/fr8labs/leadbot/internal/crm"
	"github.com/fr8labs/leadbot/internal/session"
)

func (d *Dispatcher) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	command := msg.Command()
	args := strings.TrimSpace(msg.CommandArguments())

	d.logger.Info("command",
		slog.Int64("chat_id", chatID),
		slog.String("command", command),
	)

	switch command {
	case "start":
		d.sendWelcome(chatID)
	case "help":
		d.reply(chatID, textHelp)
	case "setcrm":
		d.handleSetCRM(ctx, chatID, args)
	case "login":
		d.handleLogin(ctx, chatID, args)
	case "usecrm":
		d.handleUseCRM(chatID, args)
	case "listcrm":
		d.handleListCRM(chatID)
	case "delcrm":
		d.handleDelCRM(ctx, chatID, args)
	case "search", "searchleads":
		d.handleSearchCommand(ctx, chatID, args, crm.DoctypeLead)
	case "searchdeals":
		d.handleSearchCommand(ctx, chatID, args, crm.DoctypeDeal)
	default:
		d.replyPlain(chatID, "Unknown command. Type /help.")
	}
}

func (d *Dispatcher) sendWelcome(chatID int64) {
	msg := tgbotapi.NewMessage(chatID, textWelcome)
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Create Lead", cbCreateLead),
			tgbotapi.NewInlineKeyboardButtonData("Update Lead", cbUpdateLead),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Create Deal", cbCreateDeal),
			tgbotapi.NewInlineKeyboardButtonData("Update Deal", cbUpdateDeal),
		),
	)
	if _, err := d.api.Send(msg); err != nil {
		d.logger.Error("send welcome failed", slog.Int64("chat_id", chatID), slog.Any("error", err))
	}
}

// handleSetCRM accepts either a pre-provisioned alias (to be unlocked with
// /login) or a raw URL served with the default API keys.
func (d *Dispatcher) handleSetCRM(ctx context.Context, chatID int64, args string) {
	if args == "" {
		d.reply(chatID, "Usage: `/setcrm <alias or URL>`")
		return
	}

	if d.registry.ValidateAlias(args) {
		if d.registry.SetActive(chatID, args) {
			d.reply(chatID, "CRM set to: `"+args+"`")
			return
		}
		d.reply(chatID, "Alias `"+args+"` needs a login first: `/login "+args+" <username> <password>`")
		return
	}

	if strings.HasPrefix(args, "http://") || strings.HasPrefix(args, "https://") {
		if d.registry.UseCustomURL(ctx, chatID, args) {
			d.reply(chatID, "CRM set to: `"+args+"`")
			return
		}
		d.reply(chatID, "No default API keys configured for custom URLs.")
		return
	}

	d.reply(chatID, "Unknown alias. Available: `"+strings.Join(d.registry.AvailableAliases(), "`, `")+"`")
}

func (d *Dispatcher) handleLogin(ctx context.Context, chatID int64, args string) {
	parts := strings.Fields(args)
	if len(parts) != 3 {
		d.reply(chatID, "Usage: `/login <alias> <username> <password>`")
		return
	}
	alias, username, password := parts[0], parts[1], parts[2]

	if !d.registry.ValidateAlias(alias) {
		d.reply(chatID, "Unknown alias. Available: `"+strings.Join(d.registry.AvailableAliases(), "`, `")+"`")
		return
	}
	if !d.registry.Authenticate(ctx, chatID, alias, username, password) {
		d.replyPlain(chatID, "Login failed. Check your credentials.")
		return
	}
	d.reply(chatID, "Logged in to `"+alias+"`. It is now your active CRM.")
}

func (d *Dispatcher) handleUseCRM(chatID int64, args string) {
	if args == "" {
		d.reply(chatID, "Usage: `/usecrm <alias>`")
		return
	}
	if !d.registry.SetActive(chatID, args) {
		d.reply(chatID, "Alias `"+args+"` is not connected. Use `/login "+args+" <username> <password>` first.")
		return
	}
	d.reply(chatID, "Active CRM: `"+args+"`")
}

func (d *Dispatcher) handleListCRM(chatID int64) {
	aliases := d.registry.List(chatID)
	if len(aliases) == 0 {
		d.reply(chatID, "No CRM connections yet. Use `/login <alias> <username> <password>`.")
		return
	}
	d.reply(chatID, "Your CRM connections:\n`"+strings.Join(aliases, "`\n`")+"`")
}

func (d *Dispatcher) handleDelCRM(ctx context.Context, chatID int64, args string) {
	if args == "" {
		d.reply(chatID, "Usage: `/delcrm <alias>`")
		return
	}
	if !d.registry.Delete(ctx, chatID, args) {
		d.reply(chatID, "No connection named `"+args+"`.")
		return
	}
	d.reply(chatID, "Removed `"+args+"`.")
}

func (d *Dispatcher) handleSearchCommand(ctx context.Context, chatID int64, args string, doctype crm.Doctype) {
	if args == "" {
		d.reply(chatID, "Usage: `/search"+doctype.Label()+"s <term>`")
		return
	}
	d.sessions.Mutate(chatID, func(sess *session.Session) {
		sess.CurrentDoctype = doctype
	})
	d.runSearch(ctx, chatID, args, doctype, true)
}
