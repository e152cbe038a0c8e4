package modules

import (
	"fmt"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/fx"

	"github.com/fr8labs/leadbot/internal/boot"
	"github.com/fr8labs/leadbot/internal/bot"
	"github.com/fr8labs/leadbot/internal/config"
	"github.com/fr8labs/leadbot/internal/crm"
	"github.com/fr8labs/leadbot/internal/search"
	"github.com/fr8labs/leadbot/internal/session"
	"github.com/fr8labs/leadbot/internal/workflow"
)

var BotModule = fx.Module(
	"bot",
	fx.Provide(
		provideBotAPI,
		session.NewStore,
		provideSearchService,
		provideRelay,
		provideDispatcher,
	),
)

// ---------------------------------------------------------------------------
// bot providers
// ---------------------------------------------------------------------------

func provideBotAPI(log *slog.Logger, rc *boot.RuntimeConfig) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(rc.BotToken)
	if err != nil {
		return nil, fmt.Errorf("telegram api: %w", err)
	}
	log.Info("telegram bot authorized", slog.String("username", api.Self.UserName))
	return api, nil
}

func provideSearchService(log *slog.Logger, sessions *session.Store, client *crm.Client, registry *crm.Registry) *search.Service {
	return search.NewService(log, sessions, client, registry)
}

func provideRelay(log *slog.Logger, cfg config.Config) *workflow.Relay {
	return workflow.NewRelay(log, cfg.Workflow, 30*time.Second)
}

func provideDispatcher(log *slog.Logger, api *tgbotapi.BotAPI, sessions *session.Store, registry *crm.Registry, searcher *search.Service, relay *workflow.Relay, rc *boot.RuntimeConfig) *bot.Dispatcher {
	return bot.NewDispatcher(log, api, sessions, registry, searcher, relay, rc.BotToken)
}
