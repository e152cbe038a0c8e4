package modules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/fx"

	"github.com/fr8labs/leadbot/internal/boot"
	"github.com/fr8labs/leadbot/internal/bot"
	"github.com/fr8labs/leadbot/internal/config"
	"github.com/fr8labs/leadbot/internal/handlers"
	"github.com/fr8labs/leadbot/internal/server"
	"github.com/fr8labs/leadbot/internal/version"
)

var ServerModule = fx.Module(
	"server",
	fx.Provide(
		provideServerHandler(provideHealthHandler),
		provideServerHandler(provideUpdateHandler),
		provideServerHandler(provideWorkflowHandler),
		provideServer,
	),
	fx.Invoke(startServer),
)

// ---------------------------------------------------------------------------
// server
// ---------------------------------------------------------------------------

func provideServerHandler(fn any) any {
	return fx.Annotate(
		fn,
		fx.As(new(server.Handler)),
		fx.ResultTags(`group:"server_handlers"`),
	)
}

func provideHealthHandler(log *slog.Logger, cfg config.Config) *handlers.HealthHandler {
	return handlers.NewHealthHandler(log, &cfg)
}

func provideUpdateHandler(log *slog.Logger, dispatcher *bot.Dispatcher, rc *boot.RuntimeConfig) *handlers.UpdateHandler {
	return handlers.NewUpdateHandler(log, dispatcher, rc.WebhookPath, rc.SecretToken)
}

func provideWorkflowHandler(log *slog.Logger, dispatcher *bot.Dispatcher) *handlers.WorkflowHandler {
	return handlers.NewWorkflowHandler(log, dispatcher)
}

type serverParams struct {
	fx.In

	Logger         *slog.Logger
	RuntimeConfig  *boot.RuntimeConfig
	ServerHandlers []server.Handler `group:"server_handlers"`
}

func provideServer(params serverParams) *server.Server {
	return server.NewServer(params.Logger, params.RuntimeConfig.ServerAddr, params.ServerHandlers...)
}

func startServer(
	lc fx.Lifecycle,
	logger *slog.Logger,
	srv *server.Server,
	shutdowner fx.Shutdowner,
	api *tgbotapi.BotAPI,
	rc *boot.RuntimeConfig,
) {
	fmt.Printf("Starting Frappe Lead Bot %s\n", version.GetInfo())

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := registerWebhook(logger, api, rc); err != nil {
				return err
			}

			go func() {
				if err := srv.Start(); err != nil { // block until server is stopped
					logger.Error("server failed", slog.Any("error", err))
					_ = shutdowner.Shutdown() // shutdown the application if the server fails to start
				}
			}()

			return nil
		},
		OnStop: func(ctx context.Context) error {
			// graceful shutdown
			if err := srv.Stop(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server stop: %w", err)
			}
			return nil
		},
	})
}

// registerWebhook points Telegram at our endpoint. Without an external URL
// the bot stays passive and expects the webhook to be registered out of band.
func registerWebhook(logger *slog.Logger, api *tgbotapi.BotAPI, rc *boot.RuntimeConfig) error {
	if rc.ExternalURL == "" {
		logger.Warn("EXTERNAL_URL not set, skipping webhook registration")
		return nil
	}

	webhookURL := strings.TrimRight(rc.ExternalURL, "/") + rc.WebhookPath
	params := tgbotapi.Params{"url": webhookURL}
	if rc.SecretToken != "" {
		params["secret_token"] = rc.SecretToken
	}
	if _, err := api.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	logger.Info("webhook registered", slog.String("url", webhookURL))
	return nil
}
