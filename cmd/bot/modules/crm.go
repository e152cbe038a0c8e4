package modules

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/fx"

	"github.com/fr8labs/leadbot/internal/boot"
	"github.com/fr8labs/leadbot/internal/config"
	"github.com/fr8labs/leadbot/internal/crm"
	"github.com/fr8labs/leadbot/internal/db"
)

var CRMModule = fx.Module(
	"crm",
	fx.Provide(
		provideCRMClient,
		provideConnectionStore,
		provideRegistry,
	),
	fx.Invoke(startSessionSweeper),
)

// ---------------------------------------------------------------------------
// CRM providers
// ---------------------------------------------------------------------------

func provideCRMClient(log *slog.Logger) *crm.Client {
	return crm.NewClient(log, 15*time.Second)
}

// provideConnectionStore picks the persistence backend. The JSON file store
// is the default; Postgres is opt-in via store.use_postgres.
func provideConnectionStore(lc fx.Lifecycle, log *slog.Logger, cfg config.Config) (crm.ConnectionStore, error) {
	if !cfg.Store.UsePostgres {
		return crm.NewFileStore(cfg.Store.Path), nil
	}

	pool, err := db.Open(context.Background(), cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			pool.Close()
			return nil
		},
	})
	return crm.NewPGStore(pool), nil
}

func provideRegistry(log *slog.Logger, client *crm.Client, store crm.ConnectionStore, cfg config.Config, rc *boot.RuntimeConfig) (*crm.Registry, error) {
	return crm.NewRegistry(log, client, store, cfg.CRM, rc.SessionDuration)
}

// startSessionSweeper expires idle CRM sessions on a fixed schedule.
func startSessionSweeper(lc fx.Lifecycle, log *slog.Logger, registry *crm.Registry) {
	c := cron.New()
	if _, err := c.AddFunc("@every 10m", func() {
		if n := registry.SweepExpired(); n > 0 {
			log.Info("expired crm sessions", slog.Int("count", n))
		}
	}); err != nil {
		log.Error("session sweeper setup failed", slog.Any("error", err))
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			c.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			<-c.Stop().Done()
			return nil
		},
	})
}
