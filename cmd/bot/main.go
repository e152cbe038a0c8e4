package main

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/fr8labs/leadbot/cmd/bot/modules"
	migrations "github.com/fr8labs/leadbot/db"
	"github.com/fr8labs/leadbot/internal/db"
	"github.com/fr8labs/leadbot/internal/logger"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		runMigrate(os.Args[2:])
		return
	}

	fx.New(
		modules.InfraModule,
		modules.CRMModule,
		modules.BotModule,
		modules.ServerModule,
		fx.WithLogger(func(logger *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: logger.With(slog.String("component", "fx"))}
		}),
	).Run()
}

func runMigrate(args []string) {
	cfg, err := modules.ProvideConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)

	command := "up"
	if len(args) > 0 {
		command = args[0]
		args = args[1:]
	}

	migrationsFS, err := fs.Sub(migrations.MigrationsFS, "migrations")
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrations: %v\n", err)
		os.Exit(1)
	}
	if err := db.RunMigrate(logger.L, cfg.Postgres, migrationsFS, command, args); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}
}
