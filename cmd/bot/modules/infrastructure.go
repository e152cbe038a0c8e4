package modules

import (
	"fmt"
	"log/slog"
	"os"

	"go.uber.org/fx"

	"github.com/fr8labs/leadbot/internal/boot"
	"github.com/fr8labs/leadbot/internal/config"
	"github.com/fr8labs/leadbot/internal/logger"
)

var InfraModule = fx.Module(
	"infra",
	fx.Provide(
		ProvideConfig,
		provideLogger,
		boot.ProvideRuntimeConfig,
	),
)

// ---------------------------------------------------------------------------
// infrastructure providers
// ---------------------------------------------------------------------------

// ProvideConfig loads the TOML config and layers the env overrides on top.
// Exported so the migrate entrypoint can reuse it outside the fx graph.
func ProvideConfig() (config.Config, error) {
	cfgPath := os.Getenv("CONFIG_PATH")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	cfg.CRM = boot.ApplyCRMEnv(cfg.CRM)
	cfg.Workflow = boot.ApplyWorkflowEnv(cfg.Workflow)
	return cfg, nil
}

func provideLogger(cfg config.Config) *slog.Logger {
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return logger.L
}

