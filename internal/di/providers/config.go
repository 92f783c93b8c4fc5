package providers

import (
	"github.com/samber/do/v2"

	"github.com/dailyblend/blender/internal/config"
	"github.com/dailyblend/blender/internal/logger"
)

// ProvideLogger provides the structured logger.
func ProvideLogger(i do.Injector) (*logger.Logger, error) {
	cfg := do.MustInvoke[*config.Config](i)

	log := logger.New(logger.Config{
		Level:       logger.ParseLevel(cfg.Logger.Level),
		AddSource:   cfg.App.Environment == "development",
		Environment: cfg.App.Environment,
	})

	log.Info("Starting Daily Blend bot",
		"environment", cfg.App.Environment,
		"log_level", cfg.Logger.Level,
		"store", cfg.Store.Backend,
		"data_path", cfg.Store.DataPath,
		"blend_time", cfg.Blend.Time,
		"blend_timezone", cfg.Blend.Timezone,
	)

	return log, nil
}
