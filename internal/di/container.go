// Package di provides dependency injection configuration for the Daily Blend bot.
package di

import (
	"github.com/samber/do/v2"

	"github.com/dailyblend/blender/internal/auth"
	"github.com/dailyblend/blender/internal/catalog"
	"github.com/dailyblend/blender/internal/config"
	"github.com/dailyblend/blender/internal/di/providers"
	"github.com/dailyblend/blender/internal/logger"
	"github.com/dailyblend/blender/internal/publish"
	"github.com/dailyblend/blender/internal/service"
)

// NewContainer creates and configures the DI container with all providers.
// Configuration is loaded by the caller so missing variables can be reported
// before anything starts.
func NewContainer(cfg *config.Config) *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.ProvideValue(injector, cfg)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideValidator)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)

	// Outbound clients
	do.Provide(injector, providers.ProvideCatalogClient)
	do.Provide(injector, providers.ProvideWebhook)
	do.Provide(injector, providers.ProvideOpsReporter)

	// Auth layer
	do.Provide(injector, providers.ProvideTokenService)

	// Events
	do.Provide(injector, providers.ProvideEvents)

	// Business services
	do.Provide(injector, providers.ProvideBlendService)
	do.Provide(injector, providers.ProvideCommandService)

	// Workers
	do.Provide(injector, providers.ProvideScheduler)

	// Frontends
	do.Provide(injector, providers.ProvideHTTPServer)
	do.Provide(injector, providers.ProvideDiscordBot)

	return injector
}

// Bootstrap initializes all services in dependency order. The Discord bot
// comes last; its ready hook arms the scheduler.
func Bootstrap(injector *do.RootScope) error {
	_ = do.MustInvoke[*logger.Logger](injector)
	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*catalog.Client](injector)
	if _, err := do.Invoke[*publish.Webhook](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*publish.OpsReporter](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*providers.EventsHandle](injector)
	_ = do.MustInvoke[*service.BlendService](injector)
	if _, err := do.Invoke[*providers.SchedulerHandle](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*service.CommandService](injector)

	cfg := do.MustInvoke[*config.Config](injector)
	if cfg.API.Enabled {
		if _, err := do.Invoke[*auth.TokenService](injector); err != nil {
			return err
		}
	}
	if _, err := do.Invoke[*providers.HTTPServerHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*providers.DiscordHandle](injector); err != nil {
		return err
	}

	return nil
}

// Shutdown closes every instantiated service in reverse dependency order and
// returns the failures, or nil when all of them shut down cleanly.
func Shutdown(injector *do.RootScope) error {
	report := injector.Shutdown()
	if report == nil || len(report.Errors) == 0 {
		return nil
	}
	return report
}
