package providers

import (
	"fmt"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/dailyblend/blender/internal/catalog"
	"github.com/dailyblend/blender/internal/config"
	"github.com/dailyblend/blender/internal/logger"
	"github.com/dailyblend/blender/internal/publish"
	"github.com/dailyblend/blender/internal/service"
	"github.com/dailyblend/blender/internal/validation"
)

// ProvideCatalogClient provides the rhythm.cafe orchard client.
func ProvideCatalogClient(i do.Injector) (*catalog.Client, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return catalog.New(log.Logger, catalog.Options{
		BaseURL: cfg.Catalog.BaseURL,
		Timeout: cfg.Catalog.Timeout,
	}), nil
}

// ProvideWebhook provides the announcement publisher.
func ProvideWebhook(i do.Injector) (*publish.Webhook, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	webhook, err := publish.NewWebhook(cfg.Blend.WebhookURL, &http.Client{Timeout: cfg.Blend.WebhookTimeout}, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("BLEND_WEBHOOK_URL: %w", err)
	}
	return webhook, nil
}

// ProvideOpsReporter provides the operator channel reporter.
func ProvideOpsReporter(i do.Injector) (*publish.OpsReporter, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	reporter, err := publish.NewOpsReporter(cfg.Blend.OpsWebhookURL, &http.Client{Timeout: cfg.Blend.WebhookTimeout}, log.Logger)
	if err != nil {
		return nil, fmt.Errorf("OPS_WEBHOOK_URL: %w", err)
	}
	if !reporter.Enabled() {
		log.Info("No OPS_WEBHOOK_URL configured, blend failures are only logged")
	}
	return reporter, nil
}

// ProvideValidator provides the input validator.
func ProvideValidator(i do.Injector) (*validation.Validator, error) {
	return validation.New(), nil
}

// ProvideBlendService provides the blend cycle service.
func ProvideBlendService(i do.Injector) (*service.BlendService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	client := do.MustInvoke[*catalog.Client](i)
	webhook := do.MustInvoke[*publish.Webhook](i)
	events := do.MustInvoke[*EventsHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	blend := service.NewBlendService(storeHandle.SelectionStore, client, webhook, cfg.Blend.Location, log.Logger)
	blend.SetEmitter(events.Manager)
	return blend, nil
}

// ProvideCommandService provides the operator command service, guarded by
// the scheduler.
func ProvideCommandService(i do.Injector) (*service.CommandService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	blend := do.MustInvoke[*service.BlendService](i)
	schedulerHandle := do.MustInvoke[*SchedulerHandle](i)
	validator := do.MustInvoke[*validation.Validator](i)
	events := do.MustInvoke[*EventsHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	commands := service.NewCommandService(storeHandle.SelectionStore, blend, schedulerHandle.Scheduler, validator, log.Logger)
	commands.SetEmitter(events.Manager)
	return commands, nil
}
