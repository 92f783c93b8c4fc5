package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/dailyblend/blender/internal/config"
	"github.com/dailyblend/blender/internal/logger"
	"github.com/dailyblend/blender/internal/publish"
	"github.com/dailyblend/blender/internal/scheduler"
	"github.com/dailyblend/blender/internal/service"
	"github.com/dailyblend/blender/internal/sse"
)

// SchedulerHandle wraps the daily scheduler with shutdown capability. The
// scheduler is armed by the Discord ready hook, not at construction.
type SchedulerHandle struct {
	*scheduler.Scheduler
	ctx    context.Context
	cancel context.CancelFunc
}

// Arm starts the trigger loop. Safe to call on every reconnect.
func (h *SchedulerHandle) Arm() {
	h.Start(h.ctx)
}

// Shutdown implements do.Shutdownable.
func (h *SchedulerHandle) Shutdown() error {
	h.cancel()
	h.Stop()
	return nil
}

// ProvideScheduler provides the daily blend scheduler.
func ProvideScheduler(i do.Injector) (*SchedulerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	blend := do.MustInvoke[*service.BlendService](i)
	reporter := do.MustInvoke[*publish.OpsReporter](i)
	log := do.MustInvoke[*logger.Logger](i)

	trigger, err := scheduler.ParseDaily(cfg.Blend.Time, cfg.Blend.Location)
	if err != nil {
		return nil, err
	}

	job := func(ctx context.Context) error {
		_, err := blend.RunDaily(ctx)
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	sched := scheduler.New(trigger, job, reporter, log.Logger)

	log.Info("Scheduler configured", "trigger", trigger.String())

	return &SchedulerHandle{Scheduler: sched, ctx: ctx, cancel: cancel}, nil
}

// EventsHandle wraps the SSE manager with shutdown capability.
type EventsHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *EventsHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := h.Manager.Shutdown(ctx)
	h.cancel()
	return err
}

// ProvideEvents provides the blend event broadcaster and starts its loop.
func ProvideEvents(i do.Injector) (*EventsHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Logger)
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	return &EventsHandle{Manager: manager, cancel: cancel}, nil
}
