package providers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/samber/do/v2"

	"github.com/dailyblend/blender/internal/api"
	"github.com/dailyblend/blender/internal/auth"
	"github.com/dailyblend/blender/internal/config"
	"github.com/dailyblend/blender/internal/discord"
	"github.com/dailyblend/blender/internal/logger"
	"github.com/dailyblend/blender/internal/ratelimit"
	"github.com/dailyblend/blender/internal/service"
)

// HTTPServerHandle wraps the admin API server with Shutdownable. Server is
// nil when the API is disabled.
type HTTPServerHandle struct {
	*http.Server
	limiter *ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	if h.Server == nil {
		return nil
	}
	defer h.limiter.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the admin API server.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.API.Enabled {
		log.Info("Admin API disabled by configuration")
		return &HTTPServerHandle{}, nil
	}

	storeHandle := do.MustInvoke[*StoreHandle](i)
	commands := do.MustInvoke[*service.CommandService](i)
	schedulerHandle := do.MustInvoke[*SchedulerHandle](i)
	tokens := do.MustInvoke[*auth.TokenService](i)
	events := do.MustInvoke[*EventsHandle](i)

	// 5 requests per second per subject, idle buckets dropped after 10 minutes.
	limiter := ratelimit.New(5, 20, 10*time.Minute)

	handler := api.NewServer(storeHandle.SelectionStore, commands, schedulerHandle.Scheduler, api.Options{
		Tokens:      tokens,
		Limiter:     limiter,
		CORSOrigins: cfg.API.CORSOrigins,
		Events:      events.Manager,
	}, log.Logger)

	srv := &http.Server{
		Addr:         ":" + cfg.API.Port,
		Handler:      handler,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
		IdleTimeout:  cfg.API.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("Admin API starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Admin API error", "error", err)
		}
	}()

	return &HTTPServerHandle{Server: srv, limiter: limiter}, nil
}

// DiscordHandle wraps the bot session with Shutdownable.
type DiscordHandle struct {
	*discord.Bot
}

// Shutdown implements do.Shutdownable.
func (h *DiscordHandle) Shutdown() error {
	return h.Close()
}

// ProvideDiscordBot connects the bot. The scheduler is armed once Discord
// reports ready.
func ProvideDiscordBot(i do.Injector) (*DiscordHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	commands := do.MustInvoke[*service.CommandService](i)
	schedulerHandle := do.MustInvoke[*SchedulerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	if len(cfg.Discord.AllowedRoles) == 0 {
		log.Warn("ALLOWED_ROLES is empty, every slash command will be refused")
	}

	dispatcher := discord.NewDispatcher(commands, cfg.Discord.AllowedRoles, log.Logger)
	bot, err := discord.New(cfg.Discord.Token, cfg.Discord.GuildID, dispatcher, schedulerHandle.Arm, log.Logger)
	if err != nil {
		return nil, err
	}

	if err := bot.Open(); err != nil {
		return nil, err
	}

	return &DiscordHandle{Bot: bot}, nil
}
