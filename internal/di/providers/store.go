package providers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/do/v2"

	"github.com/dailyblend/blender/internal/config"
	"github.com/dailyblend/blender/internal/logger"
	"github.com/dailyblend/blender/internal/store"
	"github.com/dailyblend/blender/internal/store/redisstore"
	"github.com/dailyblend/blender/internal/store/sqlite"
)

// StoreHandle wraps the selection store with shutdown capability.
type StoreHandle struct {
	store.SelectionStore
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the configured selection store backend.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	st, err := OpenStore(context.Background(), cfg.Store, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Selection store initialized", "backend", cfg.Store.Backend)

	return &StoreHandle{SelectionStore: st}, nil
}

// OpenStore opens the backend named by cfg. blendctl shares it with the bot.
func OpenStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (store.SelectionStore, error) {
	var (
		st  store.SelectionStore
		err error
	)
	switch cfg.Backend {
	case config.BackendBadger:
		st, err = store.New(cfg.BadgerPath(), logger)
	case config.BackendSQLite:
		st, err = sqlite.Open(cfg.SQLitePath(), logger)
	case config.BackendRedis:
		st, err = redisstore.Open(ctx, cfg.RedisURL, logger)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Backend, err)
	}
	return st, nil
}
