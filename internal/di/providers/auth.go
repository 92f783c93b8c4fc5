package providers

import (
	"github.com/samber/do/v2"

	"github.com/dailyblend/blender/internal/auth"
	"github.com/dailyblend/blender/internal/config"
	"github.com/dailyblend/blender/internal/logger"
)

// ProvideTokenService loads or generates the API key and provides the
// PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	key, err := auth.LoadOrGenerateKey(cfg.API.KeyPath)
	if err != nil {
		return nil, err
	}

	log.Info("API key loaded", "path", cfg.API.KeyPath)

	return auth.NewTokenService(key)
}
