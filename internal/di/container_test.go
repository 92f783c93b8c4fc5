package di

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailyblend/blender/internal/config"
	"github.com/dailyblend/blender/internal/di/providers"
	"github.com/dailyblend/blender/internal/publish"
	"github.com/dailyblend/blender/internal/service"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	return &config.Config{
		App:    config.AppConfig{Environment: "development"},
		Logger: config.LoggerConfig{Level: "error"},
		Blend: config.BlendConfig{
			WebhookURL: "http://127.0.0.1:1/api/webhooks/1/test",
			Time:       "05:00",
			Timezone:   "UTC",
			Location:   time.UTC,
		},
		Store:   config.StoreConfig{Backend: backend, DataPath: t.TempDir()},
		Catalog: config.CatalogConfig{BaseURL: "http://127.0.0.1:1", Timeout: time.Second},
		API:     config.APIConfig{KeyPath: filepath.Join(t.TempDir(), "api.key")},
	}
}

func TestContainer_WiresCoreServices(t *testing.T) {
	for _, backend := range []string{config.BackendBadger, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			injector := NewContainer(testConfig(t, backend))

			commands, err := do.Invoke[*service.CommandService](injector)
			require.NoError(t, err)

			st, err := commands.Status(t.Context())
			require.NoError(t, err)
			assert.Zero(t, st.PoolSize)
			assert.False(t, st.Running)

			httpHandle, err := do.Invoke[*providers.HTTPServerHandle](injector)
			require.NoError(t, err)
			assert.Nil(t, httpHandle.Server, "API is disabled by default")

			require.NoError(t, Shutdown(injector))
		})
	}
}

func TestContainer_BadBlendTime(t *testing.T) {
	cfg := testConfig(t, config.BackendBadger)
	cfg.Blend.Time = "25:00"
	injector := NewContainer(cfg)

	_, err := do.Invoke[*providers.SchedulerHandle](injector)
	assert.Error(t, err)

	_ = Shutdown(injector)
}

func TestContainer_BadWebhookURL(t *testing.T) {
	cfg := testConfig(t, config.BackendBadger)
	cfg.Blend.WebhookURL = "https://discord.com/channels/1/2"
	injector := NewContainer(cfg)

	_, err := do.Invoke[*publish.Webhook](injector)
	assert.ErrorContains(t, err, "BLEND_WEBHOOK_URL")

	_ = Shutdown(injector)
}

func TestContainer_UnknownBackend(t *testing.T) {
	injector := NewContainer(testConfig(t, "etcd"))

	_, err := do.Invoke[*providers.StoreHandle](injector)
	assert.ErrorContains(t, err, `unknown store backend "etcd"`)

	_ = Shutdown(injector)
}

type failingHandle struct{}

func (failingHandle) Shutdown() error { return errors.New("disk gone") }

func TestShutdown_ReportsFailures(t *testing.T) {
	injector := do.New()
	do.ProvideValue(injector, failingHandle{})

	err := Shutdown(injector)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk gone")
}

func TestShutdown_CleanIsNil(t *testing.T) {
	injector := NewContainer(testConfig(t, config.BackendSQLite))
	_, err := do.Invoke[*providers.StoreHandle](injector)
	require.NoError(t, err)

	assert.NoError(t, Shutdown(injector))
}
