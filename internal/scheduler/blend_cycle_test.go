package scheduler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailyblend/blender/internal/announce"
	"github.com/dailyblend/blender/internal/catalog"
	"github.com/dailyblend/blender/internal/scheduler"
	"github.com/dailyblend/blender/internal/service"
	"github.com/dailyblend/blender/internal/store/sqlite"
)

type soonOnce struct {
	mu    sync.Mutex
	fired bool
}

func (o *soonOnce) Next(after time.Time) time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.fired {
		o.fired = true
		return after.Add(5 * time.Millisecond)
	}
	return after.Add(24 * time.Hour)
}

type countingPublisher struct {
	mu sync.Mutex
	n  int
}

func (p *countingPublisher) Publish(context.Context, *announce.Announcement) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.n++
	return nil
}

type alerts struct {
	mu   sync.Mutex
	msgs []string
}

func (a *alerts) Alert(_ context.Context, msg string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.msgs = append(a.msgs, msg)
	return nil
}

func (a *alerts) list() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.msgs...)
}

// A pool entry whose level no longer exists: the firing consumes it, nothing
// is published, the operator hears about it and the scheduler is idle again.
func TestDailyCycle_LevelNotFound(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()
	transport := &http.Transport{}
	defer transport.CloseIdleConnections()

	st, err := sqlite.Open(filepath.Join(t.TempDir(), "blend.db"), logger)
	require.NoError(t, err)
	defer st.Close()

	_, err = st.AddToPool(t.Context(), "https://codex.rhythm.cafe/abc.rdzip")
	require.NoError(t, err)

	client := catalog.New(logger, catalog.Options{
		BaseURL:    server.URL,
		HTTPClient: &http.Client{Transport: transport, Timeout: 5 * time.Second},
	})
	pub := &countingPublisher{}
	blend := service.NewBlendService(st, client, pub, time.UTC, logger)
	reporter := &alerts{}

	s := scheduler.New(&soonOnce{}, func(ctx context.Context) error {
		_, err := blend.RunDaily(ctx)
		return err
	}, reporter, logger)

	s.Start(t.Context())
	assert.Eventually(t, func() bool { return len(reporter.list()) == 1 }, 5*time.Second, 5*time.Millisecond)
	s.Stop()

	assert.Contains(t, reporter.list()[0], "failed to find level with id 'abc'")
	assert.Zero(t, pub.n)
	assert.Equal(t, scheduler.Idle, s.State())

	pool, err := st.ListPool(t.Context())
	require.NoError(t, err)
	assert.Empty(t, pool)
}
