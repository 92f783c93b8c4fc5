package service_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dailyblend/blender/internal/announce"
	"github.com/dailyblend/blender/internal/catalog"
	"github.com/dailyblend/blender/internal/service"
	"github.com/dailyblend/blender/internal/store"
	"github.com/dailyblend/blender/internal/validation"
)

// levelJSON renders one orchard row.
func levelJSON(id string, difficulty, single, two int) string {
	return fmt.Sprintf(`[{
		"id": %q,
		"artist": "Artist %[1]s",
		"song": "Song %[1]s",
		"authors": "[\"author\"]",
		"tags": "[\"tag\"]",
		"description": "",
		"difficulty": %d,
		"single_player": %d,
		"two_player": %d,
		"image": "https://codex.rhythm.cafe/%[1]s.png",
		"url2": "https://codex.rhythm.cafe/%[1]s.rdzip"
	}]`, id, difficulty, single, two)
}

// newCatalogServer serves levels by ID and 404s everything else.
func newCatalogServer(t *testing.T, levels map[string]string) (*catalog.Client, *int) {
	t.Helper()

	var (
		mu    sync.Mutex
		calls int
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()

		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/datasette/orchard/level/"), ".json")
		body, ok := levels[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)

	return catalog.New(testLogger(), catalog.Options{BaseURL: server.URL}), &calls
}

type recordingPublisher struct {
	mu    sync.Mutex
	posts []*announce.Announcement
	err   error
}

func (p *recordingPublisher) Publish(_ context.Context, a *announce.Announcement) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.posts = append(p.posts, a)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.posts)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "blend.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// fixedNow is 2026-03-14 05:00 UTC.
var fixedNow = time.Date(2026, time.March, 14, 5, 0, 0, 0, time.UTC)

type fixture struct {
	store     *store.Store
	publisher *recordingPublisher
	blend     *service.BlendService
	commands  *service.CommandService
	calls     *int
}

func newFixture(t *testing.T, levels map[string]string) *fixture {
	t.Helper()

	st := newTestStore(t)
	client, calls := newCatalogServer(t, levels)
	pub := &recordingPublisher{}

	blend := service.NewBlendService(st, client, pub, time.UTC, testLogger())
	blend.SetClock(func() time.Time { return fixedNow })

	return &fixture{
		store:     st,
		publisher: pub,
		blend:     blend,
		commands:  service.NewCommandService(st, blend, nil, validation.New(), testLogger()),
		calls:     calls,
	}
}
