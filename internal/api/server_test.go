package api

import (
	"context"
	"encoding/json"
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

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/require"

	"github.com/dailyblend/blender/internal/announce"
	"github.com/dailyblend/blender/internal/auth"
	"github.com/dailyblend/blender/internal/catalog"
	domainerrors "github.com/dailyblend/blender/internal/errors"
	"github.com/dailyblend/blender/internal/ratelimit"
	"github.com/dailyblend/blender/internal/service"
	"github.com/dailyblend/blender/internal/sse"
	"github.com/dailyblend/blender/internal/store"
	"github.com/dailyblend/blender/internal/validation"
)

const (
	levelA = "https://codex.rhythm.cafe/abc.rdzip"
	levelB = "https://codex.rhythm.cafe/def.rdzip"
)

// testEnvelope mirrors APIEnvelope with a typed payload.
type testEnvelope[T any] struct {
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
}

type fakeRunner struct {
	mu      sync.Mutex
	running bool
	next    time.Time
}

func (r *fakeRunner) Force(ctx context.Context, job func(context.Context) error) error {
	r.mu.Lock()
	busy := r.running
	r.mu.Unlock()
	if busy {
		return domainerrors.ErrBusy
	}
	return job(ctx)
}

func (r *fakeRunner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *fakeRunner) NextFire() time.Time { return r.next }

type recordingPublisher struct {
	mu    sync.Mutex
	posts []*announce.Announcement
}

func (p *recordingPublisher) Publish(_ context.Context, a *announce.Announcement) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.posts = append(p.posts, a)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.posts)
}

type testServer struct {
	*Server
	api       humatest.TestAPI
	store     *store.Store
	runner    *fakeRunner
	publisher *recordingPublisher
	tokens    *auth.TokenService
	events    *sse.Manager
}

func levelJSON(id string) string {
	return fmt.Sprintf(`[{
		"id": %q,
		"artist": "Artist",
		"song": "Song %[1]s",
		"authors": "[\"author\"]",
		"tags": "[]",
		"description": "",
		"difficulty": 1,
		"single_player": 1,
		"two_player": 0,
		"image": "https://codex.rhythm.cafe/%[1]s.png",
		"url2": "https://codex.rhythm.cafe/%[1]s.rdzip"
	}]`, id)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTestServer wires a real badger store, catalog fake and token service.
func setupTestServer(t *testing.T, limiter Limiter) *testServer {
	t.Helper()

	dir := t.TempDir()

	st, err := store.New(filepath.Join(dir, "badger"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	catalogServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/datasette/orchard/level/"), ".json")
		if id != "abc" && id != "def" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, levelJSON(id))
	}))
	t.Cleanup(catalogServer.Close)

	key, err := auth.LoadOrGenerateKey(filepath.Join(dir, "api.key"))
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key)
	require.NoError(t, err)

	pub := &recordingPublisher{}
	runner := &fakeRunner{next: time.Date(2026, 3, 15, 5, 0, 0, 0, time.UTC)}
	client := catalog.New(testLogger(), catalog.Options{BaseURL: catalogServer.URL})
	blend := service.NewBlendService(st, client, pub, time.UTC, testLogger())
	commands := service.NewCommandService(st, blend, runner, validation.New(), testLogger())

	events := sse.NewManager(testLogger())
	go events.Start(t.Context())
	t.Cleanup(func() { _ = events.Shutdown(context.Background()) })
	blend.SetEmitter(events)
	commands.SetEmitter(events)

	if limiter == nil {
		rl := ratelimit.New(1000, 1000, 0)
		t.Cleanup(rl.Stop)
		limiter = rl
	}

	s := NewServer(st, commands, runner, Options{Tokens: tokens, Limiter: limiter, Events: events}, testLogger())

	return &testServer{
		Server:    s,
		api:       humatest.Wrap(t, s.API()),
		store:     st,
		runner:    runner,
		publisher: pub,
		tokens:    tokens,
		events:    events,
	}
}

func (ts *testServer) token(t *testing.T, role auth.Role) string {
	t.Helper()
	token, err := ts.tokens.Issue("tester-"+string(role), role, time.Hour)
	require.NoError(t, err)
	return "Authorization: Bearer " + token
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var envelope testEnvelope[T]
	require.NoError(t, json.Unmarshal(body, &envelope), "body: %s", body)
	require.True(t, envelope.Success, "body: %s", body)
	return envelope.Data
}

func decodeError(t *testing.T, body []byte) APIErrorEnvelope {
	t.Helper()
	var envelope APIErrorEnvelope
	require.NoError(t, json.Unmarshal(body, &envelope), "body: %s", body)
	return envelope
}
