package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dailyblend/blender/internal/auth"
	"github.com/dailyblend/blender/internal/domain"
)

const (
	levelA = "https://codex.rhythm.cafe/abc.rdzip"
	levelB = "https://codex.rhythm.cafe/def.rdzip"
)

type harness struct {
	dir        string
	catalogURL string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/datasette/orchard/level/"), ".json")
		if id != "abc" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{
			"id": "abc",
			"artist": "Artist",
			"song": "Song",
			"authors": "[\"author\"]",
			"tags": "[]",
			"description": "",
			"difficulty": 2,
			"single_player": 1,
			"two_player": 0,
			"image": "https://codex.rhythm.cafe/abc.png",
			"url2": "https://codex.rhythm.cafe/abc.rdzip"
		}]`)
	}))
	t.Cleanup(srv.Close)

	return &harness{dir: t.TempDir(), catalogURL: srv.URL}
}

// run executes blendctl against a sqlite store in the harness directory.
func (h *harness) run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	base := []string{
		"--env-file", filepath.Join(h.dir, "missing.env"),
		"--env", "development",
		"--log-level", "error",
		"--store", "sqlite",
		"--data-path", h.dir,
		"--catalog-url", h.catalogURL,
	}

	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append(base, args...))
	err := root.Execute()
	return out.String(), err
}

func (h *harness) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := h.run(t, args...)
	require.NoError(t, err, "blendctl %s", strings.Join(args, " "))
	return out
}

func TestQueueCommands(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun(t, "queue", "add", "3-14", levelA)
	assert.Equal(t, "Queued "+levelA+" on 03 14.\n", out)

	h.mustRun(t, "queue", "add", "01/02", levelB)

	out = h.mustRun(t, "queue", "list")
	assert.Equal(t, fmt.Sprintf("01 02: %s\n03 14: %s\n", levelB, levelA), out)

	out = h.mustRun(t, "queue", "list", "-o", "json")
	var entries []domain.ScheduledEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, domain.DateKey{Month: 1, Day: 2}, entries[0].Date)

	out = h.mustRun(t, "queue", "rm", "03 14")
	assert.Equal(t, "Removed the entry for 03 14.\n", out)

	_, err := h.run(t, "queue", "rm", "03 14")
	assert.Error(t, err)
}

func TestQueueAddRejectsBadInput(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "queue", "add", "13-01", levelA)
	assert.Error(t, err)

	_, err = h.run(t, "queue", "add", "03-14", "https://example.com/abc.rdzip")
	assert.ErrorContains(t, err, "unknown hostname")

	out := h.mustRun(t, "queue", "list")
	assert.Equal(t, "Queue is empty.\n", out)
}

func TestPoolCommands(t *testing.T) {
	h := newHarness(t)

	h.mustRun(t, "pool", "add", levelA, levelA)

	out := h.mustRun(t, "pool", "list", "-o", "yaml")
	var entries []domain.PoolEntry
	require.NoError(t, yaml.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 2, "duplicates are separate members")
	assert.NotEqual(t, entries[0].ID, entries[1].ID)

	h.mustRun(t, "pool", "rm", entries[0].ID)

	out = h.mustRun(t, "pool", "list")
	assert.Equal(t, entries[1].ID+"  "+levelA+"\n", out)
}

func TestOverrideCommands(t *testing.T) {
	h := newHarness(t)

	assert.Equal(t, "No override set.\n", h.mustRun(t, "override", "show"))

	h.mustRun(t, "override", "set", "  "+levelA+"  ")
	assert.Equal(t, "Override: "+levelA+"\n", h.mustRun(t, "override", "show"))

	out := h.mustRun(t, "override", "clear", "-o", "json")
	var view overrideView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, domain.LevelReference(levelA), view.Level)
	assert.False(t, view.Set)

	assert.Equal(t, "No override set.\n", h.mustRun(t, "override", "show"))
}

func TestPreview(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun(t, "preview", levelA)
	assert.Contains(t, out, "Artist - Song")
	assert.Contains(t, out, "Tough")
	assert.Contains(t, out, "Image: https://codex.rhythm.cafe/abc.png")

	_, err := h.run(t, "preview", levelB)
	assert.ErrorContains(t, err, "failed to find level with id 'def'")
}

func TestTokenIssue(t *testing.T) {
	h := newHarness(t)

	out := h.mustRun(t, "token", "issue", "alice", "--role", "operator", "--ttl", "1h", "-o", "json")
	var issued issuedToken
	require.NoError(t, json.Unmarshal([]byte(out), &issued))
	assert.Equal(t, "alice", issued.Subject)
	assert.Equal(t, auth.RoleOperator, issued.Role)

	key, err := auth.LoadOrGenerateKey(filepath.Join(h.dir, "api.key"))
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(key)
	require.NoError(t, err)

	claims, err := tokens.Verify(issued.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, auth.RoleOperator, claims.Role)

	_, err = h.run(t, "token", "issue", "bob", "--role", "admin")
	assert.Error(t, err)
}

func TestExportImport(t *testing.T) {
	src := newHarness(t)
	src.mustRun(t, "override", "set", levelB)
	src.mustRun(t, "queue", "add", "03-14", levelA)
	src.mustRun(t, "pool", "add", levelA, levelB)

	exported := src.mustRun(t, "export")
	assert.Contains(t, exported, levelB)

	file := filepath.Join(t.TempDir(), "blend.yaml")
	require.NoError(t, os.WriteFile(file, []byte(exported), 0o600))

	dst := newHarness(t)
	out := dst.mustRun(t, "import", file)
	assert.Equal(t, "Imported 1 queue entries and 2 pool levels.\n", out)

	assert.Equal(t, "Override: "+levelB+"\n", dst.mustRun(t, "override", "show"))
	assert.Equal(t, "03 14: "+levelA+"\n", dst.mustRun(t, "queue", "list"))

	var pool []domain.PoolEntry
	require.NoError(t, json.Unmarshal([]byte(dst.mustRun(t, "pool", "list", "-o", "json")), &pool))
	require.Len(t, pool, 2)
	assert.Equal(t, domain.LevelReference(levelA), pool[0].Ref)
	assert.Equal(t, domain.LevelReference(levelB), pool[1].Ref)
}

func TestUnknownOutputFormat(t *testing.T) {
	h := newHarness(t)

	_, err := h.run(t, "queue", "list", "-o", "xml")
	assert.ErrorContains(t, err, `unknown output format "xml"`)
}
