package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailyblend/blender/internal/auth"
)

func TestOverride_SetAndGet(t *testing.T) {
	ts := setupTestServer(t, nil)
	op := ts.token(t, auth.RoleOperator)

	resp := ts.api.Put("/api/v1/override", op, map[string]any{"level": "  " + levelA + " "})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, levelA, decode[OverrideResponse](t, resp.Body.Bytes()).Level)

	resp = ts.api.Get("/api/v1/override", ts.token(t, auth.RoleViewer))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, levelA, decode[OverrideResponse](t, resp.Body.Bytes()).Level)
}

func TestOverride_InvalidSource(t *testing.T) {
	ts := setupTestServer(t, nil)

	resp := ts.api.Put("/api/v1/override", ts.token(t, auth.RoleOperator),
		map[string]any{"level": "https://example.com/abc.rdzip"})

	require.Equal(t, http.StatusBadRequest, resp.Code)
	env := decodeError(t, resp.Body.Bytes())
	assert.Equal(t, "INVALID_SOURCE", env.Code)
	assert.Contains(t, env.Message, "unknown hostname: 'example.com'")

	_, ok, err := ts.store.PeekOverride(t.Context())
	require.NoError(t, err)
	assert.False(t, ok, "rejected reference must not be stored")
}

func TestQueue_ScheduleListUnschedule(t *testing.T) {
	ts := setupTestServer(t, nil)
	op := ts.token(t, auth.RoleOperator)

	resp := ts.api.Put("/api/v1/queue/12-25", op, map[string]any{"level": levelB})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, QueueEntryResponse{Date: "12 25", Level: levelB}, decode[QueueEntryResponse](t, resp.Body.Bytes()))

	resp = ts.api.Put("/api/v1/queue/3-14", op, map[string]any{"level": levelA})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	resp = ts.api.Get("/api/v1/queue", op)
	require.Equal(t, http.StatusOK, resp.Code)
	queue := decode[QueueResponse](t, resp.Body.Bytes())
	assert.Equal(t, []QueueEntryResponse{
		{Date: "03 14", Level: levelA},
		{Date: "12 25", Level: levelB},
	}, queue.Entries)

	resp = ts.api.Delete("/api/v1/queue/03-14", op)
	assert.Equal(t, http.StatusNoContent, resp.Code, resp.Body.String())

	resp = ts.api.Delete("/api/v1/queue/03-14", op)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, resp.Body.Bytes()).Code)
}

func TestQueue_BadDate(t *testing.T) {
	ts := setupTestServer(t, nil)

	resp := ts.api.Put("/api/v1/queue/13-01", ts.token(t, auth.RoleOperator), map[string]any{"level": levelA})

	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, "VALIDATION", decodeError(t, resp.Body.Bytes()).Code)
}

func TestPool_AddListRemove(t *testing.T) {
	ts := setupTestServer(t, nil)
	op := ts.token(t, auth.RoleOperator)

	resp := ts.api.Post("/api/v1/pool", op, map[string]any{"level": levelA})
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	first := decode[PoolEntryResponse](t, resp.Body.Bytes())
	assert.Equal(t, levelA, first.Level)
	assert.NotEmpty(t, first.ID)

	resp = ts.api.Post("/api/v1/pool", op, map[string]any{"level": levelA})
	require.Equal(t, http.StatusCreated, resp.Code)

	resp = ts.api.Get("/api/v1/pool", op)
	require.Equal(t, http.StatusOK, resp.Code)
	pool := decode[PoolResponse](t, resp.Body.Bytes())
	require.Len(t, pool.Entries, 2, "duplicates are allowed")
	assert.Equal(t, first.ID, pool.Entries[0].ID)

	resp = ts.api.Delete("/api/v1/pool/"+first.ID, op)
	assert.Equal(t, http.StatusNoContent, resp.Code, resp.Body.String())

	resp = ts.api.Delete("/api/v1/pool/"+first.ID, op)
	assert.Equal(t, http.StatusNotFound, resp.Code)

	resp = ts.api.Get("/api/v1/pool", op)
	assert.Len(t, decode[PoolResponse](t, resp.Body.Bytes()).Entries, 1)
}

func TestPool_MissingLevel(t *testing.T) {
	ts := setupTestServer(t, nil)

	resp := ts.api.Post("/api/v1/pool", ts.token(t, auth.RoleOperator), map[string]any{"level": ""})

	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code, resp.Body.String())
	assert.Equal(t, "VALIDATION", decodeError(t, resp.Body.Bytes()).Code)
}
