package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dailyblend/blender/internal/auth"
)

func TestPermissions(t *testing.T) {
	ts := setupTestServer(t, nil)
	viewer := ts.token(t, auth.RoleViewer)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"set override", http.MethodPut, "/api/v1/override", map[string]any{"level": levelA}},
		{"schedule", http.MethodPut, "/api/v1/queue/03-14", map[string]any{"level": levelA}},
		{"unschedule", http.MethodDelete, "/api/v1/queue/03-14", nil},
		{"add to pool", http.MethodPost, "/api/v1/pool", map[string]any{"level": levelA}},
		{"remove from pool", http.MethodDelete, "/api/v1/pool/pool-x", nil},
		{"force", http.MethodPost, "/api/v1/force", map[string]any{"level": levelA}},
	}

	for _, tt := range tests {
		t.Run(tt.name+" anonymous", func(t *testing.T) {
			args := []any{}
			if tt.body != nil {
				args = append(args, tt.body)
			}
			resp := ts.api.Do(tt.method, tt.path, args...)
			assert.Equal(t, http.StatusUnauthorized, resp.Code, resp.Body.String())
			assert.Equal(t, "UNAUTHORIZED", decodeError(t, resp.Body.Bytes()).Code)
		})

		t.Run(tt.name+" viewer", func(t *testing.T) {
			args := []any{viewer}
			if tt.body != nil {
				args = append(args, tt.body)
			}
			resp := ts.api.Do(tt.method, tt.path, args...)
			assert.Equal(t, http.StatusForbidden, resp.Code, resp.Body.String())
			assert.Equal(t, "FORBIDDEN", decodeError(t, resp.Body.Bytes()).Code)
		})
	}

	assert.Zero(t, ts.publisher.count())
	pool, err := ts.store.ListPool(t.Context())
	require.NoError(t, err)
	assert.Empty(t, pool)
}

func TestReadEndpointsNeedToken(t *testing.T) {
	ts := setupTestServer(t, nil)

	for _, path := range []string{"/api/v1/status", "/api/v1/queue", "/api/v1/pool", "/api/v1/override"} {
		resp := ts.api.Get(path)
		assert.Equal(t, http.StatusUnauthorized, resp.Code, path)

		resp = ts.api.Get(path, ts.token(t, auth.RoleViewer))
		assert.Equal(t, http.StatusOK, resp.Code, path)
	}
}

func TestInvalidTokenIsAnonymous(t *testing.T) {
	ts := setupTestServer(t, nil)

	resp := ts.api.Get("/api/v1/status", "Authorization: Bearer v4.local.garbage")
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	// A token signed by another key is rejected too.
	other, err := auth.NewTokenService(make([]byte, 32))
	require.NoError(t, err)
	token, err := other.Issue("mallory", auth.RoleOperator, time.Hour)
	require.NoError(t, err)

	resp = ts.api.Get("/api/v1/status", "Authorization: Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
