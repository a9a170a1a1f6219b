package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loykin/appman/internal/catalog"
	"github.com/loykin/appman/internal/catalog/sqlite"
	"github.com/loykin/appman/internal/state"
	"github.com/loykin/appman/internal/supervisor"
)

type testEnv struct {
	store  catalog.Store
	sup    *supervisor.Supervisor
	hints  *state.Store
	server *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := sqlite.New(filepath.Join(t.TempDir(), "apps.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.EnsureSchema(context.Background()))

	hints, err := state.New(filepath.Join(t.TempDir(), "running.json"))
	require.NoError(t, err)

	sup := supervisor.New(supervisor.Options{})
	r := NewRouter(db, sup, hints, "", false)
	srv := httptest.NewServer(r.Handler())
	t.Cleanup(srv.Close)

	return &testEnv{store: db, sup: sup, hints: hints, server: srv}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, e.server.URL+path, rd)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func validPayload(t *testing.T, name string, port int) map[string]any {
	t.Helper()
	return map[string]any{
		"name":  name,
		"path":  t.TempDir(),
		"entry": "app.main:app",
		"port":  port,
	}
}

func TestCreateListGet(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/apps", validPayload(t, "billing", 9810))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "billing", body["name"])
	assert.Equal(t, "stopped", body["status"])
	assert.Equal(t, false, body["serving"])
	assert.Equal(t, true, body["enabled"])

	resp, _ = env.do(t, http.MethodGet, "/apps", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCreateValidation(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/apps", map[string]any{
		"name":  "",
		"path":  "/does/not/exist",
		"entry": "no-colon",
		"port":  0,
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	errs, ok := body["errors"].([]any)
	require.True(t, ok)
	assert.Len(t, errs, 4)
}

func TestCreateDuplicateName(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodPost, "/apps", validPayload(t, "billing", 9810))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = env.do(t, http.MethodPost, "/apps", validPayload(t, "billing", 9811))
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestUpdateAndDelete(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/apps", validPayload(t, "billing", 9810))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	id := int(body["id"].(float64))

	p := validPayload(t, "billing-v2", 9811)
	resp, body = env.do(t, http.MethodPut, fmt.Sprintf("/apps/%d", id), p)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "billing-v2", body["name"])
	assert.Equal(t, float64(9811), body["port"])

	resp, _ = env.do(t, http.MethodDelete, fmt.Sprintf("/apps/%d", id), nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = env.do(t, http.MethodDelete, fmt.Sprintf("/apps/%d", id), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateRejectedWhileServing(t *testing.T) {
	env := newTestEnv(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	port := ln.Addr().(*net.TCPAddr).Port

	resp, body := env.do(t, http.MethodPost, "/apps", validPayload(t, "busy", port))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	id := int(body["id"].(float64))

	resp, _ = env.do(t, http.MethodPut, fmt.Sprintf("/apps/%d", id), validPayload(t, "busy", port))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp, _ = env.do(t, http.MethodDelete, fmt.Sprintf("/apps/%d", id), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStartWhenAlreadyServing(t *testing.T) {
	env := newTestEnv(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	port := ln.Addr().(*net.TCPAddr).Port

	resp, body := env.do(t, http.MethodPost, "/apps", validPayload(t, "busy", port))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	id := int(body["id"].(float64))

	resp, body = env.do(t, http.MethodPost, fmt.Sprintf("/apps/%d/start", id), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "running", body["status"])
}

func TestStartDisabledApp(t *testing.T) {
	env := newTestEnv(t)

	p := validPayload(t, "off", 9812)
	p["enabled"] = false
	resp, body := env.do(t, http.MethodPost, "/apps", p)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	id := int(body["id"].(float64))

	resp, _ = env.do(t, http.MethodPost, fmt.Sprintf("/apps/%d/start", id), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStopWhenNothingServes(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/apps", validPayload(t, "idle", 9813))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	id := int(body["id"].(float64))

	resp, body = env.do(t, http.MethodPost, fmt.Sprintf("/apps/%d/stop", id), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, false, body["still_serving"])
}

func TestLifecycleNotFound(t *testing.T) {
	env := newTestEnv(t)
	for _, path := range []string{"/apps/999/start", "/apps/999/stop", "/apps/999/restart"} {
		resp, _ := env.do(t, http.MethodPost, path, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
	resp, _ := env.do(t, http.MethodGet, "/apps/999/logs", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = env.do(t, http.MethodPost, "/apps/abc/start", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogsEmptyForIdleApp(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/apps", validPayload(t, "quiet", 9814))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	id := int(body["id"].(float64))

	resp, body = env.do(t, http.MethodGet, fmt.Sprintf("/apps/%d/logs", id), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	lines, ok := body["lines"].([]any)
	require.True(t, ok)
	assert.Empty(t, lines)
}

func TestImportYAML(t *testing.T) {
	env := newTestEnv(t)

	appDir := t.TempDir()
	yamlPath := filepath.Join(t.TempDir(), "apps.yaml")
	content := fmt.Sprintf(`
apps:
  billing:
    path: %s
    entry: app.main:app
    default_port: 9001
  cart:
    path: %s
    entry: cart.api:app
    default_port: 9002
    enabled: false
`, appDir, appDir)
	require.NoError(t, os.WriteFile(yamlPath, []byte(content), 0o600))

	resp, body := env.do(t, http.MethodPost, "/apps/import-yaml", map[string]any{"path": yamlPath})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["count"])

	// import is an upsert, so a second run does not duplicate
	resp, body = env.do(t, http.MethodPost, "/apps/import-yaml", map[string]any{"path": yamlPath})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["count"])

	apps, err := env.store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, apps, 2)
}

func TestImportYAMLMissingFile(t *testing.T) {
	env := newTestEnv(t)
	resp, _ := env.do(t, http.MethodPost, "/apps/import-yaml", map[string]any{"path": "nope.yaml"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	resp, body := env.do(t, http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["ok"])
}
