package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "state", "running.json")
	st, err := New(path)
	require.NoError(t, err)
	return st, path
}

func TestNewSeedsEmptyFile(t *testing.T) {
	st, path := testStore(t)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"apps":{}}`, string(b))
	assert.Empty(t, st.All())
}

func TestUpsertGetDelete(t *testing.T) {
	st, _ := testStore(t)

	rec := Record{
		PID:       4242,
		Host:      "127.0.0.1",
		Port:      9001,
		Cmd:       []string{"python3", "-m", "uvicorn", "app.main:app"},
		WorkDir:   "/srv/svc-a",
		StartedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, st.Upsert("svc-a", rec))

	got, ok := st.Get("svc-a")
	require.True(t, ok)
	assert.Equal(t, rec.PID, got.PID)
	assert.Equal(t, rec.Cmd, got.Cmd)
	assert.True(t, rec.StartedAt.Equal(got.StartedAt))

	require.NoError(t, st.Delete("svc-a"))
	_, ok = st.Get("svc-a")
	assert.False(t, ok)

	// deleting again is a no-op
	require.NoError(t, st.Delete("svc-a"))
}

func TestUpsertSurvivesReopen(t *testing.T) {
	st, path := testStore(t)
	require.NoError(t, st.Upsert("svc-a", Record{PID: 1, Port: 9001}))

	again, err := New(path)
	require.NoError(t, err)
	got, ok := again.Get("svc-a")
	require.True(t, ok)
	assert.Equal(t, 1, got.PID)
}

func TestCorruptFileTreatedAsEmpty(t *testing.T) {
	st, path := testStore(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	assert.Empty(t, st.All())
	require.NoError(t, st.Upsert("svc-b", Record{PID: 2, Port: 9002}))
	_, ok := st.Get("svc-b")
	assert.True(t, ok)
}
