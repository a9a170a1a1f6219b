package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterUsesDirAndName(t *testing.T) {
	dir := t.TempDir()
	w, err := Config{Dir: dir}.Writer("billing")
	require.NoError(t, err)
	require.NotNil(t, w)
	t.Cleanup(func() { _ = w.Close() })

	_, err = w.Write([]byte("hello\n"))
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(dir, "billing.log"))
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(b))
}

func TestWriterPathOverridesDir(t *testing.T) {
	dir := t.TempDir()
	explicit := filepath.Join(dir, "custom.log")
	w, err := Config{Dir: dir, Path: explicit}.Writer("billing")
	require.NoError(t, err)
	require.NotNil(t, w)
	t.Cleanup(func() { _ = w.Close() })

	_, err = w.Write([]byte("x"))
	require.NoError(t, err)
	_, err = os.Stat(explicit)
	assert.NoError(t, err)
}

func TestWriterNilWhenUnconfigured(t *testing.T) {
	w, err := Config{}.Writer("billing")
	require.NoError(t, err)
	assert.Nil(t, w)
}

func TestColorTextHandlerLevels(t *testing.T) {
	var buf bytes.Buffer
	h := NewColorTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}, false)
	log := slog.New(h)

	log.Info("started")
	log.Error("failed")

	out := buf.String()
	assert.True(t, strings.Contains(out, "\033[32mINFO"))
	assert.True(t, strings.Contains(out, "\033[31mERROR"))
	assert.Contains(t, out, "started")
	assert.Contains(t, out, "failed")
}
