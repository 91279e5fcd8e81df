package file

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowkite/flowkite/pkg/models"
)

func TestWriteThenReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "report.txt")

	writeStep, err := NewWriteFileFactory().Create(map[string]any{
		"path":    path,
		"content": "line one",
	})
	require.NoError(t, err)

	output, err := writeStep.Execute(context.Background(), models.ExecutionContext{}, slog.Default())
	require.NoError(t, err)
	require.True(t, output.Success, output.Error)

	readStep, err := NewReadFileFactory().Create(map[string]any{
		"path":     path,
		"variable": "content",
	})
	require.NoError(t, err)

	output, err = readStep.Execute(context.Background(), models.ExecutionContext{}, slog.Default())
	require.NoError(t, err)

	require.True(t, output.Success)
	assert.Equal(t, "line one", output.Variables["content"])
}

func TestWriteFileAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.txt")
	require.NoError(t, os.WriteFile(path, []byte("first\n"), 0o600))

	step, err := NewWriteFileFactory().Create(map[string]any{
		"path":    path,
		"content": "second\n",
		"append":  true,
	})
	require.NoError(t, err)

	output, err := step.Execute(context.Background(), models.ExecutionContext{}, slog.Default())
	require.NoError(t, err)
	require.True(t, output.Success)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(data))
}

func TestWriteFileEncodesStructuredContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")

	step, err := NewWriteFileFactory().Create(map[string]any{
		"path":    path,
		"content": map[string]any{"count": float64(2)},
	})
	require.NoError(t, err)

	output, err := step.Execute(context.Background(), models.ExecutionContext{}, slog.Default())
	require.NoError(t, err)
	require.True(t, output.Success)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"count": 2}`, string(data))
}

func TestReadFileParsesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"region": "eu"}`), 0o600))

	step, err := NewReadFileFactory().Create(map[string]any{
		"path":       path,
		"variable":   "data",
		"parse_json": true,
	})
	require.NoError(t, err)

	output, err := step.Execute(context.Background(), models.ExecutionContext{}, slog.Default())
	require.NoError(t, err)

	require.True(t, output.Success)
	assert.Equal(t, map[string]any{"region": "eu"}, output.Variables["data"])
}

func TestReadFileMissingIsStepFailure(t *testing.T) {
	step, err := NewReadFileFactory().Create(map[string]any{
		"path":     filepath.Join(t.TempDir(), "absent.txt"),
		"variable": "content",
	})
	require.NoError(t, err)

	output, err := step.Execute(context.Background(), models.ExecutionContext{}, slog.Default())
	require.NoError(t, err)

	assert.False(t, output.Success)
	assert.NotEmpty(t, output.Error)
}

func TestDownloadFileWritesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("downloaded payload"))
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "download.bin")

	step, err := NewDownloadFileFactory().Create(map[string]any{
		"url":  server.URL,
		"path": path,
	})
	require.NoError(t, err)

	output, err := step.Execute(context.Background(), models.ExecutionContext{}, slog.Default())
	require.NoError(t, err)

	require.True(t, output.Success, output.Error)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "downloaded payload", string(data))
}

func TestDownloadFileErrorStatusIsStepFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	step, err := NewDownloadFileFactory().Create(map[string]any{
		"url":  server.URL,
		"path": filepath.Join(t.TempDir(), "download.bin"),
	})
	require.NoError(t, err)

	output, err := step.Execute(context.Background(), models.ExecutionContext{}, slog.Default())
	require.NoError(t, err)

	assert.False(t, output.Success)
	assert.Contains(t, output.Error, "404")
}
