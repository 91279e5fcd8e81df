package file

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/flowkite/flowkite/pkg/models"
	"github.com/flowkite/flowkite/pkg/protocol"
)

const defaultDownloadTimeout = 5 * time.Minute

// DownloadFileFactory creates download-file steps.
type DownloadFileFactory struct{}

func NewDownloadFileFactory() *DownloadFileFactory {
	return &DownloadFileFactory{}
}

func (f *DownloadFileFactory) ID() string {
	return string(models.StepTypeDownloadFile)
}

func (f *DownloadFileFactory) Name() string {
	return "Download File"
}

func (f *DownloadFileFactory) Description() string {
	return "Downloads a URL to a local file."
}

func (f *DownloadFileFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "URL to download. Supports {{name}} placeholders.",
			},
			"path": map[string]any{
				"type":        "string",
				"description": "Destination file path.",
			},
			"timeout": map[string]any{
				"type":        "integer",
				"description": "Download timeout in seconds.",
				"default":     300,
				"minimum":     1,
			},
		},
		"required":             []string{"url", "path"},
		"additionalProperties": false,
	}
}

func (f *DownloadFileFactory) Create(config map[string]any) (protocol.Step, error) {
	url, ok := config["url"].(string)
	if !ok || url == "" {
		return nil, fmt.Errorf("missing or invalid 'url' in configuration")
	}

	path, ok := config["path"].(string)
	if !ok || path == "" {
		return nil, fmt.Errorf("missing or invalid 'path' in configuration")
	}

	timeout := defaultDownloadTimeout
	if seconds, ok := config["timeout"].(float64); ok && seconds > 0 {
		timeout = time.Duration(seconds) * time.Second
	}

	return &DownloadFileStep{url: url, path: path, timeout: timeout}, nil
}

type DownloadFileStep struct {
	url     string
	path    string
	timeout time.Duration
}

func (s *DownloadFileStep) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (*models.StepOutput, error) {
	logger.InfoContext(ctx, "Downloading file", "url", s.url, "path", s.path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return models.Failure(fmt.Sprintf("failed to create download request: %v", err)), nil
	}

	client := &http.Client{Timeout: s.timeout}

	resp, err := client.Do(req)
	if err != nil {
		return models.Failure(fmt.Sprintf("download failed: %v", err)), nil
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		return models.Failure(fmt.Sprintf("download of %s answered with status %d", s.url, resp.StatusCode)), nil
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return models.Failure(fmt.Sprintf("failed to create directory for %s: %v", s.path, err)), nil
	}

	handle, err := os.OpenFile(s.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return models.Failure(fmt.Sprintf("failed to create %s: %v", s.path, err)), nil
	}

	defer func() {
		_ = handle.Close()
	}()

	written, err := io.Copy(handle, resp.Body)
	if err != nil {
		return models.Failure(fmt.Sprintf("failed to write %s: %v", s.path, err)), nil
	}

	return &models.StepOutput{
		Success: true,
		Result:  map[string]any{"path": s.path, "size_bytes": written},
	}, nil
}
