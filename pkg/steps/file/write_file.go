package file

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/flowkite/flowkite/pkg/models"
	"github.com/flowkite/flowkite/pkg/protocol"
)

// WriteFileFactory creates write-file steps.
type WriteFileFactory struct{}

func NewWriteFileFactory() *WriteFileFactory {
	return &WriteFileFactory{}
}

func (f *WriteFileFactory) ID() string {
	return string(models.StepTypeWriteFile)
}

func (f *WriteFileFactory) Name() string {
	return "Write File"
}

func (f *WriteFileFactory) Description() string {
	return "Writes content to a file, creating parent directories as needed."
}

func (f *WriteFileFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "Destination file path. Supports {{name}} placeholders.",
			},
			"content": map[string]any{
				"description": "Content to write. Non-string values are JSON-encoded.",
			},
			"append": map[string]any{
				"type":        "boolean",
				"description": "Append to the file instead of truncating it.",
				"default":     false,
			},
		},
		"required":             []string{"path", "content"},
		"additionalProperties": false,
	}
}

func (f *WriteFileFactory) Create(config map[string]any) (protocol.Step, error) {
	path, ok := config["path"].(string)
	if !ok || path == "" {
		return nil, fmt.Errorf("missing or invalid 'path' in configuration")
	}

	content, exists := config["content"]
	if !exists {
		return nil, fmt.Errorf("missing 'content' in configuration")
	}

	appendMode, _ := config["append"].(bool)

	return &WriteFileStep{path: path, content: content, appendMode: appendMode}, nil
}

type WriteFileStep struct {
	path       string
	content    any
	appendMode bool
}

func (s *WriteFileStep) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (*models.StepOutput, error) {
	logger.InfoContext(ctx, "Writing file", "path", s.path, "append", s.appendMode)

	var data []byte

	if str, ok := s.content.(string); ok {
		data = []byte(str)
	} else {
		encoded, err := json.Marshal(s.content)
		if err != nil {
			return models.Failure(fmt.Sprintf("failed to encode content: %v", err)), nil
		}

		data = encoded
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return models.Failure(fmt.Sprintf("failed to create directory for %s: %v", s.path, err)), nil
	}

	if s.appendMode {
		handle, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return models.Failure(fmt.Sprintf("failed to open %s: %v", s.path, err)), nil
		}

		defer func() {
			_ = handle.Close()
		}()

		if _, err := handle.Write(data); err != nil {
			return models.Failure(fmt.Sprintf("failed to append to %s: %v", s.path, err)), nil
		}
	} else if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return models.Failure(fmt.Sprintf("failed to write %s: %v", s.path, err)), nil
	}

	return &models.StepOutput{
		Success: true,
		Result:  map[string]any{"path": s.path, "size_bytes": len(data)},
	}, nil
}
