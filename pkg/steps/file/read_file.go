// Package file provides the filesystem step family: read-file, write-file
// and download-file.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/flowkite/flowkite/pkg/models"
	"github.com/flowkite/flowkite/pkg/protocol"
)

// ReadFileFactory creates read-file steps.
type ReadFileFactory struct{}

func NewReadFileFactory() *ReadFileFactory {
	return &ReadFileFactory{}
}

func (f *ReadFileFactory) ID() string {
	return string(models.StepTypeReadFile)
}

func (f *ReadFileFactory) Name() string {
	return "Read File"
}

func (f *ReadFileFactory) Description() string {
	return "Reads a file into a variable, optionally parsing it as JSON."
}

func (f *ReadFileFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "File path to read. Supports {{name}} placeholders.",
			},
			"variable": map[string]any{
				"type":        "string",
				"description": "Variable name the content is stored under.",
			},
			"parse_json": map[string]any{
				"type":        "boolean",
				"description": "Parse the content as JSON instead of storing it as a string.",
				"default":     false,
			},
		},
		"required":             []string{"path", "variable"},
		"additionalProperties": false,
	}
}

func (f *ReadFileFactory) Create(config map[string]any) (protocol.Step, error) {
	path, ok := config["path"].(string)
	if !ok || path == "" {
		return nil, fmt.Errorf("missing or invalid 'path' in configuration")
	}

	variable, ok := config["variable"].(string)
	if !ok || variable == "" {
		return nil, fmt.Errorf("missing or invalid 'variable' in configuration")
	}

	parseJSON, _ := config["parse_json"].(bool)

	return &ReadFileStep{path: path, variable: variable, parseJSON: parseJSON}, nil
}

type ReadFileStep struct {
	path      string
	variable  string
	parseJSON bool
}

func (s *ReadFileStep) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (*models.StepOutput, error) {
	logger.InfoContext(ctx, "Reading file", "path", s.path)

	data, err := os.ReadFile(s.path)
	if err != nil {
		return models.Failure(fmt.Sprintf("failed to read %s: %v", s.path, err)), nil
	}

	var content any = string(data)

	if s.parseJSON {
		var parsed any
		if err := json.Unmarshal(data, &parsed); err != nil {
			return models.Failure(fmt.Sprintf("failed to parse %s as JSON: %v", s.path, err)), nil
		}

		content = parsed
	}

	return &models.StepOutput{
		Success:   true,
		Result:    map[string]any{"path": s.path, "size_bytes": len(data)},
		Variables: map[string]any{s.variable: content},
	}, nil
}
