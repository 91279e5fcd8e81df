package browser

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/chromedp/chromedp"

	browserpool "github.com/flowkite/flowkite/pkg/browser"
	"github.com/flowkite/flowkite/pkg/models"
	"github.com/flowkite/flowkite/pkg/protocol"
)

const fullScreenshotQuality = 90

// ScreenshotFactory creates screenshot steps bound to the session pool.
type ScreenshotFactory struct {
	pool *browserpool.Pool
}

func NewScreenshotFactory(pool *browserpool.Pool) *ScreenshotFactory {
	return &ScreenshotFactory{pool: pool}
}

func (f *ScreenshotFactory) ID() string {
	return string(models.StepTypeScreenshot)
}

func (f *ScreenshotFactory) Name() string {
	return "Screenshot"
}

func (f *ScreenshotFactory) Description() string {
	return "Captures the viewport or full page as a PNG."
}

func (f *ScreenshotFactory) Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"full_page": map[string]any{
				"type":        "boolean",
				"description": "Capture the full scrollable page instead of the viewport.",
				"default":     false,
			},
			"path": map[string]any{
				"type":        "string",
				"description": "File path the image is written to.",
			},
			"variable": map[string]any{
				"type":        "string",
				"description": "Variable name the base64-encoded image is stored under.",
			},
			"page":    pageProperty(),
			"timeout": timeoutProperty(),
		},
		"additionalProperties": false,
	}
}

func (f *ScreenshotFactory) Create(config map[string]any) (protocol.Step, error) {
	path, _ := config["path"].(string)
	variable, _ := config["variable"].(string)

	if path == "" && variable == "" {
		return nil, fmt.Errorf("configuration needs 'path' or 'variable'")
	}

	fullPage, _ := config["full_page"].(bool)

	return &ScreenshotStep{
		pool:     f.pool,
		fullPage: fullPage,
		path:     path,
		variable: variable,
		page:     pageNameFromConfig(config),
		timeout:  timeoutFromConfig(config),
	}, nil
}

type ScreenshotStep struct {
	pool     *browserpool.Pool
	fullPage bool
	path     string
	variable string
	page     string
	timeout  time.Duration
}

func (s *ScreenshotStep) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (*models.StepOutput, error) {
	logger.InfoContext(ctx, "Capturing screenshot", "full_page", s.fullPage)

	var buf []byte

	var action chromedp.Action
	if s.fullPage {
		action = chromedp.FullScreenshot(&buf, fullScreenshotQuality)
	} else {
		action = chromedp.CaptureScreenshot(&buf)
	}

	err := runOnPage(ctx, s.pool, executionCtx, s.page, s.timeout, action)
	if err != nil {
		return models.Failure(fmt.Sprintf("screenshot failed: %v", err)), nil
	}

	result := map[string]any{"size_bytes": len(buf)}

	if s.path != "" {
		if err := os.WriteFile(s.path, buf, 0o600); err != nil {
			return models.Failure(fmt.Sprintf("failed to write screenshot to %s: %v", s.path, err)), nil
		}

		result["path"] = s.path
	}

	output := &models.StepOutput{Success: true, Result: result}

	if s.variable != "" {
		output.Variables = map[string]any{s.variable: base64.StdEncoding.EncodeToString(buf)}
	}

	return output, nil
}
